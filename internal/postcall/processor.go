package postcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lumivoice/recall/internal/agentcache"
	"github.com/lumivoice/recall/internal/domain"
	"github.com/lumivoice/recall/internal/greeting"
	"github.com/lumivoice/recall/internal/memory"
	"github.com/lumivoice/recall/internal/storage"
)

// Processor runs the post-call pipeline. Each step is independently
// fault-isolated: a failure is logged and recorded, and the remaining steps
// still run. The aggregated error feeds the dead-letter record.
type Processor struct {
	profiles  *memory.Profiles
	cache     *agentcache.Cache
	generator *greeting.Generator
	archiver  *storage.Archiver
	log       *slog.Logger
}

// NewProcessor wires the pipeline dependencies.
func NewProcessor(profiles *memory.Profiles, cache *agentcache.Cache, generator *greeting.Generator, archiver *storage.Archiver, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		profiles:  profiles,
		cache:     cache,
		generator: generator,
		archiver:  archiver,
		log:       log,
	}
}

// Process handles one post-call payload to completion. raw is the exact
// request body as received, archived verbatim.
func (p *Processor) Process(ctx context.Context, payload *Payload, raw []byte) error {
	conversationID := payload.Data.ConversationID
	var errs []error

	// Step 1: archive the raw payload, whatever its type.
	if err := p.archive(payload, raw); err != nil {
		p.log.Error("payload archival failed",
			"conversation_id", conversationID, "type", payload.Type, "error", err)
		errs = append(errs, fmt.Errorf("archive: %w", err))
	}

	// Only transcriptions carry conversation content worth remembering.
	if payload.Type != TypeTranscription {
		return errors.Join(errs...)
	}

	// Step 2: without a caller identity there is nothing to key memories by.
	caller := payload.CallerID()
	if caller == "" {
		p.log.Warn("no caller id in payload, skipping memory processing",
			"conversation_id", conversationID)
		return errors.Join(errs...)
	}

	p.log.Info("processing post-call memories",
		"conversation_id", conversationID, "caller", caller, "agent_id", payload.Data.AgentID)

	// Step 3: build the transcript and extract the caller's name, falling
	// back to the structured data-collection field.
	transcript := memory.BuildTranscript(payload.Data.Transcript)
	name, found := memory.ExtractName(transcript)
	if !found {
		name = p.nameFromDataCollection(payload)
	}

	// Step 4: update Tier 1 (sets name only when absent, always counts the
	// interaction).
	if ok := p.profiles.PutUniversalProfile(ctx, caller, name, true); !ok {
		errs = append(errs, errors.New("tier1 update failed"))
	}

	// Step 5: generate and store the next greeting for this agent.
	if err := p.updateAgentState(ctx, payload, caller, transcript); err != nil {
		errs = append(errs, err)
	}

	// Step 6: granular memory items, independent of the tiers.
	cc := &domain.ConversationContext{
		ConversationID: conversationID,
		EventTimestamp: payload.EventTimestamp,
		TimestampUTC:   payload.ClientTimestampUTC(),
	}

	facts := extractUserInfo(payload)
	if len(facts) > 0 {
		stored := p.profiles.StoreProfileFacts(ctx, caller, facts, cc)
		p.log.Info("stored profile facts", "caller", caller, "stored", stored, "extracted", len(facts))
	}

	if messages := memory.ExtractUserMessages(payload.Data.Transcript); len(messages) > 0 {
		stored := p.profiles.StoreUtterances(ctx, caller, messages, cc)
		p.log.Info("stored caller utterances", "caller", caller, "stored", stored, "total", len(messages))
	}

	return errors.Join(errs...)
}

func (p *Processor) archive(payload *Payload, raw []byte) error {
	conversationID := payload.Data.ConversationID
	switch payload.Type {
	case TypeTranscription:
		_, err := p.archiver.SaveTranscription(conversationID, raw)
		return err
	case TypeAudio:
		if payload.Data.AudioBase64 == "" {
			p.log.Warn("audio payload without audio data", "conversation_id", conversationID)
			return nil
		}
		_, err := p.archiver.SaveAudio(conversationID, payload.Data.AudioBase64)
		return err
	case TypeInitiationFailure:
		_, err := p.archiver.SaveFailure(conversationID, raw)
		return err
	default:
		p.log.Warn("unknown payload type, not archived",
			"conversation_id", conversationID, "type", payload.Type)
		return nil
	}
}

// updateAgentState fetches the agent's profile, generates the next greeting
// from the (possibly just-updated) Tier 1 profile, and writes Tier 2. A
// generation failure skips the Tier 2 write entirely.
func (p *Processor) updateAgentState(ctx context.Context, payload *Payload, caller, transcript string) error {
	agentID := payload.Data.AgentID
	if agentID == "" || transcript == "" {
		return nil
	}

	agentProfile, ok := p.cache.Get(ctx, agentID)
	if !ok {
		p.log.Warn("agent profile unavailable, skipping greeting", "agent_id", agentID)
		return nil
	}

	userProfile, _ := p.profiles.GetUniversalProfile(ctx, caller)

	meta := &greeting.CallMetadata{
		ClientTimestamp: payload.ClientTimestampUTC(),
	}
	if payload.Data.Metadata != nil {
		meta.DurationSecs = payload.Data.Metadata.CallDurationSecs
	}
	if prior, hasPrior := p.profiles.GetAgentState(ctx, caller, agentID); hasPrior && !prior.LastCallDate.IsZero() {
		meta.LastCallDate = prior.LastCallDate.Format(time.RFC3339)
	}

	result, ok := p.generator.Generate(ctx, agentProfile, userProfile, transcript, meta)
	if !ok {
		// Absent means skip personalization; Tier 2 stays untouched.
		p.log.Warn("greeting generation unavailable, tier2 not written",
			"caller", caller, "agent_id", agentID)
		return nil
	}

	if ok := p.profiles.PutAgentState(ctx, caller, agentID, result); !ok {
		return errors.New("tier2 update failed")
	}
	return nil
}

// nameFromDataCollection looks for a name in the platform's structured data
// collection results when the transcript heuristics find nothing.
func (p *Processor) nameFromDataCollection(payload *Payload) string {
	facts := extractUserInfo(payload)
	for _, key := range []string{"first_name", "name", "full_name"} {
		if v := facts[key]; v != "" {
			return v
		}
	}
	return ""
}

// extractUserInfo flattens non-nil data collection results into normalized
// key/value strings.
func extractUserInfo(payload *Payload) map[string]string {
	if payload.Data.Analysis == nil || len(payload.Data.Analysis.DataCollectionResults) == 0 {
		return nil
	}

	facts := make(map[string]string)
	for fieldID, result := range payload.Data.Analysis.DataCollectionResults {
		if result.Value == nil {
			continue
		}
		key := memory.NormalizeFieldKey(fieldID)
		switch v := result.Value.(type) {
		case string:
			if v != "" {
				facts[key] = v
			}
		case float64:
			facts[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			facts[key] = strconv.FormatBool(v)
		}
	}
	return facts
}
