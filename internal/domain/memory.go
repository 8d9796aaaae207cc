package domain

// Salience weights and decay used for stored memory items. A decay lambda of
// zero means permanent retention.
const (
	SalienceProfileFact = 0.9
	SalienceUtterance   = 0.7
	DecayPermanent      = 0.0
)

// MemoryItem is an atomic fact or utterance written to the remote memory
// store. Items are immutable once written; newer items supersede older ones
// logically, never in place.
type MemoryItem struct {
	Content     string         `json:"content"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	UserID      string         `json:"user_id"`
	Salience    float64        `json:"salience"`
	DecayLambda float64        `json:"decay_lambda"`
}

// MemoryMatch is one ranked result from a memory store query.
type MemoryMatch struct {
	Content  string         `json:"content"`
	Sector   string         `json:"primary_sector"`
	Salience float64        `json:"salience"`
	Metadata map[string]any `json:"metadata"`
}

// UserSummary is the parsed form of the memory store's advisory summary
// digest. If it reports zero memories but a direct query finds results, the
// query wins.
type UserSummary struct {
	MemoryCount   int
	ActivityLevel string
	TopContent    string
}

// HasMemories reports whether the summary claims any stored memories.
func (s *UserSummary) HasMemories() bool {
	return s != nil && s.MemoryCount > 0
}

// ConversationContext correlates all memory items written during one call.
// It is attached as metadata, never persisted as its own entity.
type ConversationContext struct {
	ConversationID string
	EventTimestamp int64
	TimestampUTC   string
}

// Apply copies the context into an item metadata map.
func (c *ConversationContext) Apply(metadata map[string]any) {
	if c == nil {
		return
	}
	metadata["conversation_id"] = c.ConversationID
	metadata["event_timestamp"] = c.EventTimestamp
	metadata["timestamp_utc"] = c.TimestampUTC
}
