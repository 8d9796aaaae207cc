package greeting

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lumivoice/recall/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStubGenerator points the SDK at a stub completion endpoint and returns
// the generator plus a request counter.
func newStubGenerator(t *testing.T, handler http.HandlerFunc) (*Generator, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return NewWithClient(client, "claude-3-5-haiku-latest", 512, time.Millisecond, testLogger()), &requests
}

func messageResponse(text string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-3-5-haiku-latest",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

func testAgent() *domain.AgentProfile {
	return &domain.AgentProfile{
		AgentID:      "agent_1",
		AgentName:    "Scheduler",
		FirstMessage: "Hi, ready to book?",
		SystemPrompt: "You are a scheduling assistant. Be brief.",
	}
}

func TestGenerateSuccess(t *testing.T) {
	g, requests := newStubGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messageResponse(`{
			"next_greeting": "Welcome back, Priya! How did the appointment go?",
			"key_topics": ["appointments", "rescheduling"],
			"sentiment": "satisfied",
			"conversation_summary": "Priya rescheduled her appointment."
		}`))
	})

	result, ok := g.Generate(context.Background(), testAgent(),
		&domain.UniversalProfile{Name: "Priya", TotalInteractions: 3},
		"User: I need to reschedule", &CallMetadata{DurationSecs: 90})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if result.NextGreeting == nil || !strings.Contains(*result.NextGreeting, "Priya") {
		t.Errorf("NextGreeting = %v", result.NextGreeting)
	}
	if result.Sentiment != domain.SentimentSatisfied {
		t.Errorf("Sentiment = %q", result.Sentiment)
	}
	if len(result.KeyTopics) != 2 {
		t.Errorf("KeyTopics = %v", result.KeyTopics)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("made %d requests, want 1", got)
	}
}

func TestGenerateFencedJSON(t *testing.T) {
	g, _ := newStubGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messageResponse("```json\n{\"next_greeting\": \"Hi again!\", \"sentiment\": \"neutral\"}\n```"))
	})

	result, ok := g.Generate(context.Background(), testAgent(), nil, "User: hello", nil)
	if !ok {
		t.Fatal("expected fenced JSON to parse")
	}
	if result.NextGreeting == nil || *result.NextGreeting != "Hi again!" {
		t.Errorf("NextGreeting = %v", result.NextGreeting)
	}
}

func TestGenerateInvalidJSONNotRetried(t *testing.T) {
	g, requests := newStubGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messageResponse("Sure! Here's a friendly greeting for the caller."))
	})

	if _, ok := g.Generate(context.Background(), testAgent(), nil, "User: hello", nil); ok {
		t.Fatal("expected ok=false for unparseable model output")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("made %d requests, want 1 (invalid output is not retried)", got)
	}
}

func TestGenerateRetriesRequestFailures(t *testing.T) {
	g, requests := newStubGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`, http.StatusInternalServerError)
	})

	if _, ok := g.Generate(context.Background(), testAgent(), nil, "User: hello", nil); ok {
		t.Fatal("expected ok=false after exhausted retries")
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestGenerateRecoversMidCycle(t *testing.T) {
	var n atomic.Int32
	g, requests := newStubGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) < 3 {
			http.Error(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(messageResponse(`{"next_greeting": "Hello!", "sentiment": "neutral"}`))
	})

	result, ok := g.Generate(context.Background(), testAgent(), nil, "User: hello", nil)
	if !ok {
		t.Fatal("expected recovery on the final attempt")
	}
	if result.NextGreeting == nil || *result.NextGreeting != "Hello!" {
		t.Errorf("NextGreeting = %v", result.NextGreeting)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestGenerateDisabledWithoutKey(t *testing.T) {
	g := New("", "claude-3-5-haiku-latest", 512, time.Second, testLogger())
	if g.Enabled() {
		t.Error("generator should be disabled without an API key")
	}
	if _, ok := g.Generate(context.Background(), testAgent(), nil, "User: hello", nil); ok {
		t.Error("disabled generator must return ok=false")
	}
}

func TestParseResult(t *testing.T) {
	t.Run("null greeting", func(t *testing.T) {
		result, ok := parseResult(`{"next_greeting": null, "key_topics": ["a"], "sentiment": "frustrated", "conversation_summary": "s"}`)
		if !ok {
			t.Fatal("expected ok")
		}
		if result.NextGreeting != nil {
			t.Error("expected nil greeting")
		}
		if result.Sentiment != domain.SentimentFrustrated {
			t.Errorf("Sentiment = %q", result.Sentiment)
		}
	})

	t.Run("blank greeting treated as absent", func(t *testing.T) {
		result, ok := parseResult(`{"next_greeting": "   "}`)
		if !ok {
			t.Fatal("expected ok")
		}
		if result.NextGreeting != nil {
			t.Error("expected blank greeting collapsed to nil")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		result, ok := parseResult(`{}`)
		if !ok {
			t.Fatal("expected ok")
		}
		if result.KeyTopics == nil || len(result.KeyTopics) != 0 {
			t.Errorf("KeyTopics = %v, want empty slice", result.KeyTopics)
		}
		if result.Sentiment != domain.SentimentNeutral {
			t.Errorf("Sentiment = %q, want neutral", result.Sentiment)
		}
		if result.ConversationSummary != "" {
			t.Errorf("ConversationSummary = %q", result.ConversationSummary)
		}
	})

	t.Run("unknown sentiment normalized", func(t *testing.T) {
		result, _ := parseResult(`{"sentiment": "ecstatic"}`)
		if result.Sentiment != domain.SentimentNeutral {
			t.Errorf("Sentiment = %q, want neutral", result.Sentiment)
		}
	})

	t.Run("prose rejected", func(t *testing.T) {
		if _, ok := parseResult("I'd be happy to help with that!"); ok {
			t.Error("expected ok=false for prose")
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("known caller", func(t *testing.T) {
		prompt := buildPrompt(testAgent(),
			&domain.UniversalProfile{Name: "Priya", TotalInteractions: 4},
			"User: hello", &CallMetadata{LastCallDate: "2026-03-10T09:00:00Z"})
		if !strings.Contains(prompt, "Name: Priya") {
			t.Error("prompt missing caller name")
		}
		if !strings.Contains(prompt, "Total Interactions: 4") {
			t.Error("prompt missing interaction count")
		}
		if !strings.Contains(prompt, "Last Call: 2026-03-10T09:00:00Z") {
			t.Error("prompt missing last call date")
		}
		if !strings.Contains(prompt, "You are a scheduling assistant") {
			t.Error("prompt missing agent role")
		}
	})

	t.Run("unknown caller", func(t *testing.T) {
		prompt := buildPrompt(testAgent(), nil, "User: hello", nil)
		if !strings.Contains(prompt, "Name: Not yet known") {
			t.Error("prompt missing unknown-name placeholder")
		}
		if !strings.Contains(prompt, "This was their first call") {
			t.Error("prompt missing first-call placeholder")
		}
	})

	t.Run("long transcript keeps the tail", func(t *testing.T) {
		transcript := strings.Repeat("User: earlier words\n", 200) + "User: the final remark"
		prompt := buildPrompt(testAgent(), nil, transcript, nil)
		if !strings.Contains(prompt, "[...earlier conversation omitted...]") {
			t.Error("prompt missing truncation marker")
		}
		if !strings.Contains(prompt, "the final remark") {
			t.Error("prompt lost the transcript tail")
		}
	})
}
