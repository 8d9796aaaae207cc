package memory

import (
	"strings"
	"testing"

	"github.com/lumivoice/recall/internal/domain"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"my name is", "Hi, my name is priya and I need help", "Priya", true},
		{"case insensitive", "MY NAME IS PRIYA", "Priya", true},
		{"name is after sentence", "Hello. Name is Sam", "Sam", true},
		{"i'm with period", "I'm Stefan.", "Stefan", true},
		{"i am with exclamation", "I am Rachel!", "Rachel", true},
		{"call me", "You can call me Bob", "Bob", true},
		{"this is", "Hi, this is Alice.", "Alice", true},
		{"stop word after i'm", "I'm busy.", "", false},
		{"stop word after i'm gerund", "I'm going.", "", false},
		{"i'm without punctuation", "I'm Stefan and I need help", "", false},
		{"no introduction", "I need to check my order status", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   \n\t  ", "", false},
		{"single letter rejected", "my name is x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractName(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractName(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractName(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractNamePriority(t *testing.T) {
	// "my name is" outranks "call me" when both appear.
	got, ok := ExtractName("Call me Bobby, but my name is Robert")
	if !ok || got != "Robert" {
		t.Errorf("got (%q, %v), want (Robert, true)", got, ok)
	}
}

func TestIsFiller(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"too short", "um", true},
		{"filler prefix", "okay great, sure thing", true},
		{"agent question", "Can you tell me about your day?", true},
		{"question starter with mark", "What is your account number?", true},
		{"meta commentary", "session quality was moderate overall", true},
		{"real fact", "I run a bakery in Austin and we specialize in sourdough", false},
		{"fact mentioning name once", "My dog's name is Rex and he is seven years old", false},
		{"statement with question mark no starter", "The order for my latest purchase is 4412, can I confirm that with you?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFiller(tt.content); got != tt.want {
				t.Errorf("IsFiller(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestTruncateAtSentence(t *testing.T) {
	t.Run("short text rejected", func(t *testing.T) {
		if _, ok := TruncateAtSentence("short", 100); ok {
			t.Error("expected ok=false for text under 10 chars")
		}
	})

	t.Run("fits unchanged", func(t *testing.T) {
		got, ok := TruncateAtSentence("  Fits entirely within the limit.  ", 100)
		if !ok || got != "Fits entirely within the limit." {
			t.Errorf("got (%q, %v)", got, ok)
		}
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		text := "The first sentence ends right here. The second sentence carries on for much longer than the limit allows."
		got, ok := TruncateAtSentence(text, 60)
		if !ok {
			t.Fatal("expected ok=true")
		}
		if got != "The first sentence ends right here." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to comma", func(t *testing.T) {
		text := "A long opening clause without any sentence ending, followed by more words that push past the limit"
		got, ok := TruncateAtSentence(text, 70)
		if !ok {
			t.Fatal("expected ok=true")
		}
		if got != "A long opening clause without any sentence ending" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to word boundary with ellipsis", func(t *testing.T) {
		text := "wordswithoutpunctuation spread across the line and continuing well past any reasonable limit"
		got, ok := TruncateAtSentence(text, 50)
		if !ok {
			t.Fatal("expected ok=true")
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("expected ellipsis suffix, got %q", got)
		}
		if len(got) > 53 {
			t.Errorf("result too long: %d chars", len(got))
		}
	})

	t.Run("no usable boundary", func(t *testing.T) {
		if _, ok := TruncateAtSentence(strings.Repeat("x", 200), 50); ok {
			t.Error("expected ok=false for one unbroken token")
		}
	})
}

func TestExtractUserMessages(t *testing.T) {
	transcript := []domain.TranscriptEntry{
		{Role: "agent", Message: "Hello, how can I help?"},
		{Role: "user", Message: "My name is Priya"},
		{Role: "user", Message: ""},
		{Role: "agent", Message: "Nice to meet you"},
		{Role: "user", Message: "I need to reschedule", TimeInCallSecs: 12.5},
	}

	got := ExtractUserMessages(transcript)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Message != "My name is Priya" {
		t.Errorf("first message = %q", got[0].Message)
	}
	if got[1].TimeInCallSecs != 12.5 {
		t.Errorf("timing not preserved: %v", got[1].TimeInCallSecs)
	}
}

func TestBuildTranscript(t *testing.T) {
	transcript := []domain.TranscriptEntry{
		{Role: "agent", Message: "Hello"},
		{Role: "user", Message: "Hi there"},
		{Role: "", Message: "static"},
		{Role: "user", Message: ""},
	}

	got := BuildTranscript(transcript)
	want := "Agent: Hello\nUser: Hi there\nUnknown: static"
	if got != want {
		t.Errorf("BuildTranscript = %q, want %q", got, want)
	}
}

func TestFormatProfileContent(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"first_name", "Priya", "User's name is Priya"},
		{"email", "p@example.com", "User prefers contact via email at p@example.com"},
		{"favorite_color", "blue", "Favorite Color: blue"},
		{"topic", "gardening", "User is interested in gardening"},
		{"anything", "", ""},
	}

	for _, tt := range tests {
		if got := FormatProfileContent(tt.key, tt.value); got != tt.want {
			t.Errorf("FormatProfileContent(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestNormalizeFieldKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"First-Name", "first_name"},
		{"Full Name", "full_name"},
		{"email", "email"},
	}
	for _, tt := range tests {
		if got := NormalizeFieldKey(tt.in); got != tt.want {
			t.Errorf("NormalizeFieldKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
