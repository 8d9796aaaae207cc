package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lumivoice/recall/internal/domain"
)

// namePatterns are tried in priority order; the first match wins. Each
// captures a single alphabetic token.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([a-zA-Z]+)`),
	regexp.MustCompile(`(?i)(?:^|[.!?:]\s*)name is ([a-zA-Z]+)`),
	regexp.MustCompile(`(?i)\bI(?:'m| am) ([a-zA-Z]+)[.!?]`),
	regexp.MustCompile(`(?i)\bcall me ([a-zA-Z]+)`),
	regexp.MustCompile(`(?i)\bthis is ([a-zA-Z]+)[.!?]`),
}

// nameStopWords are common words the patterns can capture but that are never
// names: articles, pronouns, fillers, emotion adjectives and role nouns.
var nameStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "that": {}, "this": {}, "it": {},
	"i": {}, "me": {}, "my": {}, "he": {}, "she": {}, "they": {}, "we": {}, "you": {}, "your": {},
	"just": {}, "not": {}, "so": {}, "very": {}, "really": {}, "actually": {}, "currently": {},
	"here": {}, "there": {}, "now": {}, "still": {}, "back": {}, "also": {},
	"sorry": {}, "sure": {}, "glad": {}, "happy": {}, "afraid": {}, "busy": {}, "fine": {},
	"good": {}, "great": {}, "well": {}, "okay": {}, "ok": {}, "yes": {}, "no": {},
	"calling": {}, "going": {}, "trying": {}, "looking": {}, "hoping": {}, "checking": {},
	"interested": {}, "done": {}, "unable": {},
	"customer": {}, "agent": {}, "doctor": {}, "nurse": {}, "manager": {}, "support": {},
}

// ExtractName scans text for a self-introduction and returns the caller's
// name, capitalized. ok is false when nothing plausible is found.
func ExtractName(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	for _, pattern := range namePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.ToLower(m[1])
		if _, stop := nameStopWords[candidate]; stop {
			continue
		}
		if len(candidate) < 2 {
			continue
		}
		return strings.ToUpper(candidate[:1]) + candidate[1:], true
	}

	return "", false
}

// fillerPatterns mark content that would sound awkward quoted back in a
// greeting: raw conversational filler, meta-commentary, agent speech.
var fillerPatterns = []string{
	"you know", "um", "uh", "okay", "ok", "great", "yeah", "yep",
	"right", "sure", "well", "so", "like", "actually",
	"session quality", "surface-level", "moderate", "rich",
	"chapters discussed", "stories shared", "emotional moments",
	"session date", "participant details",
	"can you tell me", "tell me about", "what do you",
	"how did you", "that's wonderful", "thank you for sharing",
	"yes", "no", "maybe", "i see", "i understand",
	"user name is", "user's name is", "name is",
}

var questionStarters = []string{
	"can you", "could you", "would you", "do you",
	"what", "how", "why", "where", "when",
}

// IsFiller reports whether content is conversational noise rather than
// something worth referencing in a personalized greeting.
func IsFiller(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 10 {
		return true
	}

	lower := strings.ToLower(trimmed)

	fillerCount := 0
	for _, p := range fillerPatterns {
		if lower == p || strings.HasPrefix(lower, p) {
			return true
		}
		if strings.Contains(lower, p) {
			fillerCount++
		}
	}
	if fillerCount >= 2 && len(trimmed) < 50 {
		return true
	}

	// Questions are almost always agent speech, not caller facts.
	if strings.Contains(trimmed, "?") {
		for _, q := range questionStarters {
			if strings.HasPrefix(lower, q) {
				return true
			}
		}
	}

	return false
}

// TruncateAtSentence shortens text to at most maxLen characters, preferring a
// sentence boundary, then a comma, then a word boundary (with an ellipsis
// appended only in the last case). ok is false when there is no usable
// boundary past a minimum offset.
func TruncateAtSentence(text string, maxLen int) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 10 {
		return "", false
	}
	if len(trimmed) <= maxLen {
		return trimmed, true
	}

	truncated := trimmed[:maxLen]

	lastBoundary := -1
	for _, ending := range []string{". ", "! ", "? "} {
		if pos := strings.LastIndex(truncated, ending); pos > lastBoundary {
			lastBoundary = pos
		}
	}
	if lastBoundary > 20 {
		return strings.TrimSpace(truncated[:lastBoundary+1]), true
	}

	if pos := strings.LastIndex(truncated, ", "); pos > 30 {
		return strings.TrimSpace(truncated[:pos]), true
	}

	if pos := strings.LastIndex(truncated, " "); pos > 30 {
		return strings.TrimSpace(truncated[:pos]) + "...", true
	}

	return "", false
}

// ExtractUserMessages filters a transcript down to the caller's turns,
// keeping in-call timing for temporal ordering.
func ExtractUserMessages(transcript []domain.TranscriptEntry) []domain.TranscriptEntry {
	var out []domain.TranscriptEntry
	for _, entry := range transcript {
		if entry.Role == "user" && entry.Message != "" {
			out = append(out, entry)
		}
	}
	return out
}

// BuildTranscript renders transcript entries as "Role: message" lines for
// prompts and name extraction.
func BuildTranscript(transcript []domain.TranscriptEntry) string {
	var b strings.Builder
	for _, entry := range transcript {
		if entry.Message == "" {
			continue
		}
		role := entry.Role
		if role == "" {
			role = "unknown"
		}
		role = strings.ToUpper(role[:1]) + role[1:]
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(entry.Message)
	}
	return b.String()
}

// profileContentFormats maps known data-collection field ids to readable
// memory content.
var profileContentFormats = map[string]string{
	"first_name": "User's name is %s",
	"name":       "User's name is %s",
	"last_name":  "User's last name is %s",
	"full_name":  "User's full name is %s",
	"email":      "User prefers contact via email at %s",
	"preference": "User preference: %s",
	"topic":      "User is interested in %s",
	"issue":      "User reported issue: %s",
	"request":    "User requested: %s",
	"feedback":   "User feedback: %s",
}

// FormatProfileContent turns an extracted field into human-readable memory
// content. Empty values produce no content.
func FormatProfileContent(key, value string) string {
	if value == "" {
		return ""
	}
	if format, ok := profileContentFormats[key]; ok {
		return fmt.Sprintf(format, value)
	}
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return fmt.Sprintf("%s: %s", strings.Join(words, " "), value)
}

// NormalizeFieldKey canonicalizes a data-collection field id for use as a
// metadata key and tag.
func NormalizeFieldKey(fieldID string) string {
	key := strings.ToLower(fieldID)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}
