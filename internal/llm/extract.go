package llm

import (
	"regexp"
	"strings"
)

var jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// ExtractJSONBlock pulls a JSON payload out of a free-text model response.
// It prefers a fenced ```json block, falling back to the outermost braces.
// The second return is false when nothing JSON-shaped is present.
func ExtractJSONBlock(text string) (string, bool) {
	if m := jsonFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start >= 0 && end > start {
		return text[start : end+1], true
	}

	return "", false
}

// StripJSONBlock removes the trailing fenced JSON block from a response,
// returning the prose that precedes it.
func StripJSONBlock(text string) string {
	if loc := jsonFenceRegex.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]])
	}

	return strings.TrimSpace(text)
}
