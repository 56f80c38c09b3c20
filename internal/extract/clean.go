package extract

import (
	"regexp"
	"strings"
)

// Narrative prefixes models commonly emit before the actual payload.
// Matched case-insensitively against the start of the trimmed text.
var narrativePrefixes = []string{
	"Here's the JSON:",
	"Here is the JSON:",
	"JSON output:",
	"Output:",
	"Result:",
}

var (
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentRegex   = regexp.MustCompile(`(?m)//.*$`)
)

// clean normalizes common LLM formatting defects: narrative prefixes,
// trailing commas before closing delimiters, and // line comments.
// The result is best-effort and only ever validated by a re-parse attempt.
func clean(s string) string {
	cleaned := strings.TrimSpace(s)

	for _, prefix := range narrativePrefixes {
		if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}

	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	cleaned = lineCommentRegex.ReplaceAllString(cleaned, "")

	return cleaned
}
