package extract

import (
	"regexp"
	"strings"
)

// Precompiled fence patterns (compiled once at package init)
var (
	labeledFenceRegex = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```")
	genericFenceRegex = regexp.MustCompile("```[a-zA-Z0-9_+-]*[ \\t]*\\r?\\n?([\\s\\S]*?)\\s*```")
)

// labeledFenceBodies returns the trimmed bodies of all ```json fenced blocks
// in order of appearance. The label match is case-insensitive.
func labeledFenceBodies(s string) []string {
	return fenceBodies(labeledFenceRegex, s)
}

// genericFenceBodies returns the trimmed bodies of all fenced blocks
// regardless of label, in order of appearance.
func genericFenceBodies(s string) []string {
	return fenceBodies(genericFenceRegex, s)
}

func fenceBodies(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	var bodies []string
	for _, m := range matches {
		if body := strings.TrimSpace(m[1]); body != "" {
			bodies = append(bodies, body)
		}
	}
	return bodies
}
