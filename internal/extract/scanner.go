package extract

import "strings"

// scanBalanced returns the shortest balanced span of s starting at s[0],
// which callers must guarantee is the opening delimiter. Delimiters inside
// string literals are ignored, and a backslash escapes exactly the next
// character (so `"a\"b"` does not end the string early).
// Returns false if s does not start with open or the structure never closes.
func scanBalanced(s string, open, close byte) (string, bool) {
	if len(s) == 0 || s[0] != open {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}

	// Unterminated structure
	return "", false
}

// firstBalancedSpan locates the earliest opening delimiter in s, object or
// array, and scans the balanced span from there. Whichever of '{' and '['
// occurs first in the text wins the tie.
func firstBalancedSpan(s string) (string, bool) {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	switch {
	case objStart == -1 && arrStart == -1:
		return "", false
	case arrStart == -1 || (objStart != -1 && objStart < arrStart):
		return scanBalanced(s[objStart:], '{', '}')
	default:
		return scanBalanced(s[arrStart:], '[', ']')
	}
}
