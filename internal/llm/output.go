package llm

import "strings"

// StripCodeFences removes a ```lang ... ``` wrapper from model output.
// Models routinely fence YAML and JSON answers even when told not to, so
// every structured-output parser runs its response through this first.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence with its optional language tag.
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
