package fetch

import "strings"

// MinCleanTextChars is the quality gate's floor on visible text (spec §4.3/§4.6).
const MinCleanTextChars = 200

// placeholderPatterns are substrings that mark a page as not-yet-live
// content even when it clears the character-count floor.
var placeholderPatterns = []string{
	"coming soon",
	"under construction",
	"page not found",
	"site is being updated",
}

// PassesQualityGate reports whether cleaned text is substantial enough
// to extract facts from (spec §4.3 "the quality gate (§4.6) rejects
// outputs with <200 visible characters or matching placeholder
// patterns").
func PassesQualityGate(cleanText string) bool {
	trimmed := strings.TrimSpace(cleanText)
	if len(trimmed) < MinCleanTextChars {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, p := range placeholderPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
