package searcher

import "regexp"

// Periodic notes (daily, weekly, monthly, journal entries) score well on
// recency-heavy keyword matches but rarely answer a semantic query, so
// the fusion step demotes them.
var periodicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),                           // 2024-03-15 daily notes
	regexp.MustCompile(`\d{4}-[Ww]\d{1,2}`),                           // 2024-W11 weekly notes
	regexp.MustCompile(`\d{4}-\d{2}(\.|$)`),                           // 2024-03 monthly notes
	regexp.MustCompile(`(?i)(^|/)(daily|weekly|monthly|journal|diary)(/|$)`), // conventional folders
}

// IsPeriodicNote reports whether an identifier matches a date-based or
// conventionally periodic naming/location pattern
func IsPeriodicNote(identifier string) bool {
	for _, pattern := range periodicPatterns {
		if pattern.MatchString(identifier) {
			return true
		}
	}
	return false
}
