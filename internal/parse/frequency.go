package parse

import (
	"regexp"
	"strings"
)

// Frequency is the canonical maintenance frequency.
type Frequency string

const (
	FrequencyMonthly    Frequency = "Monthly"
	FrequencyQuarterly  Frequency = "Quarterly"
	FrequencyHalfYearly Frequency = "Half Yearly"
	FrequencyYearly     Frequency = "Yearly"
)

var nonLetterRe = regexp.MustCompile(`[^A-Z]+`)

var frequencyAliases = map[string]Frequency{
	"MONTHLY":      FrequencyMonthly,
	"MONTH":        FrequencyMonthly,
	"QUARTERLY":    FrequencyQuarterly,
	"QUARTER":      FrequencyQuarterly,
	"QTRLY":        FrequencyQuarterly,
	"HALFYEARLY":   FrequencyHalfYearly,
	"HALFYEAR":     FrequencyHalfYearly,
	"SEMIANNUAL":   FrequencyHalfYearly,
	"SEMIANNUALLY": FrequencyHalfYearly,
	"BIANNUAL":     FrequencyHalfYearly,
	"YEARLY":       FrequencyYearly,
	"ANNUAL":       FrequencyYearly,
	"ANNUALLY":     FrequencyYearly,
}

// NormalizeFrequency maps free text such as "half-yearly" or "ANNUAL" to a
// canonical Frequency. The second result is false when the text is not recognised.
func NormalizeFrequency(text string) (Frequency, bool) {
	key := nonLetterRe.ReplaceAllString(strings.ToUpper(text), "")
	f, ok := frequencyAliases[key]
	return f, ok
}

// IntervalMonths is the number of months between occurrences, or 0 if unknown.
func (f Frequency) IntervalMonths() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyHalfYearly:
		return 6
	case FrequencyYearly:
		return 12
	}
	return 0
}

// CanonicalFrequency returns the canonical spelling of text when recognised,
// otherwise the trimmed input.
func CanonicalFrequency(text string) string {
	if f, ok := NormalizeFrequency(text); ok {
		return string(f)
	}
	return strings.TrimSpace(text)
}
