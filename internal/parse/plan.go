package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

var (
	wordRe    = regexp.MustCompile(`[A-Za-z]+`)
	monthlyRe = regexp.MustCompile(`(?i)MONTHLY`)
)

// monthTokens maps the accepted spellings to a calendar month.
var monthTokens = map[string]time.Month{
	"JAN": time.January, "JANUARY": time.January,
	"FEB": time.February, "FEBRUARY": time.February,
	"MAR": time.March, "MARCH": time.March,
	"APR": time.April, "APRIL": time.April,
	"MAY": time.May,
	"JUN": time.June, "JUNE": time.June,
	"JUL": time.July, "JULY": time.July,
	"AUG": time.August, "AUGUST": time.August,
	"SEP": time.September, "SEPT": time.September, "SEPTEMBER": time.September,
	"OCT": time.October, "OCTOBER": time.October,
	"NOV": time.November, "NOVEMBER": time.November,
	"DEC": time.December, "DECEMBER": time.December,
}

// MonthSet is a set of calendar months, bit 0 = January.
type MonthSet uint16

// AllMonths contains every month of the year.
const AllMonths MonthSet = 1<<12 - 1

// With returns s with m added.
func (s MonthSet) With(m time.Month) MonthSet {
	return s | 1<<(uint(m)-1)
}

// Has reports whether m is in the set.
func (s MonthSet) Has(m time.Month) bool {
	if m < time.January || m > time.December {
		return false
	}
	return s&(1<<(uint(m)-1)) != 0
}

// Unrestricted is true for the empty set, which callers read as "no restriction".
func (s MonthSet) Unrestricted() bool {
	return s == 0
}

// Allows reports whether scheduling in m is permitted.
func (s MonthSet) Allows(m time.Month) bool {
	return s.Unrestricted() || s.Has(m)
}

// Months lists the members in calendar order.
func (s MonthSet) Months() []time.Month {
	months := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		if s.Has(m) {
			months = append(months, m)
		}
	}
	return months
}

// Len returns the number of months in the set.
func (s MonthSet) Len() int {
	return len(s.Months())
}

// AllowedMonths derives the months in which maintenance is permitted from a
// machine's free-text PM plan year, e.g. "Feb-May-Aug-Nov", "Jul-Jan" or "Monthly".
//
// Empty text yields the empty set. Text with no recognisable month yields
// AllMonths. A hyphenated pair of exactly two months is a cyclic range;
// any other combination is a list of discrete months.
func AllowedMonths(text string) MonthSet {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}
	if monthlyRe.MatchString(s) {
		return AllMonths
	}

	var tokens []time.Month
	for _, w := range wordRe.FindAllString(s, -1) {
		if m, ok := monthTokens[strings.ToUpper(w)]; ok {
			tokens = append(tokens, m)
		}
	}
	if len(tokens) == 0 {
		return AllMonths
	}

	if len(tokens) == 2 && isHyphenPair(s) {
		return monthRange(tokens[0], tokens[1])
	}

	var set MonthSet
	for _, m := range tokens {
		set = set.With(m)
	}
	return set
}

// isHyphenPair reports whether s is two non-empty segments joined by one hyphen.
func isHyphenPair(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return false
	}
	return strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != ""
}

// monthRange walks forward from start to end inclusive, wrapping December to January.
func monthRange(start, end time.Month) MonthSet {
	var set MonthSet
	m := start
	for i := 0; i < 12; i++ {
		set = set.With(m)
		if m == end {
			break
		}
		m = m%12 + 1
	}
	return set
}

// PlanCache memoises AllowedMonths per plan text.
type PlanCache struct {
	c *cache.Cache
}

// NewPlanCache creates a cache whose entries expire after ttl (0 means never).
func NewPlanCache(ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		return &PlanCache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &PlanCache{c: cache.New(ttl, 2*ttl)}
}

// AllowedMonths returns the memoised result of AllowedMonths(text).
func (p *PlanCache) AllowedMonths(text string) MonthSet {
	if v, ok := p.c.Get(text); ok {
		return v.(MonthSet)
	}
	set := AllowedMonths(text)
	p.c.SetDefault(text, set)
	return set
}
