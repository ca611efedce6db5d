package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedMonths(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []time.Month
	}{
		{
			name:     "Monthly keyword",
			text:     "Monthly",
			expected: AllMonths.Months(),
		},
		{
			name:     "Monthly keyword any case inside text",
			text:     "pm done monthLY basis",
			expected: AllMonths.Months(),
		},
		{
			name:     "Four discrete months",
			text:     "Feb-May-Aug-Nov",
			expected: []time.Month{time.February, time.May, time.August, time.November},
		},
		{
			name:     "Cyclic range wraps the year end",
			text:     "Jul-Jan",
			expected: []time.Month{time.January, time.July, time.August, time.September, time.October, time.November, time.December},
		},
		{
			name:     "Forward range with full names",
			text:     "march - june",
			expected: []time.Month{time.March, time.April, time.May, time.June},
		},
		{
			name:     "Same month range",
			text:     "Apr-Apr",
			expected: []time.Month{time.April},
		},
		{
			name:     "Two months without hyphen are discrete",
			text:     "Jan, Jul",
			expected: []time.Month{time.January, time.July},
		},
		{
			name:     "Two months with trailing hyphen are discrete",
			text:     "Jan-Jul-",
			expected: []time.Month{time.January, time.July},
		},
		{
			name:     "SEPT abbreviation",
			text:     "Mar/Sept",
			expected: []time.Month{time.March, time.September},
		},
		{
			name:     "Month stuck to a year",
			text:     "Jun2025 Dec2025",
			expected: []time.Month{time.June, time.December},
		},
		{
			name:     "Unrecognised text fails open",
			text:     "garbage text",
			expected: AllMonths.Months(),
		},
		{
			name:     "Empty text is the empty set",
			text:     "",
			expected: []time.Month{},
		},
		{
			name:     "Whitespace is the empty set",
			text:     "   ",
			expected: []time.Month{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AllowedMonths(tc.text).Months())
		})
	}
}

func TestAllowedMonths_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, AllowedMonths("Oct-Feb"), AllowedMonths("Oct-Feb"))
	}
	assert.Equal(t, 5, AllowedMonths("Oct-Feb").Len())
}

func TestMonthSet(t *testing.T) {
	var empty MonthSet
	assert.True(t, empty.Unrestricted())
	assert.True(t, empty.Allows(time.March))
	assert.False(t, empty.Has(time.March))

	set := MonthSet(0).With(time.February).With(time.November)
	assert.False(t, set.Unrestricted())
	assert.True(t, set.Allows(time.November))
	assert.False(t, set.Allows(time.December))
	assert.False(t, set.Has(time.Month(13)))
	assert.Equal(t, 12, AllMonths.Len())
}

func TestPlanCache(t *testing.T) {
	pc := NewPlanCache(0)

	first := pc.AllowedMonths("Feb-May-Aug-Nov")
	assert.Equal(t, AllowedMonths("Feb-May-Aug-Nov"), first)

	_, cached := pc.c.Get("Feb-May-Aug-Nov")
	assert.True(t, cached)
	assert.Equal(t, first, pc.AllowedMonths("Feb-May-Aug-Nov"))
	assert.True(t, pc.AllowedMonths("").Unrestricted())
}
