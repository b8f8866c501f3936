package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHourWindowContains(t *testing.T) {
	plain := HourWindow{Start: 9, End: 17}
	assert.False(t, plain.Contains(8))
	assert.True(t, plain.Contains(9))
	assert.True(t, plain.Contains(16))
	assert.False(t, plain.Contains(17), "end is exclusive")

	wrap := HourWindow{Start: 22, End: 2}
	assert.True(t, wrap.Contains(22))
	assert.True(t, wrap.Contains(23))
	assert.True(t, wrap.Contains(0))
	assert.True(t, wrap.Contains(1))
	assert.False(t, wrap.Contains(2), "end is exclusive after the wrap")
	assert.False(t, wrap.Contains(12))
}

func TestAppliesAt(t *testing.T) {
	r := PricingRule{
		PeakHours:  []HourWindow{{Start: 17, End: 21}},
		DaysOfWeek: []string{"saturday", "sunday"},
		Multiplier: decimal.NewFromInt(2),
	}
	assert.True(t, r.AppliesAt("saturday", 18))
	assert.False(t, r.AppliesAt("monday", 18))
	assert.False(t, r.AppliesAt("saturday", 10))

	blanket := PricingRule{Multiplier: decimal.NewFromInt(1)}
	assert.True(t, blanket.AppliesAt("wednesday", 3), "empty filters match everything")

	hoursOnly := PricingRule{PeakHours: []HourWindow{{Start: 0, End: 6}}}
	assert.True(t, hoursOnly.AppliesAt("friday", 3))
	assert.False(t, hoursOnly.AppliesAt("friday", 7))
}
