package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HourWindow is a half-open [Start, End) range of hours of day, both in
// 0–23.  When Start > End the window wraps past midnight: [22, 2)
// matches hours 22, 23, 0 and 1.
type HourWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether the given hour of day falls inside the
// window, honouring midnight wrap-around.
func (w HourWindow) Contains(hour int) bool {
	if w.Start <= w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// PricingRule is an administrator-managed dynamic pricing rule.  A rule
// with SpotID nil is global and considered for every spot.  Empty
// PeakHours and empty DaysOfWeek each mean "no restriction"; a rule
// with both empty is a blanket multiplier.  All active matching rules
// stack multiplicatively; Priority orders the applied-rules report for
// display but has no effect on the numeric result.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – administrator-facing rule name.
//	Description – optional free-text description.
//	SpotID      – scoping parking spot; nil for global rules.
//	PeakHours   – hour-of-day windows the rule is limited to.
//	DaysOfWeek  – lowercase English weekday names the rule is limited to.
//	Multiplier  – price multiplier; ≥ 0, 1 means no change.
//	Priority    – display ordering, higher first.
//	IsActive    – inactive rules are never considered.
//	CreatedAt   – timestamp of creation.
//	UpdatedAt   – timestamp of last update.
type PricingRule struct {
	ID          uint64          // pricing_rules.id
	Name        string          // pricing_rules.name
	Description string          // pricing_rules.description
	SpotID      *uint64         // pricing_rules.spot_id (nullable)
	PeakHours   []HourWindow    // pricing_rules.peak_hours (JSON)
	DaysOfWeek  []string        // pricing_rules.days_of_week (JSON)
	Multiplier  decimal.Decimal // pricing_rules.multiplier
	Priority    int             // pricing_rules.priority
	IsActive    bool            // pricing_rules.is_active
	CreatedAt   time.Time       // pricing_rules.created_at
	UpdatedAt   time.Time       // pricing_rules.updated_at
}

// AppliesAt reports whether the rule matches the given weekday name and
// hour of day.  The weekday must be a lowercase English name as
// produced by the pricing clock.
func (r *PricingRule) AppliesAt(weekday string, hour int) bool {
	if len(r.DaysOfWeek) > 0 {
		found := false
		for _, d := range r.DaysOfWeek {
			if d == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(r.PeakHours) == 0 {
		return true
	}
	for _, w := range r.PeakHours {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}
