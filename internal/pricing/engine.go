// Package pricing implements the dynamic pricing engine.  The final
// price of a booking is the spot's base hourly rate times the duration,
// scaled by the product of the multipliers of every active rule that
// matches the booking's start time.  Matching rules stack
// multiplicatively rather than additively so independent promotions and
// surcharges compose without special cases.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
)

// ErrCalculation is returned when the rule store cannot be read.  A
// spot with genuinely zero rules is not a failure; it simply prices at
// multiplier 1.
var ErrCalculation = errors.New("price calculation failed")

// RuleSource supplies the active rules considered for a spot: rules
// scoped to that spot plus global rules, ordered by priority
// descending.  Satisfied by repository.PricingRuleRepo.
type RuleSource interface {
	ActiveForSpot(ctx context.Context, spotID uint64) ([]model.PricingRule, error)
}

// AppliedRule reports one rule that contributed to a quote.
type AppliedRule struct {
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Quote is the result of a price calculation.  AppliedRules preserves
// the rule store's priority ordering; the ordering is informational
// only, since multiplication is order-independent.
type Quote struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	DurationHours   float64         `json:"duration_hours"`
	TotalMultiplier decimal.Decimal `json:"total_multiplier"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	AppliedRules    []AppliedRule   `json:"applied_rules"`
	IsPeakHour      bool            `json:"is_peak_hour"`
}

// Engine computes booking prices from the rule store and the facility
// clock.
type Engine struct {
	rules RuleSource
	clock Clock
}

// NewEngine returns an Engine reading rules from the given source and
// deriving calendar inputs in the given facility timezone.
func NewEngine(rules RuleSource, loc *time.Location) *Engine {
	return &Engine{rules: rules, clock: NewClock(loc)}
}

// Calculate prices a booking of durationHours starting at startTime on
// the given spot at the given base hourly rate.  A rule applies when
// its weekday set is empty or contains the start weekday, and its
// peak-hour list is empty or covers the start hour (windows may wrap
// past midnight).  The final price is rounded to 2 decimal places.
func (e *Engine) Calculate(ctx context.Context, spotID uint64, startTime time.Time, durationHours float64, baseHourlyRate decimal.Decimal) (Quote, error) {
	rules, err := e.rules.ActiveForSpot(ctx, spotID)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrCalculation, err)
	}

	hour := e.clock.HourOfDay(startTime)
	weekday := e.clock.Weekday(startTime)

	multiplier := decimal.NewFromInt(1)
	applied := make([]AppliedRule, 0)
	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesAt(weekday, hour) {
			continue
		}
		multiplier = multiplier.Mul(rule.Multiplier)
		applied = append(applied, AppliedRule{Name: rule.Name, Multiplier: rule.Multiplier})
	}

	duration := decimal.NewFromFloat(durationHours)
	finalPrice := baseHourlyRate.Mul(duration).Mul(multiplier).Round(2)

	return Quote{
		BasePrice:       baseHourlyRate,
		DurationHours:   durationHours,
		TotalMultiplier: multiplier,
		FinalPrice:      finalPrice,
		AppliedRules:    applied,
		IsPeakHour:      multiplier.GreaterThan(decimal.NewFromInt(1)),
	}, nil
}
