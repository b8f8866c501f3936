package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/pricing"
	"github.com/parksmart/parksmart-api/internal/repository"
)

// PricingHandler serves the admin rule CRUD and the public price
// preview.  The preview runs the same engine as reservation creation,
// so a quoted price is exactly what a booking at that instant would
// cost.
type PricingHandler struct {
	Rules  *repository.PricingRuleRepo
	Spots  *repository.SpotRepo
	Engine *pricing.Engine
}

func NewPricingHandler(rules *repository.PricingRuleRepo, spots *repository.SpotRepo, engine *pricing.Engine) *PricingHandler {
	return &PricingHandler{Rules: rules, Spots: spots, Engine: engine}
}

type ruleReq struct {
	Name        string             `json:"name" validate:"required,max=100"`
	Description string             `json:"description" validate:"max=255"`
	SpotID      *uint64            `json:"spot_id"`
	PeakHours   []model.HourWindow `json:"peak_hours"`
	DaysOfWeek  []string           `json:"days_of_week"`
	Multiplier  string             `json:"multiplier" validate:"required"`
	Priority    int                `json:"priority"`
	IsActive    *bool              `json:"is_active"`
}

func (req *ruleReq) toModel() (model.PricingRule, string) {
	mult, err := decimal.NewFromString(req.Multiplier)
	if err != nil || mult.IsNegative() {
		return model.PricingRule{}, "multiplier must be a non-negative decimal"
	}
	for _, w := range req.PeakHours {
		if w.Start < 0 || w.Start > 23 || w.End < 0 || w.End > 23 {
			return model.PricingRule{}, "peak hours must be within 0-23"
		}
	}
	valid := map[string]bool{
		"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
		"friday": true, "saturday": true, "sunday": true,
	}
	for _, d := range req.DaysOfWeek {
		if !valid[d] {
			return model.PricingRule{}, "days_of_week must be lowercase weekday names"
		}
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.PricingRule{
		Name:        req.Name,
		Description: req.Description,
		SpotID:      req.SpotID,
		PeakHours:   req.PeakHours,
		DaysOfWeek:  req.DaysOfWeek,
		Multiplier:  mult,
		Priority:    req.Priority,
		IsActive:    active,
	}, ""
}

// CreateRule adds a pricing rule.
func (h *PricingHandler) CreateRule(c echo.Context) error {
	var req ruleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rule, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rules.Create(ctx, &rule); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"rule": renderRule(rule)})
}

// UpdateRule overwrites an existing rule's editable fields.
func (h *PricingHandler) UpdateRule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	var req ruleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rule, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	rule.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rules.Update(ctx, &rule); err != nil {
		return serviceError(c, err)
	}
	got, err := h.Rules.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rule": renderRule(got)})
}

// DeleteRule removes a rule.
func (h *PricingHandler) DeleteRule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rules.Delete(ctx, id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRules returns every rule ordered by priority for the admin UI.
func (h *PricingHandler) ListRules(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rules, err := h.Rules.List(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]ruleResp, 0, len(rules))
	for _, r := range rules {
		out = append(out, renderRule(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rules": out})
}

type calculateReq struct {
	SpotID        uint64  `json:"spot_id" validate:"required"`
	StartTime     string  `json:"start_time" validate:"required"`
	DurationHours float64 `json:"duration_hours" validate:"required,gt=0"`
}

// Calculate previews the price of a hypothetical booking without
// creating anything.
func (h *PricingHandler) Calculate(c echo.Context) error {
	var req calculateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
	}
	if req.DurationHours < model.MinDurationHours {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration must be at least 0.5 hours"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spot, err := h.Spots.GetByID(ctx, req.SpotID)
	if err != nil {
		return serviceError(c, err)
	}
	quote, err := h.Engine.Calculate(ctx, spot.ID, start, req.DurationHours, spot.PricePerHour)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"quote": quote})
}
