package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
)

// SpotHandler serves the parking spot catalog.  Listing and reading
// are open to every authenticated user; creation is admin-only and
// enforced at the router.
type SpotHandler struct {
	Spots *repository.SpotRepo
	Slots *repository.SlotRepo
}

func NewSpotHandler(spots *repository.SpotRepo, slots *repository.SlotRepo) *SpotHandler {
	return &SpotHandler{Spots: spots, Slots: slots}
}

type createSpotReq struct {
	SpotNumber   string `json:"spot_number" validate:"required,max=50"`
	LocationName string `json:"location_name" validate:"required,max=100"`
	Address      string `json:"address" validate:"required,max=255"`
	PricePerHour string `json:"price_per_hour" validate:"required"`
	SlotCount    int    `json:"slot_count" validate:"min=0,max=500"`
	Floor        string `json:"floor"`
	SlotType     string `json:"slot_type"`
}

// Create registers a parking spot, optionally pre-creating a number of
// empty slots labelled <spot_number>-1..n.
func (h *SpotHandler) Create(c echo.Context) error {
	var req createSpotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rate, err := decimal.NewFromString(req.PricePerHour)
	if err != nil || rate.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_per_hour must be a non-negative decimal"})
	}
	slotType := req.SlotType
	if slotType == "" {
		slotType = "regular"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	spot := model.ParkingSpot{
		SpotNumber:   req.SpotNumber,
		LocationName: req.LocationName,
		Address:      req.Address,
		PricePerHour: rate,
		IsAvailable:  true,
	}
	if err := h.Spots.Create(ctx, &spot); err != nil {
		return serviceError(c, err)
	}

	slots := make([]slotResp, 0, req.SlotCount)
	for i := 1; i <= req.SlotCount; i++ {
		s := model.Slot{
			SpotID:     spot.ID,
			SlotNumber: spot.SpotNumber + "-" + strconv.Itoa(i),
			Floor:      req.Floor,
			SlotType:   slotType,
		}
		if err := h.Slots.Create(ctx, &s); err != nil {
			return serviceError(c, err)
		}
		slots = append(slots, renderSlot(s))
	}
	return c.JSON(http.StatusCreated, echo.Map{"spot": renderSpot(spot), "slots": slots})
}

// List returns every parking spot.
func (h *SpotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spots, err := h.Spots.List(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]spotResp, 0, len(spots))
	for _, s := range spots {
		out = append(out, renderSpot(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"spots": out})
}

// Get returns one parking spot with its slots.
func (h *SpotHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spot, err := h.Spots.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	slots, err := h.Slots.ListBySpot(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]slotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, renderSlot(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"spot": renderSpot(spot), "slots": out})
}
