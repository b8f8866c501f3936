package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/middleware"
	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/wallet"
)

// WalletHandler serves the caller's wallet: balance, top-ups, ledger
// history and reward point conversion.
type WalletHandler struct {
	Ledger *wallet.Ledger
	Txs    *repository.TransactionRepo
}

func NewWalletHandler(ledger *wallet.Ledger, txs *repository.TransactionRepo) *WalletHandler {
	return &WalletHandler{Ledger: ledger, Txs: txs}
}

// Info returns the wallet balance, reward points and their currency
// value.
func (h *WalletHandler) Info(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	info, err := h.Ledger.Info(ctx, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

type topUpReq struct {
	Amount string `json:"amount" validate:"required"`
}

// TopUp credits the caller's wallet.  Payment capture happens outside
// this API; the endpoint records the credit and its ledger entry.
func (h *WalletHandler) TopUp(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req topUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a decimal"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, entry, err := h.Ledger.Credit(ctx, uid, amount, model.CategoryWalletTopup, model.TxReference{}, "Wallet top-up")
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wallet_balance": user.WalletBalance,
		"transaction":    renderTransaction(entry),
	})
}

// Transactions returns the caller's ledger entries newest first.  The
// optional ?limit= caps the page (default 50).
func (h *WalletHandler) Transactions(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be 1-500"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Txs.ListByUser(ctx, uid, limit)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]transactionResp, 0, len(list))
	for _, t := range list {
		out = append(out, renderTransaction(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": out})
}

type convertPointsReq struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

// ConvertPoints exchanges reward points for wallet balance at 10
// points per currency unit.
func (h *WalletHandler) ConvertPoints(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req convertPointsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, entry, err := h.Ledger.ConvertPoints(ctx, uid, req.Points)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wallet_balance": user.WalletBalance,
		"reward_points":  user.RewardPoints,
		"transaction":    renderTransaction(entry),
	})
}
