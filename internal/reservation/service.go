// Package reservation orchestrates the reservation lifecycle: claiming
// a slot, pricing the booking, settling payment through the wallet
// ledger and releasing the slot at checkout, cancellation or expiry.
// The service operates on plain identifiers and returns data; it never
// reaches into request contexts, and event delivery is delegated to an
// EventSink collaborator.
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/pricing"
	"github.com/parksmart/parksmart-api/internal/qrtoken"
	"github.com/parksmart/parksmart-api/internal/queue"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/wallet"
)

var (
	// ErrSlotNotAvailable is returned when the requested slot is not
	// empty, including when a concurrent request claimed it first.
	ErrSlotNotAvailable = errors.New("slot is not available")
	// ErrInsufficientFunds is returned when the wallet cannot cover
	// the estimated or final price.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	// ErrInvalidDuration is returned when the requested duration is
	// below the 30 minute minimum.
	ErrInvalidDuration = errors.New("duration must be at least 0.5 hours")
	// ErrNotAuthorized is returned on cross-user access to a
	// reservation.
	ErrNotAuthorized = errors.New("not authorized for this reservation")
	// ErrInvalidState is returned when the reservation's lifecycle
	// state does not allow the requested operation.
	ErrInvalidState = errors.New("reservation state does not allow this operation")
	// ErrHoldExpired is returned when a pending reservation ran past
	// its check-in deadline; the slot is released as a side effect.
	ErrHoldExpired = errors.New("reservation hold has expired")
	// ErrAlreadyCheckedIn is returned on a second entry attempt.
	ErrAlreadyCheckedIn = errors.New("already checked in")
	// ErrAlreadyCheckedOut is returned on a second exit attempt.
	ErrAlreadyCheckedOut = errors.New("already checked out")
	// ErrNoEntryRecord is returned when exit is attempted without a
	// prior entry.
	ErrNoEntryRecord = errors.New("no entry record found")
	// ErrQRUserMismatch is returned when a scanned token's user does
	// not own the reservation it references.
	ErrQRUserMismatch = errors.New("qr token does not match reservation user")
)

// RewardPoints is the fixed bonus granted when a booking is paid.
const RewardPoints = 5

// Store is the reservation persistence consumed by the service.
// Satisfied by repository.ReservationRepo.
type Store interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	Update(ctx context.Context, res *model.Reservation) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
	MarkExpired(ctx context.Context, id uint64) (bool, error)
}

// SlotStore is the slot persistence consumed by the service.
// Transition must be a compare-and-set on the current status so that
// concurrent claims of the same slot serialize at the storage layer.
// Satisfied by repository.SlotRepo.
type SlotStore interface {
	GetByID(ctx context.Context, id uint64) (model.Slot, error)
	Transition(ctx context.Context, id uint64, from, to model.SlotStatus) error
	Release(ctx context.Context, id uint64) (bool, error)
}

// SpotStore resolves the parking spot a slot belongs to, for base
// rates.  Satisfied by repository.SpotRepo.
type SpotStore interface {
	GetByID(ctx context.Context, id uint64) (model.ParkingSpot, error)
}

// Wallet is the ledger surface the lifecycle needs.  Satisfied by
// wallet.Ledger.
type Wallet interface {
	Balance(ctx context.Context, userID uint64) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error)
	Credit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error)
	AddRewardPoints(ctx context.Context, userID uint64, points int64, ref model.TxReference) (model.User, error)
}

// Pricer computes booking quotes.  Satisfied by pricing.Engine.
type Pricer interface {
	Calculate(ctx context.Context, spotID uint64, startTime time.Time, durationHours float64, baseHourlyRate decimal.Decimal) (pricing.Quote, error)
}

// EventSink receives domain events.  Delivery is fire-and-forget; the
// sink must never block the calling operation on broker availability.
// Satisfied by queue_publisher.Publisher.
type EventSink interface {
	SlotUpdated(ctx context.Context, ev queue.SlotUpdatedEvent)
	ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent)
	ReservationCancelled(ctx context.Context, ev queue.ReservationCancelledEvent)
}

// Service implements the reservation lifecycle.
type Service struct {
	store  Store
	slots  SlotStore
	spots  SpotStore
	wallet Wallet
	pricer Pricer
	codec  *qrtoken.Codec
	events EventSink
	now    func() time.Time
}

// NewService wires a Service from its collaborators.
func NewService(store Store, slots SlotStore, spots SpotStore, w Wallet, pricer Pricer, codec *qrtoken.Codec, events EventSink) *Service {
	return &Service{
		store:  store,
		slots:  slots,
		spots:  spots,
		wallet: w,
		pricer: pricer,
		codec:  codec,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create places a pending reservation on a slot.  The wallet is only
// checked, not debited: payment settles at check-in or exit.  The slot
// claim is a compare-and-set, so of two concurrent creates against the
// same slot exactly one succeeds; the loser gets ErrSlotNotAvailable.
func (s *Service) Create(ctx context.Context, userID, slotID uint64, startTime time.Time, durationHours float64) (model.Reservation, pricing.Quote, error) {
	if durationHours < model.MinDurationHours {
		return model.Reservation{}, pricing.Quote{}, ErrInvalidDuration
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return model.Reservation{}, pricing.Quote{}, err
	}
	if slot.Status != model.SlotEmpty {
		return model.Reservation{}, pricing.Quote{}, ErrSlotNotAvailable
	}
	spot, err := s.spots.GetByID(ctx, slot.SpotID)
	if err != nil {
		return model.Reservation{}, pricing.Quote{}, err
	}
	if !spot.IsAvailable {
		return model.Reservation{}, pricing.Quote{}, ErrSlotNotAvailable
	}

	quote, err := s.pricer.Calculate(ctx, spot.ID, startTime, durationHours, spot.PricePerHour)
	if err != nil {
		return model.Reservation{}, pricing.Quote{}, err
	}

	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return model.Reservation{}, pricing.Quote{}, err
	}
	if balance.LessThan(quote.FinalPrice) {
		return model.Reservation{}, pricing.Quote{}, ErrInsufficientFunds
	}

	// Claim the slot before writing the reservation.  If anything
	// after this point fails, the claim is released; a reservation row
	// orphaned between the two writes is swept by expiry handling.
	if err := s.slots.Transition(ctx, slotID, model.SlotEmpty, model.SlotReserved); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Reservation{}, pricing.Quote{}, ErrSlotNotAvailable
		}
		return model.Reservation{}, pricing.Quote{}, err
	}

	now := s.now()
	res := model.Reservation{
		UserID:         userID,
		SlotID:         slotID,
		SpotID:         spot.ID,
		StartTime:      startTime.UTC(),
		DurationHours:  durationHours,
		EndTime:        startTime.UTC().Add(time.Duration(durationHours * float64(time.Hour))),
		Status:         model.ReservationPending,
		ExpiresAt:      now.Add(model.HoldTTL),
		EstimatedPrice: quote.FinalPrice,
		PaymentStatus:  model.PaymentPending,
	}
	if err := s.store.Create(ctx, &res); err != nil {
		s.releaseSlot(ctx, slotID, spot.ID)
		return model.Reservation{}, pricing.Quote{}, err
	}

	token, err := s.codec.Encode(qrtoken.Payload{
		ReservationID: res.ID,
		UserID:        userID,
		SlotNumber:    slot.SlotNumber,
		Nonce:         uuid.NewString(),
		IssuedAt:      now.Unix(),
	})
	if err != nil {
		s.releaseSlot(ctx, slotID, spot.ID)
		return model.Reservation{}, pricing.Quote{}, err
	}
	res.QRToken = token
	if err := s.store.Update(ctx, &res); err != nil {
		s.releaseSlot(ctx, slotID, spot.ID)
		return model.Reservation{}, pricing.Quote{}, err
	}

	s.events.SlotUpdated(ctx, queue.SlotUpdatedEvent{
		SlotID: slotID, SpotID: spot.ID,
		Status: string(model.SlotReserved), UpdatedAt: now.Format(time.RFC3339),
	})
	s.events.ReservationCreated(ctx, queue.ReservationCreatedEvent{
		ReservationID:  res.ID,
		UserID:         userID,
		SlotID:         slotID,
		SpotID:         spot.ID,
		StartTime:      res.StartTime.Format(time.RFC3339),
		EndTime:        res.EndTime.Format(time.RFC3339),
		EstimatedPrice: res.EstimatedPrice,
		ExpiresAt:      res.ExpiresAt.Format(time.RFC3339),
	})
	return res, quote, nil
}

// CheckIn converts a pending reservation into an active one without a
// QR scan: the wallet is debited for the estimated price, reward
// points are granted and the slot becomes occupied.  Only the owner
// (or an administrator acting for them) may check in.
func (s *Service) CheckIn(ctx context.Context, userID, reservationID uint64, asAdmin bool) (model.Reservation, error) {
	res, err := s.store.GetByID(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.UserID != userID && !asAdmin {
		return model.Reservation{}, ErrNotAuthorized
	}
	if res.Status != model.ReservationPending {
		return model.Reservation{}, ErrInvalidState
	}
	if res.HoldExpired(s.now()) {
		s.expireOne(ctx, &res)
		return model.Reservation{}, ErrHoldExpired
	}

	ref := model.TxReference{Type: "reservation", ID: res.ID}
	if _, _, err := s.wallet.Debit(ctx, res.UserID, res.EstimatedPrice, model.CategoryPayment, ref, "Payment for parking reservation"); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return model.Reservation{}, ErrInsufficientFunds
		}
		return model.Reservation{}, err
	}
	if _, err := s.wallet.AddRewardPoints(ctx, res.UserID, RewardPoints, ref); err != nil {
		log.Printf("reservation: reward points grant failed for user %d: %v", res.UserID, err)
	}

	now := s.now()
	res.Status = model.ReservationActive
	res.EntryTime = &now
	res.PaymentStatus = model.PaymentPaid
	if err := s.store.Update(ctx, &res); err != nil {
		return model.Reservation{}, err
	}
	s.occupySlot(ctx, res.SlotID, res.SpotID)
	return res, nil
}

// ValidateEntry processes an entry QR scan.  The token is verified and
// cross-checked against the reservation's owner, entry is recorded
// once, and the slot becomes occupied.  Payment stays deferred to exit
// on this path.
func (s *Service) ValidateEntry(ctx context.Context, token string) (model.Reservation, error) {
	payload, err := s.codec.Decode(token)
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := s.store.GetByID(ctx, payload.ReservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.UserID != payload.UserID {
		return model.Reservation{}, ErrQRUserMismatch
	}
	if res.EntryTime != nil {
		return model.Reservation{}, ErrAlreadyCheckedIn
	}
	if res.Status != model.ReservationPending && res.Status != model.ReservationActive {
		return model.Reservation{}, ErrInvalidState
	}
	if res.HoldExpired(s.now()) {
		s.expireOne(ctx, &res)
		return model.Reservation{}, ErrHoldExpired
	}

	now := s.now()
	res.EntryTime = &now
	res.Status = model.ReservationActive
	if err := s.store.Update(ctx, &res); err != nil {
		return model.Reservation{}, err
	}
	s.occupySlot(ctx, res.SlotID, res.SpotID)
	return res, nil
}

// ValidateExit processes an exit QR scan: it settles the final price
// (recomputed for overstay at the spot's plain hourly rate), debits
// the wallet if payment was deferred, completes the reservation and
// frees the slot.
func (s *Service) ValidateExit(ctx context.Context, token string) (model.Reservation, error) {
	payload, err := s.codec.Decode(token)
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := s.store.GetByID(ctx, payload.ReservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.ExitTime != nil {
		return model.Reservation{}, ErrAlreadyCheckedOut
	}
	if res.EntryTime == nil {
		return model.Reservation{}, ErrNoEntryRecord
	}

	exit := s.now()
	hoursSpent := math.Ceil(exit.Sub(*res.EntryTime).Hours())
	if hoursSpent < 1 {
		hoursSpent = 1
	}

	finalPrice := res.EstimatedPrice
	if hoursSpent > res.DurationHours {
		spot, err := s.spots.GetByID(ctx, res.SpotID)
		if err != nil {
			return model.Reservation{}, err
		}
		extra := decimal.NewFromFloat(hoursSpent - res.DurationHours).Mul(spot.PricePerHour)
		finalPrice = finalPrice.Add(extra).Round(2)
	}

	if res.PaymentStatus != model.PaymentPaid {
		ref := model.TxReference{Type: "reservation", ID: res.ID}
		desc := fmt.Sprintf("Payment for parking (%.0f hours)", hoursSpent)
		if _, _, err := s.wallet.Debit(ctx, res.UserID, finalPrice, model.CategoryPayment, ref, desc); err != nil {
			if errors.Is(err, wallet.ErrInsufficientBalance) {
				return model.Reservation{}, ErrInsufficientFunds
			}
			return model.Reservation{}, err
		}
		if _, err := s.wallet.AddRewardPoints(ctx, res.UserID, RewardPoints, ref); err != nil {
			log.Printf("reservation: reward points grant failed for user %d: %v", res.UserID, err)
		}
	}

	res.ExitTime = &exit
	res.FinalPrice = &finalPrice
	res.Status = model.ReservationCompleted
	res.PaymentStatus = model.PaymentPaid
	if err := s.store.Update(ctx, &res); err != nil {
		return model.Reservation{}, err
	}
	s.releaseSlot(ctx, res.SlotID, res.SpotID)
	return res, nil
}

// Cancel cancels a pending or active reservation on behalf of its
// owner, refunding the estimated price when it was already paid and
// releasing the slot regardless of its current status.
func (s *Service) Cancel(ctx context.Context, userID, reservationID uint64) (model.Reservation, error) {
	res, err := s.store.GetByID(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.UserID != userID {
		return model.Reservation{}, ErrNotAuthorized
	}
	if !res.Cancellable() {
		return model.Reservation{}, ErrInvalidState
	}

	refunded := false
	if res.PaymentStatus == model.PaymentPaid {
		ref := model.TxReference{Type: "reservation", ID: res.ID}
		if _, _, err := s.wallet.Credit(ctx, res.UserID, res.EstimatedPrice, model.CategoryRefund, ref, "Refund for cancelled reservation"); err != nil {
			return model.Reservation{}, err
		}
		res.PaymentStatus = model.PaymentRefunded
		refunded = true
	}

	res.Status = model.ReservationCancelled
	if err := s.store.Update(ctx, &res); err != nil {
		return model.Reservation{}, err
	}
	s.releaseSlot(ctx, res.SlotID, res.SpotID)
	s.events.ReservationCancelled(ctx, queue.ReservationCancelledEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		SlotID:        res.SlotID,
		Refunded:      refunded,
		RefundAmount:  res.EstimatedPrice,
		CancelledAt:   s.now().Format(time.RFC3339),
	})
	return res, nil
}

// ExpireDue releases every pending reservation whose hold deadline has
// passed and returns how many were expired.  The sweep is idempotent:
// concurrent observers racing on the same reservation agree via the
// conditional MarkExpired, and releasing an already-empty slot is a
// no-op.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.store.ListExpiredPending(ctx, s.now(), 100)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range due {
		if s.expireOne(ctx, &due[i]) {
			expired++
		}
	}
	return expired, nil
}

// expireOne marks a single pending reservation expired and releases
// its slot.  Returns whether this observer performed the expiry.
func (s *Service) expireOne(ctx context.Context, res *model.Reservation) bool {
	changed, err := s.store.MarkExpired(ctx, res.ID)
	if err != nil {
		log.Printf("reservation: expire %d failed: %v", res.ID, err)
		return false
	}
	if changed {
		s.releaseSlot(ctx, res.SlotID, res.SpotID)
	}
	return changed
}

// occupySlot moves a slot from reserved to occupied and emits the
// update.  A CAS conflict means another path already transitioned the
// slot; that is treated as done rather than an error.
func (s *Service) occupySlot(ctx context.Context, slotID, spotID uint64) {
	err := s.slots.Transition(ctx, slotID, model.SlotReserved, model.SlotOccupied)
	if err != nil && !errors.Is(err, repository.ErrConflict) && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("reservation: slot %d occupy failed: %v", slotID, err)
		return
	}
	if err == nil {
		s.events.SlotUpdated(ctx, queue.SlotUpdatedEvent{
			SlotID: slotID, SpotID: spotID,
			Status: string(model.SlotOccupied), UpdatedAt: s.now().Format(time.RFC3339),
		})
	}
}

// releaseSlot frees a slot back to empty (idempotent) and emits the
// update when a change was made.
func (s *Service) releaseSlot(ctx context.Context, slotID, spotID uint64) {
	changed, err := s.slots.Release(ctx, slotID)
	if err != nil {
		log.Printf("reservation: slot %d release failed: %v", slotID, err)
		return
	}
	if changed {
		s.events.SlotUpdated(ctx, queue.SlotUpdatedEvent{
			SlotID: slotID, SpotID: spotID,
			Status: string(model.SlotEmpty), UpdatedAt: s.now().Format(time.RFC3339),
		})
	}
}
