package reservation

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/pricing"
	"github.com/parksmart/parksmart-api/internal/qrtoken"
	"github.com/parksmart/parksmart-api/internal/queue"
	"github.com/parksmart/parksmart-api/internal/repository"
	"github.com/parksmart/parksmart-api/internal/wallet"
)

// ----- in-memory fakes -----

type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	items  map[uint64]model.Reservation
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[uint64]model.Reservation{}}
}

func (f *fakeStore) Create(ctx context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	res.ID = f.nextID
	f.items[res.ID] = *res
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.items[id]
	if !ok {
		return model.Reservation{}, sql.ErrNoRows
	}
	return res, nil
}

func (f *fakeStore) Update(ctx context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[res.ID]; !ok {
		return sql.ErrNoRows
	}
	f.items[res.ID] = *res
	return nil
}

func (f *fakeStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reservation{}
	for _, res := range f.items {
		if res.Status == model.ReservationPending && !now.Before(res.ExpiresAt) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkExpired(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.items[id]
	if !ok || res.Status != model.ReservationPending {
		return false, nil
	}
	res.Status = model.ReservationExpired
	f.items[id] = res
	return true, nil
}

type fakeSlots struct {
	mu    sync.Mutex
	items map[uint64]model.Slot
}

func (f *fakeSlots) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return model.Slot{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeSlots) Transition(ctx context.Context, id uint64, from, to model.SlotStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	if s.Status != from {
		return repository.ErrConflict
	}
	s.Status = to
	f.items[id] = s
	return nil
}

func (f *fakeSlots) Release(ctx context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok || s.Status == model.SlotEmpty {
		return false, nil
	}
	s.Status = model.SlotEmpty
	f.items[id] = s
	return true, nil
}

func (f *fakeSlots) status(id uint64) model.SlotStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

type fakeSpots struct {
	items map[uint64]model.ParkingSpot
}

func (f *fakeSpots) GetByID(ctx context.Context, id uint64) (model.ParkingSpot, error) {
	s, ok := f.items[id]
	if !ok {
		return model.ParkingSpot{}, sql.ErrNoRows
	}
	return s, nil
}

type walletOp struct {
	kind   string // debit, credit, points
	amount decimal.Decimal
	points int64
}

type fakeWallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
	points  int64
	ops     []walletOp
}

func (f *fakeWallet) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeWallet) Debit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance.LessThan(amount) {
		return model.User{}, model.Transaction{}, wallet.ErrInsufficientBalance
	}
	f.balance = f.balance.Sub(amount)
	f.ops = append(f.ops, walletOp{kind: "debit", amount: amount})
	return model.User{ID: userID, WalletBalance: f.balance}, model.Transaction{Amount: amount, BalanceAfter: f.balance}, nil
}

func (f *fakeWallet) Credit(ctx context.Context, userID uint64, amount decimal.Decimal, category string, ref model.TxReference, description string) (model.User, model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = f.balance.Add(amount)
	f.ops = append(f.ops, walletOp{kind: "credit", amount: amount})
	return model.User{ID: userID, WalletBalance: f.balance}, model.Transaction{Amount: amount, BalanceAfter: f.balance}, nil
}

func (f *fakeWallet) AddRewardPoints(ctx context.Context, userID uint64, points int64, ref model.TxReference) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points += points
	f.ops = append(f.ops, walletOp{kind: "points", points: points})
	return model.User{ID: userID, RewardPoints: f.points}, nil
}

type fakePricer struct {
	multiplier decimal.Decimal
}

func (f *fakePricer) Calculate(ctx context.Context, spotID uint64, startTime time.Time, durationHours float64, baseHourlyRate decimal.Decimal) (pricing.Quote, error) {
	mult := f.multiplier
	if mult.IsZero() {
		mult = decimal.NewFromInt(1)
	}
	final := baseHourlyRate.Mul(decimal.NewFromFloat(durationHours)).Mul(mult).Round(2)
	return pricing.Quote{
		BasePrice:       baseHourlyRate,
		DurationHours:   durationHours,
		TotalMultiplier: mult,
		FinalPrice:      final,
	}, nil
}

type fakeEvents struct {
	mu         sync.Mutex
	slotEvents []queue.SlotUpdatedEvent
	created    []queue.ReservationCreatedEvent
	cancelled  []queue.ReservationCancelledEvent
}

func (f *fakeEvents) SlotUpdated(ctx context.Context, ev queue.SlotUpdatedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotEvents = append(f.slotEvents, ev)
}

func (f *fakeEvents) ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, ev)
}

func (f *fakeEvents) ReservationCancelled(ctx context.Context, ev queue.ReservationCancelledEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, ev)
}

// ----- fixture -----

type fixture struct {
	svc    *Service
	store  *fakeStore
	slots  *fakeSlots
	wallet *fakeWallet
	events *fakeEvents
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	slots := &fakeSlots{items: map[uint64]model.Slot{
		1: {ID: 1, SpotID: 1, SlotNumber: "CP-1-1", Status: model.SlotEmpty},
	}}
	spots := &fakeSpots{items: map[uint64]model.ParkingSpot{
		1: {ID: 1, SpotNumber: "CP-1", PricePerHour: decimal.NewFromInt(50), IsAvailable: true},
	}}
	w := &fakeWallet{balance: decimal.NewFromInt(500)}
	events := &fakeEvents{}
	codec := qrtoken.NewCodec([]byte("test-key"))
	svc := NewService(store, slots, spots, w, &fakePricer{}, codec, events)

	fx := &fixture{svc: svc, store: store, slots: slots, wallet: w, events: events,
		now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return fx.now }
	return fx
}

func (fx *fixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

func (fx *fixture) create(t *testing.T) model.Reservation {
	t.Helper()
	res, _, err := fx.svc.Create(context.Background(), 7, 1, fx.now, 2)
	require.NoError(t, err)
	return res
}

// ----- tests -----

func TestCreateReservation(t *testing.T) {
	fx := newFixture(t)

	res, quote, err := fx.svc.Create(context.Background(), 7, 1, fx.now, 2)
	require.NoError(t, err)

	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, model.PaymentPending, res.PaymentStatus)
	assert.True(t, res.EstimatedPrice.Equal(decimal.NewFromInt(100)), "got %s", res.EstimatedPrice)
	assert.True(t, quote.FinalPrice.Equal(res.EstimatedPrice))
	assert.Equal(t, fx.now.Add(2*time.Hour), res.EndTime)
	assert.Equal(t, fx.now.Add(model.HoldTTL), res.ExpiresAt)
	assert.NotEmpty(t, res.QRToken)
	assert.Equal(t, model.SlotReserved, fx.slots.status(1))
	assert.Len(t, fx.events.created, 1)
	assert.Len(t, fx.events.slotEvents, 1)
	assert.Empty(t, fx.wallet.ops, "creation must not touch the wallet")
}

func TestCreateRejectsShortDuration(t *testing.T) {
	fx := newFixture(t)

	_, _, err := fx.svc.Create(context.Background(), 7, 1, fx.now, 0.25)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	fx := newFixture(t)
	fx.create(t)

	_, _, err := fx.svc.Create(context.Background(), 8, 1, fx.now, 1)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

// racingSlots reports the slot as empty but loses the claim, as when a
// concurrent request transitions the slot between the availability read
// and the compare-and-set.
type racingSlots struct {
	*fakeSlots
}

func (r *racingSlots) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	s, err := r.fakeSlots.GetByID(ctx, id)
	s.Status = model.SlotEmpty
	return s, err
}

func TestCreateLosesSlotRace(t *testing.T) {
	fx := newFixture(t)
	fx.slots.items[1] = model.Slot{ID: 1, SpotID: 1, SlotNumber: "CP-1-1", Status: model.SlotReserved}
	fx.svc.slots = &racingSlots{fakeSlots: fx.slots}

	_, _, err := fx.svc.Create(context.Background(), 7, 1, fx.now, 1)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, model.SlotReserved, fx.slots.status(1), "the winner's claim stays intact")
}

func TestCreateRejectsInsufficientBalance(t *testing.T) {
	fx := newFixture(t)
	fx.wallet.balance = decimal.NewFromInt(99)

	_, _, err := fx.svc.Create(context.Background(), 7, 1, fx.now, 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, model.SlotEmpty, fx.slots.status(1), "failed create must not hold the slot")
}

func TestCheckIn(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	got, err := fx.svc.CheckIn(context.Background(), 7, res.ID, false)
	require.NoError(t, err)

	assert.Equal(t, model.ReservationActive, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	require.NotNil(t, got.EntryTime)
	assert.Equal(t, model.SlotOccupied, fx.slots.status(1))
	assert.True(t, fx.wallet.balance.Equal(decimal.NewFromInt(400)), "got %s", fx.wallet.balance)
	assert.Equal(t, int64(RewardPoints), fx.wallet.points)
}

func TestCheckInRejectsOtherUser(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	_, err := fx.svc.CheckIn(context.Background(), 99, res.ID, false)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// An admin may check in on the user's behalf.
	_, err = fx.svc.CheckIn(context.Background(), 99, res.ID, true)
	assert.NoError(t, err)
}

func TestCheckInExpiredHold(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	fx.advance(model.HoldTTL + time.Minute)

	_, err := fx.svc.CheckIn(context.Background(), 7, res.ID, false)
	assert.ErrorIs(t, err, ErrHoldExpired)

	got, err := fx.store.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, model.SlotEmpty, fx.slots.status(1))
	assert.Empty(t, fx.wallet.ops)
}

func TestValidateEntry(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	got, err := fx.svc.ValidateEntry(context.Background(), res.QRToken)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, got.Status)
	require.NotNil(t, got.EntryTime)
	assert.Equal(t, model.SlotOccupied, fx.slots.status(1))
	// Payment stays deferred until exit on the QR path.
	assert.Equal(t, model.PaymentPending, got.PaymentStatus)

	_, err = fx.svc.ValidateEntry(context.Background(), res.QRToken)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestValidateEntryRejectsTamperedToken(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	otherCodec := qrtoken.NewCodec([]byte("attacker-key"))
	forged, err := otherCodec.Encode(qrtoken.Payload{ReservationID: res.ID, UserID: 7, Nonce: "x"})
	require.NoError(t, err)

	_, err = fx.svc.ValidateEntry(context.Background(), forged)
	assert.ErrorIs(t, err, qrtoken.ErrTampered)
}

func TestValidateExitOnTime(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	_, err := fx.svc.ValidateEntry(context.Background(), res.QRToken)
	require.NoError(t, err)

	fx.advance(90 * time.Minute) // within the 2 hour booking
	got, err := fx.svc.ValidateExit(context.Background(), res.QRToken)
	require.NoError(t, err)

	assert.Equal(t, model.ReservationCompleted, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	require.NotNil(t, got.FinalPrice)
	assert.True(t, got.FinalPrice.Equal(decimal.NewFromInt(100)), "no overstay, got %s", got.FinalPrice)
	assert.Equal(t, model.SlotEmpty, fx.slots.status(1))
	assert.True(t, fx.wallet.balance.Equal(decimal.NewFromInt(400)), "got %s", fx.wallet.balance)
}

func TestValidateExitOverstay(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	_, err := fx.svc.ValidateEntry(context.Background(), res.QRToken)
	require.NoError(t, err)

	// 3h10m inside a 2 hour booking bills ceil(3.17)=4 hours: the
	// estimated 100 plus 2 extra hours at the plain rate of 50.
	fx.advance(3*time.Hour + 10*time.Minute)
	got, err := fx.svc.ValidateExit(context.Background(), res.QRToken)
	require.NoError(t, err)

	require.NotNil(t, got.FinalPrice)
	assert.True(t, got.FinalPrice.Equal(decimal.NewFromInt(200)), "got %s", got.FinalPrice)
	assert.True(t, fx.wallet.balance.Equal(decimal.NewFromInt(300)), "got %s", fx.wallet.balance)
}

func TestValidateExitWithoutEntry(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	_, err := fx.svc.ValidateExit(context.Background(), res.QRToken)
	assert.ErrorIs(t, err, ErrNoEntryRecord)
}

func TestValidateExitTwice(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	_, err := fx.svc.ValidateEntry(context.Background(), res.QRToken)
	require.NoError(t, err)
	fx.advance(time.Hour)
	_, err = fx.svc.ValidateExit(context.Background(), res.QRToken)
	require.NoError(t, err)

	_, err = fx.svc.ValidateExit(context.Background(), res.QRToken)
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func TestCancelPendingNoRefund(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	got, err := fx.svc.Cancel(context.Background(), 7, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, got.Status)
	assert.Equal(t, model.PaymentPending, got.PaymentStatus, "nothing was paid, nothing to refund")
	assert.Equal(t, model.SlotEmpty, fx.slots.status(1))
	assert.Empty(t, fx.wallet.ops)
	require.Len(t, fx.events.cancelled, 1)
	assert.False(t, fx.events.cancelled[0].Refunded)
}

func TestCancelPaidRefunds(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	_, err := fx.svc.CheckIn(context.Background(), 7, res.ID, false)
	require.NoError(t, err)

	got, err := fx.svc.Cancel(context.Background(), 7, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, got.PaymentStatus)
	assert.True(t, fx.wallet.balance.Equal(decimal.NewFromInt(500)), "refund restores the balance, got %s", fx.wallet.balance)
	require.Len(t, fx.events.cancelled, 1)
	assert.True(t, fx.events.cancelled[0].Refunded)
}

func TestCancelRejectsOtherUser(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)

	_, err := fx.svc.Cancel(context.Background(), 99, res.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCancelRejectsTerminalState(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	_, err := fx.svc.ValidateEntry(context.Background(), res.QRToken)
	require.NoError(t, err)
	fx.advance(time.Hour)
	_, err = fx.svc.ValidateExit(context.Background(), res.QRToken)
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), 7, res.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExpireDue(t *testing.T) {
	fx := newFixture(t)
	res := fx.create(t)
	fx.advance(model.HoldTTL + time.Minute)

	n, err := fx.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := fx.store.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, model.SlotEmpty, fx.slots.status(1))

	// A second sweep finds nothing to do.
	n, err = fx.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpireDueLeavesFreshHolds(t *testing.T) {
	fx := newFixture(t)
	fx.create(t)

	n, err := fx.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, model.SlotReserved, fx.slots.status(1))
}
