package wallet

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksmart/parksmart-api/internal/model"
	"github.com/parksmart/parksmart-api/internal/repository"
)

// fakeStore keeps users and ledger entries in memory.  Begin snapshots
// the state; Rollback restores it, so the atomicity of each ledger
// operation is observable from tests.
type fakeStore struct {
	users     map[uint64]model.User
	entries   []model.Transaction
	nextID    uint64
	commits   int
	rollbacks int
}

func newFakeStore(users ...model.User) *fakeStore {
	s := &fakeStore{users: map[uint64]model.User{}, nextID: 1}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

type fakeTx struct {
	store     *fakeStore
	userSnap  map[uint64]model.User
	entrySnap int
	done      bool
}

func (s *fakeStore) Begin(context.Context) (Tx, error) {
	snap := make(map[uint64]model.User, len(s.users))
	for id, u := range s.users {
		snap[id] = u
	}
	return &fakeTx{store: s, userSnap: snap, entrySnap: len(s.entries)}, nil
}

func (t *fakeTx) Commit() error {
	t.done = true
	t.store.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.users = t.userSnap
	t.store.entries = t.store.entries[:t.entrySnap]
	t.store.rollbacks++
	return nil
}

func (s *fakeStore) User(_ context.Context, userID uint64) (model.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeStore) UserTx(ctx context.Context, _ Tx, userID uint64) (model.User, error) {
	return s.User(ctx, userID)
}

func (s *fakeStore) DebitWallet(_ context.Context, _ Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := s.users[userID]
	if !ok {
		return decimal.Zero, sql.ErrNoRows
	}
	if u.WalletBalance.LessThan(amount) {
		return decimal.Zero, repository.ErrConflict
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	s.users[userID] = u
	return u.WalletBalance, nil
}

func (s *fakeStore) CreditWallet(_ context.Context, _ Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := s.users[userID]
	if !ok {
		return decimal.Zero, sql.ErrNoRows
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	s.users[userID] = u
	return u.WalletBalance, nil
}

func (s *fakeStore) AddPoints(_ context.Context, _ Tx, userID uint64, points int64) error {
	u, ok := s.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if u.RewardPoints+points < 0 {
		return repository.ErrConflict
	}
	u.RewardPoints += points
	s.users[userID] = u
	return nil
}

func (s *fakeStore) Append(_ context.Context, _ Tx, entry *model.Transaction) error {
	entry.ID = s.nextID
	s.nextID++
	entry.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, *entry)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Validation failures are rejected before any store access, so a
// nil-store ledger is enough to exercise them.

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	l := NewLedger(nil)

	_, _, err := l.Debit(context.Background(), 1, decimal.Zero, model.CategoryPayment, model.TxReference{}, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = l.Debit(context.Background(), 1, decimal.NewFromInt(-5), model.CategoryPayment, model.TxReference{}, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	l := NewLedger(nil)

	_, _, err := l.Credit(context.Background(), 1, decimal.Zero, model.CategoryRefund, model.TxReference{}, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAddRewardPointsRejectsNonPositive(t *testing.T) {
	l := NewLedger(nil)

	_, err := l.AddRewardPoints(context.Background(), 1, 0, model.TxReference{})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.AddRewardPoints(context.Background(), 1, -10, model.TxReference{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConvertPointsValidation(t *testing.T) {
	l := NewLedger(nil)

	for _, points := range []int64{0, -10, 5, 15, 99} {
		_, _, err := l.ConvertPoints(context.Background(), 1, points)
		assert.ErrorIs(t, err, ErrInvalidPointsAmount, "points=%d", points)
	}
}

func TestDebitAppendsMatchingEntry(t *testing.T) {
	store := newFakeStore(model.User{ID: 7, WalletBalance: dec("100")})
	l := NewLedger(store)

	ref := model.TxReference{Type: "reservation", ID: 42}
	user, entry, err := l.Debit(context.Background(), 7, dec("30"), model.CategoryPayment, ref, "")
	require.NoError(t, err)

	assert.True(t, user.WalletBalance.Equal(dec("70")), "got %s", user.WalletBalance)
	assert.Equal(t, model.TxDebit, entry.Type)
	assert.True(t, entry.Amount.Equal(dec("30")))
	assert.True(t, entry.BalanceAfter.Equal(dec("70")), "got %s", entry.BalanceAfter)
	assert.Equal(t, ref, entry.Reference)

	require.Len(t, store.entries, 1)
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, 0, store.rollbacks)
}

func TestDebitNeverDrivesBalanceNegative(t *testing.T) {
	store := newFakeStore(model.User{ID: 7, WalletBalance: dec("10")})
	l := NewLedger(store)

	_, _, err := l.Debit(context.Background(), 7, dec("30"), model.CategoryPayment, model.TxReference{}, "")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// No partial state: balance untouched, nothing appended.
	assert.True(t, store.users[7].WalletBalance.Equal(dec("10")))
	assert.Empty(t, store.entries)
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 1, store.rollbacks)
}

func TestDebitUnknownUser(t *testing.T) {
	l := NewLedger(newFakeStore())

	_, _, err := l.Debit(context.Background(), 99, dec("5"), model.CategoryPayment, model.TxReference{}, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// Replaying a user's entries in order must reproduce the current
// balance, and every entry's BalanceAfter must match the running total
// at the point it was written.
func TestLedgerReplayReproducesBalance(t *testing.T) {
	store := newFakeStore(model.User{ID: 3, RewardPoints: 30})
	l := NewLedger(store)
	ctx := context.Background()

	_, _, err := l.Credit(ctx, 3, dec("100"), model.CategoryWalletTopup, model.TxReference{}, "")
	require.NoError(t, err)
	_, _, err = l.Debit(ctx, 3, dec("35"), model.CategoryPayment, model.TxReference{Type: "reservation", ID: 1}, "")
	require.NoError(t, err)
	_, _, err = l.ConvertPoints(ctx, 3, 30)
	require.NoError(t, err)
	_, _, err = l.Debit(ctx, 3, dec("8"), model.CategoryPayment, model.TxReference{Type: "reservation", ID: 2}, "")
	require.NoError(t, err)

	running := decimal.Zero
	for _, e := range store.entries {
		switch e.Type {
		case model.TxCredit:
			running = running.Add(e.Amount)
		case model.TxDebit:
			running = running.Sub(e.Amount)
		}
		assert.True(t, e.BalanceAfter.Equal(running), "entry %d: balance_after %s, replay %s", e.ID, e.BalanceAfter, running)
	}
	assert.True(t, store.users[3].WalletBalance.Equal(running), "stored %s, replay %s", store.users[3].WalletBalance, running)
	assert.True(t, running.Equal(dec("60")))
}

func TestConvertPointsCreditsAtFixedRate(t *testing.T) {
	store := newFakeStore(model.User{ID: 5, WalletBalance: dec("5"), RewardPoints: 25})
	l := NewLedger(store)

	user, entry, err := l.ConvertPoints(context.Background(), 5, 10)
	require.NoError(t, err)

	// 10 points buy exactly one currency unit.
	assert.True(t, user.WalletBalance.Equal(dec("6")), "got %s", user.WalletBalance)
	assert.Equal(t, int64(15), user.RewardPoints)

	require.Len(t, store.entries, 1)
	assert.Equal(t, model.TxCredit, entry.Type)
	assert.True(t, entry.Amount.Equal(dec("1")), "got %s", entry.Amount)
	assert.Equal(t, model.CategoryPointsConversion, entry.Category)
	assert.True(t, entry.BalanceAfter.Equal(dec("6")))
}

func TestConvertPointsInsufficientPoints(t *testing.T) {
	store := newFakeStore(model.User{ID: 5, WalletBalance: dec("5"), RewardPoints: 5})
	l := NewLedger(store)

	_, _, err := l.ConvertPoints(context.Background(), 5, 10)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	assert.True(t, store.users[5].WalletBalance.Equal(dec("5")))
	assert.Equal(t, int64(5), store.users[5].RewardPoints)
	assert.Empty(t, store.entries)
}
