package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

var fixedNow = time.Unix(1700000000, 0)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// failingCache fails every operation.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) GetPair(context.Context, string, string) (*models.Balance, error) {
	return nil, errCacheDown
}
func (failingCache) PutPair(context.Context, *models.Balance) error { return errCacheDown }
func (failingCache) GetMemberBalances(context.Context, string) ([]models.MemberBalance, error) {
	return nil, errCacheDown
}
func (failingCache) PutMemberBalances(context.Context, string, []models.MemberBalance) error {
	return errCacheDown
}

type fixture struct {
	store  *sqlite.SQLiteStore
	cache  BalanceCache
	ledger *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cache := store.BalanceCache()
	l := New(store, cache)
	l.now = func() time.Time { return fixedNow }
	return &fixture{store: store, cache: cache, ledger: l}
}

// owe records a split where debtor owes payer amount.
func (f *fixture) owe(t *testing.T, debtor, payer, amount, groupID string) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		Description: debtor + " owes " + payer,
		Amount:      d(amount),
		PayerID:     payer,
		GroupID:     groupID,
		SplitType:   models.SplitCustom,
		Shares: []models.ParticipantShare{
			{Participant: models.RegisteredIdentity(debtor), Amount: d(amount)},
		},
		CreatedBy: payer,
	}
	require.NoError(t, f.store.CreateTransaction(context.Background(), tx))
	return tx
}

func (f *fixture) settle(t *testing.T, payer, recipient, amount, groupID string) *models.Settlement {
	t.Helper()
	s := &models.Settlement{
		PayerID:     payer,
		RecipientID: recipient,
		Amount:      d(amount),
		Status:      models.SettlementPending,
		GroupID:     groupID,
		CreatedBy:   payer,
	}
	require.NoError(t, f.store.CreateSettlement(context.Background(), s))
	return s
}

func (f *fixture) group(t *testing.T, members ...string) string {
	t.Helper()
	g := &models.Group{Name: "Trip", Members: members, CreatedBy: members[0]}
	require.NoError(t, f.store.CreateGroup(context.Background(), g))
	return g.ID
}

func TestCalculateBalance_PairwiseAgreesWithNetBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob", "carol")

	f.owe(t, "bob", "alice", "40", "")      // 1:1
	f.owe(t, "bob", "alice", "25", groupID) // same pair, in a group
	f.owe(t, "alice", "bob", "15", groupID)
	f.owe(t, "alice", "carol", "30", "")
	f.settle(t, "bob", "alice", "10", "")

	ab, err := f.ledger.CalculateBalance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, ab.Equal(d("40")), "got %s", ab)

	ba, err := f.ledger.CalculateBalance(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, ba.Equal(ab.Neg()))

	ac, err := f.ledger.CalculateBalance(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.True(t, ac.Equal(d("-30")))

	sim, err := f.ledger.GetSimplifiedSettlements(ctx, "alice", nil)
	require.NoError(t, err)
	assert.True(t, sim.Balances["alice"].Equal(ab.Add(ac)), "sum of pair balances must equal net balance")
}

func TestSettlementRoundTripRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.owe(t, "bob", "alice", "75.50", "")
	before, err := f.ledger.CalculateBalance(ctx, "alice", "bob")
	require.NoError(t, err)

	s := f.settle(t, "bob", "alice", "20.25", "")
	during, err := f.ledger.CalculateBalance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, during.Equal(d("55.25")), "pending settlement applies immediately, got %s", during)

	require.NoError(t, f.store.DeleteSettlement(ctx, s.ID))
	after, err := f.ledger.CalculateBalance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, after.Equal(before))
}

func TestRefreshPair_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.owe(t, "bob", "alice", "12.34", "")

	require.NoError(t, f.ledger.RefreshPair(ctx, "bob", "alice"))
	first, err := f.cache.GetPair(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, f.ledger.RefreshPair(ctx, "alice", "bob"))
	second, err := f.cache.GetPair(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, first.Direction, second.Direction)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.Equal(t, models.DirectionSecondOwes, second.Direction)
	assert.Equal(t, models.LabelYouOwe, second.LabelFor("bob"))
}

func TestRefreshPair_CacheFailure(t *testing.T) {
	f := newFixture(t)
	l := New(f.store, failingCache{})
	f.owe(t, "bob", "alice", "10", "")

	err := l.RefreshPair(context.Background(), "alice", "bob")
	var df *errs.DependencyFailure
	require.ErrorAs(t, err, &df)
	assert.ErrorIs(t, err, errCacheDown)
}

func TestRefreshGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob", "carol")

	f.owe(t, "bob", "alice", "30", groupID)
	f.owe(t, "carol", "alice", "30", groupID)

	require.NoError(t, f.ledger.RefreshGroup(ctx, groupID))

	group, err := f.store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, group.TotalExpenses.Equal(d("60")))
	assert.False(t, group.Settled)
	assert.Equal(t, fixedNow.Unix(), group.SummaryUpdatedAt)

	balances, err := f.cache.GetMemberBalances(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, balances, 3)
	assert.True(t, balances[0].NetBalance.Equal(d("60")), "alice")
	assert.True(t, balances[1].NetBalance.Equal(d("-30")), "bob")

	f.settle(t, "bob", "alice", "30", groupID)
	f.settle(t, "carol", "alice", "30", groupID)
	require.NoError(t, f.ledger.RefreshGroup(ctx, groupID))
	group, err = f.store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, group.Settled)
}

func TestGroupBalances_ReadThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob")
	f.owe(t, "bob", "alice", "8", groupID)

	got, err := f.ledger.GroupBalances(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	cached, err := f.cache.GetMemberBalances(ctx, groupID)
	require.NoError(t, err)
	assert.Len(t, cached, 2, "miss should populate the cache")

	down := New(f.store, failingCache{})
	got, err = down.GroupBalances(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, got[1].NetBalance.Equal(d("-8")))
}

func TestRefresher_Handle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob", "carol")

	tx := &models.Transaction{
		Description: "Dinner",
		Amount:      d("90"),
		PayerID:     "alice",
		GroupID:     groupID,
		SplitType:   models.SplitEqual,
		Shares: []models.ParticipantShare{
			{Participant: models.RegisteredIdentity("alice"), Amount: d("30")},
			{Participant: models.RegisteredIdentity("bob"), Amount: d("30")},
			{Participant: models.ExternalParticipant("Dave"), Amount: d("30")},
		},
		CreatedBy: "alice",
	}
	require.NoError(t, f.store.CreateTransaction(ctx, tx))

	r := NewRefresher(f.ledger)
	require.NoError(t, r.Handle(ctx, events.Event{
		Kind:                 events.SplitUpdated,
		Transaction:          tx,
		PreviousParticipants: []string{"alice", "carol"},
	}))

	ab, err := f.cache.GetPair(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.True(t, ab.Amount.Equal(d("30")))

	ac, err := f.cache.GetPair(ctx, "alice", "carol")
	require.NoError(t, err)
	require.NotNil(t, ac, "dropped participant is refreshed too")
	assert.Equal(t, models.DirectionSettled, ac.Direction)

	group, err := f.store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, group.TotalExpenses.Equal(d("90")))

	failing := NewRefresher(New(f.store, failingCache{}))
	err = failing.Handle(ctx, events.Event{Kind: events.SplitCreated, Transaction: tx})
	assert.ErrorIs(t, err, errCacheDown)
}

func TestAffectedPairs(t *testing.T) {
	s := &models.Settlement{PayerID: "bob", RecipientID: "alice"}
	tests := []struct {
		name  string
		event events.Event
		want  [][2]string
	}{
		{"settlement created", events.Event{Kind: events.SettlementCreated, Settlement: s}, [][2]string{{"bob", "alice"}}},
		{"settlement deleted", events.Event{Kind: events.SettlementDeleted, Settlement: s}, [][2]string{{"bob", "alice"}}},
		{"settlement disputed", events.Event{Kind: events.SettlementDisputed, Settlement: s}, nil},
		{"group members added", events.Event{Kind: events.GroupMembersAdded, Group: "g1", NewMembers: []string{"bob"}}, nil},
		{
			"split removed uses previous participants",
			events.Event{
				Kind:                 events.SplitRemoved,
				Transaction:          &models.Transaction{PayerID: "alice"},
				PreviousParticipants: []string{"alice", "bob", "bob"},
			},
			[][2]string{{"alice", "bob"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, affectedPairs(tt.event))
		})
	}
}

func TestGetFriendList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob := models.NewUser("bob@example.com", "Bob", "x")
	carol := models.NewUser("carol@example.com", "Carol", "x")
	dave := models.NewUser("dave@example.com", "Dave", "x")
	for _, u := range []*models.User{bob, carol, dave} {
		require.NoError(t, f.store.CreateUser(ctx, u))
	}

	f.owe(t, bob.ID, "alice", "50", "")
	f.owe(t, "alice", carol.ID, "30", "")
	f.owe(t, dave.ID, "alice", "5", "")
	f.settle(t, dave.ID, "alice", "5", "")

	list, err := f.ledger.GetFriendList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list.Friends, 3)

	assert.Equal(t, "Bob", list.Friends[0].DisplayName)
	assert.Equal(t, models.LabelOwesYou, list.Friends[0].Label)
	assert.True(t, list.Friends[0].Amount.Equal(d("50")))

	assert.Equal(t, "Carol", list.Friends[1].DisplayName)
	assert.Equal(t, models.LabelYouOwe, list.Friends[1].Label)
	assert.True(t, list.Friends[1].Net.Equal(d("-30")))

	assert.Equal(t, models.LabelSettled, list.Friends[2].Label)

	assert.True(t, list.TotalOwed.Equal(d("50")))
	assert.True(t, list.TotalOwing.Equal(d("30")))

	t.Run("served from cache when present", func(t *testing.T) {
		require.NoError(t, f.cache.PutPair(ctx, models.NewBalance("alice", bob.ID, d("1"), 1)))
		list, err := f.ledger.GetFriendList(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, list.Friends[0].Amount.Equal(d("30")), "carol now has the largest balance")
	})

	t.Run("cache failure falls back to the log", func(t *testing.T) {
		down := New(f.store, failingCache{})
		list, err := down.GetFriendList(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list.Friends, 3)
		assert.True(t, list.TotalOwed.Equal(d("50")))
	})
}

func TestGetFriendDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.owe(t, "bob", "alice", "50", "")
	f.owe(t, "carol", "alice", "20", "")
	f.settle(t, "bob", "alice", "20", "")

	details, err := f.ledger.GetFriendDetails(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.LabelYouOwe, details.Friend.Label)
	assert.True(t, details.Friend.Amount.Equal(d("30")))
	assert.Len(t, details.Transactions, 1)
	assert.Len(t, details.Settlements, 1)

	_, err = f.ledger.GetFriendDetails(ctx, "bob", "bob")
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestGetGroupSimplifiedSettlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "a", "b", "c", "d")

	f.owe(t, "a", "b", "100", groupID)
	f.owe(t, "c", "b", "100", groupID)
	f.owe(t, "b", "d", "200", groupID)

	sim, err := f.ledger.GetGroupSimplifiedSettlements(ctx, groupID)
	require.NoError(t, err)

	assert.True(t, sim.Valid)
	assert.Len(t, sim.OriginalDebts, 3)
	require.Len(t, sim.SimplifiedSettlements, 2)
	assert.Equal(t, "a", sim.SimplifiedSettlements[0].From)
	assert.Equal(t, "d", sim.SimplifiedSettlements[0].To)
	assert.True(t, sim.SimplifiedSettlements[0].Amount.Equal(d("100")))
	assert.Equal(t, "c", sim.SimplifiedSettlements[1].From)
	assert.Equal(t, 1, sim.SavingsCount)
	assert.True(t, sim.Stats.AmountReconciled)
	assert.True(t, sim.Balances["b"].IsZero())

	_, err = f.ledger.GetGroupSimplifiedSettlements(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGetSimplifiedSettlements_Ring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.owe(t, "a", "b", "100", "")
	f.owe(t, "b", "c", "100", "")
	f.owe(t, "c", "a", "100", "")

	sim, err := f.ledger.GetSimplifiedSettlements(ctx, "a", []string{"b", "c"})
	require.NoError(t, err)
	assert.Empty(t, sim.SimplifiedSettlements)
	assert.Len(t, sim.OriginalDebts, 3)
	assert.Equal(t, 3, sim.SavingsCount)
	assert.True(t, sim.Valid)
}
