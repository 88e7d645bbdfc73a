package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/notify"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type testEnv struct {
	store       *sqlite.SQLiteStore
	ledger      *ledger.Ledger
	recorded    *recorder
	splits      *SplitService
	settlements *SettlementService
	groups      *GroupService
	balances    *BalanceService
}

// setupTestEnv wires the services against a temp-file SQLite store the
// same way the server does. A fixed set of users is registered.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, id := range []string{"alice", "bob", "carol", "mallory", "a", "b", "c", "d"} {
		require.NoError(t, store.CreateUser(context.Background(), &models.User{
			ID:          id,
			Email:       id + "@example.com",
			DisplayName: id,
		}))
	}

	l := ledger.New(store, store.BalanceCache())
	rec := &recorder{}
	bus := events.NewBus()
	bus.Subscribe("balance-cache", ledger.NewRefresher(l))
	bus.Subscribe("notifications", notify.New(store))
	bus.Subscribe("recorder", rec)

	return &testEnv{
		store:       store,
		ledger:      l,
		recorded:    rec,
		splits:      NewSplitService(store, bus),
		settlements: NewSettlementService(store, bus),
		groups:      NewGroupService(store, l),
		balances:    NewBalanceService(store, l),
	}
}

// freezeClock pins the service clock for the duration of the test.
func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return at }
	t.Cleanup(func() { clock = prev })
}

func equalSplit(ids ...string) SplitConfig {
	cfg := SplitConfig{SplitType: models.SplitEqual}
	for _, id := range ids {
		cfg.Participants = append(cfg.Participants, models.ParticipantShare{Participant: models.RegisteredIdentity(id)})
	}
	return cfg
}

// expense records a transaction paid by payer and splits it equally.
func (env *testEnv) expense(t *testing.T, payer, amount string, groupID string, participants ...string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	tx, err := env.splits.CreateTransaction(ctx, payer, NewTransaction{
		Description: "Dinner",
		Amount:      d(amount),
		GroupID:     groupID,
	})
	require.NoError(t, err)
	tx, err = env.splits.CreateSplit(ctx, payer, tx.ID, equalSplit(participants...))
	require.NoError(t, err)
	return tx
}
