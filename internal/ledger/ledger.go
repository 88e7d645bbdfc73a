// Package ledger derives balances from the transaction and settlement log
// and keeps the balance cache in step with it.
//
// Every balance is recomputed from scratch. The cache is a read-through
// convenience for views; refreshes overwrite it and never read it back.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// Store is the part of the durable log the ledger reads.
type Store interface {
	ListSplitTransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error)
	ListSplitTransactionsBetween(ctx context.Context, a, b string) ([]*models.Transaction, error)
	ListSplitTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error)
	ListSettlements(ctx context.Context, filter storage.SettlementFilter) ([]*models.Settlement, error)
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	UpdateGroupSummary(ctx context.Context, groupID string, totalExpenses decimal.Decimal, settled bool, at int64) error
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// BalanceCache holds derived balances keyed by pair or by group.
// GetPair returns nil, nil on a miss.
type BalanceCache interface {
	GetPair(ctx context.Context, a, b string) (*models.Balance, error)
	PutPair(ctx context.Context, bal *models.Balance) error
	GetMemberBalances(ctx context.Context, groupID string) ([]models.MemberBalance, error)
	PutMemberBalances(ctx context.Context, groupID string, balances []models.MemberBalance) error
}

// Ledger computes balances and maintains the cache.
type Ledger struct {
	store Store
	cache BalanceCache
	now   func() time.Time
}

// New creates a Ledger reading from store and writing derived balances to cache.
func New(store Store, cache BalanceCache) *Ledger {
	return &Ledger{store: store, cache: cache, now: time.Now}
}

// CalculateBalance returns the net amount between a and b from a's
// perspective (positive = b owes a), recomputed from the log.
func (l *Ledger) CalculateBalance(ctx context.Context, a, b string) (decimal.Decimal, error) {
	txs, settlements, err := l.pairLog(ctx, a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.PairBalance(a, b, txs, settlements), nil
}

// PairBalance is CalculateBalance in canonical cached form.
func (l *Ledger) PairBalance(ctx context.Context, a, b string) (*models.Balance, error) {
	net, err := l.CalculateBalance(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return models.NewBalance(a, b, net, l.now().Unix()), nil
}

// RefreshPair recomputes the balance between a and b and overwrites the
// cached entry. Running it twice against the same log stores the same value.
func (l *Ledger) RefreshPair(ctx context.Context, a, b string) error {
	if a == "" || b == "" || a == b {
		return nil
	}
	bal, err := l.PairBalance(ctx, a, b)
	if err != nil {
		metrics.CacheRefreshes.WithLabelValues("pair", "error").Inc()
		return fmt.Errorf("recompute balance %s/%s: %w", a, b, err)
	}
	if err := l.cache.PutPair(ctx, bal); err != nil {
		metrics.CacheRefreshes.WithLabelValues("pair", "error").Inc()
		return &errs.DependencyFailure{Dependency: "balance cache", Err: err}
	}
	metrics.CacheRefreshes.WithLabelValues("pair", "ok").Inc()
	slog.Debug("Refreshed pair balance",
		"first_id", bal.FirstID,
		"second_id", bal.SecondID,
		"amount", bal.Amount.StringFixed(2),
		"direction", bal.Direction,
	)
	return nil
}

// GroupSummary is the recomputed state of a group.
type GroupSummary struct {
	Group          *models.Group
	MemberBalances []models.MemberBalance
	TotalExpenses  decimal.Decimal
	Settled        bool
}

// ComputeGroup recomputes a group's member balances, total expenses and
// settled flag without touching the cache.
func (l *Ledger) ComputeGroup(ctx context.Context, groupID string) (*GroupSummary, error) {
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	txs, settlements, err := l.groupLog(ctx, groupID)
	if err != nil {
		return nil, err
	}

	summary := &GroupSummary{
		Group:          group,
		MemberBalances: calculator.CalculateMemberBalances(groupID, group.Members, txs, settlements, l.now().Unix()),
		TotalExpenses:  decimal.Zero,
		Settled:        true,
	}
	for _, tx := range txs {
		summary.TotalExpenses = summary.TotalExpenses.Add(tx.Amount)
	}
	for _, mb := range summary.MemberBalances {
		if !models.IsSettledAmount(mb.NetBalance) {
			summary.Settled = false
			break
		}
	}
	return summary, nil
}

// RefreshGroup recomputes a group and overwrites its cached member
// balances and stored summary.
func (l *Ledger) RefreshGroup(ctx context.Context, groupID string) error {
	summary, err := l.ComputeGroup(ctx, groupID)
	if err != nil {
		metrics.CacheRefreshes.WithLabelValues("group", "error").Inc()
		return fmt.Errorf("recompute group %s: %w", groupID, err)
	}
	if err := l.cache.PutMemberBalances(ctx, groupID, summary.MemberBalances); err != nil {
		metrics.CacheRefreshes.WithLabelValues("group", "error").Inc()
		return &errs.DependencyFailure{Dependency: "balance cache", Err: err}
	}
	if err := l.store.UpdateGroupSummary(ctx, groupID, summary.TotalExpenses, summary.Settled, l.now().Unix()); err != nil {
		metrics.CacheRefreshes.WithLabelValues("group", "error").Inc()
		return &errs.DependencyFailure{Dependency: "group store", Err: err}
	}
	metrics.CacheRefreshes.WithLabelValues("group", "ok").Inc()
	return nil
}

// GroupBalances returns the cached member balances of a group, computing
// and caching them on a miss.
func (l *Ledger) GroupBalances(ctx context.Context, groupID string) ([]models.MemberBalance, error) {
	cached, err := l.cache.GetMemberBalances(ctx, groupID)
	switch {
	case err != nil:
		metrics.CacheReads.WithLabelValues("error").Inc()
		slog.Warn("Balance cache read failed", "group_id", groupID,
			"error", &errs.DependencyFailure{Dependency: "balance cache", Err: err})
	case len(cached) > 0:
		metrics.CacheReads.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.CacheReads.WithLabelValues("miss").Inc()
	}

	summary, err := l.ComputeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := l.cache.PutMemberBalances(ctx, groupID, summary.MemberBalances); err != nil {
		slog.Warn("Balance cache write failed", "group_id", groupID,
			"error", &errs.DependencyFailure{Dependency: "balance cache", Err: err})
	}
	return summary.MemberBalances, nil
}

func (l *Ledger) pairLog(ctx context.Context, a, b string) ([]*models.Transaction, []*models.Settlement, error) {
	txs, err := l.store.ListSplitTransactionsBetween(ctx, a, b)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	settlements, err := l.store.ListSettlements(ctx, storage.SettlementFilter{Between: [2]string{a, b}})
	if err != nil {
		return nil, nil, fmt.Errorf("list settlements: %w", err)
	}
	return txs, settlements, nil
}

func (l *Ledger) groupLog(ctx context.Context, groupID string) ([]*models.Transaction, []*models.Settlement, error) {
	txs, err := l.store.ListSplitTransactionsByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	settlements, err := l.store.ListSettlements(ctx, storage.SettlementFilter{GroupID: groupID})
	if err != nil {
		return nil, nil, fmt.Errorf("list settlements: %w", err)
	}
	return txs, settlements, nil
}

// userLog returns everything involving userID.
func (l *Ledger) userLog(ctx context.Context, userID string) ([]*models.Transaction, []*models.Settlement, error) {
	txs, err := l.store.ListSplitTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	settlements, err := l.store.ListSettlements(ctx, storage.SettlementFilter{UserID: userID})
	if err != nil {
		return nil, nil, fmt.Errorf("list settlements: %w", err)
	}
	return txs, settlements, nil
}
