package ledger

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
)

// FriendBalance is the balance with one counterpart, seen by the viewer.
type FriendBalance struct {
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Email       string             `json:"email"`
	Net         decimal.Decimal    `json:"net"` // positive = they owe you
	Amount      decimal.Decimal    `json:"amount"`
	Label       models.ViewerLabel `json:"label"`
	UpdatedAt   int64              `json:"updated_at"`
}

// FriendList is every counterpart of a viewer plus aggregate totals.
type FriendList struct {
	Friends    []FriendBalance `json:"friends"`
	TotalOwed  decimal.Decimal `json:"total_owed"`  // total others owe the viewer
	TotalOwing decimal.Decimal `json:"total_owing"` // total the viewer owes others
}

// FriendDetails adds the records behind a friend balance.
type FriendDetails struct {
	Friend       FriendBalance         `json:"friend"`
	Transactions []*models.Transaction `json:"transactions"`
	Settlements  []*models.Settlement  `json:"settlements"`
}

// GetFriendList returns every identity that shares a transaction or
// settlement with viewer. Balances come from the cache when present and
// are computed from the already loaded log on a miss.
func (l *Ledger) GetFriendList(ctx context.Context, viewer string) (*FriendList, error) {
	txs, settlements, err := l.userLog(ctx, viewer)
	if err != nil {
		return nil, err
	}

	counterparts := calculator.Counterparts(viewer, txs, settlements)
	users, err := l.store.GetUsersByIDs(ctx, counterparts)
	if err != nil {
		return nil, err
	}

	list := &FriendList{
		Friends:    make([]FriendBalance, 0, len(counterparts)),
		TotalOwed:  decimal.Zero,
		TotalOwing: decimal.Zero,
	}
	for _, id := range counterparts {
		bal := l.cachedPair(ctx, viewer, id, func() decimal.Decimal {
			return calculator.PairBalance(viewer, id, txs, settlements)
		})
		fb := friendBalance(viewer, id, bal, users[id])
		list.Friends = append(list.Friends, fb)
		switch fb.Label {
		case models.LabelOwesYou:
			list.TotalOwed = list.TotalOwed.Add(fb.Amount)
		case models.LabelYouOwe:
			list.TotalOwing = list.TotalOwing.Add(fb.Amount)
		}
	}

	// Largest balances first, then by name.
	sort.SliceStable(list.Friends, func(i, j int) bool {
		ai, aj := list.Friends[i].Amount, list.Friends[j].Amount
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return list.Friends[i].DisplayName < list.Friends[j].DisplayName
	})
	return list, nil
}

// GetFriendDetails returns the freshly computed balance between viewer and
// friend together with the shared transactions and settlements.
func (l *Ledger) GetFriendDetails(ctx context.Context, viewer, friend string) (*FriendDetails, error) {
	if viewer == friend {
		return nil, errs.InvalidState("GetFriendDetails", "cannot view balance with yourself")
	}
	txs, settlements, err := l.pairLog(ctx, viewer, friend)
	if err != nil {
		return nil, err
	}
	users, err := l.store.GetUsersByIDs(ctx, []string{friend})
	if err != nil {
		return nil, err
	}

	net := calculator.PairBalance(viewer, friend, txs, settlements)
	bal := models.NewBalance(viewer, friend, net, l.now().Unix())
	return &FriendDetails{
		Friend:       friendBalance(viewer, friend, bal, users[friend]),
		Transactions: txs,
		Settlements:  settlements,
	}, nil
}

// cachedPair reads the pair from the cache, falling back to compute and
// writing the result back. Cache errors are logged and never returned.
func (l *Ledger) cachedPair(ctx context.Context, a, b string, compute func() decimal.Decimal) *models.Balance {
	cached, err := l.cache.GetPair(ctx, a, b)
	switch {
	case err != nil:
		metrics.CacheReads.WithLabelValues("error").Inc()
		slog.Warn("Balance cache read failed", "first_id", a, "second_id", b,
			"error", &errs.DependencyFailure{Dependency: "balance cache", Err: err})
	case cached != nil:
		metrics.CacheReads.WithLabelValues("hit").Inc()
		return cached
	default:
		metrics.CacheReads.WithLabelValues("miss").Inc()
	}

	bal := models.NewBalance(a, b, compute(), l.now().Unix())
	if err := l.cache.PutPair(ctx, bal); err != nil {
		slog.Warn("Balance cache write failed", "first_id", a, "second_id", b,
			"error", &errs.DependencyFailure{Dependency: "balance cache", Err: err})
	}
	return bal
}

func friendBalance(viewer, friend string, bal *models.Balance, user *models.User) FriendBalance {
	net := bal.NetFor(viewer)
	fb := FriendBalance{
		UserID:    friend,
		Net:       net,
		Amount:    net.Abs(),
		Label:     models.LabelForNet(net),
		UpdatedAt: bal.UpdatedAt,
	}
	if fb.Label == models.LabelSettled {
		fb.Net, fb.Amount = decimal.Zero, decimal.Zero
	}
	if user != nil {
		fb.DisplayName = user.DisplayName
		fb.Email = user.Email
	}
	return fb
}
