package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/settleup/internal/events"
)

// Refresher keeps the balance cache in step with committed mutations.
// Subscribe it to the event bus; a failed refresh is returned to the bus,
// which logs it, and leaves a stale but recomputable entry.
type Refresher struct {
	ledger *Ledger
}

// NewRefresher creates a cache-refresh subscriber.
func NewRefresher(l *Ledger) *Refresher {
	return &Refresher{ledger: l}
}

// Handle refreshes every pair touched by the event and the event's group.
// All pairs are attempted even if one fails.
func (r *Refresher) Handle(ctx context.Context, e events.Event) error {
	var errList []error
	for _, p := range affectedPairs(e) {
		if err := r.ledger.RefreshPair(ctx, p[0], p[1]); err != nil {
			errList = append(errList, err)
		}
	}
	if groupID := e.GroupID(); groupID != "" && e.Kind != events.SettlementDisputed {
		if err := r.ledger.RefreshGroup(ctx, groupID); err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return errors.Join(errList...)
	}
	slog.Debug("Balance cache refreshed", "event", e.Kind, "group_id", e.GroupID())
	return nil
}

// affectedPairs lists the (payer, participant) pairs of a split event, old
// and new participants alike, or the (payer, recipient) pair of a
// settlement event. Disputes do not change balances.
func affectedPairs(e events.Event) [][2]string {
	switch {
	case e.Kind.IsSplit() && e.Transaction != nil:
		payer := e.Transaction.PayerID
		seen := make(map[string]bool)
		var pairs [][2]string
		add := func(id string) {
			if id == "" || id == payer || seen[id] {
				return
			}
			seen[id] = true
			pairs = append(pairs, [2]string{payer, id})
		}
		for _, id := range e.Transaction.RegisteredParticipants() {
			add(id)
		}
		for _, id := range e.PreviousParticipants {
			add(id)
		}
		return pairs
	case e.Settlement != nil && e.Kind != events.SettlementDisputed:
		return [][2]string{{e.Settlement.PayerID, e.Settlement.RecipientID}}
	}
	return nil
}
