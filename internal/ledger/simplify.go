package ledger

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// Simplification compares the pairwise debts among a set of identities
// with the greedy transfer set that clears the same balances.
type Simplification struct {
	Balances              map[string]decimal.Decimal `json:"balances"`
	OriginalDebts         []calculator.Transfer      `json:"original_debts"`
	SimplifiedSettlements []calculator.Transfer      `json:"simplified_settlements"`
	SavingsCount          int                        `json:"savings_count"`
	Stats                 calculator.Stats           `json:"stats"`
	// Valid is false when a post-condition check failed. The transfers
	// are still returned for diagnosis.
	Valid bool `json:"valid"`
}

// GetSimplifiedSettlements simplifies the debts among viewer and the given
// counterparts. With no counterparts, every counterpart of the viewer is used.
// Naming an identity that shares no transaction or settlement with viewer
// is forbidden.
func (l *Ledger) GetSimplifiedSettlements(ctx context.Context, viewer string, counterparts []string) (*Simplification, error) {
	txs, settlements, err := l.userLog(ctx, viewer)
	if err != nil {
		return nil, err
	}
	known := calculator.Counterparts(viewer, txs, settlements)
	if len(counterparts) == 0 {
		counterparts = known
	}
	// Only identities the viewer shares a record with may be named.
	for _, id := range counterparts {
		if id != viewer && !slices.Contains(known, id) {
			return nil, errs.Forbidden("GetSimplifiedSettlements", "%s shares no expenses or settlements with you", id)
		}
	}

	// Debts between two counterparts are part of the picture too.
	seenTx := make(map[string]bool, len(txs))
	for _, tx := range txs {
		seenTx[tx.ID] = true
	}
	seenSettlement := make(map[string]bool, len(settlements))
	for _, s := range settlements {
		seenSettlement[s.ID] = true
	}
	for _, id := range counterparts {
		if id == viewer {
			continue
		}
		more, moreSettlements, err := l.userLog(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, tx := range more {
			if !seenTx[tx.ID] {
				seenTx[tx.ID] = true
				txs = append(txs, tx)
			}
		}
		for _, s := range moreSettlements {
			if !seenSettlement[s.ID] {
				seenSettlement[s.ID] = true
				settlements = append(settlements, s)
			}
		}
	}

	filter := calculator.Only(append([]string{viewer}, counterparts...)...)
	return l.simplify(txs, settlements, filter), nil
}

// GetGroupSimplifiedSettlements simplifies the debts within a group.
func (l *Ledger) GetGroupSimplifiedSettlements(ctx context.Context, groupID string) (*Simplification, error) {
	if _, err := l.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	txs, err := l.store.ListSplitTransactionsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	settlements, err := l.store.ListSettlements(ctx, storage.SettlementFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	return l.simplify(txs, settlements, nil), nil
}

func (l *Ledger) simplify(txs []*models.Transaction, settlements []*models.Settlement, filter calculator.Filter) *Simplification {
	balances := calculator.NetBalancesAmong(txs, settlements, filter)
	original := calculator.PairwiseDebts(txs, settlements, filter)

	result := &Simplification{
		Balances:      balances,
		OriginalDebts: original,
		Valid:         true,
	}

	simplified, err := calculator.SimplifyDebts(balances)
	if err != nil {
		result.Valid = false
		reportInvariant(err)
	}
	if err := calculator.ValidateSimplification(balances, simplified); err != nil {
		result.Valid = false
		reportInvariant(err)
	}
	result.SimplifiedSettlements = simplified
	result.Stats = calculator.SimplificationStats(original, simplified)
	result.SavingsCount = result.Stats.TransfersSaved
	return result
}

func reportInvariant(err error) {
	var iv *errs.InvariantViolation
	if errors.As(err, &iv) {
		metrics.InvariantViolations.WithLabelValues(iv.Invariant).Inc()
		slog.Error("Invariant violated", "invariant", iv.Invariant, "detail", iv.Detail)
		return
	}
	slog.Error("Simplification check failed", "error", err)
}
