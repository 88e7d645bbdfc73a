package calculator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
)

type party struct {
	id        string
	remaining decimal.Decimal
}

// SimplifyDebts turns a zero-sum balance map into a short list of transfers
// that clears it. Balances inside the deadband are ignored.
//
// Algorithm (greedy, not guaranteed minimal):
//   - creditors sorted by balance desc, debtors by |balance| desc (ties by ID)
//   - match the current creditor with the current debtor for the smaller
//     of the two remainders, rounded to cents
//   - advance whichever side is exhausted (< 0.01 left)
//
// For k identities with a nonzero balance at most k-1 transfers are emitted.
// A non-nil error is an *errs.InvariantViolation (input not zero-sum or the
// sides exhausting unevenly); the transfers are returned regardless.
func SimplifyDebts(balances map[string]decimal.Decimal) ([]Transfer, error) {
	var creditors, debtors []party
	total := decimal.Zero
	for id, bal := range balances {
		total = total.Add(bal)
		switch {
		case bal.GreaterThan(deadband):
			creditors = append(creditors, party{id: id, remaining: bal})
		case bal.LessThan(deadband.Neg()):
			debtors = append(debtors, party{id: id, remaining: bal.Neg()})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor, debtor := &creditors[i], &debtors[j]

		amount := decimal.Min(creditor.remaining, debtor.remaining).Round(2)
		if amount.GreaterThan(deadband) {
			transfers = append(transfers, Transfer{From: debtor.id, To: creditor.id, Amount: amount})
		}

		creditor.remaining = creditor.remaining.Sub(amount)
		debtor.remaining = debtor.remaining.Sub(amount)

		if creditor.remaining.LessThan(deadband) {
			i++
		}
		if debtor.remaining.LessThan(deadband) {
			j++
		}
	}

	if !models.IsSettledAmount(total) {
		return transfers, &errs.InvariantViolation{
			Invariant: "zero-sum balances",
			Detail:    fmt.Sprintf("balances sum to %s", total.StringFixed(2)),
		}
	}
	if left := leftovers(creditors[i:], debtors[j:]); left != "" {
		return transfers, &errs.InvariantViolation{
			Invariant: "symmetric exhaustion",
			Detail:    "unmatched after sweep: " + left,
		}
	}
	return transfers, nil
}

func sortParties(ps []party) {
	sort.Slice(ps, func(a, b int) bool {
		if c := ps[a].remaining.Cmp(ps[b].remaining); c != 0 {
			return c > 0
		}
		return ps[a].id < ps[b].id
	})
}

func leftovers(creditors, debtors []party) string {
	var parts []string
	for _, p := range creditors {
		if p.remaining.GreaterThan(deadband) {
			parts = append(parts, fmt.Sprintf("%s=+%s", p.id, p.remaining.StringFixed(2)))
		}
	}
	for _, p := range debtors {
		if p.remaining.GreaterThan(deadband) {
			parts = append(parts, fmt.Sprintf("%s=-%s", p.id, p.remaining.StringFixed(2)))
		}
	}
	return strings.Join(parts, ", ")
}

// ValidateSimplification applies transfers to a copy of balances and
// returns an *errs.InvariantViolation naming every identity left outside
// the deadband. It is a diagnostic; callers still return their result.
func ValidateSimplification(balances map[string]decimal.Decimal, transfers []Transfer) error {
	scratch := make(map[string]decimal.Decimal, len(balances))
	for id, bal := range balances {
		scratch[id] = bal
	}
	for _, t := range transfers {
		scratch[t.From] = scratch[t.From].Add(t.Amount)
		scratch[t.To] = scratch[t.To].Sub(t.Amount)
	}

	var bad []string
	for id, bal := range scratch {
		if !models.IsSettledAmount(bal) {
			bad = append(bad, fmt.Sprintf("%s=%s", id, bal.StringFixed(2)))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return &errs.InvariantViolation{
		Invariant: "simplified transfers clear all balances",
		Detail:    "residual balances: " + strings.Join(bad, ", "),
	}
}

// Stats compares pairwise debts with their simplified replacement.
type Stats struct {
	OriginalCount    int             `json:"original_count"`
	SimplifiedCount  int             `json:"simplified_count"`
	TransfersSaved   int             `json:"transfers_saved"`
	SavingsPercent   decimal.Decimal `json:"savings_percent"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	SimplifiedAmount decimal.Decimal `json:"simplified_amount"`
	// AmountReconciled is true when both sets move every identity by the
	// same net amount.
	AmountReconciled bool `json:"amount_reconciled"`
}

// SimplificationStats reports how many transfers the simplification saved.
func SimplificationStats(original, simplified []Transfer) Stats {
	st := Stats{
		OriginalCount:    len(original),
		SimplifiedCount:  len(simplified),
		TransfersSaved:   len(original) - len(simplified),
		OriginalAmount:   sumTransfers(original),
		SimplifiedAmount: sumTransfers(simplified),
		SavingsPercent:   decimal.Zero,
	}
	if st.OriginalCount > 0 {
		st.SavingsPercent = decimal.NewFromInt(int64(st.TransfersSaved)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(st.OriginalCount)), 2)
	}

	origNet, simpNet := netEffect(original), netEffect(simplified)
	st.AmountReconciled = true
	for id := range union(origNet, simpNet) {
		if !models.IsSettledAmount(origNet[id].Sub(simpNet[id])) {
			st.AmountReconciled = false
			break
		}
	}
	return st
}

func sumTransfers(ts []Transfer) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range ts {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func netEffect(ts []Transfer) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, t := range ts {
		net[t.From] = net[t.From].Sub(t.Amount)
		net[t.To] = net[t.To].Add(t.Amount)
	}
	return net
}

func union(a, b map[string]decimal.Decimal) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
