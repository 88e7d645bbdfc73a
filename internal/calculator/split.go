package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

var (
	hundred  = decimal.NewFromInt(100)
	cent     = decimal.New(1, -2)
	deadband = models.Deadband
)

// ValidationResult is the outcome of ValidateSplit. Errors lists every
// violation found, in a stable order.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// RemainderPolicy decides where the rounding remainder of an equal or
// percentage split starts. Equal splits hand the remainder out one cent at
// a time from that share onward; percentage residuals land on it whole.
type RemainderPolicy int

const (
	// RemainderToFirst starts the remainder at the first participant.
	RemainderToFirst RemainderPolicy = iota
	// RemainderToPayer starts the remainder at the payer when the payer
	// participates, and at the first participant otherwise.
	RemainderToPayer
)

// ValidateSplit checks a proposed division of amount among shares and
// collects all violations rather than stopping at the first one.
func ValidateSplit(amount decimal.Decimal, splitType models.SplitType, shares []models.ParticipantShare) ValidationResult {
	var errs []string

	if !amount.IsPositive() {
		errs = append(errs, "amount must be greater than zero")
	}
	if !splitType.Valid() {
		errs = append(errs, fmt.Sprintf("invalid split type %q", splitType))
	}
	if len(shares) == 0 {
		errs = append(errs, "at least one participant is required")
	}

	seen := make(map[string]bool, len(shares))
	sumShares := decimal.Zero
	sumPct := decimal.Zero
	for i, s := range shares {
		label := describe(i, s.Participant)
		if !s.Participant.Valid() {
			errs = append(errs, fmt.Sprintf("%s: must be either a registered identity or an external participant name", label))
		} else if seen[s.Participant.Key()] {
			errs = append(errs, fmt.Sprintf("%s: duplicate participant", label))
		}
		seen[s.Participant.Key()] = true

		if s.Amount.IsNegative() {
			errs = append(errs, fmt.Sprintf("%s: share cannot be negative", label))
		}
		if amount.IsPositive() && s.Amount.GreaterThan(amount) {
			errs = append(errs, fmt.Sprintf("%s: share exceeds total amount", label))
		}
		sumShares = sumShares.Add(s.Amount)

		if splitType == models.SplitPercentage {
			if !s.Percentage.Valid {
				errs = append(errs, fmt.Sprintf("%s: percentage is required", label))
				continue
			}
			pct := s.Percentage.Decimal
			if pct.IsNegative() || pct.GreaterThan(hundred) {
				errs = append(errs, fmt.Sprintf("%s: percentage must be between 0 and 100", label))
			}
			sumPct = sumPct.Add(pct)
		}
	}

	if splitType == models.SplitPercentage && len(shares) > 0 && sumPct.Sub(hundred).Abs().GreaterThan(deadband) {
		errs = append(errs, fmt.Sprintf("percentages sum to %s, expected 100", sumPct.String()))
	}
	if len(shares) > 0 && sumShares.Sub(amount).Abs().GreaterThan(deadband) {
		errs = append(errs, fmt.Sprintf("shares sum to %s, expected %s", sumShares.StringFixed(2), amount.StringFixed(2)))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func describe(i int, p models.Participant) string {
	switch {
	case p.UserID != "":
		return fmt.Sprintf("participant %d (%s)", i+1, p.UserID)
	case p.Name != "":
		return fmt.Sprintf("participant %d (%s)", i+1, p.Name)
	}
	return fmt.Sprintf("participant %d", i+1)
}

// CalculateEqualSplit divides amount into n shares rounded down to cents.
// The remainder is handed out one cent per share starting with the first,
// so the shares sum to amount and no two differ by more than a cent:
// 0.05 over three gives 0.02, 0.02, 0.01.
func CalculateEqualSplit(amount decimal.Decimal, n int) ([]decimal.Decimal, error) {
	return CalculateEqualSplitAt(amount, n, 0)
}

// CalculateEqualSplitAt is CalculateEqualSplit with the cent-by-cent
// remainder starting at index remainderIdx and wrapping around.
func CalculateEqualSplitAt(amount decimal.Decimal, n, remainderIdx int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if remainderIdx < 0 || remainderIdx >= n {
		return nil, fmt.Errorf("remainder index %d out of range", remainderIdx)
	}

	count := decimal.NewFromInt(int64(n))
	base := amount.Mul(hundred).Div(count).Floor().Div(hundred)
	remainder := amount.Sub(base.Mul(count)).Round(2)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
	}
	// A remainder of k cents is handed out one cent at a time starting at
	// remainderIdx, keeping max(share)-min(share) <= 0.01.
	cents := remainder.Mul(hundred).IntPart()
	for k := int64(0); k < cents; k++ {
		i := (remainderIdx + int(k)) % n
		shares[i] = shares[i].Add(cent)
	}
	leftover := remainder.Sub(decimal.NewFromInt(cents).Mul(cent))
	shares[remainderIdx] = shares[remainderIdx].Add(leftover)
	return shares, nil
}

// CalculatePercentageSplit computes each share as amount*pct/100 rounded to
// cents and adds any residual to the first share.
func CalculatePercentageSplit(amount decimal.Decimal, percentages []decimal.Decimal) ([]decimal.Decimal, error) {
	return CalculatePercentageSplitAt(amount, percentages, 0)
}

// CalculatePercentageSplitAt is CalculatePercentageSplit with the residual
// added to the share at index remainderIdx.
func CalculatePercentageSplitAt(amount decimal.Decimal, percentages []decimal.Decimal, remainderIdx int) ([]decimal.Decimal, error) {
	if len(percentages) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if remainderIdx < 0 || remainderIdx >= len(percentages) {
		return nil, fmt.Errorf("remainder index %d out of range", remainderIdx)
	}

	shares := make([]decimal.Decimal, len(percentages))
	sum := decimal.Zero
	for i, pct := range percentages {
		shares[i] = amount.Mul(pct).Div(hundred).Round(2)
		sum = sum.Add(shares[i])
	}
	shares[remainderIdx] = shares[remainderIdx].Add(amount.Sub(sum))
	return shares, nil
}

// AllocateShares derives share amounts for equal and percentage splits and
// returns custom shares untouched. Inputs are not validated here; run
// ValidateSplit on the result. Settled flags are reset.
func AllocateShares(amount decimal.Decimal, splitType models.SplitType, payerID string, shares []models.ParticipantShare, policy RemainderPolicy) []models.ParticipantShare {
	out := make([]models.ParticipantShare, len(shares))
	for i, s := range shares {
		out[i] = models.ParticipantShare{
			Participant: s.Participant,
			Amount:      s.Amount,
			Percentage:  s.Percentage,
		}
	}
	if len(out) == 0 {
		return out
	}

	idx := remainderIndex(out, payerID, policy)
	switch splitType {
	case models.SplitEqual:
		amounts, err := CalculateEqualSplitAt(amount, len(out), idx)
		if err != nil {
			return out
		}
		for i := range out {
			out[i].Amount = amounts[i]
			out[i].Percentage = decimal.NullDecimal{}
		}
	case models.SplitPercentage:
		pcts := make([]decimal.Decimal, len(out))
		for i, s := range out {
			if s.Percentage.Valid {
				pcts[i] = s.Percentage.Decimal
			}
		}
		amounts, err := CalculatePercentageSplitAt(amount, pcts, idx)
		if err != nil {
			return out
		}
		for i := range out {
			out[i].Amount = amounts[i]
		}
	case models.SplitCustom:
		for i := range out {
			out[i].Percentage = decimal.NullDecimal{}
		}
	}
	return out
}

func remainderIndex(shares []models.ParticipantShare, payerID string, policy RemainderPolicy) int {
	if policy != RemainderToPayer || payerID == "" {
		return 0
	}
	for i, s := range shares {
		if s.Participant.IsRegistered() && s.Participant.UserID == payerID {
			return i
		}
	}
	return 0
}
