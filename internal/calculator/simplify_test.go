package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
)

func balancesOf(txs ...*models.Transaction) map[string]decimal.Decimal {
	return CalculateNetBalances(txs)
}

func assertTransfer(t *testing.T, got Transfer, from, to, amount string) {
	t.Helper()
	assert.Equal(t, from, got.From)
	assert.Equal(t, to, got.To)
	assert.True(t, d(amount).Equal(got.Amount), "amount %s, want %s", got.Amount, amount)
}

func TestSimplifyDebts_Scenarios(t *testing.T) {
	t.Run("three-way ring cancels out", func(t *testing.T) {
		bal := balancesOf(owes("A", "B", "100"), owes("B", "C", "100"), owes("C", "A", "100"))
		for id, b := range bal {
			assert.True(t, b.IsZero(), "%s = %s", id, b)
		}
		transfers, err := SimplifyDebts(bal)
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})

	t.Run("sole debtor", func(t *testing.T) {
		bal := balancesOf(owes("A", "B", "50"), owes("A", "C", "30"))
		assert.True(t, d("-80").Equal(bal["A"]))

		transfers, err := SimplifyDebts(bal)
		require.NoError(t, err)
		require.Len(t, transfers, 2)
		assertTransfer(t, transfers[0], "A", "B", "50")
		assertTransfer(t, transfers[1], "A", "C", "30")
	})

	t.Run("chain through a middleman", func(t *testing.T) {
		txs := []*models.Transaction{owes("A", "B", "100"), owes("C", "B", "100"), owes("B", "D", "200")}
		bal := balancesOf(txs...)
		assert.True(t, bal["B"].IsZero())

		transfers, err := SimplifyDebts(bal)
		require.NoError(t, err)
		require.Len(t, transfers, 2)
		assertTransfer(t, transfers[0], "A", "D", "100")
		assertTransfer(t, transfers[1], "C", "D", "100")

		stats := SimplificationStats(PairwiseDebts(txs, nil, nil), transfers)
		assert.Equal(t, 3, stats.OriginalCount)
		assert.Equal(t, 2, stats.SimplifiedCount)
		assert.Equal(t, 1, stats.TransfersSaved)
		assert.True(t, d("33.33").Equal(stats.SavingsPercent), "savings %s", stats.SavingsPercent)
		assert.True(t, d("400").Equal(stats.OriginalAmount))
		assert.True(t, d("200").Equal(stats.SimplifiedAmount))
		assert.True(t, stats.AmountReconciled)
	})
}

func TestSimplifyDebts_IgnoresDeadband(t *testing.T) {
	bal := map[string]decimal.Decimal{"a": d("0.01"), "b": d("-0.01"), "c": d("5"), "d": d("-5")}
	transfers, err := SimplifyDebts(bal)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assertTransfer(t, transfers[0], "d", "c", "5")
}

func TestSimplifyDebts_SoundnessAndBound(t *testing.T) {
	cases := []map[string]decimal.Decimal{
		{"a": d("10"), "b": d("20"), "c": d("-15"), "d": d("-15")},
		{"a": d("33.33"), "b": d("33.33"), "c": d("33.34"), "d": d("-100")},
		{"a": d("-1.11"), "b": d("-2.22"), "c": d("-3.33"), "d": d("6.66")},
		{"a": d("100"), "b": d("-40"), "c": d("-35.5"), "d": d("-24.5"), "e": d("0")},
		{"p1": d("7.77"), "p2": d("-7.77")},
	}
	for _, bal := range cases {
		transfers, err := SimplifyDebts(bal)
		require.NoError(t, err)
		assert.NoError(t, ValidateSimplification(bal, transfers))

		nonzero := 0
		for _, b := range bal {
			if !models.IsSettledAmount(b) {
				nonzero++
			}
		}
		assert.LessOrEqual(t, len(transfers), nonzero-1)
		for _, tr := range transfers {
			assert.True(t, tr.Amount.GreaterThan(d("0.01")))
		}
	}
}

func TestSimplifyDebts_FromRandomLog(t *testing.T) {
	ids := []string{"ann", "ben", "cat", "dan", "eve", "fay"}
	var txs []*models.Transaction
	for i := 0; i < 40; i++ {
		amount := decimal.NewFromInt(int64(i*37%211 + 1)).Div(decimal.NewFromInt(3)).Round(2)
		n := i%5 + 2
		amounts, err := CalculateEqualSplit(amount, n)
		require.NoError(t, err)
		shares := make([]models.ParticipantShare, n)
		for k := range shares {
			shares[k] = models.ParticipantShare{Participant: models.RegisteredIdentity(ids[(i+k)%len(ids)]), Amount: amounts[k]}
		}
		txs = append(txs, &models.Transaction{Amount: amount, PayerID: ids[(i*5)%len(ids)], SplitType: models.SplitEqual, Shares: shares})
	}
	bal := CalculateNetBalances(txs)

	transfers, err := SimplifyDebts(bal)
	require.NoError(t, err)
	assert.NoError(t, ValidateSimplification(bal, transfers))
	assert.LessOrEqual(t, len(transfers), len(ids)-1)

	stats := SimplificationStats(PairwiseDebts(txs, nil, nil), transfers)
	assert.True(t, stats.AmountReconciled)
	assert.LessOrEqual(t, stats.SimplifiedCount, stats.OriginalCount)
}

func TestSimplifyDebts_NotZeroSum(t *testing.T) {
	bal := map[string]decimal.Decimal{"a": d("50"), "b": d("-20")}
	transfers, err := SimplifyDebts(bal)

	var iv *errs.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, "zero-sum balances", iv.Invariant)
	require.Len(t, transfers, 1)
	assertTransfer(t, transfers[0], "b", "a", "20")

	assert.Error(t, ValidateSimplification(bal, transfers))
}

func TestValidateSimplification(t *testing.T) {
	bal := map[string]decimal.Decimal{"a": d("10"), "b": d("-10")}
	assert.NoError(t, ValidateSimplification(bal, []Transfer{{From: "b", To: "a", Amount: d("10")}}))

	err := ValidateSimplification(bal, []Transfer{{From: "b", To: "a", Amount: d("4")}})
	var iv *errs.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, "residual balances: a=6.00, b=-6.00", iv.Detail)

	// the scratch copy must not leak into the caller's map
	assert.True(t, d("10").Equal(bal["a"]))
}

func TestSimplificationStats_Empty(t *testing.T) {
	stats := SimplificationStats(nil, nil)
	assert.Zero(t, stats.OriginalCount)
	assert.True(t, stats.SavingsPercent.IsZero())
	assert.True(t, stats.AmountReconciled)
}
