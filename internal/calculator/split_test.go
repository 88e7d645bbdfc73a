package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pct(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

func share(userID, amount string) models.ParticipantShare {
	return models.ParticipantShare{Participant: models.RegisteredIdentity(userID), Amount: d(amount)}
}

func sum(ds []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range ds {
		total = total.Add(x)
	}
	return total
}

func TestCalculateEqualSplit(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		n      int
		want   []string
	}{
		{name: "even two-way", amount: "1000", n: 2, want: []string{"500", "500"}},
		{name: "one cent remainder goes first", amount: "100", n: 3, want: []string{"33.34", "33.33", "33.33"}},
		{name: "single participant", amount: "42.42", n: 1, want: []string{"42.42"}},
		{name: "two cent remainder spread", amount: "0.05", n: 3, want: []string{"0.02", "0.02", "0.01"}},
		{name: "seven way", amount: "10", n: 7, want: []string{"1.43", "1.43", "1.43", "1.43", "1.43", "1.43", "1.42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := CalculateEqualSplit(d(tt.amount), tt.n)
			require.NoError(t, err)
			require.Len(t, shares, tt.n)
			for i, w := range tt.want {
				assert.True(t, d(w).Equal(shares[i]), "share %d = %s, want %s", i, shares[i], w)
			}
			assert.True(t, d(tt.amount).Equal(sum(shares)), "sum = %s", sum(shares))
		})
	}
}

func TestCalculateEqualSplit_Properties(t *testing.T) {
	amounts := []string{"0.01", "0.99", "1", "10", "99.99", "100", "333.33", "1000", "12345.67"}
	for _, a := range amounts {
		for n := 1; n <= 9; n++ {
			shares, err := CalculateEqualSplit(d(a), n)
			require.NoError(t, err)
			assert.True(t, d(a).Equal(sum(shares)), "amount %s n %d sum %s", a, n, sum(shares))

			lo, hi := shares[0], shares[0]
			for _, s := range shares {
				lo = decimal.Min(lo, s)
				hi = decimal.Max(hi, s)
			}
			assert.True(t, hi.Sub(lo).LessThanOrEqual(d("0.01")), "amount %s n %d spread %s", a, n, hi.Sub(lo))
		}
	}
}

func TestCalculateEqualSplit_Errors(t *testing.T) {
	_, err := CalculateEqualSplit(d("10"), 0)
	assert.Error(t, err)

	_, err = CalculateEqualSplitAt(d("10"), 2, 2)
	assert.Error(t, err)
}

func TestCalculateEqualSplitAt_RemainderIndex(t *testing.T) {
	shares, err := CalculateEqualSplitAt(d("100"), 3, 2)
	require.NoError(t, err)
	assert.True(t, d("33.34").Equal(shares[2]))
	assert.True(t, d("33.33").Equal(shares[0]))
}

func TestCalculatePercentageSplit(t *testing.T) {
	shares, err := CalculatePercentageSplit(d("1500"), []decimal.Decimal{d("60"), d("40")})
	require.NoError(t, err)
	assert.True(t, d("900").Equal(shares[0]))
	assert.True(t, d("600").Equal(shares[1]))
	assert.True(t, d("1500").Equal(sum(shares)))

	// 100 * 33.33% = 33.33 three times, residual 0.01 to the first share.
	shares, err = CalculatePercentageSplit(d("100"), []decimal.Decimal{d("33.33"), d("33.33"), d("33.34")})
	require.NoError(t, err)
	assert.True(t, d("100").Equal(sum(shares)))

	shares, err = CalculatePercentageSplit(d("10"), []decimal.Decimal{d("33.333"), d("33.333"), d("33.334")})
	require.NoError(t, err)
	assert.True(t, d("3.34").Equal(shares[0]), "first share %s", shares[0])
	assert.True(t, d("10").Equal(sum(shares)))

	_, err = CalculatePercentageSplit(d("10"), nil)
	assert.Error(t, err)
}

func TestValidateSplit(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		splitType models.SplitType
		shares    []models.ParticipantShare
		wantValid bool
		wantErrs  []string
	}{
		{
			name:      "valid custom split",
			amount:    "200",
			splitType: models.SplitCustom,
			shares:    []models.ParticipantShare{share("alice", "150"), share("bob", "50")},
			wantValid: true,
		},
		{
			name:      "share exceeds total",
			amount:    "200",
			splitType: models.SplitCustom,
			shares:    []models.ParticipantShare{share("alice", "250")},
			wantErrs:  []string{"participant 1 (alice): share exceeds total amount", "shares sum to 250.00, expected 200.00"},
		},
		{
			name:      "negative share",
			amount:    "10",
			splitType: models.SplitCustom,
			shares:    []models.ParticipantShare{share("alice", "-5"), share("bob", "15")},
			wantErrs: []string{
				"participant 1 (alice): share cannot be negative",
				"participant 2 (bob): share exceeds total amount",
			},
		},
		{
			name:      "sum within tolerance",
			amount:    "100",
			splitType: models.SplitCustom,
			shares:    []models.ParticipantShare{share("alice", "33.33"), share("bob", "33.33"), share("carol", "33.33")},
			wantValid: true,
		},
		{
			name:      "collects all violations",
			amount:    "0",
			splitType: "weird",
			shares:    nil,
			wantErrs: []string{
				"amount must be greater than zero",
				`invalid split type "weird"`,
				"at least one participant is required",
			},
		},
		{
			name:      "external participant accepted",
			amount:    "30",
			splitType: models.SplitCustom,
			shares: []models.ParticipantShare{
				share("alice", "15"),
				{Participant: models.ExternalParticipant("Uncle Bob"), Amount: d("15")},
			},
			wantValid: true,
		},
		{
			name:      "malformed participant",
			amount:    "30",
			splitType: models.SplitCustom,
			shares: []models.ParticipantShare{
				{Participant: models.Participant{Kind: models.KindRegistered}, Amount: d("30")},
			},
			wantErrs: []string{"participant 1: must be either a registered identity or an external participant name"},
		},
		{
			name:      "duplicate participant",
			amount:    "30",
			splitType: models.SplitCustom,
			shares:    []models.ParticipantShare{share("alice", "15"), share("alice", "15")},
			wantErrs:  []string{"participant 2 (alice): duplicate participant"},
		},
		{
			name:      "percentages must sum to 100",
			amount:    "100",
			splitType: models.SplitPercentage,
			shares: []models.ParticipantShare{
				{Participant: models.RegisteredIdentity("alice"), Amount: d("60"), Percentage: pct("60")},
				{Participant: models.RegisteredIdentity("bob"), Amount: d("40"), Percentage: pct("30")},
			},
			wantErrs: []string{"percentages sum to 90, expected 100"},
		},
		{
			name:      "percentage out of range",
			amount:    "100",
			splitType: models.SplitPercentage,
			shares: []models.ParticipantShare{
				{Participant: models.RegisteredIdentity("alice"), Amount: d("100"), Percentage: pct("120")},
				{Participant: models.RegisteredIdentity("bob"), Amount: d("0"), Percentage: pct("-20")},
			},
			wantErrs: []string{
				"participant 1 (alice): percentage must be between 0 and 100",
				"participant 2 (bob): percentage must be between 0 and 100",
			},
		},
		{
			name:      "percentage required",
			amount:    "100",
			splitType: models.SplitPercentage,
			shares:    []models.ParticipantShare{share("alice", "100")},
			wantErrs:  []string{"participant 1 (alice): percentage is required", "percentages sum to 0, expected 100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateSplit(d(tt.amount), tt.splitType, tt.shares)
			assert.Equal(t, tt.wantValid, res.IsValid)
			if tt.wantValid {
				assert.Empty(t, res.Errors)
				return
			}
			assert.Equal(t, tt.wantErrs, res.Errors)
		})
	}
}

func TestAllocateShares(t *testing.T) {
	t.Run("equal with remainder to payer", func(t *testing.T) {
		in := []models.ParticipantShare{
			{Participant: models.RegisteredIdentity("alice")},
			{Participant: models.RegisteredIdentity("bob")},
			{Participant: models.ExternalParticipant("Carol")},
		}
		out := AllocateShares(d("100"), models.SplitEqual, "bob", in, RemainderToPayer)
		require.Len(t, out, 3)
		assert.True(t, d("33.33").Equal(out[0].Amount))
		assert.True(t, d("33.34").Equal(out[1].Amount))
		assert.True(t, d("33.33").Equal(out[2].Amount))
		assert.True(t, ValidateSplit(d("100"), models.SplitEqual, out).IsValid)
	})

	t.Run("equal with payer outside the split", func(t *testing.T) {
		in := []models.ParticipantShare{
			{Participant: models.RegisteredIdentity("alice")},
			{Participant: models.RegisteredIdentity("bob")},
			{Participant: models.RegisteredIdentity("carol")},
		}
		out := AllocateShares(d("100"), models.SplitEqual, "dave", in, RemainderToPayer)
		assert.True(t, d("33.34").Equal(out[0].Amount))
	})

	t.Run("percentage derives amounts", func(t *testing.T) {
		in := []models.ParticipantShare{
			{Participant: models.RegisteredIdentity("alice"), Percentage: pct("60")},
			{Participant: models.RegisteredIdentity("bob"), Percentage: pct("40")},
		}
		out := AllocateShares(d("1500"), models.SplitPercentage, "alice", in, RemainderToFirst)
		assert.True(t, d("900").Equal(out[0].Amount))
		assert.True(t, d("600").Equal(out[1].Amount))
		assert.True(t, out[0].Percentage.Valid)
		assert.True(t, ValidateSplit(d("1500"), models.SplitPercentage, out).IsValid)
	})

	t.Run("custom is kept and resets settled flags", func(t *testing.T) {
		in := []models.ParticipantShare{
			{Participant: models.RegisteredIdentity("alice"), Amount: d("10"), Settled: true, SettledAt: 99},
		}
		out := AllocateShares(d("10"), models.SplitCustom, "alice", in, RemainderToFirst)
		assert.True(t, d("10").Equal(out[0].Amount))
		assert.False(t, out[0].Settled)
		assert.Zero(t, out[0].SettledAt)
	})
}
