package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/calculator"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		want      []string
		wantValid bool
		wantStats bool
	}{
		{
			name: "sole debtor",
			in: Input{Balances: map[string]decimal.Decimal{
				"a": d("-80"), "b": d("50"), "c": d("30"),
			}},
			want:      []string{"a->b:50.00", "a->c:30.00"},
			wantValid: true,
		},
		{
			name: "ring cancels out",
			in: Input{Debts: []calculator.Transfer{
				{From: "a", To: "b", Amount: d("100")},
				{From: "b", To: "c", Amount: d("100")},
				{From: "c", To: "a", Amount: d("100")},
			}},
			want:      nil,
			wantValid: true,
			wantStats: true,
		},
		{
			name: "chain through a middleman",
			in: Input{Debts: []calculator.Transfer{
				{From: "a", To: "b", Amount: d("100")},
				{From: "c", To: "b", Amount: d("100")},
				{From: "b", To: "d", Amount: d("200")},
			}},
			want:      []string{"a->d:100.00", "c->d:100.00"},
			wantValid: true,
			wantStats: true,
		},
		{
			name: "not zero-sum",
			in: Input{Balances: map[string]decimal.Decimal{
				"a": d("-10"), "b": d("20"),
			}},
			want:      []string{"a->b:10.00"},
			wantValid: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := simplify(&tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, report.Valid, report.Error)

			var got []string
			for _, tr := range report.Transfers {
				got = append(got, tr.From+"->"+tr.To+":"+tr.Amount.StringFixed(2))
			}
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, tt.wantStats, report.Stats != nil)
		})
	}
}

func TestSimplifyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"empty", Input{}},
		{"both forms", Input{
			Balances: map[string]decimal.Decimal{"a": d("1")},
			Debts:    []calculator.Transfer{{From: "a", To: "b", Amount: d("1")}},
		}},
		{"self debt", Input{Debts: []calculator.Transfer{{From: "a", To: "a", Amount: d("1")}}}},
		{"negative debt", Input{Debts: []calculator.Transfer{{From: "a", To: "b", Amount: d("-1")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := simplify(&tt.in)
			assert.Error(t, err)
		})
	}
}

func TestReadInputAndSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balances.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"balances": {"alice": "-80", "bob": 50, "carol": "30"}}`), 0o600))

	in, err := readInput(path)
	require.NoError(t, err)
	report, err := simplify(in)
	require.NoError(t, err)

	summary := humanSummary(report)
	assert.Contains(t, summary, "Transfers (2):")
	assert.Contains(t, summary, "alice -> bob: 50.00")
	assert.Contains(t, summary, "alice -> carol: 30.00")
	assert.NotContains(t, summary, "WARNING")
}
