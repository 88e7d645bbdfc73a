// Command simplify reduces a set of balances or debts to the transfers that
// clear them.
//
// Input is a JSON object holding either a balance map (positive = owed
// money) or a list of debts:
//
//	{"balances": {"alice": "-80", "bob": "50", "carol": "30"}}
//	{"debts": [{"from": "alice", "to": "bob", "amount": "50"}]}
//
// Usage:
//
//	simplify -in balances.json
//	cat debts.json | simplify -json=false
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/pkg/logging"
)

// Input is the document read from the file or stdin.
type Input struct {
	Balances map[string]decimal.Decimal `json:"balances,omitempty"`
	Debts    []calculator.Transfer      `json:"debts,omitempty"`
}

// Report is the result printed by the command.
type Report struct {
	Balances  map[string]decimal.Decimal `json:"balances"`
	Transfers []calculator.Transfer      `json:"transfers"`
	// Stats is only present when the input listed debts.
	Stats *calculator.Stats `json:"stats,omitempty"`
	Valid bool              `json:"valid"`
	Error string            `json:"error,omitempty"`
}

func main() {
	var inPath string
	var outputJSON bool

	flag.StringVar(&inPath, "in", "-", "Path to the input JSON (- for stdin)")
	flag.BoolVar(&outputJSON, "json", true, "Output JSON report")
	flag.Parse()

	logging.Setup(slog.LevelWarn)

	in, err := readInput(inPath)
	if err != nil {
		slog.Error("Reading input failed", "path", inPath, "error", err)
		os.Exit(2)
	}

	report, err := simplify(in)
	if err != nil {
		slog.Error("Invalid input", "error", err)
		os.Exit(2)
	}
	if !report.Valid {
		slog.Warn("Simplification did not clear every balance", "error", report.Error)
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			slog.Error("Encoding report failed", "error", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(humanSummary(report))
	}
	if !report.Valid {
		os.Exit(1)
	}
}

func readInput(path string) (*Input, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return &in, nil
}

// simplify runs the greedy simplification over the input. Invariant
// failures are reported in the result, not as an error.
func simplify(in *Input) (*Report, error) {
	switch {
	case len(in.Balances) > 0 && len(in.Debts) > 0:
		return nil, errors.New("input must hold balances or debts, not both")
	case len(in.Balances) == 0 && len(in.Debts) == 0:
		return nil, errors.New("input holds no balances or debts")
	}

	balances := in.Balances
	if len(in.Debts) > 0 {
		balances = make(map[string]decimal.Decimal)
		for i, debt := range in.Debts {
			if debt.From == "" || debt.To == "" || debt.From == debt.To {
				return nil, fmt.Errorf("debt %d: from and to must be two different identities", i+1)
			}
			if !debt.Amount.IsPositive() {
				return nil, fmt.Errorf("debt %d: amount must be positive", i+1)
			}
			balances[debt.From] = balances[debt.From].Sub(debt.Amount)
			balances[debt.To] = balances[debt.To].Add(debt.Amount)
		}
	}

	report := &Report{Balances: balances, Valid: true}
	transfers, err := calculator.SimplifyDebts(balances)
	if err == nil {
		err = calculator.ValidateSimplification(balances, transfers)
	}
	if err != nil {
		report.Valid = false
		report.Error = err.Error()
	}
	report.Transfers = transfers
	if len(in.Debts) > 0 {
		stats := calculator.SimplificationStats(in.Debts, transfers)
		report.Stats = &stats
	}
	return report, nil
}

func humanSummary(r *Report) string {
	var b strings.Builder

	ids := make([]string, 0, len(r.Balances))
	for id := range r.Balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	b.WriteString("Balances:\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "  %-12s %10s\n", id, r.Balances[id].StringFixed(2))
	}

	fmt.Fprintf(&b, "Transfers (%d):\n", len(r.Transfers))
	for _, t := range r.Transfers {
		fmt.Fprintf(&b, "  %s -> %s: %s\n", t.From, t.To, t.Amount.StringFixed(2))
	}

	if r.Stats != nil {
		fmt.Fprintf(&b, "Saved %d of %d transfers (%s%%)\n",
			r.Stats.TransfersSaved, r.Stats.OriginalCount, r.Stats.SavingsPercent.StringFixed(1))
	}
	if !r.Valid {
		fmt.Fprintf(&b, "WARNING: %s\n", r.Error)
	}
	return b.String()
}
