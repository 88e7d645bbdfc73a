package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// Transfer is a payment from one identity to another.
type Transfer struct {
	From   string          `json:"from"` // Person who owes
	To     string          `json:"to"`   // Person who is owed
	Amount decimal.Decimal `json:"amount"`
}

// Filter selects the identities a computation is restricted to. A nil
// Filter accepts everyone.
type Filter func(userID string) bool

// Only returns a Filter accepting the given identities.
func Only(ids ...string) Filter {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func (f Filter) accepts(id string) bool {
	return f == nil || f(id)
}

// CalculateNetBalances nets every split transaction: each registered
// participant other than the payer owes the payer their share.
// Positive = owed money, negative = owes money. The result always sums to zero.
func CalculateNetBalances(txs []*models.Transaction) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsSplit() || tx.PayerID == "" {
			continue
		}
		payer := tx.PayerID
		if _, ok := balances[payer]; !ok {
			balances[payer] = decimal.Zero
		}
		for _, s := range tx.Shares {
			if !s.Participant.IsRegistered() {
				continue
			}
			x := s.Participant.UserID
			if _, ok := balances[x]; !ok {
				balances[x] = decimal.Zero
			}
			if x == payer {
				continue
			}
			balances[x] = balances[x].Sub(s.Amount)
			balances[payer] = balances[payer].Add(s.Amount)
		}
	}
	return balances
}

// ApplySettlements adjusts balances in place: a payment from A to B of x
// raises A's balance by x and lowers B's by x.
func ApplySettlements(balances map[string]decimal.Decimal, settlements []*models.Settlement) {
	for _, s := range settlements {
		balances[s.PayerID] = balances[s.PayerID].Add(s.Amount)
		balances[s.RecipientID] = balances[s.RecipientID].Sub(s.Amount)
	}
}

// pairKey is a canonical (first < second) pair of identities.
type pairKey struct {
	first, second string
}

// pairNets accumulates, for every pair touched by the log, the net amount
// from the first identity's perspective (positive = second owes first).
func pairNets(txs []*models.Transaction, settlements []*models.Settlement, filter Filter) map[pairKey]decimal.Decimal {
	nets := make(map[pairKey]decimal.Decimal)
	// add records that debtor owes creditor amt more.
	add := func(creditor, debtor string, amt decimal.Decimal) {
		if creditor == debtor || !filter.accepts(creditor) || !filter.accepts(debtor) {
			return
		}
		first, second := models.CanonicalPair(creditor, debtor)
		k := pairKey{first, second}
		if first == creditor {
			nets[k] = nets[k].Add(amt)
		} else {
			nets[k] = nets[k].Sub(amt)
		}
	}

	for _, tx := range txs {
		if !tx.IsSplit() || tx.PayerID == "" {
			continue
		}
		for _, s := range tx.Shares {
			if s.Participant.IsRegistered() {
				add(tx.PayerID, s.Participant.UserID, s.Amount)
			}
		}
	}
	for _, s := range settlements {
		add(s.PayerID, s.RecipientID, s.Amount)
	}
	return nets
}

// PairBalance is the net amount between a and b from a's perspective
// (positive = b owes a), over every transaction and settlement between the
// two of them, 1:1 and group alike. Summing PairBalance over all
// counterparts of an identity gives its CalculateNetBalances entry.
func PairBalance(a, b string, txs []*models.Transaction, settlements []*models.Settlement) decimal.Decimal {
	if a == b {
		return decimal.Zero
	}
	first, second := models.CanonicalPair(a, b)
	net := pairNets(txs, settlements, Only(a, b))[pairKey{first, second}]
	if first != a {
		return net.Neg()
	}
	return net
}

// NetBalancesAmong returns net balances restricted to identities accepted
// by filter, settlements included.
func NetBalancesAmong(txs []*models.Transaction, settlements []*models.Settlement, filter Filter) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for k, net := range pairNets(txs, settlements, filter) {
		balances[k.first] = balances[k.first].Add(net)
		balances[k.second] = balances[k.second].Sub(net)
	}
	return balances
}

// PairwiseDebts nets each pair independently and returns one debt per pair
// with a balance outside the deadband, sorted by debtor then creditor.
func PairwiseDebts(txs []*models.Transaction, settlements []*models.Settlement, filter Filter) []Transfer {
	var debts []Transfer
	for k, net := range pairNets(txs, settlements, filter) {
		switch {
		case models.IsSettledAmount(net):
			continue
		case net.IsPositive():
			debts = append(debts, Transfer{From: k.second, To: k.first, Amount: net})
		default:
			debts = append(debts, Transfer{From: k.first, To: k.second, Amount: net.Neg()})
		}
	}
	sort.Slice(debts, func(i, j int) bool {
		if debts[i].From != debts[j].From {
			return debts[i].From < debts[j].From
		}
		return debts[i].To < debts[j].To
	})
	return debts
}

// Counterparts returns every identity that shares a transaction or
// settlement with userID, sorted.
func Counterparts(userID string, txs []*models.Transaction, settlements []*models.Settlement) []string {
	set := make(map[string]bool)
	for _, tx := range txs {
		if !tx.IsSplit() || !tx.Involves(userID) {
			continue
		}
		if tx.PayerID != userID {
			set[tx.PayerID] = true
			continue
		}
		for _, id := range tx.RegisteredParticipants() {
			if id != userID {
				set[id] = true
			}
		}
	}
	for _, s := range settlements {
		switch userID {
		case s.PayerID:
			set[s.RecipientID] = true
		case s.RecipientID:
			set[s.PayerID] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CalculateMemberBalances computes per-member totals for a group's log.
// NetBalance comes from the netting; TotalPaid and TotalOwed are
// informational: amounts paid (transactions and settlements sent) and
// amounts owed (own shares and settlements received).
func CalculateMemberBalances(groupID string, members []string, txs []*models.Transaction, settlements []*models.Settlement, now int64) []models.MemberBalance {
	net := CalculateNetBalances(txs)
	ApplySettlements(net, settlements)

	balances := make(map[string]*models.MemberBalance)
	get := func(id string) *models.MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &models.MemberBalance{GroupID: groupID, MemberID: id, UpdatedAt: now}
		balances[id] = b
		return b
	}
	for _, m := range members {
		get(m)
	}

	for _, tx := range txs {
		if !tx.IsSplit() || tx.PayerID == "" {
			continue
		}
		payer := get(tx.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(tx.Amount)
		for _, s := range tx.Shares {
			if s.Participant.IsRegistered() {
				p := get(s.Participant.UserID)
				p.TotalOwed = p.TotalOwed.Add(s.Amount)
			}
		}
	}
	for _, s := range settlements {
		from := get(s.PayerID)
		from.TotalPaid = from.TotalPaid.Add(s.Amount)
		to := get(s.RecipientID)
		to.TotalOwed = to.TotalOwed.Add(s.Amount)
	}
	for id, b := range balances {
		b.NetBalance = net[id]
	}

	out := make([]models.MemberBalance, 0, len(balances))
	for _, b := range balances {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}
