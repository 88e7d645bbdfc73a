package models

import "github.com/shopspring/decimal"

// Direction is stored relative to the canonical ordering of a pair
// (FirstID < SecondID).
type Direction string

const (
	DirectionFirstOwes  Direction = "first_owes"
	DirectionSecondOwes Direction = "second_owes"
	DirectionSettled    Direction = "settled"
)

// ViewerLabel is a direction translated for one of the two parties.
type ViewerLabel string

const (
	LabelYouOwe  ViewerLabel = "you_owe"
	LabelOwesYou ViewerLabel = "owes_you"
	LabelSettled ViewerLabel = "settled"
)

// Balance is the cached net amount between two identities. It is a derived
// view and is rebuilt from the log on every refresh.
type Balance struct {
	FirstID   string          `json:"first_id"`
	SecondID  string          `json:"second_id"`
	Amount    decimal.Decimal `json:"amount"`
	Direction Direction       `json:"direction"`
	UpdatedAt int64           `json:"updated_at"`
}

// CanonicalPair orders two identities so that a pair has one cache key.
func CanonicalPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// NewBalance builds a canonical Balance from the net amount viewed from a:
// positive means b owes a.
func NewBalance(a, b string, net decimal.Decimal, updatedAt int64) *Balance {
	first, second := CanonicalPair(a, b)
	if first != a {
		net = net.Neg()
	}
	bal := &Balance{FirstID: first, SecondID: second, UpdatedAt: updatedAt}
	switch {
	case IsSettledAmount(net):
		bal.Amount = decimal.Zero
		bal.Direction = DirectionSettled
	case net.IsPositive():
		bal.Amount = net
		bal.Direction = DirectionSecondOwes
	default:
		bal.Amount = net.Neg()
		bal.Direction = DirectionFirstOwes
	}
	return bal
}

// NetFor returns the signed amount from viewer's perspective:
// positive means the counterpart owes the viewer.
func (b *Balance) NetFor(viewer string) decimal.Decimal {
	var net decimal.Decimal
	switch b.Direction {
	case DirectionSecondOwes:
		net = b.Amount
	case DirectionFirstOwes:
		net = b.Amount.Neg()
	default:
		return decimal.Zero
	}
	if viewer == b.SecondID {
		return net.Neg()
	}
	return net
}

// LabelFor translates the stored direction into the viewer's terms.
func (b *Balance) LabelFor(viewer string) ViewerLabel {
	return LabelForNet(b.NetFor(viewer))
}

// LabelForNet labels a viewer-relative signed amount.
func LabelForNet(net decimal.Decimal) ViewerLabel {
	switch {
	case IsSettledAmount(net):
		return LabelSettled
	case net.IsPositive():
		return LabelOwesYou
	default:
		return LabelYouOwe
	}
}

// MemberBalance is the cached net balance of one member within a group.
type MemberBalance struct {
	GroupID    string          `json:"group_id"`
	MemberID   string          `json:"member_id"`
	NetBalance decimal.Decimal `json:"net_balance"` // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal `json:"total_paid"`
	TotalOwed  decimal.Decimal `json:"total_owed"`
	UpdatedAt  int64           `json:"updated_at"`
}
