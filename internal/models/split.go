package models

import (
	"github.com/shopspring/decimal"
)

// Deadband is the tolerance below which an amount is treated as zero.
var Deadband = decimal.NewFromFloat(0.01)

// IsSettledAmount reports whether the amount lies inside the deadband.
func IsSettledAmount(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Deadband)
}

// SplitType describes how a transaction total is divided.
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitPercentage SplitType = "percentage"
	SplitCustom     SplitType = "custom"
)

// Valid reports whether t is a known split type.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

// ParticipantKind tags the Participant variant.
type ParticipantKind string

const (
	KindRegistered ParticipantKind = "registered"
	KindExternal   ParticipantKind = "external"
)

// Participant is one side of a share: either a registered identity
// (UserID set) or an external participant known only by Name.
type Participant struct {
	Kind   ParticipantKind `json:"kind"`
	UserID string          `json:"user_id,omitempty"`
	Name   string          `json:"name,omitempty"`
}

// RegisteredIdentity returns a participant backed by a user account.
func RegisteredIdentity(userID string) Participant {
	return Participant{Kind: KindRegistered, UserID: userID}
}

// ExternalParticipant returns a participant without an account.
func ExternalParticipant(name string) Participant {
	return Participant{Kind: KindExternal, Name: name}
}

// IsRegistered reports whether the participant is a registered identity.
func (p Participant) IsRegistered() bool {
	return p.Kind == KindRegistered && p.UserID != ""
}

// Valid reports whether exactly the field required by Kind is populated.
func (p Participant) Valid() bool {
	switch p.Kind {
	case KindRegistered:
		return p.UserID != "" && p.Name == ""
	case KindExternal:
		return p.Name != "" && p.UserID == ""
	}
	return false
}

// Key is a stable identifier usable as a map key across both variants.
func (p Participant) Key() string {
	if p.Kind == KindExternal {
		return "external:" + p.Name
	}
	return p.UserID
}

// ParticipantShare is one participant's part of a split transaction.
type ParticipantShare struct {
	Participant Participant `json:"participant"`

	// Amount is the share of the transaction total, in [0, total].
	Amount decimal.Decimal `json:"amount"`

	// Percentage is set only for percentage splits.
	Percentage decimal.NullDecimal `json:"percentage"`

	// Settled is informational; netting never reads it.
	Settled bool `json:"settled"`

	// SettledAt is the Unix timestamp the share was marked settled (0 if not).
	SettledAt int64 `json:"settled_at,omitempty"`
}

// Transaction is an expense paid by one identity, optionally split among
// several participants.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string `json:"id"`

	// Description is a free-text label ("Dinner", "Rent March").
	Description string `json:"description"`

	// Amount is the total paid. Always positive.
	Amount decimal.Decimal `json:"amount"`

	// PayerID is the registered identity that paid the total.
	PayerID string `json:"payer_id"`

	// GroupID is empty for 1:1 expenses.
	GroupID string `json:"group_id,omitempty"`

	// SplitType is empty while the transaction is not split.
	SplitType SplitType `json:"split_type"`

	// Shares are overwritten wholesale on every split update and cleared
	// when the split is removed.
	Shares []ParticipantShare `json:"shares"`

	// CreatedBy is the user ID that recorded the transaction.
	CreatedBy string `json:"created_by"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// IsSplit reports whether the transaction currently carries a split.
func (t *Transaction) IsSplit() bool {
	return t.SplitType != "" && len(t.Shares) > 0
}

// RegisteredParticipants returns the user IDs of all registered participants.
func (t *Transaction) RegisteredParticipants() []string {
	var ids []string
	for _, s := range t.Shares {
		if s.Participant.IsRegistered() {
			ids = append(ids, s.Participant.UserID)
		}
	}
	return ids
}

// Involves reports whether userID paid or participates in the transaction.
func (t *Transaction) Involves(userID string) bool {
	if t.PayerID == userID {
		return true
	}
	for _, s := range t.Shares {
		if s.Participant.IsRegistered() && s.Participant.UserID == userID {
			return true
		}
	}
	return false
}
