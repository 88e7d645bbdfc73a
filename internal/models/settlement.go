package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementDisputed  SettlementStatus = "disputed"
)

// Settlement represents a payment from one identity to another that
// reduces the debt between them.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// PayerID is the user who paid (debtor settling up).
	PayerID string `json:"payer_id"`

	// RecipientID is the user who received payment (creditor being paid).
	RecipientID string `json:"recipient_id"`

	// Amount is the payment amount. Always positive.
	Amount decimal.Decimal `json:"amount"`

	// Method is how the money moved ("cash", "bank_transfer", ...).
	Method string `json:"method,omitempty"`

	Status SettlementStatus `json:"status"`

	// GroupID is empty for settlements outside any group.
	GroupID string `json:"group_id,omitempty"`

	// TransactionIDs are the transactions this payment is meant to cover.
	TransactionIDs []string `json:"transaction_ids,omitempty"`

	// Note is an optional description for the settlement.
	Note string `json:"note,omitempty"`

	// DisputeReason is set when Status is SettlementDisputed.
	DisputeReason string `json:"dispute_reason,omitempty"`

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string `json:"created_by"`

	CreatedAt   int64 `json:"created_at"`
	UpdatedAt   int64 `json:"updated_at"`
	ConfirmedAt int64 `json:"confirmed_at,omitempty"`
	DisputedAt  int64 `json:"disputed_at,omitempty"`
}

// Involves reports whether userID is the payer or the recipient.
func (s *Settlement) Involves(userID string) bool {
	return s.PayerID == userID || s.RecipientID == userID
}
