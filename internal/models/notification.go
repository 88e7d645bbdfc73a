package models

// NotificationKind identifies what a notification is about.
type NotificationKind string

const (
	NotifySharedExpense       NotificationKind = "shared_expense"
	NotifySharedExpenseUpdate NotificationKind = "shared_expense_updated"
	NotifySettlementReceived  NotificationKind = "settlement_received"
	NotifySettlementConfirmed NotificationKind = "settlement_confirmed"
	NotifySettlementDisputed  NotificationKind = "settlement_disputed"
)

// Notification is a message addressed to one registered identity.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	ActorID     string           `json:"actor_id"`
	Kind        NotificationKind `json:"kind"`
	ReferenceID string           `json:"reference_id"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	CreatedAt   int64            `json:"created_at"`
}
