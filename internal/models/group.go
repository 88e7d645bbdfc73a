package models

import "github.com/shopspring/decimal"

// Group is a set of registered identities that share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string `json:"name"`

	// Members are the user IDs of active members.
	Members []string `json:"members"`

	// TotalExpenses is the cached sum of all split transactions in the group.
	TotalExpenses decimal.Decimal `json:"total_expenses"`

	// Settled is true when every member's cached balance is inside the deadband.
	Settled bool `json:"settled"`

	// CreatedBy is the user ID that created the group.
	CreatedBy string `json:"created_by"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`

	// SummaryUpdatedAt is when TotalExpenses and Settled were last refreshed.
	SummaryUpdatedAt int64 `json:"summary_updated_at,omitempty"`
}

// HasMember reports whether userID is an active member.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
