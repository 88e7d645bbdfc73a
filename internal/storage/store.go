// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// TransactionStore is the queryable log of shared transactions.
type TransactionStore interface {
	// CreateTransaction persists a new transaction. ID and CreatedAt are
	// populated by the store when empty.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// GetTransaction returns an error wrapping errs.ErrNotFound if missing.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// ReplaceSplit overwrites the split type and every share of a
	// transaction in one database transaction. An empty split type with no
	// shares clears the split.
	ReplaceSplit(ctx context.Context, tx *models.Transaction) error

	// MarkSharesSettled flags userID's shares in the given transactions,
	// when paid by payerID, as settled at the given time.
	MarkSharesSettled(ctx context.Context, txIDs []string, userID, payerID string, at int64) error

	// ListSplitTransactionsByUser returns split transactions the user paid
	// or participates in.
	ListSplitTransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error)

	// ListSplitTransactionsBetween returns split transactions where one of
	// the pair paid and the other participates.
	ListSplitTransactionsBetween(ctx context.Context, a, b string) ([]*models.Transaction, error)

	// ListSplitTransactionsByGroup returns split transactions of a group.
	ListSplitTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error)
}

// SettlementFilter narrows ListSettlements. Zero fields are ignored.
type SettlementFilter struct {
	// UserID matches settlements where the user is payer or recipient.
	UserID string
	// Between matches settlements between the two identities, either way.
	Between [2]string
	GroupID string
	Status  models.SettlementStatus
}

// SettlementStore holds recorded payments.
type SettlementStore interface {
	CreateSettlement(ctx context.Context, s *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	// UpdateSettlementStatus persists Status, DisputeReason and the
	// lifecycle timestamps.
	UpdateSettlementStatus(ctx context.Context, s *models.Settlement) error
	DeleteSettlement(ctx context.Context, settlementID string) error
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]*models.Settlement, error)
}

// UserStore is the identity directory.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail and GetUserByID return nil, nil when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs omits IDs that do not exist.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore holds groups and their cached summary.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)
	AddGroupMembers(ctx context.Context, groupID string, members []string) error
	UpdateGroupSummary(ctx context.Context, groupID string, totalExpenses decimal.Decimal, settled bool, at int64) error
}

// NotificationStore persists notifications for later delivery.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID string) ([]*models.Notification, error)
}

// Store defines the full storage surface used by the service layer.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	TransactionStore
	SettlementStore
	UserStore
	GroupStore
	NotificationStore

	// Close releases any resources held by the store.
	Close() error
}
