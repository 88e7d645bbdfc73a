package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/settleup/internal/models"
)

// Cache stores derived balances in the same SQLite database as the log.
// It satisfies ledger.BalanceCache when no Redis is configured.
type Cache struct {
	db *sql.DB
}

// BalanceCache returns a balance cache backed by this store's database.
func (s *SQLiteStore) BalanceCache() *Cache {
	return &Cache{db: s.db}
}

// GetPair returns the cached balance between a and b, or nil if absent.
func (c *Cache) GetPair(ctx context.Context, a, b string) (*models.Balance, error) {
	first, second := models.CanonicalPair(a, b)
	bal := &models.Balance{FirstID: first, SecondID: second}
	var direction string
	err := c.db.QueryRowContext(ctx,
		"SELECT amount, direction, updated_at FROM balances WHERE first_id = ? AND second_id = ?",
		first, second,
	).Scan(&bal.Amount, &direction, &bal.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached balance: %w", err)
	}
	bal.Direction = models.Direction(direction)
	return bal, nil
}

// PutPair overwrites the cached balance of a pair.
func (c *Cache) PutPair(ctx context.Context, bal *models.Balance) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO balances (first_id, second_id, amount, direction, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(first_id, second_id) DO UPDATE SET
		   amount = excluded.amount, direction = excluded.direction, updated_at = excluded.updated_at`,
		bal.FirstID, bal.SecondID, bal.Amount, string(bal.Direction), bal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put cached balance: %w", err)
	}
	return nil
}

// GetMemberBalances returns the cached member balances of a group, ordered by member ID.
func (c *Cache) GetMemberBalances(ctx context.Context, groupID string) ([]models.MemberBalance, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT member_id, net_balance, total_paid, total_owed, updated_at
		 FROM group_member_balances WHERE group_id = ? ORDER BY member_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member balances: %w", err)
	}
	defer rows.Close()

	var balances []models.MemberBalance
	for rows.Next() {
		mb := models.MemberBalance{GroupID: groupID}
		if err := rows.Scan(&mb.MemberID, &mb.NetBalance, &mb.TotalPaid, &mb.TotalOwed, &mb.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member balance: %w", err)
		}
		balances = append(balances, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member balances: %w", err)
	}
	return balances, nil
}

// PutMemberBalances replaces every cached member balance of a group.
func (c *Cache) PutMemberBalances(ctx context.Context, groupID string, balances []models.MemberBalance) error {
	dbtx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, "DELETE FROM group_member_balances WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear member balances: %w", err)
	}
	for _, mb := range balances {
		if _, err := dbtx.ExecContext(ctx,
			`INSERT INTO group_member_balances (group_id, member_id, net_balance, total_paid, total_owed, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, mb.MemberID, mb.NetBalance, mb.TotalPaid, mb.TotalOwed, mb.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert member balance: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
