package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
)

const transactionColumns = `id, description, amount, payer_id, group_id, split_type, created_by, created_at, updated_at`

// CreateTransaction persists a new transaction and any shares it carries.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	// Generate IDs if not set
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = t.CreatedAt
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, t.Amount, t.PayerID, nullString(t.GroupID), string(t.SplitType),
		t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := insertShares(ctx, dbtx, t.ID, t.Shares); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertShares(ctx context.Context, dbtx *sql.Tx, txID string, shares []models.ParticipantShare) error {
	for i, sh := range shares {
		_, err := dbtx.ExecContext(ctx,
			`INSERT INTO transaction_shares (transaction_id, position, kind, user_id, name, amount, percentage, settled, settled_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txID, i, string(sh.Participant.Kind), sh.Participant.UserID, sh.Participant.Name,
			sh.Amount, sh.Percentage, boolInt(sh.Settled), sh.SettledAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// GetTransaction retrieves a transaction by ID, including its shares.
func (s *SQLiteStore) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	txs, err := s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, txID)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, errs.NotFound("GetTransaction", "transaction not found: %s", txID)
	}
	return txs[0], nil
}

// ReplaceSplit overwrites the split type and every share of a transaction.
func (s *SQLiteStore) ReplaceSplit(ctx context.Context, t *models.Transaction) error {
	t.UpdatedAt = time.Now().Unix()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		"UPDATE transactions SET split_type = ?, group_id = ?, updated_at = ? WHERE id = ?",
		string(t.SplitType), nullString(t.GroupID), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("ReplaceSplit", "transaction not found: %s", t.ID)
	}

	if _, err := dbtx.ExecContext(ctx, "DELETE FROM transaction_shares WHERE transaction_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to clear shares: %w", err)
	}
	if err := insertShares(ctx, dbtx, t.ID, t.Shares); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkSharesSettled flags userID's shares in transactions paid by payerID.
func (s *SQLiteStore) MarkSharesSettled(ctx context.Context, txIDs []string, userID, payerID string, at int64) error {
	if len(txIDs) == 0 {
		return nil
	}
	args := []any{at, userID, payerID}
	args = append(args, stringArgs(txIDs)...)
	_, err := s.db.ExecContext(ctx,
		`UPDATE transaction_shares SET settled = 1, settled_at = ?
		 WHERE settled = 0 AND user_id = ?
		   AND transaction_id IN (SELECT id FROM transactions WHERE payer_id = ? AND id IN (`+placeholders(len(txIDs))+`))`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark shares settled: %w", err)
	}
	return nil
}

// ListSplitTransactionsByUser returns split transactions the user paid or participates in.
func (s *SQLiteStore) ListSplitTransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.split_type <> ''
		   AND (t.payer_id = ? OR EXISTS (
		        SELECT 1 FROM transaction_shares sh WHERE sh.transaction_id = t.id AND sh.user_id = ?))
		 ORDER BY t.created_at, t.id`,
		userID, userID,
	)
}

// ListSplitTransactionsBetween returns split transactions linking a and b.
func (s *SQLiteStore) ListSplitTransactionsBetween(ctx context.Context, a, b string) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.split_type <> ''
		   AND ((t.payer_id = ? AND EXISTS (
		            SELECT 1 FROM transaction_shares sh WHERE sh.transaction_id = t.id AND sh.user_id = ?))
		     OR (t.payer_id = ? AND EXISTS (
		            SELECT 1 FROM transaction_shares sh WHERE sh.transaction_id = t.id AND sh.user_id = ?)))
		 ORDER BY t.created_at, t.id`,
		a, b, b, a,
	)
}

// ListSplitTransactionsByGroup returns split transactions of a group.
func (s *SQLiteStore) ListSplitTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.split_type <> '' AND t.group_id = ?
		 ORDER BY t.created_at, t.id`,
		groupID,
	)
}

// queryTransactions runs a transactions query, then loads the shares of
// every returned row with a single follow-up query.
func (s *SQLiteStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var txs []*models.Transaction
	byID := make(map[string]*models.Transaction)
	for rows.Next() {
		t := &models.Transaction{}
		var groupID sql.NullString
		var splitType string
		if err := rows.Scan(&t.ID, &t.Description, &t.Amount, &t.PayerID, &groupID, &splitType,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.GroupID = groupID.String
		t.SplitType = models.SplitType(splitType)
		txs = append(txs, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	rows.Close()

	if len(txs) == 0 {
		return txs, nil
	}

	ids := make([]string, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	shareRows, err := s.db.QueryContext(ctx,
		`SELECT transaction_id, kind, user_id, name, amount, percentage, settled, settled_at
		 FROM transaction_shares WHERE transaction_id IN (`+placeholders(len(ids))+`)
		 ORDER BY transaction_id, position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var txID, kind string
		var settled int
		sh := models.ParticipantShare{}
		if err := shareRows.Scan(&txID, &kind, &sh.Participant.UserID, &sh.Participant.Name,
			&sh.Amount, &sh.Percentage, &settled, &sh.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		sh.Participant.Kind = models.ParticipantKind(kind)
		sh.Settled = settled != 0
		if t, ok := byID[txID]; ok {
			t.Shares = append(t.Shares, sh)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return txs, nil
}
