package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const settlementColumns = `id, payer_id, recipient_id, amount, method, status, group_id, note, dispute_reason,
	created_by, created_at, updated_at, confirmed_at, disputed_at`

// CreateSettlement persists a new settlement to the database.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	// Generate ID if not set
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.UpdatedAt == 0 {
		settlement.UpdatedAt = settlement.CreatedAt
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.PayerID, settlement.RecipientID, settlement.Amount, settlement.Method,
		string(settlement.Status), nullString(settlement.GroupID), nullString(settlement.Note), settlement.DisputeReason,
		settlement.CreatedBy, settlement.CreatedAt, settlement.UpdatedAt, settlement.ConfirmedAt, settlement.DisputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	for _, txID := range settlement.TransactionIDs {
		if _, err := dbtx.ExecContext(ctx,
			"INSERT OR IGNORE INTO settlement_transactions (settlement_id, transaction_id) VALUES (?, ?)",
			settlement.ID, txID,
		); err != nil {
			return fmt.Errorf("failed to link settlement transaction: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlements, err := s.querySettlements(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, settlementID)
	if err != nil {
		return nil, err
	}
	if len(settlements) == 0 {
		return nil, errs.NotFound("GetSettlement", "settlement not found: %s", settlementID)
	}
	return settlements[0], nil
}

// UpdateSettlementStatus persists the lifecycle fields of a settlement.
func (s *SQLiteStore) UpdateSettlementStatus(ctx context.Context, settlement *models.Settlement) error {
	settlement.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE settlements SET status = ?, dispute_reason = ?, confirmed_at = ?, disputed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(settlement.Status), settlement.DisputeReason, settlement.ConfirmedAt, settlement.DisputedAt,
		settlement.UpdatedAt, settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("UpdateSettlementStatus", "settlement not found: %s", settlement.ID)
	}
	return nil
}

// DeleteSettlement removes a settlement by ID.
func (s *SQLiteStore) DeleteSettlement(ctx context.Context, settlementID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM settlements WHERE id = ?", settlementID)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("DeleteSettlement", "settlement not found: %s", settlementID)
	}
	return nil
}

// ListSettlements retrieves settlements matching every non-zero filter field.
func (s *SQLiteStore) ListSettlements(ctx context.Context, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "(payer_id = ? OR recipient_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	if a, b := filter.Between[0], filter.Between[1]; a != "" && b != "" {
		where = append(where, "((payer_id = ? AND recipient_id = ?) OR (payer_id = ? AND recipient_id = ?))")
		args = append(args, a, b, b, a)
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + settlementColumns + ` FROM settlements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	return s.querySettlements(ctx, query, args...)
}

func (s *SQLiteStore) querySettlements(ctx context.Context, query string, args ...any) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}

	var settlements []*models.Settlement
	byID := make(map[string]*models.Settlement)
	for rows.Next() {
		settlement := &models.Settlement{}
		var status string
		var groupID, note sql.NullString

		if err := rows.Scan(&settlement.ID, &settlement.PayerID, &settlement.RecipientID, &settlement.Amount,
			&settlement.Method, &status, &groupID, &note, &settlement.DisputeReason,
			&settlement.CreatedBy, &settlement.CreatedAt, &settlement.UpdatedAt,
			&settlement.ConfirmedAt, &settlement.DisputedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.Status = models.SettlementStatus(status)
		settlement.GroupID = groupID.String
		settlement.Note = note.String

		settlements = append(settlements, settlement)
		byID[settlement.ID] = settlement
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	rows.Close()

	if len(settlements) == 0 {
		return settlements, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	linkRows, err := s.db.QueryContext(ctx,
		`SELECT settlement_id, transaction_id FROM settlement_transactions
		 WHERE settlement_id IN (`+placeholders(len(ids))+`) ORDER BY settlement_id, transaction_id`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement transactions: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var settlementID, txID string
		if err := linkRows.Scan(&settlementID, &txID); err != nil {
			return nil, fmt.Errorf("failed to scan settlement transaction: %w", err)
		}
		byID[settlementID].TransactionIDs = append(byID[settlementID].TransactionIDs, txID)
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement transactions: %w", err)
	}

	return settlements, nil
}
