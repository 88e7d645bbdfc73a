package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
)

// CreateGroup persists a new group and its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at, total_expenses, settled, summary_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
		group.TotalExpenses, boolInt(group.Settled), group.SummaryUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, member := range group.Members {
		if _, err := dbtx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			group.ID, member,
		); err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID with its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	groups, err := s.queryGroups(ctx,
		`SELECT id, name, created_by, created_at, total_expenses, settled, summary_updated_at
		 FROM groups WHERE id = ?`, groupID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, errs.NotFound("GetGroup", "group not found: %s", groupID)
	}
	return groups[0], nil
}

// ListGroupsByMember returns all groups the user belongs to.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.queryGroups(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at, g.total_expenses, g.settled, g.summary_updated_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at, g.id`, userID)
}

// AddGroupMembers adds members to a group. Existing members are ignored.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, members []string) error {
	if len(members) == 0 {
		return nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var exists int
	if err := dbtx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", groupID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}
	if exists == 0 {
		return errs.NotFound("AddGroupMembers", "group not found: %s", groupID)
	}

	for _, member := range members {
		if _, err := dbtx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			groupID, member,
		); err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateGroupSummary stores the cached total and settled flag of a group.
func (s *SQLiteStore) UpdateGroupSummary(ctx context.Context, groupID string, totalExpenses decimal.Decimal, settled bool, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET total_expenses = ?, settled = ?, summary_updated_at = ? WHERE id = ?",
		totalExpenses, boolInt(settled), at, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("UpdateGroupSummary", "group not found: %s", groupID)
	}
	return nil
}

func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}

	var groups []*models.Group
	byID := make(map[string]*models.Group)
	for rows.Next() {
		group := &models.Group{}
		var settled int
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt,
			&group.TotalExpenses, &settled, &group.SummaryUpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.Settled = settled != 0
		groups = append(groups, group)
		byID[group.ID] = group
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	if len(groups) == 0 {
		return groups, nil
	}

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	memberRows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id FROM group_members
		 WHERE group_id IN (`+placeholders(len(ids))+`) ORDER BY group_id, user_id`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupID, userID string
		if err := memberRows.Scan(&groupID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		byID[groupID].Members = append(byID[groupID].Members, userID)
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return groups, nil
}
