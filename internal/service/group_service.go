package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// GroupService manages groups and their balance views.
type GroupService struct {
	store  storage.Store
	ledger *ledger.Ledger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, l *ledger.Ledger) *GroupService {
	return &GroupService{store: store, ledger: l}
}

// GroupBalances is a group with its per-member balances.
type GroupBalances struct {
	Group    *models.Group
	Balances []models.MemberBalance
}

// CreateGroup creates a new group. The creator is always a member.
func (s *GroupService) CreateGroup(ctx context.Context, actorID, name string, members []string) (*models.Group, error) {
	if err := requireActor("CreateGroup", actorID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &errs.ValidationError{Violations: []string{"group name is required"}}
	}
	slog.Info("CreateGroup request received", "name", name, "members_count", len(members))

	all := append([]string{actorID}, members...)
	group := &models.Group{
		Name:      name,
		Members:   findNewParticipants(all, nil),
		CreatedBy: actorID,
		Settled:   true,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, fmt.Errorf("create group: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// GetGroup retrieves a group the actor belongs to.
func (s *GroupService) GetGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	return s.loadAsMember(ctx, "GetGroup", actorID, groupID)
}

// ListGroups retrieves the actor's groups.
func (s *GroupService) ListGroups(ctx context.Context, actorID string) ([]*models.Group, error) {
	if err := requireActor("ListGroups", actorID); err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroupsByMember(ctx, actorID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, err
	}
	slog.Debug("ListGroups successful", "count", len(groups))
	return groups, nil
}

// AddMembers adds members to a group the actor belongs to.
func (s *GroupService) AddMembers(ctx context.Context, actorID, groupID string, members []string) (*models.Group, error) {
	group, err := s.loadAsMember(ctx, "AddMembers", actorID, groupID)
	if err != nil {
		return nil, err
	}
	newMembers := findNewParticipants(members, group.Members)
	if len(newMembers) == 0 {
		return group, nil
	}
	if err := s.store.AddGroupMembers(ctx, groupID, newMembers); err != nil {
		slog.Error("AddMembers failed", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("add members: %w", err)
	}
	slog.Info("Group members added", "group_id", groupID, "new_members", newMembers)
	if err := s.ledger.RefreshGroup(ctx, groupID); err != nil {
		slog.Warn("Refreshing group balances failed", "group_id", groupID, "error", err)
	}
	return s.store.GetGroup(ctx, groupID)
}

// GetGroupBalances returns the (cached) per-member balances of a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, actorID, groupID string) (*GroupBalances, error) {
	group, err := s.loadAsMember(ctx, "GetGroupBalances", actorID, groupID)
	if err != nil {
		return nil, err
	}
	balances, err := s.ledger.GroupBalances(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return &GroupBalances{Group: group, Balances: balances}, nil
}

// GetGroupSimplifiedSettlements simplifies the debts within a group.
func (s *GroupService) GetGroupSimplifiedSettlements(ctx context.Context, actorID, groupID string) (*ledger.Simplification, error) {
	if _, err := s.loadAsMember(ctx, "GetGroupSimplifiedSettlements", actorID, groupID); err != nil {
		return nil, err
	}
	return s.ledger.GetGroupSimplifiedSettlements(ctx, groupID)
}

func (s *GroupService) loadAsMember(ctx context.Context, op, actorID, groupID string) (*models.Group, error) {
	if err := requireActor(op, actorID); err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(actorID) {
		return nil, errs.Forbidden(op, "you are not a member of group %s", groupID)
	}
	return group, nil
}
