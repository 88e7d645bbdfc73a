package api

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
)

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// GroupRequest addresses one group.
type GroupRequest struct {
	GroupID string `json:"group_id"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type GroupBalancesResponse struct {
	Group    *models.Group          `json:"group"`
	Balances []models.MemberBalance `json:"balances"`
}

func (s *Server) groupRoutes(opts []connect.HandlerOption) []route {
	return []route{
		unary(CreateGroupProcedure, s.createGroup, opts),
		unary(GetGroupProcedure, s.getGroup, opts),
		unary(ListGroupsProcedure, s.listGroups, opts),
		unary(AddMembersProcedure, s.addMembers, opts),
		unary(GetGroupBalancesProcedure, s.getGroupBalances, opts),
		unary(GetGroupSimplifiedSettlementsProcedure, s.getGroupSimplifiedSettlements, opts),
	}
}

func (s *Server) createGroup(ctx context.Context, actorID string, req *CreateGroupRequest) (*GroupResponse, error) {
	group, err := s.groups.CreateGroup(ctx, actorID, req.Name, req.Members)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: group}, nil
}

func (s *Server) getGroup(ctx context.Context, actorID string, req *GroupRequest) (*GroupResponse, error) {
	group, err := s.groups.GetGroup(ctx, actorID, req.GroupID)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: group}, nil
}

func (s *Server) listGroups(ctx context.Context, actorID string, _ *ListGroupsRequest) (*ListGroupsResponse, error) {
	groups, err := s.groups.ListGroups(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &ListGroupsResponse{Groups: groups}, nil
}

func (s *Server) addMembers(ctx context.Context, actorID string, req *AddMembersRequest) (*GroupResponse, error) {
	group, err := s.groups.AddMembers(ctx, actorID, req.GroupID, req.Members)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: group}, nil
}

func (s *Server) getGroupBalances(ctx context.Context, actorID string, req *GroupRequest) (*GroupBalancesResponse, error) {
	balances, err := s.groups.GetGroupBalances(ctx, actorID, req.GroupID)
	if err != nil {
		return nil, err
	}
	return &GroupBalancesResponse{Group: balances.Group, Balances: balances.Balances}, nil
}

func (s *Server) getGroupSimplifiedSettlements(ctx context.Context, actorID string, req *GroupRequest) (*ledger.Simplification, error) {
	return s.groups.GetGroupSimplifiedSettlements(ctx, actorID, req.GroupID)
}
