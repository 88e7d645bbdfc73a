package api

import (
	"context"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
)

type CalculateBalanceRequest struct {
	OtherUserID string `json:"other_user_id"`
}

type CalculateBalanceResponse struct {
	Balance *models.Balance `json:"balance"`
	// Net is positive when the other user owes the caller.
	Net   decimal.Decimal    `json:"net"`
	Label models.ViewerLabel `json:"label"`
}

type GetFriendListRequest struct{}

type GetFriendDetailsRequest struct {
	FriendID string `json:"friend_id"`
}

type GetSimplifiedSettlementsRequest struct {
	CounterpartIDs []string `json:"counterpart_ids,omitempty"`
}

type ListNotificationsRequest struct{}

type ListNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
}

func (s *Server) balanceRoutes(opts []connect.HandlerOption) []route {
	return []route{
		unary(CalculateBalanceProcedure, s.calculateBalance, opts),
		unary(GetFriendListProcedure, s.getFriendList, opts),
		unary(GetFriendDetailsProcedure, s.getFriendDetails, opts),
		unary(GetSimplifiedSettlementsProcedure, s.getSimplifiedSettlements, opts),
		unary(ListNotificationsProcedure, s.listNotifications, opts),
	}
}

func (s *Server) calculateBalance(ctx context.Context, actorID string, req *CalculateBalanceRequest) (*CalculateBalanceResponse, error) {
	view, err := s.balances.CalculateBalance(ctx, actorID, req.OtherUserID)
	if err != nil {
		return nil, err
	}
	return &CalculateBalanceResponse{Balance: view.Balance, Net: view.Net, Label: view.Label}, nil
}

func (s *Server) getFriendList(ctx context.Context, actorID string, _ *GetFriendListRequest) (*ledger.FriendList, error) {
	return s.balances.GetFriendList(ctx, actorID)
}

func (s *Server) getFriendDetails(ctx context.Context, actorID string, req *GetFriendDetailsRequest) (*ledger.FriendDetails, error) {
	return s.balances.GetFriendDetails(ctx, actorID, req.FriendID)
}

func (s *Server) getSimplifiedSettlements(ctx context.Context, actorID string, req *GetSimplifiedSettlementsRequest) (*ledger.Simplification, error) {
	return s.balances.GetSimplifiedSettlements(ctx, actorID, req.CounterpartIDs)
}

func (s *Server) listNotifications(ctx context.Context, actorID string, _ *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	notes, err := s.balances.ListNotifications(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &ListNotificationsResponse{Notifications: notes}, nil
}
