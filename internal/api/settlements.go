package api

import (
	"context"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/service"
	"github.com/mmynk/settleup/internal/storage"
)

type CreateSettlementRequest struct {
	PayerID        string          `json:"payer_id,omitempty"`
	RecipientID    string          `json:"recipient_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method,omitempty"`
	Note           string          `json:"note,omitempty"`
	GroupID        string          `json:"group_id,omitempty"`
	TransactionIDs []string        `json:"transaction_ids,omitempty"`
}

// SettlementRequest addresses one settlement.
type SettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type DisputeSettlementRequest struct {
	SettlementID string `json:"settlement_id"`
	Reason       string `json:"reason"`
}

type SettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
}

// ListSettlementsRequest narrows the caller's settlements. Empty fields
// are ignored.
type ListSettlementsRequest struct {
	CounterpartID string                  `json:"counterpart_id,omitempty"`
	GroupID       string                  `json:"group_id,omitempty"`
	Status        models.SettlementStatus `json:"status,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []*models.Settlement `json:"settlements"`
}

type DeleteSettlementResponse struct{}

func (s *Server) settlementRoutes(opts []connect.HandlerOption) []route {
	return []route{
		unary(CreateSettlementProcedure, s.createSettlement, opts),
		unary(GetSettlementProcedure, s.getSettlement, opts),
		unary(ListSettlementsProcedure, s.listSettlements, opts),
		unary(ConfirmSettlementProcedure, s.confirmSettlement, opts),
		unary(DisputeSettlementProcedure, s.disputeSettlement, opts),
		unary(DeleteSettlementProcedure, s.deleteSettlement, opts),
	}
}

func (s *Server) createSettlement(ctx context.Context, actorID string, req *CreateSettlementRequest) (*SettlementResponse, error) {
	settlement, err := s.settlements.CreateSettlement(ctx, actorID, service.NewSettlement{
		PayerID:        req.PayerID,
		RecipientID:    req.RecipientID,
		Amount:         req.Amount,
		Method:         req.Method,
		Note:           req.Note,
		GroupID:        req.GroupID,
		TransactionIDs: req.TransactionIDs,
	})
	if err != nil {
		return nil, err
	}
	return &SettlementResponse{Settlement: settlement}, nil
}

func (s *Server) getSettlement(ctx context.Context, actorID string, req *SettlementRequest) (*SettlementResponse, error) {
	settlement, err := s.settlements.GetSettlement(ctx, actorID, req.SettlementID)
	if err != nil {
		return nil, err
	}
	return &SettlementResponse{Settlement: settlement}, nil
}

func (s *Server) listSettlements(ctx context.Context, actorID string, req *ListSettlementsRequest) (*ListSettlementsResponse, error) {
	filter := storage.SettlementFilter{GroupID: req.GroupID, Status: req.Status}
	if req.CounterpartID != "" {
		filter.Between = [2]string{actorID, req.CounterpartID}
	}
	settlements, err := s.settlements.ListSettlements(ctx, actorID, filter)
	if err != nil {
		return nil, err
	}
	return &ListSettlementsResponse{Settlements: settlements}, nil
}

func (s *Server) confirmSettlement(ctx context.Context, actorID string, req *SettlementRequest) (*SettlementResponse, error) {
	settlement, err := s.settlements.ConfirmSettlement(ctx, actorID, req.SettlementID)
	if err != nil {
		return nil, err
	}
	return &SettlementResponse{Settlement: settlement}, nil
}

func (s *Server) disputeSettlement(ctx context.Context, actorID string, req *DisputeSettlementRequest) (*SettlementResponse, error) {
	settlement, err := s.settlements.DisputeSettlement(ctx, actorID, req.SettlementID, req.Reason)
	if err != nil {
		return nil, err
	}
	return &SettlementResponse{Settlement: settlement}, nil
}

func (s *Server) deleteSettlement(ctx context.Context, actorID string, req *SettlementRequest) (*DeleteSettlementResponse, error) {
	if err := s.settlements.DeleteSettlement(ctx, actorID, req.SettlementID); err != nil {
		return nil, err
	}
	return &DeleteSettlementResponse{}, nil
}
