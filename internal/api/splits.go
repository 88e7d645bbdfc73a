package api

import (
	"context"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/service"
)

type CreateTransactionRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PayerID     string          `json:"payer_id,omitempty"`
	GroupID     string          `json:"group_id,omitempty"`
}

type GetTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type TransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
}

type ValidateSplitRequest struct {
	Amount       decimal.Decimal           `json:"amount"`
	PayerID      string                    `json:"payer_id,omitempty"`
	SplitType    models.SplitType          `json:"split_type"`
	Participants []models.ParticipantShare `json:"participants"`
}

type ValidateSplitResponse struct {
	Shares  []models.ParticipantShare `json:"shares"`
	IsValid bool                      `json:"is_valid"`
	Errors  []string                  `json:"errors,omitempty"`
}

type CalculateEqualSplitRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type CalculatePercentageSplitRequest struct {
	Amount      decimal.Decimal   `json:"amount"`
	Percentages []decimal.Decimal `json:"percentages"`
}

type SplitAmountsResponse struct {
	Shares []decimal.Decimal `json:"shares"`
}

// SplitRequest creates or replaces the split of a transaction.
type SplitRequest struct {
	TransactionID string                    `json:"transaction_id"`
	SplitType     models.SplitType          `json:"split_type"`
	Participants  []models.ParticipantShare `json:"participants"`
}

type RemoveSplitRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (s *Server) splitRoutes(opts []connect.HandlerOption) []route {
	return []route{
		unary(CreateTransactionProcedure, s.createTransaction, opts),
		unary(GetTransactionProcedure, s.getTransaction, opts),
		unary(ValidateSplitProcedure, s.validateSplit, opts),
		unary(CalculateEqualSplitProcedure, s.calculateEqualSplit, opts),
		unary(CalculatePercentageSplitProcedure, s.calculatePercentageSplit, opts),
		unary(CreateSplitProcedure, s.createSplit, opts),
		unary(UpdateSplitProcedure, s.updateSplit, opts),
		unary(RemoveSplitProcedure, s.removeSplit, opts),
	}
}

func (s *Server) createTransaction(ctx context.Context, actorID string, req *CreateTransactionRequest) (*TransactionResponse, error) {
	tx, err := s.splits.CreateTransaction(ctx, actorID, service.NewTransaction{
		Description: req.Description,
		Amount:      req.Amount,
		PayerID:     req.PayerID,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{Transaction: tx}, nil
}

func (s *Server) getTransaction(ctx context.Context, actorID string, req *GetTransactionRequest) (*TransactionResponse, error) {
	tx, err := s.splits.GetTransaction(ctx, actorID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{Transaction: tx}, nil
}

func (s *Server) validateSplit(_ context.Context, _ string, req *ValidateSplitRequest) (*ValidateSplitResponse, error) {
	shares, result := s.splits.ValidateSplit(req.Amount, req.PayerID, service.SplitConfig{
		SplitType:    req.SplitType,
		Participants: req.Participants,
	})
	return &ValidateSplitResponse{Shares: shares, IsValid: result.IsValid, Errors: result.Errors}, nil
}

func (s *Server) calculateEqualSplit(_ context.Context, _ string, req *CalculateEqualSplitRequest) (*SplitAmountsResponse, error) {
	shares, err := calculator.CalculateEqualSplit(req.Amount, req.Count)
	if err != nil {
		return nil, &errs.ValidationError{Violations: []string{err.Error()}}
	}
	return &SplitAmountsResponse{Shares: shares}, nil
}

func (s *Server) calculatePercentageSplit(_ context.Context, _ string, req *CalculatePercentageSplitRequest) (*SplitAmountsResponse, error) {
	shares, err := calculator.CalculatePercentageSplit(req.Amount, req.Percentages)
	if err != nil {
		return nil, &errs.ValidationError{Violations: []string{err.Error()}}
	}
	return &SplitAmountsResponse{Shares: shares}, nil
}

func (s *Server) createSplit(ctx context.Context, actorID string, req *SplitRequest) (*TransactionResponse, error) {
	tx, err := s.splits.CreateSplit(ctx, actorID, req.TransactionID, req.config())
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{Transaction: tx}, nil
}

func (s *Server) updateSplit(ctx context.Context, actorID string, req *SplitRequest) (*TransactionResponse, error) {
	tx, err := s.splits.UpdateSplit(ctx, actorID, req.TransactionID, req.config())
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{Transaction: tx}, nil
}

func (s *Server) removeSplit(ctx context.Context, actorID string, req *RemoveSplitRequest) (*TransactionResponse, error) {
	tx, err := s.splits.RemoveSplit(ctx, actorID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{Transaction: tx}, nil
}

func (r *SplitRequest) config() service.SplitConfig {
	return service.SplitConfig{SplitType: r.SplitType, Participants: r.Participants}
}
