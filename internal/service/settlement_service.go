package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// SettlementService records payments between two identities and moves
// them through their lifecycle:
//
//	pending -> confirmed  (recipient only)
//	pending -> disputed   (either party, reason required)
//	any     -> deleted    (either party)
//
// A settlement affects balances from the moment it is created until it is
// deleted. Confirming and disputing only change its status.
type SettlementService struct {
	store  storage.Store
	events events.Publisher
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(store storage.Store, publisher events.Publisher) *SettlementService {
	return &SettlementService{store: store, events: publisher}
}

// NewSettlement describes a payment to record.
type NewSettlement struct {
	// PayerID defaults to the actor.
	PayerID        string
	RecipientID    string
	Amount         decimal.Decimal
	Method         string
	Note           string
	GroupID        string
	TransactionIDs []string
}

// CreateSettlement records a pending payment. The actor must be the payer
// or the recipient.
func (s *SettlementService) CreateSettlement(ctx context.Context, actorID string, in NewSettlement) (*models.Settlement, error) {
	const op = "CreateSettlement"
	if err := requireActor(op, actorID); err != nil {
		return nil, err
	}
	if in.PayerID == "" {
		in.PayerID = actorID
	}

	var violations []string
	if in.RecipientID == "" {
		violations = append(violations, "recipient is required")
	}
	if in.PayerID == in.RecipientID {
		violations = append(violations, "payer and recipient must be different")
	}
	if !in.Amount.IsPositive() {
		violations = append(violations, "amount must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		violations = append(violations, "amount cannot have more than two decimal places")
	}
	if len(violations) > 0 {
		return nil, &errs.ValidationError{Violations: violations}
	}

	if actorID != in.PayerID && actorID != in.RecipientID {
		return nil, errs.Forbidden(op, "you can only record settlements you are part of")
	}
	if err := requireRegistered(ctx, s.store, op, in.PayerID, in.RecipientID); err != nil {
		return nil, err
	}
	if in.GroupID != "" {
		group, err := s.store.GetGroup(ctx, in.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(in.PayerID) || !group.HasMember(in.RecipientID) {
			return nil, errs.Forbidden(op, "both parties must be members of group %s", in.GroupID)
		}
	}

	settlement := &models.Settlement{
		PayerID:        in.PayerID,
		RecipientID:    in.RecipientID,
		Amount:         in.Amount,
		Method:         strings.TrimSpace(in.Method),
		Note:           strings.TrimSpace(in.Note),
		Status:         models.SettlementPending,
		GroupID:        in.GroupID,
		TransactionIDs: in.TransactionIDs,
		CreatedBy:      actorID,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("CreateSettlement failed", "error", err)
		return nil, fmt.Errorf("create settlement: %w", err)
	}

	metrics.SettlementTransitions.WithLabelValues(string(models.SettlementPending)).Inc()
	slog.Info("Settlement created",
		"settlement_id", settlement.ID,
		"payer_id", settlement.PayerID,
		"recipient_id", settlement.RecipientID,
		"amount", settlement.Amount.StringFixed(2),
	)
	s.events.Publish(ctx, events.Event{Kind: events.SettlementCreated, ActorID: actorID, Settlement: settlement})
	return settlement, nil
}

// GetSettlement returns a settlement the actor is part of.
func (s *SettlementService) GetSettlement(ctx context.Context, actorID, settlementID string) (*models.Settlement, error) {
	return s.load(ctx, "GetSettlement", actorID, settlementID)
}

// ListSettlements returns the actor's settlements narrowed by filter.
func (s *SettlementService) ListSettlements(ctx context.Context, actorID string, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	if err := requireActor("ListSettlements", actorID); err != nil {
		return nil, err
	}
	filter.UserID = actorID
	return s.store.ListSettlements(ctx, filter)
}

// ConfirmSettlement acknowledges receipt. Only the recipient may confirm,
// and only a pending settlement. Shares the payer owed the recipient in the
// related transactions are marked settled.
func (s *SettlementService) ConfirmSettlement(ctx context.Context, actorID, settlementID string) (*models.Settlement, error) {
	const op = "ConfirmSettlement"
	settlement, err := s.load(ctx, op, actorID, settlementID)
	if err != nil {
		return nil, err
	}
	if actorID != settlement.RecipientID {
		return nil, errs.Forbidden(op, "only the recipient can confirm a settlement")
	}
	if settlement.Status != models.SettlementPending {
		return nil, errs.InvalidState(op, "settlement %s is %s, not pending", settlementID, settlement.Status)
	}

	now := clock().Unix()
	settlement.Status = models.SettlementConfirmed
	settlement.ConfirmedAt = now
	if err := s.store.UpdateSettlementStatus(ctx, settlement); err != nil {
		slog.Error("ConfirmSettlement failed", "settlement_id", settlementID, "error", err)
		return nil, fmt.Errorf("confirm settlement: %w", err)
	}

	if err := s.store.MarkSharesSettled(ctx, settlement.TransactionIDs, settlement.PayerID, settlement.RecipientID, now); err != nil {
		slog.Warn("Marking shares settled failed",
			"settlement_id", settlementID,
			"error", &errs.DependencyFailure{Dependency: "transaction store", Err: err},
		)
	}

	metrics.SettlementTransitions.WithLabelValues(string(models.SettlementConfirmed)).Inc()
	slog.Info("Settlement confirmed", "settlement_id", settlementID)
	s.events.Publish(ctx, events.Event{Kind: events.SettlementConfirmed, ActorID: actorID, Settlement: settlement})
	return settlement, nil
}

// DisputeSettlement flags a pending settlement. Either party may dispute,
// and a reason is required. Balances are unchanged.
func (s *SettlementService) DisputeSettlement(ctx context.Context, actorID, settlementID, reason string) (*models.Settlement, error) {
	const op = "DisputeSettlement"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &errs.ValidationError{Violations: []string{"a reason is required to dispute a settlement"}}
	}
	settlement, err := s.load(ctx, op, actorID, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status != models.SettlementPending {
		return nil, errs.InvalidState(op, "settlement %s is %s, not pending", settlementID, settlement.Status)
	}

	settlement.Status = models.SettlementDisputed
	settlement.DisputeReason = reason
	settlement.DisputedAt = clock().Unix()
	if err := s.store.UpdateSettlementStatus(ctx, settlement); err != nil {
		slog.Error("DisputeSettlement failed", "settlement_id", settlementID, "error", err)
		return nil, fmt.Errorf("dispute settlement: %w", err)
	}

	metrics.SettlementTransitions.WithLabelValues(string(models.SettlementDisputed)).Inc()
	slog.Info("Settlement disputed", "settlement_id", settlementID, "actor_id", actorID)
	s.events.Publish(ctx, events.Event{Kind: events.SettlementDisputed, ActorID: actorID, Settlement: settlement})
	return settlement, nil
}

// DeleteSettlement removes a settlement in any state. Balances are
// recomputed as if it never existed.
func (s *SettlementService) DeleteSettlement(ctx context.Context, actorID, settlementID string) error {
	const op = "DeleteSettlement"
	settlement, err := s.load(ctx, op, actorID, settlementID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSettlement(ctx, settlementID); err != nil {
		slog.Error("DeleteSettlement failed", "settlement_id", settlementID, "error", err)
		return fmt.Errorf("delete settlement: %w", err)
	}

	metrics.SettlementTransitions.WithLabelValues("deleted").Inc()
	slog.Info("Settlement deleted", "settlement_id", settlementID, "actor_id", actorID)
	s.events.Publish(ctx, events.Event{Kind: events.SettlementDeleted, ActorID: actorID, Settlement: settlement})
	return nil
}

func (s *SettlementService) load(ctx context.Context, op, actorID, settlementID string) (*models.Settlement, error) {
	if err := requireActor(op, actorID); err != nil {
		return nil, err
	}
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if !settlement.Involves(actorID) {
		return nil, errs.Forbidden(op, "you are not part of settlement %s", settlementID)
	}
	return settlement, nil
}
