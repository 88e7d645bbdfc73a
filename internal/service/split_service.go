package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// SplitService records transactions and manages their splits.
type SplitService struct {
	store  storage.Store
	events events.Publisher
}

// NewSplitService creates a new SplitService with the given storage backend.
func NewSplitService(store storage.Store, publisher events.Publisher) *SplitService {
	return &SplitService{store: store, events: publisher}
}

// NewTransaction describes an expense before it is split.
type NewTransaction struct {
	Description string
	Amount      decimal.Decimal
	// PayerID defaults to the actor.
	PayerID string
	GroupID string
}

// SplitConfig is a proposed division of a transaction. For equal splits
// amounts are derived; for percentage splits each participant carries a
// percentage; custom splits carry explicit amounts.
type SplitConfig struct {
	SplitType    models.SplitType
	Participants []models.ParticipantShare
}

// CreateTransaction records an unsplit expense paid by in.PayerID.
func (s *SplitService) CreateTransaction(ctx context.Context, actorID string, in NewTransaction) (*models.Transaction, error) {
	if err := requireActor("CreateTransaction", actorID); err != nil {
		return nil, err
	}
	if in.PayerID == "" {
		in.PayerID = actorID
	}

	var violations []string
	if !in.Amount.IsPositive() {
		violations = append(violations, "amount must be greater than zero")
	}
	if strings.TrimSpace(in.Description) == "" {
		violations = append(violations, "description is required")
	}
	if len(violations) > 0 {
		return nil, &errs.ValidationError{Violations: violations}
	}

	if in.GroupID != "" {
		group, err := s.store.GetGroup(ctx, in.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(actorID) {
			return nil, errs.Forbidden("CreateTransaction", "you must be a member of group %s", in.GroupID)
		}
	} else if in.PayerID != actorID {
		return nil, errs.Forbidden("CreateTransaction", "only the payer can record a 1:1 expense")
	}
	if in.PayerID != actorID {
		if err := requireRegistered(ctx, s.store, "CreateTransaction", in.PayerID); err != nil {
			return nil, err
		}
	}

	tx := &models.Transaction{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PayerID:     in.PayerID,
		GroupID:     in.GroupID,
		CreatedBy:   actorID,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		slog.Error("CreateTransaction failed", "error", err)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	slog.Info("Transaction created", "transaction_id", tx.ID, "amount", tx.Amount.StringFixed(2), "payer_id", tx.PayerID)
	// No split event follows yet, so the group cache learns of the payer here.
	if added := s.autoAddParticipantsToGroup(ctx, tx.GroupID, nil, tx.PayerID); len(added) > 0 {
		s.events.Publish(ctx, events.Event{
			Kind:       events.GroupMembersAdded,
			ActorID:    actorID,
			Group:      tx.GroupID,
			NewMembers: added,
		})
	}
	return tx, nil
}

// GetTransaction returns a transaction the actor paid, created or takes part in.
func (s *SplitService) GetTransaction(ctx context.Context, actorID, txID string) (*models.Transaction, error) {
	if err := requireActor("GetTransaction", actorID); err != nil {
		return nil, err
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, actorID, tx) {
		return nil, errs.Forbidden("GetTransaction", "you must be involved to view transaction %s", txID)
	}
	return tx, nil
}

// ValidateSplit derives the shares a configuration produces for amount and
// validates them. It has no side effects.
func (s *SplitService) ValidateSplit(amount decimal.Decimal, payerID string, cfg SplitConfig) ([]models.ParticipantShare, calculator.ValidationResult) {
	shares := calculator.AllocateShares(amount, cfg.SplitType, payerID, cfg.Participants, calculator.RemainderToPayer)
	return shares, calculator.ValidateSplit(amount, cfg.SplitType, shares)
}

// CreateSplit attaches a split to an unsplit transaction.
func (s *SplitService) CreateSplit(ctx context.Context, actorID, txID string, cfg SplitConfig) (*models.Transaction, error) {
	const op = "CreateSplit"
	tx, err := s.loadForSplit(ctx, op, actorID, txID, cfg)
	if err != nil {
		return nil, err
	}
	if tx.IsSplit() {
		return nil, errs.InvalidState(op, "transaction %s is already split", txID)
	}

	if err := s.applySplit(ctx, op, tx, cfg); err != nil {
		return nil, err
	}

	metrics.SplitOperations.WithLabelValues("create").Inc()
	slog.Info("Split created", "transaction_id", tx.ID, "split_type", tx.SplitType, "participants", len(tx.Shares))
	s.events.Publish(ctx, events.Event{Kind: events.SplitCreated, ActorID: actorID, Transaction: tx})
	return tx, nil
}

// UpdateSplit overwrites every share of a split transaction.
func (s *SplitService) UpdateSplit(ctx context.Context, actorID, txID string, cfg SplitConfig) (*models.Transaction, error) {
	const op = "UpdateSplit"
	tx, err := s.loadForSplit(ctx, op, actorID, txID, cfg)
	if err != nil {
		return nil, err
	}
	if !tx.IsSplit() {
		return nil, errs.InvalidState(op, "transaction %s is not split", txID)
	}
	previous := tx.RegisteredParticipants()

	if err := s.applySplit(ctx, op, tx, cfg); err != nil {
		return nil, err
	}

	metrics.SplitOperations.WithLabelValues("update").Inc()
	slog.Info("Split updated", "transaction_id", tx.ID, "split_type", tx.SplitType, "participants", len(tx.Shares))
	s.events.Publish(ctx, events.Event{
		Kind:                 events.SplitUpdated,
		ActorID:              actorID,
		Transaction:          tx,
		PreviousParticipants: previous,
	})
	return tx, nil
}

// RemoveSplit clears the shares of a split transaction.
func (s *SplitService) RemoveSplit(ctx context.Context, actorID, txID string) (*models.Transaction, error) {
	const op = "RemoveSplit"
	tx, err := s.loadForSplit(ctx, op, actorID, txID, SplitConfig{})
	if err != nil {
		return nil, err
	}
	if !tx.IsSplit() {
		return nil, errs.InvalidState(op, "transaction %s is not split", txID)
	}
	previous := tx.RegisteredParticipants()

	tx.SplitType = ""
	tx.Shares = nil
	if err := s.store.ReplaceSplit(ctx, tx); err != nil {
		slog.Error("RemoveSplit failed", "transaction_id", txID, "error", err)
		return nil, fmt.Errorf("remove split: %w", err)
	}

	metrics.SplitOperations.WithLabelValues("remove").Inc()
	slog.Info("Split removed", "transaction_id", tx.ID)
	s.events.Publish(ctx, events.Event{
		Kind:                 events.SplitRemoved,
		ActorID:              actorID,
		Transaction:          tx,
		PreviousParticipants: previous,
	})
	return tx, nil
}

// loadForSplit fetches the transaction and checks that the actor may change
// its split: the payer, the creator, or a current or proposed participant.
func (s *SplitService) loadForSplit(ctx context.Context, op, actorID, txID string, cfg SplitConfig) (*models.Transaction, error) {
	if err := requireActor(op, actorID); err != nil {
		return nil, err
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.PayerID == actorID || tx.CreatedBy == actorID || tx.Involves(actorID) {
		return tx, nil
	}
	for _, p := range cfg.Participants {
		if p.Participant.IsRegistered() && p.Participant.UserID == actorID {
			return tx, nil
		}
	}
	return nil, errs.Forbidden(op, "you must be a participant to change transaction %s", txID)
}

// applySplit allocates, validates and persists the shares. Nothing is
// written if validation fails or a registered participant is unknown.
func (s *SplitService) applySplit(ctx context.Context, op string, tx *models.Transaction, cfg SplitConfig) error {
	shares, result := s.ValidateSplit(tx.Amount, tx.PayerID, cfg)
	if !result.IsValid {
		return &errs.ValidationError{Violations: result.Errors}
	}
	var registered []string
	for _, sh := range shares {
		if sh.Participant.IsRegistered() {
			registered = append(registered, sh.Participant.UserID)
		}
	}
	if err := requireRegistered(ctx, s.store, op, registered...); err != nil {
		return err
	}

	now := clock().Unix()
	for i := range shares {
		if shares[i].Participant.IsRegistered() && shares[i].Participant.UserID == tx.PayerID {
			shares[i].Settled = true
			shares[i].SettledAt = now
		}
	}

	tx.SplitType = cfg.SplitType
	tx.Shares = shares
	if err := s.store.ReplaceSplit(ctx, tx); err != nil {
		slog.Error("Saving split failed", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("save split: %w", err)
	}

	s.autoAddParticipantsToGroup(ctx, tx.GroupID, tx.RegisteredParticipants(), tx.PayerID)
	return nil
}

func (s *SplitService) canView(ctx context.Context, actorID string, tx *models.Transaction) bool {
	if tx.CreatedBy == actorID || tx.Involves(actorID) {
		return true
	}
	if tx.GroupID == "" {
		return false
	}
	group, err := s.store.GetGroup(ctx, tx.GroupID)
	return err == nil && group.HasMember(actorID)
}

// autoAddParticipantsToGroup adds any registered participants (and the payer)
// not already in the group and returns the members it added.
func (s *SplitService) autoAddParticipantsToGroup(ctx context.Context, groupID string, participants []string, payerID string) []string {
	if groupID == "" {
		return nil
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Warn("autoAddParticipantsToGroup: failed to get group", "group_id", groupID, "error", err)
		return nil
	}

	// Collect all people to potentially add (participants + payer)
	allPeople := make([]string, 0, len(participants)+1)
	allPeople = append(allPeople, participants...)
	if payerID != "" && !isParticipant(payerID, participants) {
		allPeople = append(allPeople, payerID)
	}

	newMembers := findNewParticipants(allPeople, group.Members)
	if len(newMembers) == 0 {
		return nil
	}

	if err := s.store.AddGroupMembers(ctx, groupID, newMembers); err != nil {
		slog.Error("autoAddParticipantsToGroup: failed to add members", "group_id", groupID, "error", err)
		return nil
	}
	slog.Info("Auto-added participants to group", "group_id", groupID, "new_members", newMembers)
	return newMembers
}
