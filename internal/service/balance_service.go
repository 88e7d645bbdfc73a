package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// BalanceService exposes the viewer-relative balance views of the ledger
// and the actor's notifications.
type BalanceService struct {
	store  storage.Store
	ledger *ledger.Ledger
}

// NewBalanceService creates a BalanceService.
func NewBalanceService(store storage.Store, l *ledger.Ledger) *BalanceService {
	return &BalanceService{store: store, ledger: l}
}

// PairView is the balance between the actor and one counterpart.
type PairView struct {
	Balance *models.Balance
	// Net is positive when the counterpart owes the actor.
	Net   decimal.Decimal
	Label models.ViewerLabel
}

// CalculateBalance recomputes the balance between the actor and otherID.
func (s *BalanceService) CalculateBalance(ctx context.Context, actorID, otherID string) (*PairView, error) {
	const op = "CalculateBalance"
	if err := requireActor(op, actorID); err != nil {
		return nil, err
	}
	if otherID == "" {
		return nil, &errs.ValidationError{Violations: []string{"counterpart is required"}}
	}
	if otherID == actorID {
		return nil, errs.InvalidState(op, "cannot compute a balance with yourself")
	}

	bal, err := s.ledger.PairBalance(ctx, actorID, otherID)
	if err != nil {
		slog.Error("CalculateBalance failed", "other_id", otherID, "error", err)
		return nil, err
	}
	return &PairView{Balance: bal, Net: bal.NetFor(actorID), Label: bal.LabelFor(actorID)}, nil
}

// GetFriendList returns every counterpart of the actor with its balance.
func (s *BalanceService) GetFriendList(ctx context.Context, actorID string) (*ledger.FriendList, error) {
	if err := requireActor("GetFriendList", actorID); err != nil {
		return nil, err
	}
	return s.ledger.GetFriendList(ctx, actorID)
}

// GetFriendDetails returns the balance with friendID and the records behind it.
func (s *BalanceService) GetFriendDetails(ctx context.Context, actorID, friendID string) (*ledger.FriendDetails, error) {
	if err := requireActor("GetFriendDetails", actorID); err != nil {
		return nil, err
	}
	if friendID == "" {
		return nil, &errs.ValidationError{Violations: []string{"friend is required"}}
	}
	return s.ledger.GetFriendDetails(ctx, actorID, friendID)
}

// GetSimplifiedSettlements simplifies the debts between the actor and the
// given counterparts, or all of them when none are named.
func (s *BalanceService) GetSimplifiedSettlements(ctx context.Context, actorID string, counterparts []string) (*ledger.Simplification, error) {
	if err := requireActor("GetSimplifiedSettlements", actorID); err != nil {
		return nil, err
	}
	return s.ledger.GetSimplifiedSettlements(ctx, actorID, findNewParticipants(counterparts, []string{actorID}))
}

// ListNotifications returns the actor's notifications, newest first.
func (s *BalanceService) ListNotifications(ctx context.Context, actorID string) ([]*models.Notification, error) {
	if err := requireActor("ListNotifications", actorID); err != nil {
		return nil, err
	}
	return s.store.ListNotifications(ctx, actorID)
}
