// Package notify turns domain events into per-recipient notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/models"
)

// Sink persists notifications.
type Sink interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier is an event subscriber. External participants never receive
// notifications.
type Notifier struct {
	sink Sink
}

// New creates a Notifier writing to sink.
func New(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

// Handle dispatches notifications for the event. It keeps going after a
// failed write and returns the joined errors.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	var errList []error
	for _, note := range Build(e) {
		if err := n.sink.CreateNotification(ctx, note); err != nil {
			errList = append(errList, fmt.Errorf("notify %s: %w", note.RecipientID, err))
		}
	}
	return errors.Join(errList...)
}

// Build returns the notifications an event produces:
//   - split created/updated: every registered participant except the payer
//     and the actor
//   - settlement created: the recipient
//   - settlement confirmed or disputed: the payer
func Build(e events.Event) []*models.Notification {
	var out []*models.Notification
	var createdAt int64
	if !e.OccurredAt.IsZero() {
		createdAt = e.OccurredAt.Unix()
	}
	add := func(recipient string, kind models.NotificationKind, ref, msg string) {
		if recipient == "" || recipient == e.ActorID {
			return
		}
		out = append(out, &models.Notification{
			RecipientID: recipient,
			ActorID:     e.ActorID,
			Kind:        kind,
			ReferenceID: ref,
			Message:     msg,
			CreatedAt:   createdAt,
		})
	}

	switch e.Kind {
	case events.SplitCreated, events.SplitUpdated:
		tx := e.Transaction
		if tx == nil {
			return nil
		}
		kind := models.NotifySharedExpense
		verb := "added"
		if e.Kind == events.SplitUpdated {
			kind = models.NotifySharedExpenseUpdate
			verb = "updated"
		}
		for _, s := range tx.Shares {
			id := s.Participant.UserID
			if !s.Participant.IsRegistered() || id == tx.PayerID {
				continue
			}
			add(id, kind, tx.ID, fmt.Sprintf("%s a shared expense %q: your share is %s",
				verb, tx.Description, s.Amount.StringFixed(2)))
		}
	case events.SettlementCreated:
		if s := e.Settlement; s != nil {
			add(s.RecipientID, models.NotifySettlementReceived, s.ID,
				fmt.Sprintf("recorded a payment of %s to you", s.Amount.StringFixed(2)))
		}
	case events.SettlementConfirmed:
		if s := e.Settlement; s != nil {
			add(s.PayerID, models.NotifySettlementConfirmed, s.ID,
				fmt.Sprintf("confirmed your payment of %s", s.Amount.StringFixed(2)))
		}
	case events.SettlementDisputed:
		if s := e.Settlement; s != nil {
			add(s.PayerID, models.NotifySettlementDisputed, s.ID,
				fmt.Sprintf("disputed your payment of %s: %s", s.Amount.StringFixed(2), s.DisputeReason))
		}
	}
	return out
}
