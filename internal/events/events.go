// Package events is an in-process domain event bus. Mutating services
// publish after their write has committed; subscribers (cache refresh,
// notifications) run synchronously and their failures never reach the
// publisher.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/settleup/internal/errs"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
)

// Kind names a domain event.
type Kind string

const (
	SplitCreated        Kind = "split_created"
	SplitUpdated        Kind = "split_updated"
	SplitRemoved        Kind = "split_removed"
	SettlementCreated   Kind = "settlement_created"
	SettlementConfirmed Kind = "settlement_confirmed"
	SettlementDisputed  Kind = "settlement_disputed"
	SettlementDeleted   Kind = "settlement_deleted"
	GroupMembersAdded   Kind = "group_members_added"
)

// IsSplit reports whether the event carries a Transaction.
func (k Kind) IsSplit() bool {
	return k == SplitCreated || k == SplitUpdated || k == SplitRemoved
}

// Event describes a committed mutation.
type Event struct {
	Kind    Kind
	ActorID string

	// Transaction is set for split events. For SplitRemoved it no longer
	// carries shares.
	Transaction *models.Transaction

	// PreviousParticipants are the registered participants before an
	// update or removal, so pairs that dropped out are refreshed too.
	PreviousParticipants []string

	// Settlement is set for settlement events. For SettlementDeleted it is
	// the record as it was before deletion.
	Settlement *models.Settlement

	// Group and NewMembers are set for GroupMembersAdded.
	Group      string
	NewMembers []string

	OccurredAt time.Time
}

// GroupID returns the group the event belongs to, if any.
func (e Event) GroupID() string {
	switch {
	case e.Group != "":
		return e.Group
	case e.Transaction != nil:
		return e.Transaction.GroupID
	case e.Settlement != nil:
		return e.Settlement.GroupID
	}
	return ""
}

// Handler reacts to a published event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers events to every subscriber in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h under name. Names appear in logs and metrics.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: h})
}

// Publish runs every subscriber. A failing subscriber is logged as a
// DependencyFailure and the remaining subscribers still run.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler.Handle(ctx, e); err != nil {
			failure := &errs.DependencyFailure{Dependency: sub.name, Err: err}
			metrics.EventHandlerFailures.WithLabelValues(sub.name, string(e.Kind)).Inc()
			slog.Warn("Event handler failed",
				"handler", sub.name,
				"event", e.Kind,
				"error", failure,
			)
		}
	}
}
