package events

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
)

func TestBus_PublishRunsAllHandlersInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe("first", HandlerFunc(func(ctx context.Context, e Event) error {
		calls = append(calls, "first:"+string(e.Kind))
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(ctx context.Context, e Event) error {
		calls = append(calls, "failing")
		return errors.New("store unavailable")
	}))
	bus.Subscribe("last", HandlerFunc(func(ctx context.Context, e Event) error {
		calls = append(calls, "last")
		assert.False(t, e.OccurredAt.IsZero(), "OccurredAt should be stamped")
		return nil
	}))

	before := testutil.ToFloat64(metrics.EventHandlerFailures.WithLabelValues("failing", string(SettlementCreated)))

	bus.Publish(context.Background(), Event{Kind: SettlementCreated})

	require.Equal(t, []string{"first:settlement_created", "failing", "last"}, calls)
	after := testutil.ToFloat64(metrics.EventHandlerFailures.WithLabelValues("failing", string(SettlementCreated)))
	assert.Equal(t, before+1, after)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	NewBus().Publish(context.Background(), Event{Kind: SplitCreated})
}

func TestEvent_GroupID(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"transaction", Event{Transaction: &models.Transaction{GroupID: "g1"}}, "g1"},
		{"settlement", Event{Settlement: &models.Settlement{GroupID: "g2"}}, "g2"},
		{"members added", Event{Kind: GroupMembersAdded, Group: "g3", NewMembers: []string{"bob"}}, "g3"},
		{"none", Event{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.GroupID())
		})
	}
}

func TestKind_IsSplit(t *testing.T) {
	assert.True(t, SplitRemoved.IsSplit())
	assert.False(t, SettlementDeleted.IsSplit())
}
