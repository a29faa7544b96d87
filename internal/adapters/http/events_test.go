package http

import (
	"FlashGrade/internal/adapters/eventbus"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/metrics"
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*EventHub, *eventbus.InMemoryEventBus, *metrics.Metrics) {
	t.Helper()
	nopLogger := zerolog.Nop()
	bus := eventbus.NewInMemoryEventBus(&nopLogger)
	m := metrics.NewUnregistered()
	return NewEventHub(bus, m, &nopLogger), bus, m
}

func TestFormatSSE(t *testing.T) {
	frame, err := FormatSSE(StreamEvent{Type: "order.paid", Data: map[string]string{"order_number": "ME-AB12CD34"}})

	require.NoError(t, err)
	assert.Equal(t, "event: order.paid\ndata: {\"order_number\":\"ME-AB12CD34\"}\n\n", frame)
}

func TestEventHub_ForwardsBusEvents(t *testing.T) {
	hub, bus, m := newTestHub(t)
	events := hub.Subscribe("dash-1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SSEClients))

	order := sampleOrder(domain.OrderStatusPaid)
	require.NoError(t, bus.Publish(context.Background(), ports.TopicOrderPaid, ports.OrderEvent{
		Order: order, PrevStatus: domain.OrderStatusPending, Source: "admin",
	}))
	require.NoError(t, bus.Publish(context.Background(), ports.TopicSupportMessageCreated, ports.SupportEvent{
		Message: &domain.SupportMessage{ID: uuid.New(), TelegramUserID: 4242, Text: "Aide"},
	}))
	require.NoError(t, bus.Wait(context.Background()))

	got := map[string]StreamEvent{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			got[ev.Type] = ev
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	paid := got[ports.TopicOrderPaid].Data.(orderEventPayload)
	assert.Equal(t, "ME-AB12CD34", paid.Order.OrderNumber)
	assert.Equal(t, "pending", paid.PrevStatus)
	assert.Equal(t, "Aide", got[ports.TopicSupportMessageCreated].Data.(supportMessageResponse).Text)

	hub.Unsubscribe("dash-1")
	_, open := <-events
	assert.False(t, open)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SSEClients))
}

func TestEventHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub, _, _ := newTestHub(t)
	events := hub.Subscribe("slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(StreamEvent{Type: "order.created", Data: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, events, cap(events))
}

func TestEventHub_StreamWritesFramesUntilClosed(t *testing.T) {
	hub, _, _ := newTestHub(t)
	hub.heartbeat = time.Hour

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	finished := make(chan struct{})
	go func() {
		hub.stream("dash", w)
		close(finished)
	}()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Publish(StreamEvent{Type: "order.created", Data: map[string]int{"pages": 3}})
	hub.Close()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after Close")
	}
	assert.Equal(t, ": connected\n\nevent: order.created\ndata: {\"pages\":3}\n\n", buf.String())

	// A closed hub refuses new streams.
	_, open := <-hub.Subscribe("late")
	assert.False(t, open)
}
