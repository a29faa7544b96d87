package http

import (
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/metrics"
	"bufio"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const heartbeatInterval = 30 * time.Second

// StreamEvent is one message on the dashboard event stream.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type orderEventPayload struct {
	Order      orderResponse `json:"order"`
	PrevStatus string        `json:"prev_status,omitempty"`
	Source     string        `json:"source"`
}

// EventHub fans bus events out to connected dashboards. A slow dashboard
// misses events instead of stalling the publisher.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[string]chan StreamEvent
	closed      bool
	heartbeat   time.Duration
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewEventHub subscribes the hub to every order and support topic on bus.
func NewEventHub(bus ports.EventBus, m *metrics.Metrics, baseLogger *zerolog.Logger) *EventHub {
	h := &EventHub{
		subscribers: make(map[string]chan StreamEvent),
		heartbeat:   heartbeatInterval,
		metrics:     m,
		log:         baseLogger.With().Str("component", "event_hub").Logger(),
	}
	for _, topic := range []string{
		ports.TopicOrderCreated,
		ports.TopicOrderPaid,
		ports.TopicOrderStatusChanged,
		ports.TopicSupportMessageCreated,
	} {
		bus.Subscribe(topic, h.onEvent)
	}
	return h
}

func (h *EventHub) onEvent(_ context.Context, event ports.Event) error {
	switch data := event.Data.(type) {
	case ports.OrderEvent:
		if data.Order == nil {
			return nil
		}
		h.Publish(StreamEvent{Type: event.Topic, Data: orderEventPayload{
			Order:      toOrderResponse(data.Order),
			PrevStatus: string(data.PrevStatus),
			Source:     data.Source,
		}})
	case ports.SupportEvent:
		if data.Message == nil {
			return nil
		}
		h.Publish(StreamEvent{Type: event.Topic, Data: toSupportMessageResponse(data.Message)})
	default:
		h.log.Warn().Str("topic", event.Topic).Msg("Ignoring event with unexpected payload")
	}
	return nil
}

// Subscribe registers a stream. The channel is closed on Unsubscribe or Close.
func (h *EventHub) Subscribe(id string) <-chan StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan StreamEvent, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[id] = ch
	if h.metrics != nil {
		h.metrics.SSEClients.Inc()
	}
	return ch
}

// Unsubscribe removes a stream.
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
		if h.metrics != nil {
			h.metrics.SSEClients.Dec()
		}
	}
}

// Publish sends event to every stream without blocking.
func (h *EventHub) Publish(event StreamEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.log.Debug().Str("subscriber", id).Str("type", event.Type).Msg("Dropping event for slow stream")
		}
	}
}

// Close ends every open stream and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
		if h.metrics != nil {
			h.metrics.SSEClients.Dec()
		}
	}
}

// FormatSSE renders event in text/event-stream framing.
func FormatSSE(event StreamEvent) (string, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return "", err
	}
	return "event: " + event.Type + "\ndata: " + string(data) + "\n\n", nil
}

// stream writes hub events to w until the stream closes or a write fails.
func (h *EventHub) stream(id string, w *bufio.Writer) {
	events := h.Subscribe(id)
	defer h.Unsubscribe(id)

	if _, err := w.WriteString(": connected\n\n"); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			frame, err := FormatSSE(event)
			if err != nil {
				h.log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode event")
				continue
			}
			if _, err := w.WriteString(frame); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func (s *Server) events(c *fiber.Ctx) error {
	if s.deps.Events == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "event stream unavailable")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	id := uuid.NewString()
	hub := s.deps.Events
	// The writer runs after the handler returns, so the subscription is
	// owned by it rather than by the request context.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		hub.stream(id, w)
	})
	return nil
}
