package handlers

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/services"
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/rs/zerolog"
)

var statusTexts = map[domain.OrderStatus]string{
	domain.OrderStatusPaid:       "✅ Paiement confirmé! Nous commençons le travail.",
	domain.OrderStatusInProgress: "✍️ Votre commande est en cours de rédaction.",
	domain.OrderStatusReview:     "🔎 Votre commande est en relecture finale.",
	domain.OrderStatusCompleted:  "🎉 Votre commande est terminée! Vous allez la recevoir très vite.",
	domain.OrderStatusCancelled:  "❌ Votre commande a été annulée. Contactez le support pour toute question.",
}

// NotificationHandler listens for internal events (from the EventBus)
// and tells customers and the support team what happened.
type NotificationHandler struct {
	log        zerolog.Logger
	custClient ports.BotClientPort
	admin      ports.AdminNotifier // nil when no admin chat is configured
}

// NewNotificationHandler creates a new handler for event notifications.
// It is NOT a registered router/message handler; it's a system component.
func NewNotificationHandler(
	custClient ports.BotClientPort,
	admin ports.AdminNotifier,
	baseLogger *zerolog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		log:        baseLogger.With().Str("component", "notification_handler").Logger(),
		custClient: custClient,
		admin:      admin,
	}
}

// Subscribe attaches every handler to its topic.
func (h *NotificationHandler) Subscribe(bus ports.EventBus) {
	bus.Subscribe(ports.TopicOrderCreated, h.HandleOrderCreated)
	bus.Subscribe(ports.TopicOrderPaid, h.HandleOrderPaid)
	bus.Subscribe(ports.TopicOrderStatusChanged, h.HandleOrderStatusChanged)
	bus.Subscribe(ports.TopicSupportMessageCreated, h.HandleSupportMessage)
}

// HandleOrderCreated is an EventHandler for the "order.created" topic.
func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.OrderEvent)
	if !ok || ev.Order == nil {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid order event")
		return nil // Don't retry
	}
	o := ev.Order
	text := fmt.Sprintf("🆕 <b>Nouvelle commande</b> <code>%s</code>\n", o.OrderNumber) +
		messages.ClientLine(o.TelegramUsername, o.TelegramUserID) + "\n" +
		fmt.Sprintf("Niveau: %s · %d pages · %s\n", o.AcademicLevel, o.LengthPages, o.Urgency) +
		fmt.Sprintf("Total: %.2f (à payer %.2f)", o.FinalPrice, o.AmountDue())
	return h.alert(ctx, text)
}

// HandleOrderPaid is an EventHandler for the "order.paid" topic.
func (h *NotificationHandler) HandleOrderPaid(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.OrderEvent)
	if !ok || ev.Order == nil {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid order event")
		return nil
	}
	o := ev.Order

	text := fmt.Sprintf("💶 <b>Commande payée</b> <code>%s</code> (%s)", o.OrderNumber, ev.Source)
	if o.PaymentProofPath != nil {
		text += fmt.Sprintf("\nPreuve: <code>%s</code>", html.EscapeString(*o.PaymentProofPath))
	}
	alertErr := h.alert(ctx, text)

	// The wizard already acknowledged the proof in the chat.
	if ev.Source == services.SourceWizard {
		return alertErr
	}
	return errors.Join(alertErr, h.notifyCustomer(ctx, o))
}

// HandleOrderStatusChanged is an EventHandler for the "order.status_changed" topic.
func (h *NotificationHandler) HandleOrderStatusChanged(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.OrderEvent)
	if !ok || ev.Order == nil {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid order event")
		return nil
	}
	return h.notifyCustomer(ctx, ev.Order)
}

// HandleSupportMessage is an EventHandler for the "support.message_created" topic.
func (h *NotificationHandler) HandleSupportMessage(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.SupportEvent)
	if !ok || ev.Message == nil {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid support event")
		return nil
	}
	m := ev.Message
	if m.IsFromAdmin {
		return nil
	}
	return h.alert(ctx, fmt.Sprintf("💬 <b>Support</b>\n%s\n\n%s",
		messages.ClientLine(m.TelegramUsername, m.TelegramUserID), html.EscapeString(m.Text)))
}

func (h *NotificationHandler) notifyCustomer(ctx context.Context, o *domain.Order) error {
	status, ok := statusTexts[o.Status]
	if !ok {
		return nil
	}
	log := h.log.With().Str("order", o.OrderNumber).Str("status", string(o.Status)).Logger()
	log.Info().Msg("Sending status notification to customer")

	msg := messages.NewBuilder(o.TelegramUserID).
		WithText(fmt.Sprintf("<b>Commande <code>%s</code></b>\n\n%s", o.OrderNumber, status)).
		Build()
	if _, err := h.custClient.SendMessage(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to send status notification")
		return err
	}
	return nil
}

func (h *NotificationHandler) alert(ctx context.Context, text string) error {
	if h.admin == nil {
		return nil
	}
	if err := h.admin.Notify(ctx, ports.AdminAlert{Text: text}); err != nil {
		h.log.Error().Err(err).Msg("Failed to alert admin chat")
		return err
	}
	return nil
}
