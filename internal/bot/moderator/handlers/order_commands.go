package handlers

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/bot/moderator"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

func init() {
	moderator.RegisterCommand(NewOrderLookupHandler)
	moderator.RegisterCommand(NewMarkPaidHandler)
	moderator.RegisterCommand(NewStatusHandler)
	moderator.RegisterCommand(NewHelpHandler)
}

const helpText = "<b>Commandes opérateur</b>\n\n" +
	"/commande ME-XXXX : détail d'une commande\n" +
	"/paye ME-XXXX : marquer comme payée\n" +
	"/statut ME-XXXX statut : changer le statut\n\n" +
	"Répondez à une alerte support pour écrire au client."

// orderCommand carries what every order command needs.
type orderCommand struct {
	log      zerolog.Logger
	orders   moderator.OrderDesk
	bot      ports.BotClientPort
	currency string
}

func newOrderCommand(cfg *config.Config, svc moderator.Services, baseLogger *zerolog.Logger, component string) orderCommand {
	return orderCommand{
		log:      baseLogger.With().Str("component", component).Logger(),
		orders:   svc.Orders,
		bot:      svc.Bot,
		currency: cfg.Payment.Currency,
	}
}

func (c *orderCommand) say(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, messages.NewBuilder(chatID).WithText(text).Build())
	return err
}

// explain turns an expected service error into a chat reply. Other errors
// are returned for the router to count.
func (c *orderCommand) explain(ctx context.Context, chatID int64, number string, err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return c.say(ctx, chatID, fmt.Sprintf("Commande %s introuvable.", html.EscapeString(number)))
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return c.say(ctx, chatID, fmt.Sprintf("Transition refusée pour %s.", html.EscapeString(number)))
	default:
		return err
	}
}

func (c *orderCommand) summary(o *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> · %s\n", html.EscapeString(o.OrderNumber), o.Status)
	b.WriteString(messages.ClientLine(o.TelegramUsername, o.TelegramUserID) + "\n")
	fmt.Fprintf(&b, "Sujet : %s\n", html.EscapeString(o.Subject))
	fmt.Fprintf(&b, "Niveau : %s · %d pages · %s\n", o.AcademicLevel, o.LengthPages, o.Urgency)
	fmt.Fprintf(&b, "Montant dû : %.2f%s", o.AmountDue(), c.currency)
	return b.String()
}

// orderNumberArg returns the first argument upper-cased.
func orderNumberArg(args string) (string, []string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToUpper(fields[0]), fields[1:]
}

// --- /commande ---

type orderLookupHandler struct{ orderCommand }

// NewOrderLookupHandler shows one order.
func NewOrderLookupHandler(cfg *config.Config, svc moderator.Services, baseLogger *zerolog.Logger) moderator.CommandHandler {
	return &orderLookupHandler{newOrderCommand(cfg, svc, baseLogger, "mod_order_lookup")}
}

func (h *orderLookupHandler) Command() string { return "commande" }

func (h *orderLookupHandler) Handle(ctx context.Context, u *ports.BotUpdate, _ *moderator.Operator) error {
	number, _ := orderNumberArg(u.CommandArgs)
	if number == "" {
		return h.say(ctx, u.ChatID, "Usage : /commande ME-XXXX")
	}
	order, err := h.orders.Get(ctx, domain.OrderRef{OrderNumber: number})
	if err != nil {
		return h.explain(ctx, u.ChatID, number, err)
	}
	return h.say(ctx, u.ChatID, h.summary(order))
}

// --- /paye ---

type markPaidHandler struct{ orderCommand }

// NewMarkPaidHandler confirms a payment received outside the bot.
func NewMarkPaidHandler(cfg *config.Config, svc moderator.Services, baseLogger *zerolog.Logger) moderator.CommandHandler {
	return &markPaidHandler{newOrderCommand(cfg, svc, baseLogger, "mod_mark_paid")}
}

func (h *markPaidHandler) Command() string { return "paye" }

func (h *markPaidHandler) Handle(ctx context.Context, u *ports.BotUpdate, op *moderator.Operator) error {
	number, _ := orderNumberArg(u.CommandArgs)
	if number == "" {
		return h.say(ctx, u.ChatID, "Usage : /paye ME-XXXX")
	}
	order, err := h.orders.MarkPaid(ctx, domain.OrderRef{OrderNumber: number}, nil, services.SourceAdmin)
	if err != nil {
		return h.explain(ctx, u.ChatID, number, err)
	}
	h.log.Info().Str("order_number", number).Str("operator", op.Name()).Msg("Order marked paid from chat")
	return h.say(ctx, u.ChatID, fmt.Sprintf("✅ %s marquée payée par %s.", html.EscapeString(order.OrderNumber), html.EscapeString(op.Name())))
}

// --- /statut ---

type statusHandler struct{ orderCommand }

// NewStatusHandler moves an order along its lifecycle.
func NewStatusHandler(cfg *config.Config, svc moderator.Services, baseLogger *zerolog.Logger) moderator.CommandHandler {
	return &statusHandler{newOrderCommand(cfg, svc, baseLogger, "mod_status")}
}

func (h *statusHandler) Command() string { return "statut" }

func (h *statusHandler) Handle(ctx context.Context, u *ports.BotUpdate, op *moderator.Operator) error {
	number, rest := orderNumberArg(u.CommandArgs)
	if number == "" || len(rest) != 1 {
		return h.say(ctx, u.ChatID, "Usage : /statut ME-XXXX "+statusChoices())
	}
	to := domain.OrderStatus(strings.ToLower(rest[0]))
	if !to.Valid() {
		return h.say(ctx, u.ChatID, "Statut inconnu. Choix : "+statusChoices())
	}

	order, err := h.orders.Get(ctx, domain.OrderRef{OrderNumber: number})
	if err != nil {
		return h.explain(ctx, u.ChatID, number, err)
	}
	if order.Status == to {
		return h.say(ctx, u.ChatID, fmt.Sprintf("%s est déjà %s.", html.EscapeString(order.OrderNumber), to))
	}
	order, err = h.orders.UpdateStatus(ctx, order.ID, to, services.SourceAdmin)
	if err != nil {
		return h.explain(ctx, u.ChatID, number, err)
	}
	h.log.Info().Str("order_number", number).Str("status", string(to)).Str("operator", op.Name()).Msg("Order status changed from chat")
	return h.say(ctx, u.ChatID, fmt.Sprintf("%s → %s", html.EscapeString(order.OrderNumber), order.Status))
}

func statusChoices() string {
	return strings.Join(lo.Map(domain.AllOrderStatuses(), func(s domain.OrderStatus, _ int) string {
		return string(s)
	}), "|")
}

// --- /aide ---

type helpHandler struct {
	bot ports.BotClientPort
}

// NewHelpHandler lists the operator commands.
func NewHelpHandler(_ *config.Config, svc moderator.Services, _ *zerolog.Logger) moderator.CommandHandler {
	return &helpHandler{bot: svc.Bot}
}

func (h *helpHandler) Command() string { return "aide" }

func (h *helpHandler) Handle(ctx context.Context, u *ports.BotUpdate, _ *moderator.Operator) error {
	_, err := h.bot.SendMessage(ctx, messages.NewBuilder(u.ChatID).WithText(helpText).Build())
	return err
}

