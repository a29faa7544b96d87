// Package moderator serves the operators' chat: replies to support alerts
// are relayed to the customer and a few commands manage orders.
package moderator

import (
	"FlashGrade/internal/bot/customer"
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/metrics"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Operator is a chat member whose identity is linked to an admin account.
type Operator struct {
	User    *domain.EndUser
	Account *domain.AdminAccount
}

// Name is shown to customers on relayed replies.
func (o *Operator) Name() string {
	if o.Account != nil && strings.TrimSpace(o.Account.DisplayName) != "" {
		return o.Account.DisplayName
	}
	return o.User.DisplayName()
}

// CommandHandler handles one slash command in the operators' chat.
type CommandHandler interface {
	Command() string
	Handle(ctx context.Context, update *ports.BotUpdate, op *Operator) error
}

// ReplyHandler handles a message written as a reply to an earlier one.
// replyTo is the plain text of the message being answered.
type ReplyHandler interface {
	Handle(ctx context.Context, update *ports.BotUpdate, replyTo string, op *Operator) error
}

// ModeratorRouter holds all logic for the operators' chat.
type ModeratorRouter struct {
	log             zerolog.Logger
	adminChatID     int64
	users           ports.UserRepository
	accounts        ports.AdminAccountRepository
	botClient       ports.BotClientPort
	metrics         *metrics.Metrics
	commandHandlers map[string]CommandHandler
	replyHandler    ReplyHandler
}

// NewModeratorRouter creates the router for adminChatID. A zero chat id
// means the router owns no updates.
func NewModeratorRouter(
	adminChatID int64,
	users ports.UserRepository,
	accounts ports.AdminAccountRepository,
	botClient ports.BotClientPort,
	m *metrics.Metrics,
	baseLogger *zerolog.Logger,
) *ModeratorRouter {
	return &ModeratorRouter{
		log:             baseLogger.With().Str("component", "moderator_router").Logger(),
		adminChatID:     adminChatID,
		users:           users,
		accounts:        accounts,
		botClient:       botClient,
		metrics:         m,
		commandHandlers: make(map[string]CommandHandler),
	}
}

// RegisterCommandHandler adds a command to the operators' chat.
func (r *ModeratorRouter) RegisterCommandHandler(handler CommandHandler) {
	cmd := handler.Command()
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new moderator command")
}

// SetReplyHandler sets the handler for replies to alerts.
func (r *ModeratorRouter) SetReplyHandler(handler ReplyHandler) {
	r.replyHandler = handler
}

// Owns reports whether update was posted in the operators' chat.
func (r *ModeratorRouter) Owns(update *tgbotapi.Update) bool {
	if r.adminChatID == 0 {
		return false
	}
	chat := update.FromChat()
	return chat != nil && chat.ID == r.adminChatID
}

// HandleUpdate is the entry point for updates from the operators' chat.
// Messages from members without an admin account are ignored.
func (r *ModeratorRouter) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	botUpdate, ok := customer.ParseUpdate(update)
	if !ok || botUpdate.IsCallback() {
		return nil
	}

	ctxLogger := r.log.With().
		Int64("user_id", botUpdate.UserID).
		Int64("chat_id", botUpdate.ChatID).
		Int("update_id", botUpdate.UpdateID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	var replyTo string
	if update.Message != nil && update.Message.ReplyToMessage != nil {
		replyTo = update.Message.ReplyToMessage.Text
	}
	// Group chatter that is neither a command nor a reply is not for us.
	if botUpdate.Command == "" && replyTo == "" {
		return nil
	}

	op, err := r.operator(ctx, botUpdate.UserID)
	if err != nil {
		r.count("error")
		return fmt.Errorf("resolve operator: %w", err)
	}
	if op == nil {
		ctxLogger.Warn().Msg("Unauthorized member tried to act in the operators' chat")
		r.count("unauthorized")
		return nil
	}

	if botUpdate.Command != "" {
		handler, ok := r.commandHandlers[botUpdate.Command]
		if !ok {
			r.count("unknown")
			return r.say(ctx, botUpdate.ChatID, "Commande inconnue. Tapez /aide pour la liste.")
		}
		ctxLogger.Info().Str("handler", botUpdate.Command).Msg("Routing to mod command handler")
		return r.finish(handler.Handle(ctx, botUpdate, op))
	}

	if r.replyHandler == nil {
		return nil
	}
	return r.finish(r.replyHandler.Handle(ctx, botUpdate, replyTo, op))
}

// operator returns nil when the sender may not act for the support team.
func (r *ModeratorRouter) operator(ctx context.Context, telegramID int64) (*Operator, error) {
	user, err := r.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.AdminAccountID == nil {
		return nil, nil
	}
	account, err := r.accounts.GetByID(ctx, *user.AdminAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsAdmin() {
		return nil, nil
	}
	return &Operator{User: user, Account: account}, nil
}

func (r *ModeratorRouter) finish(err error) error {
	if err != nil {
		r.count("error")
		if r.metrics != nil {
			r.metrics.Errors.WithLabelValues("moderator_router").Inc()
		}
		return err
	}
	r.count("ok")
	return nil
}

func (r *ModeratorRouter) say(ctx context.Context, chatID int64, text string) error {
	_, err := r.botClient.SendMessage(ctx, messages.NewBuilder(chatID).WithText(text).Build())
	return err
}

func (r *ModeratorRouter) count(outcome string) {
	if r.metrics != nil {
		r.metrics.Updates.WithLabelValues("operator", outcome).Inc()
	}
}
