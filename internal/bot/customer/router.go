package customer

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/metrics"
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const internalErrorText = "❌ Une erreur interne est survenue. Veuillez réessayer dans un instant."

// CustomerRouter is the "Bot Facade." It holds all "plugins"
// and routes incoming updates to the correct handler.
type CustomerRouter struct {
	log              zerolog.Logger
	users            ports.UserRepository
	states           ports.ConversationStateRepository
	botClient        ports.BotClientPort
	metrics          *metrics.Metrics
	commandHandlers  map[string]ports.CommandHandler
	callbackHandlers map[string]ports.CallbackHandler
	prefixes         []string // longest first
	messageHandler   ports.MessageHandler
}

// NewCustomerRouter creates a new bot facade/router.
func NewCustomerRouter(
	users ports.UserRepository,
	states ports.ConversationStateRepository,
	botClient ports.BotClientPort,
	m *metrics.Metrics,
	baseLogger *zerolog.Logger,
) *CustomerRouter {
	return &CustomerRouter{
		log:              baseLogger.With().Str("component", "customer_router").Logger(),
		users:            users,
		states:           states,
		botClient:        botClient,
		metrics:          m,
		commandHandlers:  make(map[string]ports.CommandHandler),
		callbackHandlers: make(map[string]ports.CallbackHandler),
	}
}

// RegisterCommandHandler adds a "plugin" to the router.
func (r *CustomerRouter) RegisterCommandHandler(handler ports.CommandHandler) {
	cmd := handler.Command()
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// RegisterCallbackHandler adds a "plugin" to the router for each of its prefixes.
func (r *CustomerRouter) RegisterCallbackHandler(handler ports.CallbackHandler) {
	for _, prefix := range handler.Prefixes() {
		if _, dup := r.callbackHandlers[prefix]; !dup {
			r.prefixes = append(r.prefixes, prefix)
		}
		r.callbackHandlers[prefix] = handler
		r.log.Info().Str("prefix", prefix).Msg("Registered new callback handler")
	}
	sort.Slice(r.prefixes, func(i, j int) bool {
		if len(r.prefixes[i]) != len(r.prefixes[j]) {
			return len(r.prefixes[i]) > len(r.prefixes[j])
		}
		return r.prefixes[i] < r.prefixes[j]
	})
}

// SetMessageHandler registers the single, global message handler
func (r *CustomerRouter) SetMessageHandler(handler ports.MessageHandler) {
	r.messageHandler = handler
}

// HandleUpdate is the main entry point for a new update from Telegram.
// The returned error tells the server the update was not fully processed.
func (r *CustomerRouter) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	botUpdate, isSupported := ParseUpdate(update)
	if !isSupported {
		r.log.Debug().Int("update_id", update.UpdateID).Msg("Received unsupported update type")
		r.count("unsupported", "ignored")
		return nil
	}

	ctxLogger := r.log.With().
		Int64("user_id", botUpdate.UserID).
		Int64("chat_id", botUpdate.ChatID).
		Int("update_id", botUpdate.UpdateID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	// The spinner on the pressed button must stop whatever happens.
	if botUpdate.IsCallback() {
		defer func() {
			err := r.botClient.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: botUpdate.CallbackQueryID})
			if err != nil {
				ctxLogger.Warn().Err(err).Msg("Failed to answer callback query")
			}
		}()
	}

	kind := updateKind(botUpdate)
	if err := r.route(ctx, botUpdate); err != nil {
		ctxLogger.Error().Err(err).Str("kind", kind).Msg("Update handling failed")
		r.count(kind, "error")
		if r.metrics != nil {
			r.metrics.Errors.WithLabelValues("customer_router").Inc()
		}
		msg := messages.NewBuilder(botUpdate.ChatID).WithText(internalErrorText).WithParseMode("").Build()
		if _, sendErr := r.botClient.SendMessage(ctx, msg); sendErr != nil {
			ctxLogger.Error().Err(sendErr).Msg("Failed to send error message")
		}
		return err
	}
	r.count(kind, "ok")
	return nil
}

func (r *CustomerRouter) route(ctx context.Context, u *ports.BotUpdate) error {
	log := zerolog.Ctx(ctx)

	user, err := r.users.Touch(ctx, u.Profile())
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	state, err := r.states.Get(ctx, u.UserID)
	if err != nil {
		return fmt.Errorf("load conversation state: %w", err)
	}

	if u.Command != "" {
		if handler, ok := r.commandHandlers[u.Command]; ok {
			log.Info().Str("handler", u.Command).Msg("Routing to command handler")
			return handler.Handle(ctx, u, user, state)
		}
	}

	if u.IsCallback() {
		handler, prefix := r.callbackHandler(*u.CallbackData)
		if handler == nil {
			log.Warn().Str("data", *u.CallbackData).Msg("No callback handler found")
			return nil
		}
		log.Info().Str("handler", prefix).Str("data", *u.CallbackData).Str("step", string(state.CurrentStep)).Msg("Routing to callback handler")
		return handler.Handle(ctx, u, user, state)
	}

	if r.messageHandler != nil {
		log.Info().Str("step", string(state.CurrentStep)).Bool("file", u.File != nil).Msg("Routing to message handler")
		return r.messageHandler.Handle(ctx, u, user, state)
	}

	log.Info().Str("text", u.Text).Msg("Received unhandled message (no handler)")
	return nil
}

// callbackHandler finds the handler owning the longest prefix of data.
func (r *CustomerRouter) callbackHandler(data string) (ports.CallbackHandler, string) {
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(data, prefix) {
			return r.callbackHandlers[prefix], prefix
		}
	}
	return nil, ""
}

func (r *CustomerRouter) count(kind, outcome string) {
	if r.metrics != nil {
		r.metrics.Updates.WithLabelValues(kind, outcome).Inc()
	}
}

func updateKind(u *ports.BotUpdate) string {
	switch {
	case u.IsCallback():
		return "callback"
	case u.Command != "":
		return "command"
	case u.File != nil:
		return "file"
	default:
		return "text"
	}
}

// ParseUpdate converts a tgbotapi.Update into our internal, simplified struct.
func ParseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	if cb := update.CallbackQuery; cb != nil && cb.From != nil {
		u := &ports.BotUpdate{
			UpdateID:        update.UpdateID,
			ChatID:          cb.From.ID,
			UserID:          cb.From.ID,
			Username:        cb.From.UserName,
			FirstName:       cb.From.FirstName,
			LastName:        cb.From.LastName,
			CallbackQueryID: cb.ID,
			CallbackData:    &cb.Data,
		}
		if cb.Message != nil {
			u.MessageID = cb.Message.MessageID
			u.ChatID = cb.Message.Chat.ID
		}
		return u, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil, false
	}

	u := &ports.BotUpdate{
		UpdateID:    update.UpdateID,
		MessageID:   msg.MessageID,
		ChatID:      msg.Chat.ID,
		UserID:      msg.From.ID,
		Username:    msg.From.UserName,
		FirstName:   msg.From.FirstName,
		LastName:    msg.From.LastName,
		Text:        msg.Text,
		Command:     msg.Command(),
		CommandArgs: strings.TrimSpace(msg.CommandArguments()),
	}

	switch {
	case len(msg.Photo) > 0:
		best := msg.Photo[len(msg.Photo)-1]
		u.File = &ports.FileInfo{FileID: best.FileID, FileSize: best.FileSize, IsPhoto: true}
	case msg.Document != nil:
		u.File = &ports.FileInfo{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			FileSize: msg.Document.FileSize,
		}
	}
	if u.File != nil && u.Text == "" {
		u.Text = msg.Caption
	}
	return u, true
}
