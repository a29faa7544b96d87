package handlers

import (
	"FlashGrade/internal/bot/customer"
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"

	"github.com/rs/zerolog"
)

func init() {
	customer.RegisterMessage(NewMessageHandler)
}

// messageHandler feeds free text and attachments to the wizard.
type messageHandler struct {
	log zerolog.Logger
	wiz *wizard.Wizard
}

// NewMessageHandler creates the handler for every non-command message.
func NewMessageHandler(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.MessageHandler {
	return &messageHandler{
		log: baseLogger.With().Str("component", "message_handler").Logger(),
		wiz: wiz,
	}
}

func (h *messageHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.EndUser, state *domain.ConversationState) error {
	s := &wizard.Session{Update: update, User: user, State: state}
	switch {
	case update.File != nil:
		return h.wiz.HandleFile(ctx, s, update.File)
	case update.Command != "":
		// Unknown command: never take it as an answer.
		return h.wiz.Render(ctx, s, state.CurrentStep)
	default:
		return h.wiz.HandleText(ctx, s, update.Text)
	}
}
