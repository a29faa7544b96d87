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
	customer.RegisterCommand(NewStartHandler)
	customer.RegisterCommand(shortcut("commande", (*wizard.Wizard).NewOrder))
	customer.RegisterCommand(shortcut("tarifs", (*wizard.Wizard).ShowPricing))
	customer.RegisterCommand(shortcut("parrainage", (*wizard.Wizard).ShowReferral))
	customer.RegisterCommand(shortcut("support", (*wizard.Wizard).EnterSupport))
}

// startHandler is the plugin for the /start command.
type startHandler struct {
	log zerolog.Logger
	wiz *wizard.Wizard
}

// NewStartHandler creates a new handler for the /start command.
func NewStartHandler(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.CommandHandler {
	return &startHandler{
		log: baseLogger.With().Str("component", "start_handler").Logger(),
		wiz: wiz,
	}
}

// Command returns the command string (without the "/")
func (h *startHandler) Command() string {
	return "start"
}

// Handle shows the home menu. "/start CODE" comes from a referral link.
func (h *startHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.EndUser, state *domain.ConversationState) error {
	if user.FirstSeenAt.Equal(user.LastInteractionAt) {
		zerolog.Ctx(ctx).Info().Str("name", user.DisplayName()).Msg("New customer")
	}
	return h.wiz.Start(ctx, &wizard.Session{Update: update, User: user, State: state}, update.CommandArgs)
}

// shortcutHandler maps a menu command straight onto a wizard screen.
type shortcutHandler struct {
	command string
	wiz     *wizard.Wizard
	action  func(*wizard.Wizard, context.Context, *wizard.Session) error
}

func shortcut(command string, action func(*wizard.Wizard, context.Context, *wizard.Session) error) customer.CommandHandlerConstructor {
	return func(_ *config.Config, wiz *wizard.Wizard, _ *zerolog.Logger) ports.CommandHandler {
		return &shortcutHandler{command: command, wiz: wiz, action: action}
	}
}

func (h *shortcutHandler) Command() string {
	return h.command
}

func (h *shortcutHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.EndUser, state *domain.ConversationState) error {
	return h.action(h.wiz, ctx, &wizard.Session{Update: update, User: user, State: state})
}
