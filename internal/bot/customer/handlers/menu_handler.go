package handlers

import (
	"FlashGrade/internal/bot/customer"
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

func init() {
	customer.RegisterCallback(NewMenuHandler)
}

// menuHandler owns the buttons available from every screen.
type menuHandler struct {
	log zerolog.Logger
	wiz *wizard.Wizard
}

// NewMenuHandler creates the handler for navigation and info buttons.
func NewMenuHandler(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.CallbackHandler {
	return &menuHandler{
		log: baseLogger.With().Str("component", "menu_handler").Logger(),
		wiz: wiz,
	}
}

func (h *menuHandler) Prefixes() []string {
	return []string{
		wizard.CallbackHome,
		wizard.CallbackBack,
		wizard.CallbackPricing,
		wizard.CallbackReferral,
		wizard.CallbackSupport,
	}
}

func (h *menuHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.EndUser, state *domain.ConversationState) error {
	s := &wizard.Session{Update: update, User: user, State: state}
	switch *update.CallbackData {
	case wizard.CallbackHome:
		return h.wiz.Home(ctx, s)
	case wizard.CallbackBack:
		return h.wiz.Back(ctx, s)
	case wizard.CallbackPricing:
		return h.wiz.ShowPricing(ctx, s)
	case wizard.CallbackReferral:
		return h.wiz.ShowReferral(ctx, s)
	case wizard.CallbackSupport:
		return h.wiz.EnterSupport(ctx, s)
	default:
		return fmt.Errorf("menu handler got unexpected callback %q", *update.CallbackData)
	}
}
