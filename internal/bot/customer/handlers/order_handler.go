package handlers

import (
	"FlashGrade/internal/bot/customer"
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	customer.RegisterCallback(NewOrderHandler)
}

// orderHandler owns every button of the order dialogue.
type orderHandler struct {
	log zerolog.Logger
	wiz *wizard.Wizard
}

// NewOrderHandler creates the handler for order wizard buttons.
func NewOrderHandler(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.CallbackHandler {
	return &orderHandler{
		log: baseLogger.With().Str("component", "order_handler").Logger(),
		wiz: wiz,
	}
}

func (h *orderHandler) Prefixes() []string {
	return []string{
		wizard.CallbackNewOrder,
		wizard.CallbackTypeInstruction,
		wizard.CallbackUploadInstruction,
		wizard.CallbackLevelPrefix,
		wizard.CallbackUrgencyPrefix,
		wizard.CallbackSkipReferral,
		wizard.CallbackUseSuggestedCode,
		wizard.CallbackConfirmOrder,
		wizard.CallbackUploadProof,
	}
}

func (h *orderHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.EndUser, state *domain.ConversationState) error {
	s := &wizard.Session{Update: update, User: user, State: state}
	data := *update.CallbackData

	switch {
	case strings.HasPrefix(data, wizard.CallbackLevelPrefix):
		return h.wiz.SelectLevel(ctx, s, domain.AcademicLevel(strings.TrimPrefix(data, wizard.CallbackLevelPrefix)))
	case strings.HasPrefix(data, wizard.CallbackUrgencyPrefix):
		return h.wiz.SelectUrgency(ctx, s, domain.UrgencyTier(strings.TrimPrefix(data, wizard.CallbackUrgencyPrefix)))
	}

	switch data {
	case wizard.CallbackNewOrder:
		return h.wiz.NewOrder(ctx, s)
	case wizard.CallbackTypeInstruction:
		return h.wiz.ChooseTyped(ctx, s)
	case wizard.CallbackUploadInstruction:
		return h.wiz.ChooseUpload(ctx, s)
	case wizard.CallbackSkipReferral:
		return h.wiz.SkipReferral(ctx, s)
	case wizard.CallbackUseSuggestedCode:
		return h.wiz.UseSuggestedReferral(ctx, s)
	case wizard.CallbackConfirmOrder:
		return h.wiz.ConfirmOrder(ctx, s)
	case wizard.CallbackUploadProof:
		return h.wiz.AskPaymentProof(ctx, s)
	default:
		return fmt.Errorf("order handler got unexpected callback %q", data)
	}
}
