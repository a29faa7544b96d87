package handlers

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/bot/moderator"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	moderator.RegisterReply(NewSupportReplyHandler)
}

// supportReplyHandler relays an operator's reply to a support alert back to
// the customer named in the alert.
type supportReplyHandler struct {
	log     zerolog.Logger
	support moderator.SupportDesk
	bot     ports.BotClientPort
}

// NewSupportReplyHandler creates the reply relay.
func NewSupportReplyHandler(_ *config.Config, svc moderator.Services, baseLogger *zerolog.Logger) moderator.ReplyHandler {
	return &supportReplyHandler{
		log:     baseLogger.With().Str("component", "mod_support_reply").Logger(),
		support: svc.Support,
		bot:     svc.Bot,
	}
}

func (h *supportReplyHandler) Handle(ctx context.Context, u *ports.BotUpdate, replyTo string, op *moderator.Operator) error {
	telegramID, ok := messages.ClientIDFromAlert(replyTo)
	if !ok {
		// A reply to anything but an alert is ordinary conversation.
		return nil
	}
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return h.say(ctx, u.ChatID, "Seuls les messages texte sont transmis au client.")
	}

	log := h.log.With().Int64("telegram_id", telegramID).Str("operator", op.Name()).Logger()
	if _, err := h.support.AdminReply(ctx, telegramID, op.Name(), text); err != nil {
		// The reply may already be stored; redelivery would duplicate it.
		log.Error().Err(err).Msg("Support reply not delivered")
		return h.say(ctx, u.ChatID, fmt.Sprintf("⚠️ Réponse non transmise au client %d : %s", telegramID, html.EscapeString(err.Error())))
	}
	log.Info().Msg("Support reply relayed")
	return h.say(ctx, u.ChatID, fmt.Sprintf("✅ Réponse envoyée au client %d.", telegramID))
}

func (h *supportReplyHandler) say(ctx context.Context, chatID int64, text string) error {
	_, err := h.bot.SendMessage(ctx, messages.NewBuilder(chatID).WithText(text).Build())
	return err
}
