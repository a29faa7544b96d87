package telegram

import (
	"FlashGrade/internal/bot/messages"
	"FlashGrade/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// adminNotifier posts alerts to the operators' chat through the customer bot.
type adminNotifier struct {
	bot    ports.BotClientPort
	chatID int64
	log    zerolog.Logger
}

// NewAdminNotifier returns nil when no admin chat is configured.
func NewAdminNotifier(bot ports.BotClientPort, chatID int64, baseLogger *zerolog.Logger) ports.AdminNotifier {
	log := baseLogger.With().Str("component", "admin_notifier").Logger()
	if chatID == 0 {
		log.Info().Msg("No admin chat configured, operator alerts disabled")
		return nil
	}
	return &adminNotifier{bot: bot, chatID: chatID, log: log}
}

// Notify sends the alert as an HTML message.
func (n *adminNotifier) Notify(ctx context.Context, alert ports.AdminAlert) error {
	msg := messages.NewBuilder(n.chatID).WithText(alert.Text).Build()
	if _, err := n.bot.SendMessage(ctx, msg); err != nil {
		n.log.Error().Err(err).Int64("chat_id", n.chatID).Msg("Failed to post admin alert")
		return err
	}
	return nil
}
