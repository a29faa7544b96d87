package telegram

import (
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/metrics"
	"FlashGrade/internal/shared/retry"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MenuCommands are shown in the chat menu of every customer.
var MenuCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Menu principal"},
	{Command: "commande", Description: "Nouvelle commande"},
	{Command: "tarifs", Description: "Voir les tarifs"},
	{Command: "parrainage", Description: "Mon code de parrainage"},
	{Command: "support", Description: "Contacter le support"},
}

// tgClient implements the BotClientPort.
type tgClient struct {
	api     *tgbotapi.BotAPI
	policy  retry.Policy
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ ports.BotClientPort = (*tgClient)(nil)

// NewClient creates a new Telegram client adapter. Every call is retried
// with backoff unless Telegram rejected the request itself.
func NewClient(api *tgbotapi.BotAPI, policy retry.Policy, m *metrics.Metrics, baseLogger *zerolog.Logger) ports.BotClientPort {
	log := baseLogger.With().Str("component", "tg_client").Logger()
	return &tgClient{api: api, policy: policy, metrics: m, log: log}
}

// SendMessage translates our params into a tgbotapi message.
func (c *tgClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	msg.DisableWebPagePreview = true

	// Handle keyboard removal first
	if params.RemoveKeyboard {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	} else if params.ReplyMarkup != nil {
		if params.ReplyMarkup.IsInline {
			msg.ReplyMarkup = buildInlineKeyboard(params.ReplyMarkup.Buttons)
		} else {
			msg.ReplyMarkup = buildReplyKeyboard(params.ReplyMarkup.Buttons)
		}
	}

	var sent tgbotapi.Message
	err := c.call(ctx, "sendMessage", func() error {
		var err error
		sent, err = c.api.Send(msg)
		return err
	})
	if err != nil {
		c.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessageText edits an existing message (usually for inline keyboards).
func (c *tgClient) EditMessageText(ctx context.Context, params ports.EditMessageParams) error {
	msg := tgbotapi.NewEditMessageText(params.ChatID, params.MessageID, params.Text)
	msg.ParseMode = params.ParseMode
	msg.DisableWebPagePreview = true

	if params.ReplyMarkup != nil && params.ReplyMarkup.IsInline {
		inlineMarkup := buildInlineKeyboard(params.ReplyMarkup.Buttons)
		msg.ReplyMarkup = &inlineMarkup
	}

	err := c.call(ctx, "editMessageText", func() error {
		_, err := c.api.Send(msg)
		return err
	})
	// Pressing the same button twice renders identical content.
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	if err != nil {
		c.log.Error().Err(err).
			Int64("chat_id", params.ChatID).
			Int("message_id", params.MessageID).
			Msg("Failed to edit message text")
		return err
	}
	return nil
}

// AnswerCallbackQuery sends a response to a callback query (stops the spinner)
func (c *tgClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	callbackConfig := tgbotapi.NewCallback(params.CallbackQueryID, params.Text)
	callbackConfig.ShowAlert = params.ShowAlert

	err := c.call(ctx, "answerCallbackQuery", func() error {
		_, err := c.api.Request(callbackConfig)
		return err
	})
	if err != nil {
		c.log.Error().Err(err).
			Str("callback_query_id", params.CallbackQueryID).
			Msg("Failed to answer callback query")
		return err
	}
	return nil
}

// GetFileURL resolves a file id to a direct download URL.
func (c *tgClient) GetFileURL(ctx context.Context, fileID string) (string, error) {
	var url string
	err := c.call(ctx, "getFile", func() error {
		var err error
		url, err = c.api.GetFileDirectURL(fileID)
		return err
	})
	if err != nil {
		c.log.Error().Err(err).Str("file_id", fileID).Msg("Failed to resolve file URL")
		return "", err
	}
	return url, nil
}

// SetMenuCommands sets the bot's /menu commands.
func (c *tgClient) SetMenuCommands(ctx context.Context) error {
	config := tgbotapi.NewSetMyCommands(MenuCommands...)
	err := c.call(ctx, "setMyCommands", func() error {
		_, err := c.api.Request(config)
		return err
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to set menu commands")
		return err
	}
	return nil
}

// call runs op with the retry policy and records the outcome.
func (c *tgClient) call(ctx context.Context, method string, op func() error) error {
	start := time.Now()
	err := retry.Do(ctx, c.policy, func() error {
		return classify(op())
	}, func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("method", method).Dur("wait", wait).Msg("Telegram call failed, retrying")
	})

	if c.metrics != nil {
		c.metrics.OutboundLatency.WithLabelValues("telegram").Observe(time.Since(start).Seconds())
		c.metrics.OutboundRequests.WithLabelValues("telegram", statusLabel(err)).Inc()
	}
	return err
}

// classify makes client errors permanent. Rate limits, server errors and
// transport failures stay retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return err
		}
		return retry.Permanent(err)
	}
	return err
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Code)
	}
	return "error"
}

// buildInlineKeyboard is a helper to create the inline keyboard.
func buildInlineKeyboard(buttons [][]ports.Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, buttonRow := range buttons {
		var row []tgbotapi.InlineKeyboardButton
		for _, btn := range buttonRow {
			if btn.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildReplyKeyboard is a helper to create the reply (non-inline) keyboard.
func buildReplyKeyboard(buttons [][]ports.Button) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, buttonRow := range buttons {
		var row []tgbotapi.KeyboardButton
		for _, btn := range buttonRow {
			row = append(row, tgbotapi.NewKeyboardButton(btn.Text))
		}
		rows = append(rows, row)
	}

	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true // Keyboard hides after one use
	return markup
}
