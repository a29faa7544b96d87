package domain

import (
	"time"

	"github.com/google/uuid"
)

// SupportMessage is an append-only log entry between a customer and support.
type SupportMessage struct {
	ID               uuid.UUID
	TelegramUserID   int64
	TelegramUsername *string
	Text             string
	IsFromAdmin      bool
	AdminName        *string
	CreatedAt        time.Time
}

// SupportThread groups a customer's messages for the dashboard.
type SupportThread struct {
	TelegramUserID   int64            `json:"telegram_user_id"`
	TelegramUsername *string          `json:"telegram_username,omitempty"`
	LastMessageAt    time.Time        `json:"last_message_at"`
	Messages         []SupportMessage `json:"messages"`
}
