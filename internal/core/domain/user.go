package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EndUser is a chat identity talking to the bot.
// Created on first contact, touched on every update, never deleted.
type EndUser struct {
	TelegramUserID    int64
	Username          *string // Nullable, without the leading @
	FirstName         *string // Nullable
	LastName          *string // Nullable
	FirstSeenAt       time.Time
	LastInteractionAt time.Time
	AdminAccountID    *uuid.UUID // Set when the identity is linked to a dashboard account
}

// UserProfile is what an inbound update tells us about the sender.
type UserProfile struct {
	TelegramUserID int64
	Username       string
	FirstName      string
	LastName       string
}

// DisplayName returns the best human-readable name available.
func (u *EndUser) DisplayName() string {
	if u == nil {
		return ""
	}
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	return "Client"
}

// Handle returns the username or an empty string.
func (u *EndUser) Handle() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}
