package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is held by a dashboard account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AdminAccount is a dashboard login.
type AdminAccount struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin reports whether the account may use the dashboard.
func (a *AdminAccount) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// TrustedDevice exempts a device fingerprint from the code challenge.
type TrustedDevice struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	DeviceID   string
	LastUsedAt time.Time
	CreatedAt  time.Time
}

// TwoFactorCode is a single-use code tied to an account and a device.
type TwoFactorCode struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Code           string
	TelegramUserID int64
	DeviceID       string
	ExpiresAt      time.Time
	Verified       bool
	CreatedAt      time.Time
}

// Usable reports whether the code can still be redeemed at now.
func (c *TwoFactorCode) Usable(now time.Time) bool {
	return c != nil && !c.Verified && now.Before(c.ExpiresAt)
}
