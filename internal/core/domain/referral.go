package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralCode is a user's personal code and wallet.
type ReferralCode struct {
	TelegramUserID   int64
	Code             string
	AvailableBalance float64
	TotalEarnings    float64
	ReferralsCount   int
	CreatedAt        time.Time
}

// ReferralUsage is written once per paid order that carried a referral code.
type ReferralUsage struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ReferrerID       int64
	ReferredID       int64
	DiscountAmount   float64
	CommissionAmount float64
	CommissionPaid   bool
	CreatedAt        time.Time
}
