package domain

import "errors"

// Validation errors. The wizard recovers from these locally.
var (
	ErrInvalidPageCount     = errors.New("page count out of range")
	ErrUnknownLevel         = errors.New("unknown academic level")
	ErrUnknownUrgency       = errors.New("unknown urgency tier")
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrSelfReferral         = errors.New("cannot use own referral code")
	ErrIncompleteDraft      = errors.New("order draft is incomplete")
)

// State and persistence errors.
var (
	ErrStateConflict           = errors.New("conversation state was modified concurrently")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInsufficientBalance     = errors.New("insufficient wallet balance")
	ErrOrderNumberTaken        = errors.New("order number already in use")
)

// Authentication errors.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNotAdmin             = errors.New("account does not hold the admin role")
	ErrTelegramLinkMissing  = errors.New("no linked Telegram account")
	ErrInvalidTwoFactorCode = errors.New("invalid or expired verification code")
	ErrTooManyCodes         = errors.New("too many verification codes requested")
	ErrAccountExists        = errors.New("an account with this email already exists")
)
