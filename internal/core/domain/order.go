package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReview     OrderStatus = "review"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusPaid:       1,
	OrderStatusInProgress: 2,
	OrderStatusReview:     3,
	OrderStatusCompleted:  4,
}

// AllOrderStatuses lists statuses in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusInProgress,
		OrderStatusReview,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo allows forward moves (skipping is fine) and
// cancellation from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// AtLeastPaid reports whether s has reached or passed paid without being cancelled.
func (s OrderStatus) AtLeastPaid() bool {
	r, ok := statusRank[s]
	return ok && r >= statusRank[OrderStatusPaid]
}

// Order is created once, when the customer confirms the summary.
type Order struct {
	ID                  uuid.UUID
	OrderNumber         string
	TelegramUserID      int64
	TelegramUsername    *string
	Subject             string
	InstructionFilePath *string
	AcademicLevel       AcademicLevel
	LengthPages         int
	Urgency             UrgencyTier
	BasePrice           float64
	UrgencyMultiplier   float64
	ReferralDiscount    float64
	FinalPrice          float64 // After referral discount, before wallet
	WalletAmountUsed    float64
	UsedReferralCode    *string
	SessionToken        uuid.UUID
	PaymentProofPath    *string
	Status              OrderStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AmountDue is what the customer still has to pay after the wallet offset.
func (o *Order) AmountDue() float64 {
	return math.Max(0, RoundMoney(o.FinalPrice-o.WalletAmountUsed))
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status         *OrderStatus
	TelegramUserID *int64
	Since          *time.Time
	Limit          int
}

// OrderRef identifies an order either by ID or by order number.
type OrderRef struct {
	ID          *uuid.UUID
	OrderNumber string
}
