package ports

import (
	"FlashGrade/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the persistence operations for Orders.
type OrderRepository interface {
	// PlaceOrder inserts the order and debits the customer's wallet by
	// WalletAmountUsed in one transaction.
	PlaceOrder(ctx context.Context, order *domain.Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)

	// UpdateStatus moves an order from one status to another. It returns
	// false when the stored status was no longer `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error)

	// MarkPaid flips a pending order to paid and stores the proof path.
	// It returns false when the order was not pending any more.
	MarkPaid(ctx context.Context, id uuid.UUID, proofPath *string) (bool, error)
}

// ReferralRepository stores referral codes, wallets and usages.
type ReferralRepository interface {
	GetByUser(ctx context.Context, telegramID int64) (*domain.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*domain.ReferralCode, error)

	// Create inserts a new code. It returns false if the code string is taken.
	Create(ctx context.Context, code *domain.ReferralCode) (bool, error)

	// CreditCommission records the usage and credits the referrer, once per order.
	// It returns false when a usage already exists for the order.
	CreditCommission(ctx context.Context, usage *domain.ReferralUsage) (bool, error)

	CountUsages(ctx context.Context, referrerID int64) (int, error)
}

// SupportRepository is the append-only support log.
type SupportRepository interface {
	Create(ctx context.Context, msg *domain.SupportMessage) error
	ListByUser(ctx context.Context, telegramID int64, limit int) ([]domain.SupportMessage, error)
	ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error)
}
