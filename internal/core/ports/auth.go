package ports

import (
	"FlashGrade/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// AdminAccountRepository reads dashboard accounts.
type AdminAccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.AdminAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminAccount, error)
	Create(ctx context.Context, account *domain.AdminAccount) error
}

// TrustedDeviceRepository is the per-account device allow-list.
type TrustedDeviceRepository interface {
	Get(ctx context.Context, accountID uuid.UUID, deviceID string) (*domain.TrustedDevice, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Upsert(ctx context.Context, accountID uuid.UUID, deviceID string, at time.Time) error
}

// TwoFactorCodeRepository stores one-time codes.
type TwoFactorCodeRepository interface {
	Create(ctx context.Context, code *domain.TwoFactorCode) error

	// FindLatestUsable returns the most recent unverified, unexpired code
	// matching account, device and value exactly.
	FindLatestUsable(ctx context.Context, accountID uuid.UUID, deviceID, code string, now time.Time) (*domain.TwoFactorCode, error)

	// MarkVerified consumes the code. It returns false if it was already used.
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)
}

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
