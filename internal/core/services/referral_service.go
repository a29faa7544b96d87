package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"FlashGrade/internal/shared/metrics"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxCodeAttempts = 5

// ReferralService issues referral codes, validates them and credits commission.
type ReferralService struct {
	repo    ports.ReferralRepository
	metrics *metrics.Metrics
	log     zerolog.Logger
	newCode func() (string, error)
}

// NewReferralService creates the referral/wallet service.
func NewReferralService(repo ports.ReferralRepository, m *metrics.Metrics, baseLogger *zerolog.Logger) *ReferralService {
	return &ReferralService{
		repo:    repo,
		metrics: m,
		log:     baseLogger.With().Str("component", "referral_service").Logger(),
		newCode: func() (string, error) { return randomCode(8) },
	}
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GetOrCreate returns the user's code, issuing one on first request.
func (s *ReferralService) GetOrCreate(ctx context.Context, telegramID int64) (*domain.ReferralCode, error) {
	existing, err := s.repo.GetByUser(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}
		rc := &domain.ReferralCode{TelegramUserID: telegramID, Code: code}
		inserted, err := s.repo.Create(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("create referral code: %w", err)
		}
		if inserted {
			s.log.Info().Int64("user_id", telegramID).Str("code", code).Msg("Issued referral code")
			return rc, nil
		}

		// Either the code string collided or another update issued the
		// user's code in the meantime.
		if again, err := s.repo.GetByUser(ctx, telegramID); err != nil {
			return nil, fmt.Errorf("get referral code: %w", err)
		} else if again != nil {
			return again, nil
		}
	}
	return nil, errors.New("could not issue a unique referral code")
}

// Validate checks that code exists and does not belong to telegramID.
func (s *ReferralService) Validate(ctx context.Context, raw string, telegramID int64) (*domain.ReferralCode, error) {
	code := NormalizeCode(raw)
	if code == "" {
		return nil, domain.ErrReferralCodeNotFound
	}
	rc, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup referral code: %w", err)
	}
	if rc == nil {
		return nil, domain.ErrReferralCodeNotFound
	}
	if rc.TelegramUserID == telegramID {
		return nil, domain.ErrSelfReferral
	}
	return rc, nil
}

// Balance returns the spendable wallet of a user, 0 when no code was issued yet.
func (s *ReferralService) Balance(ctx context.Context, telegramID int64) (float64, error) {
	rc, err := s.repo.GetByUser(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("get wallet: %w", err)
	}
	if rc == nil {
		return 0, nil
	}
	return rc.AvailableBalance, nil
}

// CreditCommission records the usage of the order's referral code and pays
// the referrer floor(final/100)*10. It is a no-op for orders without a code
// and for orders that were already credited.
func (s *ReferralService) CreditCommission(ctx context.Context, order *domain.Order) (*domain.ReferralUsage, error) {
	if order.UsedReferralCode == nil {
		return nil, nil
	}
	rc, err := s.repo.GetByCode(ctx, *order.UsedReferralCode)
	if err != nil {
		return nil, fmt.Errorf("lookup referrer: %w", err)
	}
	if rc == nil {
		s.log.Warn().Str("order", order.OrderNumber).Str("code", *order.UsedReferralCode).Msg("Referral code vanished, no commission credited")
		return nil, nil
	}
	if rc.TelegramUserID == order.TelegramUserID {
		return nil, domain.ErrSelfReferral
	}

	usage := &domain.ReferralUsage{
		ID:               uuid.New(),
		OrderID:          order.ID,
		ReferrerID:       rc.TelegramUserID,
		ReferredID:       order.TelegramUserID,
		DiscountAmount:   order.ReferralDiscount,
		CommissionAmount: pricing.Commission(order.FinalPrice),
		CommissionPaid:   true,
	}
	credited, err := s.repo.CreditCommission(ctx, usage)
	if err != nil {
		return nil, fmt.Errorf("credit commission: %w", err)
	}
	if !credited {
		s.log.Info().Str("order", order.OrderNumber).Msg("Commission already credited")
		return nil, nil
	}

	if s.metrics != nil {
		s.metrics.CommissionCredited.Add(usage.CommissionAmount)
	}
	s.log.Info().
		Str("order", order.OrderNumber).
		Int64("referrer", usage.ReferrerID).
		Float64("commission", usage.CommissionAmount).
		Msg("Commission credited")
	return usage, nil
}

// ReferralSummary is what the referral screen shows.
type ReferralSummary struct {
	Code      *domain.ReferralCode
	Referrals int
}

// Summary issues the code if needed and counts paid referrals.
func (s *ReferralService) Summary(ctx context.Context, telegramID int64) (*ReferralSummary, error) {
	rc, err := s.GetOrCreate(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.CountUsages(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	return &ReferralSummary{Code: rc, Referrals: n}, nil
}
