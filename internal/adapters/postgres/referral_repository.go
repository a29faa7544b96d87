package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type referralRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.ReferralRepository = (*referralRepository)(nil)

// NewReferralRepository creates a repository for referral codes and wallets.
func NewReferralRepository(db *DB, baseLogger *zerolog.Logger) ports.ReferralRepository {
	return &referralRepository{
		db:  db,
		log: baseLogger.With().Str("component", "referral_repo").Logger(),
	}
}

const referralQueryCols = `
	telegram_user_id, code, available_balance, total_earnings, referrals_count, created_at
`

func (r *referralRepository) GetByUser(ctx context.Context, telegramID int64) (*domain.ReferralCode, error) {
	return r.getOne(ctx, `SELECT `+referralQueryCols+` FROM referral_codes WHERE telegram_user_id = $1`, telegramID)
}

func (r *referralRepository) GetByCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	return r.getOne(ctx, `SELECT `+referralQueryCols+` FROM referral_codes WHERE code = $1`, strings.ToUpper(code))
}

// Create returns false when either the user already has a code or the
// code string is taken.
func (r *referralRepository) Create(ctx context.Context, rc *domain.ReferralCode) (bool, error) {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO referral_codes (telegram_user_id, code)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING created_at`,
		rc.TelegramUserID, rc.Code,
	).Scan(&rc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", rc.TelegramUserID).Msg("Failed to create referral code")
		return false, err
	}
	return true, nil
}

// CreditCommission inserts the usage and credits the referrer's wallet in
// one transaction. The unique order_id makes a second credit a no-op.
func (r *referralRepository) CreditCommission(ctx context.Context, u *domain.ReferralUsage) (bool, error) {
	credited := false
	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO referral_usage (
				id, order_id, referrer_telegram_user_id, referred_telegram_user_id,
				discount_amount, commission_amount, commission_paid
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (order_id) DO NOTHING`,
			u.ID, u.OrderID, u.ReferrerID, u.ReferredID,
			u.DiscountAmount, u.CommissionAmount, u.CommissionPaid,
		)
		if err != nil {
			return fmt.Errorf("insert referral usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		tag, err = tx.Exec(ctx, `
			UPDATE referral_codes SET
				available_balance = available_balance + $2,
				total_earnings = total_earnings + $2,
				referrals_count = referrals_count + 1
			WHERE telegram_user_id = $1`,
			u.ReferrerID, u.CommissionAmount,
		)
		if err != nil {
			return fmt.Errorf("credit referrer wallet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("credit referrer wallet: no referral code for user %d", u.ReferrerID)
		}
		credited = true
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Str("order_id", u.OrderID.String()).Msg("Failed to credit commission")
		return false, err
	}
	return credited, nil
}

func (r *referralRepository) CountUsages(ctx context.Context, referrerID int64) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM referral_usage WHERE referrer_telegram_user_id = $1`,
		referrerID,
	).Scan(&n)
	return n, err
}

func (r *referralRepository) getOne(ctx context.Context, query string, arg any) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&rc.TelegramUserID,
		&rc.Code,
		&rc.AvailableBalance,
		&rc.TotalEarnings,
		&rc.ReferralsCount,
		&rc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to scan referral code row")
		return nil, err
	}
	return &rc, nil
}
