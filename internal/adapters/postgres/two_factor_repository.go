package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type trustedDeviceRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.TrustedDeviceRepository = (*trustedDeviceRepository)(nil)

func NewTrustedDeviceRepository(db *DB, baseLogger *zerolog.Logger) ports.TrustedDeviceRepository {
	return &trustedDeviceRepository{
		db:  db,
		log: baseLogger.With().Str("component", "trusted_device_repo").Logger(),
	}
}

func (r *trustedDeviceRepository) Get(ctx context.Context, accountID uuid.UUID, deviceID string) (*domain.TrustedDevice, error) {
	var d domain.TrustedDevice
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, account_id, device_id, last_used_at, created_at
		FROM trusted_devices WHERE account_id = $1 AND device_id = $2`,
		accountID, deviceID,
	).Scan(&d.ID, &d.AccountID, &d.DeviceID, &d.LastUsedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to load trusted device")
		return nil, err
	}
	return &d, nil
}

func (r *trustedDeviceRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `UPDATE trusted_devices SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *trustedDeviceRepository) Upsert(ctx context.Context, accountID uuid.UUID, deviceID string, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO trusted_devices (id, account_id, device_id, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (account_id, device_id) DO UPDATE SET last_used_at = EXCLUDED.last_used_at`,
		uuid.New(), accountID, deviceID, at,
	)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to trust device")
	}
	return err
}

type twoFactorCodeRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.TwoFactorCodeRepository = (*twoFactorCodeRepository)(nil)

func NewTwoFactorCodeRepository(db *DB, baseLogger *zerolog.Logger) ports.TwoFactorCodeRepository {
	return &twoFactorCodeRepository{
		db:  db,
		log: baseLogger.With().Str("component", "two_factor_repo").Logger(),
	}
}

func (r *twoFactorCodeRepository) Create(ctx context.Context, c *domain.TwoFactorCode) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO two_factor_codes (id, account_id, code, telegram_user_id, device_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		c.ID, c.AccountID, c.Code, c.TelegramUserID, c.DeviceID, c.ExpiresAt,
	).Scan(&c.CreatedAt)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", c.AccountID.String()).Msg("Failed to store verification code")
	}
	return err
}

func (r *twoFactorCodeRepository) FindLatestUsable(ctx context.Context, accountID uuid.UUID, deviceID, code string, now time.Time) (*domain.TwoFactorCode, error) {
	var c domain.TwoFactorCode
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, account_id, code, telegram_user_id, device_id, expires_at, verified, created_at
		FROM two_factor_codes
		WHERE account_id = $1 AND device_id = $2 AND code = $3
			AND NOT verified AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1`,
		accountID, deviceID, code, now,
	).Scan(&c.ID, &c.AccountID, &c.Code, &c.TelegramUserID, &c.DeviceID, &c.ExpiresAt, &c.Verified, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *twoFactorCodeRepository) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `UPDATE two_factor_codes SET verified = TRUE WHERE id = $1 AND NOT verified`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
