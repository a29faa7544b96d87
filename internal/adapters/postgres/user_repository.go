package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type userRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.UserRepository = (*userRepository)(nil) // Ensure compliance

// NewUserRepository creates a new repository for end-user operations.
func NewUserRepository(db *DB, baseLogger *zerolog.Logger) ports.UserRepository {
	return &userRepository{
		db:  db,
		log: baseLogger.With().Str("component", "user_repo").Logger(),
	}
}

const userQueryCols = `
	telegram_user_id, username, first_name, last_name,
	first_seen_at, last_interaction_at, admin_account_id
`

// Touch inserts the user on first contact and refreshes the profile after.
// Empty profile fields are stored as NULL.
func (r *userRepository) Touch(ctx context.Context, p domain.UserProfile) (*domain.EndUser, error) {
	query := `
		INSERT INTO end_users (telegram_user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_interaction_at = now()
		RETURNING ` + userQueryCols

	row := r.db.pool.QueryRow(ctx, query,
		p.TelegramUserID,
		nullable(p.Username),
		nullable(p.FirstName),
		nullable(p.LastName),
	)
	user, err := scanUser(row)
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", p.TelegramUserID).Msg("Failed to upsert user")
		return nil, fmt.Errorf("touch user: %w", err)
	}
	return user, nil
}

// GetByTelegramID finds a user by their Telegram ID.
func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.EndUser, error) {
	query := `SELECT ` + userQueryCols + ` FROM end_users WHERE telegram_user_id = $1`
	return r.getOne(ctx, query, telegramID)
}

func (r *userRepository) GetByAdminAccountID(ctx context.Context, accountID uuid.UUID) (*domain.EndUser, error) {
	query := `SELECT ` + userQueryCols + ` FROM end_users WHERE admin_account_id = $1`
	return r.getOne(ctx, query, accountID)
}

// LinkAdminAccount creates the chat identity when it has not talked to the
// bot yet; its profile is filled in by the first Touch.
func (r *userRepository) LinkAdminAccount(ctx context.Context, telegramID int64, accountID uuid.UUID) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO end_users (telegram_user_id, admin_account_id)
		VALUES ($1, $2)
		ON CONFLICT (telegram_user_id) DO UPDATE SET admin_account_id = EXCLUDED.admin_account_id`,
		telegramID, accountID,
	)
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", telegramID).Msg("Failed to link admin account")
		return fmt.Errorf("link admin account: %w", err)
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.EndUser, error) {
	user, err := scanUser(r.db.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil for "not found"
		}
		r.log.Error().Err(err).Msg("Failed to scan user row")
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.EndUser, error) {
	var u domain.EndUser
	err := row.Scan(
		&u.TelegramUserID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.FirstSeenAt,
		&u.LastInteractionAt,
		&u.AdminAccountID,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
