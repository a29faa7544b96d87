package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type adminAccountRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.AdminAccountRepository = (*adminAccountRepository)(nil)

func NewAdminAccountRepository(db *DB, baseLogger *zerolog.Logger) ports.AdminAccountRepository {
	return &adminAccountRepository{
		db:  db,
		log: baseLogger.With().Str("component", "admin_account_repo").Logger(),
	}
}

const accountQueryCols = `id, email, password_hash, display_name, role, created_at`

func (r *adminAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminAccount, error) {
	return r.getOne(ctx, `SELECT `+accountQueryCols+` FROM admin_accounts WHERE email = $1`, strings.ToLower(email))
}

func (r *adminAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminAccount, error) {
	return r.getOne(ctx, `SELECT `+accountQueryCols+` FROM admin_accounts WHERE id = $1`, id)
}

// Create returns domain.ErrAccountExists when the email is taken.
func (r *adminAccountRepository) Create(ctx context.Context, a *domain.AdminAccount) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO admin_accounts (id, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, a.DisplayName, string(a.Role),
	).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAccountExists
	}
	if err != nil {
		r.log.Error().Err(err).Str("email", a.Email).Msg("Failed to create admin account")
	}
	return err
}

func (r *adminAccountRepository) getOne(ctx context.Context, query string, arg any) (*domain.AdminAccount, error) {
	var (
		a    domain.AdminAccount
		role string
	)
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to scan admin account row")
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}
