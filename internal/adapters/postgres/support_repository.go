package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type supportRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.SupportRepository = (*supportRepository)(nil)

// NewSupportRepository creates the append-only support log.
func NewSupportRepository(db *DB, baseLogger *zerolog.Logger) ports.SupportRepository {
	return &supportRepository{
		db:  db,
		log: baseLogger.With().Str("component", "support_repo").Logger(),
	}
}

func (r *supportRepository) Create(ctx context.Context, m *domain.SupportMessage) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO support_messages (id, telegram_user_id, telegram_username, message_text, is_from_admin, admin_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		m.ID, m.TelegramUserID, m.TelegramUsername, m.Text, m.IsFromAdmin, m.AdminName,
	).Scan(&m.CreatedAt)
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", m.TelegramUserID).Msg("Failed to insert support message")
	}
	return err
}

// ListByUser returns the user's latest messages, newest first.
func (r *supportRepository) ListByUser(ctx context.Context, telegramID int64, limit int) ([]domain.SupportMessage, error) {
	return r.list(ctx, `
		SELECT id, telegram_user_id, telegram_username, message_text, is_from_admin, admin_name, created_at
		FROM support_messages WHERE telegram_user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		telegramID, limit,
	)
}

// ListRecent returns the latest messages across all users, newest first.
func (r *supportRepository) ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error) {
	return r.list(ctx, `
		SELECT id, telegram_user_id, telegram_username, message_text, is_from_admin, admin_name, created_at
		FROM support_messages
		ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

func (r *supportRepository) list(ctx context.Context, query string, args ...any) ([]domain.SupportMessage, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list support messages")
		return nil, err
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SupportMessage, error) {
		var m domain.SupportMessage
		err := row.Scan(&m.ID, &m.TelegramUserID, &m.TelegramUsername, &m.Text, &m.IsFromAdmin, &m.AdminName, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
