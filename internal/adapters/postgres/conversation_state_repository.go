package postgres

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type conversationStateRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.ConversationStateRepository = (*conversationStateRepository)(nil)

// NewConversationStateRepository stores wizard state with the stack and
// draft as JSONB.
func NewConversationStateRepository(db *DB, baseLogger *zerolog.Logger) ports.ConversationStateRepository {
	return &conversationStateRepository{
		db:  db,
		log: baseLogger.With().Str("component", "state_repo").Logger(),
	}
}

func (r *conversationStateRepository) Get(ctx context.Context, telegramID int64) (*domain.ConversationState, error) {
	s := domain.NewConversationState(telegramID)
	var step string
	err := r.db.pool.QueryRow(ctx, `
		SELECT current_step, navigation_stack, order_draft, revision, updated_at
		FROM conversation_state WHERE telegram_user_id = $1`,
		telegramID,
	).Scan(&step, &s.NavigationStack, &s.Draft, &s.Revision, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", telegramID).Msg("Failed to load conversation state")
		return nil, fmt.Errorf("get conversation state: %w", err)
	}

	s.CurrentStep = domain.Step(step)
	if !s.CurrentStep.Valid() {
		r.log.Warn().Str("step", step).Int64("telegram_id", telegramID).Msg("Stored step unknown, resetting to home")
		s.Reset()
	}
	if s.NavigationStack == nil {
		s.NavigationStack = []domain.Step{}
	}
	return s, nil
}

// Save inserts when Revision is 0, otherwise updates only if the stored
// revision still equals state.Revision.
func (r *conversationStateRepository) Save(ctx context.Context, state *domain.ConversationState) error {
	stack := state.NavigationStack
	if stack == nil {
		stack = []domain.Step{}
	}

	var row pgx.Row
	if state.Revision == 0 {
		row = r.db.pool.QueryRow(ctx, `
			INSERT INTO conversation_state (telegram_user_id, current_step, navigation_stack, order_draft, revision)
			VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (telegram_user_id) DO NOTHING
			RETURNING revision, updated_at`,
			state.TelegramUserID, string(state.CurrentStep), stack, state.Draft,
		)
	} else {
		row = r.db.pool.QueryRow(ctx, `
			UPDATE conversation_state SET
				current_step = $2,
				navigation_stack = $3,
				order_draft = $4,
				revision = revision + 1,
				updated_at = now()
			WHERE telegram_user_id = $1 AND revision = $5
			RETURNING revision, updated_at`,
			state.TelegramUserID, string(state.CurrentStep), stack, state.Draft, state.Revision,
		)
	}

	err := row.Scan(&state.Revision, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrStateConflict
	}
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", state.TelegramUserID).Msg("Failed to save conversation state")
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}
