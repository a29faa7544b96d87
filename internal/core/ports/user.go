package ports

import (
	"FlashGrade/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence operations for EndUsers.
type UserRepository interface {
	// Touch creates the user on first contact, otherwise refreshes
	// profile fields and last_interaction_at.
	Touch(ctx context.Context, profile domain.UserProfile) (*domain.EndUser, error)

	// GetByTelegramID finds a user by their unique Telegram ID.
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.EndUser, error)

	// GetByAdminAccountID finds the chat identity linked to a dashboard account.
	GetByAdminAccountID(ctx context.Context, accountID uuid.UUID) (*domain.EndUser, error)

	LinkAdminAccount(ctx context.Context, telegramID int64, accountID uuid.UUID) error
}

// ConversationStateRepository persists the wizard position of each user.
type ConversationStateRepository interface {
	// Get returns the stored state, or a fresh home state with Revision 0.
	Get(ctx context.Context, telegramID int64) (*domain.ConversationState, error)

	// Save writes the state if its Revision still matches the stored one
	// and bumps Revision. A mismatch yields domain.ErrStateConflict.
	Save(ctx context.Context, state *domain.ConversationState) error
}
