package moderator

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderDesk is what operators can do to orders from the chat.
type OrderDesk interface {
	Get(ctx context.Context, ref domain.OrderRef) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, source string) (*domain.Order, error)
	MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error)
}

// SupportDesk relays operator replies to customers.
type SupportDesk interface {
	AdminReply(ctx context.Context, telegramID int64, adminName, text string) (*domain.SupportMessage, error)
}

// Services are handed to every moderator handler.
type Services struct {
	Orders  OrderDesk
	Support SupportDesk
	Bot     ports.BotClientPort
}

// Define constructor types for moderator handlers
type CommandHandlerConstructor func(
	cfg *config.Config,
	svc Services,
	baseLogger *zerolog.Logger,
) CommandHandler

type ReplyHandlerConstructor func(
	cfg *config.Config,
	svc Services,
	baseLogger *zerolog.Logger,
) ReplyHandler

var (
	commandRegistry []CommandHandlerConstructor
	replyHandler    ReplyHandlerConstructor
)

// RegisterCommand is called by handlers in their init() function
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterReply sets the single handler for replies to alerts.
func RegisterReply(constructor ReplyHandlerConstructor) {
	replyHandler = constructor
}

// RegisterAllHandlers builds every registered handler into router.
func RegisterAllHandlers(
	cfg *config.Config,
	router *ModeratorRouter,
	svc Services,
	baseLogger *zerolog.Logger,
) {
	log := baseLogger.With().Str("component", "moderator_registry").Logger()

	for _, constructor := range commandRegistry {
		router.RegisterCommandHandler(constructor(cfg, svc, baseLogger))
	}

	if replyHandler != nil {
		router.SetReplyHandler(replyHandler(cfg, svc, baseLogger))
		log.Info().Msg("Registered reply handler")
	}
}
