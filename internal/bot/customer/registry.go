package customer

import (
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"

	"github.com/rs/zerolog"
)

// --- Define types for handler "constructors" ---
// This allows us to pass dependencies from main.go

type CommandHandlerConstructor func(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.CommandHandler

type CallbackHandlerConstructor func(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.CallbackHandler

type MessageHandlerConstructor func(
	cfg *config.Config,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) ports.MessageHandler

// --- Create the global registries ---
var (
	commandRegistry  []CommandHandlerConstructor
	callbackRegistry []CallbackHandlerConstructor
	messageHandler   MessageHandlerConstructor
)

// RegisterCommand is called by handlers in their init() function
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterCallback is called by callback handlers in their init()
func RegisterCallback(constructor CallbackHandlerConstructor) {
	callbackRegistry = append(callbackRegistry, constructor)
}

// RegisterMessage sets the handler for text, photos and documents.
func RegisterMessage(constructor MessageHandlerConstructor) {
	// We only allow one global message handler
	messageHandler = constructor
}

// RegisterAllHandlers is the single function called by main.go
// It builds all registered handlers and passes them to the router.
func RegisterAllHandlers(
	cfg *config.Config,
	router *CustomerRouter,
	wiz *wizard.Wizard,
	baseLogger *zerolog.Logger,
) {
	log := baseLogger.With().Str("component", "customer_registry").Logger()

	for _, constructor := range commandRegistry {
		router.RegisterCommandHandler(constructor(cfg, wiz, baseLogger))
	}

	for _, constructor := range callbackRegistry {
		router.RegisterCallbackHandler(constructor(cfg, wiz, baseLogger))
	}

	if messageHandler != nil {
		router.SetMessageHandler(messageHandler(cfg, wiz, baseLogger))
		log.Info().Msg("Registered main message handler")
	}
}
