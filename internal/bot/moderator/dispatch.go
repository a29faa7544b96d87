package moderator

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateHandler processes one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update) error
}

// Dispatcher sends updates from the operators' chat to the moderator
// router and everything else to the customer side.
type Dispatcher struct {
	operators *ModeratorRouter
	customers UpdateHandler
}

// NewDispatcher combines both routers behind one bot.
func NewDispatcher(operators *ModeratorRouter, customers UpdateHandler) *Dispatcher {
	return &Dispatcher{operators: operators, customers: customers}
}

// HandleUpdate routes update by the chat it was posted in.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	if d.operators != nil && d.operators.Owns(update) {
		return d.operators.HandleUpdate(ctx, update)
	}
	return d.customers.HandleUpdate(ctx, update)
}
