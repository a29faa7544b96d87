package ports

import "context"

// AdminAlert is a message for the operators' Telegram chat.
type AdminAlert struct {
	Text string // HTML
}

// AdminNotifier posts alerts where the support team will see them.
type AdminNotifier interface {
	Notify(ctx context.Context, alert AdminAlert) error
}
