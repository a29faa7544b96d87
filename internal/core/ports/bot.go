package ports

import (
	"FlashGrade/internal/core/domain"
	"context"
)

// --- Bot Message Structures ---

// Button represents a single button in a keyboard.
type Button struct {
	Text string
	Data string // For callbacks
	URL  string // For URL buttons
}

// ReplyMarkup represents any kind of keyboard markup.
type ReplyMarkup struct {
	Buttons  [][]Button
	IsInline bool // Differentiates between Inline and Reply keyboards
}

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID         int64
	Text           string
	ParseMode      string // "HTML" or "MarkdownV2"
	ReplyMarkup    *ReplyMarkup
	RemoveKeyboard bool
}

// EditMessageParams replaces the text (and inline keyboard) of a sent message.
type EditMessageParams struct {
	ChatID      int64
	MessageID   int
	Text        string
	ParseMode   string
	ReplyMarkup *ReplyMarkup
}

// AnswerCallbackParams dismisses the loading indicator of a button press.
type AnswerCallbackParams struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for *sending* messages.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) (int, error)
	EditMessageText(ctx context.Context, params EditMessageParams) error
	AnswerCallbackQuery(ctx context.Context, params AnswerCallbackParams) error
	// GetFileURL resolves an opaque file reference to a download URL.
	GetFileURL(ctx context.Context, fileID string) (string, error)
	SetMenuCommands(ctx context.Context) error
}

// --- Bot Handler Port (Inbound) ---

// FileInfo describes a photo or document attached to a message.
type FileInfo struct {
	FileID   string
	FileName string
	MimeType string
	FileSize int
	IsPhoto  bool
}

// BotUpdate represents a simplified, generic update.
type BotUpdate struct {
	UpdateID        int
	MessageID       int
	ChatID          int64
	UserID          int64
	Username        string
	FirstName       string
	LastName        string
	Text            string
	Command         string
	CommandArgs     string
	CallbackQueryID string
	CallbackData    *string
	File            *FileInfo
}

// Profile extracts the sender profile carried by the update.
func (u *BotUpdate) Profile() domain.UserProfile {
	return domain.UserProfile{
		TelegramUserID: u.UserID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
	}
}

// IsCallback reports whether the update is a button press.
func (u *BotUpdate) IsCallback() bool {
	return u.CallbackData != nil
}

// CommandHandler defines the "plugin" interface for handling bot commands.
type CommandHandler interface {
	// Command returns the command string without the slash (e.g., "start")
	Command() string
	Handle(ctx context.Context, update *BotUpdate, user *domain.EndUser, state *domain.ConversationState) error
}

// CallbackHandler defines the interface for handling callback queries.
type CallbackHandler interface {
	// Prefixes returns the callback data prefixes this handler owns (e.g., "level_")
	Prefixes() []string
	Handle(ctx context.Context, update *BotUpdate, user *domain.EndUser, state *domain.ConversationState) error
}

// MessageHandler handles every non-command message (text, photo, document).
type MessageHandler interface {
	Handle(ctx context.Context, update *BotUpdate, user *domain.EndUser, state *domain.ConversationState) error
}
