package messages

import "FlashGrade/internal/core/ports"

// ParseModeHTML is the parse mode every bot text is written for.
const ParseModeHTML = "HTML"

// Builder helps construct outbound bot messages.
type Builder struct {
	params ports.SendMessageParams
}

// NewBuilder creates a new message builder.
func NewBuilder(chatID int64) *Builder {
	return &Builder{
		params: ports.SendMessageParams{
			ChatID:    chatID,
			ParseMode: ParseModeHTML,
		},
	}
}

// WithText sets the message text.
func (b *Builder) WithText(text string) *Builder {
	b.params.Text = text
	return b
}

// WithParseMode overrides the default parse mode.
func (b *Builder) WithParseMode(mode string) *Builder {
	b.params.ParseMode = mode
	return b
}

// WithRemoveKeyboard adds a flag to remove the reply keyboard.
func (b *Builder) WithRemoveKeyboard() *Builder {
	b.params.RemoveKeyboard = true
	b.params.ReplyMarkup = nil
	return b
}

// WithInlineButtons adds a set of inline buttons.
func (b *Builder) WithInlineButtons(buttons [][]ports.Button) *Builder {
	if len(buttons) == 0 {
		b.params.ReplyMarkup = nil
		return b
	}
	b.params.RemoveKeyboard = false
	b.params.ReplyMarkup = &ports.ReplyMarkup{
		IsInline: true,
		Buttons:  buttons,
	}
	return b
}

// Build returns the final SendMessageParams struct.
func (b *Builder) Build() ports.SendMessageParams {
	return b.params
}

// BuildEdit returns the same content as an edit of messageID.
func (b *Builder) BuildEdit(messageID int) ports.EditMessageParams {
	return ports.EditMessageParams{
		ChatID:      b.params.ChatID,
		MessageID:   messageID,
		Text:        b.params.Text,
		ParseMode:   b.params.ParseMode,
		ReplyMarkup: b.params.ReplyMarkup,
	}
}

// Callback is a single inline button carrying callback data.
func Callback(text, data string) ports.Button {
	return ports.Button{Text: text, Data: data}
}

// Link is a single inline button opening url.
func Link(text, url string) ports.Button {
	return ports.Button{Text: text, URL: url}
}

// Row groups buttons into one keyboard row.
func Row(buttons ...ports.Button) []ports.Button {
	return buttons
}
