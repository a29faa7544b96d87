package messages

import (
	"FlashGrade/internal/core/ports"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_DefaultsToHTML(t *testing.T) {
	msg := NewBuilder(42).WithText("<b>Bonjour</b>").Build()

	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "<b>Bonjour</b>", msg.Text)
	assert.Equal(t, ParseModeHTML, msg.ParseMode)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestBuilder_InlineButtonsAndEdit(t *testing.T) {
	b := NewBuilder(42).
		WithText("Menu").
		WithInlineButtons([][]ports.Button{
			Row(Callback("Accueil", "home")),
			Row(Link("Partager", "https://t.me/share/url?url=x")),
		})

	msg := b.Build()
	if assert.NotNil(t, msg.ReplyMarkup) {
		assert.True(t, msg.ReplyMarkup.IsInline)
		assert.Equal(t, "home", msg.ReplyMarkup.Buttons[0][0].Data)
		assert.Equal(t, "https://t.me/share/url?url=x", msg.ReplyMarkup.Buttons[1][0].URL)
	}

	edit := b.BuildEdit(7)
	assert.Equal(t, 7, edit.MessageID)
	assert.Equal(t, msg.Text, edit.Text)
	assert.Equal(t, msg.ReplyMarkup, edit.ReplyMarkup)
}

func TestBuilder_RemoveKeyboardClearsMarkup(t *testing.T) {
	msg := NewBuilder(1).
		WithInlineButtons([][]ports.Button{Row(Callback("x", "y"))}).
		WithRemoveKeyboard().
		WithParseMode("").
		Build()

	assert.True(t, msg.RemoveKeyboard)
	assert.Nil(t, msg.ReplyMarkup)
	assert.Empty(t, msg.ParseMode)
}

func TestClientLineRoundTrip(t *testing.T) {
	bob := "bob"
	alert := "💬 Support\n" + ClientLine(&bob, 4242) + "\n\nJ'ai une question"

	id, ok := ClientIDFromAlert(alert)
	assert.True(t, ok)
	assert.Equal(t, int64(4242), id)

	id, ok = ClientIDFromAlert(ClientLine(nil, 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = ClientIDFromAlert("🆕 Nouvelle commande ME-AB12CD34")
	assert.False(t, ok)
}
