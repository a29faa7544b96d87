package handlers

import (
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/services"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockBotClient struct {
	mock.Mock
}

var _ ports.BotClientPort = (*MockBotClient)(nil)

func (m *MockBotClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}

func (m *MockBotClient) EditMessageText(ctx context.Context, params ports.EditMessageParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBotClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBotClient) GetFileURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *MockBotClient) SetMenuCommands(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockAdminNotifier struct {
	mock.Mock
}

var _ ports.AdminNotifier = (*MockAdminNotifier)(nil)

func (m *MockAdminNotifier) Notify(ctx context.Context, alert ports.AdminAlert) error {
	return m.Called(ctx, alert).Error(0)
}

// --- Tests ---

func TestCallbackHandlers_CoverEveryButton(t *testing.T) {
	nopLogger := zerolog.Nop()
	owned := map[string]bool{}
	for _, h := range []ports.CallbackHandler{
		NewMenuHandler(nil, nil, &nopLogger),
		NewOrderHandler(nil, nil, &nopLogger),
	} {
		for _, p := range h.Prefixes() {
			assert.False(t, owned[p], "prefix %q registered twice", p)
			owned[p] = true
		}
	}

	for _, data := range []string{
		wizard.CallbackHome, wizard.CallbackBack, wizard.CallbackNewOrder,
		wizard.CallbackTypeInstruction, wizard.CallbackUploadInstruction,
		wizard.CallbackReferral, wizard.CallbackPricing, wizard.CallbackSupport,
		wizard.CallbackLevelPrefix, wizard.CallbackUrgencyPrefix,
		wizard.CallbackSkipReferral, wizard.CallbackUseSuggestedCode,
		wizard.CallbackConfirmOrder, wizard.CallbackUploadProof,
	} {
		assert.True(t, owned[data], "no handler for %q", data)
	}
}

func TestNotificationHandler_StatusChangeNotifiesCustomer(t *testing.T) {
	nopLogger := zerolog.Nop()
	bot := new(MockBotClient)
	h := NewNotificationHandler(bot, nil, &nopLogger)

	order := &domain.Order{OrderNumber: "ME-AB12CD34", TelegramUserID: 42, Status: domain.OrderStatusInProgress}
	bot.On("SendMessage", mock.Anything, mock.MatchedBy(func(p ports.SendMessageParams) bool {
		return p.ChatID == 42 && p.ParseMode == "HTML" &&
			assert.Contains(t, p.Text, "ME-AB12CD34") &&
			assert.Contains(t, p.Text, "en cours de rédaction")
	})).Return(1, nil).Once()

	err := h.HandleOrderStatusChanged(context.Background(), ports.Event{
		Topic: ports.TopicOrderStatusChanged,
		Data:  ports.OrderEvent{Order: order, PrevStatus: domain.OrderStatusPaid, Source: services.SourceAdmin},
	})

	require.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestNotificationHandler_PaidFromWizardOnlyAlertsAdmins(t *testing.T) {
	nopLogger := zerolog.Nop()
	bot := new(MockBotClient)
	admin := new(MockAdminNotifier)
	h := NewNotificationHandler(bot, admin, &nopLogger)

	proof := "payment-proofs/42/ME-AB12CD34_1.jpg"
	order := &domain.Order{OrderNumber: "ME-AB12CD34", TelegramUserID: 42, Status: domain.OrderStatusPaid, PaymentProofPath: &proof}
	admin.On("Notify", mock.Anything, mock.MatchedBy(func(a ports.AdminAlert) bool {
		return assert.Contains(t, a.Text, "Commande payée") && assert.Contains(t, a.Text, proof)
	})).Return(nil).Once()

	err := h.HandleOrderPaid(context.Background(), ports.Event{
		Topic: ports.TopicOrderPaid,
		Data:  ports.OrderEvent{Order: order, Source: services.SourceWizard},
	})

	require.NoError(t, err)
	admin.AssertExpectations(t)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestNotificationHandler_PaidByAdminReachesBoth(t *testing.T) {
	nopLogger := zerolog.Nop()
	bot := new(MockBotClient)
	admin := new(MockAdminNotifier)
	h := NewNotificationHandler(bot, admin, &nopLogger)

	order := &domain.Order{OrderNumber: "ME-AB12CD34", TelegramUserID: 42, Status: domain.OrderStatusPaid}
	admin.On("Notify", mock.Anything, mock.Anything).Return(errors.New("chat gone")).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(1, nil).Once()

	err := h.HandleOrderPaid(context.Background(), ports.Event{
		Topic: ports.TopicOrderPaid,
		Data:  ports.OrderEvent{Order: order, Source: services.SourceAdmin},
	})

	require.Error(t, err)
	bot.AssertExpectations(t)
}

func TestNotificationHandler_SupportMessages(t *testing.T) {
	nopLogger := zerolog.Nop()
	admin := new(MockAdminNotifier)
	h := NewNotificationHandler(new(MockBotClient), admin, &nopLogger)

	name := "lea"
	admin.On("Notify", mock.Anything, ports.AdminAlert{Text: "💬 <b>Support</b>\nClient: @lea (42)\n\nBonjour &lt;3"}).Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, h.HandleSupportMessage(ctx, ports.Event{Data: ports.SupportEvent{
		Message: &domain.SupportMessage{TelegramUserID: 42, TelegramUsername: &name, Text: "Bonjour <3"},
	}}))
	// Replies written by the team are not echoed back to the team.
	require.NoError(t, h.HandleSupportMessage(ctx, ports.Event{Data: ports.SupportEvent{
		Message: &domain.SupportMessage{TelegramUserID: 42, Text: "Réponse", IsFromAdmin: true},
	}}))
	// Bad payloads are dropped.
	require.NoError(t, h.HandleSupportMessage(ctx, ports.Event{Data: "nope"}))

	admin.AssertExpectations(t)
}
