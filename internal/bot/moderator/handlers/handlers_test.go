package handlers

import (
	"FlashGrade/internal/bot/moderator"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockOrderDesk struct {
	mock.Mock
}

var _ moderator.OrderDesk = (*MockOrderDesk)(nil)

func (m *MockOrderDesk) Get(ctx context.Context, ref domain.OrderRef) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderDesk) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, source string) (*domain.Order, error) {
	args := m.Called(ctx, id, to, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderDesk) MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error) {
	args := m.Called(ctx, ref, proofPath, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type MockSupportDesk struct {
	mock.Mock
}

func (m *MockSupportDesk) AdminReply(ctx context.Context, telegramID int64, adminName, text string) (*domain.SupportMessage, error) {
	args := m.Called(ctx, telegramID, adminName, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportMessage), args.Error(1)
}

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

// --- Helpers ---

const adminChat int64 = -100500

type handlerEnv struct {
	cfg     *config.Config
	svc     moderator.Services
	orders  *MockOrderDesk
	support *MockSupportDesk
	bot     *MockBotClient
	op      *moderator.Operator
	log     zerolog.Logger
}

func newHandlerEnv() *handlerEnv {
	env := &handlerEnv{
		cfg:     &config.Config{Payment: config.PaymentConfig{Currency: "€"}},
		orders:  new(MockOrderDesk),
		support: new(MockSupportDesk),
		bot:     new(MockBotClient),
		op: &moderator.Operator{
			User:    &domain.EndUser{TelegramUserID: 7},
			Account: &domain.AdminAccount{DisplayName: "Camille", Role: domain.RoleAdmin},
		},
		log: zerolog.Nop(),
	}
	env.svc = moderator.Services{Orders: env.orders, Support: env.support, Bot: env.bot}
	return env
}

// expectSay records the next text sent to the operators' chat.
func (e *handlerEnv) expectSay(text *string) {
	e.bot.On("SendMessage", mock.Anything, mock.MatchedBy(func(p ports.SendMessageParams) bool {
		return p.ChatID == adminChat
	})).Run(func(args mock.Arguments) {
		*text = args.Get(1).(ports.SendMessageParams).Text
	}).Return(1, nil).Once()
}

func command(name, args string) *ports.BotUpdate {
	return &ports.BotUpdate{ChatID: adminChat, UserID: 7, Command: name, CommandArgs: args}
}

func sampleOrder() *domain.Order {
	username := "lea"
	return &domain.Order{
		ID:               uuid.New(),
		OrderNumber:      "ME-AB12CD34",
		TelegramUserID:   42,
		TelegramUsername: &username,
		Subject:          "Histoire <moderne>",
		AcademicLevel:    domain.LevelUniversity,
		LengthPages:      3,
		Urgency:          domain.UrgencyTwentyFourHours,
		FinalPrice:       66,
		WalletAmountUsed: 6,
		Status:           domain.OrderStatusPending,
	}
}

// --- Tests ---

func TestOrderLookup_ShowsSummary(t *testing.T) {
	env := newHandlerEnv()
	h := NewOrderLookupHandler(env.cfg, env.svc, &env.log)
	order := sampleOrder()
	env.orders.On("Get", mock.Anything, domain.OrderRef{OrderNumber: "ME-AB12CD34"}).Return(order, nil)

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("commande", "me-ab12cd34"), env.op))

	assert.Contains(t, text, "ME-AB12CD34")
	assert.Contains(t, text, "Client: @lea (42)")
	assert.Contains(t, text, "Histoire &lt;moderne&gt;")
	assert.Contains(t, text, "60.00€")
}

func TestOrderLookup_UnknownOrder(t *testing.T) {
	env := newHandlerEnv()
	h := NewOrderLookupHandler(env.cfg, env.svc, &env.log)
	env.orders.On("Get", mock.Anything, domain.OrderRef{OrderNumber: "ME-NOPE"}).Return(nil, domain.ErrOrderNotFound)

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("commande", "ME-NOPE"), env.op))
	assert.Contains(t, text, "introuvable")
}

func TestOrderLookup_Usage(t *testing.T) {
	env := newHandlerEnv()
	h := NewOrderLookupHandler(env.cfg, env.svc, &env.log)

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("commande", ""), env.op))
	assert.Contains(t, text, "Usage")
	env.orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestMarkPaid_UsesAdminSource(t *testing.T) {
	env := newHandlerEnv()
	h := NewMarkPaidHandler(env.cfg, env.svc, &env.log)
	paid := sampleOrder()
	paid.Status = domain.OrderStatusPaid
	env.orders.On("MarkPaid", mock.Anything, domain.OrderRef{OrderNumber: "ME-AB12CD34"}, (*string)(nil), services.SourceAdmin).
		Return(paid, nil).Once()

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("paye", "ME-AB12CD34"), env.op))

	env.orders.AssertExpectations(t)
	assert.Contains(t, text, "Camille")
}

func TestMarkPaid_UnexpectedErrorPropagates(t *testing.T) {
	env := newHandlerEnv()
	h := NewMarkPaidHandler(env.cfg, env.svc, &env.log)
	env.orders.On("MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	err := h.Handle(context.Background(), command("paye", "ME-AB12CD34"), env.op)
	require.Error(t, err)
}

func TestStatus_ChangesStatus(t *testing.T) {
	env := newHandlerEnv()
	h := NewStatusHandler(env.cfg, env.svc, &env.log)
	order := sampleOrder()
	order.Status = domain.OrderStatusPaid
	moved := *order
	moved.Status = domain.OrderStatusInProgress

	env.orders.On("Get", mock.Anything, domain.OrderRef{OrderNumber: "ME-AB12CD34"}).Return(order, nil)
	env.orders.On("UpdateStatus", mock.Anything, order.ID, domain.OrderStatusInProgress, services.SourceAdmin).Return(&moved, nil).Once()

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("statut", "ME-AB12CD34 IN_PROGRESS"), env.op))

	env.orders.AssertExpectations(t)
	assert.Contains(t, text, "in_progress")
}

func TestStatus_RejectsBadInput(t *testing.T) {
	env := newHandlerEnv()
	h := NewStatusHandler(env.cfg, env.svc, &env.log)

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("statut", "ME-AB12CD34 shipped"), env.op))
	assert.Contains(t, text, "Statut inconnu")

	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("statut", "ME-AB12CD34"), env.op))
	assert.Contains(t, text, "Usage")
	env.orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestStatus_InvalidTransitionIsExplained(t *testing.T) {
	env := newHandlerEnv()
	h := NewStatusHandler(env.cfg, env.svc, &env.log)
	order := sampleOrder()
	env.orders.On("Get", mock.Anything, mock.Anything).Return(order, nil)
	env.orders.On("UpdateStatus", mock.Anything, order.ID, domain.OrderStatusCompleted, services.SourceAdmin).
		Return(nil, domain.ErrInvalidStatusTransition)

	var text string
	env.expectSay(&text)
	require.NoError(t, h.Handle(context.Background(), command("statut", "ME-AB12CD34 completed"), env.op))
	assert.Contains(t, text, "Transition refusée")
}

func TestSupportReply_RelaysToCustomer(t *testing.T) {
	env := newHandlerEnv()
	h := NewSupportReplyHandler(env.cfg, env.svc, &env.log)
	env.support.On("AdminReply", mock.Anything, int64(42), "Camille", "Votre devis est prêt").
		Return(&domain.SupportMessage{}, nil).Once()

	var text string
	env.expectSay(&text)
	u := &ports.BotUpdate{ChatID: adminChat, UserID: 7, Text: " Votre devis est prêt "}
	require.NoError(t, h.Handle(context.Background(), u, "💬 Support\nClient: @lea (42)\n\nBonjour", env.op))

	env.support.AssertExpectations(t)
	assert.Contains(t, text, "42")
}

func TestSupportReply_IgnoresNonAlerts(t *testing.T) {
	env := newHandlerEnv()
	h := NewSupportReplyHandler(env.cfg, env.svc, &env.log)

	u := &ports.BotUpdate{ChatID: adminChat, Text: "d'accord"}
	require.NoError(t, h.Handle(context.Background(), u, "on déjeune ?", env.op))

	env.support.AssertNotCalled(t, "AdminReply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestSupportReply_FailureIsReportedNotRetried(t *testing.T) {
	env := newHandlerEnv()
	h := NewSupportReplyHandler(env.cfg, env.svc, &env.log)
	env.support.On("AdminReply", mock.Anything, int64(42), "Camille", "Bonjour").
		Return(&domain.SupportMessage{}, errors.New("bot was blocked by the user"))

	var text string
	env.expectSay(&text)
	u := &ports.BotUpdate{ChatID: adminChat, Text: "Bonjour"}
	require.NoError(t, h.Handle(context.Background(), u, "Client: sans pseudo (42)", env.op))
	assert.Contains(t, text, "blocked")
}
