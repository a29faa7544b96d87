package http

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAuth struct {
	mock.Mock
}

var _ Authenticator = (*MockAuth)(nil)

func (m *MockAuth) Login(ctx context.Context, email, password, deviceID string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAuth) VerifyCode(ctx context.Context, accountID uuid.UUID, deviceID, code string) (string, error) {
	args := m.Called(ctx, accountID, deviceID, code)
	return args.String(0), args.Error(1)
}

func (m *MockAuth) Authorize(ctx context.Context, token string) (*services.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Claims), args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

var _ OrderManager = (*MockOrders)(nil)

func (m *MockOrders) Get(ctx context.Context, ref domain.OrderRef) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrders) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, source string) (*domain.Order, error) {
	args := m.Called(ctx, id, to, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrders) MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error) {
	args := m.Called(ctx, ref, proofPath, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type MockSupport struct {
	mock.Mock
}

var _ SupportDesk = (*MockSupport)(nil)

func (m *MockSupport) Threads(ctx context.Context, limit int) ([]domain.SupportThread, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SupportThread), args.Error(1)
}

func (m *MockSupport) Thread(ctx context.Context, telegramID int64, limit int) (*domain.SupportThread, error) {
	args := m.Called(ctx, telegramID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportThread), args.Error(1)
}

func (m *MockSupport) AdminReply(ctx context.Context, telegramID int64, adminName, text string) (*domain.SupportMessage, error) {
	args := m.Called(ctx, telegramID, adminName, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportMessage), args.Error(1)
}

type MockReports struct {
	mock.Mock
}

func (m *MockReports) OrdersPDF(ctx context.Context, filter domain.OrderFilter) ([]byte, string, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type MockRelay struct {
	mock.Mock
}

var _ FileRelay = (*MockRelay)(nil)

func (m *MockRelay) StoreInstruction(ctx context.Context, telegramID int64, fileURL string) (string, error) {
	args := m.Called(ctx, telegramID, fileURL)
	return args.String(0), args.Error(1)
}

func (m *MockRelay) StorePaymentProof(ctx context.Context, ref domain.OrderRef, fileURL string) (*domain.Order, error) {
	args := m.Called(ctx, ref, fileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
