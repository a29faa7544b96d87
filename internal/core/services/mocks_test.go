package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockReferralRepository struct {
	mock.Mock
}

var _ ports.ReferralRepository = (*MockReferralRepository)(nil)

func (m *MockReferralRepository) GetByUser(ctx context.Context, telegramID int64) (*domain.ReferralCode, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferralCode), args.Error(1)
}

func (m *MockReferralRepository) GetByCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferralCode), args.Error(1)
}

func (m *MockReferralRepository) Create(ctx context.Context, code *domain.ReferralCode) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) CreditCommission(ctx context.Context, usage *domain.ReferralUsage) (bool, error) {
	args := m.Called(ctx, usage)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) CountUsages(ctx context.Context, referrerID int64) (int, error) {
	args := m.Called(ctx, referrerID)
	return args.Int(0), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

var _ ports.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) PlaceOrder(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, proofPath *string) (bool, error) {
	args := m.Called(ctx, id, proofPath)
	return args.Bool(0), args.Error(1)
}

type MockSupportRepository struct {
	mock.Mock
}

var _ ports.SupportRepository = (*MockSupportRepository)(nil)

func (m *MockSupportRepository) Create(ctx context.Context, msg *domain.SupportMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSupportRepository) ListByUser(ctx context.Context, telegramID int64, limit int) ([]domain.SupportMessage, error) {
	args := m.Called(ctx, telegramID, limit)
	return args.Get(0).([]domain.SupportMessage), args.Error(1)
}

func (m *MockSupportRepository) ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.SupportMessage), args.Error(1)
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
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBotClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBotClient) GetFileURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *MockBotClient) SetMenuCommands(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

var _ ports.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	args := m.Called(ctx, topic, data)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(topic string, handler ports.EventHandler) {
	m.Called(topic, handler)
}

type MockAdminAccountRepository struct {
	mock.Mock
}

var _ ports.AdminAccountRepository = (*MockAdminAccountRepository)(nil)

func (m *MockAdminAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminAccount, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminAccount), args.Error(1)
}

func (m *MockAdminAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminAccount), args.Error(1)
}

func (m *MockAdminAccountRepository) Create(ctx context.Context, account *domain.AdminAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type MockTrustedDeviceRepository struct {
	mock.Mock
}

var _ ports.TrustedDeviceRepository = (*MockTrustedDeviceRepository)(nil)

func (m *MockTrustedDeviceRepository) Get(ctx context.Context, accountID uuid.UUID, deviceID string) (*domain.TrustedDevice, error) {
	args := m.Called(ctx, accountID, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrustedDevice), args.Error(1)
}

func (m *MockTrustedDeviceRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockTrustedDeviceRepository) Upsert(ctx context.Context, accountID uuid.UUID, deviceID string, at time.Time) error {
	args := m.Called(ctx, accountID, deviceID, at)
	return args.Error(0)
}

type MockTwoFactorCodeRepository struct {
	mock.Mock
}

var _ ports.TwoFactorCodeRepository = (*MockTwoFactorCodeRepository)(nil)

func (m *MockTwoFactorCodeRepository) Create(ctx context.Context, code *domain.TwoFactorCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockTwoFactorCodeRepository) FindLatestUsable(ctx context.Context, accountID uuid.UUID, deviceID, code string, now time.Time) (*domain.TwoFactorCode, error) {
	args := m.Called(ctx, accountID, deviceID, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TwoFactorCode), args.Error(1)
}

func (m *MockTwoFactorCodeRepository) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Touch(ctx context.Context, profile domain.UserProfile) (*domain.EndUser, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EndUser), args.Error(1)
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.EndUser, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EndUser), args.Error(1)
}

func (m *MockUserRepository) GetByAdminAccountID(ctx context.Context, accountID uuid.UUID) (*domain.EndUser, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EndUser), args.Error(1)
}

func (m *MockUserRepository) LinkAdminAccount(ctx context.Context, telegramID int64, accountID uuid.UUID) error {
	args := m.Called(ctx, telegramID, accountID)
	return args.Error(0)
}

type MockRateLimiter struct {
	mock.Mock
}

var _ ports.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func strPtr(s string) *string { return &s }

type MockFileFetcher struct {
	mock.Mock
}

var _ ports.FileFetcher = (*MockFileFetcher)(nil)

func (m *MockFileFetcher) Fetch(ctx context.Context, url string) (*ports.FetchedFile, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.FetchedFile), args.Error(1)
}

type MockFileStore struct {
	mock.Mock
}

var _ ports.FileStore = (*MockFileStore)(nil)

func (m *MockFileStore) Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, bucket, key, contentType, body, size)
	return args.String(0), args.Error(1)
}
