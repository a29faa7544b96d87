package services

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is either a session token or a pending code challenge.
type LoginResult struct {
	AccountID         uuid.UUID
	Token             string
	ChallengeRequired bool
}

// Claims is the session carried by the dashboard token.
type Claims struct {
	AccountID uuid.UUID
	Email     string
	Name      string
	Role      domain.Role
}

// AuthService guards the dashboard with a password, then either a trusted
// device or a one-time code delivered over Telegram.
type AuthService struct {
	accounts ports.AdminAccountRepository
	devices  ports.TrustedDeviceRepository
	codes    ports.TwoFactorCodeRepository
	users    ports.UserRepository
	bot      ports.BotClientPort
	limiter  ports.RateLimiter
	cfg      config.TwoFactorConfig
	secret   []byte
	tokenTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService creates the dashboard authentication gate.
func NewAuthService(
	cfg *config.Config,
	accounts ports.AdminAccountRepository,
	devices ports.TrustedDeviceRepository,
	codes ports.TwoFactorCodeRepository,
	users ports.UserRepository,
	bot ports.BotClientPort,
	limiter ports.RateLimiter,
	baseLogger *zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		devices:  devices,
		codes:    codes,
		users:    users,
		bot:      bot,
		limiter:  limiter,
		cfg:      cfg.TwoFactor,
		secret:   []byte(cfg.HTTP.JWTSecret),
		tokenTTL: cfg.HTTP.JWTTTL,
		log:      baseLogger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

// HashPassword returns a bcrypt hash suitable for AdminAccount.PasswordHash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateAccount registers a dashboard account and, when telegramID is set,
// links it to that chat identity so login codes can be delivered.
func (s *AuthService) CreateAccount(ctx context.Context, email, password, displayName string, role domain.Role, telegramID int64) (*domain.AdminAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email required and password of at least 8 characters", domain.ErrInvalidCredentials)
	}
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &domain.AdminAccount{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if telegramID != 0 {
		if err := s.users.LinkAdminAccount(ctx, telegramID, account.ID); err != nil {
			return account, fmt.Errorf("link telegram user: %w", err)
		}
	}
	s.log.Info().Str("account_id", account.ID.String()).Str("role", string(role)).Int64("telegram_id", telegramID).Msg("Account created")
	return account, nil
}

// LinkTelegram links an existing account to a chat identity.
func (s *AuthService) LinkTelegram(ctx context.Context, email string, telegramID int64) (*domain.AdminAccount, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.users.LinkAdminAccount(ctx, telegramID, account.ID); err != nil {
		return nil, fmt.Errorf("link telegram user: %w", err)
	}
	s.log.Info().Str("account_id", account.ID.String()).Int64("telegram_id", telegramID).Msg("Account linked")
	return account, nil
}

// Login checks credentials and the presenting device.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string) (*LoginResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: missing device id", domain.ErrInvalidCredentials)
	}

	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !account.IsAdmin() {
		return nil, domain.ErrNotAdmin
	}

	log := s.log.With().Str("account_id", account.ID.String()).Str("device_id", deviceID).Logger()

	if s.cfg.TrustedDevices {
		device, err := s.devices.Get(ctx, account.ID, deviceID)
		if err != nil {
			return nil, fmt.Errorf("get trusted device: %w", err)
		}
		if device != nil {
			if err := s.devices.Touch(ctx, device.ID, s.now()); err != nil {
				return nil, fmt.Errorf("touch trusted device: %w", err)
			}
			token, err := s.issueToken(account)
			if err != nil {
				return nil, err
			}
			log.Info().Msg("Trusted device login")
			return &LoginResult{AccountID: account.ID, Token: token}, nil
		}
	}

	if err := s.sendCode(ctx, account, deviceID); err != nil {
		return nil, err
	}
	log.Info().Msg("Verification code sent")
	return &LoginResult{AccountID: account.ID, ChallengeRequired: true}, nil
}

func (s *AuthService) sendCode(ctx context.Context, account *domain.AdminAccount, deviceID string) error {
	linked, err := s.users.GetByAdminAccountID(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("get linked telegram user: %w", err)
	}
	if linked == nil {
		return domain.ErrTelegramLinkMissing
	}

	if s.limiter != nil && s.cfg.MaxCodes > 0 {
		ok, err := s.limiter.Allow(ctx, "2fa:"+account.ID.String(), s.cfg.MaxCodes, s.cfg.Window)
		if err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		if !ok {
			return domain.ErrTooManyCodes
		}
	}

	value, err := newOTP()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	code := &domain.TwoFactorCode{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Code:           value,
		TelegramUserID: linked.TelegramUserID,
		DeviceID:       deviceID,
		ExpiresAt:      now.Add(s.cfg.CodeTTL),
		CreatedAt:      now,
	}
	if err := s.codes.Create(ctx, code); err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	text := fmt.Sprintf(
		"🔐 Code de connexion FlashGrade : <b>%s</b>\n\nValable %d minutes. Ne le partagez avec personne.",
		value, int(s.cfg.CodeTTL.Minutes()),
	)
	if _, err := s.bot.SendMessage(ctx, ports.SendMessageParams{ChatID: linked.TelegramUserID, Text: text, ParseMode: "HTML"}); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}
	return nil
}

// VerifyCode redeems a code for a device and trusts that device afterwards.
func (s *AuthService) VerifyCode(ctx context.Context, accountID uuid.UUID, deviceID, code string) (string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return "", domain.ErrInvalidCredentials
	}
	if !account.IsAdmin() {
		return "", domain.ErrNotAdmin
	}

	now := s.now()
	found, err := s.codes.FindLatestUsable(ctx, accountID, strings.TrimSpace(deviceID), strings.TrimSpace(code), now)
	if err != nil {
		return "", fmt.Errorf("find code: %w", err)
	}
	if found == nil || !found.Usable(now) {
		return "", domain.ErrInvalidTwoFactorCode
	}
	consumed, err := s.codes.MarkVerified(ctx, found.ID)
	if err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}
	if !consumed {
		return "", domain.ErrInvalidTwoFactorCode
	}

	if err := s.devices.Upsert(ctx, accountID, found.DeviceID, now); err != nil {
		return "", fmt.Errorf("trust device: %w", err)
	}
	s.log.Info().Str("account_id", accountID.String()).Str("device_id", found.DeviceID).Msg("Device verified")
	return s.issueToken(account)
}

// Authorize validates a session token and re-checks the account's role.
func (s *AuthService) Authorize(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !account.IsAdmin() {
		return nil, domain.ErrNotAdmin
	}
	claims.Name = account.DisplayName
	claims.Role = account.Role
	return claims, nil
}

func (s *AuthService) issueToken(account *domain.AdminAccount) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   account.ID.String(),
		"email": account.Email,
		"name":  account.DisplayName,
		"role":  string(account.Role),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates the signature and expiry of a session token.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	sub, _ := mc["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidCredentials, err)
	}
	email, _ := mc["email"].(string)
	name, _ := mc["name"].(string)
	role, _ := mc["role"].(string)
	return &Claims{AccountID: id, Email: email, Name: name, Role: domain.Role(role)}, nil
}
