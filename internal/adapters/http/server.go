// Package http serves the admin dashboard API, the internal file relay and
// the health and metrics endpoints.
package http

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/metrics"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Authenticator is the dashboard login gate.
type Authenticator interface {
	Login(ctx context.Context, email, password, deviceID string) (*services.LoginResult, error)
	VerifyCode(ctx context.Context, accountID uuid.UUID, deviceID, code string) (string, error)
	Authorize(ctx context.Context, token string) (*services.Claims, error)
}

// OrderManager reads orders and applies status changes.
type OrderManager interface {
	Get(ctx context.Context, ref domain.OrderRef) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, source string) (*domain.Order, error)
	MarkPaid(ctx context.Context, ref domain.OrderRef, proofPath *string, source string) (*domain.Order, error)
}

// SupportDesk is the operator side of the support relay.
type SupportDesk interface {
	Threads(ctx context.Context, limit int) ([]domain.SupportThread, error)
	Thread(ctx context.Context, telegramID int64, limit int) (*domain.SupportThread, error)
	AdminReply(ctx context.Context, telegramID int64, adminName, text string) (*domain.SupportMessage, error)
}

// Reporter renders the order export.
type Reporter interface {
	OrdersPDF(ctx context.Context, filter domain.OrderFilter) ([]byte, string, error)
}

// FileRelay copies chat files into the blob store for other services.
type FileRelay interface {
	StoreInstruction(ctx context.Context, telegramID int64, fileURL string) (string, error)
	StorePaymentProof(ctx context.Context, ref domain.OrderRef, fileURL string) (*domain.Order, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the services behind the routes.
type Deps struct {
	Auth    Authenticator
	Orders  OrderManager
	Support SupportDesk
	Reports Reporter
	Relay   FileRelay
	Events  *EventHub
	Health  map[string]HealthCheck
}

// Server is the fiber application and its listener settings.
type Server struct {
	app     *fiber.App
	cfg     config.HTTPConfig
	secure  bool
	deps    Deps
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewServer builds the app and registers every route.
func NewServer(cfg *config.Config, deps Deps, m *metrics.Metrics, baseLogger *zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg.HTTP,
		secure:  !cfg.IsDev(),
		deps:    deps,
		metrics: m,
		log:     baseLogger.With().Str("component", "http_server").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "FlashGrade Admin API",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.healthz)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := s.app.Group("/api/auth")
	auth.Post("/login", s.login)
	auth.Post("/verify", s.verify)
	auth.Post("/logout", s.logout)

	admin := s.app.Group("/api/admin", s.requireAdmin)
	admin.Get("/me", s.me)
	admin.Get("/orders", s.listOrders)
	admin.Get("/orders/export.pdf", s.exportOrders)
	admin.Get("/orders/:id", s.getOrder)
	admin.Patch("/orders/:id/status", s.updateOrderStatus)
	admin.Post("/orders/:id/mark-paid", s.markOrderPaid)
	admin.Get("/support/threads", s.listThreads)
	admin.Get("/support/threads/:tgID", s.getThread)
	admin.Post("/support/threads/:tgID/reply", s.replyToThread)
	admin.Get("/events", s.events)

	internal := s.app.Group("/api/internal", s.requireServiceKey)
	internal.Post("/files/instruction", s.relayInstruction)
	internal.Post("/files/payment-proof", s.relayPaymentProof)
	internal.Post("/orders/mark-paid", s.relayMarkPaid)

	return s
}

// App exposes the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("Starting admin API")
		serveErr <- s.app.Listen(s.cfg.ListenAddr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down admin API...")
	if s.deps.Events != nil {
		s.deps.Events.Close()
	}
	if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	s.log.Info().Msg("Admin API stopped gracefully")
	return nil
}

func (s *Server) healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{}
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			s.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": checks})
}

// errorHandler turns domain errors into status codes.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("http").Inc()
		}
		return c.Status(code).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidTwoFactorCode):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrTelegramLinkMissing):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrTooManyCodes):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
