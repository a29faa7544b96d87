package http

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	localClaims      = "claims"
	serviceKeyHeader = "X-Service-Key"
)

// requireAdmin accepts the session cookie, a Bearer token, or a ?token=
// query parameter on the event stream, which EventSource cannot authorize
// with headers.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	token := c.Cookies(s.cfg.CookieName)
	if token == "" {
		if parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" && strings.HasSuffix(c.Path(), "/events") {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized: no token provided")
	}

	claims, err := s.deps.Auth.Authorize(c.UserContext(), token)
	switch {
	case errors.Is(err, domain.ErrNotAdmin):
		s.clearSession(c)
		return fiber.NewError(fiber.StatusForbidden, "forbidden: admin role required")
	case err != nil && errors.Is(err, domain.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized: invalid token")
	case err != nil:
		return err
	}

	c.Locals(localClaims, claims)
	return c.Next()
}

func claimsFrom(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(localClaims).(*services.Claims)
	return claims
}

// requireServiceKey guards the endpoints other backends call.
func (s *Server) requireServiceKey(c *fiber.Ctx) error {
	if s.cfg.ServiceKey == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "internal endpoints are disabled")
	}
	given := c.Get(serviceKeyHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.cfg.ServiceKey)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized: invalid service key")
	}
	return c.Next()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler write the response so the status is final.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	route := c.Route().Path
	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
	}
	s.log.Debug().
		Str("method", c.Method()).
		Str("route", route).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")
	return nil
}

func (s *Server) setSession(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Expires:  time.Now().Add(s.cfg.JWTTTL),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
