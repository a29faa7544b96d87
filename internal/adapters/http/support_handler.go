package http

import (
	"FlashGrade/internal/core/domain"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func telegramIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("tgID"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid telegram user id")
	}
	return id, nil
}

func (s *Server) listThreads(c *fiber.Ctx) error {
	threads, err := s.deps.Support.Threads(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"threads": lo.Map(threads, func(t domain.SupportThread, _ int) threadResponse { return toThreadResponse(&t) }),
	})
}

func (s *Server) getThread(c *fiber.Ctx) error {
	tgID, err := telegramIDParam(c)
	if err != nil {
		return err
	}
	thread, err := s.deps.Support.Thread(c.UserContext(), tgID, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(toThreadResponse(thread))
}

func (s *Server) replyToThread(c *fiber.Ctx) error {
	tgID, err := telegramIDParam(c)
	if err != nil {
		return err
	}
	var req replyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	adminName := ""
	if claims := claimsFrom(c); claims != nil {
		adminName = claims.Name
	}
	msg, err := s.deps.Support.AdminReply(c.UserContext(), tgID, adminName, req.Text)
	if err != nil {
		if msg == nil {
			return err
		}
		// Partially applied: report it but return what was recorded.
		s.log.Warn().Err(err).Int64("user_id", tgID).Msg("Support reply partially failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   err.Error(),
			"message": toSupportMessageResponse(msg),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(toSupportMessageResponse(msg))
}
