package http

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func validFileURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// refFromBody prefers the UUID when both identifiers are sent.
func refFromBody(orderID, orderNumber string) (domain.OrderRef, error) {
	if orderID != "" {
		id, err := uuid.Parse(orderID)
		if err != nil {
			return domain.OrderRef{}, fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
		}
		return domain.OrderRef{ID: &id}, nil
	}
	if number := strings.ToUpper(strings.TrimSpace(orderNumber)); number != "" {
		return domain.OrderRef{OrderNumber: number}, nil
	}
	return domain.OrderRef{}, fiber.NewError(fiber.StatusBadRequest, "order_id or order_number is required")
}

func (s *Server) relayInstruction(c *fiber.Ctx) error {
	var req instructionRelayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.TelegramUserID == 0 || !validFileURL(req.FileURL) {
		return fiber.NewError(fiber.StatusBadRequest, "telegram_user_id and an http(s) file_url are required")
	}

	path, err := s.deps.Relay.StoreInstruction(c.UserContext(), req.TelegramUserID, req.FileURL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"path": path})
}

func (s *Server) relayPaymentProof(c *fiber.Ctx) error {
	var req proofRelayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ref, err := refFromBody(req.OrderID, req.OrderNumber)
	if err != nil {
		return err
	}
	if !validFileURL(req.FileURL) {
		return fiber.NewError(fiber.StatusBadRequest, "an http(s) file_url is required")
	}

	order, err := s.deps.Relay.StorePaymentProof(c.UserContext(), ref, req.FileURL)
	if err != nil {
		return err
	}
	return c.JSON(toOrderResponse(order))
}

func (s *Server) relayMarkPaid(c *fiber.Ctx) error {
	var req markPaidRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ref, err := refFromBody(req.OrderID, req.OrderNumber)
	if err != nil {
		return err
	}

	order, err := s.deps.Orders.MarkPaid(c.UserContext(), ref, req.PaymentProofPath, services.SourceAPI)
	if err != nil {
		return err
	}
	return c.JSON(toOrderResponse(order))
}
