package http

import (
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const maxListLimit = 500

// orderFilter reads ?status=&telegram_user_id=&since=&limit= .
func orderFilter(c *fiber.Ctx) (domain.OrderFilter, error) {
	var filter domain.OrderFilter

	if raw := c.Query("status"); raw != "" {
		status := domain.OrderStatus(strings.ToLower(raw))
		if !status.Valid() {
			return filter, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
		}
		filter.Status = &status
	}
	if raw := c.Query("telegram_user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid telegram_user_id")
		}
		filter.TelegramUserID = &id
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "since must be RFC3339")
		}
		filter.Since = &since
	}
	if limit := c.QueryInt("limit", 0); limit > 0 {
		filter.Limit = min(limit, maxListLimit)
	}
	return filter, nil
}

// orderRef accepts either an order UUID or a public order number.
func orderRef(raw string) domain.OrderRef {
	if id, err := uuid.Parse(raw); err == nil {
		return domain.OrderRef{ID: &id}
	}
	return domain.OrderRef{OrderNumber: strings.ToUpper(strings.TrimSpace(raw))}
}

func (s *Server) listOrders(c *fiber.Ctx) error {
	filter, err := orderFilter(c)
	if err != nil {
		return err
	}
	orders, err := s.deps.Orders.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"orders": lo.Map(orders, func(o *domain.Order, _ int) orderResponse { return toOrderResponse(o) }),
		"count":  len(orders),
	})
}

func (s *Server) exportOrders(c *fiber.Ctx) error {
	filter, err := orderFilter(c)
	if err != nil {
		return err
	}
	pdf, filename, err := s.deps.Reports.OrdersPDF(c.UserContext(), filter)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Attachment(filename)
	return c.Send(pdf)
}

func (s *Server) getOrder(c *fiber.Ctx) error {
	order, err := s.deps.Orders.Get(c.UserContext(), orderRef(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(toOrderResponse(order))
}

func (s *Server) updateOrderStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	to := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !to.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
	}

	ctx := c.UserContext()
	order, err := s.deps.Orders.Get(ctx, orderRef(c.Params("id")))
	if err != nil {
		return err
	}
	if order.Status == to {
		return c.JSON(toOrderResponse(order))
	}
	order, err = s.deps.Orders.UpdateStatus(ctx, order.ID, to, services.SourceAdmin)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("order", order.OrderNumber).
		Str("status", string(to)).
		Str("by", lo.FromPtr(claimsFrom(c)).Email).
		Msg("Admin changed order status")
	return c.JSON(toOrderResponse(order))
}

func (s *Server) markOrderPaid(c *fiber.Ctx) error {
	order, err := s.deps.Orders.MarkPaid(c.UserContext(), orderRef(c.Params("id")), nil, services.SourceAdmin)
	if err != nil {
		return err
	}
	return c.JSON(toOrderResponse(order))
}
