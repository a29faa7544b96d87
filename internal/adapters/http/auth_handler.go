package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.DeviceID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email, password and device_id are required")
	}

	res, err := s.deps.Auth.Login(c.UserContext(), req.Email, req.Password, req.DeviceID)
	if err != nil {
		return err
	}
	if res.ChallengeRequired {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"challenge_required": true,
			"account_id":         res.AccountID.String(),
		})
	}

	s.setSession(c, res.Token)
	return c.JSON(fiber.Map{"token": res.Token})
}

func (s *Server) verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account_id")
	}
	if strings.TrimSpace(req.Code) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	token, err := s.deps.Auth.VerifyCode(c.UserContext(), accountID, req.DeviceID, req.Code)
	if err != nil {
		return err
	}
	s.setSession(c, token)
	return c.JSON(fiber.Map{"token": token})
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.clearSession(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) me(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return errors.New("missing claims after auth middleware")
	}
	return c.JSON(fiber.Map{
		"account_id": claims.AccountID.String(),
		"email":      claims.Email,
		"name":       claims.Name,
		"role":       string(claims.Role),
	})
}
