package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/dto"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/service"
)

// AuthHandler exposes registration and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Verify handles POST /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	grant, err := h.auth.Verify(c.UserContext(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(grant)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	grant, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(grant)})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.auth.Logout(c.UserContext(), principal.SessionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"loggedOut": true}})
}

func sessionResponse(grant *service.SessionGrant) dto.SessionResponse {
	return dto.SessionResponse{
		Token:     grant.Token,
		SessionID: grant.Session.ID,
		ExpiresAt: grant.Session.ExpiresAt,
		User:      dto.NewUserResponse(grant.User),
	}
}
