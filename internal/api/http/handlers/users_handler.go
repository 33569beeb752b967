package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/dto"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/service"
)

// UserIDParam names the target account in account routes.
const UserIDParam = "userId"

// UsersHandler exposes account mutation endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// ChangePassword handles PUT /users/:userId/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.auth.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		ActorID:         principal.UserID,
		TargetID:        c.Params(UserIDParam),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"passwordChanged": true}})
}

// Delete handles DELETE /users/:userId.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.auth.DeleteAccount(c.UserContext(), principal.UserID, c.Params(UserIDParam)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// Ban handles POST /users/:userId/ban.
func (h *UsersHandler) Ban(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.auth.Ban(c.UserContext(), principal.UserID, c.Params(UserIDParam)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"banned": true}})
}
