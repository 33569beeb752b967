package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
)

// ChatHandler terminates the chat handshake once the gate has admitted it.
// Message transport lives in the chat service.
type ChatHandler struct{}

// NewChatHandler constructs handler.
func NewChatHandler() *ChatHandler {
	return &ChatHandler{}
}

// Connect GET /chat/ws.
func (h *ChatHandler) Connect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"userId":    principal.UserID,
		"sessionId": principal.SessionID,
	}})
}
