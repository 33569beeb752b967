package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

const (
	principalKey  = "auth_principal"
	sessionHeader = "sessionId"
)

// Principal represents the authenticated caller.
type Principal struct {
	UserID    string
	AppRole   domain.AppRole
	Token     string
	SessionID string
}

// AuthMiddleware exposes the gatekeeper as fiber handlers.
type AuthMiddleware struct {
	gate *Gatekeeper
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(gate *Gatekeeper) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Handle enforces authentication and a valid session for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.admit(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authenticate checks only the bearer credential.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) error {
	principal, err := m.gate.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// RequireSession runs the session gate for a request that already passed
// Authenticate.
func (m *AuthMiddleware) RequireSession(c *fiber.Ctx) error {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return ErrMissingCredential
	}
	if err := m.gate.AuthorizeSession(c.UserContext(), principal, sessionValues(c)); err != nil {
		return err
	}
	return c.Next()
}

// Handshake admits a WebSocket upgrade request with the same two checks as
// Handle. Plain HTTP requests are refused with 426.
func (m *AuthMiddleware) Handshake(c *fiber.Ctx) error {
	if !strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return fiber.ErrUpgradeRequired
	}
	return m.Handle(c)
}

func (m *AuthMiddleware) admit(c *fiber.Ctx) (*Principal, error) {
	ctx := c.UserContext()
	principal, err := m.gate.Authenticate(ctx, c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	if err := m.gate.AuthorizeSession(ctx, principal, sessionValues(c)); err != nil {
		return nil, err
	}
	return principal, nil
}

// sessionValues returns every sessionId header value so a repeated header can
// be rejected instead of silently picking one.
func sessionValues(c *fiber.Ctx) []string {
	raw := c.Request().Header.PeekAll(sessionHeader)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, string(v))
	}
	return values
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
