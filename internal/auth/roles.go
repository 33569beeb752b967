package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// ContainerParam is the route parameter naming the group or event.
const ContainerParam = "containerId"

// RoleResolver reports a subject's role inside a container. ok is false when
// the subject has no membership.
type RoleResolver interface {
	RoleOf(ctx context.Context, containerID, subjectID string) (domain.GroupRole, bool, error)
}

// RequireAppRole ensures the principal's application role satisfies required.
func RequireAppRole(required domain.AppRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.AppRole.Satisfies(required) {
			return ErrInsufficientRole
		}
		return c.Next()
	}
}

// RequireSelfOrAppRole admits the account named by the route parameter acting
// on itself, or any principal whose application role satisfies required.
func RequireSelfOrAppRole(required domain.AppRole, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return ErrInsufficientRole
		}
		if principal.UserID == c.Params(param) || principal.AppRole.Satisfies(required) {
			return c.Next()
		}
		return ErrInsufficientRole
	}
}

// RequireGroupRole ensures the principal holds at least required in the
// container named by the route. No membership satisfies nothing.
func RequireGroupRole(resolver RoleResolver, required domain.GroupRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return ErrInsufficientRole
		}
		role, found, err := resolver.RoleOf(c.UserContext(), c.Params(ContainerParam), principal.UserID)
		if err != nil {
			return err
		}
		if !found || !role.Satisfies(required) {
			return ErrInsufficientRole
		}
		return c.Next()
	}
}
