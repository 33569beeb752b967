package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/http/handlers"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/config"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Containers     *handlers.ContainersHandler
	GroupMembers   *handlers.MembershipHandler
	EventMembers   *handlers.MembershipHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware
	GroupRoles     auth.RoleResolver
	EventRoles     auth.RoleResolver
	Metrics        *observability.Metrics
	RateLimit      config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	authGroup := app.Group("/auth")
	public := authGroup.Group("", limiter.New(limiter.Config{
		Max:        cfg.RateLimit.Max,
		Expiration: cfg.RateLimit.Window(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	}))
	public.Post("/register", cfg.Auth.Register)
	public.Post("/verify", cfg.Auth.Verify)
	public.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	app.Get("/chat/ws", cfg.AuthMiddleware.Handshake, cfg.Chat.Connect)

	self := auth.RequireSelfOrAppRole(domain.AppRoleAdministrator, handlers.UserIDParam)
	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Put("/:userId/password", self, cfg.Users.ChangePassword)
	users.Delete("/:userId", self, cfg.Users.Delete)
	users.Post("/:userId/ban", auth.RequireAppRole(domain.AppRoleAdministrator), cfg.Users.Ban)

	groups := app.Group("/groups", cfg.AuthMiddleware.Handle)
	groups.Post("/", cfg.Containers.CreateGroup)
	groups.Get("/:containerId", cfg.Containers.GetGroup)
	groups.Post("/:containerId/events",
		auth.RequireGroupRole(cfg.GroupRoles, domain.GroupRoleAdministrator),
		cfg.Containers.CreateEvent)
	registerMembershipRoutes(groups, cfg.GroupMembers, cfg.GroupRoles)

	events := app.Group("/events", cfg.AuthMiddleware.Handle)
	events.Get("/:containerId", cfg.Containers.GetEvent)
	registerMembershipRoutes(events, cfg.EventMembers, cfg.EventRoles)
}

// registerMembershipRoutes mounts the waiting-list workflow under one
// container kind. Both kinds share the same shape and clearances.
func registerMembershipRoutes(r fiber.Router, h *handlers.MembershipHandler, roles auth.RoleResolver) {
	owner := auth.RequireGroupRole(roles, domain.GroupRoleOwner)
	admin := auth.RequireGroupRole(roles, domain.GroupRoleAdministrator)
	member := auth.RequireGroupRole(roles, domain.GroupRoleMember)

	r.Post("/:containerId/waiting-list", h.Join)
	r.Delete("/:containerId/waiting-list", h.Leave)
	r.Get("/:containerId/waiting-list", admin, h.ListWaitingList)
	r.Post("/:containerId/waiting-list/:userId/accept", admin, h.Accept)
	r.Delete("/:containerId/waiting-list/:userId", admin, h.Decline)

	r.Get("/:containerId/members", member, h.ListMembers)
	r.Delete("/:containerId/members", h.LeaveContainer)
	r.Put("/:containerId/members/:userId/promote", owner, h.Promote)
	r.Put("/:containerId/members/:userId/demote", owner, h.Demote)
	r.Put("/:containerId/owner/:userId", owner, h.ChangeOwner)
}
