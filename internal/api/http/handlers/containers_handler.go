package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/dto"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/service"
)

// ContainersHandler exposes group and event creation and lookup.
type ContainersHandler struct {
	service *service.ContainerService
}

// NewContainersHandler constructs handler.
func NewContainersHandler(containerService *service.ContainerService) *ContainersHandler {
	return &ContainersHandler{service: containerService}
}

// CreateGroup POST /groups.
func (h *ContainersHandler) CreateGroup(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	var req dto.CreateGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	group, err := h.service.CreateGroup(c.UserContext(), principal.UserID, service.GroupCreateInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewGroupResponse(group)})
}

// GetGroup GET /groups/:containerId.
func (h *ContainersHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.service.GetGroup(c.UserContext(), c.Params(auth.ContainerParam))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGroupResponse(group)})
}

// CreateEvent POST /groups/:containerId/events.
func (h *ContainersHandler) CreateEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	var req dto.CreateEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	event, err := h.service.CreateEvent(c.UserContext(), principal.UserID, c.Params(auth.ContainerParam), service.EventCreateInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEventResponse(event)})
}

// GetEvent GET /events/:containerId.
func (h *ContainersHandler) GetEvent(c *fiber.Ctx) error {
	event, err := h.service.GetEvent(c.UserContext(), c.Params(auth.ContainerParam))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEventResponse(event)})
}
