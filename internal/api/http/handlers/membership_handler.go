package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/dto"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/membership"
)

// MembershipHandler exposes the waiting-list workflow of one container kind.
type MembershipHandler struct {
	engine *membership.Engine
}

// NewMembershipHandler constructs handler.
func NewMembershipHandler(engine *membership.Engine) *MembershipHandler {
	return &MembershipHandler{engine: engine}
}

// Join POST /{kind}/:containerId/waiting-list.
func (h *MembershipHandler) Join(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	entry, err := h.engine.Join(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewWaitingListEntryResponse(entry)})
}

// Leave DELETE /{kind}/:containerId/waiting-list.
func (h *MembershipHandler) Leave(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.engine.Leave(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"left": true}})
}

// ListWaitingList GET /{kind}/:containerId/waiting-list.
func (h *MembershipHandler) ListWaitingList(c *fiber.Ctx) error {
	entries, err := h.engine.ListWaitingList(c.UserContext(), c.Params(auth.ContainerParam))
	if err != nil {
		return err
	}
	data := make([]dto.WaitingListEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, dto.NewWaitingListEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": data})
}

// Accept POST /{kind}/:containerId/waiting-list/:userId/accept.
func (h *MembershipHandler) Accept(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	m, err := h.engine.Accept(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID, c.Params(UserIDParam))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// Decline DELETE /{kind}/:containerId/waiting-list/:userId.
func (h *MembershipHandler) Decline(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.engine.Decline(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID, c.Params(UserIDParam)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"declined": true}})
}

// ListMembers GET /{kind}/:containerId/members.
func (h *MembershipHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.engine.ListMembers(c.UserContext(), c.Params(auth.ContainerParam))
	if err != nil {
		return err
	}
	data := make([]dto.MembershipResponse, 0, len(members))
	for i := range members {
		data = append(data, dto.NewMembershipResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": data})
}

// Promote PUT /{kind}/:containerId/members/:userId/promote.
func (h *MembershipHandler) Promote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	m, err := h.engine.Promote(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID, c.Params(UserIDParam))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// Demote PUT /{kind}/:containerId/members/:userId/demote.
func (h *MembershipHandler) Demote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	m, err := h.engine.Demote(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID, c.Params(UserIDParam))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// ChangeOwner PUT /{kind}/:containerId/owner/:userId.
func (h *MembershipHandler) ChangeOwner(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	m, err := h.engine.ChangeOwner(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID, c.Params(UserIDParam))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMembershipResponse(m)})
}

// LeaveContainer DELETE /{kind}/:containerId/members.
func (h *MembershipHandler) LeaveContainer(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.ErrMissingCredential
	}
	if err := h.engine.LeaveContainer(c.UserContext(), c.Params(auth.ContainerParam), principal.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"left": true}})
}
