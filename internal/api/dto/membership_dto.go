package dto

import (
	"time"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// MembershipResponse describes one member of a group or event.
type MembershipResponse struct {
	ContainerID string    `json:"containerId"`
	UserID      string    `json:"userId"`
	RoleID      int       `json:"roleId"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// NewMembershipResponse maps a domain membership.
func NewMembershipResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ContainerID: m.ContainerID,
		UserID:      m.SubjectID,
		RoleID:      int(m.Role),
		Role:        m.Role.String(),
		JoinedAt:    m.JoinedAt,
	}
}

// WaitingListEntryResponse describes a pending request.
type WaitingListEntryResponse struct {
	ContainerID string    `json:"containerId"`
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewWaitingListEntryResponse maps a domain entry.
func NewWaitingListEntryResponse(e *domain.WaitingListEntry) WaitingListEntryResponse {
	return WaitingListEntryResponse{
		ContainerID: e.ContainerID,
		UserID:      e.SubjectID,
		RequestedAt: e.RequestedAt,
	}
}
