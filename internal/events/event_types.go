package events

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventUserVerified      EventType = "user_verified"
	EventUserBanned        EventType = "user_banned"
	EventUserDeleted       EventType = "user_deleted"
	EventPasswordChanged   EventType = "password_changed"
	EventWaitingListJoined EventType = "waiting_list_joined"
	EventWaitingListLeft   EventType = "waiting_list_left"
	EventRequestDeclined   EventType = "request_declined"
	EventMemberAccepted    EventType = "member_accepted"
	EventMemberPromoted    EventType = "member_promoted"
	EventMemberDemoted     EventType = "member_demoted"
	EventOwnerChanged      EventType = "owner_changed"
	EventMemberLeft        EventType = "member_left"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string               `json:"id"`
	Type          EventType            `json:"type"`
	ContainerKind domain.ContainerKind `json:"container_kind,omitempty"`
	ContainerID   string               `json:"container_id,omitempty"`
	SubjectID     string               `json:"subject_id"`
	ActorID       string               `json:"actor_id,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
	Payload       interface{}          `json:"payload,omitempty"`
}

// New stamps an event with a sortable id and the given time.
func New(eventType EventType, subjectID, actorID string, at time.Time) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Timestamp: at.UTC(),
	}
}

// UserRegisteredPayload carries what the verification mail needs.
type UserRegisteredPayload struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	OldRole domain.GroupRole `json:"old_role"`
	NewRole domain.GroupRole `json:"new_role"`
}

// OwnerChangedPayload payload.
type OwnerChangedPayload struct {
	PreviousOwnerID string `json:"previous_owner_id"`
}
