package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
}

// Validate will run validation rules.
func (r CreateGroupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

// CreateEventRequest payload.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

// Validate will run validation rules.
func (r CreateEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Location, validation.Length(0, 200)),
		validation.Field(&r.StartsAt, validation.Required),
		validation.Field(&r.EndsAt, validation.Required, validation.Min(r.StartsAt).Exclusive()),
	)
}

// GroupResponse is the public view of a group.
type GroupResponse struct {
	ID          string    `json:"id"`
	ParentID    *string   `json:"parentId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewGroupResponse maps a domain group.
func NewGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		ParentID:    g.ParentID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

// EventResponse is the public view of an event.
type EventResponse struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewEventResponse maps a domain event.
func NewEventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatedAt:   e.CreatedAt,
	}
}
