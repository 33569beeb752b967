package domain

import "time"

// Event is a scheduled session organised inside a group.
type Event struct {
	ID          string
	GroupID     string
	Name        string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
