package domain

import "time"

// Group is a study group. Groups may be nested under a parent group.
type Group struct {
	ID          string
	ParentID    *string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
