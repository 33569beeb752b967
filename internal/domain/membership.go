package domain

import "time"

// ContainerKind identifies what a membership is scoped to.
type ContainerKind string

const (
	ContainerGroup ContainerKind = "group"
	ContainerEvent ContainerKind = "event"
)

// Membership binds a subject to a container with exactly one role.
type Membership struct {
	ContainerID string
	SubjectID   string
	Role        GroupRole
	JoinedAt    time.Time
}

// WaitingListEntry is a pending request to join a container.
type WaitingListEntry struct {
	ContainerID string
	SubjectID   string
	RequestedAt time.Time
}
