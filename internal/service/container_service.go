package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
	"github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

// ContainerService creates and reads groups and events. The creator of either
// becomes its OWNER.
type ContainerService struct {
	groups repository.GroupRepository
	events repository.EventRepository
}

// ContainerDependencies bundles repositories for the container service.
type ContainerDependencies struct {
	GroupRepo repository.GroupRepository
	EventRepo repository.EventRepository
}

// GroupCreateInput describes group creation payload.
type GroupCreateInput struct {
	Name        string
	Description string
	ParentID    *string
}

// EventCreateInput describes event creation payload.
type EventCreateInput struct {
	Name        string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
}

// NewContainerService constructs the service.
func NewContainerService(deps ContainerDependencies) *ContainerService {
	return &ContainerService{groups: deps.GroupRepo, events: deps.EventRepo}
}

// CreateGroup stores a group, optionally nested under an existing parent.
func (s *ContainerService) CreateGroup(ctx context.Context, ownerID string, input GroupCreateInput) (*domain.Group, error) {
	if input.ParentID != nil {
		ok, err := s.groups.Exists(ctx, *input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("lookup parent group: %w", err)
		}
		if !ok {
			return nil, ErrParentNotFound
		}
	}

	group := &domain.Group{
		ParentID:    input.ParentID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.groups.Create(ctx, group, ownerID); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// GetGroup loads a group.
func (s *ContainerService) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// CreateEvent schedules an event inside groupID.
func (s *ContainerService) CreateEvent(ctx context.Context, ownerID, groupID string, input EventCreateInput) (*domain.Event, error) {
	if !input.EndsAt.After(input.StartsAt) {
		return nil, errorutil.NewValidationError("endsAt must be after startsAt", nil)
	}
	ok, err := s.groups.Exists(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("lookup group: %w", err)
	}
	if !ok {
		return nil, ErrGroupNotFound
	}

	event := &domain.Event{
		GroupID:     groupID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
	}
	if err := s.events.Create(ctx, event, ownerID); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// GetEvent loads an event.
func (s *ContainerService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
