// Package membership implements the waiting-list workflow shared by groups and
// events. One Engine serves one container kind.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
)

// Store is the persistence capability the engine needs for one container kind.
// repository.MembershipRepository satisfies it.
type Store interface {
	GetMembership(ctx context.Context, containerID, subjectID string) (*domain.Membership, error)
	GetOwner(ctx context.Context, containerID string) (*domain.Membership, error)
	ListMembers(ctx context.Context, containerID string) ([]domain.Membership, error)
	UpdateRole(ctx context.Context, containerID, subjectID string, from, to domain.GroupRole) (*domain.Membership, error)
	DeleteMembership(ctx context.Context, containerID, subjectID string) error
	TransferOwnership(ctx context.Context, containerID, ownerID, newOwnerID string) error

	GetPending(ctx context.Context, containerID, subjectID string) (*domain.WaitingListEntry, error)
	ListPending(ctx context.Context, containerID string) ([]domain.WaitingListEntry, error)
	InsertPending(ctx context.Context, entry *domain.WaitingListEntry) error
	DeletePending(ctx context.Context, containerID, subjectID string) error
	AcceptPending(ctx context.Context, containerID, subjectID string, role domain.GroupRole) (*domain.Membership, error)
}

// ContainerLookup reports whether a container exists.
type ContainerLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// TransitionRecorder counts successful transitions.
type TransitionRecorder interface {
	RecordTransition(container, transition string)
}

// Dependencies wires an Engine.
type Dependencies struct {
	Kind       domain.ContainerKind
	Store      Store
	Containers ContainerLookup
	Dispatcher events.Dispatcher
	Metrics    TransitionRecorder
	Logger     *zap.Logger
	Now        func() time.Time
}

// Engine drives ABSENT -> PENDING -> MEMBER(role) for one container kind.
type Engine struct {
	kind       domain.ContainerKind
	store      Store
	containers ContainerLookup
	dispatcher events.Dispatcher
	metrics    TransitionRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	e := &Engine{
		kind:       deps.Kind,
		store:      deps.Store,
		containers: deps.Containers,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Kind returns the container kind this engine serves.
func (e *Engine) Kind() domain.ContainerKind {
	return e.kind
}

// Join puts subjectID on the waiting list of containerID.
func (e *Engine) Join(ctx context.Context, containerID, subjectID string) (*domain.WaitingListEntry, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}

	// The store checks membership and inserts under one pair lock, so a
	// concurrent accept cannot leave the subject both pending and a member.
	entry := &domain.WaitingListEntry{ContainerID: containerID, SubjectID: subjectID}
	if err := e.store.InsertPending(ctx, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrMember):
			return nil, ErrAlreadyMember
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrAlreadyPending
		}
		return nil, fmt.Errorf("insert waiting list entry: %w", err)
	}

	e.publish(ctx, events.EventWaitingListJoined, containerID, subjectID, subjectID, nil)
	return entry, nil
}

// Leave withdraws subjectID's own pending request.
func (e *Engine) Leave(ctx context.Context, containerID, subjectID string) error {
	if err := e.removePending(ctx, containerID, subjectID); err != nil {
		return err
	}
	e.publish(ctx, events.EventWaitingListLeft, containerID, subjectID, subjectID, nil)
	return nil
}

// Decline rejects subjectID's pending request on behalf of actorID.
func (e *Engine) Decline(ctx context.Context, containerID, actorID, subjectID string) error {
	if err := e.removePending(ctx, containerID, subjectID); err != nil {
		return err
	}
	e.publish(ctx, events.EventRequestDeclined, containerID, subjectID, actorID, nil)
	return nil
}

func (e *Engine) removePending(ctx context.Context, containerID, subjectID string) error {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return err
	}
	if err := e.store.DeletePending(ctx, containerID, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotPending
		}
		return fmt.Errorf("delete waiting list entry: %w", err)
	}
	return nil
}

// Accept turns subjectID's pending request into a MEMBER membership. Of two
// concurrent accepts for the same pair exactly one succeeds.
func (e *Engine) Accept(ctx context.Context, containerID, actorID, subjectID string) (*domain.Membership, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}

	m, err := e.store.AcceptPending(ctx, containerID, subjectID, domain.GroupRoleMember)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotPending
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("accept waiting list entry: %w", err)
	}

	e.publish(ctx, events.EventMemberAccepted, containerID, subjectID, actorID, nil)
	return m, nil
}

// Promote raises a MEMBER to ADMINISTRATOR. Any other current role, or no
// membership at all, is rejected with ErrForbidden.
func (e *Engine) Promote(ctx context.Context, containerID, actorID, subjectID string) (*domain.Membership, error) {
	return e.shiftRole(ctx, containerID, actorID, subjectID,
		domain.GroupRoleMember, domain.GroupRoleAdministrator, events.EventMemberPromoted)
}

// Demote lowers an ADMINISTRATOR to MEMBER.
func (e *Engine) Demote(ctx context.Context, containerID, actorID, subjectID string) (*domain.Membership, error) {
	return e.shiftRole(ctx, containerID, actorID, subjectID,
		domain.GroupRoleAdministrator, domain.GroupRoleMember, events.EventMemberDemoted)
}

func (e *Engine) shiftRole(ctx context.Context, containerID, actorID, subjectID string, from, to domain.GroupRole, eventType events.EventType) (*domain.Membership, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}

	m, err := e.store.UpdateRole(ctx, containerID, subjectID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	e.publish(ctx, eventType, containerID, subjectID, actorID, events.RoleChangedPayload{OldRole: from, NewRole: to})
	return m, nil
}

// ChangeOwner hands ownership from actorID to newOwnerID. The previous owner
// becomes ADMINISTRATOR. Both changes commit together or not at all.
func (e *Engine) ChangeOwner(ctx context.Context, containerID, actorID, newOwnerID string) (*domain.Membership, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}

	owner, err := e.store.GetOwner(ctx, containerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if owner.SubjectID != actorID {
		return nil, ErrForbidden
	}
	if newOwnerID == actorID {
		return owner, nil
	}

	if err := e.store.TransferOwnership(ctx, containerID, actorID, newOwnerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotMember
		case errors.Is(err, repository.ErrStale):
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("transfer ownership: %w", err)
	}

	e.publish(ctx, events.EventOwnerChanged, containerID, newOwnerID, actorID, events.OwnerChangedPayload{PreviousOwnerID: actorID})

	m, err := e.store.GetMembership(ctx, containerID, newOwnerID)
	if err != nil {
		return nil, fmt.Errorf("reload new owner: %w", err)
	}
	return m, nil
}

// LeaveContainer removes subjectID's membership whatever its role.
func (e *Engine) LeaveContainer(ctx context.Context, containerID, subjectID string) error {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return err
	}
	if err := e.store.DeleteMembership(ctx, containerID, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("delete membership: %w", err)
	}
	e.publish(ctx, events.EventMemberLeft, containerID, subjectID, subjectID, nil)
	return nil
}

// ListWaitingList returns pending requests oldest first.
func (e *Engine) ListWaitingList(ctx context.Context, containerID string) ([]domain.WaitingListEntry, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}
	entries, err := e.store.ListPending(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("list waiting list: %w", err)
	}
	return entries, nil
}

// ListMembers returns memberships ordered by role, most privileged first.
func (e *Engine) ListMembers(ctx context.Context, containerID string) ([]domain.Membership, error) {
	if err := e.ensureContainer(ctx, containerID); err != nil {
		return nil, err
	}
	members, err := e.store.ListMembers(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RoleOf returns subjectID's role in containerID. ok is false when there is no
// membership; callers must treat that as satisfying nothing.
func (e *Engine) RoleOf(ctx context.Context, containerID, subjectID string) (domain.GroupRole, bool, error) {
	m, err := e.store.GetMembership(ctx, containerID, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get membership: %w", err)
	}
	return m.Role, true, nil
}

func (e *Engine) ensureContainer(ctx context.Context, containerID string) error {
	if e.containers == nil {
		return nil
	}
	ok, err := e.containers.Exists(ctx, containerID)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", e.kind, err)
	}
	if !ok {
		return containerNotFound(e.kind)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, eventType events.EventType, containerID, subjectID, actorID string, payload interface{}) {
	if e.metrics != nil {
		e.metrics.RecordTransition(string(e.kind), string(eventType))
	}
	if e.dispatcher == nil {
		return
	}
	event := events.New(eventType, subjectID, actorID, e.now())
	event.ContainerKind = e.kind
	event.ContainerID = containerID
	event.Payload = payload
	if err := e.dispatcher.Publish(ctx, event); err != nil {
		e.logger.Warn("publish membership event failed",
			zap.String("event_type", string(eventType)),
			zap.String("container_id", containerID),
			zap.Error(err))
	}
}
