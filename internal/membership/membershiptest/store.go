// Package membershiptest provides an in-memory membership store for tests.
package membershiptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
)

type pair struct {
	container string
	subject   string
}

// Store keeps memberships and waiting-list entries in maps. It follows the
// same conditional semantics and error sentinels as the Postgres repository.
type Store struct {
	mu      sync.Mutex
	members map[pair]domain.Membership
	waiting map[pair]domain.WaitingListEntry
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		members: make(map[pair]domain.Membership),
		waiting: make(map[pair]domain.WaitingListEntry),
		now:     time.Now,
	}
}

// SeedMember inserts a membership directly.
func (s *Store) SeedMember(containerID, subjectID string, role domain.GroupRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[pair{containerID, subjectID}] = domain.Membership{
		ContainerID: containerID,
		SubjectID:   subjectID,
		Role:        role,
		JoinedAt:    s.now(),
	}
}

// SeedPending inserts a waiting-list entry directly.
func (s *Store) SeedPending(containerID, subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting[pair{containerID, subjectID}] = domain.WaitingListEntry{
		ContainerID: containerID,
		SubjectID:   subjectID,
		RequestedAt: s.now(),
	}
}

// PendingCount returns the number of waiting-list rows for the pair.
func (s *Store) PendingCount(containerID, subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.waiting[pair{containerID, subjectID}]; ok {
		return 1
	}
	return 0
}

func (s *Store) GetMembership(_ context.Context, containerID, subjectID string) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[pair{containerID, subjectID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *Store) GetOwner(_ context.Context, containerID string) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.members {
		if k.container == containerID && m.Role == domain.GroupRoleOwner {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListMembers(_ context.Context, containerID string) ([]domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Membership
	for k, m := range s.members {
		if k.container == containerID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

func (s *Store) UpdateRole(_ context.Context, containerID, subjectID string, from, to domain.GroupRole) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{containerID, subjectID}
	m, ok := s.members[k]
	if !ok || m.Role != from {
		return nil, repository.ErrNotFound
	}
	m.Role = to
	s.members[k] = m
	return &m, nil
}

func (s *Store) DeleteMembership(_ context.Context, containerID, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{containerID, subjectID}
	if _, ok := s.members[k]; !ok {
		return repository.ErrNotFound
	}
	delete(s.members, k)
	return nil
}

func (s *Store) TransferOwnership(_ context.Context, containerID, ownerID, newOwnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok1 := pair{containerID, ownerID}
	ok2 := pair{containerID, newOwnerID}
	owner, found := s.members[ok1]
	if !found {
		return repository.ErrNotFound
	}
	target, found := s.members[ok2]
	if !found {
		return repository.ErrNotFound
	}
	if owner.Role != domain.GroupRoleOwner {
		return repository.ErrStale
	}
	owner.Role = domain.GroupRoleAdministrator
	target.Role = domain.GroupRoleOwner
	s.members[ok1] = owner
	s.members[ok2] = target
	return nil
}

func (s *Store) GetPending(_ context.Context, containerID, subjectID string) (*domain.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.waiting[pair{containerID, subjectID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListPending(_ context.Context, containerID string) ([]domain.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WaitingListEntry
	for k, e := range s.waiting {
		if k.container == containerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (s *Store) InsertPending(_ context.Context, entry *domain.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{entry.ContainerID, entry.SubjectID}
	if _, ok := s.members[k]; ok {
		return repository.ErrMember
	}
	if _, ok := s.waiting[k]; ok {
		return repository.ErrDuplicate
	}
	entry.RequestedAt = s.now()
	s.waiting[k] = *entry
	return nil
}

func (s *Store) DeletePending(_ context.Context, containerID, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{containerID, subjectID}
	if _, ok := s.waiting[k]; !ok {
		return repository.ErrNotFound
	}
	delete(s.waiting, k)
	return nil
}

func (s *Store) AcceptPending(_ context.Context, containerID, subjectID string, role domain.GroupRole) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{containerID, subjectID}
	if _, ok := s.waiting[k]; !ok {
		return nil, repository.ErrNotFound
	}
	if _, ok := s.members[k]; ok {
		return nil, repository.ErrDuplicate
	}
	delete(s.waiting, k)
	m := domain.Membership{ContainerID: containerID, SubjectID: subjectID, Role: role, JoinedAt: s.now()}
	s.members[k] = m
	return &m, nil
}

// Containers is a fixed set of existing container ids.
type Containers map[string]bool

// Exists implements the container lookup.
func (c Containers) Exists(_ context.Context, id string) (bool, error) {
	return c[id], nil
}
