package membership

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/membership/membershiptest"
	"github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

type recordedTransitions struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordedTransitions) RecordTransition(container, transition string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, container+"/"+transition)
}

func newTestEngine(t *testing.T, kind domain.ContainerKind) (*Engine, *membershiptest.Store) {
	t.Helper()
	store := membershiptest.NewStore()
	engine := NewEngine(Dependencies{
		Kind:       kind,
		Store:      store,
		Containers: membershiptest.Containers{"1": true},
	})
	return engine, store
}

func TestJoinThenJoinAgain(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	ctx := context.Background()

	entry, err := engine.Join(ctx, "1", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", entry.SubjectID)
	assert.Equal(t, 1, store.PendingCount("1", "1"))

	_, err = engine.Join(ctx, "1", "1")
	require.ErrorIs(t, err, ErrAlreadyPending)
	assert.Equal(t, "This user is already in the waiting list.", errorutil.ToDomainError(err).Message)
	assert.Equal(t, 400, errorutil.ToDomainError(err).HTTPStatus)
}

func TestJoinRejectsExistingMember(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "5", domain.GroupRoleAdministrator)

	_, err := engine.Join(context.Background(), "1", "5")
	require.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, 0, store.PendingCount("1", "5"))
}

// acceptFirstStore commits an accept for the same pair right before the join's
// insert reaches the store.
type acceptFirstStore struct {
	*membershiptest.Store
	once sync.Once
}

func (s *acceptFirstStore) InsertPending(ctx context.Context, entry *domain.WaitingListEntry) error {
	s.once.Do(func() {
		_, _ = s.Store.AcceptPending(ctx, entry.ContainerID, entry.SubjectID, domain.GroupRoleMember)
	})
	return s.Store.InsertPending(ctx, entry)
}

func TestJoinRacingAcceptKeepsOneState(t *testing.T) {
	inner := membershiptest.NewStore()
	inner.SeedPending("1", "7")
	store := &acceptFirstStore{Store: inner}
	engine := NewEngine(Dependencies{
		Kind:       domain.ContainerGroup,
		Store:      store,
		Containers: membershiptest.Containers{"1": true},
	})
	ctx := context.Background()

	_, err := engine.Join(ctx, "1", "7")
	require.ErrorIs(t, err, ErrAlreadyMember)

	role, ok, err := engine.RoleOf(ctx, "1", "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.GroupRoleMember, role)
	assert.Zero(t, inner.PendingCount("1", "7"))
}

func TestConcurrentJoinAndAcceptNeverOverlap(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		subject := "s-" + string(rune('a'+round))
		store.SeedPending("1", subject)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = engine.Accept(ctx, "1", "1", subject)
		}()
		go func() {
			defer wg.Done()
			_, _ = engine.Join(ctx, "1", subject)
		}()
		wg.Wait()

		_, member, err := engine.RoleOf(ctx, "1", subject)
		require.NoError(t, err)
		pending := store.PendingCount("1", subject) == 1
		assert.True(t, member != pending, "subject %s member=%v pending=%v", subject, member, pending)
	}
}

func TestJoinUnknownContainer(t *testing.T) {
	for kind, message := range map[domain.ContainerKind]string{
		domain.ContainerGroup: "Group not found.",
		domain.ContainerEvent: "Event not found.",
	} {
		engine, _ := newTestEngine(t, kind)
		_, err := engine.Join(context.Background(), "404", "1")
		require.ErrorIs(t, err, ErrContainerNotFound)
		assert.Equal(t, message, errorutil.ToDomainError(err).Message)
		assert.Equal(t, 404, errorutil.ToDomainError(err).HTTPStatus)
	}
}

func TestLeaveSucceedsOnce(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerEvent)
	store.SeedPending("1", "3")
	ctx := context.Background()

	require.NoError(t, engine.Leave(ctx, "1", "3"))
	err := engine.Leave(ctx, "1", "3")
	require.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, "This user is not in the waiting list.", errorutil.ToDomainError(err).Message)
}

func TestDeclineRemovesEntry(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedPending("1", "3")

	require.NoError(t, engine.Decline(context.Background(), "1", "1", "3"))
	assert.Equal(t, 0, store.PendingCount("1", "3"))
	_, ok, err := engine.RoleOf(context.Background(), "1", "3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptCreatesBaseMembership(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "9", domain.GroupRoleOwner)
	store.SeedPending("1", "1")
	ctx := context.Background()

	m, err := engine.Accept(ctx, "1", "9", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleMember, m.Role)
	assert.Equal(t, 0, store.PendingCount("1", "1"))

	role, ok, err := engine.RoleOf(ctx, "1", "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.GroupRoleMember, role)

	members, err := engine.ListMembers(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestAcceptWithoutPendingEntry(t *testing.T) {
	engine, _ := newTestEngine(t, domain.ContainerGroup)

	_, err := engine.Accept(context.Background(), "1", "9", "1")
	require.ErrorIs(t, err, ErrNotPending)
	_, ok, _ := engine.RoleOf(context.Background(), "1", "1")
	assert.False(t, ok)
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedPending("1", "1")

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notPend   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Accept(context.Background(), "1", "9", "1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrNotPending):
				notPend++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, notPend)
}

func TestPromoteAdministratorIsForbidden(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "2", domain.GroupRoleAdministrator)
	ctx := context.Background()

	_, err := engine.Promote(ctx, "1", "1", "2")
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Forbidden.", errorutil.ToDomainError(err).Message)
	assert.Equal(t, 403, errorutil.ToDomainError(err).HTTPStatus)

	role, _, err := engine.RoleOf(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleAdministrator, role)
}

func TestRoleShiftEdges(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerEvent)
	store.SeedMember("1", "owner", domain.GroupRoleOwner)
	store.SeedMember("1", "member", domain.GroupRoleMember)
	ctx := context.Background()

	_, err := engine.Promote(ctx, "1", "owner", "owner")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = engine.Demote(ctx, "1", "owner", "member")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = engine.Demote(ctx, "1", "owner", "owner")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = engine.Promote(ctx, "1", "owner", "stranger")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPromoteThenDemoteRestoresRole(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "4", domain.GroupRoleMember)
	ctx := context.Background()

	m, err := engine.Promote(ctx, "1", "1", "4")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleAdministrator, m.Role)

	m, err = engine.Demote(ctx, "1", "1", "4")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleMember, m.Role)
}

func TestChangeOwnerSwapsRoles(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "1", domain.GroupRoleOwner)
	store.SeedMember("1", "2", domain.GroupRoleMember)
	ctx := context.Background()

	m, err := engine.ChangeOwner(ctx, "1", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleOwner, m.Role)

	role, _, err := engine.RoleOf(ctx, "1", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleAdministrator, role)
	role, _, err = engine.RoleOf(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleOwner, role)
}

func TestChangeOwnerFailures(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "1", domain.GroupRoleOwner)
	store.SeedMember("1", "2", domain.GroupRoleAdministrator)
	ctx := context.Background()

	_, err := engine.ChangeOwner(ctx, "1", "1", "missing")
	require.ErrorIs(t, err, ErrNotMember)

	_, err = engine.ChangeOwner(ctx, "1", "2", "1")
	require.ErrorIs(t, err, ErrForbidden)

	role, _, _ := engine.RoleOf(ctx, "1", "1")
	assert.Equal(t, domain.GroupRoleOwner, role)
	role, _, _ = engine.RoleOf(ctx, "1", "2")
	assert.Equal(t, domain.GroupRoleAdministrator, role)

	m, err := engine.ChangeOwner(ctx, "1", "1", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRoleOwner, m.Role)

	_, err = engine.ChangeOwner(ctx, "1", "2", "2")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestChangeOwnerWithoutOwner(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerGroup)
	store.SeedMember("1", "2", domain.GroupRoleAdministrator)
	store.SeedMember("1", "3", domain.GroupRoleMember)

	_, err := engine.ChangeOwner(context.Background(), "1", "2", "3")
	require.ErrorIs(t, err, ErrForbidden)

	role, _, _ := engine.RoleOf(context.Background(), "1", "3")
	assert.Equal(t, domain.GroupRoleMember, role)
}

func TestLeaveContainer(t *testing.T) {
	engine, store := newTestEngine(t, domain.ContainerEvent)
	store.SeedMember("1", "6", domain.GroupRoleAdministrator)
	ctx := context.Background()

	require.NoError(t, engine.LeaveContainer(ctx, "1", "6"))
	err := engine.LeaveContainer(ctx, "1", "6")
	require.ErrorIs(t, err, ErrNotMember)
	assert.Equal(t, "This user is not a member.", errorutil.ToDomainError(err).Message)
}

func TestTransitionsPublishEvents(t *testing.T) {
	store := membershiptest.NewStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	recorder := &recordedTransitions{}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(Dependencies{
		Kind:       domain.ContainerEvent,
		Store:      store,
		Containers: membershiptest.Containers{"1": true},
		Dispatcher: dispatcher,
		Metrics:    recorder,
		Now:        func() time.Time { return fixed },
	})

	var published []events.Event
	for _, et := range []events.EventType{events.EventWaitingListJoined, events.EventMemberAccepted, events.EventMemberPromoted} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			published = append(published, e)
			return nil
		})
	}

	ctx := context.Background()
	_, err := engine.Join(ctx, "1", "3")
	require.NoError(t, err)
	_, err = engine.Accept(ctx, "1", "1", "3")
	require.NoError(t, err)
	_, err = engine.Promote(ctx, "1", "1", "3")
	require.NoError(t, err)

	require.Len(t, published, 3)
	assert.Equal(t, events.EventMemberAccepted, published[1].Type)
	assert.Equal(t, domain.ContainerEvent, published[1].ContainerKind)
	assert.Equal(t, "1", published[1].ActorID)
	assert.Equal(t, "3", published[1].SubjectID)
	assert.Equal(t, fixed, published[1].Timestamp)
	assert.Equal(t, events.RoleChangedPayload{OldRole: domain.GroupRoleMember, NewRole: domain.GroupRoleAdministrator}, published[2].Payload)
	assert.Equal(t, []string{"event/waiting_list_joined", "event/member_accepted", "event/member_promoted"}, recorder.calls)
}

type mockStore struct {
	mock.Mock
	Store
}

func (m *mockStore) GetMembership(ctx context.Context, containerID, subjectID string) (*domain.Membership, error) {
	args := m.Called(ctx, containerID, subjectID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) InsertPending(ctx context.Context, entry *domain.WaitingListEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func TestStoreFailureFailsClosed(t *testing.T) {
	store := &mockStore{}
	store.On("InsertPending", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	store.On("GetMembership", mock.Anything, "1", "1").Return(nil, errors.New("connection refused"))
	engine := NewEngine(Dependencies{Kind: domain.ContainerGroup, Store: store})

	_, err := engine.Join(context.Background(), "1", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, 500, errorutil.ToDomainError(err).HTTPStatus)

	_, ok, err := engine.RoleOf(context.Background(), "1", "1")
	require.Error(t, err)
	assert.False(t, ok)
	store.AssertExpectations(t)
}
