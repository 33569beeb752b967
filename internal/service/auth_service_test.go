package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/config"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUsers) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUsers) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return userResult(m.Called(ctx, email))
}

func (m *mockUsers) GetByVerificationCode(ctx context.Context, code string) (*domain.User, error) {
	return userResult(m.Called(ctx, code))
}

func userResult(args mock.Arguments) (*domain.User, error) {
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Replace(ctx context.Context, sess *domain.Session) (string, error) {
	args := m.Called(ctx, sess)
	return args.String(0), args.Error(1)
}

func (m *mockSessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessions) DeleteByUserID(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

var serviceNow = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

type authFixture struct {
	svc        *AuthService
	users      *mockUsers
	sessions   *mockSessions
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:      &mockUsers{},
		sessions:   &mockSessions{},
		tokens:     auth.NewTokenManager("svc-secret", 0),
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	f.svc = NewAuthService(config.AuthConfig{
		BcryptCost:        bcrypt.MinCost,
		SessionTTLMinutes: 60,
	}, AuthDependencies{
		UserRepo:    f.users,
		SessionRepo: f.sessions,
		Tokens:      f.tokens,
		Dispatcher:  f.dispatcher,
		Now:         func() time.Time { return serviceNow },
	})
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	f := newAuthFixture()
	var published []events.Event
	f.dispatcher.Subscribe(events.EventUserRegistered, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, repository.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return !u.Verified && u.VerificationCode != nil && u.AppRole == domain.AppRoleUser
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = "u-1"
	}).Return(nil)

	user, err := f.svc.Register(context.Background(), RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "secret1"))

	require.Len(t, published, 1)
	payload := published[0].Payload.(events.UserRegisteredPayload)
	assert.Equal(t, *user.VerificationCode, payload.VerificationCode)
	f.users.AssertExpectations(t)
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	f := newAuthFixture()
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(&domain.User{ID: "u-1"}, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginReplacesSession(t *testing.T) {
	f := newAuthFixture()
	user := &domain.User{ID: "36", AppRole: domain.AppRoleUser, Verified: true, PasswordHash: hashed(t, "pw")}
	f.users.On("GetByEmail", mock.Anything, "u@example.com").Return(user, nil)
	f.sessions.On("Replace", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == "36" && s.ExpiresAt.Equal(serviceNow.Add(time.Hour))
	})).Return("older-session", nil)

	grant, err := f.svc.Login(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Session.ID)

	claims, err := f.tokens.Decode(grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "36", claims.UserID)
	assert.Equal(t, "2", claims.AppRoleID)
	f.sessions.AssertExpectations(t)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture()
	f.users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)
	f.users.On("GetByEmail", mock.Anything, "new@example.com").Return(&domain.User{ID: "9", PasswordHash: hashed(t, "pw")}, nil)

	_, err := f.svc.Login(context.Background(), "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidLogin)
	_, err = f.svc.Login(context.Background(), "new@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidLogin)
	_, err = f.svc.Login(context.Background(), "new@example.com", "pw")
	assert.ErrorIs(t, err, ErrAccountNotVerified)
	f.sessions.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestVerifyOpensSession(t *testing.T) {
	f := newAuthFixture()
	code := "code-1"
	user := &domain.User{ID: "4", AppRole: domain.AppRoleUser, VerificationCode: &code}
	f.users.On("GetByVerificationCode", mock.Anything, code).Return(user, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Verified && u.VerificationCode == nil
	})).Return(nil)
	f.sessions.On("Replace", mock.Anything, mock.Anything).Return("", nil)

	grant, err := f.svc.Verify(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "4", grant.User.ID)
	f.users.AssertExpectations(t)

	f.users.On("GetByVerificationCode", mock.Anything, "bogus").Return(nil, repository.ErrNotFound)
	_, err = f.svc.Verify(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidVerification)
}

func TestChangePasswordSelfNeedsCurrentPassword(t *testing.T) {
	f := newAuthFixture()
	f.users.On("GetByID", mock.Anything, "5").Return(&domain.User{ID: "5", PasswordHash: hashed(t, "old")}, nil)

	err := f.svc.ChangePassword(context.Background(), ChangePasswordInput{ActorID: "5", TargetID: "5", CurrentPassword: "nope", NewPassword: "new"})
	assert.ErrorIs(t, err, ErrWrongPassword)
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	f.users.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("DeleteByUserID", mock.Anything, "5").Return(nil)
	err = f.svc.ChangePassword(context.Background(), ChangePasswordInput{ActorID: "5", TargetID: "5", CurrentPassword: "old", NewPassword: "new"})
	require.NoError(t, err)
	f.sessions.AssertExpectations(t)
}

func TestChangePasswordAdministratorOverride(t *testing.T) {
	f := newAuthFixture()
	target := &domain.User{ID: "5", PasswordHash: hashed(t, "old")}
	f.users.On("GetByID", mock.Anything, "5").Return(target, nil)
	f.users.On("Update", mock.Anything, target).Return(nil)
	f.sessions.On("DeleteByUserID", mock.Anything, "5").Return(nil)

	err := f.svc.ChangePassword(context.Background(), ChangePasswordInput{ActorID: "1", TargetID: "5", NewPassword: "reset"})
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(target.PasswordHash, "reset"))
	f.sessions.AssertExpectations(t)
}

func TestBanRevokesAccess(t *testing.T) {
	f := newAuthFixture()
	target := &domain.User{ID: "8", Verified: true}
	f.users.On("GetByID", mock.Anything, "8").Return(target, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool { return !u.Verified })).Return(nil)
	f.sessions.On("DeleteByUserID", mock.Anything, "8").Return(nil)

	require.NoError(t, f.svc.Ban(context.Background(), "1", "8"))
	f.users.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture()
	f.users.On("Delete", mock.Anything, "8").Return(nil)
	f.users.On("Delete", mock.Anything, "9").Return(repository.ErrNotFound)
	f.sessions.On("DeleteByUserID", mock.Anything, "8").Return(nil)

	require.NoError(t, f.svc.DeleteAccount(context.Background(), "8", "8"))
	assert.ErrorIs(t, f.svc.DeleteAccount(context.Background(), "1", "9"), ErrUserNotFound)
	f.sessions.AssertNumberOfCalls(t, "DeleteByUserID", 1)
}

func TestLogoutIgnoresMissingSession(t *testing.T) {
	f := newAuthFixture()
	f.sessions.On("Delete", mock.Anything, "s-1").Return(repository.ErrNotFound)

	assert.NoError(t, f.svc.Logout(context.Background(), "s-1"))
}

type failingDispatcher struct{}

func (failingDispatcher) Publish(context.Context, events.Event) error {
	return errors.New("dispatcher closed")
}

func (failingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func TestPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	users := &mockUsers{}
	sessions := &mockSessions{}
	svc := NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, AuthDependencies{
		UserRepo:    users,
		SessionRepo: sessions,
		Tokens:      auth.NewTokenManager("svc-secret", 0),
		Dispatcher:  failingDispatcher{},
		Logger:      zap.New(core),
		Now:         func() time.Time { return serviceNow },
	})
	users.On("GetByID", mock.Anything, "8").Return(&domain.User{ID: "8", Verified: true}, nil)
	users.On("Update", mock.Anything, mock.Anything).Return(nil)
	sessions.On("DeleteByUserID", mock.Anything, "8").Return(nil)

	require.NoError(t, svc.Ban(context.Background(), "1", "8"))

	entries := logs.FilterMessage("publish account event failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(events.EventUserBanned), entries[0].ContextMap()["event_type"])
	assert.Equal(t, "8", entries[0].ContextMap()["user_id"])
}
