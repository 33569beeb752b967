package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/config"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
)

// AuthService coordinates registration, login and account mutation flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	sessionTTL time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Tokens      *auth.TokenManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// SessionGrant is what a successful login hands back to the client.
type SessionGrant struct {
	User    *domain.User
	Token   string
	Session *domain.Session
}

// ChangePasswordInput describes a password change. CurrentPassword is only
// checked when the actor changes their own password.
type ChangePasswordInput struct {
	ActorID         string
	TargetID        string
	CurrentPassword string
	NewPassword     string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		sessionTTL: cfg.SessionTTL(),
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates an unverified account and emits its verification code.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code := uuid.NewString()
	user := &domain.User{
		Name:             strings.TrimSpace(input.Name),
		Email:            email,
		PasswordHash:     hash,
		AppRole:          domain.AppRoleUser,
		Verified:         false,
		VerificationCode: &code,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishEvent(ctx, events.EventUserRegistered, user.ID, user.ID, events.UserRegisteredPayload{
		Email:            user.Email,
		VerificationCode: code,
	})
	return user, nil
}

// Verify confirms a registration and opens the first session.
func (s *AuthService) Verify(ctx context.Context, code string) (*SessionGrant, error) {
	user, err := s.users.GetByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidVerification
		}
		return nil, fmt.Errorf("lookup verification code: %w", err)
	}

	user.Verified = true
	user.VerificationCode = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	s.publishEvent(ctx, events.EventUserVerified, user.ID, user.ID, nil)

	return s.startSession(ctx, user)
}

// Login checks credentials and replaces any previous session of the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionGrant, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidLogin
	}
	if !user.Verified {
		return nil, ErrAccountNotVerified
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*SessionGrant, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	previous, err := s.sessions.Replace(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if previous != "" {
		s.logger.Debug("session superseded", zap.String("user_id", user.ID), zap.String("previous_session_id", previous))
	}

	token, err := s.tokens.Issue(user.ID, user.AppRole)
	if err != nil {
		return nil, err
	}
	return &SessionGrant{User: user, Token: token, Session: sess}, nil
}

// Logout destroys the caller's session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ChangePassword sets a new password and ends the target's session.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.getUser(ctx, input.TargetID)
	if err != nil {
		return err
	}
	if input.ActorID == input.TargetID {
		if err := auth.ComparePassword(user.PasswordHash, input.CurrentPassword); err != nil {
			return ErrWrongPassword
		}
	}

	hash, err := auth.HashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.publishEvent(ctx, events.EventPasswordChanged, user.ID, input.ActorID, nil)
	return nil
}

// DeleteAccount removes the target account and its session.
func (s *AuthService) DeleteAccount(ctx context.Context, actorID, targetID string) error {
	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.sessions.DeleteByUserID(ctx, targetID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.publishEvent(ctx, events.EventUserDeleted, targetID, actorID, nil)
	return nil
}

// Ban marks the target unverified, which the authentication gate rejects, and
// ends its session.
func (s *AuthService) Ban(ctx context.Context, actorID, targetID string) error {
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return err
	}
	user.Verified = false
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	if err := s.sessions.DeleteByUserID(ctx, targetID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.publishEvent(ctx, events.EventUserBanned, targetID, actorID, nil)
	return nil
}

func (s *AuthService) getUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) publishEvent(ctx context.Context, eventType events.EventType, subjectID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.New(eventType, subjectID, actorID, s.now())
	event.Payload = payload
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish account event failed",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", subjectID),
			zap.Error(err))
	}
}
