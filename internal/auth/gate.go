package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
	"github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

const bearerPrefix = "Bearer "

// Credential failures after the header check all render the same body so a
// caller cannot tell which one occurred. Session failures are reported
// individually.
var (
	ErrMissingCredential = errorutil.NewSentinel("MISSING_CREDENTIAL", "Missing or malformed token", http.StatusForbidden, "authorization header absent or not a bearer credential")
	ErrInvalidCredential = errorutil.NewSentinel("INVALID_CREDENTIAL", "Invalid token", http.StatusForbidden, "token failed to decode or lacks claims")
	ErrAccountNotFound   = errorutil.NewSentinel("ACCOUNT_NOT_FOUND", "Invalid token", http.StatusForbidden, "token subject has no account")
	ErrAccountUnverified = errorutil.NewSentinel("ACCOUNT_UNVERIFIED", "Invalid token", http.StatusForbidden, "account is not verified")

	ErrMissingSession  = errorutil.NewSentinel("MISSING_SESSION", "Missing sessionId", http.StatusForbidden, "sessionId header absent or repeated")
	ErrSessionMismatch = errorutil.NewSentinel("SESSION_MISMATCH", "Invalid session information", http.StatusForbidden, "session unknown or owned by another user")
	ErrSessionExpired  = errorutil.NewSentinel("SESSION_EXPIRED", "Session expired !", http.StatusForbidden, "session past expiresAt")

	ErrInsufficientRole = errorutil.NewSentinel("INSUFFICIENT_ROLE", "Unauthorized", http.StatusUnauthorized, "role does not satisfy requirement")
)

// AccountLookup fetches the account behind a token.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// SessionLookup fetches a stored session.
type SessionLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// RejectionRecorder counts gate rejections.
type RejectionRecorder interface {
	RecordGateRejection(stage, code string)
}

// GateDependencies wires a Gatekeeper.
type GateDependencies struct {
	Tokens   *TokenManager
	Accounts AccountLookup
	Sessions SessionLookup
	Metrics  RejectionRecorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// Gatekeeper authenticates credentials and authorizes sessions. HTTP requests
// and WebSocket handshakes both go through it.
type Gatekeeper struct {
	tokens   *TokenManager
	accounts AccountLookup
	sessions SessionLookup
	metrics  RejectionRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewGatekeeper constructs the gate.
func NewGatekeeper(deps GateDependencies) *Gatekeeper {
	g := &Gatekeeper{
		tokens:   deps.Tokens,
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Authenticate turns an Authorization header value into a Principal.
func (g *Gatekeeper) Authenticate(ctx context.Context, header string) (*Principal, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, g.reject("authentication", ErrMissingCredential, nil)
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])

	claims, err := g.tokens.Decode(token)
	if err != nil {
		return nil, g.reject("authentication", ErrInvalidCredential, err)
	}
	if claims.UserID == "" || claims.AppRoleID == "" {
		return nil, g.reject("authentication", ErrInvalidCredential, errors.New("missing userId or appRoleId"))
	}
	role, ok := domain.ParseAppRole(claims.AppRoleID)
	if !ok {
		return nil, g.reject("authentication", ErrInvalidCredential, fmt.Errorf("unknown appRoleId %q", claims.AppRoleID))
	}

	if err := g.checkAccount(ctx, claims.UserID); err != nil {
		return nil, err
	}

	return &Principal{UserID: claims.UserID, AppRole: role, Token: token}, nil
}

func (g *Gatekeeper) checkAccount(ctx context.Context, userID string) error {
	user, err := g.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return g.reject("authentication", ErrAccountNotFound, nil)
		}
		return fmt.Errorf("lookup account %s: %w", userID, err)
	}
	if !user.Verified {
		return g.reject("authentication", ErrAccountUnverified, nil)
	}
	return nil
}

// AuthorizeSession checks the sessionId header values against the principal.
// On success the principal carries the session id.
func (g *Gatekeeper) AuthorizeSession(ctx context.Context, principal *Principal, values []string) error {
	if len(values) != 1 || values[0] == "" {
		return g.reject("session", ErrMissingSession, nil)
	}
	sessionID := values[0]

	sess, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return g.reject("session", ErrSessionMismatch, nil)
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	if sess.UserID != principal.UserID {
		return g.reject("session", ErrSessionMismatch, nil)
	}
	if sess.Expired(g.now()) {
		return g.reject("session", ErrSessionExpired, nil)
	}

	principal.SessionID = sessionID
	return nil
}

func (g *Gatekeeper) reject(stage string, sentinel *errorutil.DomainError, cause error) error {
	if g.metrics != nil {
		g.metrics.RecordGateRejection(stage, sentinel.Code)
	}
	fields := []zap.Field{zap.String("stage", stage), zap.String("reason", sentinel.Code)}
	if cause != nil {
		fields = append(fields, zap.NamedError("cause", cause))
	}
	g.logger.Debug("request rejected", fields...)
	return sentinel
}
