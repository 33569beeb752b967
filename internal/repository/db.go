package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the addressed row does not exist or a
	// conditional write matched nothing.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when an insert hits a unique key.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrMember is returned when a waiting-list insert finds the subject is
	// already a member.
	ErrMember = errors.New("repository: already a member")
	// ErrStale is returned when a locked row no longer holds the expected state.
	ErrStale = errors.New("repository: stale row")
)

// DB is the subset of pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	uniqueViolation = "23505"
	// A malformed uuid in a lookup cannot match any row.
	invalidTextRepresentation = "22P02"
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case invalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}
