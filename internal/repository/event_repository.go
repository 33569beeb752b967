package repository

import (
	"context"
	"errors"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// EventRepository manages persistence for events.
type EventRepository interface {
	// Create stores the event and makes ownerID its OWNER in one transaction.
	Create(ctx context.Context, event *domain.Event, ownerID string) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type eventRepository struct {
	db DB
}

// NewEventRepository constructs repository.
func NewEventRepository(db DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event, ownerID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	const insertEvent = `
        INSERT INTO events (group_id, name, description, location, starts_at, ends_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertEvent,
		event.GroupID,
		event.Name,
		event.Description,
		event.Location,
		event.StartsAt,
		event.EndsAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return translate(err)
	}

	const insertOwner = `INSERT INTO event_members (event_id, user_id, role) VALUES ($1,$2,$3)`
	if _, err := tx.Exec(ctx, insertOwner, event.ID, ownerID, int(domain.GroupRoleOwner)); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	const query = `
        SELECT id, group_id, name, description, location, starts_at, ends_at, created_at, updated_at
        FROM events WHERE id=$1`
	var event domain.Event
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.GroupID,
		&event.Name,
		&event.Description,
		&event.Location,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

func (r *eventRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := translate(r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id=$1)`, id).Scan(&exists))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return exists, err
}
