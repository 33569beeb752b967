package repository

import (
	"context"
	"errors"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// GroupRepository manages persistence for groups.
type GroupRepository interface {
	// Create stores the group and makes ownerID its OWNER in one transaction.
	Create(ctx context.Context, group *domain.Group, ownerID string) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type groupRepository struct {
	db DB
}

// NewGroupRepository constructs repository.
func NewGroupRepository(db DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group, ownerID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	const insertGroup = `
        INSERT INTO groups (parent_id, name, description)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertGroup,
		group.ParentID,
		group.Name,
		group.Description,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt); err != nil {
		return translate(err)
	}

	const insertOwner = `INSERT INTO group_members (group_id, user_id, role) VALUES ($1,$2,$3)`
	if _, err := tx.Exec(ctx, insertOwner, group.ID, ownerID, int(domain.GroupRoleOwner)); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	const query = `
        SELECT id, parent_id, name, description, created_at, updated_at
        FROM groups WHERE id=$1`
	var group domain.Group
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.ParentID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *groupRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := translate(r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id=$1)`, id).Scan(&exists))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return exists, err
}
