package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

// MembershipTables names the tables backing one container kind.
type MembershipTables struct {
	Members         string
	WaitingList     string
	ContainerColumn string
}

var (
	GroupMembershipTables = MembershipTables{Members: "group_members", WaitingList: "group_waiting_list", ContainerColumn: "group_id"}
	EventMembershipTables = MembershipTables{Members: "event_members", WaitingList: "event_waiting_list", ContainerColumn: "event_id"}
)

// MembershipRepository stores memberships and waiting-list entries for one
// container kind. Groups and events share this implementation.
type MembershipRepository interface {
	GetMembership(ctx context.Context, containerID, subjectID string) (*domain.Membership, error)
	GetOwner(ctx context.Context, containerID string) (*domain.Membership, error)
	ListMembers(ctx context.Context, containerID string) ([]domain.Membership, error)
	// UpdateRole changes the role only while it still equals from.
	UpdateRole(ctx context.Context, containerID, subjectID string, from, to domain.GroupRole) (*domain.Membership, error)
	DeleteMembership(ctx context.Context, containerID, subjectID string) error
	// TransferOwnership demotes ownerID to ADMINISTRATOR and raises newOwnerID to
	// OWNER in one transaction with both rows locked.
	TransferOwnership(ctx context.Context, containerID, ownerID, newOwnerID string) error

	GetPending(ctx context.Context, containerID, subjectID string) (*domain.WaitingListEntry, error)
	ListPending(ctx context.Context, containerID string) ([]domain.WaitingListEntry, error)
	// InsertPending adds the waiting-list entry unless the subject already has
	// one (ErrDuplicate) or is a member (ErrMember). The check and the insert
	// run under the pair lock that AcceptPending also takes.
	InsertPending(ctx context.Context, entry *domain.WaitingListEntry) error
	DeletePending(ctx context.Context, containerID, subjectID string) error
	// AcceptPending deletes the waiting-list entry and inserts the membership in
	// one transaction under the pair lock. The delete decides which of two
	// concurrent accepts wins.
	AcceptPending(ctx context.Context, containerID, subjectID string, role domain.GroupRole) (*domain.Membership, error)
}

type membershipQueries struct {
	getMember     string
	getOwner      string
	listMembers   string
	updateRole    string
	deleteMember  string
	lockMember    string
	setRole       string
	insertMember  string
	getPending    string
	listPending   string
	insertPending string
	deletePending string
	lockPair      string
}

type membershipRepository struct {
	db DB
	q  membershipQueries
}

// NewMembershipRepository constructs a repository over the given tables.
func NewMembershipRepository(db DB, tables MembershipTables) MembershipRepository {
	return &membershipRepository{db: db, q: buildMembershipQueries(tables)}
}

func buildMembershipQueries(t MembershipTables) membershipQueries {
	r := strings.NewReplacer("{members}", t.Members, "{waiting}", t.WaitingList, "{container}", t.ContainerColumn)
	q := func(s string) string { return r.Replace(s) }
	return membershipQueries{
		getMember: q(`
        SELECT {container}, user_id, role, joined_at
        FROM {members} WHERE {container}=$1 AND user_id=$2`),
		getOwner: q(fmt.Sprintf(`
        SELECT {container}, user_id, role, joined_at
        FROM {members} WHERE {container}=$1 AND role=%d`, domain.GroupRoleOwner)),
		listMembers: q(`
        SELECT {container}, user_id, role, joined_at
        FROM {members} WHERE {container}=$1 ORDER BY role, joined_at`),
		updateRole: q(`
        UPDATE {members} SET role=$4
        WHERE {container}=$1 AND user_id=$2 AND role=$3
        RETURNING {container}, user_id, role, joined_at`),
		deleteMember: q(`DELETE FROM {members} WHERE {container}=$1 AND user_id=$2`),
		lockMember:   q(`SELECT role FROM {members} WHERE {container}=$1 AND user_id=$2 FOR UPDATE`),
		setRole:      q(`UPDATE {members} SET role=$3 WHERE {container}=$1 AND user_id=$2`),
		insertMember: q(`
        INSERT INTO {members} ({container}, user_id, role)
        VALUES ($1,$2,$3)
        RETURNING {container}, user_id, role, joined_at`),
		getPending: q(`
        SELECT {container}, user_id, requested_at
        FROM {waiting} WHERE {container}=$1 AND user_id=$2`),
		listPending: q(`
        SELECT {container}, user_id, requested_at
        FROM {waiting} WHERE {container}=$1 ORDER BY requested_at`),
		insertPending: q(`
        INSERT INTO {waiting} ({container}, user_id)
        VALUES ($1,$2)
        RETURNING requested_at`),
		deletePending: q(`DELETE FROM {waiting} WHERE {container}=$1 AND user_id=$2`),
		lockPair:      q(`SELECT pg_advisory_xact_lock(hashtext('{members}:' || $1::text || ':' || $2::text))`),
	}
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role int
	)
	if err := row.Scan(&m.ContainerID, &m.SubjectID, &role, &m.JoinedAt); err != nil {
		return nil, translate(err)
	}
	m.Role = domain.GroupRole(role)
	return &m, nil
}

func (r *membershipRepository) GetMembership(ctx context.Context, containerID, subjectID string) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRow(ctx, r.q.getMember, containerID, subjectID))
}

func (r *membershipRepository) GetOwner(ctx context.Context, containerID string) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRow(ctx, r.q.getOwner, containerID))
}

func (r *membershipRepository) ListMembers(ctx context.Context, containerID string) ([]domain.Membership, error) {
	rows, err := r.db.Query(ctx, r.q.listMembers, containerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func (r *membershipRepository) UpdateRole(ctx context.Context, containerID, subjectID string, from, to domain.GroupRole) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRow(ctx, r.q.updateRole, containerID, subjectID, int(from), int(to)))
}

func (r *membershipRepository) DeleteMembership(ctx context.Context, containerID, subjectID string) error {
	cmd, err := r.db.Exec(ctx, r.q.deleteMember, containerID, subjectID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *membershipRepository) TransferOwnership(ctx context.Context, containerID, ownerID, newOwnerID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	// Lock in a stable order so two transfers on the same pair cannot deadlock.
	first, second := ownerID, newOwnerID
	if second < first {
		first, second = second, first
	}
	roles := make(map[string]domain.GroupRole, 2)
	for _, subjectID := range []string{first, second} {
		var role int
		if err := tx.QueryRow(ctx, r.q.lockMember, containerID, subjectID).Scan(&role); err != nil {
			return translate(err)
		}
		roles[subjectID] = domain.GroupRole(role)
	}
	if roles[ownerID] != domain.GroupRoleOwner {
		return ErrStale
	}

	// Demote first: at most one OWNER row may exist per container.
	if _, err := tx.Exec(ctx, r.q.setRole, containerID, ownerID, int(domain.GroupRoleAdministrator)); err != nil {
		return translate(err)
	}
	if _, err := tx.Exec(ctx, r.q.setRole, containerID, newOwnerID, int(domain.GroupRoleOwner)); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

func (r *membershipRepository) GetPending(ctx context.Context, containerID, subjectID string) (*domain.WaitingListEntry, error) {
	var entry domain.WaitingListEntry
	if err := r.db.QueryRow(ctx, r.q.getPending, containerID, subjectID).Scan(
		&entry.ContainerID,
		&entry.SubjectID,
		&entry.RequestedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *membershipRepository) ListPending(ctx context.Context, containerID string) ([]domain.WaitingListEntry, error) {
	rows, err := r.db.Query(ctx, r.q.listPending, containerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.WaitingListEntry
	for rows.Next() {
		var entry domain.WaitingListEntry
		if err := rows.Scan(&entry.ContainerID, &entry.SubjectID, &entry.RequestedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *membershipRepository) InsertPending(ctx context.Context, entry *domain.WaitingListEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	if err := r.lock(ctx, tx, entry.ContainerID, entry.SubjectID); err != nil {
		return err
	}
	_, err = scanMembership(tx.QueryRow(ctx, r.q.getMember, entry.ContainerID, entry.SubjectID))
	switch {
	case err == nil:
		return ErrMember
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := tx.QueryRow(ctx, r.q.insertPending, entry.ContainerID, entry.SubjectID).Scan(&entry.RequestedAt); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

// lock serializes waiting-list and membership writes for one pair until the
// transaction ends.
func (r *membershipRepository) lock(ctx context.Context, tx pgx.Tx, containerID, subjectID string) error {
	if _, err := tx.Exec(ctx, r.q.lockPair, containerID, subjectID); err != nil {
		return translate(err)
	}
	return nil
}

func (r *membershipRepository) DeletePending(ctx context.Context, containerID, subjectID string) error {
	cmd, err := r.db.Exec(ctx, r.q.deletePending, containerID, subjectID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *membershipRepository) AcceptPending(ctx context.Context, containerID, subjectID string, role domain.GroupRole) (*domain.Membership, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	if err := r.lock(ctx, tx, containerID, subjectID); err != nil {
		return nil, err
	}
	cmd, err := tx.Exec(ctx, r.q.deletePending, containerID, subjectID)
	if err != nil {
		return nil, translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	m, err := scanMembership(tx.QueryRow(ctx, r.q.insertMember, containerID, subjectID, int(role)))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}
