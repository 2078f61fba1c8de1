package projects

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/projecthub/pkg/access"
)

var tracer = otel.Tracer("github.com/platinummonkey/projecthub/pkg/projects")

// Store is the persistence boundary for projects, members, documents and
// comments. Uniqueness of (project, user) is enforced here, not by callers.
type Store interface {
	CreateProject(ctx context.Context, ownerID int64, name string) (*Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	GetSnapshot(ctx context.Context, projectID int64) (access.Snapshot, error)
	RenameProject(ctx context.Context, id int64, name string) error
	DeleteProject(ctx context.Context, id int64) (*DeletedProject, error)
	ListVisibleProjects(ctx context.Context, userID int64) ([]*Project, error)

	AddMember(ctx context.Context, projectID, userID int64) (*Member, error)
	RemoveMember(ctx context.Context, projectID, userID int64) error
	ListMembers(ctx context.Context, projectID int64) ([]*Member, error)

	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	ListDocuments(ctx context.Context, projectID int64) ([]*Document, error)

	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id int64) (*Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	ListCommentsByProject(ctx context.Context, projectID int64) ([]*Comment, error)
	ListCommentsByUser(ctx context.Context, userID int64) ([]*Comment, error)
}

// PostgresStore implements Store over database/sql. Queries are written to
// run unchanged on PostgreSQL and SQLite.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ProjectStore."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateProject inserts the project and the owner's member row in one
// transaction. Neither row is visible without the other.
func (s *PostgresStore) CreateProject(ctx context.Context, ownerID int64, name string) (_ *Project, err error) {
	ctx, span := startSpan(ctx, "CreateProject", attribute.Int64("owner.id", ownerID))
	defer func() { endSpan(span, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	project := &Project{Name: name, OwnerID: ownerID, CreatedAt: now}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO projects (name, owner_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		name, ownerID, now,
	).Scan(&project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (project_id, user_id, is_owner, joined_at) VALUES ($1, $2, $3, $4)`,
		project.ID, ownerID, true, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project: %w", err)
	}
	return project, nil
}

// GetProject retrieves a project by ID
func (s *PostgresStore) GetProject(ctx context.Context, id int64) (_ *Project, err error) {
	ctx, span := startSpan(ctx, "GetProject", attribute.Int64("project.id", id))
	defer func() { endSpan(span, err) }()

	project := &Project{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM projects WHERE id = $1`, id,
	).Scan(&project.ID, &project.Name, &project.OwnerID, &project.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// GetSnapshot loads the owner pointer and member user ids of one project
func (s *PostgresStore) GetSnapshot(ctx context.Context, projectID int64) (_ access.Snapshot, err error) {
	ctx, span := startSpan(ctx, "GetSnapshot", attribute.Int64("project.id", projectID))
	defer func() { endSpan(span, err) }()

	snap := access.Snapshot{ProjectID: projectID}
	err = s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM projects WHERE id = $1`, projectID,
	).Scan(&snap.OwnerID)
	if err == sql.ErrNoRows {
		return snap, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to get project owner: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM members WHERE project_id = $1 ORDER BY user_id`, projectID)
	if err != nil {
		return snap, fmt.Errorf("failed to list member ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err = rows.Scan(&userID); err != nil {
			return snap, fmt.Errorf("failed to scan member id: %w", err)
		}
		snap.Members = append(snap.Members, userID)
	}
	if err = rows.Err(); err != nil {
		return snap, fmt.Errorf("failed to list member ids: %w", err)
	}
	return snap, nil
}

// RenameProject updates a project's name
func (s *PostgresStore) RenameProject(ctx context.Context, id int64, name string) (err error) {
	ctx, span := startSpan(ctx, "RenameProject", attribute.Int64("project.id", id))
	defer func() { endSpan(span, err) }()

	result, err := s.db.ExecContext(ctx, `UPDATE projects SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return expectAffected(result, fmt.Errorf("project %d: %w", id, ErrNotFound))
}

// DeleteProject removes the project with its members, documents and
// comments, returning the user ids that lost visibility and the file refs
// left behind in object storage.
func (s *PostgresStore) DeleteProject(ctx context.Context, id int64) (_ *DeletedProject, err error) {
	ctx, span := startSpan(ctx, "DeleteProject", attribute.Int64("project.id", id))
	defer func() { endSpan(span, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted := &DeletedProject{}

	memberIDs, err := collectInt64s(ctx, tx, `SELECT user_id FROM members WHERE project_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	deleted.MemberIDs = memberIDs

	refRows, err := tx.QueryContext(ctx, `SELECT file_ref FROM documents WHERE project_id = $1 AND file_ref <> ''`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for refRows.Next() {
		var ref string
		if err = refRows.Scan(&ref); err != nil {
			refRows.Close()
			return nil, fmt.Errorf("failed to scan document ref: %w", err)
		}
		deleted.FileRefs = append(deleted.FileRefs, ref)
	}
	refRows.Close()

	for _, stmt := range []string{
		`DELETE FROM comments WHERE project_id = $1`,
		`DELETE FROM documents WHERE project_id = $1`,
		`DELETE FROM members WHERE project_id = $1`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return nil, fmt.Errorf("failed to delete project rows: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	if err = expectAffected(result, fmt.Errorf("project %d: %w", id, ErrNotFound)); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project deletion: %w", err)
	}
	return deleted, nil
}

// ListVisibleProjects returns projects the user owns or is a member of.
// Each project appears once even when both conditions hold.
func (s *PostgresStore) ListVisibleProjects(ctx context.Context, userID int64) (_ []*Project, err error) {
	ctx, span := startSpan(ctx, "ListVisibleProjects", attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	query := `
		SELECT p.id, p.name, p.owner_id, p.created_at
		FROM projects p
		WHERE p.owner_id = $1
		   OR EXISTS (SELECT 1 FROM members m WHERE m.project_id = p.id AND m.user_id = $1)
		ORDER BY p.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		p := &Project{}
		if err = rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// AddMember inserts a non-owner member row. A concurrent or repeated insert
// for the same pair loses on the unique constraint and gets ErrAlreadyMember.
func (s *PostgresStore) AddMember(ctx context.Context, projectID, userID int64) (_ *Member, err error) {
	ctx, span := startSpan(ctx, "AddMember",
		attribute.Int64("project.id", projectID), attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	member := &Member{ProjectID: projectID, UserID: userID, JoinedAt: time.Now().UTC()}
	query := `
		INSERT INTO members (project_id, user_id, is_owner, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query, projectID, userID, false, member.JoinedAt).Scan(&member.ID)
	if err == sql.ErrNoRows {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return member, nil
}

// RemoveMember deletes a non-owner member row. The owner row never matches.
func (s *PostgresStore) RemoveMember(ctx context.Context, projectID, userID int64) (err error) {
	ctx, span := startSpan(ctx, "RemoveMember",
		attribute.Int64("project.id", projectID), attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE project_id = $1 AND user_id = $2 AND is_owner = FALSE`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return expectAffected(result, fmt.Errorf("member %d of project %d: %w", userID, projectID, ErrNotFound))
}

// ListMembers lists a project's members in join order
func (s *PostgresStore) ListMembers(ctx context.Context, projectID int64) (_ []*Member, err error) {
	ctx, span := startSpan(ctx, "ListMembers", attribute.Int64("project.id", projectID))
	defer func() { endSpan(span, err) }()

	query := `
		SELECT m.id, m.project_id, m.user_id, u.username, m.is_owner, m.joined_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		m := &Member{}
		if err = rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Username, &m.IsOwner, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func expectAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func collectInt64s(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
