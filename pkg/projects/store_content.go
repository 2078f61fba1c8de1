package projects

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// CreateDocument inserts a document row and fills in its id
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *Document) (err error) {
	ctx, span := startSpan(ctx, "CreateDocument", attribute.Int64("project.id", doc.ProjectID))
	defer func() { endSpan(span, err) }()

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO documents (project_id, name, file_ref, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		doc.ProjectID, doc.Name, doc.FileRef, doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID
func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (_ *Document, err error) {
	ctx, span := startSpan(ctx, "GetDocument", attribute.Int64("document.id", id))
	defer func() { endSpan(span, err) }()

	doc := &Document{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, file_ref, created_at FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.ProjectID, &doc.Name, &doc.FileRef, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document row
func (s *PostgresStore) DeleteDocument(ctx context.Context, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteDocument", attribute.Int64("document.id", id))
	defer func() { endSpan(span, err) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return expectAffected(result, fmt.Errorf("document %d: %w", id, ErrNotFound))
}

// ListDocuments lists a project's documents, oldest first
func (s *PostgresStore) ListDocuments(ctx context.Context, projectID int64) (_ []*Document, err error) {
	ctx, span := startSpan(ctx, "ListDocuments", attribute.Int64("project.id", projectID))
	defer func() { endSpan(span, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, file_ref, created_at FROM documents WHERE project_id = $1 ORDER BY id ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		d := &Document{}
		if err = rows.Scan(&d.ID, &d.ProjectID, &d.Name, &d.FileRef, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// CreateComment inserts a comment row and fills in its id
func (s *PostgresStore) CreateComment(ctx context.Context, c *Comment) (err error) {
	ctx, span := startSpan(ctx, "CreateComment", attribute.Int64("project.id", c.ProjectID))
	defer func() { endSpan(span, err) }()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO comments (project_id, user_id, text, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.ProjectID, c.UserID, c.Text, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

const commentColumns = `
	SELECT c.id, c.project_id, c.user_id, u.username, c.text, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

// GetComment retrieves a comment by ID
func (s *PostgresStore) GetComment(ctx context.Context, id int64) (_ *Comment, err error) {
	ctx, span := startSpan(ctx, "GetComment", attribute.Int64("comment.id", id))
	defer func() { endSpan(span, err) }()

	c := &Comment{}
	err = s.db.QueryRowContext(ctx, commentColumns+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment row
func (s *PostgresStore) DeleteComment(ctx context.Context, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteComment", attribute.Int64("comment.id", id))
	defer func() { endSpan(span, err) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return expectAffected(result, fmt.Errorf("comment %d: %w", id, ErrNotFound))
}

// ListCommentsByProject lists a project's comments, oldest first
func (s *PostgresStore) ListCommentsByProject(ctx context.Context, projectID int64) (_ []*Comment, err error) {
	ctx, span := startSpan(ctx, "ListCommentsByProject", attribute.Int64("project.id", projectID))
	defer func() { endSpan(span, err) }()

	return s.queryComments(ctx, commentColumns+` WHERE c.project_id = $1 ORDER BY c.id ASC`, projectID)
}

// ListCommentsByUser lists every comment a user authored, oldest first
func (s *PostgresStore) ListCommentsByUser(ctx context.Context, userID int64) (_ []*Comment, err error) {
	ctx, span := startSpan(ctx, "ListCommentsByUser", attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	return s.queryComments(ctx, commentColumns+` WHERE c.user_id = $1 ORDER BY c.id ASC`, userID)
}

func (s *PostgresStore) queryComments(ctx context.Context, query string, args ...interface{}) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
