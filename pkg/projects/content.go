package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/access"
)

// ErrNoObjectStore is returned by document operations when no object
// storage was configured.
var ErrNoObjectStore = errors.New("object storage is not configured")

// Upload is one file submitted for a project
type Upload struct {
	ProjectID   int64
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadDocument stores the bytes, then records the document. The object
// is removed again when the row cannot be written.
func (s *Service) UploadDocument(ctx context.Context, actor int64, up Upload) (*Document, error) {
	if _, err := s.authorize(ctx, actor, up.ProjectID, ActionUploadDocument, access.DocumentDecision); err != nil {
		return nil, err
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(up.Name), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, ErrMissingName
	}
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}

	key := fmt.Sprintf("documents/%d/%s-%s", up.ProjectID, uuid.NewString(), name)
	if err := s.objects.Put(ctx, key, up.Body, up.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &Document{ProjectID: up.ProjectID, Name: name, FileRef: key}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.removeObjects(ctx, []string{key})
		return nil, err
	}

	s.log(ctx).WithFields(logrus.Fields{
		"project_id":  up.ProjectID,
		"document_id": doc.ID,
	}).Info("Document uploaded")

	return doc, nil
}

// OpenDocument returns a document and a reader over its bytes for a viewer
// of its project. The caller closes the reader.
func (s *Service) OpenDocument(ctx context.Context, actor, documentID int64) (*Document, io.ReadCloser, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.authorize(ctx, actor, doc.ProjectID, ActionReadDocument, access.ViewDecision); err != nil {
		return nil, nil, err
	}
	if s.objects == nil {
		return nil, nil, ErrNoObjectStore
	}

	body, err := s.objects.Get(ctx, doc.FileRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document: %w", err)
	}
	return doc, body, nil
}

// DeleteDocument removes the row, then the stored bytes. Owner or member.
func (s *Service) DeleteDocument(ctx context.Context, actor, documentID int64) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, actor, doc.ProjectID, ActionDeleteDocument, access.DocumentDecision); err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.removeObjects(ctx, []string{doc.FileRef})

	return nil
}

// ListDocuments lists a project's documents for a viewer
func (s *Service) ListDocuments(ctx context.Context, actor, projectID int64) ([]*Document, error) {
	if _, err := s.authorize(ctx, actor, projectID, ActionViewProject, access.ViewDecision); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, projectID)
}

// CreateComment records a comment authored by actor
func (s *Service) CreateComment(ctx context.Context, actor, projectID int64, text string) (*CommentView, error) {
	snap, err := s.authorize(ctx, actor, projectID, ActionComment, access.CommentDecision)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMissingText
	}

	c := &Comment{ProjectID: projectID, UserID: actor, Text: text}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	// Re-read for the author's username
	stored, err := s.store.GetComment(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return viewComment(actor, stored, snap.OwnerID), nil
}

// DeleteComment removes a comment. Its author or the project owner.
func (s *Service) DeleteComment(ctx context.Context, actor, commentID int64) error {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}

	snap, err := s.store.GetSnapshot(ctx, c.ProjectID)
	if err != nil {
		return err
	}

	ref := access.CommentRef{AuthorID: c.UserID, ProjectID: c.ProjectID}
	if d := access.DeleteCommentDecision(actor, ref, snap); !d.Allowed() {
		return s.deny(ctx, ActionDeleteComment, c.ProjectID, d)
	}

	return s.store.DeleteComment(ctx, commentID)
}

// ListProjectComments lists a project's comments for a viewer
func (s *Service) ListProjectComments(ctx context.Context, actor, projectID int64) ([]*CommentView, error) {
	snap, err := s.authorize(ctx, actor, projectID, ActionViewProject, access.ViewDecision)
	if err != nil {
		return nil, err
	}

	comments, err := s.store.ListCommentsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	views := make([]*CommentView, len(comments))
	for i, c := range comments {
		views[i] = viewComment(actor, c, snap.OwnerID)
	}
	return views, nil
}

// ListUserComments lists comments authored by userID, restricted to projects
// the actor can see.
func (s *Service) ListUserComments(ctx context.Context, actor, userID int64) ([]*CommentView, error) {
	visible, err := s.ListVisibleProjects(ctx, actor)
	if err != nil {
		return nil, err
	}
	owners := make(map[int64]int64, len(visible))
	for _, p := range visible {
		owners[p.ID] = p.OwnerID
	}

	comments, err := s.store.ListCommentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := []*CommentView{}
	for _, c := range comments {
		ownerID, ok := owners[c.ProjectID]
		if !ok {
			continue
		}
		views = append(views, viewComment(actor, c, ownerID))
	}
	return views, nil
}

func viewComment(actor int64, c *Comment, projectOwnerID int64) *CommentView {
	return &CommentView{
		Comment:        c,
		IsOwner:        c.UserID == actor,
		IsProjectOwner: projectOwnerID == actor,
	}
}

// removeObjects deletes stored bytes on a best-effort basis. Failures leave
// an orphaned object and are only logged.
func (s *Service) removeObjects(ctx context.Context, keys []string) {
	if s.objects == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			s.log(ctx).WithError(err).WithField("file_ref", key).Warn("Failed to delete stored object")
		}
	}
}
