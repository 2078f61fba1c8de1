package projects

import (
	"context"
	"errors"
	"io"
	"time"
)

// Errors returned by the store and the service. Deny reasons live in the
// access package.
var (
	ErrNotFound                   = errors.New("not found")
	ErrAlreadyMember              = errors.New("user is already a member of the project")
	ErrMissingEmail               = errors.New("email is required")
	ErrMissingUser                = errors.New("user id is required")
	ErrMissingName                = errors.New("name is required")
	ErrMissingText                = errors.New("text is required")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// Project is a shared container for documents and comments
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"project_name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is one (project, user) row of the ledger
type Member struct {
	ID        int64     `json:"-"`
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"id"`
	Username  string    `json:"username"`
	IsOwner   bool      `json:"is_owner"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MemberList is the member listing of one project
type MemberList struct {
	Members       []*Member `json:"members"`
	CurrentUserID int64     `json:"current_user_id"`
	OwnerID       int64     `json:"owner_id"`
}

// Document references file bytes held by object storage
type Document struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project"`
	Name      string    `json:"name"`
	FileRef   string    `json:"file"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a note left on a project
type Comment struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project"`
	UserID    int64     `json:"user"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentView adds the viewer-relative flags shown by clients
type CommentView struct {
	*Comment
	IsOwner        bool `json:"is_owner"`
	IsProjectOwner bool `json:"is_project_owner"`
}

// DeletedProject lists what a project deletion removed
type DeletedProject struct {
	MemberIDs []int64
	FileRefs  []string
}

// InviteOutcome is the terminal state of a successful invitation
type InviteOutcome string

const (
	InviteAdded InviteOutcome = "added"
	InviteSent  InviteOutcome = "invite_sent"
)

// InviteResult describes a successful invitation
type InviteResult struct {
	Outcome InviteOutcome `json:"outcome"`
	Email   string        `json:"email"`
	Member  *Member       `json:"member,omitempty"`
}

// Detail returns the user-visible message for the outcome
func (r *InviteResult) Detail() string {
	if r.Outcome == InviteAdded {
		return r.Email + " has been added to the project."
	}
	return "Invite sent to " + r.Email + "."
}

// CreateProjectRequest is the body of POST /projects
type CreateProjectRequest struct {
	Name string `json:"project_name"`
}

// AddMemberRequest is the body of POST /projects/{id}/members
type AddMemberRequest struct {
	UserID int64 `json:"member"`
}

// InviteRequest is the body of POST /projects/{id}/members/invite
type InviteRequest struct {
	Email string `json:"email"`
}

// CreateCommentRequest is the body of POST /comments
type CreateCommentRequest struct {
	ProjectID int64  `json:"project"`
	Text      string `json:"text"`
}

// ListCache caches the materialized ListVisibleProjects result per user
type ListCache interface {
	Get(ctx context.Context, userID int64) ([]*Project, bool, error)
	Put(ctx context.Context, userID int64, projects []*Project, ttl time.Duration) error
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// ObjectStore holds document bytes
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
