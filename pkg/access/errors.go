package access

import (
	"errors"
	"fmt"
)

// DenyReason tags why a check failed
type DenyReason string

const (
	ReasonNotOwner         DenyReason = "not_owner"
	ReasonNotMember        DenyReason = "not_member"
	ReasonCannotRemoveSelf DenyReason = "cannot_remove_self"
	ReasonNotAuthor        DenyReason = "not_author"
)

// Sentinel errors, one per deny reason. Match with errors.Is.
var (
	ErrNotOwner         = errors.New("only the project owner can perform this action")
	ErrNotMember        = errors.New("not a member of this project")
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from the project")
	ErrNotAuthor        = errors.New("not allowed to delete this comment")
)

var reasonErrors = map[DenyReason]error{
	ReasonNotOwner:         ErrNotOwner,
	ReasonNotMember:        ErrNotMember,
	ReasonCannotRemoveSelf: ErrCannotRemoveSelf,
	ReasonNotAuthor:        ErrNotAuthor,
}

var reasonMessages = map[DenyReason]string{
	ReasonNotOwner:         "Only the project owner can perform this action.",
	ReasonNotMember:        "You are not a member of this project.",
	ReasonCannotRemoveSelf: "You cannot remove yourself from the project.",
	ReasonNotAuthor:        "Not allowed to delete this comment.",
}

// Message returns the user-visible message for the reason
func (r DenyReason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Permission denied."
}

// DeniedError is returned when a policy check denies an action
type DeniedError struct {
	Reason DenyReason
	// Action is optional context for logs, e.g. "remove member"
	Action string
}

func (e *DeniedError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s denied: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Unwrap exposes the sentinel for the reason
func (e *DeniedError) Unwrap() error {
	return reasonErrors[e.Reason]
}

// IsDenied reports whether err carries a deny reason and returns it
func IsDenied(err error) (DenyReason, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason, true
	}
	return "", false
}
