package access

// Snapshot is the state a decision is made over: one project's owner
// pointer and the user ids holding member rows.
type Snapshot struct {
	ProjectID int64
	OwnerID   int64
	Members   []int64
}

// IsOwner reports whether userID is the project owner
func (s Snapshot) IsOwner(userID int64) bool {
	return s.OwnerID == userID
}

// IsMember reports whether userID holds a member row
func (s Snapshot) IsMember(userID int64) bool {
	for _, id := range s.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Decision is the outcome of a check: allow, or deny with a reason
type Decision struct {
	reason DenyReason
}

// Allow is the allowing decision
var Allow = Decision{}

// Deny builds a denying decision
func Deny(reason DenyReason) Decision {
	return Decision{reason: reason}
}

// Allowed reports whether the decision allows the action
func (d Decision) Allowed() bool {
	return d.reason == ""
}

// Reason returns the deny reason, empty when allowed
func (d Decision) Reason() DenyReason {
	return d.reason
}

// Err returns nil when allowed, otherwise a *DeniedError
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Reason: d.reason}
}

// CommentRef identifies a comment's author and project
type CommentRef struct {
	AuthorID  int64
	ProjectID int64
}

// CanViewProject is true for the owner and for members
func CanViewProject(userID int64, p Snapshot) bool {
	return p.IsOwner(userID) || p.IsMember(userID)
}

// CanManageMembers is true only for the owner
func CanManageMembers(userID int64, p Snapshot) bool {
	return p.IsOwner(userID)
}

// CanManageProject covers rename and delete; owner only
func CanManageProject(userID int64, p Snapshot) bool {
	return p.IsOwner(userID)
}

// CanRemoveMember denies non-owners, and denies anyone removing themselves.
// The owner's own row is therefore never removable.
func CanRemoveMember(actorID, targetID int64, p Snapshot) Decision {
	if !p.IsOwner(actorID) {
		return Deny(ReasonNotOwner)
	}
	if actorID == targetID {
		return Deny(ReasonCannotRemoveSelf)
	}
	return Allow
}

// CanDeleteComment is true for the comment author and the project owner
func CanDeleteComment(actorID int64, c CommentRef, p Snapshot) bool {
	return c.AuthorID == actorID || (c.ProjectID == p.ProjectID && p.IsOwner(actorID))
}

// CanUploadOrDeleteDocument is true for the owner and for members
func CanUploadOrDeleteDocument(actorID int64, p Snapshot) bool {
	return p.IsOwner(actorID) || p.IsMember(actorID)
}

// CanComment is true for the owner and for members
func CanComment(actorID int64, p Snapshot) bool {
	return CanViewProject(actorID, p)
}

// ViewDecision wraps CanViewProject with a reason
func ViewDecision(userID int64, p Snapshot) Decision {
	if CanViewProject(userID, p) {
		return Allow
	}
	return Deny(ReasonNotMember)
}

// ManageMembersDecision wraps CanManageMembers with a reason
func ManageMembersDecision(userID int64, p Snapshot) Decision {
	if CanManageMembers(userID, p) {
		return Allow
	}
	return Deny(ReasonNotOwner)
}

// ManageProjectDecision wraps CanManageProject with a reason
func ManageProjectDecision(userID int64, p Snapshot) Decision {
	if CanManageProject(userID, p) {
		return Allow
	}
	return Deny(ReasonNotOwner)
}

// DocumentDecision wraps CanUploadOrDeleteDocument with a reason
func DocumentDecision(actorID int64, p Snapshot) Decision {
	if CanUploadOrDeleteDocument(actorID, p) {
		return Allow
	}
	return Deny(ReasonNotMember)
}

// CommentDecision wraps CanComment with a reason
func CommentDecision(actorID int64, p Snapshot) Decision {
	if CanComment(actorID, p) {
		return Allow
	}
	return Deny(ReasonNotMember)
}

// DeleteCommentDecision wraps CanDeleteComment with a reason
func DeleteCommentDecision(actorID int64, c CommentRef, p Snapshot) Decision {
	if CanDeleteComment(actorID, c, p) {
		return Allow
	}
	return Deny(ReasonNotAuthor)
}
