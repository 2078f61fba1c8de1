// Package access implements the project access policy.
//
// # Overview
//
// Every decision is a pure function over a Snapshot of one project's
// ownership and membership rows. The package performs no I/O; callers load
// the snapshot from the ledger, ask for a decision, and only then mutate.
//
// There are exactly two roles:
//
//   - owner: the user who created the project. Manages members, renames or
//     deletes the project, and may delete any comment in it.
//   - member: any user with a member row. May view the project, upload and
//     delete documents, and write comments.
//
// # Usage Example
//
//	snap := access.Snapshot{ProjectID: 7, OwnerID: alice, Members: []int64{alice, bob}}
//	if d := access.CanRemoveMember(bob, alice, snap); !d.Allowed() {
//		return d.Err() // *access.DeniedError wrapping access.ErrNotOwner
//	}
//
// # Deny Reasons
//
// Denials carry a DenyReason with a stable message so the HTTP boundary can
// return a distinct body per cause:
//
//	ReasonNotOwner          "Only the project owner can perform this action."
//	ReasonNotMember         "You are not a member of this project."
//	ReasonCannotRemoveSelf  "You cannot remove yourself from the project."
//	ReasonNotAuthor         "Not allowed to delete this comment."
package access
