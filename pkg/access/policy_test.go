package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
)

func docsSnapshot() Snapshot {
	return Snapshot{ProjectID: 10, OwnerID: alice, Members: []int64{alice, bob}}
}

func TestCanViewProject(t *testing.T) {
	snap := docsSnapshot()

	tests := []struct {
		name string
		user int64
		want bool
	}{
		{name: "owner", user: alice, want: true},
		{name: "member", user: bob, want: true},
		{name: "stranger", user: carol, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewProject(tt.user, snap))
		})
	}
}

func TestCanViewProject_OwnerWithoutMemberRow(t *testing.T) {
	snap := Snapshot{ProjectID: 10, OwnerID: alice}
	assert.True(t, CanViewProject(alice, snap))
}

func TestCanManageMembers(t *testing.T) {
	snap := docsSnapshot()
	assert.True(t, CanManageMembers(alice, snap))
	assert.False(t, CanManageMembers(bob, snap))
	assert.False(t, CanManageMembers(carol, snap))
}

func TestCanRemoveMember(t *testing.T) {
	snap := docsSnapshot()

	tests := []struct {
		name   string
		actor  int64
		target int64
		want   DenyReason
	}{
		{name: "owner removes member", actor: alice, target: bob, want: ""},
		{name: "owner removes self", actor: alice, target: alice, want: ReasonCannotRemoveSelf},
		{name: "member removes owner", actor: bob, target: alice, want: ReasonNotOwner},
		{name: "member removes self", actor: bob, target: bob, want: ReasonNotOwner},
		{name: "stranger removes member", actor: carol, target: bob, want: ReasonNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanRemoveMember(tt.actor, tt.target, snap)
			assert.Equal(t, tt.want, d.Reason())
			assert.Equal(t, tt.want == "", d.Allowed())
		})
	}
}

func TestCanRemoveMember_SelfRemovalAlwaysDenied(t *testing.T) {
	// Owner self-removal stays banned whatever the member set looks like.
	for _, members := range [][]int64{nil, {alice}, {alice, bob, carol}} {
		snap := Snapshot{ProjectID: 10, OwnerID: alice, Members: members}
		d := CanRemoveMember(alice, alice, snap)
		assert.Equal(t, ReasonCannotRemoveSelf, d.Reason())
	}
}

func TestCanDeleteComment(t *testing.T) {
	snap := docsSnapshot()
	byAlice := CommentRef{AuthorID: alice, ProjectID: snap.ProjectID}
	byBob := CommentRef{AuthorID: bob, ProjectID: snap.ProjectID}

	assert.True(t, CanDeleteComment(alice, byAlice, snap), "author")
	assert.False(t, CanDeleteComment(bob, byAlice, snap), "member deleting owner's comment")
	assert.True(t, CanDeleteComment(bob, byBob, snap), "member deleting own comment")
	assert.True(t, CanDeleteComment(alice, byBob, snap), "owner override")
	assert.False(t, CanDeleteComment(carol, byBob, snap), "stranger")
}

func TestCanDeleteComment_OwnerOfOtherProject(t *testing.T) {
	snap := Snapshot{ProjectID: 99, OwnerID: carol}
	c := CommentRef{AuthorID: bob, ProjectID: 10}
	assert.False(t, CanDeleteComment(carol, c, snap))
}

func TestCanUploadOrDeleteDocument(t *testing.T) {
	snap := docsSnapshot()
	assert.True(t, CanUploadOrDeleteDocument(alice, snap))
	assert.True(t, CanUploadOrDeleteDocument(bob, snap))
	assert.False(t, CanUploadOrDeleteDocument(carol, snap))
}

func TestDecisionErr(t *testing.T) {
	require.NoError(t, Allow.Err())

	err := Deny(ReasonNotOwner).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotOwner))
	assert.False(t, errors.Is(err, ErrCannotRemoveSelf))

	reason, ok := IsDenied(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonNotOwner, reason)
}

func TestDenyReasonMessagesAreDistinct(t *testing.T) {
	seen := map[string]DenyReason{}
	for _, r := range []DenyReason{ReasonNotOwner, ReasonNotMember, ReasonCannotRemoveSelf, ReasonNotAuthor} {
		msg := r.Message()
		prev, dup := seen[msg]
		assert.False(t, dup, "%s shares a message with %s", r, prev)
		seen[msg] = r
	}
	assert.Equal(t, "Permission denied.", DenyReason("unknown").Message())
}

func TestDecisionHelpers(t *testing.T) {
	snap := docsSnapshot()

	assert.True(t, ViewDecision(bob, snap).Allowed())
	assert.Equal(t, ReasonNotMember, ViewDecision(carol, snap).Reason())
	assert.Equal(t, ReasonNotOwner, ManageMembersDecision(bob, snap).Reason())
	assert.Equal(t, ReasonNotOwner, ManageProjectDecision(bob, snap).Reason())
	assert.True(t, ManageProjectDecision(alice, snap).Allowed())
	assert.Equal(t, ReasonNotMember, DocumentDecision(carol, snap).Reason())
	assert.True(t, CommentDecision(bob, snap).Allowed())
	assert.Equal(t, ReasonNotAuthor, DeleteCommentDecision(bob, CommentRef{AuthorID: alice, ProjectID: 10}, snap).Reason())
}
