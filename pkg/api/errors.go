package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/access"
	"github.com/platinummonkey/projecthub/pkg/httputil"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/objectstore"
	"github.com/platinummonkey/projecthub/pkg/observability"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

type denial struct {
	action string
	reason access.DenyReason
}

// denyMessages overrides the generic reason message for specific actions
var denyMessages = map[denial]string{
	{projects.ActionAddMember, access.ReasonNotOwner}:            "Only owner can add members.",
	{projects.ActionRemoveMember, access.ReasonNotOwner}:         "Only the project owner can remove members.",
	{projects.ActionRemoveMember, access.ReasonCannotRemoveSelf}: "You cannot remove yourself from the project.",
	{projects.ActionInvite, access.ReasonNotOwner}:               "Only owner can invite members.",
	{projects.ActionRenameProject, access.ReasonNotOwner}:        "Only the project owner can rename the project.",
	{projects.ActionDeleteProject, access.ReasonNotOwner}:        "Only the project owner can delete the project.",
	{projects.ActionUploadDocument, access.ReasonNotMember}:      "You do not have permission to upload documents for this project.",
	{projects.ActionDeleteDocument, access.ReasonNotMember}:      "You do not have permission to delete this document.",
	{projects.ActionReadDocument, access.ReasonNotMember}:        "You do not have permission to download this document.",
	{projects.ActionComment, access.ReasonNotMember}:             "You do not have permission to comment on this project.",
	{projects.ActionDeleteComment, access.ReasonNotAuthor}:       "Not allowed to delete this comment.",
	{projects.ActionViewProject, access.ReasonNotMember}:         "You do not have permission to view this project.",
}

var validationMessages = []struct {
	err error
	msg string
}{
	{projects.ErrMissingUser, "User ID is required."},
	{projects.ErrMissingEmail, "Email is required."},
	{projects.ErrMissingName, "Name is required."},
	{projects.ErrMissingText, "Text is required."},
}

// writeError maps a service error onto a status and {"detail": ...} body.
// action selects the wording where one error means different things to
// different endpoints.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		msg, ok := denyMessages[denial{denied.Action, denied.Reason}]
		if !ok {
			msg = denied.Reason.Message()
		}
		httputil.WriteForbidden(w, msg)
		return
	}

	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			httputil.WriteBadRequest(w, v.msg)
			return
		}
	}

	switch {
	case errors.Is(err, projects.ErrAlreadyMember):
		if action == projects.ActionInvite {
			httputil.WriteBadRequest(w, "User is already a member of the project.")
			return
		}
		httputil.WriteBadRequest(w, "Member already exists.")
	case errors.Is(err, identity.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found.")
	case errors.Is(err, projects.ErrNotFound), errors.Is(err, objectstore.ErrNotFound):
		httputil.WriteNotFound(w, "Not found.")
	case errors.Is(err, projects.ErrNotificationDeliveryFailed):
		h.log(r).WithError(err).Warn("invitation could not be delivered")
		httputil.WriteDetail(w, http.StatusBadGateway, "Failed to send the invitation email.")
	case errors.Is(err, projects.ErrNoObjectStore):
		httputil.WriteDetail(w, http.StatusServiceUnavailable, "Document storage is not configured.")
	default:
		h.log(r).WithError(err).WithField("action", action).Error("request failed")
		httputil.WriteInternalError(w)
	}
}

func (h *Handlers) log(r *http.Request) logrus.FieldLogger {
	return observability.FromContext(r.Context(), h.logger)
}
