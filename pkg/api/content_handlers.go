package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/platinummonkey/projecthub/pkg/httputil"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

// multipartMemory is how much of an upload is buffered before spilling to disk
const multipartMemory = 8 << 20

// ListDocuments lists a project's documents
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.svc.ListDocuments(r.Context(), userID, projectID)
	if err != nil {
		h.writeError(w, r, projects.ActionViewProject, err)
		return
	}
	_ = httputil.WriteSuccess(w, orEmpty(docs))
}

// UploadDocument accepts multipart/form-data with a "project" id and a "file"
func (h *Handlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteDetail(w, http.StatusRequestEntityTooLarge, "Upload is too large.")
			return
		}
		httputil.WriteBadRequest(w, "Expected a multipart form upload.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	projectID, err := httputil.ParseFormInt64(r, "project")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if projectID <= 0 {
		httputil.WriteBadRequest(w, "Project is required.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "File is required.")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	doc, err := h.svc.UploadDocument(r.Context(), userID, projects.Upload{
		ProjectID:   projectID,
		Name:        name,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.writeError(w, r, projects.ActionUploadDocument, err)
		return
	}
	_ = httputil.WriteCreated(w, doc)
}

// DownloadDocument streams a document's bytes
func (h *Handlers) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	documentID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	doc, body, err := h.svc.OpenDocument(r.Context(), userID, documentID)
	if err != nil {
		h.writeError(w, r, projects.ActionReadDocument, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log(r).WithError(err).WithField("document_id", documentID).Warn("document download interrupted")
	}
}

// DeleteDocument deletes a document and its stored bytes
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	documentID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), userID, documentID); err != nil {
		h.writeError(w, r, projects.ActionDeleteDocument, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CreateComment leaves a comment on a project
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}

	var req projects.CreateCommentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), userID, req.ProjectID, req.Text)
	if err != nil {
		h.writeError(w, r, projects.ActionComment, err)
		return
	}
	_ = httputil.WriteCreated(w, comment)
}

// DeleteComment deletes a comment
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	commentID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteComment(r.Context(), userID, commentID); err != nil {
		h.writeError(w, r, projects.ActionDeleteComment, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListProjectComments lists a project's comments
func (h *Handlers) ListProjectComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}

	comments, err := h.svc.ListProjectComments(r.Context(), userID, projectID)
	if err != nil {
		h.writeError(w, r, projects.ActionViewProject, err)
		return
	}
	_ = httputil.WriteSuccess(w, orEmpty(comments))
}

// ListUserComments lists a user's comments on projects the caller can see
func (h *Handlers) ListUserComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	author, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	comments, err := h.svc.ListUserComments(r.Context(), userID, author)
	if err != nil {
		h.writeError(w, r, "list user comments", err)
		return
	}
	_ = httputil.WriteSuccess(w, orEmpty(comments))
}
