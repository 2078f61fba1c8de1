package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/contextkeys"
	"github.com/platinummonkey/projecthub/pkg/httputil"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

// Handlers serves the project, membership, document and comment endpoints
type Handlers struct {
	svc    *projects.Service
	logger logrus.FieldLogger
}

// NewHandlers creates a new Handlers
func NewHandlers(svc *projects.Service, logger logrus.FieldLogger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects", h.CreateProject).Methods("POST")
	router.HandleFunc("/projects", h.ListProjects).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", h.GetProject).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", h.RenameProject).Methods("PUT")
	router.HandleFunc("/projects/{id:[0-9]+}", h.DeleteProject).Methods("DELETE")

	// Members
	router.HandleFunc("/projects/{id:[0-9]+}/members", h.ListMembers).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}/members", h.AddMember).Methods("POST")
	router.HandleFunc("/projects/{id:[0-9]+}/members/invite", h.InviteMember).Methods("POST")
	router.HandleFunc("/projects/{id:[0-9]+}/members/{user_id:[0-9]+}", h.RemoveMember).Methods("DELETE")

	// Documents
	router.HandleFunc("/projects/{id:[0-9]+}/documents", h.ListDocuments).Methods("GET")
	router.HandleFunc("/documents", h.UploadDocument).Methods("POST")
	router.HandleFunc("/documents/{id:[0-9]+}/download", h.DownloadDocument).Methods("GET")
	router.HandleFunc("/documents/{id:[0-9]+}", h.DeleteDocument).Methods("DELETE")

	// Comments
	router.HandleFunc("/comments", h.CreateComment).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}", h.DeleteComment).Methods("DELETE")
	router.HandleFunc("/comments/by-project/{project_id:[0-9]+}", h.ListProjectComments).Methods("GET")
	router.HandleFunc("/comments/by-user/{user_id:[0-9]+}", h.ListUserComments).Methods("GET")
}

// actor returns the authenticated user id, writing a 401 when there is none
func actor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := contextkeys.GetActor(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication credentials were not provided.")
		return 0, false
	}
	return id, true
}

// CreateProject creates a project owned by the caller
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}

	var req projects.CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.svc.CreateProject(r.Context(), userID, req.Name)
	if err != nil {
		h.writeError(w, r, "create project", err)
		return
	}
	_ = httputil.WriteCreated(w, project)
}

// ListProjects lists the projects the caller owns or belongs to
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListVisibleProjects(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "list projects", err)
		return
	}
	_ = httputil.WriteSuccess(w, orEmpty(list))
}

// GetProject returns one project
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	project, err := h.svc.GetProject(r.Context(), userID, projectID)
	if err != nil {
		h.writeError(w, r, projects.ActionViewProject, err)
		return
	}
	_ = httputil.WriteSuccess(w, project)
}

// RenameProject changes a project's name
func (h *Handlers) RenameProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req projects.CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.svc.RenameProject(r.Context(), userID, projectID, req.Name)
	if err != nil {
		h.writeError(w, r, projects.ActionRenameProject, err)
		return
	}
	_ = httputil.WriteSuccess(w, project)
}

// DeleteProject deletes a project and everything attached to it
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteProject(r.Context(), userID, projectID); err != nil {
		h.writeError(w, r, projects.ActionDeleteProject, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListMembers lists a project's members
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	list, err := h.svc.ListMembers(r.Context(), userID, projectID)
	if err != nil {
		h.writeError(w, r, projects.ActionViewProject, err)
		return
	}
	list.Members = orEmpty(list.Members)
	_ = httputil.WriteSuccess(w, list)
}

// AddMember adds a registered user by id
func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req projects.AddMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	member, err := h.svc.AddMember(r.Context(), userID, projectID, req.UserID)
	if err != nil {
		h.writeError(w, r, projects.ActionAddMember, err)
		return
	}
	_ = httputil.WriteCreated(w, member)
}

// RemoveMember removes a member from a project
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	target, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(r.Context(), userID, projectID, target); err != nil {
		h.writeError(w, r, projects.ActionRemoveMember, err)
		return
	}
	httputil.WriteNoContent(w)
}

// InviteMember adds a registered email as a member or mails an invitation
func (h *Handlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req projects.InviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.svc.Invite(r.Context(), userID, projectID, req.Email)
	if err != nil {
		h.writeError(w, r, projects.ActionInvite, err)
		return
	}
	httputil.WriteDetail(w, http.StatusOK, result.Detail())
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
