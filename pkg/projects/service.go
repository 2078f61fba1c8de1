package projects

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/projecthub/pkg/access"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/notify"
	"github.com/platinummonkey/projecthub/pkg/observability"
)

// Actions name the operation in denial errors, logs and metrics
const (
	ActionViewProject    = "view project"
	ActionRenameProject  = "rename project"
	ActionDeleteProject  = "delete project"
	ActionAddMember      = "add member"
	ActionRemoveMember   = "remove member"
	ActionInvite         = "invite member"
	ActionUploadDocument = "upload document"
	ActionDeleteDocument = "delete document"
	ActionReadDocument   = "download document"
	ActionComment        = "create comment"
	ActionDeleteComment  = "delete comment"
)

// recomputeTimeout bounds a shared listing recompute
const recomputeTimeout = 30 * time.Second

// Dependencies are the collaborators of a Service. Cache, Sender, Objects,
// Logger and Metrics are optional.
type Dependencies struct {
	Store   Store
	Users   identity.Store
	Cache   ListCache
	Sender  notify.Sender
	Objects ObjectStore
	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
}

// ServiceConfig tunes a Service
type ServiceConfig struct {
	// CacheTTL bounds how long a visible-projects list is served from cache
	CacheTTL time.Duration
	// CacheBackend labels cache metrics
	CacheBackend string
	// InviteSubject is the subject of out-of-band invitations
	InviteSubject string
}

// DefaultServiceConfig returns the default service configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheTTL:      300 * time.Second,
		CacheBackend:  "memory",
		InviteSubject: "Project Invitation",
	}
}

// Service applies the access policy around the store and keeps the listing
// cache coherent with membership changes.
type Service struct {
	store   Store
	users   identity.Store
	cache   ListCache
	sender  notify.Sender
	objects ObjectStore
	logger  logrus.FieldLogger
	metrics *observability.Metrics
	config  ServiceConfig

	listGroup singleflight.Group

	// generations counts invalidations per user; a recompute that started
	// before an invalidation must not write its result back.
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewService creates a new Service
func NewService(deps Dependencies, config ServiceConfig) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("projects: store is required")
	}
	if deps.Users == nil {
		return nil, errors.New("projects: identity store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	defaults := DefaultServiceConfig()
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.CacheBackend == "" {
		config.CacheBackend = defaults.CacheBackend
	}
	if config.InviteSubject == "" {
		config.InviteSubject = defaults.InviteSubject
	}

	return &Service{
		store:   deps.Store,
		users:   deps.Users,
		cache:   deps.Cache,
		sender:  deps.Sender,
		objects: deps.Objects,
		logger:  deps.Logger.WithField("component", "projects"),
		metrics: deps.Metrics,
		config:  config,

		generations: make(map[int64]uint64),
	}, nil
}

// CreateProject creates a project owned by actor
func (s *Service) CreateProject(ctx context.Context, actor int64, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}

	project, err := s.store.CreateProject(ctx, actor, name)
	if err != nil {
		return nil, err
	}

	if err := s.invalidate(ctx, actor); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logrus.Fields{
		"project_id": project.ID,
		"owner_id":   actor,
	}).Info("Project created")

	return project, nil
}

// GetProject returns a project the actor can view
func (s *Service) GetProject(ctx context.Context, actor, projectID int64) (*Project, error) {
	if _, err := s.authorize(ctx, actor, projectID, ActionViewProject, access.ViewDecision); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, projectID)
}

// RenameProject changes a project's name. Owner only.
func (s *Service) RenameProject(ctx context.Context, actor, projectID int64, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}

	snap, err := s.authorize(ctx, actor, projectID, ActionRenameProject, access.ManageProjectDecision)
	if err != nil {
		return nil, err
	}

	if err := s.store.RenameProject(ctx, projectID, name); err != nil {
		return nil, err
	}

	// Cached lists embed the name
	if err := s.invalidate(ctx, snap.Members...); err != nil {
		return nil, err
	}

	return s.store.GetProject(ctx, projectID)
}

// DeleteProject removes a project with everything attached to it. Owner only.
func (s *Service) DeleteProject(ctx context.Context, actor, projectID int64) error {
	if _, err := s.authorize(ctx, actor, projectID, ActionDeleteProject, access.ManageProjectDecision); err != nil {
		return err
	}

	deleted, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}

	if err := s.invalidate(ctx, append(deleted.MemberIDs, actor)...); err != nil {
		return err
	}

	s.removeObjects(ctx, deleted.FileRefs)

	s.log(ctx).WithFields(logrus.Fields{
		"project_id": projectID,
		"members":    len(deleted.MemberIDs),
		"documents":  len(deleted.FileRefs),
	}).Info("Project deleted")

	return nil
}

// ListVisibleProjects returns the projects userID owns or belongs to,
// served from the cache when possible.
func (s *Service) ListVisibleProjects(ctx context.Context, userID int64) ([]*Project, error) {
	if s.cache == nil {
		return s.store.ListVisibleProjects(ctx, userID)
	}

	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		s.metrics.CacheHit(s.config.CacheBackend)
		return cached, nil
	}
	s.metrics.CacheMiss(s.config.CacheBackend)

	// Concurrent misses for one user share a single recompute. It is detached
	// from the caller so one canceled request does not fail the others.
	key := strconv.FormatInt(userID, 10)
	v, err, _ := s.listGroup.Do(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recomputeTimeout)
		defer cancel()

		gen := s.generation(userID)
		list, err := s.store.ListVisibleProjects(rctx, userID)
		if err != nil {
			return nil, err
		}
		if s.generation(userID) != gen {
			return list, nil
		}
		if err := s.cache.Put(rctx, userID, list, s.config.CacheTTL); err != nil {
			return nil, err
		}
		// An invalidation that landed while Put was in flight may have run
		// before the entry existed; drop it again.
		if s.generation(userID) != gen {
			if err := s.cache.Invalidate(rctx, userID); err != nil {
				return nil, fmt.Errorf("failed to invalidate project lists: %w", err)
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneList(v.([]*Project)), nil
}

// AddMember adds a registered user to a project by id. Owner only.
func (s *Service) AddMember(ctx context.Context, actor, projectID, userID int64) (*Member, error) {
	if _, err := s.authorize(ctx, actor, projectID, ActionAddMember, access.ManageMembersDecision); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, ErrMissingUser
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.attach(ctx, projectID, user)
}

// RemoveMember removes target from a project. Only the owner may remove,
// and never themselves.
func (s *Service) RemoveMember(ctx context.Context, actor, projectID, target int64) error {
	snap, err := s.store.GetSnapshot(ctx, projectID)
	if err != nil {
		return err
	}

	if d := access.CanRemoveMember(actor, target, snap); !d.Allowed() {
		return s.deny(ctx, ActionRemoveMember, projectID, d)
	}

	if err := s.store.RemoveMember(ctx, projectID, target); err != nil {
		return err
	}
	s.metrics.MembershipChanged("removed")

	if err := s.invalidate(ctx, target); err != nil {
		return err
	}

	s.log(ctx).WithFields(logrus.Fields{
		"project_id": projectID,
		"member_id":  target,
	}).Info("Member removed")

	return nil
}

// ListMembers lists a project's members for a viewer
func (s *Service) ListMembers(ctx context.Context, actor, projectID int64) (*MemberList, error) {
	snap, err := s.authorize(ctx, actor, projectID, ActionViewProject, access.ViewDecision)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		m.IsOwner = m.UserID == snap.OwnerID
	}

	return &MemberList{
		Members:       members,
		CurrentUserID: actor,
		OwnerID:       snap.OwnerID,
	}, nil
}

// attach inserts the member row and invalidates the new member's list
func (s *Service) attach(ctx context.Context, projectID int64, user *identity.User) (*Member, error) {
	member, err := s.store.AddMember(ctx, projectID, user.ID)
	if err != nil {
		return nil, err
	}
	member.Username = user.Username
	s.metrics.MembershipChanged("added")

	if err := s.invalidate(ctx, user.ID); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logrus.Fields{
		"project_id": projectID,
		"member_id":  user.ID,
	}).Info("Member added")

	return member, nil
}

type decisionFunc func(actor int64, snap access.Snapshot) access.Decision

// authorize loads the project snapshot and applies check. A missing project
// is ErrNotFound before any policy runs.
func (s *Service) authorize(ctx context.Context, actor, projectID int64, action string, check decisionFunc) (access.Snapshot, error) {
	snap, err := s.store.GetSnapshot(ctx, projectID)
	if err != nil {
		return snap, err
	}
	if d := check(actor, snap); !d.Allowed() {
		return snap, s.deny(ctx, action, projectID, d)
	}
	return snap, nil
}

func (s *Service) deny(ctx context.Context, action string, projectID int64, d access.Decision) error {
	s.metrics.AccessDenied(action, string(d.Reason()))
	s.log(ctx).WithFields(logrus.Fields{
		"action":     action,
		"project_id": projectID,
		"reason":     d.Reason(),
	}).Debug("Access denied")
	return &access.DeniedError{Reason: d.Reason(), Action: action}
}

// invalidate drops cached lists after a committed write. The in-flight
// recompute for each user is forgotten so later readers start a fresh one.
func (s *Service) invalidate(ctx context.Context, userIDs ...int64) error {
	if s.cache == nil || len(userIDs) == 0 {
		return nil
	}

	ids := dedupe(userIDs)
	s.genMu.Lock()
	for _, id := range ids {
		s.generations[id]++
		s.listGroup.Forget(strconv.FormatInt(id, 10))
	}
	s.genMu.Unlock()
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		return fmt.Errorf("failed to invalidate project lists: %w", err)
	}
	s.metrics.CacheInvalidated(s.config.CacheBackend, len(ids))
	return nil
}

func (s *Service) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

func (s *Service) log(ctx context.Context) logrus.FieldLogger {
	return observability.FromContext(ctx, s.logger)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// cloneList copies a shared singleflight result so callers cannot alias
// each other's projects.
func cloneList(in []*Project) []*Project {
	out := make([]*Project, len(in))
	for i, p := range in {
		cp := *p
		out[i] = &cp
	}
	return out
}
