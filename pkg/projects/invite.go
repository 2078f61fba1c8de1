package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/access"
	"github.com/platinummonkey/projecthub/pkg/identity"
)

// Invite grants a project to an email address. A registered address becomes
// a member immediately; any other address is sent an invitation and no
// member row is created.
func (s *Service) Invite(ctx context.Context, actor, projectID int64, email string) (*InviteResult, error) {
	if _, err := s.authorize(ctx, actor, projectID, ActionInvite, access.ManageMembersDecision); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.inviteExisting(ctx, projectID, email, user)
	case errors.Is(err, identity.ErrUserNotFound):
		return s.inviteByMail(ctx, projectID, email)
	default:
		return nil, err
	}
}

func (s *Service) inviteExisting(ctx context.Context, projectID int64, email string, user *identity.User) (*InviteResult, error) {
	member, err := s.attach(ctx, projectID, user)
	if errors.Is(err, ErrAlreadyMember) {
		s.metrics.Invitation("already_member")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.Invitation(string(InviteAdded))
	return &InviteResult{Outcome: InviteAdded, Email: email, Member: member}, nil
}

func (s *Service) inviteByMail(ctx context.Context, projectID int64, email string) (*InviteResult, error) {
	if s.sender == nil {
		return nil, fmt.Errorf("%w: no sender configured", ErrNotificationDeliveryFailed)
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("You have been invited to join the project %s. Click the link to join.", project.Name)
	if err := s.sender.Send(ctx, email, s.config.InviteSubject, body); err != nil {
		s.metrics.Invitation("delivery_failed")
		s.log(ctx).WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
		}).Warn("Invitation delivery failed")
		return nil, fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, err)
	}

	s.metrics.Invitation(string(InviteSent))
	s.log(ctx).WithField("project_id", projectID).Info("Invitation sent")

	return &InviteResult{Outcome: InviteSent, Email: email}, nil
}
