package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/models/social"
	"github.com/gatherly/gatherly-server/providers/bluesky"
	"github.com/gatherly/gatherly-server/status"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/rs/zerolog/log"
)

// InvitationService drives the community invitation state machine:
// pending -> accepted | declined | expired, never backward.
type InvitationService struct {
	communities CommunityStore
	invitations InvitationStore
	roster      Roster
	users       UserStore
	gate        *AuthGate
	notifier    Notifier
	social      SocialGraph

	expiry     time.Duration
	batchLimit int
	publicUrl  string

	// Now is the clock used for expiry checks; tests override it.
	Now func() time.Time
}

func NewInvitationService(config *config.Config, communities CommunityStore, invitations InvitationStore,
	roster Roster, users UserStore, gate *AuthGate, notifier Notifier, social SocialGraph) *InvitationService {
	return &InvitationService{
		communities: communities,
		invitations: invitations,
		roster:      roster,
		users:       users,
		gate:        gate,
		notifier:    notifier,
		social:      social,
		expiry:      time.Duration(config.InviteConfig.ExpiryDays) * 24 * time.Hour,
		batchLimit:  config.InviteConfig.BatchLimit,
		publicUrl:   config.PublicUrl,
		Now:         time.Now,
	}
}

// Send creates a pending invitation for an email address and dispatches
// the notification best-effort. A still-valid pending invitation for
// the same (community, email) is a conflict; an expired one is lazily
// flipped and replaced.
func (s *InvitationService) Send(ctx context.Context, principal utils.Principal, communityId int64, email, message string) (*social.CommunityInvitation, error) {
	community, err := s.communities.GetCommunity(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	if community == nil {
		return nil, status.NotFound("community not found")
	}

	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin, social.RoleModerator)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, status.Forbidden("only admins and moderators can send invitations")
	}

	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return nil, status.Validation("invalid email address")
	}

	existing, err := s.invitations.FindPending(ctx, communityId, email)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		if !existing.Expired(s.Now()) {
			return nil, status.Conflict("a pending invitation already exists for this email")
		}
		if err := s.invitations.MarkExpired(ctx, existing.Id); err != nil {
			return nil, internalError(err)
		}
	}

	invitation := &social.CommunityInvitation{
		CommunityId:     communityId,
		InvitedByUserId: principal.UserId,
		InvitedEmail:    email,
		Token:           utils.GenerateSecureToken(32),
		Message:         message,
		Status:          social.InviteStatusPending,
		ExpiresAt:       s.Now().Add(s.expiry),
		CreatedAt:       s.Now(),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, internalError(err)
	}

	s.notify(community, invitation)

	return invitation, nil
}

func (s *InvitationService) List(ctx context.Context, principal utils.Principal, communityId int64) ([]social.CommunityInvitation, error) {
	community, err := s.communities.GetCommunity(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	if community == nil {
		return nil, status.NotFound("community not found")
	}

	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin, social.RoleModerator)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, status.Forbidden("only admins and moderators can view invitations")
	}

	invitations, err := s.invitations.List(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	return invitations, nil
}

func (s *InvitationService) Delete(ctx context.Context, principal utils.Principal, communityId, invitationId int64) error {
	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin, social.RoleModerator)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return status.Forbidden("only admins and moderators can cancel invitations")
	}

	rows, err := s.invitations.Delete(ctx, communityId, invitationId)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return status.Conflict("invitation no longer exists")
	}
	return nil
}

// Accept turns a pending invitation into an active membership. The
// status flip and the roster insert are one atomic unit in the store,
// so concurrent accepts of the same token produce exactly one
// membership.
func (s *InvitationService) Accept(ctx context.Context, principal utils.Principal, token string) (*social.CommunityInvitation, error) {
	invitation, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		return nil, internalError(err)
	}
	if invitation == nil {
		return nil, status.NotFound("invitation not found")
	}

	switch invitation.Status {
	case social.InviteStatusAccepted:
		return nil, status.Conflict("invitation already accepted")
	case social.InviteStatusDeclined:
		return nil, status.NotFound("invitation not found")
	case social.InviteStatusExpired:
		return nil, status.Gone("invitation expired")
	}

	if invitation.Expired(s.Now()) {
		if err := s.invitations.MarkExpired(ctx, invitation.Id); err != nil {
			return nil, internalError(err)
		}
		return nil, status.Gone("invitation expired")
	}

	if principal.UserId == 0 {
		return nil, status.Unauthorized("sign in to accept this invitation")
	}
	if utils.NormalizeEmail(principal.Email) != utils.NormalizeEmail(invitation.InvitedEmail) {
		return nil, status.Forbidden("invitation was issued to a different email address")
	}

	isMember, err := s.roster.IsMember(ctx, invitation.CommunityId, principal.UserId)
	if err != nil {
		return nil, internalError(err)
	}
	if isMember {
		// Close out the row so the token cannot linger as pending.
		if err := s.invitations.MarkAccepted(ctx, token, principal.UserId); err != nil {
			return nil, internalError(err)
		}
		return nil, status.Conflict("already a member of this community")
	}

	accepted, err := s.invitations.AcceptPendingTx(ctx, token, social.Membership{
		CommunityId: invitation.CommunityId,
		UserId:      principal.UserId,
		Email:       utils.NormalizeEmail(principal.Email),
		DisplayName: s.displayName(ctx, principal),
		Role:        social.RoleMember,
	})
	if err != nil {
		return nil, internalError(err)
	}
	if accepted == nil {
		return nil, status.Conflict("invitation already accepted")
	}

	return accepted, nil
}

// Decline closes a pending invitation from the email link. The token is
// the capability; no authentication is required.
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	invitation, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		return internalError(err)
	}
	if invitation == nil {
		return status.NotFound("invitation not found")
	}
	if invitation.Status != social.InviteStatusPending {
		return status.Conflict("invitation already responded to")
	}

	if invitation.Expired(s.Now()) {
		if err := s.invitations.MarkExpired(ctx, invitation.Id); err != nil {
			return internalError(err)
		}
		return status.Gone("invitation expired")
	}

	rows, err := s.invitations.MarkDeclined(ctx, token)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return status.Conflict("invitation already responded to")
	}
	return nil
}

// InviteFollowers creates pending invitations for a batch of external
// ids, deduplicating through namespaced pseudo-emails and posting a
// best-effort notification per id. The batch is capped; ids beyond the
// cap are reported, not processed.
func (s *InvitationService) InviteFollowers(ctx context.Context, principal utils.Principal, communityId int64, externalIds []string) (*BulkResult, error) {
	community, err := s.communities.GetCommunity(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	if community == nil {
		return nil, status.NotFound("community not found")
	}

	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin, social.RoleModerator)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, status.Forbidden("only admins and moderators can send invitations")
	}

	actor := s.actorHandle(ctx, principal)

	result := &BulkResult{Errors: make([]string, 0)}

	ids := externalIds
	if len(externalIds) == 0 {
		followers, err := s.social.GetCachedFollowers(ctx, actor)
		if err != nil {
			return nil, status.Newf(status.CodeValidation, "could not load followers: %s", err.Error())
		}
		ids = make([]string, len(followers))
		for i, follower := range followers {
			ids[i] = follower.Did
		}
	}

	if len(ids) > s.batchLimit {
		result.Errors = append(result.Errors, fmt.Sprintf("batch capped at %d; %d ids not processed", s.batchLimit, len(ids)-s.batchLimit))
		ids = ids[:s.batchLimit]
	}

	for _, externalId := range ids {
		pseudoEmail := bluesky.PseudoEmail(externalId)

		existing, err := s.invitations.FindPending(ctx, communityId, pseudoEmail)
		if err != nil {
			result.Errors = append(result.Errors, externalId+": store failure")
			continue
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		invitation := &social.CommunityInvitation{
			CommunityId:     communityId,
			InvitedByUserId: principal.UserId,
			InvitedEmail:    pseudoEmail,
			Token:           utils.GenerateSecureToken(32),
			Status:          social.InviteStatusPending,
			ExpiresAt:       s.Now().Add(s.expiry),
			CreatedAt:       s.Now(),
		}
		if err := s.invitations.Create(ctx, invitation); err != nil {
			result.Errors = append(result.Errors, externalId+": store failure")
			continue
		}
		result.Invited++

		text := "You are invited to join " + community.Name
		if err := s.social.CreatePost(ctx, actor, text, []string{externalId}); err != nil {
			log.Warn().Err(err).Str("external_id", externalId).Msg("Invitation post failed")
			result.Errors = append(result.Errors, externalId+": "+err.Error())
			continue
		}
		result.Posted++
	}

	return result, nil
}

func (s *InvitationService) displayName(ctx context.Context, principal utils.Principal) string {
	if user, err := s.users.GetUser(ctx, principal.UserId); err == nil && user != nil && user.Name != "" {
		return user.Name
	}
	if principal.Name != "" {
		return principal.Name
	}
	return principal.Email
}

func (s *InvitationService) actorHandle(ctx context.Context, principal utils.Principal) string {
	if user, err := s.users.GetUser(ctx, principal.UserId); err == nil && user != nil && user.Handle != "" {
		return user.Handle
	}
	return principal.Email
}

func (s *InvitationService) notify(community *social.Community, invitation *social.CommunityInvitation) {
	vars := map[string]string{
		"{{community}}":  community.Name,
		"{{message}}":    invitation.Message,
		"{{accept_url}}": s.publicUrl + "/invitations/accept?token=" + invitation.Token,
	}

	if !s.notifier.SendTemplate(invitation.InvitedEmail, "community-invitation", vars) {
		log.Warn().Str("email", invitation.InvitedEmail).Int64("community", community.Id).Msg("Invitation email not delivered")
	}
}
