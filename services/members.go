package services

import (
	"context"

	"github.com/gatherly/gatherly-server/models/social"
	"github.com/gatherly/gatherly-server/status"
	"github.com/gatherly/gatherly-server/utils"
)

// MemberService exposes the roster mutations behind the admin gate.
// The last-admin invariant itself lives in the store transaction; this
// layer only translates and gates.
type MemberService struct {
	communities CommunityStore
	roster      Roster
	gate        *AuthGate
}

func NewMemberService(communities CommunityStore, roster Roster, gate *AuthGate) *MemberService {
	return &MemberService{communities: communities, roster: roster, gate: gate}
}

func (s *MemberService) List(ctx context.Context, principal utils.Principal, communityId int64) ([]social.Membership, error) {
	community, err := s.communities.GetCommunity(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	if community == nil {
		return nil, status.NotFound("community not found")
	}

	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal,
		social.RoleAdmin, social.RoleModerator, social.RoleMember)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, status.Forbidden("only members can view the roster")
	}

	members, err := s.roster.ListMembers(ctx, communityId)
	if err != nil {
		return nil, internalError(err)
	}
	return members, nil
}

func (s *MemberService) UpdateRole(ctx context.Context, principal utils.Principal, communityId, memberId int64, role string) error {
	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return status.Forbidden("only admins can change member roles")
	}

	if err := s.roster.UpdateMemberRole(ctx, communityId, memberId, role); err != nil {
		return internalError(err)
	}
	return nil
}

func (s *MemberService) Remove(ctx context.Context, principal utils.Principal, communityId, memberId int64) error {
	ok, err := s.gate.HasCommunityRole(ctx, communityId, principal, social.RoleAdmin)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return status.Forbidden("only admins can remove members")
	}

	if err := s.roster.RemoveMember(ctx, communityId, memberId); err != nil {
		return internalError(err)
	}
	return nil
}
