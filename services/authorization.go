package services

import (
	"context"

	"github.com/gatherly/gatherly-server/utils"
)

// AuthGate answers the two read-only permission questions every
// mutation is gated on. A site-admin principal overrides both checks.
type AuthGate struct {
	roster Roster
}

func NewAuthGate(roster Roster) *AuthGate {
	return &AuthGate{roster: roster}
}

func (g *AuthGate) HasCommunityRole(ctx context.Context, communityId int64, principal utils.Principal, roles ...string) (bool, error) {
	if principal.SiteAdmin {
		return true, nil
	}
	if principal.UserId == 0 {
		return false, nil
	}

	role, err := g.roster.GetMemberRole(ctx, communityId, principal.UserId)
	if err != nil {
		return false, err
	}
	if role == "" {
		return false, nil
	}

	for _, allowed := range roles {
		if role == allowed {
			return true, nil
		}
	}
	return false, nil
}

func (g *AuthGate) OwnsOrOverrides(authorId int64, principal utils.Principal) bool {
	if principal.SiteAdmin {
		return true
	}
	return principal.UserId != 0 && principal.UserId == authorId
}
