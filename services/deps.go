// Package services implements the invitation and membership lifecycle
// engine: orchestration of community invitations, event guests, roster
// mutations and the authorization checks in front of them. Every
// operation returns failures as *status.Error values with stable codes.
package services

import (
	"context"

	"github.com/gatherly/gatherly-server/models/events"
	"github.com/gatherly/gatherly-server/models/social"
	"github.com/gatherly/gatherly-server/models/userdata"
	"github.com/gatherly/gatherly-server/providers/bluesky"
	"github.com/gatherly/gatherly-server/status"
	"github.com/rs/zerolog/log"
)

type CommunityStore interface {
	GetCommunity(ctx context.Context, id int64) (*social.Community, error)
}

type EventStore interface {
	GetEvent(ctx context.Context, id int64) (*events.Event, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id int64) (*userdata.User, error)
}

// Roster is the membership CRUD surface. Implementations enforce the
// last-admin invariant atomically against concurrent mutation.
type Roster interface {
	ListMembers(ctx context.Context, communityId int64) ([]social.Membership, error)
	GetMemberRole(ctx context.Context, communityId, userId int64) (string, error)
	IsMember(ctx context.Context, communityId, userId int64) (bool, error)
	AddMember(ctx context.Context, member social.Membership) (int64, error)
	UpdateMemberRole(ctx context.Context, communityId, memberId int64, role string) error
	RemoveMember(ctx context.Context, communityId, memberId int64) error
}

type InvitationStore interface {
	Create(ctx context.Context, invitation *social.CommunityInvitation) error
	FindByToken(ctx context.Context, token string) (*social.CommunityInvitation, error)
	FindPending(ctx context.Context, communityId int64, email string) (*social.CommunityInvitation, error)
	List(ctx context.Context, communityId int64) ([]social.CommunityInvitation, error)
	Delete(ctx context.Context, communityId, invitationId int64) (int64, error)
	MarkExpired(ctx context.Context, invitationId int64) error
	MarkAccepted(ctx context.Context, token string, userId int64) error
	MarkDeclined(ctx context.Context, token string) (int64, error)
	// AcceptPendingTx flips the row to accepted and inserts the
	// membership in one atomic unit, conditional on the row still being
	// pending. Returns (nil, nil) when another accept won the race.
	AcceptPendingTx(ctx context.Context, token string, member social.Membership) (*social.CommunityInvitation, error)
}

type GuestStore interface {
	Exists(ctx context.Context, eventId int64, email string) (bool, error)
	Create(ctx context.Context, guest *events.Guest) error
	List(ctx context.Context, eventId int64) ([]events.Guest, error)
	Find(ctx context.Context, eventId, guestId int64) (*events.Guest, error)
	FindByToken(ctx context.Context, token string) (*events.Guest, error)
	Delete(ctx context.Context, eventId, guestId int64) (int64, error)
	ReissueToken(ctx context.Context, eventId, guestId int64, token string) (int64, error)
	UpdateRsvpByToken(ctx context.Context, guest *events.Guest) (int64, error)
}

// Notifier delivers a templated message best-effort and reports success.
type Notifier interface {
	SendTemplate(to, templateName string, vars map[string]string) bool
}

type SocialGraph interface {
	GetCachedFollowers(ctx context.Context, actor string) ([]bluesky.Follower, error)
	CreatePost(ctx context.Context, actor, text string, mentions []string) error
}

// BulkResult aggregates one bulk follower-invite run. Errors never
// abort the loop; they are collected here.
type BulkResult struct {
	Invited int      `json:"invited"`
	Posted  int      `json:"posted"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// internalError logs the transient store cause and returns the generic
// internal failure the caller sees.
func internalError(err error) *status.Error {
	if e, ok := err.(*status.Error); ok {
		return e
	}
	log.Error().Err(err).Msg("Store failure")
	return status.Internal(err)
}
