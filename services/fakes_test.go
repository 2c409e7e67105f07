package services

import (
	"context"
	"sync"

	"github.com/gatherly/gatherly-server/models/events"
	"github.com/gatherly/gatherly-server/models/social"
	"github.com/gatherly/gatherly-server/models/userdata"
	"github.com/gatherly/gatherly-server/providers/bluesky"
	"github.com/gatherly/gatherly-server/status"
)

type fakeCommunityStore struct {
	communities map[int64]*social.Community
}

func (f *fakeCommunityStore) GetCommunity(ctx context.Context, id int64) (*social.Community, error) {
	return f.communities[id], nil
}

type fakeEventStore struct {
	events map[int64]*events.Event
}

func (f *fakeEventStore) GetEvent(ctx context.Context, id int64) (*events.Event, error) {
	return f.events[id], nil
}

type fakeUserStore struct {
	users map[int64]*userdata.User
}

func (f *fakeUserStore) GetUser(ctx context.Context, id int64) (*userdata.User, error) {
	return f.users[id], nil
}

type rosterKey struct {
	communityId int64
	userId      int64
}

// fakeRoster mirrors the store's semantics, including the last-admin
// invariant: demotions and removals count active admins under the same
// mutex that serializes mutations, the way the real repo counts inside
// a transaction holding the community row lock.
type fakeRoster struct {
	mu      sync.Mutex
	nextId  int64
	members map[rosterKey]*social.Membership
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{members: make(map[rosterKey]*social.Membership)}
}

func (f *fakeRoster) ListMembers(ctx context.Context, communityId int64) ([]social.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []social.Membership{}
	for key, member := range f.members {
		if key.communityId == communityId && member.Status == social.MemberStatusActive {
			out = append(out, *member)
		}
	}
	return out, nil
}

func (f *fakeRoster) GetMemberRole(ctx context.Context, communityId, userId int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if member, ok := f.members[rosterKey{communityId, userId}]; ok && member.Status == social.MemberStatusActive {
		return member.Role, nil
	}
	return "", nil
}

func (f *fakeRoster) IsMember(ctx context.Context, communityId, userId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	member, ok := f.members[rosterKey{communityId, userId}]
	return ok && member.Status == social.MemberStatusActive, nil
}

func (f *fakeRoster) AddMember(ctx context.Context, member social.Membership) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.addLocked(member), nil
}

func (f *fakeRoster) addLocked(member social.Membership) int64 {
	f.nextId++
	member.Id = f.nextId
	if member.Status == "" {
		member.Status = social.MemberStatusActive
	}
	f.members[rosterKey{member.CommunityId, member.UserId}] = &member
	return member.Id
}

func (f *fakeRoster) findLocked(communityId, memberId int64) *social.Membership {
	for _, member := range f.members {
		if member.CommunityId == communityId && member.Id == memberId {
			return member
		}
	}
	return nil
}

func (f *fakeRoster) guardLastAdminLocked(communityId int64) error {
	admins := 0
	for key, member := range f.members {
		if key.communityId == communityId && member.Role == social.RoleAdmin && member.Status == social.MemberStatusActive {
			admins++
		}
	}
	if admins <= 1 {
		return status.LastAdmin("community must retain at least one active admin")
	}
	return nil
}

func (f *fakeRoster) UpdateMemberRole(ctx context.Context, communityId, memberId int64, role string) error {
	if !social.ValidRole(role) {
		return status.InvalidRole("invalid role: " + role)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	member := f.findLocked(communityId, memberId)
	if member == nil {
		return status.NotFound("member not found")
	}
	if member.Role == social.RoleAdmin && member.Status == social.MemberStatusActive && role != social.RoleAdmin {
		if err := f.guardLastAdminLocked(communityId); err != nil {
			return err
		}
	}

	member.Role = role
	return nil
}

func (f *fakeRoster) RemoveMember(ctx context.Context, communityId, memberId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	member := f.findLocked(communityId, memberId)
	if member == nil {
		return status.NotFound("member not found")
	}
	if member.Role == social.RoleAdmin && member.Status == social.MemberStatusActive {
		if err := f.guardLastAdminLocked(communityId); err != nil {
			return err
		}
	}

	delete(f.members, rosterKey{communityId, member.UserId})
	return nil
}

type fakeInvitationStore struct {
	mu          sync.Mutex
	nextId      int64
	invitations map[int64]*social.CommunityInvitation

	roster *fakeRoster
}

func newFakeInvitationStore(roster *fakeRoster) *fakeInvitationStore {
	return &fakeInvitationStore{invitations: make(map[int64]*social.CommunityInvitation), roster: roster}
}

func (f *fakeInvitationStore) Create(ctx context.Context, invitation *social.CommunityInvitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextId++
	invitation.Id = f.nextId
	clone := *invitation
	f.invitations[invitation.Id] = &clone
	return nil
}

func (f *fakeInvitationStore) FindByToken(ctx context.Context, token string) (*social.CommunityInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, invitation := range f.invitations {
		if invitation.Token == token {
			clone := *invitation
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeInvitationStore) FindPending(ctx context.Context, communityId int64, email string) (*social.CommunityInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, invitation := range f.invitations {
		if invitation.CommunityId == communityId && invitation.InvitedEmail == email && invitation.Status == social.InviteStatusPending {
			clone := *invitation
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeInvitationStore) List(ctx context.Context, communityId int64) ([]social.CommunityInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []social.CommunityInvitation{}
	for _, invitation := range f.invitations {
		if invitation.CommunityId == communityId {
			out = append(out, *invitation)
		}
	}
	return out, nil
}

func (f *fakeInvitationStore) Delete(ctx context.Context, communityId, invitationId int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if invitation, ok := f.invitations[invitationId]; ok && invitation.CommunityId == communityId {
		delete(f.invitations, invitationId)
		return 1, nil
	}
	return 0, nil
}

func (f *fakeInvitationStore) MarkExpired(ctx context.Context, invitationId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if invitation, ok := f.invitations[invitationId]; ok && invitation.Status == social.InviteStatusPending {
		invitation.Status = social.InviteStatusExpired
	}
	return nil
}

func (f *fakeInvitationStore) MarkAccepted(ctx context.Context, token string, userId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, invitation := range f.invitations {
		if invitation.Token == token && invitation.Status == social.InviteStatusPending {
			invitation.Status = social.InviteStatusAccepted
			invitation.InvitedUserId = userId
		}
	}
	return nil
}

func (f *fakeInvitationStore) MarkDeclined(ctx context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, invitation := range f.invitations {
		if invitation.Token == token && invitation.Status == social.InviteStatusPending {
			invitation.Status = social.InviteStatusDeclined
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeInvitationStore) AcceptPendingTx(ctx context.Context, token string, member social.Membership) (*social.CommunityInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, invitation := range f.invitations {
		if invitation.Token == token && invitation.Status == social.InviteStatusPending {
			invitation.Status = social.InviteStatusAccepted
			invitation.InvitedUserId = member.UserId

			f.roster.mu.Lock()
			f.roster.addLocked(member)
			f.roster.mu.Unlock()

			clone := *invitation
			return &clone, nil
		}
	}
	return nil, nil
}

type fakeGuestStore struct {
	mu     sync.Mutex
	nextId int64
	guests map[int64]*events.Guest
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{guests: make(map[int64]*events.Guest)}
}

func (f *fakeGuestStore) Exists(ctx context.Context, eventId int64, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, guest := range f.guests {
		if guest.EventId == eventId && guest.Email == email && guest.Status != events.GuestStatusDeclined {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGuestStore) Create(ctx context.Context, guest *events.Guest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextId++
	guest.Id = f.nextId
	clone := *guest
	f.guests[guest.Id] = &clone
	return nil
}

func (f *fakeGuestStore) List(ctx context.Context, eventId int64) ([]events.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []events.Guest{}
	for _, guest := range f.guests {
		if guest.EventId == eventId {
			out = append(out, *guest)
		}
	}
	return out, nil
}

func (f *fakeGuestStore) Find(ctx context.Context, eventId, guestId int64) (*events.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if guest, ok := f.guests[guestId]; ok && guest.EventId == eventId {
		clone := *guest
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeGuestStore) FindByToken(ctx context.Context, token string) (*events.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, guest := range f.guests {
		if guest.RsvpToken == token {
			clone := *guest
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeGuestStore) Delete(ctx context.Context, eventId, guestId int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if guest, ok := f.guests[guestId]; ok && guest.EventId == eventId {
		delete(f.guests, guestId)
		return 1, nil
	}
	return 0, nil
}

func (f *fakeGuestStore) ReissueToken(ctx context.Context, eventId, guestId int64, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if guest, ok := f.guests[guestId]; ok && guest.EventId == eventId {
		guest.RsvpToken = token
		return 1, nil
	}
	return 0, nil
}

func (f *fakeGuestStore) UpdateRsvpByToken(ctx context.Context, updated *events.Guest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, guest := range f.guests {
		if guest.RsvpToken == updated.RsvpToken && guest.Status != events.GuestStatusDeclined {
			clone := *updated
			clone.Id = guest.Id
			f.guests[guest.Id] = &clone
			return 1, nil
		}
	}
	return 0, nil
}

type sentMail struct {
	to       string
	template string
	vars     map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeNotifier) SendTemplate(to, templateName string, vars map[string]string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return false
	}
	f.sent = append(f.sent, sentMail{to: to, template: templateName, vars: vars})
	return true
}

type fakeSocial struct {
	mu        sync.Mutex
	followers []bluesky.Follower
	posts     []string
	postErr   error
}

func (f *fakeSocial) GetCachedFollowers(ctx context.Context, actor string) ([]bluesky.Follower, error) {
	return f.followers, nil
}

func (f *fakeSocial) CreatePost(ctx context.Context, actor, text string, mentions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, text)
	return nil
}
