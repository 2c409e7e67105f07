package services

import (
	"context"
	"testing"
	"time"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/models/events"
	"github.com/gatherly/gatherly-server/models/userdata"
	"github.com/gatherly/gatherly-server/status"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestFixture struct {
	service  *GuestService
	guests   *fakeGuestStore
	notifier *fakeNotifier
	social   *fakeSocial
}

func newGuestFixture(t *testing.T) *guestFixture {
	t.Helper()

	guests := newFakeGuestStore()
	notifier := &fakeNotifier{}
	socialGraph := &fakeSocial{}

	cfg := &config.Config{
		PublicUrl:    "https://gatherly.test",
		InviteConfig: config.InviteConfig{ExpiryDays: 7, BatchLimit: 3},
	}

	eventStore := &fakeEventStore{events: map[int64]*events.Event{
		5: {Id: 5, Title: "Launch Party", AuthorId: 10},
	}}
	users := &fakeUserStore{users: map[int64]*userdata.User{
		10: {Id: 10, Name: "Henry Host", Handle: "henry.example.com"},
	}}

	service := NewGuestService(cfg, eventStore, guests, users,
		NewAuthGate(newFakeRoster()), notifier, socialGraph)
	service.Now = func() time.Time { return testClock }

	return &guestFixture{service: service, guests: guests, notifier: notifier, social: socialGraph}
}

func hostPrincipal() utils.Principal {
	return utils.Principal{UserId: 10, Email: "host@example.com", Name: "Henry Host"}
}

func TestInviteGuest(t *testing.T) {
	f := newGuestFixture(t)

	guest, err := f.service.Send(context.Background(), hostPrincipal(), 5, "Pat@Example.COM", "Pat", "vip")
	require.NoError(t, err)

	assert.Equal(t, "pat@example.com", guest.Email)
	assert.Equal(t, events.GuestStatusPending, guest.Status)
	assert.Equal(t, events.SourceDirect, guest.InvitationSource)
	assert.Len(t, guest.RsvpToken, 64)

	require.Len(t, f.notifier.sent, 1)
	mail := f.notifier.sent[0]
	assert.Equal(t, "event-invitation", mail.template)
	assert.Equal(t, "Launch Party", mail.vars["{{event}}"])
	assert.Equal(t, "https://gatherly.test/rsvp/"+guest.RsvpToken, mail.vars["{{rsvp_url}}"])
}

func TestInviteGuestDuplicate(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	require.NoError(t, err)

	_, err = f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	assert.Equal(t, status.CodeConflict, status.CodeOf(err))
}

func TestInviteGuestDeclinedFreesSlot(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusDeclined})
	require.NoError(t, err)

	_, err = f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	assert.NoError(t, err)
}

func TestInviteGuestRequiresHost(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, utils.Principal{UserId: 77, Email: "other@example.com"}, 5, "pat@example.com", "", "")
	assert.Equal(t, status.CodeForbidden, status.CodeOf(err))

	_, err = f.service.Send(ctx, utils.Principal{UserId: 77, Email: "ops@example.com", SiteAdmin: true}, 5, "pat@example.com", "", "")
	assert.NoError(t, err)

	_, err = f.service.Send(ctx, hostPrincipal(), 404, "pat@example.com", "", "")
	assert.Equal(t, status.CodeNotFound, status.CodeOf(err))
}

func TestResendRotatesToken(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	require.NoError(t, err)
	oldToken := guest.RsvpToken

	resent, err := f.service.Resend(ctx, hostPrincipal(), 5, guest.Id)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, resent.RsvpToken)
	assert.Len(t, resent.RsvpToken, 64)

	// The previous token stops resolving.
	_, err = f.service.Lookup(ctx, oldToken)
	assert.Equal(t, status.CodeNotFound, status.CodeOf(err))

	found, err := f.service.Lookup(ctx, resent.RsvpToken)
	require.NoError(t, err)
	assert.Equal(t, guest.Id, found.Id)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "event-reminder", f.notifier.sent[1].template)
}

func TestResendAfterFinalAnswer(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusConfirmed})
	require.NoError(t, err)

	_, err = f.service.Resend(ctx, hostPrincipal(), 5, guest.Id)
	assert.Equal(t, status.CodeConflict, status.CodeOf(err))
}

func TestResendAllowedWhileMaybe(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "Pat", "")
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusMaybe})
	require.NoError(t, err)

	resent, err := f.service.Resend(ctx, hostPrincipal(), 5, guest.Id)
	require.NoError(t, err)
	assert.Equal(t, events.GuestStatusMaybe, resent.Status)
}

func TestRespond(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "", "")
	require.NoError(t, err)

	updated, err := f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{
		Status:              events.GuestStatusConfirmed,
		Name:                "Pat Smith",
		Notes:               "arriving late",
		DietaryRestrictions: "vegetarian",
		PlusOne:             true,
		PlusOneName:         "Sam",
	})
	require.NoError(t, err)

	assert.Equal(t, events.GuestStatusConfirmed, updated.Status)
	assert.Equal(t, "Pat Smith", updated.Name)
	assert.Equal(t, "arriving late", updated.Notes)
	assert.Equal(t, "vegetarian", updated.DietaryRestrictions)
	assert.True(t, updated.PlusOne)
	assert.Equal(t, "Sam", updated.PlusOneName)
	assert.Equal(t, testClock, updated.RsvpDate)

	// A guest may change their answer until they decline.
	changed, err := f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusMaybe})
	require.NoError(t, err)
	assert.Equal(t, events.GuestStatusMaybe, changed.Status)
}

func TestRespondDeclinedIsTerminal(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "", "")
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusDeclined})
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, guest.RsvpToken, RsvpResponse{Status: events.GuestStatusConfirmed})
	assert.Equal(t, status.CodeGone, status.CodeOf(err))
}

func TestRespondInvalidStatus(t *testing.T) {
	f := newGuestFixture(t)

	_, err := f.service.Respond(context.Background(), "sometoken", RsvpResponse{Status: "attending"})
	assert.Equal(t, status.CodeValidation, status.CodeOf(err))
}

func TestRespondUnknownToken(t *testing.T) {
	f := newGuestFixture(t)

	_, err := f.service.Respond(context.Background(), "deadbeef", RsvpResponse{Status: events.GuestStatusConfirmed})
	assert.Equal(t, status.CodeNotFound, status.CodeOf(err))
}

func TestDeleteGuest(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	guest, err := f.service.Send(ctx, hostPrincipal(), 5, "pat@example.com", "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, hostPrincipal(), 5, guest.Id))

	err = f.service.Delete(ctx, hostPrincipal(), 5, guest.Id)
	assert.Equal(t, status.CodeNotFound, status.CodeOf(err))
}

func TestGuestInviteFollowers(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	result, err := f.service.InviteFollowers(ctx, hostPrincipal(), 5, []string{"did:plc:alice", "did:plc:bob"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Invited)
	assert.Equal(t, 2, result.Posted)

	guests, err := f.guests.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, guests, 2)
	for _, guest := range guests {
		assert.Equal(t, events.SourceBluesky, guest.InvitationSource)
		assert.NotEmpty(t, guest.TemporaryGuestId)
		assert.Contains(t, guest.Email, "@bsky.invalid")
	}

	// The same batch again only skips.
	result, err = f.service.InviteFollowers(ctx, hostPrincipal(), 5, []string{"did:plc:alice", "did:plc:bob"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Invited)
	assert.Equal(t, 2, result.Skipped)
}
