package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/models/events"
	"github.com/gatherly/gatherly-server/providers/bluesky"
	"github.com/gatherly/gatherly-server/status"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/rs/zerolog/log"
)

// GuestService manages event guest records and their RSVP tokens. All
// guest-token-driven actions resolve by token; row ids are only used by
// host-facing management operations.
type GuestService struct {
	events   EventStore
	guests   GuestStore
	users    UserStore
	gate     *AuthGate
	notifier Notifier
	social   SocialGraph

	batchLimit int
	publicUrl  string

	Now func() time.Time
}

func NewGuestService(config *config.Config, eventStore EventStore, guests GuestStore, users UserStore,
	gate *AuthGate, notifier Notifier, social SocialGraph) *GuestService {
	return &GuestService{
		events:     eventStore,
		guests:     guests,
		users:      users,
		gate:       gate,
		notifier:   notifier,
		social:     social,
		batchLimit: config.InviteConfig.BatchLimit,
		publicUrl:  config.PublicUrl,
		Now:        time.Now,
	}
}

// Send invites an email address to an event. At most one non-declined
// guest row may exist per (event, email).
func (s *GuestService) Send(ctx context.Context, principal utils.Principal, eventId int64, email, name, notes string) (*events.Guest, error) {
	event, err := s.requireHost(ctx, principal, eventId)
	if err != nil {
		return nil, err
	}

	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return nil, status.Validation("invalid email address")
	}

	exists, err := s.guests.Exists(ctx, eventId, email)
	if err != nil {
		return nil, internalError(err)
	}
	if exists {
		return nil, status.Conflict("this email has already been invited")
	}

	guest := &events.Guest{
		EventId:          eventId,
		Email:            email,
		Name:             name,
		Status:           events.GuestStatusPending,
		RsvpToken:        utils.GenerateSecureToken(32),
		Notes:            notes,
		InvitationSource: events.SourceDirect,
		CreatedAt:        s.Now(),
	}
	if err := s.guests.Create(ctx, guest); err != nil {
		return nil, internalError(err)
	}

	s.notify(event.Title, guest, "event-invitation")

	return guest, nil
}

func (s *GuestService) List(ctx context.Context, principal utils.Principal, eventId int64) ([]events.Guest, error) {
	if _, err := s.requireHost(ctx, principal, eventId); err != nil {
		return nil, err
	}

	guests, err := s.guests.List(ctx, eventId)
	if err != nil {
		return nil, internalError(err)
	}
	return guests, nil
}

func (s *GuestService) Delete(ctx context.Context, principal utils.Principal, eventId, guestId int64) error {
	if _, err := s.requireHost(ctx, principal, eventId); err != nil {
		return err
	}

	rows, err := s.guests.Delete(ctx, eventId, guestId)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return status.NotFound("guest not found")
	}
	return nil
}

// Resend rotates the guest's RSVP token and re-sends the invitation.
// Only permitted while the guest has not given a final answer; the
// previous token stops resolving once the rotation commits.
func (s *GuestService) Resend(ctx context.Context, principal utils.Principal, eventId, guestId int64) (*events.Guest, error) {
	event, err := s.requireHost(ctx, principal, eventId)
	if err != nil {
		return nil, err
	}

	guest, err := s.guests.Find(ctx, eventId, guestId)
	if err != nil {
		return nil, internalError(err)
	}
	if guest == nil {
		return nil, status.NotFound("guest not found")
	}
	if !guest.CanResend() {
		return nil, status.Conflict("guest already responded; remove before re-inviting")
	}

	token := utils.GenerateSecureToken(32)
	rows, err := s.guests.ReissueToken(ctx, eventId, guestId, token)
	if err != nil {
		return nil, internalError(err)
	}
	if rows == 0 {
		return nil, status.NotFound("guest not found")
	}
	guest.RsvpToken = token

	s.notify(event.Title, guest, "event-reminder")

	return guest, nil
}

// Lookup resolves the public RSVP view of a guest by token.
func (s *GuestService) Lookup(ctx context.Context, token string) (*events.Guest, error) {
	guest, err := s.guests.FindByToken(ctx, token)
	if err != nil {
		return nil, internalError(err)
	}
	if guest == nil {
		return nil, status.NotFound("invitation not found")
	}
	return guest, nil
}

type RsvpResponse struct {
	Status              string `json:"status" validate:"required"`
	Name                string `json:"name"`
	Notes               string `json:"notes"`
	DietaryRestrictions string `json:"dietary_restrictions"`
	PlusOne             bool   `json:"plus_one"`
	PlusOneName         string `json:"plus_one_name"`
}

// Respond records a guest's answer through the RSVP link. Declined is
// terminal; pending and maybe rows may keep changing their answer.
func (s *GuestService) Respond(ctx context.Context, token string, response RsvpResponse) (*events.Guest, error) {
	if !events.ValidRsvpStatus(response.Status) {
		return nil, status.Validation("invalid RSVP status: " + response.Status)
	}

	guest, err := s.guests.FindByToken(ctx, token)
	if err != nil {
		return nil, internalError(err)
	}
	if guest == nil {
		return nil, status.NotFound("invitation not found")
	}
	if guest.Status == events.GuestStatusDeclined {
		return nil, status.Gone("invitation is no longer active")
	}

	if response.Name != "" {
		guest.Name = response.Name
	}
	guest.Status = response.Status
	guest.Notes = response.Notes
	guest.DietaryRestrictions = response.DietaryRestrictions
	guest.PlusOne = response.PlusOne
	guest.PlusOneName = response.PlusOneName
	guest.RsvpDate = s.Now()

	rows, err := s.guests.UpdateRsvpByToken(ctx, guest)
	if err != nil {
		return nil, internalError(err)
	}
	if rows == 0 {
		return nil, status.Gone("invitation is no longer active")
	}

	return guest, nil
}

// InviteFollowers creates guest rows for a batch of external ids with a
// best-effort post per id. Passing no ids invites the actor's cached
// follower list.
func (s *GuestService) InviteFollowers(ctx context.Context, principal utils.Principal, eventId int64, externalIds []string) (*BulkResult, error) {
	event, err := s.requireHost(ctx, principal, eventId)
	if err != nil {
		return nil, err
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

		exists, err := s.guests.Exists(ctx, eventId, pseudoEmail)
		if err != nil {
			result.Errors = append(result.Errors, externalId+": store failure")
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		guest := &events.Guest{
			EventId:          eventId,
			Email:            pseudoEmail,
			Status:           events.GuestStatusPending,
			RsvpToken:        utils.GenerateSecureToken(32),
			InvitationSource: events.SourceBluesky,
			TemporaryGuestId: externalId,
			CreatedAt:        s.Now(),
		}
		if err := s.guests.Create(ctx, guest); err != nil {
			result.Errors = append(result.Errors, externalId+": store failure")
			continue
		}
		result.Invited++

		text := "You are invited to " + event.Title
		if err := s.social.CreatePost(ctx, actor, text, []string{externalId}); err != nil {
			log.Warn().Err(err).Str("external_id", externalId).Msg("Invitation post failed")
			result.Errors = append(result.Errors, externalId+": "+err.Error())
			continue
		}
		result.Posted++
	}

	return result, nil
}

func (s *GuestService) requireHost(ctx context.Context, principal utils.Principal, eventId int64) (*events.Event, error) {
	event, err := s.events.GetEvent(ctx, eventId)
	if err != nil {
		return nil, internalError(err)
	}
	if event == nil {
		return nil, status.NotFound("event not found")
	}
	if !s.gate.OwnsOrOverrides(event.AuthorId, principal) {
		return nil, status.Forbidden("only the event host can manage guests")
	}
	return event, nil
}

func (s *GuestService) actorHandle(ctx context.Context, principal utils.Principal) string {
	if user, err := s.users.GetUser(ctx, principal.UserId); err == nil && user != nil && user.Handle != "" {
		return user.Handle
	}
	return principal.Email
}

func (s *GuestService) notify(eventTitle string, guest *events.Guest, template string) {
	vars := map[string]string{
		"{{event}}":    eventTitle,
		"{{name}}":     guest.Name,
		"{{rsvp_url}}": s.publicUrl + "/rsvp/" + guest.RsvpToken,
	}

	if !s.notifier.SendTemplate(guest.Email, template, vars) {
		log.Warn().Str("email", guest.Email).Int64("event", guest.EventId).Msg("Guest email not delivered")
	}
}
