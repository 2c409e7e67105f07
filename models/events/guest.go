package events

import (
	"time"

	"github.com/uptrace/bun"
)

type Guest struct {
	bun.BaseModel `bun:"events.guests"`

	Id      int64  `bun:",pk,autoincrement" json:"id,omitempty"`
	EventId int64  `json:"event_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Status  string `json:"status,omitempty"`
	// RsvpToken is rotated on every resend; the previous token stops
	// resolving once the row is updated.
	RsvpToken           string    `bun:",unique" json:"-"`
	Notes               string    `json:"notes,omitempty"`
	DietaryRestrictions string    `json:"dietary_restrictions,omitempty"`
	PlusOne             bool      `json:"plus_one,omitempty"`
	PlusOneName         string    `json:"plus_one_name,omitempty"`
	InvitationSource    string    `json:"invitation_source,omitempty"`
	RsvpDate            time.Time `bun:",nullzero" json:"rsvp_date,omitempty"`
	TemporaryGuestId    string    `json:"temporary_guest_id,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
}

const (
	GuestStatusPending   = "pending"
	GuestStatusMaybe     = "maybe"
	GuestStatusConfirmed = "confirmed"
	GuestStatusDeclined  = "declined"
)

const (
	SourceDirect  = "direct"
	SourceBluesky = "bluesky"
)

// CanResend reports whether a new RSVP token may be issued. Once a guest
// has responded with confirmed or declined the host must remove the row
// before re-inviting.
func (g *Guest) CanResend() bool {
	return g.Status == GuestStatusPending || g.Status == GuestStatusMaybe
}

// ValidRsvpStatus reports whether s is a status a guest may move to when
// responding through the RSVP link.
func ValidRsvpStatus(s string) bool {
	return s == GuestStatusMaybe || s == GuestStatusConfirmed || s == GuestStatusDeclined
}
