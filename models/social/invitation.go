package social

import (
	"time"

	"github.com/uptrace/bun"
)

type CommunityInvitation struct {
	bun.BaseModel `bun:"social.community_invitations"`

	Id              int64     `bun:",pk,autoincrement" json:"id,omitempty"`
	CommunityId     int64     `json:"community_id,omitempty"`
	InvitedByUserId int64     `json:"invited_by_user_id,omitempty"`
	InvitedEmail    string    `json:"invited_email,omitempty"`
	Token           string    `bun:",unique" json:"-"`
	Message         string    `json:"message,omitempty"`
	Status          string    `json:"status,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	RespondedAt     time.Time `bun:",nullzero" json:"responded_at,omitempty"`
	AcceptedAt      time.Time `bun:",nullzero" json:"accepted_at,omitempty"`
	InvitedUserId   int64     `bun:",nullzero" json:"invited_user_id,omitempty"`
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
	InviteStatusDeclined = "declined"
)

// Expired reports whether the invitation's window has passed. Expiry is
// evaluated lazily at read time; the stored status only flips when a
// read touches the row.
func (i *CommunityInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
