package social

import (
	"time"

	"github.com/gatherly/gatherly-server/models/userdata"
	"github.com/uptrace/bun"
)

type Membership struct {
	bun.BaseModel `bun:"social.memberships"`

	Id          int64          `bun:",pk,autoincrement" json:"id,omitempty"`
	CommunityId int64          `json:"community_id,omitempty"`
	Community   *Community     `bun:"rel:belongs-to,join:community_id=id" json:"-"`
	UserId      int64          `json:"user_id,omitempty"`
	User        *userdata.User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Email       string         `json:"email,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Role        string         `json:"role,omitempty"`
	Status      string         `json:"status,omitempty"`
	JoinedAt    time.Time      `json:"joined_at,omitempty"`
}

const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

const (
	MemberStatusActive  = "active"
	MemberStatusRemoved = "removed"
)

func ValidRole(role string) bool {
	return role == RoleMember || role == RoleModerator || role == RoleAdmin
}
