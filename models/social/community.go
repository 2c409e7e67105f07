package social

import (
	"time"

	"github.com/gatherly/gatherly-server/models/userdata"
	"github.com/uptrace/bun"
)

type Community struct {
	bun.BaseModel `bun:"social.communities"`

	Id          int64  `bun:",pk,autoincrement" json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	AuthorId    int64  `json:"author_id,omitempty"`
	// MemberCount is a cached count of active memberships, recomputed
	// inside every membership mutation.
	MemberCount int64           `json:"member_count"`
	Members     []userdata.User `bun:"m2m:social.memberships,join:Community=User" json:"members,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}
