package userdata

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"userdata.users"`

	Id        int64     `bun:",pk,autoincrement" json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Handle    string    `json:"handle,omitempty"`
	SiteAdmin bool      `json:"site_admin,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
