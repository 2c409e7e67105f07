package events

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"events.events"`

	Id        int64     `bun:",pk,autoincrement" json:"id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Slug      string    `json:"slug,omitempty"`
	AuthorId  int64     `json:"author_id,omitempty"`
	Location  string    `json:"location,omitempty"`
	StartsAt  time.Time `json:"starts_at,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
