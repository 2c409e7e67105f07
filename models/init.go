package models

import (
	"github.com/gatherly/gatherly-server/models/social"
	"github.com/uptrace/bun"
)

func InitModelRegistrations(db *bun.DB) {
	db.RegisterModel((*social.Membership)(nil))
}
