package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gatherly/gatherly-server/models/social"
	"github.com/uptrace/bun"
)

type CommunityRepo struct {
	db *bun.DB
}

func NewCommunityRepo(db *bun.DB) *CommunityRepo {
	return &CommunityRepo{db: db}
}

func (c *CommunityRepo) GetCommunity(ctx context.Context, id int64) (*social.Community, error) {
	community := new(social.Community)

	err := c.db.NewSelect().Model(community).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return community, nil
}
