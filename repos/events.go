package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gatherly/gatherly-server/models/events"
	"github.com/uptrace/bun"
)

type EventRepo struct {
	db *bun.DB
}

func NewEventRepo(db *bun.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (c *EventRepo) GetEvent(ctx context.Context, id int64) (*events.Event, error) {
	event := new(events.Event)

	err := c.db.NewSelect().Model(event).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return event, nil
}
