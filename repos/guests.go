package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gatherly/gatherly-server/models/events"
	"github.com/uptrace/bun"
)

type GuestRepo struct {
	db *bun.DB
}

func NewGuestRepo(db *bun.DB) *GuestRepo {
	return &GuestRepo{db: db}
}

// Exists reports whether a non-declined guest row exists for
// (event, email). Declined rows free the slot for a fresh invitation.
func (c *GuestRepo) Exists(ctx context.Context, eventId int64, email string) (bool, error) {
	return c.db.NewSelect().Model((*events.Guest)(nil)).
		Where("event_id = ?", eventId).
		Where("lower(email) = lower(?)", email).
		Where("status != ?", events.GuestStatusDeclined).
		Exists(ctx)
}

func (c *GuestRepo) Create(ctx context.Context, guest *events.Guest) error {
	_, err := c.db.NewInsert().Model(guest).Exec(ctx)
	return err
}

func (c *GuestRepo) List(ctx context.Context, eventId int64) ([]events.Guest, error) {
	guests := make([]events.Guest, 0)

	err := c.db.NewSelect().Model(&guests).
		Where("event_id = ?", eventId).
		Order("rsvp_date DESC NULLS LAST", "id DESC").
		Scan(ctx)
	return guests, err
}

func (c *GuestRepo) Find(ctx context.Context, eventId, guestId int64) (*events.Guest, error) {
	guest := new(events.Guest)

	err := c.db.NewSelect().Model(guest).
		Where("id = ?", guestId).
		Where("event_id = ?", eventId).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return guest, nil
}

func (c *GuestRepo) FindByToken(ctx context.Context, token string) (*events.Guest, error) {
	guest := new(events.Guest)

	err := c.db.NewSelect().Model(guest).Where("rsvp_token = ?", token).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return guest, nil
}

func (c *GuestRepo) Delete(ctx context.Context, eventId, guestId int64) (int64, error) {
	res, err := c.db.NewDelete().Model((*events.Guest)(nil)).
		Where("id = ?", guestId).
		Where("event_id = ?", eventId).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

// ReissueToken replaces the guest's RSVP token. The unique index on
// rsvp_token means the old value stops resolving the moment this
// commits. Status preconditions are the caller's concern.
func (c *GuestRepo) ReissueToken(ctx context.Context, eventId, guestId int64, token string) (int64, error) {
	res, err := c.db.NewUpdate().Model((*events.Guest)(nil)).
		Set("rsvp_token = ?", token).
		Where("id = ?", guestId).
		Where("event_id = ?", eventId).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

// UpdateRsvpByToken writes a guest's response conditional on the row
// still resolving by token and not being declined, so a response racing
// a resend or a decline changes exactly zero or one row.
func (c *GuestRepo) UpdateRsvpByToken(ctx context.Context, guest *events.Guest) (int64, error) {
	res, err := c.db.NewUpdate().Model(guest).
		Column("status", "name", "notes", "dietary_restrictions", "plus_one", "plus_one_name", "rsvp_date").
		Where("rsvp_token = ?", guest.RsvpToken).
		Where("status != ?", events.GuestStatusDeclined).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}
