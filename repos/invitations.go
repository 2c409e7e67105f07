package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gatherly/gatherly-server/models/social"
	"github.com/uptrace/bun"
)

type InvitationRepo struct {
	db      *bun.DB
	members *MembershipRepo
}

func NewInvitationRepo(db *bun.DB, members *MembershipRepo) *InvitationRepo {
	return &InvitationRepo{db: db, members: members}
}

func (c *InvitationRepo) Create(ctx context.Context, invitation *social.CommunityInvitation) error {
	_, err := c.db.NewInsert().Model(invitation).Exec(ctx)
	return err
}

func (c *InvitationRepo) FindByToken(ctx context.Context, token string) (*social.CommunityInvitation, error) {
	invitation := new(social.CommunityInvitation)

	err := c.db.NewSelect().Model(invitation).Where("token = ?", token).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return invitation, nil
}

// FindPending returns the pending invitation for (community, email),
// if any. At most one such row exists at a time.
func (c *InvitationRepo) FindPending(ctx context.Context, communityId int64, email string) (*social.CommunityInvitation, error) {
	invitation := new(social.CommunityInvitation)

	err := c.db.NewSelect().Model(invitation).
		Where("community_id = ?", communityId).
		Where("lower(invited_email) = lower(?)", email).
		Where("status = ?", social.InviteStatusPending).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return invitation, nil
}

func (c *InvitationRepo) List(ctx context.Context, communityId int64) ([]social.CommunityInvitation, error) {
	invitations := make([]social.CommunityInvitation, 0)

	err := c.db.NewSelect().Model(&invitations).
		Where("community_id = ?", communityId).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	return invitations, err
}

func (c *InvitationRepo) Delete(ctx context.Context, communityId, invitationId int64) (int64, error) {
	res, err := c.db.NewDelete().Model((*social.CommunityInvitation)(nil)).
		Where("id = ?", invitationId).
		Where("community_id = ?", communityId).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

// MarkExpired flips a still-pending invitation to expired. Expiry is
// lazy; this runs when a read finds the window has passed.
func (c *InvitationRepo) MarkExpired(ctx context.Context, invitationId int64) error {
	_, err := c.db.NewUpdate().Model((*social.CommunityInvitation)(nil)).
		Set("status = ?", social.InviteStatusExpired).
		Set("responded_at = ?", time.Now()).
		Where("id = ?", invitationId).
		Where("status = ?", social.InviteStatusPending).
		Exec(ctx)
	return err
}

// MarkAccepted closes out a pending invitation without touching the
// roster. Used when the viewer already holds an active membership.
func (c *InvitationRepo) MarkAccepted(ctx context.Context, token string, userId int64) error {
	now := time.Now()
	_, err := c.db.NewUpdate().Model((*social.CommunityInvitation)(nil)).
		Set("status = ?", social.InviteStatusAccepted).
		Set("responded_at = ?", now).
		Set("accepted_at = ?", now).
		Set("invited_user_id = ?", userId).
		Where("token = ?", token).
		Where("status = ?", social.InviteStatusPending).
		Exec(ctx)
	return err
}

func (c *InvitationRepo) MarkDeclined(ctx context.Context, token string) (int64, error) {
	res, err := c.db.NewUpdate().Model((*social.CommunityInvitation)(nil)).
		Set("status = ?", social.InviteStatusDeclined).
		Set("responded_at = ?", time.Now()).
		Where("token = ?", token).
		Where("status = ?", social.InviteStatusPending).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

// AcceptPendingTx performs the accept transition and the membership
// upsert as one transaction. The status flip is conditional on the row
// still being pending, so of N concurrent accepts exactly one returns
// the invitation; the rest get (nil, nil) and never insert a membership.
func (c *InvitationRepo) AcceptPendingTx(ctx context.Context, token string, member social.Membership) (*social.CommunityInvitation, error) {
	invitation := new(social.CommunityInvitation)
	accepted := false

	err := c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		res, err := tx.NewUpdate().Model(invitation).
			Set("status = ?", social.InviteStatusAccepted).
			Set("responded_at = ?", now).
			Set("accepted_at = ?", now).
			Set("invited_user_id = ?", member.UserId).
			Where("token = ?", token).
			Where("status = ?", social.InviteStatusPending).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return err
		}

		if rows, _ := res.RowsAffected(); rows == 0 {
			return nil
		}
		accepted = true

		if _, err := c.members.addMemberTx(ctx, member, tx); err != nil {
			return err
		}

		return refreshMemberCount(ctx, tx, member.CommunityId)
	})
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, nil
	}

	return invitation, nil
}
