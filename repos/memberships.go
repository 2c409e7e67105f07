package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gatherly/gatherly-server/models/social"
	"github.com/gatherly/gatherly-server/status"
	"github.com/uptrace/bun"
)

type MembershipRepo struct {
	db *bun.DB
}

func NewMembershipRepo(db *bun.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (c *MembershipRepo) ListMembers(ctx context.Context, communityId int64) ([]social.Membership, error) {
	members := make([]social.Membership, 0)

	err := c.db.NewSelect().Model(&members).
		Where("community_id = ?", communityId).
		Where("status = ?", social.MemberStatusActive).
		Order("display_name ASC", "email ASC").
		Scan(ctx)
	return members, err
}

// GetMemberRole returns the active role for (community, user), or the
// empty string when the user is not an active member.
func (c *MembershipRepo) GetMemberRole(ctx context.Context, communityId, userId int64) (string, error) {
	member := new(social.Membership)

	err := c.db.NewSelect().Model(member).Column("role").
		Where("community_id = ?", communityId).
		Where("user_id = ?", userId).
		Where("status = ?", social.MemberStatusActive).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return member.Role, nil
}

func (c *MembershipRepo) IsMember(ctx context.Context, communityId, userId int64) (bool, error) {
	return c.db.NewSelect().Model((*social.Membership)(nil)).
		Where("community_id = ?", communityId).
		Where("user_id = ?", userId).
		Where("status = ?", social.MemberStatusActive).
		Exists(ctx)
}

// AddMember upserts an active membership row for (community, user). An
// inactive or existing row is reactivated with the new role, email and
// display name. The insert and the member-count recompute run in one
// transaction.
func (c *MembershipRepo) AddMember(ctx context.Context, member social.Membership) (int64, error) {
	var id int64
	err := c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		id, err = c.addMemberTx(ctx, member, tx)
		if err != nil {
			return err
		}

		return refreshMemberCount(ctx, tx, member.CommunityId)
	})
	return id, err
}

func (c *MembershipRepo) addMemberTx(ctx context.Context, member social.Membership, db bun.IDB) (int64, error) {
	member.Status = social.MemberStatusActive
	if member.Role == "" {
		member.Role = social.RoleMember
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}

	_, err := db.NewInsert().Model(&member).
		On("CONFLICT (community_id, user_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Set("email = EXCLUDED.email").
		Set("display_name = EXCLUDED.display_name").
		Set("status = EXCLUDED.status").
		Returning("id").
		Exec(ctx)
	return member.Id, err
}

// UpdateMemberRole changes a member's role. The admin count check and
// the mutation run in one transaction holding a lock on the community
// row, so two concurrent demotions of the last two admins cannot both
// pass the check.
func (c *MembershipRepo) UpdateMemberRole(ctx context.Context, communityId, memberId int64, role string) error {
	if !social.ValidRole(role) {
		return status.InvalidRole("invalid role: " + role)
	}

	return c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCommunity(ctx, tx, communityId); err != nil {
			return err
		}

		member, err := c.getMemberTx(ctx, tx, communityId, memberId)
		if err != nil {
			return err
		}

		if member.Role == social.RoleAdmin && member.Status == social.MemberStatusActive && role != social.RoleAdmin {
			if err := c.guardLastAdmin(ctx, tx, communityId); err != nil {
				return err
			}
		}

		_, err = tx.NewUpdate().Model((*social.Membership)(nil)).
			Set("role = ?", role).
			Where("id = ?", memberId).
			Exec(ctx)
		return err
	})
}

// RemoveMember hard-deletes a membership row under the same last-admin
// guard as UpdateMemberRole and recomputes the cached member count.
func (c *MembershipRepo) RemoveMember(ctx context.Context, communityId, memberId int64) error {
	return c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCommunity(ctx, tx, communityId); err != nil {
			return err
		}

		member, err := c.getMemberTx(ctx, tx, communityId, memberId)
		if err != nil {
			return err
		}

		if member.Role == social.RoleAdmin && member.Status == social.MemberStatusActive {
			if err := c.guardLastAdmin(ctx, tx, communityId); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().Model((*social.Membership)(nil)).
			Where("id = ?", memberId).
			Exec(ctx); err != nil {
			return err
		}

		return refreshMemberCount(ctx, tx, communityId)
	})
}

func (c *MembershipRepo) getMemberTx(ctx context.Context, tx bun.IDB, communityId, memberId int64) (*social.Membership, error) {
	member := new(social.Membership)

	err := tx.NewSelect().Model(member).
		Where("id = ?", memberId).
		Where("community_id = ?", communityId).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.NotFound("member not found")
	}
	if err != nil {
		return nil, err
	}

	return member, nil
}

func (c *MembershipRepo) guardLastAdmin(ctx context.Context, tx bun.IDB, communityId int64) error {
	admins, err := tx.NewSelect().Model((*social.Membership)(nil)).
		Where("community_id = ?", communityId).
		Where("role = ?", social.RoleAdmin).
		Where("status = ?", social.MemberStatusActive).
		Count(ctx)
	if err != nil {
		return err
	}

	if admins <= 1 {
		return status.LastAdmin("community must retain at least one active admin")
	}
	return nil
}

// lockCommunity takes a FOR UPDATE lock on the community row,
// serializing membership mutations for that community.
func lockCommunity(ctx context.Context, tx bun.IDB, communityId int64) error {
	community := new(social.Community)

	err := tx.NewSelect().Model(community).Column("id").
		Where("id = ?", communityId).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return status.NotFound("community not found")
	}
	return err
}

func refreshMemberCount(ctx context.Context, tx bun.IDB, communityId int64) error {
	_, err := tx.NewUpdate().Model((*social.Community)(nil)).
		Set("member_count = (SELECT count(*) FROM social.memberships m WHERE m.community_id = ? AND m.status = ?)",
			communityId, social.MemberStatusActive).
		Where("id = ?", communityId).
		Exec(ctx)
	return err
}
