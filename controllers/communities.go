package controllers

import (
	"strconv"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/services"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

type CommunityController struct {
	fx.In

	Invitations *services.InvitationService
	Members     *services.MemberService
}

func RegisterCommunityController(r *utils.Router, config *config.Config, c CommunityController) {
	communities := r.Group("/communities", utils.Protected(standardRoute))

	communities.Post("/:id/invitations", c.sendInvitation)
	communities.Get("/:id/invitations", c.listInvitations)
	communities.Delete("/:id/invitations/:invitationId", c.deleteInvitation)
	communities.Post("/:id/invitations/followers", c.inviteFollowers)

	communities.Get("/:id/members", c.listMembers)
	communities.Put("/:id/members/:memberId/role", c.updateMemberRole)
	communities.Delete("/:id/members/:memberId", c.removeMember)

	// Acceptance is reached from the email link with the token as a
	// query parameter; the viewer must be signed in.
	r.Get("/invitations/accept", utils.Protected(standardRoute), c.acceptInvitation)
	r.Post("/invitations/decline", c.declineInvitation)
}

type sendInvitationRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (r *CommunityController) sendInvitation(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	req := new(sendInvitationRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	invitation, err := r.Invitations.Send(c.Context(), utils.GetPrincipal(c), communityId, req.Email, req.Message)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(invitation)
}

func (r *CommunityController) listInvitations(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	invitations, err := r.Invitations.List(c.Context(), utils.GetPrincipal(c), communityId)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(invitations)
}

func (r *CommunityController) deleteInvitation(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}
	invitationId, err := strconv.ParseInt(c.Params("invitationId"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if err := r.Invitations.Delete(c.Context(), utils.GetPrincipal(c), communityId, invitationId); err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Invitation cancelled",
	})
}

type inviteFollowersRequest struct {
	ExternalIds []string `json:"external_ids"`
}

func (r *CommunityController) inviteFollowers(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	req := new(inviteFollowersRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	result, err := r.Invitations.InviteFollowers(c.Context(), utils.GetPrincipal(c), communityId, req.ExternalIds)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(result)
}

func (r *CommunityController) acceptInvitation(c *fiber.Ctx) error {
	invitation, err := r.Invitations.Accept(c.Context(), utils.GetPrincipal(c), c.Query("token"))
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(invitation)
}

func (r *CommunityController) declineInvitation(c *fiber.Ctx) error {
	if err := r.Invitations.Decline(c.Context(), c.Query("token")); err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Invitation declined",
	})
}

func (r *CommunityController) listMembers(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	members, err := r.Members.List(c.Context(), utils.GetPrincipal(c), communityId)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(members)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (r *CommunityController) updateMemberRole(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}
	memberId, err := strconv.ParseInt(c.Params("memberId"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	req := new(updateRoleRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if err := r.Members.UpdateRole(c.Context(), utils.GetPrincipal(c), communityId, memberId, req.Role); err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated",
	})
}

func (r *CommunityController) removeMember(c *fiber.Ctx) error {
	communityId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}
	memberId, err := strconv.ParseInt(c.Params("memberId"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if err := r.Members.Remove(c.Context(), utils.GetPrincipal(c), communityId, memberId); err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Member removed",
	})
}
