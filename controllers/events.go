package controllers

import (
	"strconv"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/services"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

type EventController struct {
	fx.In

	Guests *services.GuestService
}

func RegisterEventController(r *utils.Router, config *config.Config, c EventController) {
	guests := r.Group("/events/:id/guests", utils.Protected(standardRoute))

	guests.Post("/", c.sendInvitation)
	guests.Get("/", c.listGuests)
	guests.Delete("/:guestId", c.deleteGuest)
	guests.Post("/:guestId/resend", c.resendInvitation)
	guests.Post("/followers", c.inviteFollowers)
}

type sendGuestRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (r *EventController) sendInvitation(c *fiber.Ctx) error {
	eventId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	req := new(sendGuestRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	guest, err := r.Guests.Send(c.Context(), utils.GetPrincipal(c), eventId, req.Email, req.Name, req.Notes)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(guest)
}

func (r *EventController) listGuests(c *fiber.Ctx) error {
	eventId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	guests, err := r.Guests.List(c.Context(), utils.GetPrincipal(c), eventId)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(guests)
}

func (r *EventController) deleteGuest(c *fiber.Ctx) error {
	eventId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}
	guestId, err := strconv.ParseInt(c.Params("guestId"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if err := r.Guests.Delete(c.Context(), utils.GetPrincipal(c), eventId, guestId); err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Guest removed",
	})
}

func (r *EventController) resendInvitation(c *fiber.Ctx) error {
	eventId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}
	guestId, err := strconv.ParseInt(c.Params("guestId"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	guest, err := r.Guests.Resend(c.Context(), utils.GetPrincipal(c), eventId, guestId)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(guest)
}

func (r *EventController) inviteFollowers(c *fiber.Ctx) error {
	eventId, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	req := new(inviteFollowersRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	result, err := r.Guests.InviteFollowers(c.Context(), utils.GetPrincipal(c), eventId, req.ExternalIds)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(result)
}
