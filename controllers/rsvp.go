package controllers

import (
	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/services"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

type RsvpController struct {
	fx.In

	Guests *services.GuestService
}

// RegisterRsvpController wires the public, token-addressed RSVP
// endpoints. The token in the path is the capability; no session is
// required.
func RegisterRsvpController(r *utils.Router, config *config.Config, c RsvpController) {
	r.Get("/rsvp/:token", c.lookup)
	r.Post("/rsvp/:token", c.respond)
}

func (r *RsvpController) lookup(c *fiber.Ctx) error {
	guest, err := r.Guests.Lookup(c.Context(), c.Params("token"))
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(guest)
}

func (r *RsvpController) respond(c *fiber.Ctx) error {
	response := new(services.RsvpResponse)
	if err := c.BodyParser(response); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	if errors := utils.ValidateStruct(*response); len(errors) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errors)
	}

	guest, err := r.Guests.Respond(c.Context(), c.Params("token"), *response)
	if err != nil {
		return renderFailure(c, err)
	}

	return c.JSON(guest)
}
