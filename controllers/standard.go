package controllers

import (
	"github.com/gatherly/gatherly-server/status"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/gofiber/fiber/v2"
)

var (
	standardRoute utils.JwtMiddlewareConfig
)

func init() {
	standardRoute = utils.JwtMiddlewareConfig{
		ReadFrom: "header",
		Subject:  "access",
		Scopes:   []string{"basic"},
	}
}

// renderFailure maps a service failure to its HTTP response. Unknown
// errors are treated as internal.
func renderFailure(c *fiber.Ctx, err error) error {
	if e, ok := err.(*status.Error); ok {
		return c.Status(status.HTTPStatus(e.Code)).JSON(e)
	}
	return utils.StandardInternalError(c, err)
}
