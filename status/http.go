package status

import "github.com/gofiber/fiber/v2"

// HTTPStatus maps a failure code to the HTTP status the presentation
// layer responds with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeForbidden, CodeLastAdminViolation:
		return fiber.StatusForbidden
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeValidation, CodeInvalidRole:
		return fiber.StatusBadRequest
	case CodeConflict:
		return fiber.StatusConflict
	case CodeGone:
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}
