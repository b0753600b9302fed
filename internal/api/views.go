package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/dal"
)

// fetchFailed renders a failed read. Missing sessions go home, missing
// records are 404 and everything else 500.
func fetchFailed(c *fiber.Ctx, what string, err error) error {
	switch {
	case errors.Is(err, dal.ErrUnauthenticated):
		return c.Redirect("/", fiber.StatusSeeOther)
	case errors.Is(err, dal.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch " + what + "."})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch " + what + "."})
}

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}
