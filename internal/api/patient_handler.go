package api

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/service"
)

type PatientHandler struct {
	results  service.ResultService
	validate *validator.Validate
}

func NewPatientHandler(results service.ResultService) *PatientHandler {
	return &PatientHandler{results: results, validate: newValidator()}
}

type DeviceTokenForm struct {
	DeviceToken string `json:"device_token" form:"device_token" validate:"required"`
}

func (h *PatientHandler) Dashboard(c *fiber.Ctx) error {
	scope := scopeFrom(c)

	user, err := scope.CurrentUser()
	if err != nil {
		return fetchFailed(c, "user", err)
	}
	results, err := scope.ResultsForPatient(user.ID)
	if err != nil {
		return fetchFailed(c, "results", err)
	}

	return c.JSON(fiber.Map{"user": user, "results": results})
}

// Result shows one of the caller's own results. Results of other patients
// are reported as missing.
func (h *PatientHandler) Result(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch result."})
	}

	scope := scopeFrom(c)
	claims, err := scope.Session()
	if err != nil {
		return fetchFailed(c, "result", err)
	}

	result, err := scope.Result(id)
	if err != nil {
		return fetchFailed(c, "result", err)
	}
	if result.UserID != claims.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch result."})
	}

	return c.JSON(fiber.Map{"result": result})
}

func (h *PatientHandler) RegisterDeviceToken(c *fiber.Ctx) error {
	var form DeviceTokenForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	if err := h.results.RegisterDeviceToken(c.UserContext(), claimsFrom(c).UserID, form.DeviceToken); err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to register device token", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Device token registered.")
}
