package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/report"
	"patient-portal/internal/service"
)

type DoctorHandler struct {
	results  service.ResultService
	reports  report.Renderer
	validate *validator.Validate
}

func NewDoctorHandler(results service.ResultService, reports report.Renderer) *DoctorHandler {
	return &DoctorHandler{results: results, reports: reports, validate: newValidator()}
}

type AddPatientForm struct {
	PatientID int64 `json:"patient_id" form:"patient_id" validate:"required,gt=0"`
}

type UpdateResultForm struct {
	Diagnosis string `json:"diagnosis" form:"diagnosis" validate:"diagnosis"`
	Status    string `json:"status" form:"status" validate:"required,status"`
}

func (h *DoctorHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := scopeFrom(c).Stats()
	if err != nil {
		return fetchFailed(c, "stats", err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

func (h *DoctorHandler) Results(c *fiber.Ctx) error {
	scope := scopeFrom(c)

	results, err := scope.AllResults()
	if err != nil {
		return fetchFailed(c, "results", err)
	}
	patients, err := scope.Patients()
	if err != nil {
		return fetchFailed(c, "patients", err)
	}

	return c.JSON(fiber.Map{"results": results, "patients": patients})
}

func (h *DoctorHandler) Result(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch result."})
	}

	result, err := scopeFrom(c).Result(id)
	if err != nil {
		return fetchFailed(c, "result", err)
	}
	return c.JSON(fiber.Map{"result": result})
}

// Report renders the result as a printable PDF.
func (h *DoctorHandler) Report(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch result."})
	}

	result, err := scopeFrom(c).Result(id)
	if err != nil {
		return fetchFailed(c, "result", err)
	}

	pdf, err := h.reports.PDF(c.UserContext(), result)
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to render report", slog.Int64("result_id", id), slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report."})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="result-`+strconv.FormatInt(id, 10)+`.pdf"`)
	return c.Send(pdf)
}

// AddPatient uploads an ultrasound image for a patient and records the
// prediction made for it.
func (h *DoctorHandler) AddPatient(c *fiber.Ctx) error {
	var form AddPatientForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	image, err := readUpload(c, "ultrasound_image")
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to read upload", slog.String("error", err.Error()))
		return serverError(c)
	}
	if image == nil {
		return respond(c, fiber.StatusOK, FormState{
			Message: msgInvalidForm,
			Fields:  map[string]string{"ultrasound_image": "Please upload an ultrasound image."},
		})
	}

	_, err = h.results.AddPatient(c.UserContext(), claimsFrom(c).UserID, form.PatientID, *image)
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrNotPatient):
		return respond(c, fiber.StatusOK, FormState{
			Message: "Selected user is not a patient.",
			Fields:  map[string]string{"patient_id": "Please select a patient."},
		})
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to add patient result", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Patient added successfully.")
}

func (h *DoctorHandler) UpdateResult(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return failed(c, "Result not found.")
	}

	var form UpdateResultForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	err := h.results.UpdateResult(c.UserContext(), id, form.Diagnosis, form.Status)
	switch {
	case errors.Is(err, service.ErrResultNotFound):
		return failed(c, "Result not found.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to update result", slog.Int64("result_id", id), slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Result updated successfully.")
}

func (h *DoctorHandler) DeleteResult(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return failed(c, "Result not found.")
	}

	err := h.results.DeleteResult(c.UserContext(), id)
	switch {
	case errors.Is(err, service.ErrResultNotFound):
		return failed(c, "Result not found.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to delete result", slog.Int64("result_id", id), slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Result deleted successfully.")
}
