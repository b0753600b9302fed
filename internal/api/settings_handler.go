package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/service"
)

// SettingsHandler serves the account settings shared by every role.
type SettingsHandler struct {
	users    service.UserService
	validate *validator.Validate
}

func NewSettingsHandler(users service.UserService) *SettingsHandler {
	return &SettingsHandler{users: users, validate: newValidator()}
}

type UpdateAccountForm struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=64"`
	Email     string `json:"email" form:"email" validate:"required,email"`
}

type UpdateProfileForm struct {
	Age       string `json:"age" form:"age" validate:"required,number,age"`
	BirthDate string `json:"birth_date" form:"birth_date" validate:"required,date"`
	Gender    string `json:"gender" form:"gender" validate:"required,oneof=female male"`
	Address   string `json:"address" form:"address" validate:"required"`
}

type ChangePasswordForm struct {
	OldPassword     string `json:"oldPassword" form:"oldPassword" validate:"required,min=8"`
	NewPassword     string `json:"newPassword" form:"newPassword" validate:"required,min=8,hasletter,hasdigit,hasspecial"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,min=8,eqfield=NewPassword"`
}

func (h *SettingsHandler) Show(c *fiber.Ctx) error {
	scope := scopeFrom(c)

	user, err := scope.CurrentUser()
	if err != nil {
		return fetchFailed(c, "user", err)
	}
	profile, err := scope.Profile(user.ID)
	if err != nil {
		return fetchFailed(c, "profile", err)
	}

	return c.JSON(fiber.Map{"user": user, "profile": profile})
}

func (h *SettingsHandler) UpdateAccount(c *fiber.Ctx) error {
	var form UpdateAccountForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	err := h.users.UpdateAccount(c.UserContext(), claimsFrom(c).UserID, form.FirstName, form.LastName, form.Email)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return failed(c, "Email already exists.")
	case errors.Is(err, service.ErrUserNotFound):
		return failed(c, "User not found.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to update account", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Account updated successfully.")
}

func (h *SettingsHandler) UpdateProfile(c *fiber.Ctx) error {
	var form UpdateProfileForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	age, state := ageField(form.Age)
	if state != nil {
		return invalid(c, state)
	}

	picture, err := readUpload(c, "profile_picture")
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to read upload", slog.String("error", err.Error()))
		return serverError(c)
	}

	_, err = h.users.UpdateProfile(c.UserContext(), service.ProfileUpdate{
		UserID:    claimsFrom(c).UserID,
		Age:       age,
		BirthDate: optionalDate(form.BirthDate),
		Gender:    optionalString(form.Gender),
		Address:   optionalString(form.Address),
		Picture:   picture,
	})
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to update profile", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Profile updated successfully.")
}

func (h *SettingsHandler) ChangePassword(c *fiber.Ctx) error {
	var form ChangePasswordForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	err := h.users.ChangePassword(c.UserContext(), claimsFrom(c).UserID, form.OldPassword, form.NewPassword)
	switch {
	case errors.Is(err, service.ErrWrongPassword):
		return respond(c, fiber.StatusOK, FormState{
			Message: "Your old password is incorrect.",
			Fields:  map[string]string{"oldPassword": "Your old password is incorrect."},
		})
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to change password", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Password updated successfully.")
}
