package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/service"
	"patient-portal/internal/session"
)

type AuthHandler struct {
	users    service.UserService
	sessions *session.Manager
	validate *validator.Validate
}

func NewAuthHandler(users service.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		validate: newValidator(),
	}
}

type LoginForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

type ForgotPasswordForm struct {
	Email           string `json:"email" form:"email" validate:"required,email"`
	NewPassword     string `json:"newPassword" form:"newPassword" validate:"required,min=8,hasletter,hasdigit,hasspecial"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,min=8,eqfield=NewPassword"`
}

func (h *AuthHandler) Home(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "login"})
}

// Login starts a session and sends the user to their dashboard.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form LoginForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	user, err := h.users.Authenticate(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return failed(c, "Incorrect email or password.")
		}
		slog.ErrorContext(c.UserContext(), "Login failed", slog.String("error", err.Error()))
		return serverError(c)
	}

	if _, err := h.sessions.Create(c, user.ID, user.Role); err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to create session",
			slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
		return serverError(c)
	}

	return c.Redirect(session.DashboardFor(user.Role), fiber.StatusSeeOther)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Destroy(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// ForgotPassword sets a new password for the account with the given email.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var form ForgotPasswordForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	err := h.users.ResetPassword(c.UserContext(), form.Email, form.NewPassword)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return respond(c, fiber.StatusOK, FormState{
			Message: "Email not found.",
			Fields:  map[string]string{"email": "Email not found."},
		})
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to reset password", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "Password updated successfully.")
}
