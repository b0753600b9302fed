package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/model"
	"patient-portal/internal/service"
)

type AdminHandler struct {
	users    service.UserService
	validate *validator.Validate
}

func NewAdminHandler(users service.UserService) *AdminHandler {
	return &AdminHandler{users: users, validate: newValidator()}
}

type SignUpForm struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=64"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Role      string `json:"role" form:"role" validate:"required,role"`
	Age       string `json:"age" form:"age" validate:"omitempty,number,age"`
	BirthDate string `json:"birth_date" form:"birth_date" validate:"omitempty,date"`
	Gender    string `json:"gender" form:"gender" validate:"omitempty,oneof=female male"`
	Address   string `json:"address" form:"address"`
}

type UpdateUserForm struct {
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=64"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Role      string `json:"role" form:"role" validate:"required,role"`
}

type sessionView struct {
	model.Session
	Expired bool `json:"expired"`
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	scope := scopeFrom(c)

	stats, err := scope.Stats()
	if err != nil {
		return fetchFailed(c, "stats", err)
	}
	recent, err := scope.RecentUsers()
	if err != nil {
		return fetchFailed(c, "users", err)
	}

	return c.JSON(fiber.Map{"stats": stats, "recent_users": recent})
}

func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := scopeFrom(c).Users()
	if err != nil {
		return fetchFailed(c, "users", err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *AdminHandler) User(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Failed to fetch user."})
	}

	scope := scopeFrom(c)
	user, err := scope.UserByID(id)
	if err != nil {
		return fetchFailed(c, "user", err)
	}
	profile, err := scope.Profile(id)
	if err != nil {
		return fetchFailed(c, "user", err)
	}
	sessions, err := scope.SessionsFor(id)
	if err != nil {
		return fetchFailed(c, "user", err)
	}

	now := time.Now()
	views := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, sessionView{Session: sessions[i], Expired: sessions[i].Expired(now)})
	}

	return c.JSON(fiber.Map{"user": user, "profile": profile, "sessions": views})
}

// SignUp creates an account on behalf of a new user.
func (h *AdminHandler) SignUp(c *fiber.Ctx) error {
	var form SignUpForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	age, state := ageField(form.Age)
	if state != nil {
		return invalid(c, state)
	}

	_, err := h.users.SignUp(c.UserContext(), service.NewUser{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Role:      form.Role,
		Age:       age,
		BirthDate: optionalDate(form.BirthDate),
		Gender:    optionalString(form.Gender),
		Address:   optionalString(form.Address),
	})
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return failed(c, "Email already exists.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to create user", slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "User created successfully.")
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return failed(c, "User not found.")
	}

	var form UpdateUserForm
	if state := parseForm(c, h.validate, &form); state != nil {
		return invalid(c, state)
	}

	err := h.users.UpdateUser(c.UserContext(), id, form.FirstName, form.LastName, form.Email, form.Role)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return failed(c, "Email already exists.")
	case errors.Is(err, service.ErrUserNotFound):
		return failed(c, "User not found.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to update user", slog.Int64("user_id", id), slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "User updated successfully.")
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return failed(c, "User not found.")
	}

	err := h.users.DeleteUser(c.UserContext(), claimsFrom(c).UserID, id)
	switch {
	case errors.Is(err, service.ErrSelfDelete):
		return failed(c, "You cannot delete your own account.")
	case errors.Is(err, service.ErrUserHasResults):
		return failed(c, "This user still has results and cannot be deleted.")
	case errors.Is(err, service.ErrUserNotFound):
		return failed(c, "User not found.")
	case err != nil:
		slog.ErrorContext(c.UserContext(), "Failed to delete user", slog.Int64("user_id", id), slog.String("error", err.Error()))
		return serverError(c)
	}

	return succeeded(c, "User deleted successfully.")
}
