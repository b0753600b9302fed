package api

import (
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/model"
	"patient-portal/internal/service"
)

// FormState is what every form action answers with so the calling form can
// render the outcome and per-field errors inline.
type FormState struct {
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const (
	msgInvalidForm = "Please correct the highlighted fields."
	msgServerError = "Something went wrong. Please try again."
	dateLayout     = "2006-01-02"
	maxAge         = 150
)

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("hasletter", containsRune(unicode.IsLetter))
	v.RegisterValidation("hasdigit", containsRune(unicode.IsDigit))
	v.RegisterValidation("hasspecial", containsRune(func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("age", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 0 && n <= maxAge
	})
	v.RegisterValidation("role", modelCheck(model.ValidRole))
	v.RegisterValidation("diagnosis", modelCheck(model.ValidDiagnosis))
	v.RegisterValidation("status", modelCheck(model.ValidStatus))

	return v
}

func modelCheck(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	}
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

// fieldMessages maps "<field>.<tag>" to the message shown under the field.
// Entries prefixed with a form name override the shared ones.
var fieldMessages = map[string]string{
	"first_name.required": "First name cannot be blank.",
	"first_name.max":      "First name must not exceed 64 characters.",
	"last_name.required":  "Last name cannot be blank.",
	"last_name.max":       "Last name must not exceed 64 characters.",
	"email.required":      "Please enter a valid email address.",
	"email.email":         "Please enter a valid email address.",
	"role.required":       "Please select a role.",
	"role.role":           "Please select a role.",
	"age.required":        "Age cannot be blank.",
	"age.number":          "Age must be a whole number.",
	"age.age":             "Age must be between 0 and 150.",
	"birth_date.required": "Birth date cannot be blank.",
	"birth_date.date":     "Birth date cannot be blank.",
	"gender.required":     "Please select a gender.",
	"gender.oneof":        "Please select a gender.",
	"address.required":    "Address cannot be blank.",

	"password.required": "Your password must be at least 8 characters.",
	"password.min":      "Your password must be at least 8 characters.",

	"oldPassword.required":     "Please enter your old password.",
	"oldPassword.min":          "Please enter your old password.",
	"newPassword.required":     "Your new password must be at least 8 characters.",
	"newPassword.min":          "Your new password must be at least 8 characters.",
	"newPassword.hasletter":    "Password must contain at least one letter.",
	"newPassword.hasdigit":     "Password must contain at least one number.",
	"newPassword.hasspecial":   "Password must contain at least one special character.",
	"confirmPassword.required": "Re-type your new password.",
	"confirmPassword.min":      "Re-type your new password.",
	"confirmPassword.eqfield":  "Passwords do not match.",

	"LoginForm.email.required":                    "Please enter your email address.",
	"LoginForm.email.email":                       "Please enter your email address.",
	"ForgotPasswordForm.email.required":           "Please enter your email address.",
	"ForgotPasswordForm.email.email":              "Please enter your email address.",
	"ForgotPasswordForm.newPassword.required":     "Your password must be at least 8 characters.",
	"ForgotPasswordForm.newPassword.min":          "Your password must be at least 8 characters.",
	"ForgotPasswordForm.newPassword.hasletter":    "Contain at least one letter.",
	"ForgotPasswordForm.newPassword.hasdigit":     "Contain at least one number.",
	"ForgotPasswordForm.newPassword.hasspecial":   "Contain at least one special character.",
	"ForgotPasswordForm.confirmPassword.required": "Your password must be at least 8 characters.",
	"ForgotPasswordForm.confirmPassword.min":      "Your password must be at least 8 characters.",

	"patient_id.required":   "Please select a patient.",
	"patient_id.gt":         "Please select a patient.",
	"diagnosis.diagnosis":   "Please select a valid diagnosis.",
	"status.required":       "Please select a status.",
	"status.status":         "Please select a status.",
	"device_token.required": "Device token is required.",
}

func messageFor(form string, fe validator.FieldError) string {
	if m, ok := fieldMessages[form+"."+fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	return "Invalid value."
}

// validateForm returns nil when the form is valid, otherwise the state
// describing the first problem of every invalid field.
func validateForm(v *validator.Validate, form any) *FormState {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &FormState{Message: msgInvalidForm}
	}

	name := reflect.Indirect(reflect.ValueOf(form)).Type().Name()
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = messageFor(name, fe)
		}
	}

	return &FormState{Message: msgInvalidForm, Fields: fields}
}

// parseForm decodes and trims the submitted form. It reports a state to
// render when the body is unreadable or invalid.
func parseForm(c *fiber.Ctx, v *validator.Validate, form any) *FormState {
	if err := c.BodyParser(form); err != nil {
		return &FormState{Message: msgInvalidForm}
	}
	trimStrings(form)
	return validateForm(v, form)
}

func trimStrings(form any) {
	rv := reflect.Indirect(reflect.ValueOf(form))
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

func respond(c *fiber.Ctx, status int, state FormState) error {
	return c.Status(status).JSON(state)
}

func invalid(c *fiber.Ctx, state *FormState) error {
	return respond(c, fiber.StatusOK, *state)
}

func failed(c *fiber.Ctx, message string) error {
	return respond(c, fiber.StatusOK, FormState{Message: message})
}

func succeeded(c *fiber.Ctx, message string) error {
	return respond(c, fiber.StatusOK, FormState{Message: message, Success: true})
}

func serverError(c *fiber.Ctx) error {
	return respond(c, fiber.StatusInternalServerError, FormState{Message: msgServerError})
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ageField parses a validated age. An unparsable value is reported against
// the age field rather than dropped.
func ageField(s string) (*int, *FormState) {
	age, err := optionalInt(s)
	if err != nil || (age != nil && (*age < 0 || *age > maxAge)) {
		return nil, &FormState{
			Message: msgInvalidForm,
			Fields:  map[string]string{"age": fieldMessages["age.age"]},
		}
	}
	return age, nil
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// readUpload loads an uploaded file into memory. A missing field yields nil.
func readUpload(c *fiber.Ctx, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		// Not multipart or no such file.
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
