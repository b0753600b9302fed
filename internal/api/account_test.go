package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-portal/internal/model"
)

func signUpValues(email, age string) url.Values {
	return url.Values{
		"first_name": {"Lea"},
		"last_name":  {"Santos"},
		"email":      {email},
		"role":       {model.RolePatient},
		"age":        {age},
	}
}

func TestAdmin_SignUp(t *testing.T) {
	f := newFixture(t)
	admin := f.cookie(t, 1, model.RoleAdmin, time.Hour)

	t.Run("creates user with age", func(t *testing.T) {
		state := decodeState(t, f.do(t, formRequest(http.MethodPost, "/admin/users", signUpValues("lea@example.com", "34")), admin))
		require.True(t, state.Success, state.Message)
		assert.Equal(t, "User created successfully.", state.Message)

		require.Len(t, f.users.signedUp, 1)
		require.NotNil(t, f.users.signedUp[0].Age)
		assert.Equal(t, 34, *f.users.signedUp[0].Age)
	})

	t.Run("age is optional", func(t *testing.T) {
		state := decodeState(t, f.do(t, formRequest(http.MethodPost, "/admin/users", signUpValues("noage@example.com", "")), admin))
		require.True(t, state.Success, state.Message)
		assert.Nil(t, f.users.signedUp[len(f.users.signedUp)-1].Age)
	})

	t.Run("rejects malformed ages", func(t *testing.T) {
		cases := map[string]string{
			"1.5":                  "Age must be a whole number.",
			"-4":                   "Age must be a whole number.",
			"151":                  "Age must be between 0 and 150.",
			"99999999999999999999": "Age must be between 0 and 150.",
		}
		before := len(f.users.signedUp)
		for age, want := range cases {
			state := decodeState(t, f.do(t, formRequest(http.MethodPost, "/admin/users", signUpValues("age@example.com", age)), admin))
			assert.False(t, state.Success, age)
			assert.Equal(t, want, state.Fields["age"], age)
		}
		assert.Len(t, f.users.signedUp, before)
	})

	t.Run("duplicate email", func(t *testing.T) {
		state := decodeState(t, f.do(t, formRequest(http.MethodPost, "/admin/users", signUpValues("doctor@example.com", "40")), admin))
		assert.False(t, state.Success)
		assert.Equal(t, "Email already exists.", state.Message)
	})
}

func profileValues(age string) map[string]string {
	return map[string]string{
		"age":        age,
		"birth_date": "1990-01-12",
		"gender":     "female",
		"address":    "1 Main St",
	}
}

func TestSettings_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	patient := f.cookie(t, 3, model.RolePatient, time.Hour)

	t.Run("saves profile with picture", func(t *testing.T) {
		req := multipartFile(t, "/patient/settings/profile", profileValues("34"), "profile_picture", "me.png", []byte("png"))
		state := decodeState(t, f.do(t, req, patient))
		require.True(t, state.Success, state.Message)
		assert.Equal(t, "Profile updated successfully.", state.Message)

		require.Len(t, f.users.profiles, 1)
		saved := f.users.profiles[0]
		assert.Equal(t, int64(3), saved.UserID)
		require.NotNil(t, saved.Age)
		assert.Equal(t, 34, *saved.Age)
		require.NotNil(t, saved.BirthDate)
		assert.Equal(t, 1990, saved.BirthDate.Year())
		require.NotNil(t, saved.Picture)
		assert.Equal(t, "me.png", saved.Picture.Filename)
	})

	t.Run("without picture", func(t *testing.T) {
		state := decodeState(t, f.do(t, formRequest(http.MethodPost, "/patient/settings/profile", url.Values{
			"age":        {"35"},
			"birth_date": {"1990-01-12"},
			"gender":     {"female"},
			"address":    {"1 Main St"},
		}), patient))
		require.True(t, state.Success, state.Message)
		assert.Nil(t, f.users.profiles[len(f.users.profiles)-1].Picture)
	})

	t.Run("rejects bad age", func(t *testing.T) {
		before := len(f.users.profiles)
		for age, want := range map[string]string{
			"":    "Age cannot be blank.",
			"1.5": "Age must be a whole number.",
			"200": "Age must be between 0 and 150.",
		} {
			req := multipartFile(t, "/patient/settings/profile", profileValues(age), "", "", nil)
			state := decodeState(t, f.do(t, req, patient))
			assert.Equal(t, want, state.Fields["age"], age)
		}
		assert.Len(t, f.users.profiles, before)
	})
}

func TestAdmin_UserMarksExpiredSessions(t *testing.T) {
	f := newFixture(t)

	live, stale := uuid.New(), uuid.New()
	f.sessions.rows[live] = model.Session{ID: live, UserID: 3, Role: model.RolePatient, ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions.rows[stale] = model.Session{ID: stale, UserID: 3, Role: model.RolePatient, ExpiresAt: time.Now().Add(-time.Hour)}

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/users/3", nil), f.cookie(t, 1, model.RoleAdmin, time.Hour))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Sessions []struct {
			SessionID uuid.UUID `json:"session_id"`
			Expired   bool      `json:"expired"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sessions, 2)

	expired := map[uuid.UUID]bool{}
	for _, s := range body.Sessions {
		expired[s.SessionID] = s.Expired
	}
	assert.False(t, expired[live])
	assert.True(t, expired[stale])
}

func TestRateLimit_RoutesKeepSeparateBudgets(t *testing.T) {
	f := newLimitedFixture(t, 1)

	login := func() *http.Response {
		return f.do(t, formRequest(http.MethodPost, "/login", url.Values{
			"email":    {"doctor@example.com"},
			"password": {"not-the-password"},
		}), nil)
	}

	assert.Equal(t, fiber.StatusOK, login().StatusCode)

	resp := f.do(t, formRequest(http.MethodPost, "/forgot-password", url.Values{
		"email":           {"ghost@example.com"},
		"newPassword":     {"N3wPassword!"},
		"confirmPassword": {"N3wPassword!"},
	}), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, fiber.StatusTooManyRequests, login().StatusCode)
}
