package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"patient-portal/internal/model"
)

type memoryStore struct {
	rows      map[uuid.UUID]*model.Session
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[uuid.UUID]*model.Session{}}
}

func (s *memoryStore) Create(_ context.Context, row *model.Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.rows[row.ID] = row
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.rows, id)
	return nil
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func newTestApp(m *Manager) *fiber.App {
	app := fiber.New()
	app.Post("/login/:role", func(c *fiber.Ctx) error {
		claims, err := m.Create(c, 7, c.Params("role"))
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"session_id": claims.ID})
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		claims, err := m.Verify(c)
		if err != nil {
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.JSON(fiber.Map{"userId": claims.UserID, "role": claims.UserRole})
	})
	app.Post("/refresh", func(c *fiber.Ctx) error {
		if !m.Refresh(c) {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		m.Destroy(c)
		return c.Redirect("/", fiber.StatusSeeOther)
	})
	return app
}

func TestManager_CreateThenVerify(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(NewCodec("secret"), store, true)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/doctor", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, "/", cookie.Path)
	require.WithinDuration(t, time.Now().Add(TTL), cookie.Expires, 5*time.Second)
	require.Len(t, store.rows, 1)

	for _, row := range store.rows {
		require.Equal(t, int64(7), row.UserID)
		require.Equal(t, "doctor", row.Role)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	claims, err := m.codec.Decode(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "doctor", claims.UserRole)
}

func TestManager_VerifyWithoutCookieRedirects(t *testing.T) {
	app := newTestApp(NewManager(NewCodec("secret"), newMemoryStore(), true))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestManager_CreateFailsWhenStoreFails(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("db down")
	app := newTestApp(NewManager(NewCodec("secret"), store, true))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/admin", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	for _, c := range resp.Cookies() {
		require.NotEqual(t, CookieName, c.Name)
	}
}

func TestManager_RefreshExtendsCookieOnly(t *testing.T) {
	m := NewManager(NewCodec("secret"), newMemoryStore(), false)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/patient", nil))
	require.NoError(t, err)
	issued := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: issued.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	refreshed := sessionCookie(t, resp)
	require.Equal(t, issued.Value, refreshed.Value)
	require.WithinDuration(t, time.Now().Add(RefreshTTL), refreshed.Expires, 5*time.Second)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/refresh", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestManager_DestroyClearsCookieAndRow(t *testing.T) {
	store := newMemoryStore()
	app := newTestApp(NewManager(NewCodec("secret"), store, true))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/admin", nil))
	require.NoError(t, err)
	issued := sessionCookie(t, resp)
	require.Len(t, store.rows, 1)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: issued.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	cleared := sessionCookie(t, resp)
	require.Empty(t, cleared.Value)
	require.Empty(t, store.rows)
}

func TestAllowsAndDestinations(t *testing.T) {
	claims := &Claims{UserID: 1, UserRole: "doctor"}

	require.True(t, Allows(claims, "doctor"))
	require.True(t, Allows(claims, "admin", "doctor"))
	require.False(t, Allows(claims, "admin"))
	require.False(t, Allows(nil, "doctor"))

	require.Equal(t, "/doctor", DashboardFor("doctor"))
	require.Equal(t, "/admin/users", LandingFor("admin"))
	require.Equal(t, "/", DashboardFor("nurse"))
}
