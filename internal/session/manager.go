package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"patient-portal/internal/model"
)

const (
	CookieName = "session"
	TTL        = time.Hour
	RefreshTTL = 7 * 24 * time.Hour
)

// Store records issued sessions. Verification never consults it.
type Store interface {
	Create(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

type Manager struct {
	codec  *Codec
	store  Store
	secure bool
	now    func() time.Time
}

func NewManager(codec *Codec, store Store, secure bool) *Manager {
	return &Manager{codec: codec, store: store, secure: secure, now: time.Now}
}

// Create records a session row for the user, signs its token and sets the cookie.
func (m *Manager) Create(c *fiber.Ctx, userID int64, role string) (*Claims, error) {
	expiresAt := m.now().Add(TTL)

	row := &model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		ExpiresAt: expiresAt,
	}
	if err := m.store.Create(c.UserContext(), row); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	claims := &Claims{
		UserID:           userID,
		UserRole:         role,
		Expiry:           expiresAt,
		RegisteredClaims: jwt.RegisteredClaims{ID: row.ID.String()},
	}
	token, err := m.codec.Encode(claims)
	if err != nil {
		return nil, err
	}

	m.setCookie(c, token, expiresAt)

	return claims, nil
}

// Verify decodes the session cookie of the current request.
func (m *Manager) Verify(c *fiber.Ctx) (*Claims, error) {
	return m.codec.Decode(c.Cookies(CookieName))
}

// Refresh extends the lifetime of the cookie holding a still valid token. The
// token itself is not re-signed.
func (m *Manager) Refresh(c *fiber.Ctx) bool {
	token := c.Cookies(CookieName)
	if _, err := m.codec.Decode(token); err != nil {
		return false
	}

	m.setCookie(c, token, m.now().Add(RefreshTTL))
	return true
}

// Destroy clears the cookie and removes the session row it points at.
func (m *Manager) Destroy(c *fiber.Ctx) {
	claims, err := m.Verify(c)

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if err != nil {
		return
	}

	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return
	}

	if err := m.store.Delete(c.UserContext(), sessionID); err != nil {
		slog.WarnContext(c.UserContext(), "Failed to delete session row",
			slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))
	}
}

func (m *Manager) setCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
