package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"patient-portal/internal/model"
	"patient-portal/internal/session"
)

var unguardedPrefixes = []string{"/api", "/health", "/metrics"}

// RouteGuard redirects requests based on whether their path is protected or
// public and on the session presented with them.
type RouteGuard struct {
	protected []string
	public    []string
	sessions  *session.Manager
	sliding   bool
}

func NewRouteGuard(protected, public []string, sessions *session.Manager, sliding bool) *RouteGuard {
	return &RouteGuard{
		protected: protected,
		public:    public,
		sessions:  sessions,
		sliding:   sliding,
	}
}

// matches reports whether path is entry or lies below it. The root entry only
// matches itself.
func matches(entry, path string) bool {
	if entry == "/" {
		return path == "/"
	}
	entry = strings.TrimRight(entry, "/")
	return path == entry || strings.HasPrefix(path, entry+"/")
}

func matchesAny(entries []string, path string) bool {
	for _, e := range entries {
		if matches(e, path) {
			return true
		}
	}
	return false
}

// roleTree returns the role whose pages live under path, if any.
func roleTree(path string) string {
	segment := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if model.ValidRole(segment) {
		return segment
	}
	return ""
}

func (g *RouteGuard) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if matchesAny(unguardedPrefixes, path) {
			return c.Next()
		}

		switch {
		case matchesAny(g.protected, path):
			claims, err := g.sessions.Verify(c)
			if err != nil {
				return c.Redirect("/", fiber.StatusSeeOther)
			}
			if tree := roleTree(path); tree != "" && tree != claims.UserRole {
				return c.Redirect(session.LandingFor(claims.UserRole), fiber.StatusSeeOther)
			}
			if g.sliding {
				g.sessions.Refresh(c)
			}
			c.Locals(claimsKey, claims)
			c.SetUserContext(withUserID(c.UserContext(), claims.UserID))

		case matchesAny(g.public, path):
			if claims, err := g.sessions.Verify(c); err == nil {
				return c.Redirect(session.DashboardFor(claims.UserRole), fiber.StatusSeeOther)
			}
		}

		return c.Next()
	}
}

// Audit logs every protected entry that no registered route falls under and
// returns them. Such entries protect nothing.
func (g *RouteGuard) Audit(routes []fiber.Route) []string {
	var stale []string
	for _, entry := range g.protected {
		found := false
		for _, r := range routes {
			if matches(entry, r.Path) {
				found = true
				break
			}
		}
		if !found {
			stale = append(stale, entry)
			slog.Warn("Protected route entry matches no registered route", slog.String("entry", entry))
		}
	}
	return stale
}
