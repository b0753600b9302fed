package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"patient-portal/internal/dal"
	"patient-portal/internal/session"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

const (
	claimsKey = "sessionClaims"
	scopeKey  = "dataScope"
)

// PrometheusMiddleware records request counts and latencies labelled with the
// matched route pattern.
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var e *fiber.Error

			if errors.As(err, &e) {
				statusCode = e.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		method := c.Method()
		path := c.Route().Path
		statusStr := fmt.Sprintf("%d", statusCode)

		httpRequestTotal.WithLabelValues(method, path, statusStr).Inc()
		httpRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		return err
	}
}

func RateLimiter(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many request, please try again later.",
			})
		},
	})
}

// DataScope attaches a fresh read scope to every request.
func DataScope(store *dal.Store, sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(scopeKey, store.Scope(c.UserContext(), func() (*session.Claims, error) {
			if claims, ok := c.Locals(claimsKey).(*session.Claims); ok {
				return claims, nil
			}
			return sessions.Verify(c)
		}))
		return c.Next()
	}
}

func scopeFrom(c *fiber.Ctx) *dal.Scope {
	return c.Locals(scopeKey).(*dal.Scope)
}

// RequireRole lets the request through only for sessions holding one of the
// roles. Requests without a session are sent home.
func RequireRole(sessions *session.Manager, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(claimsKey).(*session.Claims)
		if !ok {
			var err error
			claims, err = sessions.Verify(c)
			if err != nil {
				return c.Redirect("/", fiber.StatusSeeOther)
			}
			c.Locals(claimsKey, claims)
			c.SetUserContext(withUserID(c.UserContext(), claims.UserID))
		}

		if !session.Allows(claims, roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}

		return c.Next()
	}
}

func claimsFrom(c *fiber.Ctx) *session.Claims {
	claims, _ := c.Locals(claimsKey).(*session.Claims)
	return claims
}
