package api

import (
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"patient-portal/internal/dal"
	"patient-portal/internal/legacy"
	"patient-portal/internal/model"
	"patient-portal/internal/session"
)

type Router struct {
	ServiceName string
	Sessions    *session.Manager
	Guard       *RouteGuard
	Store       *dal.Store

	Auth     *AuthHandler
	Admin    *AdminHandler
	Doctor   *DoctorHandler
	Patient  *PatientHandler
	Settings *SettingsHandler
	// Legacy is mounted under /api when set.
	Legacy *legacy.Handler

	RateLimitMax        int
	RateLimitExpiration time.Duration
}

// SetupRoutes registers middleware and every route on app and then audits
// the guard configuration against them.
func (r *Router) SetupRoutes(app *fiber.App) {
	app.Use(otelfiber.Middleware())
	app.Use(PrometheusMiddleware())
	app.Use(r.Guard.Handler())
	app.Use(DataScope(r.Store, r.Sessions))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": r.ServiceName})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if r.Legacy != nil {
		r.Legacy.Register(app.Group("/api"))
	}

	// Each limited route keeps its own per-IP budget.
	app.Get("/", r.Auth.Home)
	app.Post("/login", RateLimiter(r.RateLimitMax, r.RateLimitExpiration), r.Auth.Login)
	app.Post("/logout", r.Auth.Logout)
	app.Post("/forgot-password", RateLimiter(r.RateLimitMax, r.RateLimitExpiration), r.Auth.ForgotPassword)

	admin := app.Group("/admin", RequireRole(r.Sessions, model.RoleAdmin))
	admin.Get("/", r.Admin.Dashboard)
	admin.Get("/users", r.Admin.Users)
	admin.Get("/users/:id", r.Admin.User)
	admin.Post("/users", r.Admin.SignUp)
	admin.Post("/users/:id", r.Admin.UpdateUser)
	admin.Post("/users/:id/delete", r.Admin.DeleteUser)
	r.settingsRoutes(admin)

	doctor := app.Group("/doctor", RequireRole(r.Sessions, model.RoleDoctor))
	doctor.Get("/", r.Doctor.Dashboard)
	doctor.Get("/results", r.Doctor.Results)
	doctor.Get("/results/:id", r.Doctor.Result)
	doctor.Get("/results/:id/report", r.Doctor.Report)
	doctor.Post("/results", r.Doctor.AddPatient)
	doctor.Post("/results/:id", r.Doctor.UpdateResult)
	doctor.Post("/results/:id/delete", r.Doctor.DeleteResult)
	r.settingsRoutes(doctor)

	patient := app.Group("/patient", RequireRole(r.Sessions, model.RolePatient))
	patient.Get("/", r.Patient.Dashboard)
	patient.Get("/result/:id", r.Patient.Result)
	patient.Post("/device-token", r.Patient.RegisterDeviceToken)
	r.settingsRoutes(patient)

	r.Guard.Audit(app.GetRoutes(true))
}

func (r *Router) settingsRoutes(group fiber.Router) {
	group.Get("/settings", r.Settings.Show)
	group.Post("/settings/account", r.Settings.UpdateAccount)
	group.Post("/settings/profile", r.Settings.UpdateProfile)
	group.Post("/settings/password", r.Settings.ChangePassword)
}
