package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/claim-approval-service/internal/api/http/handlers"
	"github.com/spec-kit/claim-approval-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Approvals     *handlers.ApprovalsHandler
	Catalog       *handlers.CatalogHandler
	Notifications *handlers.NotificationsHandler
	Registry      *prometheus.Registry
	// EmailLimiter throttles the routes that send email; nil disables it.
	EmailLimiter *IPRateLimiter
	// AuthMiddleware guards the monitoring routes when set.
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Overview)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
	app.Post("/feedback", cfg.Notifications.Feedback)

	api := app.Group("/api")
	throttle := cfg.EmailLimiter.Handler()
	api.Post("/approvals", throttle, cfg.Approvals.RequestApproval)
	api.Get("/approve/:ticket_id", cfg.Approvals.Approve)
	api.Get("/reject/:ticket_id", cfg.Approvals.Reject)
	api.Get("/claims/:claim_id", cfg.Catalog.GetClaim)
	api.Get("/policies/:policy_number", cfg.Catalog.GetPolicy)
	api.Post("/notifications/email", throttle, cfg.Notifications.SendEmail)

	api.Get("/status/:ticket_id", guarded(cfg.AuthMiddleware, cfg.Approvals.Status)...)
	api.Get("/approvals/pending", guarded(cfg.AuthMiddleware, cfg.Approvals.Pending)...)
}

func guarded(mw *auth.AuthMiddleware, handler fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{mw.Handle, auth.RequireOperatorRole(), handler}
}
