package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	store       string
	deps        map[string]Pinger
}

// NewHealthHandler returns a new handler instance. deps maps a dependency name to its pinger.
func NewHealthHandler(serviceName, version, store string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, store: store, deps: deps}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"ledger_store": h.store,
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Overview GET / lists what the service exposes.
func (h *HealthHandler) Overview(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": h.serviceName,
		"version": h.version,
		"endpoints": fiber.Map{
			"approvals": fiber.Map{
				"request": "POST /api/approvals",
				"approve": "GET /api/approve/{ticket_id}",
				"reject":  "GET /api/reject/{ticket_id}",
				"status":  "GET /api/status/{ticket_id}",
				"pending": "GET /api/approvals/pending",
			},
			"catalog": fiber.Map{
				"claim":  "GET /api/claims/{claim_id}",
				"policy": "GET /api/policies/{policy_number}",
			},
			"notifications": fiber.Map{
				"email": "POST /api/notifications/email",
			},
			"utilities": fiber.Map{
				"live":     "GET /health/live",
				"ready":    "GET /health/ready",
				"metrics":  "GET /metrics",
				"feedback": "POST /feedback",
			},
		},
	})
}
