package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

// BreakerState reports a circuit breaker's state.
type BreakerState interface {
	State() string
}

type HealthHandler struct {
	svc     service.RecommendService
	breaker BreakerState
}

func NewHealthHandler(svc service.RecommendService, breaker BreakerState) *HealthHandler {
	return &HealthHandler{
		svc:     svc,
		breaker: breaker,
	}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/", h.root)
	r.Get("/health", h.health)
}

func (h *HealthHandler) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Project Recommender API is running"})
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "ok",
		"store":    h.checkStore(c.UserContext()),
		"upstream": h.checkBreaker(),
		"model":    h.svc.Summary().Kind,
	}

	return c.JSON(status)
}

func (h *HealthHandler) checkStore(ctx context.Context) fiber.Map {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	name, err := h.svc.StoreStatus(ctx)
	state := "connected"
	if err != nil {
		state = "error"
	}
	return fiber.Map{"backend": name, "state": state}
}

func (h *HealthHandler) checkBreaker() string {
	if h.breaker == nil {
		return "not_configured"
	}
	return h.breaker.State()
}
