package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

// ModelHandler exposes persistence and introspection of the learner.
type ModelHandler struct {
	svc service.RecommendService
}

// NewModelHandler returns a handler instance.
func NewModelHandler(svc service.RecommendService) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// Register mounts the model endpoints on the given router group.
func (h *ModelHandler) Register(r fiber.Router) {
	r.Post("/save-model", h.save)
	r.Post("/load-model", h.load)
	r.Post("/reset-model", h.reset)
	r.Get("/model", h.summary)
}

func (h *ModelHandler) save(c *fiber.Ctx) error {
	if err := h.svc.SaveModel(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Model saved successfully"})
}

func (h *ModelHandler) load(c *fiber.Ctx) error {
	if err := h.svc.LoadModel(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Model loaded successfully"})
}

func (h *ModelHandler) reset(c *fiber.Ctx) error {
	h.svc.ResetModel()
	return c.JSON(fiber.Map{"message": "Model reset"})
}

func (h *ModelHandler) summary(c *fiber.Ctx) error {
	return c.JSON(h.svc.Summary())
}
