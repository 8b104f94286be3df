package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/github"
	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

// RecommendHandler wires HTTP → RecommendService for ranking and feedback.
type RecommendHandler struct {
	svc      service.RecommendService
	validate *validator.Validate
}

// NewRecommendHandler returns a handler instance.
func NewRecommendHandler(svc service.RecommendService, validate *validator.Validate) *RecommendHandler {
	return &RecommendHandler{svc: svc, validate: validate}
}

// Register mounts GET /recommend and POST /feedback on the given router group.
func (h *RecommendHandler) Register(r fiber.Router) {
	r.Get("/recommend", h.recommend)
	r.Post("/feedback", h.feedback)
}

// recommend handles GET /recommend?tags=go,cli&min_stars=10&max_stars=0&n=3
func (h *RecommendHandler) recommend(c *fiber.Ctx) error {
	var req models.RecommendRequest
	if err := c.QueryParser(&req); err != nil {
		return goerr.Wrap(recommender.ErrInvalidArgument, "invalid query parameters", goerr.V("cause", err.Error()))
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	tags := github.ParseTags(req.Tags)
	if len(tags) == 0 {
		return goerr.Wrap(recommender.ErrInvalidArgument, "tags must name at least one topic")
	}

	repos, err := h.svc.Recommend(c.UserContext(), service.RecommendParams{
		Tags:     tags,
		MinStars: optionalInt(c, "min_stars", req.MinStars),
		MaxStars: req.MaxStars,
		N:        req.N,
	})
	if err != nil {
		return err
	}
	return c.JSON(repos)
}

// feedback handles POST /feedback?tags=go  { "project_url": "...", "feedback": "like" }
func (h *RecommendHandler) feedback(c *fiber.Ctx) error {
	var req models.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return goerr.Wrap(recommender.ErrInvalidArgument, "invalid JSON body", goerr.V("cause", err.Error()))
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	var q models.FeedbackQuery
	if err := c.QueryParser(&q); err != nil {
		return goerr.Wrap(recommender.ErrInvalidArgument, "invalid query parameters", goerr.V("cause", err.Error()))
	}
	if err := h.validate.Struct(q); err != nil {
		return err
	}

	params := service.FeedbackParams{
		ProjectURL: req.ProjectURL,
		Label:      req.Feedback,
		Tags:       github.ParseTags(q.Tags),
		MinStars:   optionalInt(c, "min_stars", q.MinStars),
		MaxStars:   q.MaxStars,
	}

	res, err := h.svc.Feedback(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// optionalInt returns nil when key is absent so the service default applies.
func optionalInt(c *fiber.Ctx, key string, parsed int) *int {
	if c.Query(key) == "" {
		return nil
	}
	return &parsed
}
