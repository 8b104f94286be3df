package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmednasr/repo-recommender/server/internal/middleware"
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

// AppConfig holds the HTTP-level settings of NewApp.
type AppConfig struct {
	CORSOrigins  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the Fiber application with middleware and every route.
func NewApp(cfg AppConfig, svc service.RecommendService, breaker BreakerState) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "repo-recommender",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(middleware.Logging())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	RegisterRoutes(app, svc, breaker)
	return app
}

// RegisterRoutes mounts every handler on app.
func RegisterRoutes(app *fiber.App, svc service.RecommendService, breaker BreakerState) {
	validate := validator.New()

	NewHealthHandler(svc, breaker).Register(app)
	NewRecommendHandler(svc, validate).Register(app)
	NewModelHandler(svc).Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
