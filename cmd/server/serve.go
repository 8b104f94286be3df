package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ahmednasr/repo-recommender/server/internal/config"
	"github.com/ahmednasr/repo-recommender/server/internal/database"
	"github.com/ahmednasr/repo-recommender/server/internal/github"
	"github.com/ahmednasr/repo-recommender/server/internal/handler"
	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
	"github.com/ahmednasr/repo-recommender/server/internal/repository"
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var port string

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "port",
				Usage:       "HTTP listen port (overrides PORT)",
				Destination: &port,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("model_kind", cfg.ModelKind).
		Str("model_store", cfg.ModelStore).
		Int("feature_dim", cfg.FeatureDim).
		Float64("exploration_rate", cfg.ExplorationRate).
		Msg("configuration loaded")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	gh := github.NewBreakerClient(github.NewClient(github.Options{
		BaseURL:    cfg.GitHubAPIURL,
		Token:      cfg.GitHubToken,
		RatePerSec: cfg.GitHubRatePerSec,
		Timeout:    cfg.GitHubTimeout,
	}), github.BreakerSettings{})

	learner := recommender.New(learnerConfig(cfg))
	svc := service.NewRecommendService(gh, learner, store, service.Options{
		TopN:            cfg.TopN,
		DefaultMinStars: cfg.DefaultMinStars,
	})

	if cfg.AutoloadModel {
		switch err := svc.LoadModel(ctx); {
		case err == nil:
		case errors.Is(err, recommender.ErrNotFound):
			logging.Info().Str("store", store.Name()).Msg("no saved model; starting fresh")
		default:
			logging.Warn().Err(err).Str("store", store.Name()).Msg("saved model could not be loaded; starting fresh")
		}
	}

	app := handler.NewApp(handler.AppConfig{
		CORSOrigins:  cfg.CORSOrigins,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, svc, gh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("port", cfg.Port).Msg("server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			return goerr.Wrap(err, "listen", goerr.V("port", cfg.Port))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	return g.Wait()
}

// openStore selects the model store backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (service.ModelStore, func(), error) {
	switch cfg.ModelStore {
	case "mongo":
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "open mongo model store")
		}
		logging.Info().Str("db", cfg.DBName).Msg("using mongo model store")
		return repository.NewMongoModelStore(client.Database(cfg.DBName)), func() { database.Disconnect(client) }, nil
	default:
		store := repository.NewFileModelStore(cfg.ModelPath)
		logging.Info().Str("path", store.Path()).Msg("using file model store")
		return store, func() {}, nil
	}
}
