package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ahmednasr/repo-recommender/server/internal/config"
	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// main is the single entry-point for the REST API and its tooling.
func main() {
	serve := cmdServe()
	app := &cli.Command{
		Name:  "repo-recommender",
		Usage: "GitHub repository recommender with an online learner",
		Commands: []*cli.Command{
			serve,
			cmdSimulate(),
		},
		Action: serve.Action,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logging.Fatal().Err(err).Msg("command failed")
	}
}

// loadConfig reads the environment and configures the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, nil
}

// learnerConfig maps the flat environment config onto learner hyper-parameters.
func learnerConfig(cfg config.Config) recommender.Config {
	return recommender.Config{
		Kind:             recommender.ModelKind(cfg.ModelKind),
		LearningRate:     cfg.LearningRate,
		FeatureDim:       cfg.FeatureDim,
		ExplorationRate:  cfg.ExplorationRate,
		ExplorationDecay: cfg.ExplorationDecay,
		Seed:             cfg.RandomSeed,
		Network: recommender.NetworkConfig{
			Gamma:          cfg.Discount,
			BatchSize:      cfg.BatchSize,
			ReplayCapacity: cfg.ReplayCapacity,
			TargetSyncProb: cfg.TargetSyncProb,
		},
	}
}
