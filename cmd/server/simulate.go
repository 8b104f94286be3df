package main

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/ahmednasr/repo-recommender/server/internal/github"
	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
	"github.com/ahmednasr/repo-recommender/server/internal/repository"
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

var simulatedLabels = []string{"like", "maybe", "dislike"}

func cmdSimulate() *cli.Command {
	var (
		tags   string
		rounds int
		n      int
		out    string
		seed   uint64
	)

	return &cli.Command{
		Name:  "simulate",
		Usage: "Train a model offline with random feedback and save it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "tags",
				Usage:       "comma separated GitHub topics",
				Value:       "python,machine-learning",
				Sources:     cli.EnvVars("SIMULATE_TAGS"),
				Destination: &tags,
			},
			&cli.IntFlag{
				Name:        "rounds",
				Usage:       "number of recommend/feedback rounds",
				Value:       10,
				Destination: &rounds,
			},
			&cli.IntFlag{
				Name:        "n",
				Usage:       "recommendations per round",
				Value:       3,
				Destination: &n,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "model file to write (defaults to MODEL_PATH)",
				Destination: &out,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "seed for the simulated user; 0 means time based",
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.ModelPath
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			gh := github.NewBreakerClient(github.NewClient(github.Options{
				BaseURL:    cfg.GitHubAPIURL,
				Token:      cfg.GitHubToken,
				RatePerSec: cfg.GitHubRatePerSec,
				Timeout:    cfg.GitHubTimeout,
			}), github.BreakerSettings{})
			svc := service.NewRecommendService(gh, recommender.New(learnerConfig(cfg)),
				repository.NewFileModelStore(out), service.Options{TopN: n, DefaultMinStars: cfg.DefaultMinStars})

			return simulate(ctx, svc, github.ParseTags(tags), rounds, rand.New(rand.NewPCG(seed, seed)))
		},
	}
}

// simulate plays a user who labels every recommendation at random, then
// saves the trained model.
func simulate(ctx context.Context, svc service.RecommendService, tags []string, rounds int, rng *rand.Rand) error {
	if len(tags) == 0 {
		return goerr.Wrap(recommender.ErrInvalidArgument, "simulate needs at least one tag")
	}
	for round := 1; round <= rounds; round++ {
		picks, err := svc.Recommend(ctx, service.RecommendParams{Tags: tags})
		if err != nil {
			return goerr.Wrap(err, "recommend", goerr.V("round", round))
		}
		for _, repo := range picks {
			label := simulatedLabels[rng.IntN(len(simulatedLabels))]
			res, err := svc.Feedback(ctx, service.FeedbackParams{ProjectURL: repo.URL, Label: label})
			if err != nil {
				return goerr.Wrap(err, "feedback", goerr.V("round", round), goerr.V("repo_url", repo.URL))
			}
			logging.Info().
				Int("round", round).
				Str("repo", repo.Name).
				Str("label", label).
				Float64("score_after", res.ScoreAfter).
				Msg("simulated feedback")
		}
	}
	if err := svc.SaveModel(ctx); err != nil {
		return err
	}
	sum := svc.Summary()
	logging.Info().
		Int("feedback_count", sum.FeedbackCount).
		Int("cached_features", sum.CachedFeatures).
		Float64("exploration_rate", sum.ExplorationRate).
		Msg("simulation finished")
	return nil
}
