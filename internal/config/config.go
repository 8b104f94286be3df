// Package config centralises all environment configuration for the API.
// It should be imported only by `cmd/server` (and test code). Business-logic
// layers receive an already-built Config instance via dependency-injection.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
)

// Config holds every runtime option the server needs.
// Keep it flat and simple; prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port        string `validate:"required,numeric"`
	CORSOrigins string

	// External services
	GitHubToken      string
	GitHubAPIURL     string  `validate:"required,url"`
	GitHubRatePerSec float64 `validate:"gt=0"`
	GitHubTimeout    time.Duration

	// Learner
	ModelKind        string  `validate:"oneof=linear network"`
	LearningRate     float64 `validate:"gte=0"`
	FeatureDim       int     `validate:"gt=0"`
	ExplorationRate  float64 `validate:"gte=0,lte=1"`
	ExplorationDecay float64 `validate:"gt=0,lte=1"`
	Discount         float64 `validate:"gt=0,lte=1"`
	BatchSize        int     `validate:"gt=0"`
	ReplayCapacity   int     `validate:"gt=0"`
	TargetSyncProb   float64 `validate:"gt=0,lte=1"`
	RandomSeed       uint64

	// Recommendation defaults
	TopN            int `validate:"gt=0,lte=100"`
	DefaultMinStars int `validate:"gte=0"`

	// Model persistence
	ModelStore    string `validate:"oneof=file mongo"`
	ModelPath     string `validate:"required_if=ModelStore file"`
	MongoURI      string `validate:"required_if=ModelStore mongo"`
	DBName        string
	AutoloadModel bool

	// Server tuning
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string `validate:"oneof=json console"`
}

// Load parses the environment (and an optional .env file) into Config and
// validates it.
func Load() (Config, error) {
	// godotenv.Load() is a no-op if .env doesn't exist, so it is safe in production.
	_ = godotenv.Load()

	cfg := Config{
		Port:             getEnv("PORT", "8000"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL:     getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubRatePerSec: getFloat("GITHUB_RATE_PER_SEC", 5),
		GitHubTimeout:    getDuration("GITHUB_TIMEOUT_SEC", 10),
		ModelKind:        strings.ToLower(getEnv("MODEL_KIND", "linear")),
		LearningRate:     getFloat("LEARNING_RATE", 0),
		FeatureDim:       getInt("FEATURE_DIM", 100),
		ExplorationRate:  getFloat("EXPLORATION_RATE", 0.1),
		ExplorationDecay: getFloat("EXPLORATION_DECAY", 0.995),
		Discount:         getFloat("DISCOUNT", 0.99),
		BatchSize:        getInt("BATCH_SIZE", 32),
		ReplayCapacity:   getInt("REPLAY_CAPACITY", 1000),
		TargetSyncProb:   getFloat("TARGET_SYNC_PROB", 0.1),
		RandomSeed:       uint64(getInt("RANDOM_SEED", 0)),
		TopN:             getInt("TOP_N", 3),
		DefaultMinStars:  getInt("DEFAULT_MIN_STARS", 10),
		ModelStore:       strings.ToLower(getEnv("MODEL_STORE", "file")),
		ModelPath:        getEnv("MODEL_PATH", "recommender_model.json"),
		MongoURI:         os.Getenv("MONGODB_URI"),
		DBName:           getEnv("MONGODB_DB", "repo_recommender"),
		AutoloadModel:    getBool("AUTOLOAD_MODEL", false),
		ReadTimeout:      getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout:     getDuration("WRITE_TIMEOUT_SEC", 10),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return goerr.Wrap(err, "invalid configuration")
	}
	return nil
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	return time.Duration(getInt(key, defaultSec)) * time.Second
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logging.Warn().Str("key", key).Str("value", v).Int("default", defaultVal).Msg("invalid integer; using default")
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logging.Warn().Str("key", key).Str("value", v).Float64("default", defaultVal).Msg("invalid number; using default")
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		logging.Warn().Str("key", key).Str("value", v).Bool("default", defaultVal).Msg("invalid boolean; using default")
	}
	return defaultVal
}
