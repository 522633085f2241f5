package config

import (
	"fmt"
	"strings"
	"time"

	"go-simpler.org/env"
)

const (
	BACKEND_HUGGINGFACE = "huggingface"
	BACKEND_VADER       = "vader"
	BACKEND_OPENAI      = "openai"

	DEFAULT_HF_API_URL = "https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	Port     string `env:"PORT" default:"8000"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	SentimentEnabled bool   `env:"SENTIMENT_ENABLED" default:"true"`
	SentimentBackend string `env:"SENTIMENT_BACKEND" default:"huggingface"`

	HFAPIToken         string        `env:"HF_API_TOKEN"`
	HFAPIURL           string        `env:"HF_API_URL" default:"https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment"`
	HFMaxRetries       int           `env:"HF_MAX_RETRIES" default:"5"`
	HFDefaultWait      time.Duration `env:"HF_DEFAULT_WAIT" default:"20s"`
	HFBreakerThreshold int           `env:"HF_BREAKER_THRESHOLD" default:"0"`
	// HFRequestTimeout bounds a single inference call. Zero leaves it to the
	// caller's context.
	HFRequestTimeout time.Duration `env:"HF_REQUEST_TIMEOUT" default:"0s"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" default:"gpt-4o-mini"`

	HealthcheckInterval time.Duration `env:"HEALTHCHECK_INTERVAL" default:"15s"`
}

// Load reads the process environment. Call LoadEnv first to pick up an env file.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.SentimentBackend = strings.ToLower(cfg.SentimentBackend)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.SentimentBackend {
	case BACKEND_HUGGINGFACE, BACKEND_VADER:
	case BACKEND_OPENAI:
		if cfg.SentimentEnabled && cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when SENTIMENT_BACKEND=%s", BACKEND_OPENAI)
		}
	default:
		return fmt.Errorf("unknown SENTIMENT_BACKEND %q", cfg.SentimentBackend)
	}

	if cfg.HFAPIURL == "" {
		return fmt.Errorf("HF_API_URL must not be empty")
	}
	if cfg.HFMaxRetries < 1 {
		return fmt.Errorf("HF_MAX_RETRIES must be at least 1, got %d", cfg.HFMaxRetries)
	}
	if cfg.HFBreakerThreshold < 0 {
		return fmt.Errorf("HF_BREAKER_THRESHOLD must not be negative, got %d", cfg.HFBreakerThreshold)
	}
	if cfg.HFRequestTimeout < 0 {
		return fmt.Errorf("HF_REQUEST_TIMEOUT must not be negative, got %s", cfg.HFRequestTimeout)
	}
	return nil
}
