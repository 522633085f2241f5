package app

import (
	"log/slog"

	"github.com/spacesedan/commentflow/config"
	"github.com/spacesedan/commentflow/internal/clients"
	"github.com/spacesedan/commentflow/internal/comments"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/monitoring"
	"github.com/spacesedan/commentflow/internal/sentiment"
)

// NewClassifier builds the configured sentiment backend. The health checker is
// nil for backends that cannot be probed. Both are nil when sentiment is off.
func NewClassifier(cfg *config.Config, m *metrics.Metrics) (sentiment.Classifier, monitoring.HealthChecker) {
	if !cfg.SentimentEnabled {
		slog.Info("[App] Sentiment analysis disabled")
		return nil, nil
	}

	switch cfg.SentimentBackend {
	case config.BACKEND_VADER:
		return sentiment.VaderClassifier{}, nil
	case config.BACKEND_OPENAI:
		return clients.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, ""), nil
	default:
		hf := clients.NewHuggingFaceClient(clients.HuggingFaceConfig{
			Endpoint:         cfg.HFAPIURL,
			Token:            cfg.HFAPIToken,
			MaxRetries:       cfg.HFMaxRetries,
			DefaultWait:      cfg.HFDefaultWait,
			BreakerThreshold: cfg.HFBreakerThreshold,
			Timeout:          cfg.HFRequestTimeout,
		})
		hf.Metrics = m
		return hf, hf
	}
}

func NewCommentService(cfg *config.Config, m *metrics.Metrics) (*comments.Service, monitoring.HealthChecker) {
	classifier, checker := NewClassifier(cfg, m)
	return comments.NewService(clients.NewYouTubeClient(), classifier, m), checker
}
