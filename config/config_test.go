package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "PORT", "LOG_LEVEL", "SENTIMENT_ENABLED", "SENTIMENT_BACKEND",
	"HF_API_TOKEN", "HF_API_URL", "HF_MAX_RETRIES", "HF_DEFAULT_WAIT",
	"HF_BREAKER_THRESHOLD", "HF_REQUEST_TIMEOUT", "OPENAI_API_KEY",
	"OPENAI_MODEL", "HEALTHCHECK_INTERVAL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.SentimentEnabled)
	assert.Equal(t, BACKEND_HUGGINGFACE, cfg.SentimentBackend)
	assert.Equal(t, DEFAULT_HF_API_URL, cfg.HFAPIURL)
	assert.Empty(t, cfg.HFAPIToken)
	assert.Equal(t, 5, cfg.HFMaxRetries)
	assert.Equal(t, 20*time.Second, cfg.HFDefaultWait)
	assert.Zero(t, cfg.HFBreakerThreshold)
	assert.Zero(t, cfg.HFRequestTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 15*time.Second, cfg.HealthcheckInterval)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SENTIMENT_ENABLED", "false")
	t.Setenv("SENTIMENT_BACKEND", "VADER")
	t.Setenv("HF_DEFAULT_WAIT", "3s")
	t.Setenv("HF_REQUEST_TIMEOUT", "10s")
	t.Setenv("HF_BREAKER_THRESHOLD", "5")
	t.Setenv("HEALTHCHECK_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.SentimentEnabled)
	assert.Equal(t, BACKEND_VADER, cfg.SentimentBackend)
	assert.Equal(t, 3*time.Second, cfg.HFDefaultWait)
	assert.Equal(t, 10*time.Second, cfg.HFRequestTimeout)
	assert.Equal(t, 5, cfg.HFBreakerThreshold)
	assert.Equal(t, time.Minute, cfg.HealthcheckInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"SENTIMENT_BACKEND": "bert"}},
		{"openai without key", map[string]string{"SENTIMENT_BACKEND": "openai"}},
		{"zero retries", map[string]string{"HF_MAX_RETRIES": "0"}},
		{"malformed retries", map[string]string{"HF_MAX_RETRIES": "not-a-number"}},
		{"malformed duration", map[string]string{"HF_DEFAULT_WAIT": "soon"}},
		{"negative breaker", map[string]string{"HF_BREAKER_THRESHOLD": "-1"}},
		{"negative timeout", map[string]string{"HF_REQUEST_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
