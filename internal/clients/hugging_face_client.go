package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/models"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const MODEL_LOADING_MARKER = "currently loading"

type HuggingFaceConfig struct {
	Endpoint string
	Token    string
	// MaxRetries is the total number of attempts while the model is loading.
	MaxRetries int
	// DefaultWait applies when a loading response carries no estimated_time.
	DefaultWait time.Duration
	// BreakerThreshold is the number of consecutive transport or 5xx failures
	// that opens the circuit. Zero disables the breaker.
	BreakerThreshold int
	Timeout          time.Duration
}

type HuggingFaceClient struct {
	Client  *http.Client
	Clock   clockwork.Clock
	Metrics *metrics.Metrics

	cfg     HuggingFaceConfig
	breaker *gobreaker.CircuitBreaker
}

func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = MAX_RETRIES
	}
	if cfg.DefaultWait <= 0 {
		cfg.DefaultWait = DEFAULT_LOADING_WAIT
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("endpoint", cfg.Endpoint),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("max_retries", cfg.MaxRetries))

	h := &HuggingFaceClient{
		Client: newBearerClient(cfg.Token, cfg.Timeout),
		Clock:  clockwork.NewRealClock(),
		cfg:    cfg,
	}

	if cfg.BreakerThreshold > 0 {
		h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "huggingface",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.BreakerThreshold)
			},
			IsSuccessful: func(err error) bool {
				return !endpointUnavailable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("[HuggingFaceClient] Circuit breaker state changed",
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}

	return h
}

// newBearerClient attaches the token to every request. Without a token the
// requests go out unauthenticated and the remote decides.
func newBearerClient(token string, timeout time.Duration) *http.Client {
	if token == "" {
		slog.Warn("[HuggingFaceClient] HF_API_TOKEN is empty, requests will be unauthenticated")
		return &http.Client{Timeout: timeout}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeout
	return client
}

// Classify returns the label of the first prediction for text, waiting for
// the remote model while it reports that it is loading.
func (h *HuggingFaceClient) Classify(ctx context.Context, text string) (string, error) {
	if h.breaker == nil {
		return h.classify(ctx, text)
	}

	out, err := h.breaker.Execute(func() (interface{}, error) {
		return h.classify(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &ClassificationError{Err: fmt.Errorf("circuit breaker: %w", err)}
		}
		return "", err
	}
	return out.(string), nil
}

// endpointUnavailable reports whether err says the endpoint itself is down.
// Rejections of a single input (4xx, odd payloads, a model that never
// finished loading) say nothing about the next comment and never count.
func endpointUnavailable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var classErr *ClassificationError
	if !errors.As(err, &classErr) {
		return true
	}
	if errors.Is(classErr.Err, ErrModelNotLoaded) || errors.Is(classErr.Err, ErrUnexpectedFormat) {
		return false
	}
	return classErr.StatusCode == 0 || classErr.StatusCode >= http.StatusInternalServerError
}

func (h *HuggingFaceClient) classify(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(models.InferenceRequest{Inputs: text})
	if err != nil {
		return "", &ClassificationError{Err: fmt.Errorf("failed to marshal input: %w", err)}
	}

	for attempt := 1; attempt <= h.cfg.MaxRetries; attempt++ {
		status, body, err := h.post(ctx, payload)
		if err != nil {
			return "", &ClassificationError{Err: err}
		}

		if status == http.StatusOK {
			return parseLabel(body)
		}

		wait, loading := h.loadingWait(body)
		if !loading {
			slog.Warn("[HuggingFaceClient] Inference request rejected",
				slog.Int("status", status),
				getPreview(body))
			return "", &ClassificationError{StatusCode: status, Body: string(body), Err: ErrAPICall}
		}

		if attempt == h.cfg.MaxRetries {
			break
		}

		slog.Info("[HuggingFaceClient] Model is loading, waiting before retry",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait))
		h.Metrics.ObserveModelLoadingWait(wait.Seconds())

		select {
		case <-h.Clock.After(wait):
		case <-ctx.Done():
			return "", &ClassificationError{Err: fmt.Errorf("waiting for model: %w", ctx.Err())}
		}
	}

	slog.Error("[HuggingFaceClient] Model did not load",
		slog.Int("attempts", h.cfg.MaxRetries))
	return "", &ClassificationError{Err: ErrModelNotLoaded}
}

func (h *HuggingFaceClient) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// loadingWait reports whether body is a "model is loading" error and how long
// the server asked us to wait.
func (h *HuggingFaceClient) loadingWait(body []byte) (time.Duration, bool) {
	var apiErr models.InferenceError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return 0, false
	}
	if !strings.Contains(apiErr.Error, MODEL_LOADING_MARKER) {
		return 0, false
	}
	if apiErr.EstimatedTime == nil || *apiErr.EstimatedTime < 0 {
		return h.cfg.DefaultWait, true
	}
	secs := *apiErr.EstimatedTime
	if secs > MAX_LOADING_WAIT.Seconds() {
		return MAX_LOADING_WAIT, true
	}
	return time.Duration(secs * float64(time.Second)), true
}

// parseLabel accepts {"label":..}, [{"label":..}, ...] and [[{"label":..}, ...]].
func parseLabel(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &ClassificationError{StatusCode: http.StatusOK, Body: string(body), Err: ErrUnexpectedFormat}
	}

	result := gjson.ParseBytes(body)
	for depth := 0; depth < 2 && result.IsArray(); depth++ {
		items := result.Array()
		if len(items) == 0 {
			break
		}
		result = items[0]
	}

	if result.IsObject() {
		if label := result.Get("label"); label.Type == gjson.String {
			return label.String(), nil
		}
	}
	return "", &ClassificationError{StatusCode: http.StatusOK, Body: string(body), Err: ErrUnexpectedFormat}
}

// HealthCheck reports whether the inference endpoint answers at all. Client
// errors count as healthy since they still prove the endpoint is reachable.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.Endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed",
			slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < http.StatusInternalServerError
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
