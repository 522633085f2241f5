package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spacesedan/commentflow/internal/sentiment"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests

	openAISentimentPrompt = "You classify the sentiment of YouTube comments. " +
		"Reply with exactly one word: POSITIVE, NEUTRAL or NEGATIVE."
)

type OpenAIClient struct {
	Client *openai.Client
	Model  string
}

// NewOpenAIClient builds a classifier backed by chat completions. baseURL may
// be empty to use the public API.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{
		Timeout: openAIRequestTimeout,
	}
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", model),
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIClient{
		Client: openai.NewClientWithConfig(config),
		Model:  model,
	}
}

func (o *OpenAIClient) Classify(ctx context.Context, text string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Temperature: 0,
		MaxTokens:   3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", &ClassificationError{Err: fmt.Errorf("chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &ClassificationError{Err: ErrUnexpectedFormat}
	}

	content := resp.Choices[0].Message.Content
	label, ok := normalizeLabel(content)
	if !ok {
		slog.Warn("[OpenAIClient] Unrecognised label",
			slog.String("content", content))
		return "", &ClassificationError{Body: content, Err: ErrUnexpectedFormat}
	}
	return label, nil
}

func normalizeLabel(raw string) (string, bool) {
	word := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), ".!\"'"))
	switch word {
	case sentiment.LABEL_POSITIVE, sentiment.LABEL_NEUTRAL, sentiment.LABEL_NEGATIVE:
		return word, true
	default:
		return "", false
	}
}
