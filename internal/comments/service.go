package comments

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/spacesedan/commentflow/internal/clients"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/models"
	"github.com/spacesedan/commentflow/internal/sentiment"
)

// Source yields the comments of a video, most recent first.
type Source interface {
	Comments(ctx context.Context, videoURL string, sortBy int) iter.Seq2[models.RawComment, error]
}

// ServiceError wraps a failure to read comments. It aborts the whole request.
type ServiceError struct {
	URL string
	Err error
}

func (e *ServiceError) Error() string { return e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

type Service struct {
	source     Source
	classifier sentiment.Classifier
	metrics    *metrics.Metrics
}

// NewService builds the comment pipeline. A nil classifier disables sentiment
// and the records carry no sentiment field.
func NewService(source Source, classifier sentiment.Classifier, m *metrics.Metrics) *Service {
	return &Service{
		source:     source,
		classifier: classifier,
		metrics:    m,
	}
}

func (s *Service) SentimentEnabled() bool {
	return s.classifier != nil
}

// Collect reads every comment of videoURL and classifies each one in turn.
// A classification failure is recorded on its comment and never fails the call.
func (s *Service) Collect(ctx context.Context, videoURL string) (models.CommentsResponse, error) {
	start := time.Now()
	records := make([]models.CommentRecord, 0)
	failed := 0

	for raw, err := range s.source.Comments(ctx, videoURL, clients.SORT_BY_RECENT) {
		if err != nil {
			slog.Error("[CommentService] Failed to read comments",
				slog.String("url", videoURL),
				slog.Int("read", len(records)),
				slog.String("error", err.Error()))
			return models.CommentsResponse{}, &ServiceError{URL: videoURL, Err: err}
		}
		s.metrics.ObserveComment()

		record := models.NewCommentRecord(raw)
		if s.classifier != nil {
			record.Sentiment = s.classify(ctx, raw.Text)
			if record.Sentiment.Failed() {
				failed++
			}
		}
		records = append(records, record)
	}

	if err := ctx.Err(); err != nil {
		return models.CommentsResponse{}, &ServiceError{URL: videoURL, Err: fmt.Errorf("request cancelled: %w", err)}
	}

	slog.Info("[CommentService] Collected comments",
		slog.String("url", videoURL),
		slog.Int("comments", len(records)),
		slog.Int("sentiment_errors", failed),
		slog.Duration("elapsed", time.Since(start)))

	return models.CommentsResponse{Comments: records}, nil
}

func (s *Service) classify(ctx context.Context, text string) *sentiment.Result {
	label, err := s.classifier.Classify(ctx, text)
	s.metrics.ObserveClassification(err != nil)
	if err != nil {
		slog.Debug("[CommentService] Classification failed",
			slog.String("error", err.Error()))
		return sentiment.Failure(err)
	}
	return sentiment.Success(label)
}
