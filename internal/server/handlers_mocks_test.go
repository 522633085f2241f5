package server

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/spacesedan/commentflow/internal/models"
)

type mockCommentService struct {
	collectFn        func(ctx context.Context, videoURL string) (models.CommentsResponse, error)
	sentimentEnabled bool
	gotURL           string
}

func (m *mockCommentService) Collect(ctx context.Context, videoURL string) (models.CommentsResponse, error) {
	m.gotURL = videoURL
	if m.collectFn != nil {
		return m.collectFn(ctx, videoURL)
	}
	return models.CommentsResponse{Comments: []models.CommentRecord{}}, nil
}

func (m *mockCommentService) SentimentEnabled() bool {
	return m.sentimentEnabled
}

func newTestServer(t *testing.T, svc commentService, healthy *atomic.Bool) *Server {
	t.Helper()
	return NewServer("0", svc, nil, nil, healthy)
}
