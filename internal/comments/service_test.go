package comments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spacesedan/commentflow/internal/clients"
	"github.com/spacesedan/commentflow/internal/metrics"
	"github.com/spacesedan/commentflow/internal/models"
	"github.com/spacesedan/commentflow/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	comments []models.RawComment
	failAt   int
	err      error
	gotSort  int
	gotURL   string
}

func (f *fakeSource) Comments(_ context.Context, videoURL string, sortBy int) iter.Seq2[models.RawComment, error] {
	f.gotURL = videoURL
	f.gotSort = sortBy
	return func(yield func(models.RawComment, error) bool) {
		for i, c := range f.comments {
			if f.err != nil && i == f.failAt {
				yield(models.RawComment{}, f.err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil && f.failAt >= len(f.comments) {
			yield(models.RawComment{}, f.err)
		}
	}
}

func constantLabel(label string) sentiment.Classifier {
	return sentiment.ClassifierFunc(func(context.Context, string) (string, error) {
		return label, nil
	})
}

func twoComments() *fakeSource {
	return &fakeSource{comments: []models.RawComment{
		{Text: "a", Votes: 3},
		{Text: "b", Votes: 0, Reply: true},
	}}
}

func TestCollect_EndToEnd(t *testing.T) {
	src := twoComments()
	svc := NewService(src, constantLabel("LABEL_1"), nil)

	resp, err := svc.Collect(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[`+
		`{"text":"a","sentiment":"LABEL_1","votes":3,"hearted":false,"replies":0,"time":"Unknown"},`+
		`{"text":"b","sentiment":"LABEL_1","votes":0,"hearted":false,"replies":1,"time":"Unknown"}]}`, string(out))

	assert.Equal(t, clients.SORT_BY_RECENT, src.gotSort)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", src.gotURL)
}

func TestCollect_WithoutSentiment(t *testing.T) {
	svc := NewService(twoComments(), nil, nil)

	resp, err := svc.Collect(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[`+
		`{"text":"a","votes":3,"hearted":false,"replies":0,"time":"Unknown"},`+
		`{"text":"b","votes":0,"hearted":false,"replies":1,"time":"Unknown"}]}`, string(out))
	assert.False(t, svc.SentimentEnabled())
}

func TestCollect_ClassificationFailureIsPerComment(t *testing.T) {
	cause := &clients.ClassificationError{Err: clients.ErrModelNotLoaded}
	classifier := sentiment.ClassifierFunc(func(_ context.Context, text string) (string, error) {
		if text == "a" {
			return "", cause
		}
		return "LABEL_2", nil
	})
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(twoComments(), classifier, m)

	resp, err := svc.Collect(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	require.Len(t, resp.Comments, 2)

	first := resp.Comments[0].Sentiment
	require.NotNil(t, first)
	assert.True(t, first.Failed())
	assert.ErrorIs(t, first.Err, clients.ErrModelNotLoaded)
	assert.Equal(t, sentiment.LABEL_ERROR, first.String())

	assert.Equal(t, "LABEL_2", resp.Comments[1].Sentiment.Label)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommentsFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("success")))
}

func TestCollect_SourceFailureMidIteration(t *testing.T) {
	src := twoComments()
	src.failAt = 1
	src.err = errors.New("error returned from server: Video unavailable")
	svc := NewService(src, constantLabel("LABEL_1"), nil)

	resp, err := svc.Collect(context.Background(), "https://www.youtube.com/watch?v=abc")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", svcErr.URL)
	assert.Contains(t, err.Error(), "Video unavailable")
	assert.Empty(t, resp.Comments)
}

func TestCollect_EmptySourceReturnsEmptyList(t *testing.T) {
	svc := NewService(&fakeSource{}, constantLabel("LABEL_1"), nil)

	resp, err := svc.Collect(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[]}`, string(out))
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(twoComments(), constantLabel("LABEL_1"), nil)
	_, err := svc.Collect(ctx, "https://www.youtube.com/watch?v=abc")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollect_RejectedCommentsDoNotAffectLaterOnes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "too long") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Input is too long"}`)
			return
		}
		_, _ = io.WriteString(w, `[[{"label":"LABEL_2","score":0.9}]]`)
	}))
	defer srv.Close()

	hf := clients.NewHuggingFaceClient(clients.HuggingFaceConfig{
		Endpoint:         srv.URL,
		Token:            "hf_test",
		BreakerThreshold: clients.MAX_RETRIES,
	})

	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.comments = append(src.comments, models.RawComment{Text: "too long"})
	}
	src.comments = append(src.comments, models.RawComment{Text: "nice"})

	resp, err := NewService(src, hf, nil).Collect(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	require.Len(t, resp.Comments, 6)

	for _, c := range resp.Comments[:5] {
		assert.True(t, c.Sentiment.Failed())
	}
	assert.False(t, resp.Comments[5].Sentiment.Failed())
	assert.Equal(t, "LABEL_2", resp.Comments[5].Sentiment.Label)

	second, err := NewService(&fakeSource{comments: []models.RawComment{{Text: "again"}}}, hf, nil).
		Collect(context.Background(), "https://www.youtube.com/watch?v=def")
	require.NoError(t, err)
	assert.Equal(t, "LABEL_2", second.Comments[0].Sentiment.Label)
}
