package sentiment

import (
	"context"
	"encoding/json"
)

const (
	LABEL_POSITIVE = "POSITIVE"
	LABEL_NEUTRAL  = "NEUTRAL"
	LABEL_NEGATIVE = "NEGATIVE"
	LABEL_ERROR    = "ERROR"
)

// Classifier returns a categorical label for a piece of text. Labels from
// remote models are passed through as the model reports them.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (string, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Result is the per-comment outcome of a classification. A failed
// classification keeps its error and serialises as LABEL_ERROR.
type Result struct {
	Label string
	Err   error
}

func Success(label string) *Result {
	return &Result{Label: label}
}

func Failure(err error) *Result {
	return &Result{Err: err}
}

func (r *Result) Failed() bool {
	return r.Err != nil
}

func (r *Result) String() string {
	if r.Failed() {
		return LABEL_ERROR
	}
	return r.Label
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	r.Label = label
	r.Err = nil
	return nil
}
