package clients

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotLoaded   = errors.New("model did not load")
	ErrUnexpectedFormat = errors.New("unexpected result format")
	ErrAPICall          = errors.New("api call failed")
)

// ClassificationError is returned by every remote classifier. Err is one of the
// sentinels above or the underlying transport error; Body holds the raw
// response when the remote rejected the request.
type ClassificationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ClassificationError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("classification failed: %v: %s", e.Err, e.Body)
	}
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
