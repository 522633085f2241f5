package clients

import "time"

const (
	MAX_RETRIES          = 5
	DEFAULT_LOADING_WAIT = 20 * time.Second
	// MAX_LOADING_WAIT caps a server-suggested estimated_time.
	MAX_LOADING_WAIT     = 10 * time.Minute
	USER_AGENT           = "commentflow-client/1.0 (+https://github.com/spacesedan/commentflow)"
)
