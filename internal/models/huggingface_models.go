package models

type InferenceRequest struct {
	Inputs string `json:"inputs"`
}

// InferenceError is the body the inference API returns on non-200 responses.
// EstimatedTime is in seconds and only set while the model is loading.
type InferenceError struct {
	Error         string   `json:"error"`
	EstimatedTime *float64 `json:"estimated_time,omitempty"`
}
