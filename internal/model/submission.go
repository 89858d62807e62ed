package model

// SubmissionResult is the outcome of posting credentials to an endpoint.
// It is shown to the user and then discarded.
type SubmissionResult struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Body       string `json:"body,omitempty"`
	Message    string `json:"message,omitempty"`
}
