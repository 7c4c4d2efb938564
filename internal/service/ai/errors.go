package ai

import "fmt"

// UpstreamError reports a non-success response from the completion
// endpoint, carrying the remote-reported message so the shell can show
// it.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion api error: %s", e.Message)
}

// NetworkError reports a transport-level failure reaching the completion
// endpoint.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
