package model

// ExecutionRequest is the body of POST /api/code and of NATS execution requests
type ExecutionRequest struct {
	Value    string `json:"value"`
	Language string `json:"language"`
	Input    string `json:"input,omitempty"`
}

// ExecutionResponse is the reply for executed code. Output is empty whenever
// Error is set.
type ExecutionResponse struct {
	Output     string `json:"output,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// FileContentResponse carries the last staged input or produced output
type FileContentResponse struct {
	Content string `json:"content"`
}

// ErrorResponse is returned for every non-200 HTTP reply
type ErrorResponse struct {
	Error string `json:"error"`
}
