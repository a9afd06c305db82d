package llm

import "context"

// Completer is a chat-completion backend.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is one chat turn sent to a Completer. Nil pointer
// fields leave the backend default in place.
type CompletionRequest struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
	Stop        []string
}

// CompletionResponse is the backend reply.
type CompletionResponse struct {
	Content string

	// FinishReason is backend specific; "stop" or empty means the reply
	// was not cut short.
	FinishReason string

	Usage TokenUsage
}

// TokenUsage counts tokens for one or more requests.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// CompletionOption adjusts a CompletionRequest.
type CompletionOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompletionOption {
	return func(r *CompletionRequest) { r.Temperature = &t }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) CompletionOption {
	return func(r *CompletionRequest) { r.MaxTokens = &n }
}

// WithStopSequences ends generation at any of stops.
func WithStopSequences(stops ...string) CompletionOption {
	return func(r *CompletionRequest) { r.Stop = stops }
}

// NewCompletionRequest builds a request for messages.
func NewCompletionRequest(messages []Message, opts ...CompletionOption) *CompletionRequest {
	req := &CompletionRequest{Messages: messages}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// IsComplete reports whether the reply ran to a natural stop.
func (r *CompletionResponse) IsComplete() bool {
	return r.FinishReason == "" || r.FinishReason == "stop"
}

// Add returns the sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}
