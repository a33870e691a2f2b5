package correct

import (
	"context"
	"errors"
	"testing"

	llm "github.com/redink-dev/redink/pkg/provider/llm"
	"github.com/redink-dev/redink/pkg/provider/llm/mock"
)

// TestGetCorrection_Success checks the happy path and the request shape.
func TestGetCorrection_Success(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `[]`},
	}
	c := NewClient(p, WithTemperature(0.5), WithMaxTokens(1024))

	got, err := c.GetCorrection(context.Background(), "He go home.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[]` {
		t.Errorf("unexpected content: %q", got)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt == "" {
		t.Error("expected a system prompt on the request")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected exactly one user message, got %+v", req.Messages)
	}
	if req.Messages[0].Content != "He go home." {
		t.Errorf("segment not forwarded verbatim: %q", req.Messages[0].Content)
	}
	if req.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", req.Temperature)
	}
	if req.MaxTokens != 1024 {
		t.Errorf("expected max tokens 1024, got %d", req.MaxTokens)
	}
}

// TestGetCorrection_StatusErrorBecomesUpstream checks classification of
// backend rejections.
func TestGetCorrection_StatusErrorBecomesUpstream(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteErr: &llm.StatusError{Code: 429, Message: "rate limited"},
	}
	c := NewClient(p)

	_, err := c.GetCorrection(context.Background(), "x")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if ue.Status != 429 {
		t.Errorf("expected status 429, got %d", ue.Status)
	}
}

// TestGetCorrection_NetworkErrorBecomesTransport checks classification of
// failures that never produced a response.
func TestGetCorrection_NetworkErrorBecomesTransport(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	p := &mock.Provider{CompleteErr: cause}
	c := NewClient(p)

	_, err := c.GetCorrection(context.Background(), "x")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be wrapped")
	}
}

// TestGetCorrection_EmptyCompletion checks that a blank completion is an
// upstream failure, not a success.
func TestGetCorrection_EmptyCompletion(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "   \n"},
	}
	c := NewClient(p)

	_, err := c.GetCorrection(context.Background(), "x")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
}

// TestGetCorrection_NoRetry checks that a failing call makes exactly one request.
func TestGetCorrection_NoRetry(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: errors.New("boom")}
	c := NewClient(p)

	_, _ = c.GetCorrection(context.Background(), "x")
	if n := len(p.Calls()); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}
