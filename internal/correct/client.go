package correct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llm "github.com/redink-dev/redink/pkg/provider/llm"
)

const (
	defaultTemperature = 0.2
)

// ClientOption is a functional option for configuring a [Client].
type ClientOption func(*Client)

// WithTemperature sets the sampling temperature for correction requests.
// Lower values produce more deterministic corrections. Default: 0.2.
func WithTemperature(temp float64) ClientOption {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens caps the completion length per request. Zero leaves the
// provider default in place.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// Client performs a single correction exchange with an [llm.Provider]: one
// system instruction, one user segment, one completion. It holds no per-call
// state and is safe for concurrent use.
//
// Model selection follows the one-provider-per-model pattern: to correct with
// a specific model, construct the [llm.Provider] with that model configured,
// rather than overriding per-request.
type Client struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// NewClient returns a new [Client] backed by the given [llm.Provider].
func NewClient(provider llm.Provider, opts ...ClientOption) *Client {
	c := &Client{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetCorrection sends one segment to the model under the fixed correction
// instruction and returns the raw completion text. The caller is responsible
// for parsing; see [Parse].
//
// Failures are classified: backend rejections (non-success status, empty
// completion) come back as a [*UpstreamError], everything that prevented a
// response from arriving at all as a [*TransportError]. Exactly one request
// is made per call; there is no retry.
func (c *Client) GetCorrection(ctx context.Context, segment string) (string, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: segment},
		},
	}

	resp, err := c.llm.Complete(ctx, req)
	if err != nil {
		if se, ok := llm.AsStatusError(err); ok {
			return "", &UpstreamError{Status: se.Code, Err: err}
		}
		return "", &TransportError{Err: err}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &UpstreamError{Err: errors.New("empty completion")}
	}

	return resp.Content, nil
}

// correctSegment runs the full exchange for one segment: request, then parse.
func (c *Client) correctSegment(ctx context.Context, segment string) ([]Item, error) {
	raw, err := c.GetCorrection(ctx, segment)
	if err != nil {
		return nil, err
	}
	items, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("segment response: %w", err)
	}
	return items, nil
}
