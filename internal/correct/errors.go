package correct

import (
	"errors"
	"fmt"
)

// ErrNoSegments is returned by [Corrector.Correct] when the segment list is
// empty, before any model request is dispatched.
var ErrNoSegments = errors.New("correct: no segments to correct")

// ErrAllSegmentsFailed is returned by [Corrector.Correct] when every segment
// failed or produced an unparsable response, so no usable outcome exists.
var ErrAllSegmentsFailed = errors.New("correct: all segments failed")

// TransportError reports a request that never produced a usable response from
// the model backend: connection failures, timeouts, context cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("correct: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError reports a request that reached the model backend but came
// back unusable: a non-success status, a malformed response envelope, or an
// empty completion. Status is zero when no HTTP status applies.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("correct: upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("correct: upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// rawExcerptLimit caps how much raw model output an UnparsableError carries.
const rawExcerptLimit = 300

// UnparsableError reports model output from which no correction list could be
// recovered by any parse strategy. Raw holds a truncated excerpt of the
// offending output for diagnostics.
type UnparsableError struct {
	Raw string
	Err error
}

func (e *UnparsableError) Error() string {
	return fmt.Sprintf("correct: unparsable response %q: %v", e.Raw, e.Err)
}

func (e *UnparsableError) Unwrap() error { return e.Err }

// excerpt truncates s for inclusion in an UnparsableError.
func excerpt(s string) string {
	if len(s) <= rawExcerptLimit {
		return s
	}
	return s[:rawExcerptLimit] + "..."
}
