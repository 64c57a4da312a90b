package ga4

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError indicates a bad or missing property configuration file.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("property config %s: %s", e.Path, e.Reason)
}

// InvalidFieldError indicates an unrecognized dimension or metric name.
// Names are checked against the field catalog before any remote call, so
// typos fail here instead of as an opaque remote error.
type InvalidFieldError struct {
	Field string
	Kind  string // "dimension" or "metric"
}

func (e *InvalidFieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("at least one %s is required", e.Kind)
	}
	return fmt.Sprintf("unrecognized %s %q", e.Kind, e.Field)
}

// InvalidDateRangeError indicates an unparsable date token or a resolved
// range where start falls after end.
type InvalidDateRangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s", e.Start, e.End, e.Reason)
}

// UnknownLabelError reports every requested label missing from the source
// map, not just the first, so a bad call can be fixed in one pass.
type UnknownLabelError struct {
	Labels []string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("labels not found in property config: %s", strings.Join(e.Labels, ", "))
}

// AuthError indicates the remote rejected our credentials for a property.
type AuthError struct {
	PropertyID string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failed for %s (status %d): %s", e.PropertyID, e.StatusCode, e.Message)
}

// RateLimitedError indicates the remote returned a quota/rate-limit
// response. RetryAfter is zero when the remote supplied no hint.
type RateLimitedError struct {
	PropertyID string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited on %s (retry after %s)", e.PropertyID, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited on %s", e.PropertyID)
}

// TransientError wraps a network-level failure that survived the internal
// retry policy.
type TransientError struct {
	PropertyID string
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure querying %s: %v", e.PropertyID, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// SchemaMismatchError flags an internal invariant violation: two per-source
// tables built from the same dimension/metric lists disagree on columns.
type SchemaMismatchError struct {
	Want []string
	Got  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("table schema mismatch: want columns [%s], got [%s]",
		strings.Join(e.Want, " "), strings.Join(e.Got, " "))
}

// SourceFailure is one failed source in a best-effort fan-out.
type SourceFailure struct {
	Label string
	Err   error
}

// PartialFailure is returned by QueryAll under the best-effort policy when
// at least one source failed. The accompanying table still carries all rows
// from the sources that succeeded.
type PartialFailure struct {
	Failures []SourceFailure
}

func (e *PartialFailure) Error() string {
	labels := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		labels[i] = f.Label
	}
	return fmt.Sprintf("%d of the queried sources failed: %s", len(e.Failures), strings.Join(labels, ", "))
}
