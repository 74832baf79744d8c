package query

import "fmt"

// Failure codes surfaced to callers.
const (
	CodeInvalidQuery           = "INVALID_QUERY"
	CodeInvalidMetricDimension = "INVALID_METRIC_DIMENSION_MIX"
	CodeMissingPagination      = "MISSING_PAGINATION"
	CodeWildcardInIsFilter     = "WILDCARD_IN_IS_FILTER"
	CodeMissingSiteID          = "MISSING_SITE_ID"
	CodeMissingAPIKey          = "MISSING_API_KEY"
	CodeNetworkError           = "NETWORK_ERROR"
	CodeUpstreamError          = "UPSTREAM_ERROR"
	CodeBadUpstreamResponse    = "BAD_UPSTREAM_RESPONSE"
)

// Failure is the envelope every pipeline error serializes to. The
// command surface formats all failure kinds through this one shape.
type Failure struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (f *Failure) Error() string {
	if f.Suggestion != "" {
		return fmt.Sprintf("%s: %s (suggestion: %s)", f.Code, f.Message, f.Suggestion)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Violation is a single validator finding.
type Violation struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationFailure is returned before any I/O happens. Violations
// holds every finding from the single validation pass, in rule order;
// the embedded envelope carries the first one so callers that only look
// at one error get a deterministic answer.
type ValidationFailure struct {
	Failure
	Violations []Violation `json:"violations"`
}

func newValidationFailure(violations []Violation) *ValidationFailure {
	first := violations[0]
	return &ValidationFailure{
		Failure: Failure{
			Code:       first.Code,
			Message:    first.Message,
			Suggestion: first.Suggestion,
		},
		Violations: violations,
	}
}

// ConfigFailure means a required setting (site, credential) is absent.
// Never retried; names the missing setting.
type ConfigFailure struct {
	Failure
}

func newConfigFailure(code, message, suggestion string) *ConfigFailure {
	return &ConfigFailure{Failure{Code: code, Message: message, Suggestion: suggestion}}
}

// NetworkFailure wraps transport errors: DNS, connection resets,
// timeouts. The core does not retry; that policy belongs to callers.
type NetworkFailure struct {
	Failure
	Cause error `json:"-"`
}

func (f *NetworkFailure) Unwrap() error { return f.Cause }

func newNetworkFailure(message string, cause error) *NetworkFailure {
	nf := &NetworkFailure{
		Failure: Failure{
			Code:       CodeNetworkError,
			Message:    message,
			Suggestion: "check network connectivity and that the API endpoint is reachable",
		},
		Cause: cause,
	}
	if cause != nil {
		nf.Details = cause.Error()
	}
	return nf
}

// UpstreamFailure is a non-2xx response or an undecodable 2xx body.
// The message is classified by substring-matching the response body.
type UpstreamFailure struct {
	Failure
	StatusCode int `json:"status_code,omitempty"`
}
