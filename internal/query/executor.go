package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"plausctl/internal/api"
	"plausctl/internal/audit"
	"plausctl/internal/cache"
)

// DefaultTimeout bounds the remote call when the caller doesn't.
const DefaultTimeout = 30 * time.Second

// Settings is the resolved configuration the executor dispatches with.
type Settings struct {
	SiteID  string // default site, used when the query doesn't name one
	APIKey  string
	BaseURL string
}

// Options tune a single execution.
type Options struct {
	NoCache bool
	Timeout time.Duration
}

// Executor is the single choke point every query passes through. It
// sequences validate, cache lookup, dispatch, response check and cache
// store, and is the only component that performs network I/O.
type Executor struct {
	client   *api.Client
	store    *cache.Cache
	trail    *audit.Logger
	settings Settings
}

// NewExecutor wires an executor from resolved settings. store may be
// nil to disable caching entirely; a nil trail discards audit events.
func NewExecutor(settings Settings, store *cache.Cache, trail *audit.Logger) *Executor {
	if trail == nil {
		trail = audit.Discard()
	}
	return &Executor{
		client:   api.NewClient(settings.BaseURL, settings.APIKey),
		store:    store,
		trail:    trail,
		settings: settings,
	}
}

// Execute runs the full pipeline for one query. An invalid query never
// reaches the cache or the network, so it can't poison either.
func (e *Executor) Execute(ctx context.Context, q *Query, opts Options) (*api.QueryResponse, error) {
	if vf := Validate(q); vf != nil {
		e.trail.ValidationRejected(vf.Code, vf.Message)
		return nil, vf
	}

	resolved := *q
	if resolved.SiteID == "" {
		resolved.SiteID = e.settings.SiteID
	}
	if resolved.SiteID == "" {
		cf := newConfigFailure(CodeMissingSiteID,
			"no site identifier provided and no default configured",
			"set a default with 'plausctl config set --site', activate a site profile, or export PLAUSIBLE_SITE_ID")
		e.trail.Error(cf.Code, cf)
		return nil, cf
	}
	if e.settings.APIKey == "" {
		cf := newConfigFailure(CodeMissingAPIKey,
			"no API key configured",
			"set one with 'plausctl config set --api-key' or export PLAUSIBLE_API_KEY")
		e.trail.Error(cf.Code, cf)
		return nil, cf
	}

	key, err := CacheKey(&resolved)
	if err != nil {
		// Hashing only fails on a non-serializable query, which the
		// validator has already excluded. Fall back to uncached.
		key = ""
	}

	useCache := !opts.NoCache && e.store != nil && key != ""
	if useCache {
		if raw, ok := e.store.Get(key); ok {
			var cached api.QueryResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				e.trail.CacheHit(resolved.SiteID, key)
				return &cached, nil
			}
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.trail.RequestDispatched(resolved.SiteID, key)
	resp, err := e.client.Query(callCtx, &resolved)
	if err != nil {
		failure := e.classify(err, timeout)
		e.trail.Error(failureCode(failure), failure)
		return nil, failure
	}

	if useCache {
		queryJSON, qerr := json.Marshal(&resolved)
		responseJSON, rerr := json.Marshal(resp)
		if qerr == nil && rerr == nil {
			e.store.Set(key, queryJSON, responseJSON)
		}
	}

	return resp, nil
}

// classify maps transport and upstream errors onto the failure
// taxonomy.
func (e *Executor) classify(err error, timeout time.Duration) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return classifyUpstream(apiErr)
	}

	var decodeErr *api.DecodeError
	if errors.As(err, &decodeErr) {
		return &UpstreamFailure{
			Failure: Failure{
				Code:       CodeBadUpstreamResponse,
				Message:    "upstream returned a response that does not match the expected shape",
				Suggestion: "the API may have changed; retry with --no-cache and check for tool updates",
				Details:    decodeErr.Error(),
			},
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newNetworkFailure(
			fmt.Sprintf("request timed out after %s", timeout), err)
	}
	return newNetworkFailure("request to upstream API failed", err)
}

// classifyUpstream buckets a non-2xx response by pattern-matching the
// body against known error substrings.
func classifyUpstream(apiErr *api.APIError) *UpstreamFailure {
	body := strings.ToLower(apiErr.Body)

	failure := &UpstreamFailure{StatusCode: apiErr.StatusCode}
	switch {
	case strings.Contains(body, "invalid filter"):
		failure.Code = CodeUpstreamError
		failure.Message = "upstream rejected the filter syntax"
		failure.Suggestion = `filters must be arrays like ["is","event:page",["/docs"]] or ["and",[...]]`
	case strings.Contains(body, "invalid request body") || strings.Contains(body, "pagination"):
		failure.Code = CodeUpstreamError
		failure.Message = "upstream rejected the request body"
		failure.Suggestion = `check the pagination object: {"limit": 100, "offset": 0}`
	case apiErr.StatusCode == http.StatusUnauthorized || strings.Contains(body, "unauthorized") || strings.Contains(body, "invalid api key"):
		failure.Code = CodeUpstreamError
		failure.Message = "upstream rejected the credentials"
		failure.Suggestion = "check the API key ('plausctl config set --api-key' or PLAUSIBLE_API_KEY) and that it has access to the site"
	default:
		failure.Code = CodeUpstreamError
		failure.Message = fmt.Sprintf("upstream returned status %d", apiErr.StatusCode)
	}
	failure.Details = apiErr.Body
	return failure
}

func failureCode(err error) string {
	switch f := err.(type) {
	case *NetworkFailure:
		return f.Code
	case *UpstreamFailure:
		return f.Code
	case *ConfigFailure:
		return f.Code
	default:
		return CodeUpstreamError
	}
}
