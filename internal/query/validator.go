package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ValidMetrics is the closed set of metric names the upstream API
// accepts.
var ValidMetrics = []string{
	"visitors", "visits", "pageviews", "bounce_rate", "visit_duration",
	"views_per_visit", "scroll_depth", "time_on_page", "percentage",
	"conversion_rate",
}

// SessionMetrics are computed at visit granularity. They query a
// different underlying table than event dimensions and the upstream API
// rejects the combination.
var SessionMetrics = []string{"bounce_rate", "visit_duration", "views_per_visit"}

// EventDimensions are the grouping keys tied to individual events that
// conflict with session metrics.
var EventDimensions = []string{"event:page", "event:goal", "event:hostname"}

var validLeafOperators = []string{
	OpIs, OpIsNot, OpContains, OpMatches, "contains_not", "matches_not",
}

// Validate checks a query against the upstream API's documented shape
// and its undocumented quirks. It returns nil when the query is
// dispatchable, otherwise a ValidationFailure carrying every violation
// found in a single pass, in rule order.
func Validate(q *Query) *ValidationFailure {
	var violations []Violation

	violations = append(violations, structuralViolations(q)...)
	if v := metricDimensionMix(q); v != nil {
		violations = append(violations, *v)
	}
	if v := paginationPresence(q); v != nil {
		violations = append(violations, *v)
	}
	violations = append(violations, wildcardViolations(q.Filters)...)

	if len(violations) == 0 {
		return nil
	}
	return newValidationFailure(violations)
}

func structuralViolations(q *Query) []Violation {
	var out []Violation

	if len(q.Metrics) == 0 {
		out = append(out, Violation{
			Code:       CodeInvalidQuery,
			Message:    "at least one metric is required",
			Suggestion: `add "metrics": ["visitors"]`,
		})
	}
	for _, m := range q.Metrics {
		if !containsString(ValidMetrics, m) {
			out = append(out, Violation{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("unknown metric %q", m),
				Suggestion: "valid metrics: " + strings.Join(ValidMetrics, ", "),
			})
		}
	}

	out = append(out, dateRangeViolations(q.DateRange)...)

	if p := q.Pagination; p != nil {
		if p.Limit < 1 || p.Limit > 1000 {
			out = append(out, Violation{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("pagination limit must be between 1 and 1000, got %d", p.Limit),
				Suggestion: `"pagination": {"limit": 100, "offset": 0}`,
			})
		}
		if p.Offset < 0 {
			out = append(out, Violation{
				Code:    CodeInvalidQuery,
				Message: fmt.Sprintf("pagination offset cannot be negative, got %d", p.Offset),
			})
		}
	}

	for _, o := range q.OrderBy {
		if o.Direction != "asc" && o.Direction != "desc" {
			out = append(out, Violation{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("order_by direction for %q must be asc or desc, got %q", o.Field, o.Direction),
				Suggestion: fmt.Sprintf(`["%s", "desc"]`, o.Field),
			})
		}
	}

	for _, f := range q.Filters {
		out = append(out, filterShapeViolations(f)...)
	}

	return out
}

func dateRangeViolations(d DateRange) []Violation {
	if d.IsZero() {
		return []Violation{{
			Code:       CodeInvalidQuery,
			Message:    "date_range is required",
			Suggestion: `use a relative range like "7d" or a ["2024-01-01", "2024-01-31"] pair`,
		}}
	}
	if d.Shortcut != "" {
		if !IsShortcut(d.Shortcut) {
			return []Violation{{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("unknown date range %q", d.Shortcut),
				Suggestion: "valid ranges: " + strings.Join(RangeShortcuts, ", "),
			}}
		}
		return nil
	}
	var out []Violation
	for _, side := range []struct{ name, value string }{{"start", d.Start}, {"end", d.End}} {
		if !isISODate(side.value) {
			out = append(out, Violation{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("date_range %s %q is not a YYYY-MM-DD date", side.name, side.value),
				Suggestion: `dates must start with an ISO day, e.g. "2024-01-31"`,
			})
		}
	}
	return out
}

// isISODate accepts YYYY-MM-DD-prefixed strings, which allows the
// upstream's optional time suffix.
func isISODate(s string) bool {
	if len(s) < 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}

func filterShapeViolations(f Filter) []Violation {
	switch {
	case f.Logical != nil:
		var out []Violation
		if !isLogicalOp(f.Logical.Op) {
			out = append(out, Violation{
				Code:    CodeInvalidQuery,
				Message: fmt.Sprintf("unknown logical filter operator %q", f.Logical.Op),
			})
		}
		if len(f.Logical.Children) == 0 {
			out = append(out, Violation{
				Code:    CodeInvalidQuery,
				Message: fmt.Sprintf("logical filter %q has no children", f.Logical.Op),
			})
		}
		for _, child := range f.Logical.Children {
			out = append(out, filterShapeViolations(child)...)
		}
		return out
	case f.Leaf != nil:
		var out []Violation
		if !containsString(validLeafOperators, f.Leaf.Operator) {
			out = append(out, Violation{
				Code:       CodeInvalidQuery,
				Message:    fmt.Sprintf("unknown filter operator %q", f.Leaf.Operator),
				Suggestion: "valid operators: " + strings.Join(validLeafOperators, ", "),
			})
		}
		if f.Leaf.Dimension == "" {
			out = append(out, Violation{
				Code:    CodeInvalidQuery,
				Message: "filter dimension is required",
			})
		}
		if len(f.Leaf.Values) == 0 {
			out = append(out, Violation{
				Code:    CodeInvalidQuery,
				Message: fmt.Sprintf("filter on %q has no values", f.Leaf.Dimension),
			})
		}
		return out
	default:
		return []Violation{{
			Code:    CodeInvalidQuery,
			Message: "filter has neither leaf nor logical form",
		}}
	}
}

func metricDimensionMix(q *Query) *Violation {
	metrics := intersect(q.Metrics, SessionMetrics)
	dimensions := intersect(q.Dimensions, EventDimensions)
	if len(metrics) == 0 || len(dimensions) == 0 {
		return nil
	}
	return &Violation{
		Code: CodeInvalidMetricDimension,
		Message: fmt.Sprintf(
			"session metrics [%s] cannot be grouped by event dimensions [%s]; they query different tables and the API rejects the combination",
			strings.Join(metrics, ", "), strings.Join(dimensions, ", ")),
		Suggestion: "group by visit:entry_page instead of event:page when querying session metrics",
	}
}

func paginationPresence(q *Query) *Violation {
	if len(q.Dimensions) == 0 || q.Pagination != nil {
		return nil
	}
	return &Violation{
		Code:       CodeMissingPagination,
		Message:    "queries with dimensions require explicit pagination; the API silently misbehaves without it",
		Suggestion: `add "pagination": {"limit": 100, "offset": 0}`,
	}
}

func wildcardViolations(filters []Filter) []Violation {
	var out []Violation
	for _, f := range filters {
		switch {
		case f.Logical != nil:
			out = append(out, wildcardViolations(f.Logical.Children)...)
		case f.Leaf != nil:
			if v := leafWildcardViolation(f.Leaf); v != nil {
				out = append(out, *v)
			}
		}
	}
	return out
}

func leafWildcardViolation(leaf *LeafFilter) *Violation {
	if leaf.Operator != OpIs && leaf.Operator != OpIsNot {
		return nil
	}
	var offending []string
	stripped := make([]string, len(leaf.Values))
	for i, v := range leaf.Values {
		stripped[i] = strings.NewReplacer("*", "", "%", "").Replace(v)
		if strings.ContainsAny(v, "*%") {
			offending = append(offending, v)
		}
	}
	if len(offending) == 0 {
		return nil
	}
	corrected, _ := json.Marshal(NewLeaf(OpContains, leaf.Dimension, stripped...))
	return &Violation{
		Code: CodeWildcardInIsFilter,
		Message: fmt.Sprintf(
			"%q is an exact-match operator; values [%s] contain wildcards that will not expand",
			leaf.Operator, strings.Join(offending, ", ")),
		Suggestion: "use contains for substring matching: " + string(corrected),
	}
}

func intersect(values, set []string) []string {
	var out []string
	for _, v := range values {
		if containsString(set, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
