package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuery() *Query {
	return &Query{
		Metrics:   []string{"visitors"},
		DateRange: DateRange{Shortcut: "7d"},
	}
}

func TestValidateAcceptsMinimalQuery(t *testing.T) {
	assert.Nil(t, Validate(validQuery()))
}

func TestValidateAcceptsDimensionalQueryWithPagination(t *testing.T) {
	q := validQuery()
	q.Dimensions = []string{"visit:source"}
	q.Pagination = &Pagination{Limit: 100}
	assert.Nil(t, Validate(q))
}

func TestValidateStructural(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Query)
		message string
	}{
		{
			name:    "no metrics",
			mutate:  func(q *Query) { q.Metrics = nil },
			message: "at least one metric",
		},
		{
			name:    "unknown metric",
			mutate:  func(q *Query) { q.Metrics = []string{"visitors", "clicks"} },
			message: `unknown metric "clicks"`,
		},
		{
			name:    "missing date range",
			mutate:  func(q *Query) { q.DateRange = DateRange{} },
			message: "date_range is required",
		},
		{
			name:    "unknown shortcut",
			mutate:  func(q *Query) { q.DateRange = DateRange{Shortcut: "14d"} },
			message: `unknown date range "14d"`,
		},
		{
			name:    "malformed explicit date",
			mutate:  func(q *Query) { q.DateRange = DateRange{Start: "2024-01-01", End: "last tuesday"} },
			message: "not a YYYY-MM-DD date",
		},
		{
			name:    "pagination limit too large",
			mutate:  func(q *Query) { q.Pagination = &Pagination{Limit: 5000} },
			message: "between 1 and 1000",
		},
		{
			name:    "negative offset",
			mutate:  func(q *Query) { q.Pagination = &Pagination{Limit: 10, Offset: -1} },
			message: "offset cannot be negative",
		},
		{
			name:    "bad order direction",
			mutate:  func(q *Query) { q.OrderBy = []OrderBy{{Field: "visitors", Direction: "down"}} },
			message: "must be asc or desc",
		},
		{
			name:    "unknown filter operator",
			mutate:  func(q *Query) { q.Filters = []Filter{NewLeaf("equals", "event:page", "/")} },
			message: `unknown filter operator "equals"`,
		},
		{
			name:    "filter without values",
			mutate:  func(q *Query) { q.Filters = []Filter{NewLeaf(OpIs, "event:page")} },
			message: "has no values",
		},
		{
			name:    "empty logical filter",
			mutate:  func(q *Query) { q.Filters = []Filter{And()} },
			message: "has no children",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(q)

			vf := Validate(q)
			require.NotNil(t, vf)
			assert.Equal(t, CodeInvalidQuery, vf.Code)
			found := false
			for _, v := range vf.Violations {
				if strings.Contains(v.Message, tt.message) {
					found = true
				}
			}
			assert.True(t, found, "no violation mentions %q: %+v", tt.message, vf.Violations)
		})
	}
}

func TestValidateAcceptsExplicitDatePair(t *testing.T) {
	q := validQuery()
	q.DateRange = DateRange{Start: "2024-01-01", End: "2024-01-31"}
	assert.Nil(t, Validate(q))
}

func TestValidateSessionMetricsWithEventDimensions(t *testing.T) {
	q := validQuery()
	q.Metrics = []string{"visitors", "bounce_rate"}
	q.Dimensions = []string{"event:page"}
	q.Pagination = &Pagination{Limit: 100}

	vf := Validate(q)
	require.NotNil(t, vf)
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, CodeInvalidMetricDimension, vf.Violations[0].Code)
	assert.Contains(t, vf.Violations[0].Message, "bounce_rate")
	assert.Contains(t, vf.Violations[0].Message, "event:page")
	assert.Contains(t, vf.Violations[0].Suggestion, "visit:entry_page")
}

func TestValidateSessionMetricsWithVisitDimensionsPass(t *testing.T) {
	q := validQuery()
	q.Metrics = []string{"bounce_rate", "visit_duration"}
	q.Dimensions = []string{"visit:entry_page"}
	q.Pagination = &Pagination{Limit: 100}
	assert.Nil(t, Validate(q))
}

func TestValidateDimensionsRequirePagination(t *testing.T) {
	q := validQuery()
	q.Dimensions = []string{"visit:source"}

	vf := Validate(q)
	require.NotNil(t, vf)
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, CodeMissingPagination, vf.Violations[0].Code)
	assert.Contains(t, vf.Violations[0].Suggestion, `"limit": 100`)
}

func TestValidateNoPaginationNeededWithoutDimensions(t *testing.T) {
	assert.Nil(t, Validate(validQuery()))
}

func TestValidateWildcardInIsFilter(t *testing.T) {
	q := validQuery()
	q.Filters = []Filter{NewLeaf(OpIs, "event:page", "/docs/*")}

	vf := Validate(q)
	require.NotNil(t, vf)
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, CodeWildcardInIsFilter, vf.Violations[0].Code)
	assert.Contains(t, vf.Violations[0].Suggestion, `"contains"`)
	assert.Contains(t, vf.Violations[0].Suggestion, "/docs/")
	assert.NotContains(t, vf.Violations[0].Suggestion, "*")
}

func TestValidateWildcardInNestedLogicalFilter(t *testing.T) {
	q := validQuery()
	q.Filters = []Filter{
		And(
			NewLeaf(OpContains, "visit:source", "google"),
			Or(NewLeaf(OpIsNot, "event:page", "%admin%")),
		),
	}

	vf := Validate(q)
	require.NotNil(t, vf)
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, CodeWildcardInIsFilter, vf.Violations[0].Code)
}

func TestValidateWildcardAllowedInContainsAndMatches(t *testing.T) {
	q := validQuery()
	q.Filters = []Filter{
		NewLeaf(OpContains, "event:page", "/docs/*"),
		NewLeaf(OpMatches, "event:page", "/docs/.*"),
	}
	assert.Nil(t, Validate(q))
}

func TestValidateCollectsAllViolations(t *testing.T) {
	q := &Query{
		Metrics:    []string{"bounce_rate"},
		DateRange:  DateRange{Shortcut: "7d"},
		Dimensions: []string{"event:page"},
		Filters:    []Filter{NewLeaf(OpIs, "event:page", "/blog/*")},
	}

	vf := Validate(q)
	require.NotNil(t, vf)
	require.Len(t, vf.Violations, 3)

	codes := make([]string, len(vf.Violations))
	for i, v := range vf.Violations {
		codes[i] = v.Code
	}
	assert.Equal(t, []string{
		CodeInvalidMetricDimension,
		CodeMissingPagination,
		CodeWildcardInIsFilter,
	}, codes)

	// The envelope mirrors the first violation so single-error callers
	// get a stable answer.
	assert.Equal(t, vf.Violations[0].Code, vf.Code)
	assert.Equal(t, vf.Violations[0].Message, vf.Message)
}
