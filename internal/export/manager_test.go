package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plausctl/internal/api"
	"plausctl/internal/query"
)

func sampleResponse() (*api.QueryResponse, *query.Query) {
	resp := &api.QueryResponse{
		Results: []api.ResultRow{
			{Dimensions: []string{"Google"}, Metrics: []float64{1200, 42.5}},
			{Dimensions: []string{"DuckDuckGo"}, Metrics: []float64{300, 61}},
		},
	}
	q := &query.Query{
		Metrics:    []string{"visitors", "bounce_rate"},
		DateRange:  query.DateRange{Shortcut: "7d"},
		Dimensions: []string{"visit:source"},
	}
	return resp, q
}

func TestWriteCSV(t *testing.T) {
	resp, q := sampleResponse()
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(resp, q, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"visit:source", "visitors", "bounce_rate"}, records[0])
	assert.Equal(t, []string{"Google", "1200", "42.50"}, records[1])
	assert.Equal(t, []string{"DuckDuckGo", "300", "61"}, records[2])
}

func TestWriteJSON(t *testing.T) {
	resp, _ := sampleResponse()
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(resp, path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Google"`)
	assert.Contains(t, string(data), `"results"`)
}

func TestFormatTable(t *testing.T) {
	resp, q := sampleResponse()
	lines := FormatTable(resp, q, 50, 40)

	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "visit:source")
	assert.Contains(t, lines[0], "visitors")
	assert.Contains(t, lines[2], "Google")
	assert.Contains(t, lines[3], "DuckDuckGo")
}

func TestFormatTableClampsRows(t *testing.T) {
	resp, q := sampleResponse()
	lines := FormatTable(resp, q, 1, 40)

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "Google")
	assert.NotContains(t, joined, "DuckDuckGo")
	assert.Contains(t, joined, "Showing 1 of 2 rows")
}

func TestFormatTableTruncatesWideCells(t *testing.T) {
	resp := &api.QueryResponse{
		Results: []api.ResultRow{
			{Dimensions: []string{strings.Repeat("x", 100)}, Metrics: []float64{1}},
		},
	}
	q := &query.Query{Metrics: []string{"visitors"}, Dimensions: []string{"event:page"}}

	lines := FormatTable(resp, q, 50, 20)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 40, "line exceeds clamped width: %q", line)
	}
}

func TestFormatTableEmptyResults(t *testing.T) {
	q := &query.Query{Metrics: []string{"visitors"}}
	lines := FormatTable(&api.QueryResponse{Results: []api.ResultRow{}}, q, 50, 40)
	assert.Equal(t, []string{"No data returned"}, lines)
}
