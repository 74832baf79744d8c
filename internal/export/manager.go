// Package export writes query results to files and formats them for
// the console.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plausctl/internal/api"
	"plausctl/internal/query"
)

// WriteCSV exports a response to CSV. Column order is dimensions first,
// then metrics, both in query order.
func WriteCSV(resp *api.QueryResponse, q *query.Query, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers(q)); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range resp.Results {
		record := make([]string, 0, len(row.Dimensions)+len(row.Metrics))
		record = append(record, row.Dimensions...)
		for _, m := range row.Metrics {
			record = append(record, formatMetric(m))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

// WriteJSON exports a response to a JSON file.
func WriteJSON(resp *api.QueryResponse, outputPath string, prettify bool) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if prettify {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(resp); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// FormatTable renders a response as console table lines, clamping
// column widths and row count.
func FormatTable(resp *api.QueryResponse, q *query.Query, maxRows, maxWidth int) []string {
	if len(resp.Results) == 0 {
		return []string{"No data returned"}
	}
	if maxWidth <= 0 {
		maxWidth = 40
	}

	cols := headers(q)
	displayRows := resp.Results
	if maxRows > 0 && len(displayRows) > maxRows {
		displayRows = displayRows[:maxRows]
	}

	widths := make([]int, len(cols))
	for i, h := range cols {
		widths[i] = len(h)
	}
	cells := make([][]string, len(displayRows))
	for r, row := range displayRows {
		record := make([]string, 0, len(cols))
		record = append(record, row.Dimensions...)
		for _, m := range row.Metrics {
			record = append(record, formatMetric(m))
		}
		for len(record) < len(cols) {
			record = append(record, "")
		}
		for i := range cols {
			if w := len(record[i]); w > widths[i] {
				if w > maxWidth {
					w = maxWidth
				}
				if w > widths[i] {
					widths[i] = w
				}
			}
		}
		cells[r] = record
	}

	var lines []string

	headerParts := make([]string, len(cols))
	for i, h := range cols {
		headerParts[i] = padOrTruncate(h, widths[i])
	}
	lines = append(lines, "| "+strings.Join(headerParts, " | ")+" |")

	separatorParts := make([]string, len(cols))
	for i, w := range widths {
		separatorParts[i] = strings.Repeat("-", w)
	}
	lines = append(lines, "|"+strings.Join(separatorParts, "|")+"|")

	for _, record := range cells {
		parts := make([]string, len(cols))
		for i := range cols {
			parts[i] = padOrTruncate(record[i], widths[i])
		}
		lines = append(lines, "| "+strings.Join(parts, " | ")+" |")
	}

	if len(resp.Results) > len(displayRows) {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("Showing %d of %d rows", len(displayRows), len(resp.Results)))
	}
	return lines
}

func headers(q *query.Query) []string {
	out := make([]string, 0, len(q.Dimensions)+len(q.Metrics))
	out = append(out, q.Dimensions...)
	out = append(out, q.Metrics...)
	return out
}

func formatMetric(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func padOrTruncate(s string, width int) string {
	if len(s) > width {
		if width > 3 {
			return s[:width-3] + "..."
		}
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
