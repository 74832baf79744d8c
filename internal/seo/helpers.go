package seo

import (
	"context"
	"fmt"
	"sync"

	"plausctl/internal/api"
	"plausctl/internal/query"
)

// Helper runs pre-set analytics queries through the shared executor and
// post-processes the rows with the scoring functions.
type Helper struct {
	exec *query.Executor
}

// NewHelper wraps an executor.
func NewHelper(exec *query.Executor) *Helper {
	return &Helper{exec: exec}
}

// SourceReport grades one traffic source.
type SourceReport struct {
	Source        string  `json:"source"`
	Visitors      float64 `json:"visitors"`
	BounceRate    float64 `json:"bounce_rate"`
	VisitDuration float64 `json:"visit_duration"`
	Score         int     `json:"score"`
	Grade         string  `json:"grade"`
}

// TopSources ranks traffic sources by visitors and grades each one.
func (h *Helper) TopSources(ctx context.Context, dateRange query.DateRange, limit int, opts query.Options) ([]SourceReport, error) {
	if limit <= 0 {
		limit = 20
	}
	q := &query.Query{
		Metrics:    []string{"visitors", "bounce_rate", "visit_duration"},
		DateRange:  dateRange,
		Dimensions: []string{"visit:source"},
		OrderBy:    []query.OrderBy{{Field: "visitors", Direction: "desc"}},
		Pagination: &query.Pagination{Limit: limit},
	}

	resp, err := h.exec.Execute(ctx, q, opts)
	if err != nil {
		return nil, err
	}

	reports := make([]SourceReport, 0, len(resp.Results))
	for _, row := range resp.Results {
		if len(row.Dimensions) < 1 || len(row.Metrics) < 3 {
			continue
		}
		r := SourceReport{
			Source:        row.Dimensions[0],
			Visitors:      row.Metrics[0],
			BounceRate:    row.Metrics[1],
			VisitDuration: row.Metrics[2],
		}
		r.Score, r.Grade = SourceQualityScore(r.BounceRate, r.VisitDuration)
		reports = append(reports, r)
	}
	return reports, nil
}

// PageReport classifies one entry page. Session metrics cannot be
// grouped by event:page, so page quality is judged at the entry-page
// level where bounce rate and duration are defined.
type PageReport struct {
	Page          string  `json:"page"`
	Visitors      float64 `json:"visitors"`
	BounceRate    float64 `json:"bounce_rate"`
	VisitDuration float64 `json:"visit_duration"`
	Quality       string  `json:"quality"`
}

// TopPages ranks entry pages by visitors and classifies their quality.
func (h *Helper) TopPages(ctx context.Context, dateRange query.DateRange, limit int, opts query.Options) ([]PageReport, error) {
	if limit <= 0 {
		limit = 20
	}
	q := &query.Query{
		Metrics:    []string{"visitors", "bounce_rate", "visit_duration"},
		DateRange:  dateRange,
		Dimensions: []string{"visit:entry_page"},
		OrderBy:    []query.OrderBy{{Field: "visitors", Direction: "desc"}},
		Pagination: &query.Pagination{Limit: limit},
	}

	resp, err := h.exec.Execute(ctx, q, opts)
	if err != nil {
		return nil, err
	}

	reports := make([]PageReport, 0, len(resp.Results))
	for _, row := range resp.Results {
		if len(row.Dimensions) < 1 || len(row.Metrics) < 3 {
			continue
		}
		r := PageReport{
			Page:          row.Dimensions[0],
			Visitors:      row.Metrics[0],
			BounceRate:    row.Metrics[1],
			VisitDuration: row.Metrics[2],
		}
		r.Quality = PageQuality(r.BounceRate, r.VisitDuration)
		reports = append(reports, r)
	}
	return reports, nil
}

// MetricComparison pairs a metric name with its period comparison.
type MetricComparison struct {
	Metric string `json:"metric"`
	Comparison
}

// ComparePeriodReports fetches site totals for two date ranges and
// compares them metric by metric. The two queries are independent reads
// and are dispatched concurrently.
func (h *Helper) ComparePeriodReports(ctx context.Context, metrics []string, current, previous query.DateRange, opts query.Options) ([]MetricComparison, error) {
	if len(metrics) == 0 {
		metrics = []string{"visitors", "pageviews"}
	}

	currentResp, previousResp, err := h.executePair(ctx,
		&query.Query{Metrics: metrics, DateRange: current},
		&query.Query{Metrics: metrics, DateRange: previous},
		opts)
	if err != nil {
		return nil, err
	}

	out := make([]MetricComparison, 0, len(metrics))
	for i, metric := range metrics {
		out = append(out, MetricComparison{
			Metric:     metric,
			Comparison: ComparePeriods(totalAt(currentResp, i), totalAt(previousResp, i)),
		})
	}
	return out, nil
}

// DecayReport flags one decaying page.
type DecayReport struct {
	Page string `json:"page"`
	Decay
}

// ContentDecay compares per-page visitor counts between a baseline
// range and a recent range and reports every page whose drop clears the
// threshold. Pages with no baseline traffic are skipped.
func (h *Helper) ContentDecay(ctx context.Context, baseline, recent query.DateRange, limit int, threshold float64, opts query.Options) ([]DecayReport, error) {
	if limit <= 0 {
		limit = 100
	}
	pageQuery := func(dateRange query.DateRange) *query.Query {
		return &query.Query{
			Metrics:    []string{"visitors"},
			DateRange:  dateRange,
			Dimensions: []string{"event:page"},
			OrderBy:    []query.OrderBy{{Field: "visitors", Direction: "desc"}},
			Pagination: &query.Pagination{Limit: limit},
		}
	}

	baselineResp, recentResp, err := h.executePair(ctx, pageQuery(baseline), pageQuery(recent), opts)
	if err != nil {
		return nil, err
	}

	recentByPage := make(map[string]float64, len(recentResp.Results))
	for _, row := range recentResp.Results {
		if len(row.Dimensions) < 1 || len(row.Metrics) < 1 {
			continue
		}
		recentByPage[row.Dimensions[0]] = row.Metrics[0]
	}

	var reports []DecayReport
	for _, row := range baselineResp.Results {
		if len(row.Dimensions) < 1 || len(row.Metrics) < 1 {
			continue
		}
		page := row.Dimensions[0]
		if d, ok := DecaySeverity(row.Metrics[0], recentByPage[page], threshold); ok {
			reports = append(reports, DecayReport{Page: page, Decay: d})
		}
	}
	return reports, nil
}

// executePair dispatches two independent queries concurrently. They
// share no mutable state beyond the cache, which tolerates racing
// writers.
func (h *Helper) executePair(ctx context.Context, first, second *query.Query, opts query.Options) (*api.QueryResponse, *api.QueryResponse, error) {
	var (
		wg                    sync.WaitGroup
		firstResp, secondResp *api.QueryResponse
		firstErr, secondErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		firstResp, firstErr = h.exec.Execute(ctx, first, opts)
	}()
	go func() {
		defer wg.Done()
		secondResp, secondErr = h.exec.Execute(ctx, second, opts)
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, nil, fmt.Errorf("first period query failed: %w", firstErr)
	}
	if secondErr != nil {
		return nil, nil, fmt.Errorf("second period query failed: %w", secondErr)
	}
	return firstResp, secondResp, nil
}

// totalAt reads metric i of the single totals row, defaulting to 0 for
// empty result sets.
func totalAt(resp *api.QueryResponse, i int) float64 {
	if len(resp.Results) == 0 || i >= len(resp.Results[0].Metrics) {
		return 0
	}
	return resp.Results[0].Metrics[i]
}
