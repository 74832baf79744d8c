package api

import "encoding/json"

// QueryResponse is the parsed result of a v2 query call.
type QueryResponse struct {
	Results []ResultRow     `json:"results"`
	Meta    *ResponseMeta   `json:"meta,omitempty"`
	Query   json.RawMessage `json:"query,omitempty"`
}

// ResultRow holds one result row. Dimensions is present iff the query
// grouped by dimensions; Metrics carries one number per requested
// metric, in request order.
type ResultRow struct {
	Dimensions []string  `json:"dimensions,omitempty"`
	Metrics    []float64 `json:"metrics"`
}

// ResponseMeta is the optional envelope around the result rows.
type ResponseMeta struct {
	ImportsIncluded   *bool    `json:"imports_included,omitempty"`
	ImportsSkipReason string   `json:"imports_skip_reason,omitempty"`
	TimeLabels        []string `json:"time_labels,omitempty"`
	TotalRows         *int     `json:"total_rows,omitempty"`
}

// Site describes one site the API key has access to.
type Site struct {
	Domain   string `json:"domain"`
	Timezone string `json:"timezone"`
}

// SitesResponse is the paginated sites listing.
type SitesResponse struct {
	Sites []Site     `json:"sites"`
	Meta  *SitesMeta `json:"meta,omitempty"`
}

type SitesMeta struct {
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}
