package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ListSites returns every site the API key can read, following the
// cursor-paginated v1 sites endpoint until exhausted.
func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	after := ""

	for {
		url := c.baseURL + "/api/v1/sites?limit=100"
		if after != "" {
			url += "&after=" + after
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to list sites: %w", err)
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read sites response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		}

		var page SitesResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, &DecodeError{Err: err}
		}

		sites = append(sites, page.Sites...)
		if page.Meta == nil || page.Meta.After == "" {
			return sites, nil
		}
		after = page.Meta.After
	}
}
