package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySendsBearerTokenAndPayload(t *testing.T) {
	var gotAuth, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	_, err := client.Query(context.Background(), map[string]interface{}{
		"site_id": "example.com",
		"metrics": []string{"visitors"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"site_id":"example.com","metrics":["visitors"]}`, gotBody)
}

func TestQueryReturnsAPIErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"invalid metric"}` + "\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	_, err := client.Query(context.Background(), map[string]string{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, `{"error":"invalid metric"}`, apiErr.Body)
}

func TestQueryReturnsDecodeErrorOnBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "html instead of json", body: `<html></html>`},
		{name: "json without results", body: `{"meta":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "key")
			_, err := client.Query(context.Background(), map[string]string{})

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestQueryHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "key")
	_, err := client.Query(ctx, map[string]string{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient("", "key")
	assert.Equal(t, DefaultBaseURL, client.baseURL)

	client = NewClient("https://stats.example.com/", "key")
	assert.Equal(t, "https://stats.example.com", client.baseURL)
}

func TestListSitesFollowsCursorPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sites" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("after") == "" {
			w.Write([]byte(`{"sites":[{"domain":"a.com","timezone":"UTC"}],"meta":{"after":"cursor-1"}}`))
			return
		}
		w.Write([]byte(`{"sites":[{"domain":"b.com","timezone":"Europe/Berlin"}],"meta":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	sites, err := client.ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "a.com", sites[0].Domain)
	assert.Equal(t, "b.com", sites[1].Domain)
}

func TestListSitesSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key")
	_, err := client.ListSites(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
