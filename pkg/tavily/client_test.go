package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Smith Plumbing Martinsburg WV owner", req.Query)
		assert.Equal(t, "basic", req.SearchDepth)
		assert.Equal(t, 5, req.MaxResults)

		json.NewEncoder(w).Encode(SearchResponse{ //nolint:errcheck
			Query: req.Query,
			Results: []Result{
				{Title: "About Us", URL: "https://smithplumbing.com/about", Content: "Owned by John Smith", Score: 0.92},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.Search(context.Background(), SearchRequest{
		Query:      "Smith Plumbing Martinsburg WV owner",
		MaxResults: 5,
	})

	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "https://smithplumbing.com/about", got.Results[0].URL)
	assert.InDelta(t, 0.92, got.Results[0].Score, 1e-9)
}

func TestSearch_RequiresQuery(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key")
	_, err := client.Search(context.Background(), SearchRequest{})
	require.Error(t, err)
}

func TestSearch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
