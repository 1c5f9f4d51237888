package queryengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.baseDelay = time.Millisecond
	return c
}

func TestRunQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/query", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT 1", req["query"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{{"n": 1}},
		})
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).RunQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["n"])
}

func TestRunQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"rows": []map[string]any{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunQuery_GivesUpAfterBoundedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunQuery_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunQuery(context.Background(), "SELECT broken")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecommend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/recommend", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"recommendations": []map[string]string{
				{"title": "Revenue by region", "query": "SELECT region, sum(revenue) FROM sales GROUP BY region"},
			},
		})
	}))
	defer srv.Close()

	recs, err := newTestClient(srv.URL).Recommend(context.Background(), "dash-1", []string{"SELECT 1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Revenue by region", recs[0].Title)
}
