package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyjcapital/vyj_backend/models"
)

func newTestSearchService(url string) *UsernameSearchService {
	return &UsernameSearchService{
		baseURL:    url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestSearchSynchronousCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/search", r.URL.Path)

		json.NewEncoder(w).Encode(searchJob{
			JobID:  "job-1",
			Status: searchStatusCompleted,
			Profiles: []models.ProfileHit{
				{Platform: "github", URL: "https://github.com/jdoe"},
				{Platform: "reddit", URL: "https://reddit.com/u/jdoe"},
			},
		})
	}))
	defer server.Close()

	result, err := newTestSearchService(server.URL).Search(context.Background(), "jdoe")
	require.NoError(t, err)

	assert.Equal(t, "jdoe", result.Username)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "github", result.Profiles[0].Platform)
}

func TestSearchPollsUntilCompleted(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(searchJob{JobID: "job-2", Status: searchStatusPending})
		case r.Method == http.MethodGet && r.URL.Path == "/api/search/job-2":
			polls++
			if polls < 2 {
				json.NewEncoder(w).Encode(searchJob{JobID: "job-2", Status: searchStatusPending})
				return
			}
			json.NewEncoder(w).Encode(searchJob{
				JobID:    "job-2",
				Status:   searchStatusCompleted,
				Profiles: []models.ProfileHit{{Platform: "x", URL: "https://x.com/jdoe"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	result, err := newTestSearchService(server.URL).Search(context.Background(), "jdoe")
	require.NoError(t, err)

	assert.Equal(t, 2, polls)
	assert.Equal(t, 1, result.Total)
}

func TestSearchUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(searchJob{JobID: "job-3", Status: searchStatusPending})
			return
		}
		json.NewEncoder(w).Encode(searchJob{JobID: "job-3", Status: searchStatusError, Error: "provider down"})
	}))
	defer server.Close()

	_, err := newTestSearchService(server.URL).Search(context.Background(), "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSearchRejectsBadStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestSearchService(server.URL).Search(context.Background(), "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
