package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/vyjcapital/vyj_backend/models"
)

// Search job states reported by the upstream service
const (
	searchStatusPending   = "pending"
	searchStatusCompleted = "completed"
	searchStatusError     = "error"
)

const (
	// searchBudget caps a whole username sweep; the upstream checks
	// hundreds of platforms and can legitimately take over a minute
	searchBudget = 90 * time.Second
	pollInterval = 3 * time.Second
)

// UsernameSearchService proxies the username-presence sweep. The upstream
// runs the check asynchronously, so a search is submit-then-poll.
type UsernameSearchService struct {
	baseURL    string
	httpClient *http.Client
}

// NewUsernameSearchService creates a new username search instance
func NewUsernameSearchService() *UsernameSearchService {
	baseURL := os.Getenv("USERNAME_SEARCH_URL")
	if baseURL == "" {
		baseURL = "https://api.whatsmyname.app"
	}
	return &UsernameSearchService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type searchJob struct {
	JobID    string              `json:"jobId"`
	Status   string              `json:"status"`
	Error    string              `json:"error,omitempty"`
	Profiles []models.ProfileHit `json:"profiles,omitempty"`
}

// Search runs a username sweep and blocks until the job completes, errors
// out, or the budget is exhausted
func (s *UsernameSearchService) Search(ctx context.Context, username string) (*models.UsernameSearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, searchBudget)
	defer cancel()

	job, err := s.submit(ctx, username)
	if err != nil {
		return nil, err
	}

	// Some deployments answer synchronously
	if job.Status == searchStatusCompleted {
		return result(username, job), nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("username search for %q timed out: %w", username, ctx.Err())
		case <-ticker.C:
			job, err = s.poll(ctx, job.JobID)
			if err != nil {
				return nil, err
			}
			switch job.Status {
			case searchStatusCompleted:
				return result(username, job), nil
			case searchStatusError:
				return nil, fmt.Errorf("username search for %q failed upstream: %s", username, job.Error)
			case searchStatusPending:
				// keep polling
			default:
				return nil, fmt.Errorf("username search returned unknown status %q", job.Status)
			}
		}
	}
}

func result(username string, job *searchJob) *models.UsernameSearchResult {
	return &models.UsernameSearchResult{
		Username: username,
		Total:    len(job.Profiles),
		Profiles: job.Profiles,
	}
}

func (s *UsernameSearchService) submit(ctx context.Context, username string) (*searchJob, error) {
	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/search", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

func (s *UsernameSearchService) poll(ctx context.Context, jobID string) (*searchJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/search/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return s.do(req)
}

func (s *UsernameSearchService) do(req *http.Request) (*searchJob, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var job searchJob
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &job, nil
}
