package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64                  `json:"id"`
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	Location       greenhouseLocation     `json:"location"`
	Departments    []greenhouseDepartment `json:"departments"`
	AbsoluteURL    string                 `json:"absolute_url"`
	FirstPublished string                 `json:"first_published"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseDepartment struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter fetches postings from the Greenhouse public boards API.
type GreenhouseAdapter struct {
	boardToken   string
	employerName string
	client       *http.Client
}

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, employerName string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:   boardToken,
		employerName: employerName,
		client:       client,
	}
}

// FetchPostings retrieves all postings from the Greenhouse board and
// normalizes them into the unified RawPosting model. The content=true
// query parameter asks Greenhouse to include full job descriptions.
func (a *GreenhouseAdapter) FetchPostings(ctx context.Context) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("greenhouse fetch for %s: unexpected status %d", a.boardToken, resp.StatusCode),
		}
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	postings := make([]model.RawPosting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		p := model.RawPosting{
			ExternalID:      fmt.Sprintf("%d", gj.ID),
			Title:           gj.Title,
			DescriptionHTML: gj.Content,
			Location:        gj.Location.Name,
			JobURL:          gj.AbsoluteURL,
			// Greenhouse has no separate apply link; the board URL serves both.
			ApplyURL: gj.AbsoluteURL,
		}

		// Greenhouse double-encodes the content field; derive a plain-text
		// description since the API never provides one.
		if gj.Content != "" {
			p.DescriptionPlain = extractText(gj.Content)
		}

		if len(gj.Departments) > 0 {
			p.Department = gj.Departments[0].Name
		}

		if gj.FirstPublished != "" {
			t, err := time.Parse(time.RFC3339, gj.FirstPublished)
			if err == nil {
				p.PublishedAt = &t
			}
		}

		postings = append(postings, p)
	}

	return postings, nil
}
