package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tyhouch/openroles.dev/internal/model"
)

func TestLeverFetchPostings_Success(t *testing.T) {
	payload := `[
		{
			"id": "abc-123",
			"text": "ML Engineer",
			"description": "<p>Train models.</p>",
			"descriptionPlain": "Train models.",
			"categories": {"team": "Research", "location": "Paris"},
			"createdAt": 1770000000000,
			"hostedUrl": "https://jobs.lever.co/mistral/abc-123",
			"applyUrl": "https://jobs.lever.co/mistral/abc-123/apply"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewLeverAdapter("mistral", "Mistral", testClient(srv))

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}

	p := postings[0]
	if p.ExternalID != "abc-123" {
		t.Errorf("expected external ID abc-123, got %s", p.ExternalID)
	}
	if p.Title != "ML Engineer" {
		t.Errorf("expected title ML Engineer, got %s", p.Title)
	}
	if p.Department != "Research" {
		t.Errorf("expected department Research, got %s", p.Department)
	}
	if p.DescriptionPlain != "Train models." {
		t.Errorf("expected plain description, got %q", p.DescriptionPlain)
	}
	if p.PublishedAt == nil {
		t.Fatal("expected PublishedAt to be set")
	}
	want := time.UnixMilli(1770000000000).UTC()
	if !p.PublishedAt.Equal(want) {
		t.Errorf("expected PublishedAt %v, got %v", want, p.PublishedAt)
	}
}

func TestLeverFetchPostings_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewLeverAdapter("mistral", "Mistral", testClient(srv))

	_, err := a.FetchPostings(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 429, got nil")
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", httpErr.StatusCode)
	}
	if httpErr.RetryAfter != 30*time.Second {
		t.Errorf("expected RetryAfter 30s, got %v", httpErr.RetryAfter)
	}
}
