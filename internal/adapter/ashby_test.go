package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tyhouch/openroles.dev/internal/model"
)

func TestAshbyFetchPostings_Success(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "job-1",
				"title": "Research Engineer",
				"team": "Applied AI",
				"location": "Remote",
				"descriptionHtml": "<p>Do research.</p>",
				"descriptionPlain": "Do research.",
				"jobUrl": "https://jobs.ashbyhq.com/openai/job-1",
				"applyUrl": "https://jobs.ashbyhq.com/openai/job-1/application",
				"publishedAt": "2026-03-01T12:00:00Z",
				"isListed": true
			},
			{
				"id": "job-2",
				"title": "Hidden Role",
				"isListed": false
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewAshbyAdapter("openai", "OpenAI", testClient(srv))

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 listed posting, got %d", len(postings))
	}

	p := postings[0]
	if p.ExternalID != "job-1" {
		t.Errorf("expected external ID job-1, got %s", p.ExternalID)
	}
	if p.Department != "Applied AI" {
		t.Errorf("expected department from team field, got %s", p.Department)
	}
	if p.PublishedAt == nil {
		t.Fatal("expected PublishedAt to be set")
	}
	if p.JobURL == p.ApplyURL {
		t.Error("expected distinct job and apply URLs")
	}
}

func TestAshbyFetchPostings_DepartmentPreferred(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "job-3",
				"title": "Engineer",
				"department": "Infrastructure",
				"team": "Compute",
				"isListed": true
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewAshbyAdapter("acme", "Acme", testClient(srv))

	postings, err := a.FetchPostings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if postings[0].Department != "Infrastructure" {
		t.Errorf("expected department field to win over team, got %s", postings[0].Department)
	}
}

func TestAshbyFetchPostings_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAshbyAdapter("fail-co", "Fail Co", testClient(srv))

	_, err := a.FetchPostings(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 500, got nil")
	}
}

func TestForEmployer(t *testing.T) {
	client := &http.Client{}

	tests := []struct {
		ats     model.ATS
		wantErr bool
	}{
		{model.ATSGreenhouse, false},
		{model.ATSLever, false},
		{model.ATSAshby, false},
		{model.ATS("workday"), true},
		{model.ATS(""), true},
	}

	for _, tc := range tests {
		emp := model.Employer{Name: "Acme", Slug: "acme", ATS: tc.ats, Identifier: "acme"}
		fetcher, err := ForEmployer(emp, client)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ATS %q: expected error, got nil", tc.ats)
			}
			continue
		}
		if err != nil {
			t.Errorf("ATS %q: unexpected error: %v", tc.ats, err)
		}
		if fetcher == nil {
			t.Errorf("ATS %q: expected fetcher, got nil", tc.ats)
		}
	}
}
