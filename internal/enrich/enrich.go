package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tyhouch/openroles.dev/internal/llm"
	"github.com/tyhouch/openroles.dev/internal/model"
	"github.com/tyhouch/openroles.dev/internal/store"
)

// descriptionLimit caps how much posting text is sent per completion call.
const descriptionLimit = 10000

// ItemError records one posting that failed to enrich.
type ItemError struct {
	PostingID uuid.UUID `json:"posting_id"`
	Error     string    `json:"error"`
}

// BatchResult summarizes one enrichment batch.
type BatchResult struct {
	Status    model.Status `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Errors    []ItemError  `json:"errors,omitempty"`
}

// DrainResult summarizes a run-to-empty enrichment drain.
type DrainResult struct {
	Batches   int `json:"batches"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// Pipeline enriches pending postings with bounded concurrency. Completion
// calls run in parallel; database write-back is serialized so SQLite sees one
// writer.
type Pipeline struct {
	store       store.Store
	provider    llm.Provider // nil disables enrichment
	employers   map[string]string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline creates an enrichment pipeline. employerNames maps slugs to
// display names for prompt context; unknown slugs fall back to the slug
// itself. A nil provider turns every batch into a skip.
func NewPipeline(st store.Store, provider llm.Provider, employerNames map[string]string, concurrency int, logger *slog.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		store:       st,
		provider:    provider,
		employers:   employerNames,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// itemResult is one completed API call, before write-back.
type itemResult struct {
	postingID  uuid.UUID
	enrichment *model.Enrichment
	err        error
}

// EnrichBatch enriches up to limit pending postings, optionally filtered to
// one employer. A posting that fails is left pending and retried by later
// batches; a partial batch still persists its successes.
func (p *Pipeline) EnrichBatch(ctx context.Context, employerSlug string, limit int) (BatchResult, error) {
	if p.provider == nil {
		return BatchResult{Status: model.StatusSkipped, Reason: "completion provider not configured"}, nil
	}

	postings, err := p.store.ListPendingEnrichment(ctx, employerSlug, limit)
	if err != nil {
		return BatchResult{Status: model.StatusFailed}, fmt.Errorf("list pending postings: %w", err)
	}
	if len(postings) == 0 {
		return BatchResult{Status: model.StatusSuccess}, nil
	}

	// Parallel completion calls, bounded by a semaphore.
	results := make([]itemResult, len(postings))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for i := range postings {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			enr, err := p.enrichOne(ctx, &postings[i])
			results[i] = itemResult{postingID: postings[i].ID, enrichment: enr, err: err}
		}(i)
	}
	wg.Wait()

	// Serial write-back.
	res := BatchResult{Status: model.StatusSuccess, Total: len(postings)}
	enrichedAt := p.now().UTC()
	for _, r := range results {
		if r.err != nil {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{PostingID: r.postingID, Error: r.err.Error()})
			p.logger.Warn("posting enrichment failed", "posting", r.postingID, "error", r.err)
			continue
		}
		if err := p.store.SaveEnrichment(ctx, r.postingID, r.enrichment, enrichedAt); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{PostingID: r.postingID, Error: err.Error()})
			p.logger.Error("saving enrichment", "posting", r.postingID, "error", err)
			continue
		}
		res.Succeeded++
	}

	p.logger.Info("enrichment batch finished",
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	return res, nil
}

// Drain runs batches until no pending postings remain. A batch that persists
// nothing stops the loop, otherwise persistent failures would spin forever.
func (p *Pipeline) Drain(ctx context.Context, batchLimit int) (DrainResult, error) {
	var drain DrainResult
	for {
		pending, err := p.store.CountPendingEnrichment(ctx)
		if err != nil {
			return drain, fmt.Errorf("count pending postings: %w", err)
		}
		drain.Remaining = pending
		if pending == 0 {
			return drain, nil
		}

		batch, err := p.EnrichBatch(ctx, "", batchLimit)
		if err != nil {
			return drain, err
		}
		if batch.Status == model.StatusSkipped {
			return drain, nil
		}

		drain.Batches++
		drain.Total += batch.Total
		drain.Succeeded += batch.Succeeded
		drain.Failed += batch.Failed

		if batch.Succeeded == 0 {
			// Nothing persisted; remaining postings are stuck.
			remaining, err := p.store.CountPendingEnrichment(ctx)
			if err == nil {
				drain.Remaining = remaining
			}
			return drain, nil
		}
	}
}

// enrichOne runs a single completion call and parses the structured response.
func (p *Pipeline) enrichOne(ctx context.Context, posting *model.Posting) (*model.Enrichment, error) {
	description := posting.Description()
	if len(description) > descriptionLimit {
		description = description[:descriptionLimit] + "..."
	}

	data := postingPromptData{
		EmployerName: p.employerName(posting.EmployerSlug),
		Title:        posting.Title,
		Department:   orUnknown(posting.Department),
		Location:     orUnknown(posting.Location),
		Description:  description,
	}

	var prompt strings.Builder
	if err := postingTemplate.Execute(&prompt, data); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := p.provider.Complete(ctx, systemPrompt, prompt.String(), enrichmentSchema)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	return parseEnrichment(raw)
}

func (p *Pipeline) employerName(slug string) string {
	if name, ok := p.employers[slug]; ok {
		return name
	}
	return slug
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// rawEnrichment mirrors enrichmentSchema for JSON decoding.
type rawEnrichment struct {
	NormalizedTitle    string   `json:"normalized_title"`
	Seniority          string   `json:"seniority"`
	Function           string   `json:"function"`
	TeamArea           string   `json:"team_area"`
	IsLeadership       bool     `json:"is_leadership"`
	ExperienceYearsMin *int     `json:"experience_years_min"`
	RemotePolicy       string   `json:"remote_policy"`
	TechStack          []string `json:"tech_stack"`
	Keywords           []string `json:"keywords"`
	NotableSignals     []string `json:"notable_signals"`
	SalaryMin          *int     `json:"salary_min"`
	SalaryMax          *int     `json:"salary_max"`
	SalaryCurrency     *string  `json:"salary_currency"`
}

func parseEnrichment(raw []byte) (*model.Enrichment, error) {
	var re rawEnrichment
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil, fmt.Errorf("parse enrichment payload: %w", err)
	}

	enr := &model.Enrichment{
		NormalizedTitle:    re.NormalizedTitle,
		Seniority:          model.Seniority(re.Seniority),
		Function:           model.Function(re.Function),
		TeamArea:           re.TeamArea,
		IsLeadership:       re.IsLeadership,
		ExperienceYearsMin: re.ExperienceYearsMin,
		RemotePolicy:       model.RemotePolicy(re.RemotePolicy),
		TechStack:          emptyIfNil(re.TechStack),
		Keywords:           emptyIfNil(re.Keywords),
		NotableSignals:     emptyIfNil(re.NotableSignals),
		SalaryMin:          re.SalaryMin,
		SalaryMax:          re.SalaryMax,
	}
	if re.SalaryCurrency != nil {
		enr.SalaryCurrency = *re.SalaryCurrency
	}
	if enr.Seniority == "" {
		enr.Seniority = model.SeniorityUnknown
	}
	if enr.Function == "" {
		enr.Function = model.FunctionOther
	}
	if enr.RemotePolicy == "" {
		enr.RemotePolicy = model.RemotePolicyUnknown
	}
	return enr, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
