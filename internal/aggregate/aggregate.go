// Package aggregate fans search queries out to every configured source
// adapter, deduplicates the merged results against the lead store, and
// inserts new leads with status found. Source failures are contained per
// adapter; only store failures abort a run.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/source"
	"jobpilot/internal/store"
)

type SourceError struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

type Summary struct {
	New        int           `json:"new"`
	Duplicates int           `json:"duplicates"`
	Filtered   int           `json:"filtered"`
	Errors     []SourceError `json:"errors,omitempty"`
}

type Runner struct {
	Store    *store.DB
	Cfg      config.Config
	Adapters []source.Adapter
	Norm     domain.Normalizer

	// OnNewLead fires after each successful insert (SSE notification).
	OnNewLead func(lead domain.Lead)
}

type batch struct {
	source   string
	postings []domain.Posting
	err      error
}

// Run queries every adapter for every requested region and role, then
// serializes all writes through the single-writer store. Adapters run
// concurrently; one failed source is recorded and skipped rather than
// aborting the run.
func (r *Runner) Run(ctx context.Context, regions []domain.Region, roleFilter string) (Summary, error) {
	roles := r.Cfg.Search.Roles
	if roleFilter != "" {
		roles = []string{roleFilter}
	}

	results := make(chan batch, len(r.Adapters))
	var g errgroup.Group

	for _, a := range r.Adapters {
		a := a
		g.Go(func() error {
			actx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			var collected []domain.Posting
			for _, region := range regions {
				if !a.Supports(region) {
					continue
				}
				for _, role := range roles {
					postings, err := a.Search(actx, region, role)
					if err != nil {
						// fail soft: report the source, keep the run going
						results <- batch{source: a.Name(), err: err}
						return nil
					}
					collected = append(collected, postings...)
				}
			}
			results <- batch{source: a.Name(), postings: collected}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	var sum Summary
	insertCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for b := range results {
		if b.err != nil {
			log.Printf("[aggregate:%s] error: %v", b.source, b.err)
			sum.Errors = append(sum.Errors, SourceError{Source: b.source, Err: b.err.Error()})
			continue
		}
		log.Printf("[aggregate:%s] postings=%d", b.source, len(b.postings))

		for _, p := range b.postings {
			if !MatchesRole(p.Title, roleFilter) || !IsRelevant(r.Cfg, p) {
				sum.Filtered++
				continue
			}

			lead := domain.Lead{
				Fingerprint: r.Norm.Fingerprint(p),
				Title:       p.Title,
				Company:     p.Company,
				Location:    p.Location,
				Region:      p.Region,
				URL:         p.URL,
				Source:      p.Source,
				Salary:      p.Salary,
				Score:       Score(r.Cfg, p),
				FoundAt:     time.Now().UTC(),
				Status:      domain.StatusFound,
			}
			if p.PostedAt != nil {
				lead.PostedAt = p.PostedAt.Format(time.RFC3339)
			}

			id, added, err := r.Store.InsertIfAbsent(insertCtx, lead)
			if err != nil {
				return sum, fmt.Errorf("aggregate insert: %w", err)
			}
			if !added {
				sum.Duplicates++
				continue
			}
			sum.New++
			if r.OnNewLead != nil {
				lead.ID = id
				r.OnNewLead(lead)
			}
		}
	}

	log.Printf("[aggregate] done new=%d dups=%d filtered=%d errors=%d",
		sum.New, sum.Duplicates, sum.Filtered, len(sum.Errors))
	return sum, nil
}
