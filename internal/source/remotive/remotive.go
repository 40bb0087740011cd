// Package remotive queries the Remotive public API for remote tech roles.
package remotive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/source/util"
)

type Config struct {
	BaseURL string // default https://remotive.com
	Limit   int
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://remotive.com"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() string { return "remotive" }

func (c *Client) Supports(region domain.Region) bool {
	return region == domain.RegionRemote
}

type apiResponse struct {
	Jobs []struct {
		ID              int64  `json:"id"`
		Title           string `json:"title"`
		CompanyName     string `json:"company_name"`
		CandidateRequiredLocation string `json:"candidate_required_location"`
		URL             string `json:"url"`
		Salary          string `json:"salary"`
		PublicationDate string `json:"publication_date"`
		Description     string `json:"description"`
	} `json:"jobs"`
}

func (c *Client) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	if region != domain.RegionRemote {
		return nil, nil
	}

	u := fmt.Sprintf("%s/api/remote-jobs?search=%s&limit=%d",
		c.cfg.BaseURL, url.QueryEscape(role), c.cfg.Limit)

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remotive get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("remotive status %d", res.StatusCode)
	}

	var resp apiResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("remotive decode: %w", err)
	}

	out := make([]domain.Posting, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		loc := util.NormalizeLocation(j.CandidateRequiredLocation)
		if loc == "" {
			loc = "Remote"
		}
		p := domain.Posting{
			Source:    "remotive",
			NativeID:  fmt.Sprintf("%d", j.ID),
			Title:     util.CleanText(j.Title),
			Company:   util.CleanText(j.CompanyName),
			Location:  loc,
			Region:    domain.RegionRemote,
			URL:       j.URL,
			Salary:    j.Salary,
			RoleQuery: role,
			Summary:   util.Excerpt(util.HTMLToText(j.Description), 400),
		}
		if t, err := time.Parse("2006-01-02T15:04:05", j.PublicationDate); err == nil {
			p.PostedAt = &t
		}
		out = append(out, p)
	}
	return out, nil
}
