// Package reed queries the Reed.co.uk jobseeker API. The API needs a (free)
// key; without one the adapter reports no supported regions so the
// aggregator skips it instead of failing.
package reed

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
	BaseURL string // default https://www.reed.co.uk
	APIKey  string
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reed.co.uk"
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() string { return "reed" }

func (c *Client) Supports(region domain.Region) bool {
	return region == domain.RegionUK && c.cfg.APIKey != ""
}

type searchResponse struct {
	Results []struct {
		JobID         int64   `json:"jobId"`
		JobTitle      string  `json:"jobTitle"`
		EmployerName  string  `json:"employerName"`
		LocationName  string  `json:"locationName"`
		JobURL        string  `json:"jobUrl"`
		MinimumSalary float64 `json:"minimumSalary"`
		MaximumSalary float64 `json:"maximumSalary"`
		Date          string  `json:"date"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	if !c.Supports(region) {
		return nil, nil
	}

	u := fmt.Sprintf("%s/api/1.0/search?keywords=%s&locationName=UK&distancefromlocation=50",
		c.cfg.BaseURL, url.QueryEscape(role))

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.APIKey, "") // key as username, empty password

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reed get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("reed status %d", res.StatusCode)
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("reed decode: %w", err)
	}

	out := make([]domain.Posting, 0, len(resp.Results))
	for _, item := range resp.Results {
		salary := ""
		if item.MinimumSalary > 0 || item.MaximumSalary > 0 {
			salary = fmt.Sprintf("%.0f-%.0f", item.MinimumSalary, item.MaximumSalary)
		}
		p := domain.Posting{
			Source:    "reed",
			NativeID:  fmt.Sprintf("%d", item.JobID),
			Title:     util.CleanText(item.JobTitle),
			Company:   util.CleanText(item.EmployerName),
			Location:  util.NormalizeLocation(item.LocationName),
			Region:    domain.RegionUK,
			URL:       item.JobURL,
			Salary:    salary,
			RoleQuery: role,
		}
		if t, err := time.Parse("02/01/2006", item.Date); err == nil {
			p.PostedAt = &t
		}
		out = append(out, p)
	}
	return out, nil
}
