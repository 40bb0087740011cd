// Package adzuna queries the Adzuna public search API. Works without
// credentials at a reduced quota; app_id/app_key raise it.
package adzuna

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
	BaseURL  string // override for tests; default https://api.adzuna.com
	AppID    string
	AppKey   string
	MaxPages int
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

// countryFor maps our regions to Adzuna country codes. Adzuna has no UAE
// coverage; that region is served by themuse.
var countryFor = map[domain.Region]string{
	domain.RegionUK:          "gb",
	domain.RegionIndia:       "in",
	domain.RegionGermany:     "de",
	domain.RegionNetherlands: "nl",
}

func New(cfg Config, limiter *util.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.adzuna.com"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() string { return "adzuna" }

func (c *Client) Supports(region domain.Region) bool {
	_, ok := countryFor[region]
	return ok
}

type searchResponse struct {
	Results []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Company struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		RedirectURL string  `json:"redirect_url"`
		SalaryMin   float64 `json:"salary_min"`
		Created     string  `json:"created"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	cc, ok := countryFor[region]
	if !ok {
		return nil, nil
	}

	var out []domain.Posting
	for page := 1; page <= c.cfg.MaxPages; page++ {
		params := url.Values{}
		params.Set("results_per_page", "20")
		params.Set("what", role)
		params.Set("content-type", "application/json")
		if c.cfg.AppID != "" && c.cfg.AppKey != "" {
			params.Set("app_id", c.cfg.AppID)
			params.Set("app_key", c.cfg.AppKey)
		}

		u := fmt.Sprintf("%s/v1/api/jobs/%s/search/%d?%s", c.cfg.BaseURL, cc, page, params.Encode())

		var resp searchResponse
		if err := c.getJSON(ctx, u, &resp); err != nil {
			if page > 1 {
				// partial results beat none
				return out, nil
			}
			return nil, err
		}
		if len(resp.Results) == 0 {
			break
		}

		for _, item := range resp.Results {
			salary := ""
			if item.SalaryMin > 0 {
				salary = fmt.Sprintf("%.0f", item.SalaryMin)
			}
			p := domain.Posting{
				Source:    "adzuna",
				NativeID:  item.ID,
				Title:     util.CleanText(item.Title),
				Company:   util.CleanText(item.Company.DisplayName),
				Location:  util.NormalizeLocation(item.Location.DisplayName),
				Region:    region,
				URL:       item.RedirectURL,
				Salary:    salary,
				RoleQuery: role,
			}
			if t, err := time.Parse(time.RFC3339, item.Created); err == nil {
				p.PostedAt = &t
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return err
		}
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("adzuna get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("adzuna status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("adzuna decode: %w", err)
	}
	return nil
}
