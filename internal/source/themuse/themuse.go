// Package themuse queries The Muse public jobs API for UAE roles, which the
// other boards don't cover. Results are filtered client-side on the role
// query since the API only supports coarse categories.
package themuse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/source/util"
)

type Config struct {
	BaseURL string // default https://www.themuse.com
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.themuse.com"
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() string { return "themuse" }

func (c *Client) Supports(region domain.Region) bool {
	return region == domain.RegionUAE
}

type apiResponse struct {
	Results []struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
		Locations []struct {
			Name string `json:"name"`
		} `json:"locations"`
		Refs struct {
			LandingPage string `json:"landing_page"`
		} `json:"refs"`
		PublicationDate string `json:"publication_date"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	if region != domain.RegionUAE {
		return nil, nil
	}

	u := c.cfg.BaseURL + "/api/public/jobs?" +
		"category=Software+Engineer&location=Dubai%2C+United+Arab+Emirates" +
		"&level=Entry+Level&level=Mid+Level&page=1"

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
		return nil, fmt.Errorf("themuse get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("themuse status %d", res.StatusCode)
	}

	var resp apiResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("themuse decode: %w", err)
	}

	firstWord := strings.ToLower(strings.Fields(role + " ")[0])

	var out []domain.Posting
	for _, item := range resp.Results {
		title := util.CleanText(item.Name)
		lowTitle := strings.ToLower(title)
		if !strings.Contains(lowTitle, firstWord) &&
			!strings.Contains(lowTitle, "software") &&
			!strings.Contains(lowTitle, "developer") {
			continue
		}

		var locs []string
		for _, l := range item.Locations {
			if l.Name != "" {
				locs = append(locs, l.Name)
			}
		}
		loc := strings.Join(locs, ", ")
		if loc == "" {
			loc = "UAE"
		}

		p := domain.Posting{
			Source:    "themuse",
			NativeID:  fmt.Sprintf("%d", item.ID),
			Title:     title,
			Company:   util.CleanText(item.Company.Name),
			Location:  util.NormalizeLocation(loc),
			Region:    domain.RegionUAE,
			URL:       item.Refs.LandingPage,
			RoleQuery: role,
		}
		if t, err := time.Parse(time.RFC3339, item.PublicationDate); err == nil {
			p.PostedAt = &t
		}
		out = append(out, p)
	}
	return out, nil
}
