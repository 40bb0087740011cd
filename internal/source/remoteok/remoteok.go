// Package remoteok queries the RemoteOK public feed. The first array element
// is feed metadata, not a posting.
package remoteok

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
	BaseURL string // default https://remoteok.com
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://remoteok.com"
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() string { return "remoteok" }

func (c *Client) Supports(region domain.Region) bool {
	return region == domain.RegionRemote
}

type feedItem struct {
	ID       json.Number `json:"id"`
	Position string      `json:"position"`
	Company  string      `json:"company"`
	URL      string      `json:"url"`
	Salary   string      `json:"salary"`
	Date     string      `json:"date"`
}

func (c *Client) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	if region != domain.RegionRemote {
		return nil, nil
	}

	u := fmt.Sprintf("%s/api?tag=%s", c.cfg.BaseURL, url.QueryEscape(role))

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
		return nil, fmt.Errorf("remoteok get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("remoteok status %d", res.StatusCode)
	}

	var items []feedItem
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("remoteok decode: %w", err)
	}
	if len(items) <= 1 {
		return nil, nil
	}

	out := make([]domain.Posting, 0, len(items)-1)
	for _, item := range items[1:] { // skip metadata element
		if item.Position == "" || item.URL == "" {
			continue
		}
		p := domain.Posting{
			Source:    "remoteok",
			NativeID:  item.ID.String(),
			Title:     util.CleanText(item.Position),
			Company:   util.CleanText(item.Company),
			Location:  "Remote",
			Region:    domain.RegionRemote,
			URL:       item.URL,
			Salary:    item.Salary,
			RoleQuery: role,
		}
		if t, err := time.Parse(time.RFC3339, item.Date); err == nil {
			p.PostedAt = &t
		}
		out = append(out, p)
	}
	return out, nil
}
