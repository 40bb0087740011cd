// Package jobalerts turns job-board alert emails (LinkedIn-style digests)
// into postings. One IMAP fetch serves the whole aggregation run; per-region
// Search calls filter the cached batch.
package jobalerts

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-imap/v2"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/source/util"
)

type Fetcher struct {
	Cfg      config.EmailSource
	Password string

	once     sync.Once
	fetchErr error
	cached   []domain.Posting
}

func New(cfg config.EmailSource, password string) *Fetcher {
	return &Fetcher{Cfg: cfg, Password: password}
}

func (f *Fetcher) Name() string { return "jobalerts" }

// Supports returns true for every region: alerts arrive pre-filtered by
// whatever saved searches the operator configured upstream.
func (f *Fetcher) Supports(domain.Region) bool { return true }

func (f *Fetcher) Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error) {
	f.once.Do(func() { f.fetchErr = f.fetchAll(ctx) })
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	var out []domain.Posting
	for _, p := range f.cached {
		if p.Region != region {
			continue
		}
		p.RoleQuery = role
		out = append(out, p)
	}
	return out, nil
}

func (f *Fetcher) fetchAll(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", f.Cfg.IMAPHost, f.Cfg.IMAPPort)
	c, err := dialAndLogin(addr, f.Cfg.Username, f.Password)
	if err != nil {
		return err
	}
	defer logoutAndClose(c)

	msgs, err := fetchRecent(c, f.Cfg.Mailbox, f.Cfg.MaxMessages)
	if err != nil {
		return err
	}

	var parsed []imap.UID
	for _, m := range msgs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !subjectMatches(m.Subject, f.Cfg.SearchSubjectAny) {
			continue
		}
		html := htmlPart(m.Raw)
		if html == "" {
			continue
		}
		postings := parseAlertHTML(html)
		if len(postings) > 0 {
			log.Printf("[jobalerts] subject=%q jobs=%d", m.Subject, len(postings))
			f.cached = append(f.cached, postings...)
			parsed = append(parsed, m.UID)
		}
	}

	if err := markSeen(c, parsed); err != nil {
		log.Printf("[jobalerts] mark seen: %v", err)
	}
	return nil
}

func subjectMatches(subject string, any []string) bool {
	if len(any) == 0 {
		return true
	}
	low := strings.ToLower(subject)
	for _, s := range any {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(low, s) {
			return true
		}
	}
	return false
}

var reJobID = regexp.MustCompile(`/jobs/view/(\d+)`)

// parseAlertHTML merges the several anchors an alert digest points at the
// same job id, so a logo-only anchor seen first doesn't shadow the titled one.
func parseAlertHTML(htmlBody string) []domain.Posting {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	byID := map[string]*domain.Posting{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		// Unwrap tracking redirects before filtering: digests often hide
		// the job link inside an encoded ?url= parameter.
		jobURL := unwrapRedirect(href)
		if jobURL == "" || !strings.Contains(strings.ToLower(jobURL), "/jobs/view/") {
			return
		}

		nativeID := ""
		if m := reJobID.FindStringSubmatch(jobURL); len(m) == 2 {
			nativeID = m[1]
		}
		key := nativeID
		if key == "" {
			key = jobURL
		}

		p, ok := byID[key]
		if !ok {
			p = &domain.Posting{
				Source:   "jobalerts",
				NativeID: nativeID,
				URL:      jobURL,
			}
			byID[key] = p
		}

		if t := util.CleanText(a.Text()); betterTitle(t, p.Title) {
			p.Title = t
		}

		// Company · Location lives in a <p> inside the surrounding card.
		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Parent()
		}
		card.Find("p").Each(func(_ int, sel *goquery.Selection) {
			t := util.CleanText(sel.Text())
			if p.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				p.Company = strings.TrimSpace(parts[0])
				p.Location = util.NormalizeLocation(parts[1])
			}
		})
	})

	out := make([]domain.Posting, 0, len(byID))
	for _, p := range byID {
		if p.URL == "" || p.Title == "" {
			continue
		}
		p.Region = regionFromLocation(p.Location)
		out = append(out, *p)
	}
	return out
}

func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if u.Host != "" {
		return u.String()
	}
	return href
}

func betterTitle(candidate, current string) bool {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return false
	}
	low := strings.ToLower(c)
	for _, junk := range []string{"easy apply", "promoted", "see all", "view job"} {
		if low == junk {
			return false
		}
	}
	return len(c) > len(current)
}

var regionHints = map[string]domain.Region{
	"united kingdom": domain.RegionUK,
	"london":         domain.RegionUK,
	"uk":             domain.RegionUK,
	"dubai":          domain.RegionUAE,
	"united arab":    domain.RegionUAE,
	"india":          domain.RegionIndia,
	"delhi":          domain.RegionIndia,
	"bengaluru":      domain.RegionIndia,
	"germany":        domain.RegionGermany,
	"berlin":         domain.RegionGermany,
	"netherlands":    domain.RegionNetherlands,
	"amsterdam":      domain.RegionNetherlands,
}

func regionFromLocation(loc string) domain.Region {
	low := strings.ToLower(loc)
	for hint, r := range regionHints {
		if strings.Contains(low, hint) {
			return r
		}
	}
	return domain.RegionRemote
}
