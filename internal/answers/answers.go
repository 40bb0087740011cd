// Package answers resolves free-text application form questions. Known
// questions (phone, visa, notice period, links) come from the applicant
// profile; anything unrecognised goes to a text generator with a short
// deadline. A blank answer is always acceptable and never fails a run.
package answers

import (
	"context"
	"log"
	"strings"
	"time"

	"jobpilot/internal/config"
)

// Generator produces a short answer to a single question. Implementations
// must respect ctx cancellation.
type Generator interface {
	Answer(ctx context.Context, question string) (string, error)
}

type Answerer struct {
	Profile config.Profile
	Gen     Generator // optional
	Timeout time.Duration

	cache map[string]string
}

func New(p config.Profile, gen Generator, timeout time.Duration) *Answerer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Answerer{Profile: p, Gen: gen, Timeout: timeout, cache: map[string]string{}}
}

// Resolve returns an answer for the given question label, or "" when nothing
// sensible can be produced. Results are cached for the lifetime of a run so
// repeated questions across attempts cost one generator call.
func (a *Answerer) Resolve(ctx context.Context, question string) string {
	q := normalizeQuestion(question)
	if q == "" {
		return ""
	}
	if cached, ok := a.cache[q]; ok {
		return cached
	}

	ans := a.known(q)
	if ans == "" && a.Gen != nil {
		genCtx, cancel := context.WithTimeout(ctx, a.Timeout)
		got, err := a.Gen.Answer(genCtx, question)
		cancel()
		if err != nil {
			log.Printf("[answers] generator (%.40q): %v", question, err)
		} else {
			ans = sanitize(got)
		}
	}

	a.cache[q] = ans
	return ans
}

// known maps recognisable question fragments onto profile fields. Matching is
// substring-based on the normalized question, most specific first.
func (a *Answerer) known(q string) string {
	p := a.Profile
	switch {
	case containsAny(q, "phone", "mobile", "contact number"):
		return p.Phone
	case containsAny(q, "notice period", "notice"):
		return p.NoticePeriod
	case containsAny(q, "years of experience", "years experience", "how many years"):
		return p.YearsOfExp
	case containsAny(q, "linkedin"):
		return p.LinkedIn
	case containsAny(q, "github"):
		return p.GitHub
	case containsAny(q, "portfolio", "website", "personal site"):
		return p.Website
	case containsAny(q, "email"):
		return p.Email
	case containsAny(q, "city", "current location", "where are you based"):
		return p.City
	case containsAny(q, "first name"):
		return p.FirstName
	case containsAny(q, "last name", "surname"):
		return p.LastName
	case containsAny(q, "full name", "your name"):
		return p.FullName
	case containsAny(q, "sponsorship", "visa", "work permit", "right to work"):
		return "Yes"
	case containsAny(q, "willing to relocate", "relocate", "commut"):
		return "Yes"
	case containsAny(q, "start immediately", "available to start", "start date"):
		return p.NoticePeriod
	case containsAny(q, "salary", "compensation", "expected pay"):
		// Negotiable keeps us out of pre-filters either way.
		return "Negotiable"
	case containsAny(q, "degree", "education", "qualification"):
		return p.Education
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// sanitize trims the generator output down to one short line. Form fields
// reject multi-paragraph answers and we never want the model rambling.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"'`)
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
