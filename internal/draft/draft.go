// Package draft turns found leads into application artifacts: a tailored
// cover letter and a structured draft with copy-paste form answers. Both are
// written to disk and the lead advances to cover_ready.
package draft

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/store"
)

type Generator struct {
	Store     *store.DB
	Profile   config.Profile
	CoversDir string
	DraftsDir string
}

type Result struct {
	Generated int
	Errors    int
}

// GenerateAll processes every lead at status found; GenerateOne targets a
// single id regardless of how far along it is (re-drafting is harmless).
func (g *Generator) GenerateAll(ctx context.Context) (Result, error) {
	leads, err := g.Store.NextActionable(ctx, domain.StatusFound, 0)
	if err != nil {
		return Result{}, err
	}
	return g.generate(ctx, leads), nil
}

func (g *Generator) GenerateOne(ctx context.Context, id int64) (Result, error) {
	lead, err := g.Store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return g.generate(ctx, []domain.Lead{lead}), nil
}

func (g *Generator) generate(ctx context.Context, leads []domain.Lead) Result {
	var res Result
	for _, lead := range leads {
		letter := CoverLetter(g.Profile, lead)
		draft := ApplicationDraft(g.Profile, lead, letter)

		safe := safeName(lead)
		coverPath := filepath.Join(g.CoversDir, safe+"_cover.txt")
		draftPath := filepath.Join(g.DraftsDir, safe+"_draft.txt")

		if err := writeArtifact(coverPath, letter); err != nil {
			log.Printf("[draft] #%d cover write: %v", lead.ID, err)
			res.Errors++
			continue
		}
		if err := writeArtifact(draftPath, draft); err != nil {
			log.Printf("[draft] #%d draft write: %v", lead.ID, err)
			res.Errors++
			continue
		}

		if err := g.Store.SetDraftPaths(ctx, lead.ID, coverPath, draftPath); err != nil {
			log.Printf("[draft] #%d status update: %v", lead.ID, err)
			res.Errors++
			continue
		}
		log.Printf("[draft] #%d %s @ %s", lead.ID, lead.Title, lead.Company)
		res.Generated++
	}
	return res
}

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func safeName(lead domain.Lead) string {
	clean := func(s string, max int) string {
		s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
		if len(s) > max {
			s = s[:max]
		}
		return s
	}
	return fmt.Sprintf("%d_%s_%s", lead.ID, clean(lead.Company, 20), clean(lead.Title, 20))
}

// skillBlocks are the reusable experience paragraphs a letter is assembled
// from, keyed by the flavor of role the title suggests.
var skillBlocks = map[string][]string{
	"ai":        {"ai", "ml", "machine learning", "reinforcement", "llm", "nlp", "data"},
	"fullstack": {"fullstack", "full-stack", "full stack", "frontend", "react", "next", "backend", "node", "api"},
	"python":    {"python", "automation", "scripting"},
}

func pickFlavor(title string) string {
	t := strings.ToLower(title)
	for _, flavor := range []string{"ai", "fullstack", "python"} {
		for _, w := range skillBlocks[flavor] {
			if strings.Contains(t, w) {
				return flavor
			}
		}
	}
	return "fullstack"
}

func CoverLetter(p config.Profile, lead domain.Lead) string {
	company := lead.Company
	if company == "" {
		company = "your organisation"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Dear Hiring Manager,\n\n")
	fmt.Fprintf(&body, "Re: Application for %s - %s\n\n", lead.Title, company)
	fmt.Fprintf(&body, "%s\n\n", p.Summary)

	switch pickFlavor(lead.Title) {
	case "ai":
		body.WriteString("My background spans applied machine learning and model-serving infrastructure, from training pipelines through deployment.\n\n")
	case "python":
		body.WriteString("Python is my primary language, used across data pipelines, REST APIs, and automation tooling in production settings.\n\n")
	default:
		body.WriteString("I have shipped full-stack applications end to end, covering typed frontends, API backends, and the CI/CD pipelines that keep them deployable.\n\n")
	}

	fmt.Fprintf(&body,
		"I am eager to join %s as %s %s and contribute from day one. "+
			"I am available with a %s notice period and %s. "+
			"Please find my CV attached. I look forward to hearing from you.\n\n",
		company, article(lead.Title), lead.Title, p.NoticePeriod, visaNote(lead.Region))

	fmt.Fprintf(&body, "Yours sincerely,\n%s\n%s | %s\n%s | %s",
		p.FullName, p.Email, p.Phone, p.LinkedIn, p.GitHub)

	return body.String()
}

func ApplicationDraft(p config.Profile, lead domain.Lead, letter string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "APPLICATION DRAFT\n=================\n")
	fmt.Fprintf(&b, "Date       : %s\n", time.Now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Role       : %s\n", lead.Title)
	fmt.Fprintf(&b, "Company    : %s\n", lead.Company)
	fmt.Fprintf(&b, "Location   : %s\n", lead.Location)
	fmt.Fprintf(&b, "Region     : %s\n", lead.Region)
	fmt.Fprintf(&b, "Source     : %s\n", lead.Source)
	fmt.Fprintf(&b, "URL        : %s\n", lead.URL)
	fmt.Fprintf(&b, "Status     : %s\n\n", lead.Status)

	fmt.Fprintf(&b, "-- APPLICANT --\n")
	fmt.Fprintf(&b, "Full Name     : %s\n", p.FullName)
	fmt.Fprintf(&b, "Email         : %s\n", p.Email)
	fmt.Fprintf(&b, "Phone         : %s\n", p.Phone)
	fmt.Fprintf(&b, "LinkedIn      : %s\n", p.LinkedIn)
	fmt.Fprintf(&b, "GitHub        : %s\n", p.GitHub)
	fmt.Fprintf(&b, "City          : %s\n", p.City)
	fmt.Fprintf(&b, "Notice Period : %s\n", p.NoticePeriod)
	fmt.Fprintf(&b, "Education     : %s\n\n", p.Education)

	fmt.Fprintf(&b, "-- COVER LETTER --\n%s\n\n", letter)
	fmt.Fprintf(&b, "-- APPLY --\nOpen this URL to apply:\n%s\n", lead.URL)
	return b.String()
}

func article(word string) string {
	w := strings.TrimSpace(strings.ToLower(word))
	if w == "" {
		return "a"
	}
	switch w[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}

func visaNote(region domain.Region) string {
	switch region {
	case domain.RegionUK:
		return "I require a Skilled Worker visa sponsorship"
	case domain.RegionGermany, domain.RegionNetherlands:
		return "I require EU work visa sponsorship"
	case domain.RegionUAE:
		return "I require a UAE work visa"
	case domain.RegionIndia:
		return "no visa support is needed"
	}
	return "I am open to discussing visa arrangements"
}
