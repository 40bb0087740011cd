package aggregate

import (
	"strings"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

// Score rates how well a posting matches the configured target profile:
// +2 per keyword hit, -10 per exclude hit, +5 once for any boost term
// (junior/graduate/entry). The blob covers title, company, and the
// description excerpt because boards bury seniority in any of them.
func Score(cfg config.Config, p domain.Posting) int {
	text := strings.ToLower(p.Title + " " + p.Company + " " + p.Summary)
	score := 0
	for _, kw := range cfg.Relevance.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			score += 2
		}
	}
	for _, kw := range cfg.Relevance.Excludes {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			score -= 10
		}
	}
	for _, kw := range cfg.Relevance.Boosts {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			score += 5
			break
		}
	}
	return score
}

func IsRelevant(cfg config.Config, p domain.Posting) bool {
	return Score(cfg, p) >= cfg.Relevance.MinScore
}

// MatchesRole is the client-side role filter: case-insensitive keyword
// match against the title, since not every source filters server-side.
func MatchesRole(title, role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return true
	}
	low := strings.ToLower(title)
	if strings.Contains(low, strings.ToLower(role)) {
		return true
	}
	for _, w := range strings.Fields(strings.ToLower(role)) {
		if len(w) > 2 && strings.Contains(low, w) {
			return true
		}
	}
	return false
}
