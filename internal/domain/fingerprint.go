package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Normalizer canonicalizes identity fields before fingerprinting. The suffix
// list is configurable because company naming varies across boards ("Acme"
// vs "Acme Ltd") and exact-string matching would split the same employer.
type Normalizer struct {
	CompanySuffixes []string
}

var defaultSuffixes = []string{"ltd", "limited", "inc", "llc", "plc", "gmbh", "bv", "co", "corp", "corporation"}

func NewNormalizer(suffixes []string) Normalizer {
	if len(suffixes) == 0 {
		suffixes = defaultSuffixes
	}
	return Normalizer{CompanySuffixes: suffixes}
}

func (n Normalizer) Company(s string) string {
	s = normalizeText(s)
	for changed := true; changed; {
		changed = false
		for _, suf := range n.CompanySuffixes {
			if strings.HasSuffix(s, " "+suf) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+suf))
				changed = true
			}
		}
	}
	return s
}

func (n Normalizer) Title(s string) string { return normalizeText(s) }

// Location keeps only the first comma-separated component so "London, UK"
// and "London, England, United Kingdom" collapse together.
func (n Normalizer) Location(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return normalizeText(s)
}

// Fingerprint derives the dedup key for a posting. It prefers the normalized
// (company, title, location) triple so the same physical posting collapses
// across sources with different native ids. When normalization leaves an
// empty company or title we cannot safely merge, so the key falls back to
// the source-native id: a duplicate row is safer than a wrong merge.
func (n Normalizer) Fingerprint(p Posting) string {
	company := n.Company(p.Company)
	title := n.Title(p.Title)
	if company == "" || title == "" {
		if p.NativeID != "" {
			return fmt.Sprintf("src:%s:%s", p.Source, p.NativeID)
		}
		return "url:" + shortHash(strings.ToLower(strings.TrimSpace(p.URL)))
	}
	key := company + "|" + title + "|" + n.Location(p.Location)
	return "job:" + shortHash(key)
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:10])
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
