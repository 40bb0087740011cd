package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintCollapsesAcrossSources(t *testing.T) {
	n := NewNormalizer(nil)

	a := Posting{Source: "adzuna", NativeID: "A1", Title: "Junior AI Engineer", Company: "Acme", Location: "London"}
	b := Posting{Source: "remotive", NativeID: "B7", Title: "Junior AI Engineer", Company: "Acme", Location: "London"}

	assert.Equal(t, n.Fingerprint(a), n.Fingerprint(b))
}

func TestFingerprintIgnoresCompanySuffixAndCasing(t *testing.T) {
	n := NewNormalizer(nil)

	a := Posting{Title: "Backend Developer", Company: "Acme Ltd", Location: "London, UK"}
	b := Posting{Title: "backend developer", Company: "ACME", Location: "London, England, United Kingdom"}

	assert.Equal(t, n.Fingerprint(a), n.Fingerprint(b))
}

func TestFingerprintDistinguishesDifferentPostings(t *testing.T) {
	n := NewNormalizer(nil)

	a := Posting{Title: "Backend Developer", Company: "Acme", Location: "London"}
	b := Posting{Title: "Backend Developer", Company: "Acme", Location: "Berlin"}
	c := Posting{Title: "Frontend Developer", Company: "Acme", Location: "London"}

	assert.NotEqual(t, n.Fingerprint(a), n.Fingerprint(b))
	assert.NotEqual(t, n.Fingerprint(a), n.Fingerprint(c))
}

func TestFingerprintFallsBackToNativeID(t *testing.T) {
	n := NewNormalizer(nil)

	// No company: a merge would be guesswork, so the key stays source-scoped
	// and two sources produce two leads.
	a := Posting{Source: "remoteok", NativeID: "123", Title: "Engineer"}
	b := Posting{Source: "remotive", NativeID: "123", Title: "Engineer"}

	assert.Equal(t, "src:remoteok:123", n.Fingerprint(a))
	assert.NotEqual(t, n.Fingerprint(a), n.Fingerprint(b))
}

func TestFingerprintFallsBackToURL(t *testing.T) {
	n := NewNormalizer(nil)

	p := Posting{Title: "Engineer", URL: "https://example.com/jobs/1"}
	fp := n.Fingerprint(p)
	assert.Contains(t, fp, "url:")
	assert.Equal(t, fp, n.Fingerprint(p))
}

func TestCompanySuffixStripping(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, "acme", n.Company("Acme Ltd"))
	assert.Equal(t, "acme", n.Company("Acme Co Ltd"))
	assert.Equal(t, "acme widgets", n.Company("Acme Widgets, Inc."))
	assert.Equal(t, "acme", n.Company("acme"))
}

func TestLocationKeepsFirstComponent(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, "london", n.Location("London, UK"))
	assert.Equal(t, "london", n.Location("London"))
	assert.Equal(t, "new york", n.Location("New York, NY, USA"))
	assert.Equal(t, "", n.Location(""))
}

func TestNormalizerCustomSuffixes(t *testing.T) {
	n := NewNormalizer([]string{"technologies"})

	assert.Equal(t, "globex", n.Company("Globex Technologies"))
	// default list is replaced, not extended
	assert.Equal(t, "globex ltd", n.Company("Globex Ltd"))
}
