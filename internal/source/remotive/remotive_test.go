package remotive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func TestSearchParsesJobs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		fmt.Fprint(w, `{"jobs":[{
			"id": 42,
			"title": "Backend Engineer",
			"company_name": "Globex",
			"candidate_required_location": "Worldwide",
			"url": "https://remotive.example/jobs/42",
			"salary": "$60k",
			"publication_date": "2026-08-10T12:30:00",
			"description": "<p>Build <b>APIs</b> in Go.</p>"
		},{
			"id": 43,
			"title": "Data Engineer",
			"company_name": "Initech",
			"candidate_required_location": "",
			"url": "https://remotive.example/jobs/43"
		}]}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	postings, err := c.Search(context.Background(), domain.RegionRemote, "engineer")
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "engineer", gotQuery)

	assert.Equal(t, "42", postings[0].NativeID)
	assert.Equal(t, "Globex", postings[0].Company)
	assert.Equal(t, "Worldwide", postings[0].Location)
	assert.Equal(t, "$60k", postings[0].Salary)
	assert.Equal(t, "Build APIs in Go.", postings[0].Summary)
	require.NotNil(t, postings[0].PostedAt)

	// empty location defaults to Remote, missing date stays nil
	assert.Equal(t, "Remote", postings[1].Location)
	assert.Nil(t, postings[1].PostedAt)
}

func TestSearchOnlyServesRemote(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid"}, nil)

	assert.True(t, c.Supports(domain.RegionRemote))
	assert.False(t, c.Supports(domain.RegionUK))

	postings, err := c.Search(context.Background(), domain.RegionUK, "engineer")
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.Search(context.Background(), domain.RegionRemote, "engineer")
	assert.Error(t, err)
}
