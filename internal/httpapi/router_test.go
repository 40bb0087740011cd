package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/aggregate"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/store"
)

func testServer(t *testing.T, runSearch func(ctx context.Context, regions []domain.Region, role string) (aggregate.Summary, error)) (*httptest.Server, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	var status atomic.Value
	status.Store(SearchStatus{})

	mux := NewMux(Deps{
		Store:        db,
		Hub:          events.NewHub(),
		SearchStatus: &status,
		RunSearch:    runSearch,
	})
	srv := httptest.NewServer(Chain(mux, Recover, RequestID))
	t.Cleanup(srv.Close)
	return srv, db
}

func seedLead(t *testing.T, db *store.DB, fp string, region domain.Region) int64 {
	t.Helper()
	id, _, err := db.InsertIfAbsent(context.Background(), domain.Lead{
		Fingerprint: fp,
		Title:       "Backend Developer",
		Company:     "Acme",
		Location:    "London",
		Region:      region,
		URL:         "https://example.com/" + fp,
		Source:      "adzuna",
	})
	require.NoError(t, err)
	return id
}

func TestLeadsListAndFilters(t *testing.T) {
	srv, db := testServer(t, nil)
	seedLead(t, db, "job:1", domain.RegionUK)
	seedLead(t, db, "job:2", domain.RegionRemote)

	res, err := http.Get(srv.URL + "/leads")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var leads []domain.Lead
	require.NoError(t, json.NewDecoder(res.Body).Decode(&leads))
	assert.Len(t, leads, 2)

	res2, err := http.Get(srv.URL + "/leads?region=uk&status=found")
	require.NoError(t, err)
	defer res2.Body.Close()
	var filtered []domain.Lead
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, domain.RegionUK, filtered[0].Region)

	res3, err := http.Get(srv.URL + "/leads?status=bogus")
	require.NoError(t, err)
	res3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res3.StatusCode)
}

func TestLeadGetByID(t *testing.T) {
	srv, db := testServer(t, nil)
	id := seedLead(t, db, "job:1", domain.RegionUK)

	res, err := http.Get(srv.URL + "/leads/1")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var lead domain.Lead
	require.NoError(t, json.NewDecoder(res.Body).Decode(&lead))
	assert.Equal(t, id, lead.ID)
	assert.Equal(t, "Acme", lead.Company)

	res2, err := http.Get(srv.URL + "/leads/999")
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}

func TestMarkAppliedEndpoint(t *testing.T) {
	srv, db := testServer(t, nil)
	id := seedLead(t, db, "job:1", domain.RegionUK)

	res, err := http.Post(srv.URL+"/leads/1/applied", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	lead, err := db.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, lead.Status)

	res2, err := http.Post(srv.URL+"/leads/1/rejected", "application/json", nil)
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res2.StatusCode)
}

func TestSearchRunEndpoint(t *testing.T) {
	ran := make(chan struct{})
	srv, _ := testServer(t, func(ctx context.Context, regions []domain.Region, role string) (aggregate.Summary, error) {
		defer close(ran)
		return aggregate.Summary{New: 3}, nil
	})

	res, err := http.Post(srv.URL+"/search/run?region=uk", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not run")
	}

	// status eventually reflects the finished run
	deadline := time.Now().Add(2 * time.Second)
	for {
		res, err := http.Get(srv.URL + "/search/status")
		require.NoError(t, err)
		var st SearchStatus
		require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
		res.Body.Close()
		if !st.Running && st.LastNew == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never settled: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t, nil)
	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
