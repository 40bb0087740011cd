package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func testLead(fp string) domain.Lead {
	return domain.Lead{
		Fingerprint: fp,
		Title:       "Backend Developer",
		Company:     "Acme",
		Location:    "London",
		Region:      domain.RegionUK,
		URL:         "https://example.com/jobs/1",
		Source:      "adzuna",
		Score:       3,
	}
}

func TestInsertIfAbsentDedups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id1, added, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)
	assert.True(t, added)

	id2, added, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, id1, id2)

	leads, err := db.List(ctx, ListOpts{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, domain.StatusFound, leads[0].Status)
}

func TestInsertIfAbsentRefreshesMutableFields(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)
	require.NoError(t, db.UpdateStatus(ctx, id, domain.StatusCoverReady))

	dup := testLead("job:aaa")
	dup.URL = "https://example.com/jobs/1?redirected"
	dup.Salary = "50000"
	_, added, err := db.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, dup.URL, got.URL)
	assert.Equal(t, "50000", got.Salary)
	// a duplicate sighting never touches status
	assert.Equal(t, domain.StatusCoverReady, got.Status)
}

func TestUpdateStatusRejectsBackward(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)

	require.NoError(t, db.UpdateStatus(ctx, id, domain.StatusCoverReady))
	require.NoError(t, db.UpdateStatus(ctx, id, domain.StatusApplied))

	err = db.UpdateStatus(ctx, id, domain.StatusCoverReady)
	assert.ErrorIs(t, err, ErrBackwardTransition)

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, got.Status)
}

func TestForceStatusOverrides(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)

	require.NoError(t, db.ForceStatus(ctx, id, domain.StatusApplied, "marked applied manually"))

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, got.Status)
	assert.Contains(t, got.Notes, "marked applied manually")

	assert.ErrorIs(t, db.ForceStatus(ctx, 9999, domain.StatusApplied, ""), ErrNotFound)
}

func TestSetDraftPathsAdvancesToCoverReady(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)

	require.NoError(t, db.SetDraftPaths(ctx, id, "/covers/1.txt", "/drafts/1.txt"))

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCoverReady, got.Status)
	assert.Equal(t, "/covers/1.txt", got.CoverLetterPath)
	assert.Equal(t, "/drafts/1.txt", got.DraftPath)
}

func TestAttemptFailureLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)
	require.NoError(t, db.UpdateStatus(ctx, id, domain.StatusCoverReady))

	n, err := db.RecordAttemptFailure(ctx, id, "form_fill: element missing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.RecordAttemptFailure(ctx, id, "navigate: timeout")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCoverReady, got.Status)
	assert.Equal(t, "navigate: timeout", got.LastError)

	require.NoError(t, db.MarkApplyFailed(ctx, id, "navigate: timeout"))
	got, err = db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplyFailed, got.Status)

	// apply_failed leads drop out of the actionable set
	actionable, err := db.NextActionable(ctx, domain.StatusCoverReady, 0)
	require.NoError(t, err)
	assert.Empty(t, actionable)
}

func TestMarkAppliedClearsLastError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, _, err := db.InsertIfAbsent(ctx, testLead("job:aaa"))
	require.NoError(t, err)
	require.NoError(t, db.UpdateStatus(ctx, id, domain.StatusCoverReady))
	_, err = db.RecordAttemptFailure(ctx, id, "flaky step")
	require.NoError(t, err)

	require.NoError(t, db.MarkApplied(ctx, id))

	got, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, got.Status)
	assert.Empty(t, got.LastError)
}

func TestListFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	uk := testLead("job:uk")
	remote := testLead("job:remote")
	remote.Region = domain.RegionRemote
	remote.Score = 10

	_, _, err := db.InsertIfAbsent(ctx, uk)
	require.NoError(t, err)
	id2, _, err := db.InsertIfAbsent(ctx, remote)
	require.NoError(t, err)
	require.NoError(t, db.UpdateStatus(ctx, id2, domain.StatusCoverReady))

	byRegion, err := db.List(ctx, ListOpts{Region: domain.RegionRemote})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, id2, byRegion[0].ID)

	byStatus, err := db.List(ctx, ListOpts{Status: domain.StatusFound})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, domain.RegionUK, byStatus[0].Region)

	// highest score first
	all, err := db.List(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, id2, all[0].ID)

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.StatusFound])
	assert.Equal(t, 1, counts[domain.StatusCoverReady])
}

func TestOpenLocksDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = Open(path)
	assert.Error(t, err)
}
