package submit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/answers"
	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/store"
)

// fakeDriver scripts a quick-apply flow per lead URL. The default flow is two
// steps of fields followed by the review screen.
type fakeDriver struct {
	sessionErr   error
	openErr      map[string]error // keyed by lead URL
	fillErr      error
	submitErr    error
	confirmed    bool
	confirmedSet bool

	steps int // steps before the review screen, default 2

	submits   []int64 // lead IDs that reached the true submit action
	fills     []string
	closed    int
	stepIndex int
	current   domain.Lead
}

func (f *fakeDriver) CheckSession(ctx context.Context) error { return f.sessionErr }

func (f *fakeDriver) OpenFlow(ctx context.Context, lead domain.Lead) error {
	if err := f.openErr[lead.URL]; err != nil {
		return err
	}
	f.current = lead
	f.stepIndex = 0
	return nil
}

func (f *fakeDriver) Fields(ctx context.Context) ([]Field, error) {
	if f.stepIndex == 0 {
		return []Field{
			{ID: "f0", Label: "Phone number", Kind: FieldText},
			{ID: "f1", Label: "Resume", Kind: FieldUpload},
		}, nil
	}
	return []Field{
		{ID: "f2", Label: "Do you require visa sponsorship?", Kind: FieldChoice, Options: []string{"Yes", "No"}},
	}, nil
}

func (f *fakeDriver) Fill(ctx context.Context, field Field, value string) error {
	if f.fillErr != nil {
		return f.fillErr
	}
	f.fills = append(f.fills, field.Label+"="+value)
	return nil
}

func (f *fakeDriver) UploadResume(ctx context.Context, path string) error {
	f.fills = append(f.fills, "resume="+path)
	return nil
}

func (f *fakeDriver) NextAction(ctx context.Context) (StepAction, error) {
	steps := f.steps
	if steps == 0 {
		steps = 2
	}
	if f.stepIndex >= steps {
		return StepSubmit, nil
	}
	return StepNext, nil
}

func (f *fakeDriver) Advance(ctx context.Context) error {
	f.stepIndex++
	return nil
}

func (f *fakeDriver) Submit(ctx context.Context) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submits = append(f.submits, f.current.ID)
	return nil
}

func (f *fakeDriver) Confirmed(ctx context.Context) (bool, error) {
	if f.confirmedSet {
		return f.confirmed, nil
	}
	return true, nil
}

func (f *fakeDriver) CloseFlow(ctx context.Context) error {
	f.closed++
	return nil
}

func testEngine(t *testing.T, drv Driver, leadCount int) (*Engine, []int64) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	ctx := context.Background()
	var ids []int64
	for i := 0; i < leadCount; i++ {
		id, _, err := db.InsertIfAbsent(ctx, domain.Lead{
			Fingerprint: fmt.Sprintf("job:%03d", i),
			Title:       "Backend Developer",
			Company:     "Acme",
			Location:    "London",
			Region:      domain.RegionUK,
			URL:         fmt.Sprintf("https://example.com/jobs/%d", i),
			Source:      "adzuna",
		})
		require.NoError(t, err)
		require.NoError(t, db.SetDraftPaths(ctx, id, "c.txt", "d.txt"))
		ids = append(ids, id)
	}

	var cfg config.Config
	cfg.Profile.Phone = "+44 1234"
	cfg.Profile.CVPath = "/tmp/cv.pdf"
	cfg.Apply.MaxPerRun = 10
	cfg.Apply.MaxAttempts = 3
	cfg.Apply.MinDelaySeconds = 0.001

	return NewEngine(db, drv, answers.New(cfg.Profile, nil, time.Second), cfg), ids
}

func TestRunAppliesAndPersists(t *testing.T) {
	drv := &fakeDriver{}
	eng, ids := testEngine(t, drv, 1)

	sum, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Applied)
	assert.Equal(t, []int64{ids[0]}, drv.submits)

	got, err := eng.Store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, got.Status)

	// known answers came from the profile, no generator involved
	assert.Contains(t, drv.fills, "Phone number=+44 1234")
	assert.Contains(t, drv.fills, "Do you require visa sponsorship?=Yes")
}

func TestDryRunNeverSubmits(t *testing.T) {
	drv := &fakeDriver{}
	eng, _ := testEngine(t, drv, 4)

	var recs []AttemptRecord
	eng.OnAttempt = func(r AttemptRecord) { recs = append(recs, r) }

	sum, err := eng.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.DryRuns)
	assert.Zero(t, sum.Applied)
	assert.Empty(t, drv.submits)

	// every attempt still produced the review-stage report
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Equal(t, OutcomeDryRun, r.Outcome)
		assert.Contains(t, r.States, StateReview)
		assert.NotContains(t, r.States, StateSubmit)
	}

	// leads stay cover_ready for the live run
	leads, err := eng.Store.NextActionable(context.Background(), domain.StatusCoverReady, 0)
	require.NoError(t, err)
	assert.Len(t, leads, 4)
}

func TestMaxIsAHardStop(t *testing.T) {
	drv := &fakeDriver{}
	eng, _ := testEngine(t, drv, 5)

	sum, err := eng.Run(context.Background(), Options{Max: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Applied)
	assert.Len(t, drv.submits, 2)
	assert.Equal(t, 2, sum.Processed)
}

func TestSessionExpiredAbortsBeforeAnyAttempt(t *testing.T) {
	drv := &fakeDriver{sessionErr: ErrSessionExpired}
	eng, _ := testEngine(t, drv, 3)

	sum, err := eng.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, sum.Processed)
	assert.Empty(t, drv.submits)
}

func TestAppliedLeadIsNeverResubmitted(t *testing.T) {
	drv := &fakeDriver{}
	eng, ids := testEngine(t, drv, 1)
	ctx := context.Background()

	// Simulate a crash after submit: status already shows applied when the
	// next run starts.
	require.NoError(t, eng.Store.MarkApplied(ctx, ids[0]))

	sum, err := eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Zero(t, sum.Processed)
	assert.Empty(t, drv.submits)
}

func TestUnsupportedFlowIsSkippedNotFailed(t *testing.T) {
	drv := &fakeDriver{}
	eng, ids := testEngine(t, drv, 2)
	ctx := context.Background()

	lead, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	drv.openErr = map[string]error{lead.URL: ErrUnsupportedFlow}

	sum, err := eng.Run(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Applied)

	// skip costs no attempt and leaves the lead for manual handling
	got, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCoverReady, got.Status)
	assert.Zero(t, got.ApplyAttempts)
}

func TestSkippedLeadsDoNotConsumeTheCap(t *testing.T) {
	drv := &fakeDriver{}
	eng, ids := testEngine(t, drv, 3)
	ctx := context.Background()

	lead, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	drv.openErr = map[string]error{lead.URL: ErrUnsupportedFlow}

	sum, err := eng.Run(ctx, Options{Max: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Applied)
}

func TestNoConfirmationIsAFailure(t *testing.T) {
	drv := &fakeDriver{confirmed: false, confirmedSet: true}
	eng, ids := testEngine(t, drv, 1)
	ctx := context.Background()

	sum, err := eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Applied)

	got, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCoverReady, got.Status)
	assert.Equal(t, 1, got.ApplyAttempts)
	assert.Equal(t, "no_confirmation", got.LastError)
}

func TestAttemptsCutoffMarksApplyFailed(t *testing.T) {
	drv := &fakeDriver{fillErr: errors.New("element missing")}
	eng, ids := testEngine(t, drv, 1)
	ctx := context.Background()

	// two failures already on record, max_attempts is 3
	_, err := eng.Store.RecordAttemptFailure(ctx, ids[0], "earlier failure")
	require.NoError(t, err)
	_, err = eng.Store.RecordAttemptFailure(ctx, ids[0], "earlier failure")
	require.NoError(t, err)

	sum, err := eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	got, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplyFailed, got.Status)
	assert.Equal(t, 3, got.ApplyAttempts)

	// excluded from the next run's actionable set
	drv.fillErr = nil
	sum, err = eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Zero(t, sum.Processed)
}

func TestFailureKeepsLeadEligible(t *testing.T) {
	drv := &fakeDriver{submitErr: errors.New("button detached")}
	eng, ids := testEngine(t, drv, 1)
	ctx := context.Background()

	sum, err := eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	got, err := eng.Store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCoverReady, got.Status)
	assert.Equal(t, 1, got.ApplyAttempts)
	assert.Contains(t, got.LastError, "button detached")

	// a later run retries and succeeds
	drv.submitErr = nil
	sum, err = eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Applied)
}

func TestRegionFilter(t *testing.T) {
	drv := &fakeDriver{}
	eng, ids := testEngine(t, drv, 2)
	ctx := context.Background()

	_, err := eng.Store.Pool.ExecContext(ctx,
		`UPDATE leads SET region = ? WHERE id = ?;`, string(domain.RegionRemote), ids[1])
	require.NoError(t, err)

	sum, err := eng.Run(ctx, Options{Region: domain.RegionRemote})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Applied)
	assert.Equal(t, []int64{ids[1]}, drv.submits)
}

func TestCancelledRunStopsBetweenLeads(t *testing.T) {
	drv := &fakeDriver{}
	eng, _ := testEngine(t, drv, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := eng.Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Processed)
}
