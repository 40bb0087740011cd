// Package submit drives quick-apply application flows for cover_ready leads.
// One browser session is shared and used strictly sequentially; each attempt
// walks a fixed state machine and ends in applied, apply_failed, or skipped.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"jobpilot/internal/answers"
	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/store"
)

// Sentinel conditions the engine distinguishes from generic attempt failures.
var (
	// ErrSessionExpired aborts the whole run before any attempt is made.
	ErrSessionExpired = errors.New("session expired, refresh the session token")
	// ErrUnsupportedFlow means the posting has no quick-apply control.
	ErrUnsupportedFlow = errors.New("no quick-apply flow on this posting")
	// ErrNoConfirmation means submit ran but no success indicator appeared.
	ErrNoConfirmation = errors.New("no submission confirmation")
)

type State string

const (
	StateIdle         State = "idle"
	StateSessionCheck State = "session_check"
	StateNavigate     State = "navigate"
	StateFormFill     State = "form_fill"
	StateReview       State = "review"
	StateSubmit       State = "submit"
	StateConfirm      State = "confirm"
)

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeDryRun  Outcome = "dry_run"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldChoice FieldKind = "choice"
	FieldUpload FieldKind = "upload"
)

// Field is one input the current flow step declares.
type Field struct {
	ID      string
	Label   string
	Kind    FieldKind
	Options []string // choice fields only
}

// StepAction is what the flow offers after the current step's fields.
type StepAction string

const (
	StepNext   StepAction = "next"   // more steps follow
	StepReview StepAction = "review" // advancing lands on the review screen
	StepSubmit StepAction = "submit" // current screen is the review screen
	StepNone   StepAction = "none"   // nothing actionable, treat as failure
)

// Driver abstracts the browser so every transition is testable with a fake.
// All methods must respect ctx; any error other than the sentinels above is
// treated as a form-interaction failure for the current lead only.
type Driver interface {
	// CheckSession verifies the stored session token still authenticates.
	// Returns ErrSessionExpired when it does not.
	CheckSession(ctx context.Context) error
	// OpenFlow navigates to the lead's posting and opens the quick-apply
	// flow. Returns ErrUnsupportedFlow when the control is absent.
	OpenFlow(ctx context.Context, lead domain.Lead) error
	// Fields lists the inputs visible on the current step.
	Fields(ctx context.Context) ([]Field, error)
	Fill(ctx context.Context, field Field, value string) error
	UploadResume(ctx context.Context, path string) error
	// NextAction inspects the step's primary button.
	NextAction(ctx context.Context) (StepAction, error)
	// Advance clicks next/review to move to the following step.
	Advance(ctx context.Context) error
	// Submit performs the true submission action. Never called in dry-run.
	Submit(ctx context.Context) error
	// Confirmed reports whether the post-submission success indicator is
	// present. False is a failure, never a silent success.
	Confirmed(ctx context.Context) (bool, error)
	// CloseFlow dismisses the flow without submitting (discard if asked).
	CloseFlow(ctx context.Context) error
}

// AttemptRecord is the audit entry for one lead attempt.
type AttemptRecord struct {
	LeadID    int64
	Title     string
	Company   string
	URL       string
	States    []State
	Fields    []string // "label = value" pairs as filled
	Outcome   Outcome
	Reason    string
	StartedAt time.Time
	Duration  time.Duration
}

type Summary struct {
	Processed int
	Applied   int
	DryRuns   int
	Skipped   int
	Failed    int
}

type Options struct {
	Region domain.Region // optional filter
	Max    int           // hard cap on submissions this run, 0 = config default
	DryRun bool
}

type Engine struct {
	Store    *store.DB
	Driver   Driver
	Answerer *answers.Answerer
	Profile  config.Profile

	MaxPerRun   int
	MaxAttempts int
	MinDelay    time.Duration

	// OnAttempt receives every finished attempt for logging. Optional.
	OnAttempt func(AttemptRecord)

	// maxSteps bounds a single flow so a looping form cannot hang a run.
	maxSteps int
}

func NewEngine(db *store.DB, drv Driver, ans *answers.Answerer, cfg config.Config) *Engine {
	return &Engine{
		Store:       db,
		Driver:      drv,
		Answerer:    ans,
		Profile:     cfg.Profile,
		MaxPerRun:   cfg.Apply.MaxPerRun,
		MaxAttempts: cfg.Apply.MaxAttempts,
		MinDelay:    cfg.MinApplyDelay(),
		maxSteps:    12,
	}
}

// Run executes one submission run over cover_ready leads. The session check
// happens once up front; on ErrSessionExpired no attempt is started. The cap
// counts submissions (applied, dry-run, failed); skipped leads do not consume
// it. Cancellation is run-scoped: the in-flight attempt completes, then the
// run halts before the next lead.
func (e *Engine) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary

	max := opts.Max
	if max <= 0 {
		max = e.MaxPerRun
	}
	if max <= 0 {
		max = 1
	}

	if err := e.Driver.CheckSession(ctx); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return sum, ErrSessionExpired
		}
		return sum, fmt.Errorf("session check: %w", err)
	}

	leads, err := e.Store.NextActionable(ctx, domain.StatusCoverReady, 0)
	if err != nil {
		return sum, err
	}

	limiter := rate.NewLimiter(rate.Every(e.MinDelay), 1)
	submissions := 0

	for _, lead := range leads {
		if submissions >= max {
			break
		}
		select {
		case <-ctx.Done():
			log.Printf("[submit] run cancelled after %d leads", sum.Processed)
			return sum, ctx.Err()
		default:
		}
		if opts.Region != "" && lead.Region != opts.Region {
			continue
		}

		// Re-read persisted state right before acting. A crash after a
		// previous submit may have landed after the status write of a
		// concurrent operator action; applied means never submit again.
		fresh, err := e.Store.Get(ctx, lead.ID)
		if err != nil {
			log.Printf("[submit] #%d re-read: %v", lead.ID, err)
			continue
		}
		if fresh.Status != domain.StatusCoverReady {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return sum, ctx.Err()
		}

		// The attempt itself survives an external stop request so the
		// lead is never left mid-submission.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
		rec := e.attempt(attemptCtx, fresh, opts.DryRun)
		cancel()

		sum.Processed++
		if e.OnAttempt != nil {
			e.OnAttempt(rec)
		}

		switch rec.Outcome {
		case OutcomeApplied:
			if err := e.Store.MarkApplied(ctx, fresh.ID); err != nil {
				log.Printf("[submit] #%d mark applied: %v", fresh.ID, err)
			}
			sum.Applied++
			submissions++
			log.Printf("[submit] #%d applied: %s @ %s", fresh.ID, fresh.Title, fresh.Company)
		case OutcomeDryRun:
			sum.DryRuns++
			submissions++
			log.Printf("[submit] #%d dry-run ok: %s @ %s (%d fields)",
				fresh.ID, fresh.Title, fresh.Company, len(rec.Fields))
		case OutcomeSkipped:
			sum.Skipped++
			log.Printf("[submit] #%d skipped: %s", fresh.ID, rec.Reason)
		case OutcomeFailed:
			sum.Failed++
			submissions++
			attempts, err := e.Store.RecordAttemptFailure(ctx, fresh.ID, rec.Reason)
			if err != nil {
				log.Printf("[submit] #%d record failure: %v", fresh.ID, err)
				continue
			}
			log.Printf("[submit] #%d failed (attempt %d/%d): %s",
				fresh.ID, attempts, e.MaxAttempts, rec.Reason)
			if e.MaxAttempts > 0 && attempts >= e.MaxAttempts {
				if err := e.Store.MarkApplyFailed(ctx, fresh.ID, rec.Reason); err != nil {
					log.Printf("[submit] #%d mark failed: %v", fresh.ID, err)
				}
			}
		}
	}

	return sum, nil
}

// attempt walks one lead through the flow. It never writes to the store; the
// caller persists the outcome so the state transition stays in one place.
func (e *Engine) attempt(ctx context.Context, lead domain.Lead, dryRun bool) AttemptRecord {
	rec := AttemptRecord{
		LeadID:    lead.ID,
		Title:     lead.Title,
		Company:   lead.Company,
		URL:       lead.URL,
		StartedAt: time.Now(),
		States:    []State{StateIdle, StateSessionCheck},
	}
	defer func() { rec.Duration = time.Since(rec.StartedAt) }()

	fail := func(stage string, err error) AttemptRecord {
		rec.Outcome = OutcomeFailed
		rec.Reason = fmt.Sprintf("%s: %v", stage, err)
		e.discard(lead)
		return rec
	}

	rec.States = append(rec.States, StateNavigate)
	if err := e.Driver.OpenFlow(ctx, lead); err != nil {
		if errors.Is(err, ErrUnsupportedFlow) {
			rec.Outcome = OutcomeSkipped
			rec.Reason = "unsupported_flow"
			return rec
		}
		return fail("navigate", err)
	}

	rec.States = append(rec.States, StateFormFill)
	atReview := false
	for step := 0; step < e.maxSteps && !atReview; step++ {
		fields, err := e.Driver.Fields(ctx)
		if err != nil {
			return fail("form_fill", err)
		}
		for _, f := range fields {
			if err := e.fillField(ctx, lead, f, &rec); err != nil {
				return fail("form_fill", err)
			}
		}

		action, err := e.Driver.NextAction(ctx)
		if err != nil {
			return fail("form_fill", err)
		}
		switch action {
		case StepSubmit:
			atReview = true
		case StepNext, StepReview:
			if err := e.Driver.Advance(ctx); err != nil {
				return fail("form_fill", err)
			}
		default:
			return fail("form_fill", errors.New("no actionable button on step"))
		}
	}
	if !atReview {
		return fail("form_fill", fmt.Errorf("flow exceeded %d steps", e.maxSteps))
	}

	rec.States = append(rec.States, StateReview)
	if dryRun {
		rec.Outcome = OutcomeDryRun
		rec.Reason = "dry_run"
		e.discard(lead)
		return rec
	}

	rec.States = append(rec.States, StateSubmit)
	if err := e.Driver.Submit(ctx); err != nil {
		return fail("submit", err)
	}

	rec.States = append(rec.States, StateConfirm)
	ok, err := e.Driver.Confirmed(ctx)
	if err != nil {
		return fail("confirm", err)
	}
	if !ok {
		rec.Outcome = OutcomeFailed
		rec.Reason = "no_confirmation"
		e.discard(lead)
		return rec
	}

	rec.Outcome = OutcomeApplied
	return rec
}

func (e *Engine) fillField(ctx context.Context, lead domain.Lead, f Field, rec *AttemptRecord) error {
	if f.Kind == FieldUpload {
		if e.Profile.CVPath == "" {
			return nil // leave the existing resume selection alone
		}
		if err := e.Driver.UploadResume(ctx, e.Profile.CVPath); err != nil {
			return fmt.Errorf("resume upload: %w", err)
		}
		rec.Fields = append(rec.Fields, f.Label+" = "+e.Profile.CVPath)
		return nil
	}

	question := f.Label
	if question == "" {
		question = f.ID
	}
	// Job context helps the generator disambiguate role-specific questions.
	value := e.Answerer.Resolve(ctx, fmt.Sprintf("%s (applying for %s at %s)",
		question, lead.Title, lead.Company))
	if value == "" {
		return nil // blank is acceptable, never fatal
	}
	if f.Kind == FieldChoice {
		value = pickOption(f.Options, value)
		if value == "" {
			return nil
		}
	}
	if err := e.Driver.Fill(ctx, f, value); err != nil {
		return fmt.Errorf("fill %q: %w", f.Label, err)
	}
	rec.Fields = append(rec.Fields, f.Label+" = "+value)
	return nil
}

// pickOption maps a desired answer onto one of the flow's declared options.
// Exact match wins, then substring either way, then a yes/no prefix. Empty
// means no option fits and the field is left on its default.
func pickOption(options []string, want string) string {
	w := strings.ToLower(strings.TrimSpace(want))
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), w) {
			return o
		}
	}
	for _, o := range options {
		lo := strings.ToLower(o)
		if strings.Contains(lo, w) || strings.Contains(w, lo) {
			return o
		}
	}
	if w == "yes" || w == "no" {
		for _, o := range options {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(o)), w) {
				return o
			}
		}
	}
	return ""
}

func (e *Engine) discard(lead domain.Lead) {
	// Best effort; a stuck modal only affects the next attempt's OpenFlow.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Driver.CloseFlow(ctx); err != nil {
		log.Printf("[submit] #%d close flow: %v", lead.ID, err)
	}
}
