package submit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

// BrowserDriver drives the target site's quick-apply modal through a single
// headless Chrome session. Field discovery and button classification run as
// in-page scripts because the modal markup changes too often to pin selectors.
type BrowserDriver struct {
	cfg         config.Config
	browserCtx  context.Context
	cancels     []context.CancelFunc
	stepTimeout time.Duration
}

// NewBrowserDriver starts the browser and installs the session cookie. An
// empty token is reported as an expired session so the run aborts before any
// attempt, distinctly from interaction failures.
func NewBrowserDriver(ctx context.Context, cfg config.Config, sessionToken string) (*BrowserDriver, error) {
	if sessionToken == "" {
		return nil, fmt.Errorf("%w (no token stored)", ErrSessionExpired)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)...,
	)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	d := &BrowserDriver{
		cfg:         cfg,
		browserCtx:  browserCtx,
		cancels:     []context.CancelFunc{ctxCancel, allocCancel},
		stepTimeout: cfg.StepTimeout(),
	}

	cookieDomain := cfg.Apply.SessionDomain
	cookie := cfg.Apply.SessionCookie
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie(cookie, sessionToken).
				WithDomain(cookieDomain).
				WithPath("/").
				WithSecure(true).
				WithHTTPOnly(true).
				Do(ctx)
		}),
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("set session cookie: %w", err)
	}
	return d, nil
}

func (d *BrowserDriver) Close() {
	for _, cancel := range d.cancels {
		cancel()
	}
}

// run executes actions against the shared browser tab with a step timeout.
// The caller's ctx gates the whole call so run-level cancellation still wins.
func (d *BrowserDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(d.browserCtx, d.stepTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(stepCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (d *BrowserDriver) CheckSession(ctx context.Context) error {
	var loc string
	err := d.run(ctx,
		chromedp.Navigate(d.cfg.Apply.SessionCheckURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&loc),
	)
	if err != nil {
		return fmt.Errorf("session check navigation: %w", err)
	}
	if strings.Contains(loc, "/login") || strings.Contains(loc, "authwall") ||
		strings.Contains(loc, "checkpoint") {
		return ErrSessionExpired
	}
	return nil
}

// openFlowJS clicks the quick-apply control if one exists. Returns "opened",
// "external" when only an off-site apply control is present, or "none".
const openFlowJS = `(() => {
	const btns = Array.from(document.querySelectorAll('button, a[role="button"]'));
	const quick = btns.find(b => {
		const t = (b.innerText || '').trim().toLowerCase();
		const c = b.className || '';
		return c.includes('jobs-apply-button') || t === 'easy apply' || t.startsWith('easy apply');
	});
	if (quick) { quick.click(); return 'opened'; }
	const external = btns.find(b => (b.innerText || '').trim().toLowerCase().startsWith('apply'));
	return external ? 'external' : 'none';
})()`

func (d *BrowserDriver) OpenFlow(ctx context.Context, lead domain.Lead) error {
	var result string
	err := d.run(ctx,
		chromedp.Navigate(lead.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(openFlowJS, &result),
	)
	if err != nil {
		return fmt.Errorf("open posting: %w", err)
	}
	switch result {
	case "opened":
	default:
		return ErrUnsupportedFlow
	}
	// Wait for the modal to exist before declaring the flow open.
	if err := d.run(ctx,
		chromedp.WaitVisible(`div[role="dialog"]`, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
	); err != nil {
		return fmt.Errorf("apply modal: %w", err)
	}
	return nil
}

// fieldsJS tags each visible input in the modal with a stable data attribute
// and reports label, kind, and options so the engine can decide what to fill.
const fieldsJS = `(() => {
	const dialog = document.querySelector('div[role="dialog"]');
	if (!dialog) return [];
	const out = [];
	let i = 0;
	for (const el of dialog.querySelectorAll('input, select, textarea')) {
		if (el.type === 'hidden' || el.disabled) continue;
		const rect = el.getBoundingClientRect();
		if (el.type !== 'file' && rect.width === 0 && rect.height === 0) continue;
		const id = 'jp-' + (i++);
		el.setAttribute('data-jp-field', id);
		let label = '';
		if (el.labels && el.labels.length) label = el.labels[0].innerText;
		if (!label) label = el.getAttribute('aria-label') || el.placeholder || el.name || '';
		let kind = 'text';
		if (el.tagName === 'SELECT') kind = 'choice';
		if (el.type === 'file') kind = 'upload';
		if (el.type === 'radio' || el.type === 'checkbox') continue;
		const options = el.tagName === 'SELECT'
			? Array.from(el.options).map(o => o.text.trim()).filter(t => t && !t.toLowerCase().startsWith('select'))
			: [];
		const filled = kind === 'text' && el.value && el.value.trim() !== '';
		if (filled) continue;
		out.push({id, label: label.trim(), kind, options});
	}
	return out;
})()`

type pageField struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []string `json:"options"`
}

func (d *BrowserDriver) Fields(ctx context.Context) ([]Field, error) {
	var raw []pageField
	if err := d.run(ctx, chromedp.Evaluate(fieldsJS, &raw)); err != nil {
		return nil, fmt.Errorf("discover fields: %w", err)
	}
	fields := make([]Field, 0, len(raw))
	for _, f := range raw {
		fields = append(fields, Field{
			ID:      f.ID,
			Label:   f.Label,
			Kind:    FieldKind(f.Kind),
			Options: f.Options,
		})
	}
	return fields, nil
}

func (d *BrowserDriver) Fill(ctx context.Context, field Field, value string) error {
	sel := fmt.Sprintf(`[data-jp-field=%q]`, field.ID)
	if field.Kind == FieldChoice {
		return d.run(ctx, chromedp.SetValue(sel, value, chromedp.ByQuery))
	}
	return d.run(ctx,
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

func (d *BrowserDriver) UploadResume(ctx context.Context, path string) error {
	return d.run(ctx,
		chromedp.SetUploadFiles(`div[role="dialog"] input[type="file"]`,
			[]string{path}, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
}

// navJS classifies the modal's primary button and tags it for clicking.
const navJS = `(() => {
	const dialog = document.querySelector('div[role="dialog"]');
	if (!dialog) return 'none';
	const btns = Array.from(dialog.querySelectorAll('button'));
	const find = words => btns.find(b => {
		const t = ((b.getAttribute('aria-label') || '') + ' ' + (b.innerText || '')).toLowerCase();
		return words.some(w => t.includes(w));
	});
	const submit = find(['submit application', 'submit']);
	if (submit) { submit.setAttribute('data-jp-action', 'submit'); return 'submit'; }
	const review = find(['review your application', 'review']);
	if (review) { review.setAttribute('data-jp-action', 'advance'); return 'review'; }
	const next = find(['continue to next step', 'next']);
	if (next) { next.setAttribute('data-jp-action', 'advance'); return 'next'; }
	return 'none';
})()`

func (d *BrowserDriver) NextAction(ctx context.Context) (StepAction, error) {
	var result string
	if err := d.run(ctx, chromedp.Evaluate(navJS, &result)); err != nil {
		return StepNone, fmt.Errorf("classify step: %w", err)
	}
	switch result {
	case "submit":
		return StepSubmit, nil
	case "review":
		return StepReview, nil
	case "next":
		return StepNext, nil
	}
	return StepNone, nil
}

func (d *BrowserDriver) Advance(ctx context.Context) error {
	return d.run(ctx,
		chromedp.Click(`[data-jp-action="advance"]`, chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
	)
}

func (d *BrowserDriver) Submit(ctx context.Context) error {
	return d.run(ctx,
		chromedp.Click(`[data-jp-action="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
}

// confirmJS looks for the post-submission indicator. Absence is failure.
const confirmJS = `(() => {
	const text = document.body.innerText.toLowerCase();
	return text.includes('application sent') ||
		text.includes('your application was sent') ||
		document.querySelector('.artdeco-modal [class*="post-apply"]') !== null;
})()`

func (d *BrowserDriver) Confirmed(ctx context.Context) (bool, error) {
	var ok bool
	if err := d.run(ctx, chromedp.Evaluate(confirmJS, &ok)); err != nil {
		return false, fmt.Errorf("confirmation check: %w", err)
	}
	return ok, nil
}

// closeFlowJS dismisses the modal and confirms the discard prompt if shown.
const closeFlowJS = `(() => {
	const dismiss = document.querySelector('div[role="dialog"] button[aria-label*="Dismiss"]');
	if (dismiss) dismiss.click();
	return true;
})()`

const discardJS = `(() => {
	const btns = Array.from(document.querySelectorAll('button'));
	const discard = btns.find(b => (b.innerText || '').toLowerCase().includes('discard'));
	if (discard) discard.click();
	return true;
})()`

func (d *BrowserDriver) CloseFlow(ctx context.Context) error {
	var ok bool
	if err := d.run(ctx,
		chromedp.Evaluate(closeFlowJS, &ok),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(discardJS, &ok),
	); err != nil {
		log.Printf("[submit] dismiss modal: %v", err)
		return err
	}
	return nil
}
