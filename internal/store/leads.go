package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobpilot/internal/domain"
)

var ErrNotFound = errors.New("lead not found")

// ErrBackwardTransition is returned by UpdateStatus when the requested status
// would regress the pipeline. Manual overrides use ForceStatus instead.
var ErrBackwardTransition = errors.New("status transition would move backward")

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS leads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  fingerprint TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL,
  region TEXT NOT NULL,
  url TEXT NOT NULL,
  source TEXT NOT NULL,
  salary TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL DEFAULT 0,
  posted_at TEXT NOT NULL DEFAULT '',
  found_at TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'found',
  cover_letter_path TEXT NOT NULL DEFAULT '',
  draft_path TEXT NOT NULL DEFAULT '',
  apply_attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_fingerprint
ON leads(fingerprint);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_leads_status
ON leads(status);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// InsertIfAbsent inserts a lead keyed by fingerprint. When a row with the
// same fingerprint already exists the insert is a no-op and added is false;
// mutable fields on the existing row (url, salary) are refreshed so redirect
// churn doesn't stack duplicates.
func (d *DB) InsertIfAbsent(ctx context.Context, l domain.Lead) (id int64, added bool, err error) {
	foundAt := l.FoundAt
	if foundAt.IsZero() {
		foundAt = time.Now().UTC()
	}

	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO leads
  (fingerprint, title, company, location, region, url, source, salary, score, posted_at, found_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		l.Fingerprint, l.Title, l.Company, l.Location, string(l.Region), l.URL, l.Source,
		l.Salary, l.Score, l.PostedAt, foundAt.Format(time.RFC3339), string(domain.StatusFound),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert lead: %w", err)
	}

	var changes int
	if err := d.Pool.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); err != nil {
		return 0, false, fmt.Errorf("insert lead changes: %w", err)
	}

	if changes > 0 {
		id, _ = res.LastInsertId()
		return id, true, nil
	}

	// Duplicate sighting: refresh mutable fields, never touch status.
	if err := d.Pool.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE fingerprint = ?;`, l.Fingerprint).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("lookup duplicate: %w", err)
	}
	if l.URL != "" || l.Salary != "" {
		_, _ = d.Pool.ExecContext(ctx, `
UPDATE leads
SET url = CASE WHEN ? != '' THEN ? ELSE url END,
    salary = CASE WHEN ? != '' THEN ? ELSE salary END
WHERE id = ?;`,
			l.URL, l.URL, l.Salary, l.Salary, id)
	}
	return id, false, nil
}

const leadColumns = `id, fingerprint, title, company, location, region, url, source, salary, score,
posted_at, found_at, status, cover_letter_path, draft_path, apply_attempts, last_error, notes`

func scanLead(row interface{ Scan(...any) error }) (domain.Lead, error) {
	var l domain.Lead
	var region, status, foundAt string
	err := row.Scan(
		&l.ID, &l.Fingerprint, &l.Title, &l.Company, &l.Location, &region, &l.URL, &l.Source,
		&l.Salary, &l.Score, &l.PostedAt, &foundAt, &status,
		&l.CoverLetterPath, &l.DraftPath, &l.ApplyAttempts, &l.LastError, &l.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	l.Region = domain.Region(region)
	l.Status = domain.Status(status)
	l.FoundAt, _ = time.Parse(time.RFC3339, foundAt)
	return l, nil
}

func (d *DB) Get(ctx context.Context, id int64) (domain.Lead, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?;`, id)
	return scanLead(row)
}

type ListOpts struct {
	Status domain.Status
	Region domain.Region
	Limit  int
}

func (d *DB) List(ctx context.Context, opts ListOpts) ([]domain.Lead, error) {
	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Region != "" {
		where = append(where, "region = ?")
		args = append(args, string(opts.Region))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)

	rows, err := d.Pool.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM leads
%s
ORDER BY score DESC, id ASC
LIMIT ?;`, leadColumns, clause), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// NextActionable returns leads at the given status, ordered by score, for
// the draft generator and the submission engine to claim work from.
func (d *DB) NextActionable(ctx context.Context, status domain.Status, limit int) ([]domain.Lead, error) {
	return d.List(ctx, ListOpts{Status: status, Limit: limit})
}

// UpdateStatus advances a lead. Backward transitions are rejected; the
// current status is re-read inside the same single-writer connection, so a
// concurrent check-then-set cannot interleave.
func (d *DB) UpdateStatus(ctx context.Context, id int64, to domain.Status) error {
	if !domain.ValidStatus(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	cur, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status == to {
		return nil
	}
	if !domain.CanAdvance(cur.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, cur.Status, to)
	}
	_, err = d.Pool.ExecContext(ctx, `UPDATE leads SET status = ? WHERE id = ?;`, string(to), id)
	return err
}

// ForceStatus is the manual override used by the status controller
// (mark-applied, interviewing, rejected, offer). It skips the forward-only
// check on purpose.
func (d *DB) ForceStatus(ctx context.Context, id int64, to domain.Status, note string) error {
	if !domain.ValidStatus(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	res, err := d.Pool.ExecContext(ctx, `
UPDATE leads
SET status = ?,
    notes = CASE WHEN ? != '' THEN TRIM(notes || ' | ' || ?, ' |') ELSE notes END
WHERE id = ?;`,
		string(to), note, note, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDraftPaths records the artifacts the draft generator produced and
// advances the lead to cover_ready.
func (d *DB) SetDraftPaths(ctx context.Context, id int64, coverPath, draftPath string) error {
	if err := d.UpdateStatus(ctx, id, domain.StatusCoverReady); err != nil {
		return err
	}
	_, err := d.Pool.ExecContext(ctx, `
UPDATE leads SET cover_letter_path = ?, draft_path = ? WHERE id = ?;`,
		coverPath, draftPath, id)
	return err
}

// MarkApplied records a confirmed submission: status forward to applied,
// last_error cleared.
func (d *DB) MarkApplied(ctx context.Context, id int64) error {
	if err := d.UpdateStatus(ctx, id, domain.StatusApplied); err != nil {
		return err
	}
	_, err := d.Pool.ExecContext(ctx, `UPDATE leads SET last_error = '' WHERE id = ?;`, id)
	return err
}

// RecordAttemptFailure bumps apply_attempts and stores the failure reason.
// Status stays where it is so the lead remains eligible for retry; callers
// decide separately when the attempts cutoff marks it apply_failed.
func (d *DB) RecordAttemptFailure(ctx context.Context, id int64, reason string) (attempts int, err error) {
	_, err = d.Pool.ExecContext(ctx, `
UPDATE leads SET apply_attempts = apply_attempts + 1, last_error = ? WHERE id = ?;`,
		reason, id)
	if err != nil {
		return 0, err
	}
	err = d.Pool.QueryRowContext(ctx,
		`SELECT apply_attempts FROM leads WHERE id = ?;`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

// MarkApplyFailed excludes a lead from further automated attempts.
func (d *DB) MarkApplyFailed(ctx context.Context, id int64, reason string) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE leads SET status = ?, last_error = ? WHERE id = ?;`,
		string(domain.StatusApplyFailed), reason, id)
	return err
}

type StatusCounts map[domain.Status]int

func (d *DB) CountByStatus(ctx context.Context) (StatusCounts, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := StatusCounts{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[domain.Status(s)] = n
	}
	return out, rows.Err()
}
