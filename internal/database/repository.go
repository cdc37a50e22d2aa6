package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-bosszp-automation/internal/dedup"
	"go-bosszp-automation/internal/models"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path and migrates it.
func Open(ctx context.Context, path string) (*Repository, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive unreachable: %w", err)
	}

	r := &Repository{db: db}
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		keywords    TEXT NOT NULL,
		criteria    TEXT NOT NULL,
		jobs        INTEGER NOT NULL DEFAULT 0,
		details     INTEGER NOT NULL DEFAULT 0,
		matched     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		encrypt_id    TEXT PRIMARY KEY,
		job_name      TEXT NOT NULL,
		brand_name    TEXT NOT NULL DEFAULT '',
		salary_desc   TEXT NOT NULL DEFAULT '',
		degree        TEXT NOT NULL DEFAULT '',
		experience    TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		raw           TEXT NOT NULL,
		matched       INTEGER NOT NULL DEFAULT 0,
		times_seen    INTEGER NOT NULL DEFAULT 1,
		first_run_id  TEXT NOT NULL,
		last_run_id   TEXT NOT NULL,
		first_seen_at TEXT NOT NULL,
		last_seen_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen_at)`,
}

// Migrate creates the tables. It is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ---------------- RUN OPERATIONS ----------------

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Keywords   []string
	Criteria   models.UserCriteria
	Jobs       int
	Details    int
	Matched    int
}

func (r *Repository) SaveRun(ctx context.Context, run Run) error {
	keywords, err := json.Marshal(run.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	criteria, err := json.Marshal(run.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	query := `
		INSERT INTO runs (id, started_at, finished_at, keywords, criteria, jobs, details, matched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET finished_at = excluded.finished_at, keywords = excluded.keywords,
			jobs = excluded.jobs, details = excluded.details, matched = excluded.matched`
	_, err = r.db.ExecContext(ctx, query, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		string(keywords), string(criteria), run.Jobs, run.Details, run.Matched)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var started, finished, keywords, criteria string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, keywords, criteria, jobs, details, matched FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &started, &finished, &keywords, &criteria, &run.Jobs, &run.Details, &run.Matched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &run.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(criteria), &run.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}
	return &run, nil
}

// ---------------- JOB OPERATIONS ----------------

type ArchivedJob struct {
	EncryptID   string
	JobName     string
	BrandName   string
	SalaryDesc  string
	Degree      string
	Experience  string
	Location    string
	Description string
	Matched     bool
	TimesSeen   int
	FirstRunID  string
	LastRunID   string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Detail      models.JobDetailItem
}

// SaveDetails upserts every detail with an id under runID. matched holds the
// ids that passed the criteria. It returns how many ids were not archived before.
func (r *Repository) SaveDetails(ctx context.Context, runID string, details []models.JobDetailItem, matched map[string]struct{}) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO jobs (encrypt_id, job_name, brand_name, salary_desc, degree, experience, location,
			description, raw, matched, times_seen, first_run_id, last_run_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (encrypt_id)
		DO UPDATE SET job_name = excluded.job_name, brand_name = excluded.brand_name,
			salary_desc = excluded.salary_desc, degree = excluded.degree, experience = excluded.experience,
			location = excluded.location, description = excluded.description, raw = excluded.raw,
			matched = excluded.matched, last_run_id = excluded.last_run_id, last_seen_at = excluded.last_seen_at,
			times_seen = CASE WHEN jobs.last_run_id = excluded.last_run_id THEN jobs.times_seen ELSE jobs.times_seen + 1 END`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM jobs WHERE encrypt_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer exists.Close()

	now := formatTime(time.Now())
	seen := dedup.NewSeen()
	created := 0
	for _, d := range details {
		id := d.JobInfo.EncryptID
		if id == "" || !seen.Add(id) {
			continue
		}

		var one int
		switch err := exists.QueryRowContext(ctx, id).Scan(&one); {
		case errors.Is(err, sql.ErrNoRows):
			created++
		case err != nil:
			return 0, fmt.Errorf("lookup %s: %w", id, err)
		}

		raw, err := json.Marshal(d)
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", id, err)
		}
		_, isMatched := matched[id]
		info := d.JobInfo
		_, err = stmt.ExecContext(ctx, id, info.JobName, d.BrandComInfo.BrandName, info.SalaryDesc, info.DegreeName,
			info.ExperienceName, info.LocationName, info.PostDescription, string(raw), isMatched,
			runID, runID, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to save job %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *Repository) GetJob(ctx context.Context, encryptID string) (*ArchivedJob, error) {
	var job ArchivedJob
	var raw, firstSeen, lastSeen string
	query := `SELECT encrypt_id, job_name, brand_name, salary_desc, degree, experience, location, description,
		raw, matched, times_seen, first_run_id, last_run_id, first_seen_at, last_seen_at FROM jobs WHERE encrypt_id = ?`
	err := r.db.QueryRowContext(ctx, query, encryptID).
		Scan(&job.EncryptID, &job.JobName, &job.BrandName, &job.SalaryDesc, &job.Degree, &job.Experience, &job.Location,
			&job.Description, &raw, &job.Matched, &job.TimesSeen, &job.FirstRunID, &job.LastRunID, &firstSeen, &lastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", encryptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job.FirstSeenAt, err = parseTime(firstSeen); err != nil {
		return nil, err
	}
	if job.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &job.Detail); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", encryptID, err)
	}
	return &job, nil
}

// KnownIDs loads every archived id.
func (r *Repository) KnownIDs(ctx context.Context) (*dedup.Seen, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT encrypt_id FROM jobs ORDER BY first_seen_at, encrypt_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	seen := dedup.NewSeen()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen.Add(id)
	}
	return seen, rows.Err()
}

func (r *Repository) CountJobs(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
