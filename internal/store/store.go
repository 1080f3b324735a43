package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/transbench/internal"
)

var ErrRunNotFound = errors.New("benchmark run not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS benchmark_runs (
		id TEXT PRIMARY KEY,
		suite TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		models TEXT NOT NULL,
		fastest TEXT,
		duration_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS benchmark_backend_stats (
		run_id TEXT NOT NULL,
		backend TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		successes INTEGER NOT NULL,
		avg_latency_ms REAL,
		PRIMARY KEY (run_id, backend),
		FOREIGN KEY (run_id) REFERENCES benchmark_runs(id)
	);

	-- benchmark_outcomes stores every (sentence, backend) result of a run
	CREATE TABLE IF NOT EXISTS benchmark_outcomes (
		run_id TEXT NOT NULL,
		item_idx INTEGER NOT NULL,
		source_text TEXT NOT NULL,
		backend TEXT NOT NULL,
		translation TEXT,
		status TEXT NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		PRIMARY KEY (run_id, item_idx, backend),
		FOREIGN KEY (run_id) REFERENCES benchmark_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON benchmark_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_stats_backend ON benchmark_backend_stats(backend);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveBenchmarkRun writes a run with its stats and outcomes in one
// transaction.
func (s *Store) SaveBenchmarkRun(ctx context.Context, run internal.BenchmarkRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO benchmark_runs (id, suite, target_lang, models, fastest, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.TargetLanguage, strings.Join(run.Models, ","), run.Fastest, run.Duration.Milliseconds(), createdAt.UTC()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, st := range run.Stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO benchmark_backend_stats (run_id, backend, attempts, successes, avg_latency_ms) VALUES (?, ?, ?, ?, ?)`,
			run.ID, st.Backend, st.Attempts, st.Successes, st.AvgLatency*1000); err != nil {
			return fmt.Errorf("insert stat %s: %w", st.Backend, err)
		}
	}

	for _, item := range run.Items {
		for _, o := range item.Outcomes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO benchmark_outcomes (run_id, item_idx, source_text, backend, translation, status, latency_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, item.Index, normalizeText(item.Original), o.Backend, o.Translation, o.Status, int64(o.Latency*1000), o.Error); err != nil {
				return fmt.Errorf("insert outcome %d/%s: %w", item.Index, o.Backend, err)
			}
		}
	}

	return tx.Commit()
}

// ListBenchmarkRuns returns the most recent runs first, with stats but
// without per-sentence outcomes. limit <= 0 means no limit.
func (s *Store) ListBenchmarkRuns(ctx context.Context, limit int) ([]internal.BenchmarkRun, error) {
	query := `SELECT id, suite, target_lang, models, COALESCE(fastest, ''), COALESCE(duration_ms, 0), created_at FROM benchmark_runs ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.BenchmarkRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		stats, err := s.runStats(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stats = stats
	}
	return runs, nil
}

// GetBenchmarkRun loads one run including its per-sentence outcomes.
func (s *Store) GetBenchmarkRun(ctx context.Context, id string) (*internal.BenchmarkRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, suite, target_lang, models, COALESCE(fastest, ''), COALESCE(duration_ms, 0), created_at FROM benchmark_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if run.Stats, err = s.runStats(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_idx, source_text, backend, COALESCE(translation, ''), status, COALESCE(latency_ms, 0), COALESCE(error, '') FROM benchmark_outcomes WHERE run_id = ? ORDER BY item_idx, rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var source string
		var latencyMs int64
		var o internal.BackendOutcome
		if err := rows.Scan(&idx, &source, &o.Backend, &o.Translation, &o.Status, &latencyMs, &o.Error); err != nil {
			return nil, err
		}
		o.Latency = float64(latencyMs) / 1000
		if n := len(run.Items); n == 0 || run.Items[n-1].Index != idx {
			run.Items = append(run.Items, internal.BenchmarkItem{Index: idx, Original: source})
		}
		last := &run.Items[len(run.Items)-1]
		last.Outcomes = append(last.Outcomes, o)
	}
	return &run, rows.Err()
}

// BackendSummaries aggregates stats per backend across every stored run.
func (s *Store) BackendSummaries(ctx context.Context) ([]internal.BackendSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			backend,
			COUNT(*),
			COALESCE(SUM(attempts), 0),
			COALESCE(SUM(successes), 0),
			COALESCE(SUM(avg_latency_ms * successes), 0)
		FROM benchmark_backend_stats
		GROUP BY backend
		ORDER BY backend`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BackendSummary
	for rows.Next() {
		var sum internal.BackendSummary
		var weightedMs float64
		if err := rows.Scan(&sum.Backend, &sum.Runs, &sum.Attempts, &sum.Successes, &weightedMs); err != nil {
			return nil, err
		}
		if sum.Successes > 0 {
			sum.AvgLatency = weightedMs / float64(sum.Successes) / 1000
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runStats(ctx context.Context, runID string) ([]internal.BackendStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT backend, attempts, successes, COALESCE(avg_latency_ms, 0) FROM benchmark_backend_stats WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []internal.BackendStat
	for rows.Next() {
		var st internal.BackendStat
		var avgMs float64
		if err := rows.Scan(&st.Backend, &st.Attempts, &st.Successes, &avgMs); err != nil {
			return nil, err
		}
		st.AvgLatency = avgMs / 1000
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (internal.BenchmarkRun, error) {
	var run internal.BenchmarkRun
	var models string
	var durationMs int64
	if err := row.Scan(&run.ID, &run.Suite, &run.TargetLanguage, &models, &run.Fastest, &durationMs, &run.CreatedAt); err != nil {
		return run, err
	}
	if models != "" {
		run.Models = strings.Split(models, ",")
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so stored sentences compare consistently across runs.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
