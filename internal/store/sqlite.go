package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	if run.State == "" {
		run.State = RunRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.UpdatedAt = run.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_id, job_id, state, progress, message, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowID, run.JobID, string(run.State), run.Progress, run.Message, run.Error,
		run.CreatedAt.Format(time.RFC3339Nano), run.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetRun returns the run with id, or nil when it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, job_id, state, progress, message, error, created_at, updated_at, completed_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.State != "" {
		whereClauses = append(whereClauses, "state = ?")
		countArgs = append(countArgs, opts.State)
	}
	if opts.WorkflowID != "" {
		whereClauses = append(whereClauses, "workflow_id = ?")
		countArgs = append(countArgs, opts.WorkflowID)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, workflow_id, job_id, state, progress, message, error, created_at, updated_at, completed_at
		FROM runs` + whereSQL + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// FinishRun records the terminal state of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, state RunState, errMsg string) error {
	s.logger.Debug("sql", "op", "finish", "table", "runs", "id", id, "state", state)

	now := s.now().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(state), errMsg, now, now, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "runs", id)
}

// --- Status events ---

// AppendStatus records a progress report and updates the run's latest
// progress and message. The run is created when it does not exist yet.
func (s *SQLiteStore) AppendStatus(ctx context.Context, runID string, progress int, message string) error {
	s.logger.Debug("sql", "op", "insert", "table", "status_events", "run_id", runID, "progress", progress)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, progress, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET progress = excluded.progress, message = excluded.message, updated_at = excluded.updated_at`,
		runID, progress, message, now, now,
	); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO status_events (run_id, progress, message, created_at) VALUES (?, ?, ?, ?)`,
		runID, progress, message, now,
	); err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return tx.Commit()
}

// SetRunJob attaches the job id generated at submission to a run.
func (s *SQLiteStore) SetRunJob(ctx context.Context, runID, jobID string) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", runID, "job_id", jobID)

	now := s.now().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET job_id = excluded.job_id, updated_at = excluded.updated_at`,
		runID, jobID, now, now)
	return err
}

// ListStatus returns the status events of a run, oldest first.
func (s *SQLiteStore) ListStatus(ctx context.Context, runID string) ([]*StatusEvent, error) {
	s.logger.Debug("sql", "op", "list", "table", "status_events", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, progress, message, created_at FROM status_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*StatusEvent
	for rows.Next() {
		var ev StatusEvent
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Progress, &ev.Message, &createdAt); err != nil {
			return nil, err
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var state, createdAt, updatedAt string
	var completedAt *string
	if err := sc.Scan(&run.ID, &run.WorkflowID, &run.JobID, &state, &run.Progress, &run.Message, &run.Error,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}
	run.State = RunState(state)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *completedAt)
		run.CompletedAt = &t
	}
	return &run, nil
}

func expectOneRow(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

// ErrNotFound is returned by updates of records that do not exist.
var ErrNotFound = errors.New("not found")
