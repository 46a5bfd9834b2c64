package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, run_id, dir, args_json, status, exit_code, error_message, bytes_out, started_at, finished_at"

// Begin records a request accepted for execution.
func (s *Store) Begin(ctx context.Context, runID, dir string, args []string) (*Run, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	argsJSON, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, dir, args_json, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID,
		dir,
		argsJSON,
		StatusRunning,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Complete finalizes a running record with its outcome. A nonzero exit code or
// a non-empty error message marks the run failed.
func (s *Store) Complete(ctx context.Context, runID string, exitCode int, bytesOut int64, errMessage string) error {
	status := StatusCompleted
	if exitCode != 0 || errMessage != "" {
		status = StatusFailed
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, exit_code = ?, bytes_out = ?, error_message = ?, finished_at = ? WHERE run_id = ?`,
		status,
		exitCode,
		bytesOut,
		nullableString(errMessage),
		timestamp,
		runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete run: unknown run %s", runID)
	}
	return nil
}

// Reject records a request the launcher refused to execute.
func (s *Store) Reject(ctx context.Context, runID, dir string, args []string, reason string) (*Run, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	argsJSON, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, dir, args_json, status, error_message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		dir,
		argsJSON,
		StatusRejected,
		nullableString(reason),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rejected run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a run by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetByRunID fetches a run by its launch identifier.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run by run id: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Prune deletes all but the newest keep runs and reports how many went away.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          int64
		runID       string
		dir         sql.NullString
		argsJSON    sql.NullString
		statusStr   string
		exitCode    sql.NullInt64
		errMessage  sql.NullString
		bytesOut    sql.NullInt64
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&dir,
		&argsJSON,
		&statusStr,
		&exitCode,
		&errMessage,
		&bytesOut,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		RunID:        runID,
		Dir:          dir.String,
		Status:       Status(statusStr),
		ErrorMessage: errMessage.String,
	}
	if exitCode.Valid {
		run.ExitCode = int(exitCode.Int64)
	}
	if bytesOut.Valid {
		run.BytesOut = bytesOut.Int64
	}
	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &run.Args); err != nil {
			return nil, fmt.Errorf("decode run args: %w", err)
		}
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func marshalArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal run args: %w", err)
	}
	return string(encoded), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
