package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/riskloop/internal/stats"
)

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (or creates) the run database at
// <projectRoot>/.riskloop/runs.db.
func NewSQLiteRunStore(projectRoot string) (*SQLiteRunStore, error) {
	return OpenSQLiteRunStore(DBPath(projectRoot))
}

// OpenSQLiteRunStore opens (or creates) the run database at dbPath.
func OpenSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores the run and its percentile table in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, rec *RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareRecord(rec)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, source, trials, seed, categories,
			mean, median, min, max, std_dev, expected_loss
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(timeLayout),
		rec.Source,
		rec.Trials,
		strconv.FormatUint(rec.Seed, 10),
		rec.Categories,
		rec.Summary.Mean,
		rec.Summary.Median,
		rec.Summary.Min,
		rec.Summary.Max,
		rec.Summary.StdDev,
		rec.ExpectedLoss,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, p := range rec.Percentiles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_percentiles (run_id, position, percentile, value) VALUES (?, ?, ?, ?)`,
			rec.ID, i, p.Percentile, p.Value); err != nil {
			return "", fmt.Errorf("failed to insert percentile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return rec.ID, nil
}

// GetRun returns a run by exact ID or unique ID prefix.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, fullID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadPercentiles(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveID expands an ID prefix to a full ID.
func (s *SQLiteRunStore) resolveID(ctx context.Context, id string) (string, error) {
	var exact int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exact); err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	if exact == 1 {
		return id, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return "", fmt.Errorf("failed to look up run prefix: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up run prefix: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// ListRuns returns runs newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRuns + ` ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	// Close before issuing more queries on the single connection.
	rows.Close()

	for i := range out {
		if err := s.loadPercentiles(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteRun removes a run and, by cascade, its percentiles.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectRuns = `
	SELECT id, created_at, source, trials, seed, categories,
	       mean, median, min, max, std_dev, expected_loss
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec       RunRecord
		createdAt string
		seed      string
	)
	err := row.Scan(
		&rec.ID, &createdAt, &rec.Source, &rec.Trials, &seed, &rec.Categories,
		&rec.Summary.Mean, &rec.Summary.Median, &rec.Summary.Min, &rec.Summary.Max,
		&rec.Summary.StdDev, &rec.ExpectedLoss,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", rec.ID, createdAt, err)
	}
	if rec.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s: bad seed %q: %w", rec.ID, seed, err)
	}
	return &rec, nil
}

func (s *SQLiteRunStore) loadPercentiles(ctx context.Context, rec *RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT percentile, value FROM run_percentiles WHERE run_id = ? ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load percentiles: %w", err)
	}
	defer rows.Close()

	rec.Percentiles = []stats.PercentileValue{}
	for rows.Next() {
		var p stats.PercentileValue
		if err := rows.Scan(&p.Percentile, &p.Value); err != nil {
			return fmt.Errorf("failed to scan percentile: %w", err)
		}
		rec.Percentiles = append(rec.Percentiles, p)
	}
	return rows.Err()
}

// prepareRecord assigns an ID and creation time when missing.
func prepareRecord(rec *RunRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
}
