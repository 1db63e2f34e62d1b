package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/san-kum/popsim/internal/population"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    metadata TEXT NOT NULL -- JSON
);

-- Time is stored as the quantity named "Time". NaN is stored as NULL.
CREATE TABLE IF NOT EXISTS samples (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    individual_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    step INTEGER NOT NULL,
    value REAL,
    PRIMARY KEY (run_id, individual_id, path, step)
);

CREATE TABLE IF NOT EXISTS failures (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    individual_id INTEGER NOT NULL,
    message TEXT NOT NULL,
    PRIMARY KEY (run_id, individual_id)
);

CREATE TABLE IF NOT EXISTS warnings (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    individual_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    message TEXT NOT NULL,
    PRIMARY KEY (run_id, individual_id, seq)
);
`

// SQLiteStore keeps all runs in a single SQLite database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.ExecContext(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(meta RunMetadata, results *population.RunResults) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta = complete(meta, results)
	encoded, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, metadata) VALUES (?, ?, ?)`,
		meta.ID, meta.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"), string(encoded)); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, individual_id, path, step, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer insert.Close()

	for i := range results.Individuals {
		ind := &results.Individuals[i]
		quantities := append([]population.QuantityValues{ind.Time}, ind.Quantities...)
		for _, q := range quantities {
			for step, v := range q.Values {
				if _, err := insert.ExecContext(ctx, meta.ID, ind.IndividualID, q.Path, step, nullFloat(v)); err != nil {
					return "", fmt.Errorf("failed to insert sample: %w", err)
				}
			}
		}
	}

	for _, f := range results.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, individual_id, message) VALUES (?, ?, ?)`,
			meta.ID, f.IndividualID, f.Message); err != nil {
			return "", fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	for _, w := range results.Warnings {
		for seq, msg := range w.Warnings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO warnings (run_id, individual_id, seq, message) VALUES (?, ?, ?, ?)`,
				meta.ID, w.IndividualID, seq, msg); err != nil {
				return "", fmt.Errorf("failed to insert warning: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *SQLiteStore) List() ([]RunMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(context.Background(), `SELECT metadata FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(runID string) (*RunMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnlocked(context.Background(), runID)
}

func (s *SQLiteStore) loadUnlocked(ctx context.Context, runID string) (*RunMetadata, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM runs WHERE id = ?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *SQLiteStore) LoadResults(runID string) (*population.RunResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	meta, err := s.loadUnlocked(ctx, runID)
	if err != nil {
		return nil, err
	}

	position := map[string]int{population.TimePath: -1}
	for i, p := range meta.Quantities {
		position[p] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT individual_id, path, value FROM samples WHERE run_id = ? ORDER BY individual_id, path, step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var individuals []population.IndividualResult
	index := make(map[int]int)
	for rows.Next() {
		var (
			id    int
			path  string
			value sql.NullFloat64
		)
		if err := rows.Scan(&id, &path, &value); err != nil {
			return nil, err
		}

		idx, ok := index[id]
		if !ok {
			idx = len(individuals)
			index[id] = idx
			ind := population.IndividualResult{
				IndividualID: id,
				Time:         population.QuantityValues{Path: population.TimePath},
				Quantities:   make([]population.QuantityValues, len(meta.Quantities)),
			}
			for i, p := range meta.Quantities {
				ind.Quantities[i].Path = p
			}
			individuals = append(individuals, ind)
		}

		pos, ok := position[path]
		if !ok {
			return nil, fmt.Errorf("run %s: unexpected quantity %s", runID, path)
		}
		v := float32(math.NaN())
		if value.Valid {
			v = float32(value.Float64)
		}
		ind := &individuals[idx]
		if pos < 0 {
			ind.Time.Values = append(ind.Time.Values, v)
		} else {
			ind.Quantities[pos].Values = append(ind.Quantities[pos].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	failures, err := s.loadFailures(ctx, runID)
	if err != nil {
		return nil, err
	}
	warnings, err := s.loadWarnings(ctx, runID)
	if err != nil {
		return nil, err
	}
	return population.NewRunResults(individuals, failures, warnings), nil
}

func (s *SQLiteStore) loadFailures(ctx context.Context, runID string) ([]population.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT individual_id, message FROM failures WHERE run_id = ? ORDER BY individual_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []population.Failure
	for rows.Next() {
		var f population.Failure
		if err := rows.Scan(&f.IndividualID, &f.Message); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

func (s *SQLiteStore) loadWarnings(ctx context.Context, runID string) ([]population.IndividualWarnings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT individual_id, message FROM warnings WHERE run_id = ? ORDER BY individual_id, seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []population.IndividualWarnings
	for rows.Next() {
		var (
			id  int
			msg string
		)
		if err := rows.Scan(&id, &msg); err != nil {
			return nil, err
		}
		if n := len(warnings); n > 0 && warnings[n-1].IndividualID == id {
			warnings[n-1].Warnings = append(warnings[n-1].Warnings, msg)
			continue
		}
		warnings = append(warnings, population.IndividualWarnings{IndividualID: id, Warnings: []string{msg}})
	}
	return warnings, rows.Err()
}

func nullFloat(v float32) sql.NullFloat64 {
	if math.IsNaN(float64(v)) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(v), Valid: true}
}
