package report

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/resolver"
	"github.com/strataconf/strata/pkg/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned when the requested run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store persists resolution runs in a SQLite database.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Config holds store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore creates a store instance for the given database path, defaulting
// any unset pool settings. Call Init and Migrate before use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &Store{cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *Store) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRun persists a completed run and all its target results in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, run *resolver.Run) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, completed_at, duration_ns, total, resolved, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC(),
		run.CompletedAt.UTC(),
		run.Duration.Nanoseconds(),
		run.Summary.Total,
		run.Summary.Resolved,
		run.Summary.Failed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range run.Targets {
		if err := s.insertTargetResult(ctx, tx, run.ID, &run.Targets[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func (s *Store) insertTargetResult(ctx context.Context, tx *sql.Tx, runID string, result *resolver.TargetResult) error {
	groups, err := marshalJSON(result.Groups)
	if err != nil {
		return fmt.Errorf("failed to encode groups for %s: %w", result.Target, err)
	}

	var config *string
	if result.Config != nil {
		config, err = marshalJSON(result.Config.Values.ToGo())
		if err != nil {
			return fmt.Errorf("failed to encode config for %s: %w", result.Target, err)
		}
	}

	errs, err := marshalJSON(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors for %s: %w", result.Target, err)
	}

	prov, err := marshalJSON(result.Provenance)
	if err != nil {
		return fmt.Errorf("failed to encode provenance for %s: %w", result.Target, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO target_results (id, run_id, target, target_groups, status, config, errors, provenance, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(),
		runID,
		result.Target,
		groups,
		string(result.Status),
		config,
		errs,
		prov,
		result.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert target result for %s: %w", result.Target, err)
	}
	return nil
}

// GetRun retrieves a stored run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*StoredRun, error) {
	run := &StoredRun{}
	var durationNS int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, duration_ns, total, resolved, failed, created_at
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.CompletedAt,
		&durationNS,
		&run.Total,
		&run.Resolved,
		&run.Failed,
		&run.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Duration = time.Duration(durationNS)
	return run, nil
}

// ListRuns lists stored runs, newest first, with pagination.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]*StoredRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, duration_ns, total, resolved, failed, created_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*StoredRun{}
	for rows.Next() {
		run := &StoredRun{}
		var durationNS int64
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.CompletedAt,
			&durationNS,
			&run.Total,
			&run.Resolved,
			&run.Failed,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationNS)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListTargetResults lists the stored results of one run, ordered by target
// name.
func (s *Store) ListTargetResults(ctx context.Context, runID string) ([]*StoredTargetResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, target, target_groups, status, config, errors, provenance, duration_ns
		FROM target_results
		WHERE run_id = ?
		ORDER BY target ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list target results: %w", err)
	}
	defer rows.Close()

	results := []*StoredTargetResult{}
	for rows.Next() {
		r := &StoredTargetResult{}
		var groups, config, errs, prov sql.NullString
		var durationNS int64
		err := rows.Scan(
			&r.ID,
			&r.RunID,
			&r.Target,
			&groups,
			&r.Status,
			&config,
			&errs,
			&prov,
			&durationNS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target result: %w", err)
		}
		r.Duration = time.Duration(durationNS)

		if err := unmarshalJSON(groups, &r.Groups); err != nil {
			return nil, fmt.Errorf("failed to decode groups for %s: %w", r.Target, err)
		}
		if config.Valid {
			if err := json.Unmarshal([]byte(config.String), &r.Config); err != nil {
				return nil, fmt.Errorf("failed to decode config for %s: %w", r.Target, err)
			}
		}
		if err := unmarshalJSON(errs, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors for %s: %w", r.Target, err)
		}
		if err := unmarshalJSON(prov, &r.Provenance); err != nil {
			return nil, fmt.Errorf("failed to decode provenance for %s: %w", r.Target, err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target results: %w", err)
	}
	return results, nil
}

// DeleteRun deletes a run and, via cascade, its target results.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// marshalJSON encodes v, returning nil for empty values so the column
// stores NULL instead of "null" or "[]".
func marshalJSON(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []schema.ValidationError:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]merge.Provenance:
		if len(t) == 0 {
			return nil, nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func unmarshalJSON(col sql.NullString, out any) error {
	if !col.Valid {
		return nil
	}
	return json.Unmarshal([]byte(col.String), out)
}
