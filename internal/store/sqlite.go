package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			mode TEXT NOT NULL,
			check_kind TEXT NOT NULL,
			base INTEGER NOT NULL,
			crit_chance INTEGER NOT NULL,
			crit_damage INTEGER NOT NULL,
			dhit_chance INTEGER NOT NULL,
			sample_count INTEGER NOT NULL DEFAULT 0,
			anomaly_count INTEGER NOT NULL DEFAULT 0,
			hole_count INTEGER NOT NULL DEFAULT 0,
			gap_count INTEGER NOT NULL DEFAULT 0,
			suspicious_count INTEGER NOT NULL DEFAULT 0,
			engine_version TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			combo TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			value INTEGER NOT NULL,
			suspicious INTEGER NOT NULL DEFAULT 0,
			detail TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run_id ON findings(run_id)`,
	}

	for _, migration := range baseMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("base migration failed: %w", err)
		}
	}

	// Columns added after the first schema; re-running them is expected.
	alterMigrations := []string{
		`ALTER TABLE runs ADD COLUMN distinct_count INTEGER DEFAULT 0`,
		`ALTER TABLE runs ADD COLUMN invariant_violations INTEGER DEFAULT 0`,
	}

	for _, migration := range alterMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			if !isDuplicateColumnError(err) {
				return fmt.Errorf("alter migration failed: %w", err)
			}
		}
	}

	indexMigrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_scenario_created ON runs(scenario, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run_order ON findings(run_id, combo, kind, value)`,
	}

	for _, migration := range indexMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("index migration failed: %w", err)
		}
	}

	return nil
}

// isDuplicateColumnError checks if the error is a duplicate column error
func isDuplicateColumnError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

const runColumns = `id, scenario, mode, check_kind, base, crit_chance, crit_damage, dhit_chance,
		sample_count, distinct_count, anomaly_count, hole_count, gap_count, suspicious_count,
		invariant_violations, engine_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var distinct, invariants sql.NullInt64
	err := row.Scan(
		&run.ID, &run.Scenario, &run.Mode, &run.Check,
		&run.Base, &run.CritChance, &run.CritDamage, &run.DHitChance,
		&run.SampleCount, &distinct, &run.AnomalyCount, &run.HoleCount, &run.GapCount,
		&run.SuspiciousCount, &invariants, &run.EngineVersion, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.DistinctCount = int(distinct.Int64)
	run.InvariantViolations = int(invariants.Int64)
	return &run, nil
}

// SaveRun saves a verification run to the database
func (s *SQLiteDB) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `INSERT INTO runs (
		id, scenario, mode, check_kind, base, crit_chance, crit_damage, dhit_chance,
		sample_count, distinct_count, anomaly_count, hole_count, gap_count, suspicious_count,
		invariant_violations, engine_version
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		run.ID, run.Scenario, run.Mode, run.Check,
		run.Base, run.CritChance, run.CritDamage, run.DHitChance,
		run.SampleCount, run.DistinctCount, run.AnomalyCount, run.HoleCount, run.GapCount,
		run.SuspiciousCount, run.InvariantViolations, run.EngineVersion,
	)

	return err
}

// SaveFindings saves a run's findings in one transaction
func (s *SQLiteDB) SaveFindings(runID string, findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO findings (run_id, combo, kind, value, suspicious, detail) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range findings {
		suspicious := 0
		if f.Suspicious {
			suspicious = 1
		}
		var detail sql.NullString
		if f.Detail != "" {
			detail = sql.NullString{String: f.Detail, Valid: true}
		}

		if _, err := stmt.Exec(runID, f.Combo, string(f.Kind), f.Value, suspicious, detail); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID
func (s *SQLiteDB) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(query RunsQuery) (*RunsList, error) {
	whereClause := ""
	args := []any{}

	if query.Scenario != "" {
		whereClause = "WHERE scenario = ?"
		args = append(args, query.Scenario)
	}

	var totalCount int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + runColumns + `
		FROM runs ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// GetRunFindings retrieves findings for a run with server-side pagination and
// the value delta to the previous finding of the same combo and kind.
func (s *SQLiteDB) GetRunFindings(runID string, page, perPage int) (*FindingsPage, error) {
	var totalCount int
	err := s.db.QueryRow("SELECT COUNT(*) FROM findings WHERE run_id = ?", runID).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings count: %w", err)
	}

	if perPage <= 0 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}

	totalPages := (totalCount + perPage - 1) / perPage
	offset := (page - 1) * perPage

	query := `SELECT id, run_id, combo, kind, value, suspicious, detail
		FROM findings WHERE run_id = ?
		ORDER BY combo, kind, value, id
		LIMIT ? OFFSET ?`

	rows, err := s.db.Query(query, runID, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		var kind string
		var suspicious int
		var detail sql.NullString

		if err := rows.Scan(&f.ID, &f.RunID, &f.Combo, &kind, &f.Value, &suspicious, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Kind = FindingKind(kind)
		f.Suspicious = suspicious == 1
		if detail.Valid {
			f.Detail = detail.String
		}

		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}

	withDelta := make([]FindingWithDelta, len(findings))
	for i, f := range findings {
		withDelta[i] = FindingWithDelta{Finding: f}

		if i > 0 && sameSeries(findings[i-1], f) {
			delta := f.Value - findings[i-1].Value
			withDelta[i].DeltaValue = &delta
		} else if i == 0 && page > 1 && f.Kind != KindInvariant {
			// First finding on a later page: look back across the page boundary.
			prevQuery := `SELECT value FROM findings
				WHERE run_id = ? AND combo = ? AND kind = ? AND value < ?
				ORDER BY value DESC LIMIT 1`
			var prev uint64
			if err := s.db.QueryRow(prevQuery, runID, f.Combo, string(f.Kind), f.Value).Scan(&prev); err == nil {
				delta := f.Value - prev
				withDelta[i].DeltaValue = &delta
			}
		}
	}

	return &FindingsPage{
		Findings:   withDelta,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

func sameSeries(a, b Finding) bool {
	return a.Combo == b.Combo && a.Kind == b.Kind && a.Kind != KindInvariant
}
