package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modsplit/internal/graph"
	"modsplit/internal/report"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT,
			source_hash TEXT,
			created_at TEXT,
			units INTEGER,
			warnings INTEGER,
			cycles INTEGER,
			report JSON
		);`,
		`CREATE TABLE IF NOT EXISTS units (
			run_id TEXT,
			name TEXT,
			role TEXT,
			path TEXT,
			lines INTEGER,
			imports INTEGER,
			members INTEGER,
			PRIMARY KEY (run_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT,
			seq INTEGER,
			from_id TEXT,
			to_id TEXT,
			kind TEXT,
			PRIMARY KEY (run_id, from_id, to_id, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS warnings (
			run_id TEXT,
			seq INTEGER,
			code TEXT,
			stage TEXT,
			severity TEXT,
			unit TEXT,
			subject TEXT,
			message TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Run.ID == "" {
		return errors.New("snapshot without a run id")
	}
	var reportJSON []byte
	if snap.Report != nil {
		b, err := json.Marshal(snap.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		reportJSON = b
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r := snap.Run
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, source_hash, created_at, units, warnings, cycles, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			source_hash=excluded.source_hash,
			created_at=excluded.created_at,
			units=excluded.units,
			warnings=excluded.warnings,
			cycles=excluded.cycles,
			report=excluded.report
	`, r.ID, r.Source, r.SourceHash, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Units, r.Warnings, r.Cycles, reportJSON)
	if err != nil {
		return err
	}

	// Replace the child rows so the stored run matches the snapshot exactly.
	for _, table := range []string{"units", "edges", "warnings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", r.ID); err != nil {
			return err
		}
	}

	unitStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO units (run_id, name, role, path, lines, imports, members) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer unitStmt.Close()
	for _, u := range snap.Units {
		if _, err := unitStmt.ExecContext(ctx, r.ID, u.Name, u.Role, u.Path, u.Lines, u.Imports, u.Members); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (run_id, seq, from_id, to_id, kind) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, from_id, to_id, kind) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for i, e := range snap.Graph.Edges {
		if _, err := edgeStmt.ExecContext(ctx, r.ID, i, e.From, e.To, e.Kind); err != nil {
			return err
		}
	}

	warnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO warnings (run_id, seq, code, stage, severity, unit, subject, message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer warnStmt.Close()
	for i, w := range snap.Warnings {
		if _, err := warnStmt.ExecContext(ctx, r.ID, i, w.Code, w.Stage, w.Severity, w.Unit, w.Subject, w.Message); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, source, source_hash, created_at, units, warnings, cycles, report FROM runs WHERE id = ?", id)
	run, reportJSON, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Run: run}
	if len(reportJSON) > 0 {
		var rep report.PipelineReport
		if err := json.Unmarshal(reportJSON, &rep); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		snap.Report = &rep
	}

	// 1. Units
	rows, err := s.db.QueryContext(ctx, "SELECT name, role, path, lines, imports, members FROM units WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	for rows.Next() {
		var u report.UnitMetric
		if err := rows.Scan(&u.Name, &u.Role, &u.Path, &u.Lines, &u.Imports, &u.Members); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		snap.Units = append(snap.Units, u)
	}
	rows.Close()

	// 2. Edges; nodes are rebuilt from the units and edge endpoints.
	edgeRows, err := s.db.QueryContext(ctx, "SELECT from_id, to_id, kind FROM edges WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	g := graph.NewGraph()
	for _, u := range snap.Units {
		g.AddNode(u.Name, graph.KindUnit)
	}
	for edgeRows.Next() {
		var e graph.Edge
		if err := edgeRows.Scan(&e.From, &e.To, &e.Kind); err != nil {
			edgeRows.Close()
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		g.AddEdge(e.From, e.To, e.Kind)
	}
	edgeRows.Close()
	snap.Graph = g.Export()

	// 3. Warnings
	warnRows, err := s.db.QueryContext(ctx, "SELECT code, stage, severity, unit, subject, message FROM warnings WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query warnings: %w", err)
	}
	defer warnRows.Close()
	for warnRows.Next() {
		var w report.Warning
		if err := warnRows.Scan(&w.Code, &w.Stage, &w.Severity, &w.Unit, &w.Subject, &w.Message); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		snap.Warnings = append(snap.Warnings, w)
	}
	return snap, warnRows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, source string, limit int) ([]Run, error) {
	q := "SELECT id, source, source_hash, created_at, units, warnings, cycles, NULL FROM runs"
	var args []any
	if source != "" {
		q += " WHERE source = ?"
		args = append(args, source)
	}
	q += " ORDER BY created_at DESC, id"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, []byte, error) {
	var r Run
	var created string
	var reportJSON []byte
	if err := sc.Scan(&r.ID, &r.Source, &r.SourceHash, &created, &r.Units, &r.Warnings, &r.Cycles, &reportJSON); err != nil {
		return Run{}, nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return r, reportJSON, nil
}
