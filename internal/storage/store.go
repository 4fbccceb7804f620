// Package storage keeps the history of split runs.
package storage

import (
	"context"
	"errors"
	"time"

	"modsplit/internal/graph"
	"modsplit/internal/report"
)

var ErrRunNotFound = errors.New("run not found")

// Run is the stored summary of one split.
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	SourceHash string    `json:"source_hash"`
	CreatedAt  time.Time `json:"created_at"`
	Units      int       `json:"units"`
	Warnings   int       `json:"warnings"`
	Cycles     int       `json:"cycles"`
}

// Snapshot is everything persisted for one run: the unit metrics, the
// unit dependency graph and the warnings.
type Snapshot struct {
	Run      Run                    `json:"run"`
	Units    []report.UnitMetric    `json:"units"`
	Graph    graph.Export           `json:"graph"`
	Warnings []report.Warning       `json:"warnings"`
	Report   *report.PipelineReport `json:"report,omitempty"`
}

// RunStore defines operations for persisting split runs.
type RunStore interface {
	// SaveRun upserts a run. A second save of the same run replaces its
	// units, edges and warnings.
	SaveRun(ctx context.Context, s *Snapshot) error

	// LoadRun retrieves a run by its ID.
	LoadRun(ctx context.Context, id string) (*Snapshot, error)

	// ListRuns returns the newest runs first, optionally for one source.
	ListRuns(ctx context.Context, source string, limit int) ([]Run, error)

	Close() error
}
