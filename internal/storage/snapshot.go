package storage

import (
	"time"

	"modsplit/internal/pipeline"
)

// NewSnapshot collects what a finished run leaves behind.
func NewSnapshot(res *pipeline.Result) *Snapshot {
	var source, sourceHash string
	if res.Program != nil {
		source = res.Program.Path
		sourceHash = res.Program.SourceHash
	}
	s := &Snapshot{
		Run: Run{
			ID:         res.RunID,
			Source:     source,
			SourceHash: sourceHash,
			CreatedAt:  time.Now().UTC(),
			Units:      len(res.Units),
			Warnings:   len(res.Warnings),
			Cycles:     len(res.TypeGraph.Cycles) + len(res.UnitGraph.Cycles),
		},
		Graph:    res.UnitGraph.Graph,
		Warnings: res.Warnings,
		Report:   res.Report,
	}
	if res.Report != nil {
		s.Units = res.Report.Units
	}
	return s
}
