package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type UnitMetric struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Path    string `json:"path"`
	Lines   int    `json:"lines"`
	Imports int    `json:"imports"`
	Members int    `json:"members"`
}

type ReportSummary struct {
	StageCount         int            `json:"stage_count"`
	UnitCount          int            `json:"unit_count"`
	FailedStages       int            `json:"failed_stages"`
	CycleCount         int            `json:"cycle_count"`
	WarningsByCode     map[string]int `json:"warnings_by_code"`
	WarningsBySeverity map[string]int `json:"warnings_by_severity"`
}

type PipelineReport struct {
	Version     string        `json:"version"`
	RunID       string        `json:"run_id"`
	Source      string        `json:"source"`
	GeneratedAt string        `json:"generated_at"`
	Stages      []StageMetric `json:"stages"`
	Units       []UnitMetric  `json:"units,omitempty"`
	Warnings    []Warning     `json:"warnings,omitempty"`
	Summary     ReportSummary `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewPipelineReport(runID, source string) *PipelineReport {
	return &PipelineReport{
		Version:     "v1",
		RunID:       runID,
		Source:      source,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Units:       []UnitMetric{},
		Warnings:    []Warning{},
	}
}

func (r *PipelineReport) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *PipelineReport) EndStage(h StageHandle, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		m.Status = "error"
	}
	r.Stages = append(r.Stages, m)
}

func (r *PipelineReport) AddUnitMetric(m UnitMetric) {
	if r == nil || strings.TrimSpace(m.Name) == "" {
		return
	}
	r.Units = append(r.Units, m)
}

func (r *PipelineReport) AddWarnings(ws []Warning) {
	if r == nil {
		return
	}
	r.Warnings = append(r.Warnings, ws...)
}

func (r *PipelineReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	sort.SliceStable(r.Warnings, func(i, j int) bool {
		if r.Warnings[i].Stage == r.Warnings[j].Stage {
			return r.Warnings[i].Code < r.Warnings[j].Code
		}
		return r.Warnings[i].Stage < r.Warnings[j].Stage
	})

	byCode := make(map[string]int)
	bySeverity := map[string]int{
		string(SeverityWarning): 0,
		string(SeverityInfo):    0,
	}
	cycles := 0
	for _, w := range r.Warnings {
		byCode[w.Code]++
		bySeverity[string(w.Severity)]++
		if w.Code == CodeCircularDependency {
			cycles++
		}
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	r.Summary = ReportSummary{
		StageCount:         len(r.Stages),
		UnitCount:          len(r.Units),
		FailedStages:       failed,
		CycleCount:         cycles,
		WarningsByCode:     byCode,
		WarningsBySeverity: bySeverity,
	}
}

func (r *PipelineReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
