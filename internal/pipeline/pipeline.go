// Package pipeline runs every analysis stage over one program and collects
// the generated units together with their diagnostics.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"modsplit/internal/assemble"
	"modsplit/internal/config"
	"modsplit/internal/deps"
	"modsplit/internal/imports"
	"modsplit/internal/method"
	"modsplit/internal/model"
	"modsplit/internal/report"
	"modsplit/internal/scope"
	"modsplit/internal/unit"

	"github.com/google/uuid"
)

// Result is everything one run produced. Units is nil when the run failed.
type Result struct {
	RunID      string                 `json:"run_id"`
	Program    *model.Program         `json:"-"`
	Arena      *model.Arena           `json:"-"`
	Decisions  []scope.Decision       `json:"decisions"`
	Groups     []method.Group         `json:"groups"`
	Visibility *scope.Annotations     `json:"visibility"`
	Imports    *imports.Result        `json:"imports"`
	TypeGraph  deps.Report            `json:"type_graph"`
	UnitGraph  deps.Report            `json:"unit_graph"`
	Units      []*unit.GeneratedUnit  `json:"units"`
	Warnings   []report.Warning       `json:"warnings,omitempty"`
	Report     *report.PipelineReport `json:"-"`
}

// Unit returns the unit with the given module path.
func (r *Result) Unit(modulePath string) (*unit.GeneratedUnit, bool) {
	for _, u := range r.Units {
		if u.ModulePath() == modulePath {
			return u, true
		}
	}
	return nil, false
}

// Pipeline is reusable across runs; each Run starts from a clean state.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a pipeline. A nil logger discards everything.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// run holds the state of one Run call.
type run struct {
	*Result
	warnings *report.Collector
	log      *slog.Logger
}

// Run splits one program. A malformed program, an invalid config or a
// cancelled context is fatal and yields no units; everything else is
// reported as a warning.
func (p *Pipeline) Run(ctx context.Context, prog *model.Program) (*Result, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	source := ""
	if prog != nil {
		source = prog.Path
	}
	r := &run{
		Result: &Result{
			RunID:   id,
			Program: prog,
			Report:  report.NewPipelineReport(id, source),
		},
		warnings: report.NewCollector(),
		log:      p.logger.With("run_id", id, "source", source),
	}
	r.log.Info("split started")

	stages := []struct {
		name string
		fn   func(*run) (map[string]float64, error)
	}{
		{"validate", p.validateStage},
		{deps.StageTypes, p.typeGraphStage},
		{"scope", p.scopeStage},
		{"method", p.methodStage},
		{"layout", p.layoutStage},
		{"visibility", p.visibilityStage},
		{"imports", p.importsStage},
		{"assemble", p.assembleStage},
		{deps.StageUnits, p.unitGraphStage},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("split %s: %w", source, err)
		}
		h := r.Report.BeginStage(st.name)
		before := r.warnings.Len()
		counters, err := st.fn(r)
		r.Report.EndStage(h, counters, nil, err)
		if err != nil {
			r.log.Error("stage failed", "stage", st.name, "error", err)
			return nil, fmt.Errorf("split %s: %s: %w", source, st.name, err)
		}
		r.log.Debug("stage done", "stage", st.name, "new_warnings", r.warnings.Len()-before)
	}

	r.Warnings = r.warnings.Warnings()
	for _, u := range r.Units {
		for _, w := range r.warnings.ForUnit(u.ModulePath()) {
			u.Warnings = append(u.Warnings, w.String())
		}
		r.Report.AddUnitMetric(report.UnitMetric{
			Name:    u.ModulePath(),
			Role:    string(u.Role),
			Path:    u.Path,
			Lines:   UnitLines(prog, r.Arena, u),
			Imports: len(u.Imports),
			Members: len(u.MemberIDs()),
		})
	}
	r.Report.AddWarnings(r.Warnings)
	r.Report.Finalize()

	for _, w := range r.Warnings {
		r.log.Warn(w.Message, "code", w.Code, "stage", w.Stage, "unit", w.Unit)
	}
	r.log.Info("split finished", "units", len(r.Units), "warnings", len(r.Warnings), "cycles", len(r.UnitGraph.Cycles))
	return r.Result, nil
}

func (p *Pipeline) validateStage(r *run) (map[string]float64, error) {
	if err := r.Program.Validate(); err != nil {
		return nil, err
	}
	r.Arena = model.NewArena(r.Program)

	table := r.Program.AliasTable()
	for _, name := range table.Names() {
		target, chain, _ := table.Resolve(name)
		head := model.HeadIdent(target)
		if _, isAlias := table.Lookup(head); isAlias && contains(chain, head) {
			r.warnings.Add(report.Warning{
				Code:    report.CodeAliasCycle,
				Stage:   "validate",
				Subject: name,
				Message: fmt.Sprintf("type alias %s resolves through a cycle: %s -> %s", name, strings.Join(chain, " -> "), head),
			})
		}
	}
	return map[string]float64{
		"types":     float64(len(r.Program.Types)),
		"blocks":    float64(len(r.Program.Blocks)),
		"members":   float64(r.Arena.Len()),
		"functions": float64(len(r.Program.Functions)),
		"aliases":   float64(len(r.Program.Aliases)),
	}, nil
}

// typeGraphStage is the pre-flight check over the original types.
func (p *Pipeline) typeGraphStage(r *run) (map[string]float64, error) {
	rep, ws := deps.Analyze(deps.TypeGraph(r.Program), deps.StageTypes)
	r.TypeGraph = rep
	r.warnings.AddAll(ws)
	return map[string]float64{
		"edges":  float64(len(rep.Graph.Edges)),
		"cycles": float64(len(rep.Cycles)),
	}, nil
}

func (p *Pipeline) scopeStage(r *run) (map[string]float64, error) {
	r.Decisions = scope.NewAnalyzer(p.cfg).DecideAll(r.Program)
	counters := map[string]float64{}
	for _, d := range r.Decisions {
		counters[string(d.Strategy)]++
		r.log.Debug("scope decision", "type", d.TypeName, "strategy", d.Strategy, "reason", d.Reason)
	}
	return counters, nil
}

func (p *Pipeline) methodStage(r *run) (map[string]float64, error) {
	whole := make(map[string]bool)
	for _, d := range r.Decisions {
		if d.Strategy == scope.Inline {
			whole[d.TypeName] = true
		}
	}
	groups, ws := method.NewAnalyzer(p.cfg).ClusterAll(r.Program, r.Arena, whole)
	r.Groups = groups
	r.warnings.AddAll(ws)
	return map[string]float64{"groups": float64(len(groups))}, nil
}

func (p *Pipeline) layoutStage(r *run) (map[string]float64, error) {
	r.Units = assemble.Layout(r.Program, r.Decisions, r.Groups, p.cfg)
	return map[string]float64{"units": float64(len(r.Units))}, nil
}

func (p *Pipeline) visibilityStage(r *run) (map[string]float64, error) {
	r.Visibility = scope.NewAnalyzer(p.cfg).InferVisibility(r.Program, r.Arena, assemble.PlacementOf(r.Units))
	opened := 0
	for _, v := range r.Visibility.Members {
		if v == model.VisParent {
			opened++
		}
	}
	return map[string]float64{"members_opened": float64(opened)}, nil
}

func (p *Pipeline) importsStage(r *run) (map[string]float64, error) {
	res := imports.NewAnalyzer(imports.NewDefaultChain()).Analyze(r.Program, r.Arena, r.Units)
	r.Imports = res
	r.warnings.AddAll(res.Warnings)
	counters := map[string]float64{"unresolved": float64(len(res.Warnings))}
	for _, st := range res.Stages {
		counters["resolved_"+st.Resolver] = float64(st.Stats.Resolved)
	}
	return counters, nil
}

func (p *Pipeline) assembleStage(r *run) (map[string]float64, error) {
	r.Units = assemble.Assemble(r.Program, r.Units, r.Visibility, r.Imports, p.cfg)
	return map[string]float64{"units": float64(len(r.Units))}, nil
}

// unitGraphStage runs on the finished units; cycles never block output.
func (p *Pipeline) unitGraphStage(r *run) (map[string]float64, error) {
	rep, ws := deps.Analyze(deps.UnitGraph(r.Units), deps.StageUnits)
	r.UnitGraph = rep
	r.warnings.AddAll(ws)
	return map[string]float64{
		"edges":  float64(len(rep.Graph.Edges)),
		"cycles": float64(len(rep.Cycles)),
	}, nil
}

// UnitLines estimates the size of a unit from the spans of what it holds.
func UnitLines(p *model.Program, arena *model.Arena, u *unit.GeneratedUnit) int {
	total := 0
	for _, it := range u.Items {
		switch it.Kind {
		case unit.ItemType:
			total += p.TypeLines(it.TypeName)
		case unit.ItemImpl:
			total += 2
			for _, id := range it.Members {
				total += arena.Member(id).Lines()
			}
		case unit.ItemFunction:
			total += max(p.Functions[it.Function].Span.Lines(), 1)
		case unit.ItemAlias:
			total++
		}
	}
	return total + len(u.Imports) + len(u.Submodules) + len(u.ReExports)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
