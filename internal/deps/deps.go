// Package deps builds dependency graphs over types and generated units and
// reports the cycles in them.
package deps

import (
	"fmt"

	"modsplit/internal/graph"
	"modsplit/internal/model"
	"modsplit/internal/report"
	"modsplit/internal/unit"
)

// Stage names used on warnings.
const (
	StageTypes = "type_graph"
	StageUnits = "unit_graph"
)

type CycleReport struct {
	Path  []string   `json:"path"`
	Break graph.Edge `json:"suggested_break"`
}

func (c CycleReport) String() string {
	return graph.Cycle{Path: c.Path}.String()
}

type Report struct {
	Graph  graph.Export  `json:"graph"`
	Cycles []CycleReport `json:"cycles,omitempty"`
	// Order lists the nodes dependencies-first when the graph is acyclic.
	Order []string `json:"order,omitempty"`
}

// UnitGraph has one node per unit and an edge U -> V whenever U imports or
// re-exports a name that V declares.
func UnitGraph(units []*unit.GeneratedUnit) *graph.Graph {
	g := graph.NewGraph()
	for _, u := range units {
		g.AddNode(u.ModulePath(), graph.KindUnit)
	}
	for _, u := range units {
		from := u.ModulePath()
		for _, imp := range u.Imports {
			if imp.Sibling != "" {
				g.AddEdge(from, imp.Sibling, graph.RelationImports)
			}
		}
		for _, re := range u.ReExports {
			if re.Sibling != "" {
				g.AddEdge(from, re.Sibling, graph.RelationImports)
			}
		}
	}
	return g
}

// TypeGraph has one node per declared type and an edge A -> B whenever A's
// declaration or any of its behavior blocks mentions B. It is used as a
// pre-flight check before anything is assembled.
func TypeGraph(p *model.Program) *graph.Graph {
	g := graph.NewGraph()
	declared := make(map[string]bool, len(p.Types))
	for _, t := range p.Types {
		g.AddNode(t.Name, graph.KindType)
		declared[t.Name] = true
	}
	link := func(from string, names []string) {
		for _, n := range names {
			if declared[n] && n != from {
				g.AddEdge(from, n, graph.RelationReferences)
			}
		}
	}
	for _, t := range p.Types {
		link(t.Name, t.References)
		link(t.Name, model.Idents(t.Generics))
		link(t.Name, model.Idents(t.Where))
		for _, f := range t.Fields {
			link(t.Name, model.Idents(f.Type))
		}
	}
	for _, b := range p.Blocks {
		link(b.TypeName, model.Idents(b.Trait))
		link(b.TypeName, model.Idents(b.Generics))
		link(b.TypeName, model.Idents(b.Where))
		for _, m := range b.Members {
			link(b.TypeName, m.References)
			for _, e := range m.Signature.TypeExprs() {
				link(b.TypeName, model.Idents(e))
			}
		}
	}
	return g
}

// Analyze detects the cycles of a fully built graph. Each distinct cycle
// yields one warning with a suggested edge to break.
func Analyze(g *graph.Graph, stage string) (Report, []report.Warning) {
	rep := Report{Graph: g.Export()}
	var warnings []report.Warning
	for _, c := range g.DetectCycles() {
		brk := g.SuggestBreak(c)
		rep.Cycles = append(rep.Cycles, CycleReport{Path: c.Path, Break: brk})
		w := report.Warning{
			Code:    report.CodeCircularDependency,
			Stage:   stage,
			Subject: c.String(),
			Message: fmt.Sprintf("dependency cycle %s; consider breaking %s -> %s", c, brk.From, brk.To),
		}
		if stage == StageUnits {
			w.Unit = brk.From
		}
		warnings = append(warnings, w)
	}
	if len(rep.Cycles) == 0 {
		if order, err := g.TopologicalOrder(); err == nil {
			rep.Order = order
		}
	}
	return rep, warnings
}

// GraphCycles converts the report back to graph cycles for DOT highlighting.
func (r Report) GraphCycles() []graph.Cycle {
	out := make([]graph.Cycle, 0, len(r.Cycles))
	for _, c := range r.Cycles {
		out = append(out, graph.Cycle{Path: c.Path})
	}
	return out
}
