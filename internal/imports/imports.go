package imports

import (
	"fmt"
	"sort"
	"strings"

	"modsplit/internal/model"
	"modsplit/internal/report"
	"modsplit/internal/unit"
)

const stageName = "imports"

// UnitImports is the import plan of one unit.
type UnitImports struct {
	Imports       []unit.Import     `json:"imports,omitempty"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
	// GlobCovered lists names left to the original glob imports.
	GlobCovered []string `json:"glob_covered,omitempty"`
	Unresolved  []string `json:"unresolved,omitempty"`
}

type Result struct {
	// Units is keyed by unit module path.
	Units    map[string]UnitImports `json:"units"`
	Stages   []StageResult          `json:"stages"`
	Warnings []report.Warning       `json:"warnings,omitempty"`
}

type Analyzer struct {
	chain *Chain
}

// NewAnalyzer uses chain for every name, or the default chain when chain is
// nil.
func NewAnalyzer(chain *Chain) *Analyzer {
	if chain == nil {
		chain = NewDefaultChain()
	}
	return &Analyzer{chain: chain}
}

// Owners maps every declared name to the unit that declares it. Aggregator
// and wrapper units only re-export and own nothing.
func Owners(units []*unit.GeneratedUnit) map[string]*unit.GeneratedUnit {
	out := make(map[string]*unit.GeneratedUnit)
	for _, u := range units {
		if u.Role == unit.RoleAggregator || u.Role == unit.RoleWrapper {
			continue
		}
		for _, name := range u.Declares {
			if _, dup := out[name]; !dup {
				out[name] = u
			}
		}
	}
	return out
}

// Analyze resolves the candidate names of every content unit. Units are not
// modified; see Apply.
func (a *Analyzer) Analyze(p *model.Program, arena *model.Arena, units []*unit.GeneratedUnit) *Result {
	res := &Result{Units: make(map[string]UnitImports, len(units))}
	owners := Owners(units)
	aliases := p.AliasTable()
	table := p.ImportTable()

	for _, u := range units {
		if len(u.Items) == 0 {
			continue
		}
		ctx := &Context{Program: p, Aliases: aliases, Imports: table, Unit: u, Owners: owners}
		ui := a.resolveUnit(ctx, Candidates(p, arena, u))
		for _, name := range ui.Unresolved {
			res.Warnings = append(res.Warnings, report.Warning{
				Code:    report.CodeUnresolvedImport,
				Stage:   stageName,
				Unit:    u.ModulePath(),
				Subject: name,
				Message: fmt.Sprintf("no declaration or import provides %q", name),
			})
		}
		res.Units[u.ModulePath()] = ui
	}
	res.Stages = a.chain.Results()
	return res
}

func (a *Analyzer) resolveUnit(ctx *Context, names []string) UnitImports {
	merged := newMerger()
	subs := make(map[string]string)
	visited := make(map[string]bool)
	var unresolved []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		r, ok := a.chain.Resolve(ctx, name)
		switch {
		case !ok:
			unresolved = append(unresolved, name)
		case r.Import != nil:
			merged.add(*r.Import)
		case r.Substitute != "":
			subs[name] = r.Substitute
			for _, f := range r.Follow {
				visit(f)
			}
		}
	}
	for _, n := range names {
		visit(n)
	}

	ui := UnitImports{}
	if globs := ctx.Imports.Globs(); len(unresolved) > 0 && len(globs) > 0 {
		for _, g := range globs {
			merged.add(unit.Import{Path: Rebase(g.Path, ctx.Unit.Depth), Glob: true})
		}
		ui.GlobCovered = unresolved
		unresolved = nil
	}
	ui.Imports = merged.list()
	ui.Unresolved = unresolved
	if len(subs) > 0 {
		ui.Substitutions = subs
	}
	return ui
}

// Apply copies the plan into the units it was computed for.
func Apply(units []*unit.GeneratedUnit, res *Result) {
	for _, u := range units {
		ui, ok := res.Units[u.ModulePath()]
		if !ok {
			continue
		}
		u.Imports = ui.Imports
		u.Substitutions = ui.Substitutions
	}
}

// merger deduplicates imports by path and merges their names.
type merger struct {
	byKey map[string]*unit.Import
}

func newMerger() *merger {
	return &merger{byKey: make(map[string]*unit.Import)}
}

func (m *merger) add(imp unit.Import) {
	key := imp.Path
	switch {
	case imp.Glob:
		key += "::*"
	case imp.Path == "" && len(imp.Names) > 0:
		key = "::" + imp.Names[0]
	}
	if cur, ok := m.byKey[key]; ok {
		cur.Names = append(cur.Names, imp.Names...)
		return
	}
	cp := imp
	cp.Names = append([]string(nil), imp.Names...)
	m.byKey[key] = &cp
}

// list returns std imports first, then other crates, crate paths and
// relative paths, each sorted by path.
func (m *merger) list() []unit.Import {
	out := make([]unit.Import, 0, len(m.byKey))
	for _, imp := range m.byKey {
		imp.Names = unit.SortedNames(imp.Names)
		out = append(out, *imp)
	}
	sort.Slice(out, func(i, j int) bool {
		gi, gj := pathGroup(out[i].Path), pathGroup(out[j].Path)
		if gi != gj {
			return gi < gj
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return !out[i].Glob && out[j].Glob
	})
	return out
}

func pathGroup(path string) int {
	root := path
	if i := strings.Index(path, "::"); i >= 0 {
		root = path[:i]
	}
	switch root {
	case "std", "core", "alloc":
		return 0
	case "crate":
		return 2
	case "self", "super":
		return 3
	}
	return 1
}
