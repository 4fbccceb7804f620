package assemble

import (
	"strings"

	"modsplit/internal/config"
	"modsplit/internal/imports"
	"modsplit/internal/model"
	"modsplit/internal/scope"
	"modsplit/internal/unit"
)

// Assemble finishes the skeleton units: it applies the import plan, fills
// doc headers and the re-exports of wrapper units, and appends the
// aggregator. The aggregator is always last.
func Assemble(p *model.Program, skeleton []*unit.GeneratedUnit, ann *scope.Annotations, plan *imports.Result, cfg *config.Config) []*unit.GeneratedUnit {
	if plan != nil {
		imports.Apply(skeleton, plan)
	}
	out := make([]*unit.GeneratedUnit, 0, len(skeleton)+1)
	for _, u := range skeleton {
		u.Doc = DocHeader(cfg.Output.ModuleDocTemplate, u)
		if u.Role == unit.RoleWrapper {
			fillWrapper(u, skeleton, ann)
		}
		out = append(out, u)
	}
	return append(out, aggregator(p, skeleton, ann, cfg))
}

// DocHeader expands the module doc template for one unit.
func DocHeader(template string, u *unit.GeneratedUnit) string {
	if template == "" {
		return ""
	}
	typeName := u.TypeName
	if typeName == "" {
		typeName = u.Name
	}
	r := strings.NewReplacer(
		"{type_name}", typeName,
		"{module_name}", u.Name,
		"{role}", string(u.Role),
	)
	return r.Replace(template)
}

// fillWrapper declares the nested units of a wrapper and re-exports the
// wrapped type so that siblings can reach it through the wrapper path.
func fillWrapper(w *unit.GeneratedUnit, units []*unit.GeneratedUnit, ann *scope.Annotations) {
	w.Submodules = nil
	w.ReExports = nil
	for _, u := range units {
		if u.Parent != w.Name {
			continue
		}
		w.Submodules = append(w.Submodules, u.Name)
		for _, name := range u.Declares {
			vis := ann.Types[name]
			if vis == model.VisPrivate {
				continue
			}
			w.ReExports = append(w.ReExports, unit.Import{
				Path:    u.Name,
				Names:   []string{name},
				Sibling: u.ModulePath(),
				Vis:     vis.Keyword(w.Depth),
			})
		}
	}
}

// aggregator builds the unit that replaces the original file: a `mod` line
// per top-level unit and a re-export of every relocated symbol that was
// visible outside the original module, under its original name.
func aggregator(p *model.Program, units []*unit.GeneratedUnit, ann *scope.Annotations, cfg *config.Config) *unit.GeneratedUnit {
	agg := &unit.GeneratedUnit{
		Name:    cfg.Naming.Aggregator,
		Role:    unit.RoleAggregator,
		GroupID: -1,
		Path:    cfg.Naming.Aggregator + cfg.Naming.FileExtension,
	}
	agg.Doc = p.ModuleDoc
	if agg.Doc == "" {
		agg.Doc = DocHeader(cfg.Output.ModuleDocTemplate, agg)
	}

	pl := PlacementOf(units)
	topLevel := make(map[string]string)
	for _, u := range units {
		if u.Parent == "" {
			agg.Submodules = append(agg.Submodules, u.Name)
		}
		topLevel[u.ModulePath()] = u.Name
		if u.Parent != "" {
			topLevel[u.ModulePath()] = u.Parent
		}
	}

	merged := make(map[string]int)
	export := func(name, home string, vis model.Visibility) {
		if vis < model.VisOuter || home == "" {
			return
		}
		via := topLevel[home]
		kw := vis.Keyword(0)
		key := via + "\x00" + kw
		if i, ok := merged[key]; ok {
			agg.ReExports[i].Names = append(agg.ReExports[i].Names, name)
			return
		}
		merged[key] = len(agg.ReExports)
		agg.ReExports = append(agg.ReExports, unit.Import{Path: via, Names: []string{name}, Sibling: home, Vis: kw})
	}
	for _, t := range p.Types {
		export(t.Name, pl.TypeUnit[t.Name], ann.Types[t.Name])
	}
	for i, f := range p.Functions {
		export(f.Name, pl.FunctionUnit[i], ann.Functions[i])
	}
	for _, a := range p.Aliases {
		export(a.Name, pl.AliasUnit[a.Name], ann.Aliases[a.Name])
	}
	for i := range agg.ReExports {
		agg.ReExports[i].Names = unit.SortedNames(agg.ReExports[i].Names)
	}
	return agg
}
