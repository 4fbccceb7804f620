// Package assemble turns analysis results into the ordered list of
// generated units.
package assemble

import (
	"path"
	"sort"

	"modsplit/internal/config"
	"modsplit/internal/method"
	"modsplit/internal/model"
	"modsplit/internal/scope"
	"modsplit/internal/unit"
)

// Layout creates the skeleton units: which declarations go where and under
// which name. Types are laid out in source order; the unit holding free
// items and aliases comes last. The aggregator is added by Assemble.
func Layout(p *model.Program, decisions []scope.Decision, groups []method.Group, cfg *config.Config) []*unit.GeneratedUnit {
	naming := cfg.Naming
	names := unit.NewUniquer(naming.Aggregator, naming.StandaloneModule)
	file := func(parent, name string) string {
		return path.Join(parent, name+naming.FileExtension)
	}

	byType := make(map[string][]method.Group)
	grouped := make(map[int]bool)
	for _, g := range groups {
		byType[g.TypeName] = append(byType[g.TypeName], g)
		grouped[g.Block] = true
	}
	// Blocks without members never form a group; they stay with the type.
	emptyBlocks := func(typeName string) []unit.Item {
		var out []unit.Item
		for _, bi := range p.BlocksFor(typeName) {
			if !grouped[bi] {
				out = append(out, unit.ImplItem(typeName, bi, nil))
			}
		}
		return out
	}

	var units []*unit.GeneratedUnit
	for _, d := range decisions {
		base := unit.SnakeCase(d.TypeName)
		tgs := byType[d.TypeName]

		if d.Strategy == scope.Inline {
			u := &unit.GeneratedUnit{
				Name:     names.Name(base),
				Role:     unit.RoleInline,
				TypeName: d.TypeName,
				GroupID:  -1,
				Depth:    1,
				Declares: []string{d.TypeName},
				Items:    []unit.Item{unit.TypeItem(d.TypeName)},
			}
			for _, g := range tgs {
				u.Items = append(u.Items, unit.ImplItem(d.TypeName, g.Block, g.Members))
			}
			u.Items = append(u.Items, emptyBlocks(d.TypeName)...)
			sort.SliceStable(u.Items[1:], func(i, j int) bool { return u.Items[1+i].Block < u.Items[1+j].Block })
			u.Path = file("", u.Name)
			units = append(units, u)
			continue
		}

		parent, depth := "", 1
		var wrapper *unit.GeneratedUnit
		if d.Strategy == scope.Wrapper {
			wrapper = &unit.GeneratedUnit{
				Name:     names.Name(base + naming.WrapperModuleSuffix),
				Role:     unit.RoleWrapper,
				TypeName: d.TypeName,
				GroupID:  -1,
				Depth:    1,
			}
			wrapper.Path = file(wrapper.Name, naming.Aggregator)
			parent, depth = wrapper.Name, 2
		}

		typeUnit := &unit.GeneratedUnit{
			Name:     names.Name(base + naming.TypeModuleSuffix),
			Role:     unit.RoleType,
			TypeName: d.TypeName,
			GroupID:  -1,
			Parent:   parent,
			Depth:    depth,
			Declares: []string{d.TypeName},
			Items:    append([]unit.Item{unit.TypeItem(d.TypeName)}, emptyBlocks(d.TypeName)...),
		}
		typeUnit.Path = file(parent, typeUnit.Name)
		units = append(units, typeUnit)

		inherent := 0
		for _, g := range tgs {
			if g.Trait == "" {
				inherent++
			}
		}
		for _, g := range tgs {
			role, suffix := unit.RoleImpl, "_"+g.Name
			switch {
			case g.Trait != "":
				role = unit.RoleTrait
			case inherent == 1:
				suffix = naming.ImplModuleSuffix
			}
			u := &unit.GeneratedUnit{
				Name:     names.Name(base + suffix),
				Role:     role,
				TypeName: d.TypeName,
				GroupID:  g.ID,
				Parent:   parent,
				Depth:    depth,
				Items:    []unit.Item{unit.ImplItem(d.TypeName, g.Block, g.Members)},
			}
			u.Path = file(parent, u.Name)
			units = append(units, u)
		}
		if wrapper != nil {
			units = append(units, wrapper)
		}
	}

	if free := freeItems(p); len(free) > 0 {
		u := &unit.GeneratedUnit{
			Name:     naming.StandaloneModule,
			Role:     unit.RoleStandalone,
			GroupID:  -1,
			Depth:    1,
			Items:    free,
			Declares: p.FreeItemNames(),
		}
		u.Path = file("", u.Name)
		units = append(units, u)
	}
	return units
}

// freeItems lists free items and aliases in source order.
func freeItems(p *model.Program) []unit.Item {
	type placed struct {
		line int
		item unit.Item
	}
	var all []placed
	for i, f := range p.Functions {
		all = append(all, placed{f.Span.StartLine, unit.FunctionItem(i)})
	}
	for _, a := range p.Aliases {
		all = append(all, placed{a.Span.StartLine, unit.AliasItem(a.Name)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].line < all[j].line })
	out := make([]unit.Item, 0, len(all))
	for _, pl := range all {
		out = append(out, pl.item)
	}
	return out
}

// PlacementOf records where Layout put every declaration, keyed by unit
// module path.
func PlacementOf(units []*unit.GeneratedUnit) scope.Placement {
	pl := scope.NewPlacement()
	for _, u := range units {
		where := u.ModulePath()
		for _, it := range u.Items {
			switch it.Kind {
			case unit.ItemType:
				pl.TypeUnit[it.TypeName] = where
			case unit.ItemImpl:
				for _, id := range it.Members {
					pl.MemberUnit[id] = where
				}
			case unit.ItemFunction:
				pl.FunctionUnit[it.Function] = where
			case unit.ItemAlias:
				pl.AliasUnit[it.Alias] = where
			}
		}
	}
	return pl
}
