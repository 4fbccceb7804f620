package assemble

import (
	"testing"

	"modsplit/internal/config"
	"modsplit/internal/imports"
	"modsplit/internal/method"
	"modsplit/internal/model"
	"modsplit/internal/scope"
	"modsplit/internal/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(start, n int) model.Span {
	return model.Span{StartLine: start, EndLine: start + n - 1}
}

func member(name string, start, n int, vis model.Visibility, refs ...string) model.Member {
	return model.Member{Name: name, Kind: model.MemberMethod, Span: lines(start, n), Visibility: vis, References: refs}
}

// cacheProgram is a 900 line file: a 20 line generic struct, 480 lines of
// inherent methods and a 400 line Display impl.
func cacheProgram() *model.Program {
	return &model.Program{
		Types: []model.TypeDecl{{
			Name:       "Cache",
			Kind:       model.KindStruct,
			Generics:   "<K, V>",
			Visibility: model.VisPublic,
			Fields:     []model.Field{{Name: "map", Type: "HashMap<K, V>"}},
			Span:       lines(1, 20),
		}},
		Blocks: []model.BehaviorBlock{
			{TypeName: "Cache", SelfType: "Cache<K, V>", Generics: "<K, V>", Span: lines(21, 480), Members: []model.Member{
				member("new", 22, 120, model.VisPublic, "HashMap", "map"),
				member("get", 142, 150, model.VisPublic, "map"),
				member("set", 292, 150, model.VisPublic, "map", "get"),
			}},
			{TypeName: "Cache", SelfType: "Cache<K, V>", Generics: "<K, V>", Trait: "Display", Span: lines(501, 400), Members: []model.Member{
				member("fmt", 502, 398, model.VisPrivate, "write", "map"),
			}},
		},
		Imports: []model.Import{
			{Path: "std::collections", Name: "HashMap"},
			{Path: "std::fmt", Name: "Display"},
		},
	}
}

type run struct {
	decisions []scope.Decision
	groups    []method.Group
	skeleton  []*unit.GeneratedUnit
	ann       *scope.Annotations
	units     []*unit.GeneratedUnit
}

func assembleAll(t *testing.T, p *model.Program, cfg *config.Config) run {
	t.Helper()
	require.NoError(t, p.Validate())
	arena := model.NewArena(p)

	var r run
	r.decisions = scope.NewAnalyzer(cfg).DecideAll(p)
	whole := make(map[string]bool)
	for _, d := range r.decisions {
		if d.Strategy == scope.Inline {
			whole[d.TypeName] = true
		}
	}
	r.groups, _ = method.NewAnalyzer(cfg).ClusterAll(p, arena, whole)
	r.skeleton = Layout(p, r.decisions, r.groups, cfg)
	r.ann = scope.NewAnalyzer(cfg).InferVisibility(p, arena, PlacementOf(r.skeleton))
	plan := imports.NewAnalyzer(nil).Analyze(p, arena, r.skeleton)
	r.units = Assemble(p, r.skeleton, r.ann, plan, cfg)
	return r
}

func unitNames(units []*unit.GeneratedUnit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.ModulePath())
	}
	return out
}

func TestAssemble_CacheScenario(t *testing.T) {
	r := assembleAll(t, cacheProgram(), config.Default())

	require.Len(t, r.decisions, 1)
	assert.Equal(t, scope.Submodule, r.decisions[0].Strategy)
	assert.Equal(t, 900, r.decisions[0].TotalLines)

	assert.Equal(t, []string{"cache_type", "cache_impl", "cache_display", "mod"}, unitNames(r.units))

	typeUnit, impl, display, agg := r.units[0], r.units[1], r.units[2], r.units[3]
	assert.Equal(t, unit.RoleType, typeUnit.Role)
	assert.Equal(t, "cache_type.rs", typeUnit.Path)

	assert.Equal(t, unit.RoleImpl, impl.Role)
	require.Len(t, impl.Items, 1)
	assert.Len(t, impl.Items[0].Members, 3)

	assert.Equal(t, unit.RoleTrait, display.Role)
	var displayImports []string
	for _, imp := range display.Imports {
		displayImports = append(displayImports, imp.String())
	}
	assert.Equal(t, []string{"use std::fmt::Display;", "use super::cache_type::Cache;"}, displayImports)

	assert.Equal(t, unit.RoleAggregator, agg.Role)
	assert.Equal(t, "mod.rs", agg.Path)
	assert.Equal(t, []string{"cache_type", "cache_impl", "cache_display"}, agg.Submodules)
	require.Len(t, agg.ReExports, 1)
	assert.Equal(t, "pub use cache_type::Cache;", agg.ReExports[0].String())

	assert.Equal(t, model.VisParent, r.ann.Fields["Cache"]["map"])
	assert.Contains(t, typeUnit.Doc, "Cache: type")
}

func TestAssemble_Totality(t *testing.T) {
	p := cacheProgram()
	p.Types = append(p.Types, model.TypeDecl{Name: "Small", Span: lines(901, 5)})
	p.Blocks = append(p.Blocks,
		model.BehaviorBlock{TypeName: "Small", Span: lines(906, 10), Members: []model.Member{member("tiny", 907, 8, model.VisPrivate)}},
		model.BehaviorBlock{TypeName: "Cache", Trait: "Marker", Span: lines(916, 1)},
	)
	p.Functions = []model.FunctionDecl{{Name: "helper", Kind: model.FuncFn, Span: lines(920, 3)}}
	p.Aliases = []model.Alias{{Name: "Id", Target: "u64", Visibility: model.VisPublic, Span: lines(917, 1)}}
	r := assembleAll(t, p, config.Default())

	arena := model.NewArena(p)
	seen := make(map[model.MemberID]int)
	blocks := make(map[int]int)
	types := make(map[string]int)
	functions := make(map[int]int)
	aliases := make(map[string]int)
	for _, u := range r.units {
		for _, it := range u.Items {
			switch it.Kind {
			case unit.ItemType:
				types[it.TypeName]++
			case unit.ItemImpl:
				blocks[it.Block]++
				for _, id := range it.Members {
					seen[id]++
				}
			case unit.ItemFunction:
				functions[it.Function]++
			case unit.ItemAlias:
				aliases[it.Alias]++
			}
		}
	}
	for id := 0; id < arena.Len(); id++ {
		assert.Equal(t, 1, seen[model.MemberID(id)], "member %s placed once", arena.Member(model.MemberID(id)).Name)
	}
	for bi := range p.Blocks {
		assert.GreaterOrEqual(t, blocks[bi], 1, "block %d placed", bi)
	}
	assert.Equal(t, map[string]int{"Cache": 1, "Small": 1}, types)
	assert.Equal(t, map[int]int{0: 1}, functions)
	assert.Equal(t, map[string]int{"Id": 1}, aliases)

	names := unitNames(r.units)
	assert.Equal(t, "mod", names[len(names)-1])
	assert.Equal(t, "functions", names[len(names)-2])
	assert.Contains(t, names, "small")

	// The memberless Marker impl stays with the type definition.
	assert.Len(t, r.units[0].Items, 2)

	agg := r.units[len(r.units)-1]
	var exports []string
	for _, re := range agg.ReExports {
		exports = append(exports, re.String())
	}
	assert.Equal(t, []string{"pub use cache_type::Cache;", "pub use functions::Id;"}, exports)
}

func TestAssemble_SizeRespect(t *testing.T) {
	cfg := config.Default()
	r := assembleAll(t, cacheProgram(), cfg)
	for _, g := range r.groups {
		if !g.Oversized {
			assert.LessOrEqual(t, g.Lines, cfg.Split.MaxImplLines, "group %s", g.Name)
		}
	}
}

func wrapperProgram() *model.Program {
	return &model.Program{
		Types: []model.TypeDecl{
			{Name: "Core", Span: lines(1, 600)},
			{Name: "Left", Visibility: model.VisPublic, Fields: []model.Field{{Name: "core", Type: "Core"}}, Span: lines(601, 3)},
			{Name: "Right", Span: lines(604, 3)},
		},
		Blocks: []model.BehaviorBlock{
			{TypeName: "Core", SelfType: "Core", Span: lines(607, 600), Members: []model.Member{
				member("new", 608, 200, model.VisPublic),
				member("run", 808, 200, model.VisPublic),
			}},
			{TypeName: "Right", SelfType: "Right", Span: lines(1207, 5), Members: []model.Member{
				member("core", 1208, 3, model.VisPrivate, "Core"),
			}},
		},
	}
}

func TestAssemble_Wrapper(t *testing.T) {
	r := assembleAll(t, wrapperProgram(), config.Default())

	assert.Equal(t, scope.Wrapper, r.decisions[0].Strategy)
	assert.Equal(t, []string{
		"core_module::core_type",
		"core_module::core_impl",
		"core_module",
		"left",
		"right",
		"mod",
	}, unitNames(r.units))

	wrapper := r.units[2]
	assert.Equal(t, unit.RoleWrapper, wrapper.Role)
	assert.Equal(t, "core_module/mod.rs", wrapper.Path)
	assert.Equal(t, "core_module/core_type.rs", r.units[0].Path)
	assert.Equal(t, []string{"core_type", "core_impl"}, wrapper.Submodules)
	require.Len(t, wrapper.ReExports, 1)
	assert.Equal(t, "pub(super) use core_type::Core;", wrapper.ReExports[0].String())

	left := r.units[3]
	require.Len(t, left.Imports, 1)
	assert.Equal(t, "use super::core_module::Core;", left.Imports[0].String())

	impl := r.units[1]
	require.Len(t, impl.Imports, 1)
	assert.Equal(t, "use super::core_type::Core;", impl.Imports[0].String())

	agg := r.units[len(r.units)-1]
	assert.Equal(t, []string{"core_module", "left", "right"}, agg.Submodules)
	require.Len(t, agg.ReExports, 1)
	assert.Equal(t, "pub use left::Left;", agg.ReExports[0].String())
}

func TestLayout_NamesAreUnique(t *testing.T) {
	p := &model.Program{
		Types: []model.TypeDecl{{Name: "Functions"}, {Name: "Mod"}},
		Functions: []model.FunctionDecl{{Name: "f"}},
	}
	cfg := config.Default()
	units := Layout(p, scope.NewAnalyzer(cfg).DecideAll(p), nil, cfg)
	assert.Equal(t, []string{"functions_2", "mod_2", "functions"}, unitNames(units))
}

func TestDocHeader(t *testing.T) {
	u := &unit.GeneratedUnit{Name: "cache_impl", Role: unit.RoleImpl, TypeName: "Cache"}
	assert.Equal(t, "//! Cache in cache_impl (impl)\n", DocHeader("//! {type_name} in {module_name} ({role})\n", u))
	assert.Empty(t, DocHeader("", u))
}
