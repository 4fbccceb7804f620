package imports

import (
	"testing"

	"modsplit/internal/model"
	"modsplit/internal/report"
	"modsplit/internal/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheProgram() *model.Program {
	return &model.Program{
		Types: []model.TypeDecl{{
			Name:       "Cache",
			Generics:   "<K, V>",
			Visibility: model.VisPublic,
			Fields: []model.Field{
				{Name: "map", Type: "HashMap<K, V>"},
				{Name: "cap", Type: "usize"},
			},
		}},
		Blocks: []model.BehaviorBlock{
			{TypeName: "Cache", SelfType: "Cache<K, V>", Generics: "<K, V>", Members: []model.Member{
				{Name: "new", Signature: model.Signature{Returns: "Self"}, References: []string{"HashMap", "map"}},
				{Name: "get", Signature: model.Signature{Params: []model.Param{{Name: "k", Type: "&K"}}, Returns: "Option<&V>"}, References: []string{"map"}},
				{Name: "set", Signature: model.Signature{Params: []model.Param{{Name: "k", Type: "Key"}}}, References: []string{"helper", "get"}},
			}},
			{TypeName: "Cache", SelfType: "Cache<K, V>", Generics: "<K, V>", Trait: "fmt::Display", Members: []model.Member{
				{Name: "fmt", Signature: model.Signature{
					Params:  []model.Param{{Name: "f", Type: "&mut fmt::Formatter<'_>"}},
					Returns: "fmt::Result",
				}, References: []string{"f", "write"}},
			}},
		},
		Functions: []model.FunctionDecl{
			{Name: "make_cache", Signature: model.Signature{Returns: "Cache<u8, u8>"}, References: []string{"Cache", "new"}},
		},
		Aliases: []model.Alias{{Name: "Key", Target: "String"}},
		Imports: []model.Import{
			{Path: "std::collections", Name: "HashMap"},
			{Path: "std", Name: "fmt"},
			{Path: "super::util", Name: "helper"},
		},
	}
}

func cacheUnits(arena *model.Arena) []*unit.GeneratedUnit {
	return []*unit.GeneratedUnit{
		{Name: "cache_type", Role: unit.RoleType, Depth: 1, Declares: []string{"Cache"}, Items: []unit.Item{unit.TypeItem("Cache")}},
		{Name: "cache_impl", Role: unit.RoleImpl, Depth: 1, Items: []unit.Item{unit.ImplItem("Cache", 0, arena.ForBlock(0))}},
		{Name: "cache_display", Role: unit.RoleTrait, Depth: 1, Items: []unit.Item{unit.ImplItem("Cache", 1, arena.ForBlock(1))}},
		{Name: "functions", Role: unit.RoleStandalone, Depth: 1, Declares: []string{"make_cache", "Key"},
			Items: []unit.Item{unit.FunctionItem(0), unit.AliasItem("Key")}},
		{Name: "mod", Role: unit.RoleAggregator},
	}
}

func importStrings(imps []unit.Import) []string {
	out := make([]string, 0, len(imps))
	for _, i := range imps {
		out = append(out, i.String())
	}
	return out
}

func TestAnalyze_CacheUnits(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	units := cacheUnits(arena)
	res := NewAnalyzer(nil).Analyze(p, arena, units)

	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"use std::collections::HashMap;"}, importStrings(res.Units["cache_type"].Imports))

	impl := res.Units["cache_impl"]
	assert.Equal(t, []string{
		"use std::collections::HashMap;",
		"use super::cache_type::Cache;",
		"use super::super::util::helper;",
	}, importStrings(impl.Imports))
	assert.Equal(t, map[string]string{"Key": "String"}, impl.Substitutions)

	assert.Equal(t, []string{
		"use std::fmt;",
		"use super::cache_type::Cache;",
	}, importStrings(res.Units["cache_display"].Imports), "trait units import the trait path and the type")

	assert.Equal(t, []string{"use super::cache_type::Cache;"}, importStrings(res.Units["functions"].Imports))
	_, aggregated := res.Units["mod"]
	assert.False(t, aggregated)

	Apply(units, res)
	assert.Equal(t, impl.Imports, units[1].Imports)
	assert.Equal(t, "String", units[1].Substitutions["Key"])
}

func TestAnalyze_NoSelfImport(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	units := cacheUnits(arena)
	res := NewAnalyzer(nil).Analyze(p, arena, units)

	for _, u := range units {
		for _, imp := range res.Units[u.ModulePath()].Imports {
			assert.NotEqual(t, u.ModulePath(), imp.Sibling, "%s imports itself", u.Name)
			for _, d := range u.Declares {
				assert.False(t, imp.Has(d), "%s imports its own %s", u.Name, d)
			}
		}
	}
}

func TestAnalyze_TraitByName(t *testing.T) {
	p := cacheProgram()
	p.Blocks[1].Trait = "Display"
	p.Imports = append(p.Imports, model.Import{Path: "std::fmt", Name: "Display"})
	arena := model.NewArena(p)
	res := NewAnalyzer(nil).Analyze(p, arena, cacheUnits(arena))

	assert.Contains(t, importStrings(res.Units["cache_display"].Imports), "use std::fmt::Display;")
}

func TestAnalyze_AliasIdempotence(t *testing.T) {
	p := &model.Program{
		Functions: []model.FunctionDecl{
			{Name: "via_alias", Signature: model.Signature{Params: []model.Param{{Name: "t", Type: "Table"}}}},
			{Name: "direct", Signature: model.Signature{Params: []model.Param{{Name: "t", Type: "HashMap<u32, u32>"}}}},
			{Name: "via_diamond", Signature: model.Signature{Params: []model.Param{{Name: "z", Type: "Z"}}}},
		},
		Aliases: []model.Alias{
			{Name: "Map", Target: "HashMap<u32, u32>"},
			{Name: "Table", Target: "Map"},
			{Name: "Z", Target: "(A, W)"},
			{Name: "W", Target: "A"},
			{Name: "A", Target: "HashMap<u32, u32>"},
		},
		Imports: []model.Import{{Path: "std::collections", Name: "HashMap"}},
	}
	arena := model.NewArena(p)
	units := []*unit.GeneratedUnit{
		{Name: "a", Depth: 1, Items: []unit.Item{unit.FunctionItem(0)}},
		{Name: "b", Depth: 1, Items: []unit.Item{unit.FunctionItem(1)}},
		{Name: "c", Depth: 1, Items: []unit.Item{unit.FunctionItem(2)}},
		{Name: "functions", Depth: 1, Declares: []string{"Map", "Table", "Z", "W", "A"}, Items: []unit.Item{
			unit.AliasItem("Map"), unit.AliasItem("Table"), unit.AliasItem("Z"), unit.AliasItem("W"), unit.AliasItem("A"),
		}},
	}
	res := NewAnalyzer(nil).Analyze(p, arena, units)

	assert.Equal(t, res.Units["b"].Imports, res.Units["a"].Imports)
	assert.Equal(t, "HashMap<u32, u32>", res.Units["a"].Substitutions["Table"])
	assert.Empty(t, res.Units["b"].Substitutions)

	t.Run("Diamond chain expands every path", func(t *testing.T) {
		subs := res.Units["c"].Substitutions
		assert.Equal(t, "(HashMap<u32, u32>, HashMap<u32, u32>)", subs["Z"])
		for name, expanded := range subs {
			for _, alias := range []string{"Z", "W", "A"} {
				assert.NotContains(t, model.Idents(expanded), alias, name)
			}
		}
		assert.Equal(t, res.Units["b"].Imports, res.Units["c"].Imports)

		text := "fn via_diamond(z: Z) {}"
		for _, name := range []string{"A", "W", "Z"} {
			if repl, ok := subs[name]; ok {
				text = model.ReplaceIdent(text, name, repl)
			}
		}
		assert.Equal(t, "fn via_diamond(z: (HashMap<u32, u32>, HashMap<u32, u32>)) {}", text)
	})
}

func TestAnalyze_PublicAliasIsImported(t *testing.T) {
	p := &model.Program{
		Functions: []model.FunctionDecl{{Name: "f", Signature: model.Signature{Returns: "Id"}}},
		Aliases:   []model.Alias{{Name: "Id", Target: "u64", Visibility: model.VisPublic}},
	}
	arena := model.NewArena(p)
	units := []*unit.GeneratedUnit{
		{Name: "ids", Depth: 1, Items: []unit.Item{unit.FunctionItem(0)}},
		{Name: "functions", Depth: 1, Declares: []string{"Id"}, Items: []unit.Item{unit.AliasItem("Id")}},
	}
	res := NewAnalyzer(nil).Analyze(p, arena, units)

	assert.Equal(t, []string{"use super::functions::Id;"}, importStrings(res.Units["ids"].Imports))
	assert.Empty(t, res.Units["ids"].Substitutions)
}

func TestAnalyze_Unresolved(t *testing.T) {
	program := func(imports ...model.Import) *model.Program {
		return &model.Program{
			Functions: []model.FunctionDecl{{Name: "f", Signature: model.Signature{Returns: "Widget"}}},
			Imports:   imports,
		}
	}
	units := func() []*unit.GeneratedUnit {
		return []*unit.GeneratedUnit{{Name: "functions", Depth: 1, Declares: []string{"f"}, Items: []unit.Item{unit.FunctionItem(0)}}}
	}

	t.Run("warns without globs", func(t *testing.T) {
		p := program()
		res := NewAnalyzer(nil).Analyze(p, model.NewArena(p), units())
		require.Len(t, res.Warnings, 1)
		w := res.Warnings[0]
		assert.Equal(t, report.CodeUnresolvedImport, w.Code)
		assert.Equal(t, "functions", w.Unit)
		assert.Equal(t, "Widget", w.Subject)
		assert.Equal(t, []string{"Widget"}, res.Units["functions"].Unresolved)
	})

	t.Run("globs cover the rest", func(t *testing.T) {
		p := program(model.Import{Path: "super::widgets", Name: "*", Glob: true})
		res := NewAnalyzer(nil).Analyze(p, model.NewArena(p), units())
		assert.Empty(t, res.Warnings)
		ui := res.Units["functions"]
		assert.Equal(t, []string{"use super::super::widgets::*;"}, importStrings(ui.Imports))
		assert.Equal(t, []string{"Widget"}, ui.GlobCovered)
	})
}

func TestAnalyze_WrappedOwner(t *testing.T) {
	p := &model.Program{
		Types: []model.TypeDecl{
			{Name: "Core"},
			{Name: "Left", Fields: []model.Field{{Name: "core", Type: "Core"}}},
		},
	}
	arena := model.NewArena(p)
	units := []*unit.GeneratedUnit{
		{Name: "core_module", Role: unit.RoleWrapper, Depth: 1},
		{Name: "core_type", Role: unit.RoleType, Parent: "core_module", Depth: 2, Declares: []string{"Core"}, Items: []unit.Item{unit.TypeItem("Core")}},
		{Name: "left", Role: unit.RoleInline, Depth: 1, Declares: []string{"Left"}, Items: []unit.Item{unit.TypeItem("Left")}},
	}
	res := NewAnalyzer(nil).Analyze(p, arena, units)

	imps := res.Units["left"].Imports
	require.Len(t, imps, 1)
	assert.Equal(t, "use super::core_module::Core;", imps[0].String())
	assert.Equal(t, "core_module::core_type", imps[0].Sibling)
}

func TestCandidates(t *testing.T) {
	p := cacheProgram()
	p.Types = append(p.Types, model.TypeDecl{Name: "Status", Kind: model.KindEnum, Variants: []string{"Active(u32)", "Idle"}})
	p.Blocks[0].Members[1].References = append(p.Blocks[0].Members[1].References, "Active", "Status", "MAX")
	p.Blocks[0].Members = append(p.Blocks[0].Members, model.Member{Name: "MAX", Kind: model.MemberConst})
	arena := model.NewArena(p)

	u := &unit.GeneratedUnit{Name: "cache_impl", Items: []unit.Item{unit.ImplItem("Cache", 0, arena.ForBlock(0))}}
	assert.Equal(t, []string{"Cache", "HashMap", "Option", "Status", "Key", "helper"}, Candidates(p, arena, u))
}

func TestRelativePath(t *testing.T) {
	top := func(name string) *unit.GeneratedUnit { return &unit.GeneratedUnit{Name: name, Depth: 1} }
	nested := func(name, parent string) *unit.GeneratedUnit {
		return &unit.GeneratedUnit{Name: name, Parent: parent, Depth: 2}
	}
	assert.Equal(t, "super::b", RelativePath(top("a"), top("b")))
	assert.Equal(t, "super::b", RelativePath(nested("a", "w"), nested("b", "w")))
	assert.Equal(t, "super::super::b", RelativePath(nested("a", "w"), top("b")))
	assert.Equal(t, "super::w", RelativePath(top("a"), nested("b", "w")))
	assert.Equal(t, "super::super::w2", RelativePath(nested("a", "w1"), nested("b", "w2")))
}

func TestRebase(t *testing.T) {
	assert.Equal(t, "std::fmt", Rebase("std::fmt", 1))
	assert.Equal(t, "crate::x", Rebase("crate::x", 2))
	assert.Equal(t, "super::util", Rebase("self::util", 1))
	assert.Equal(t, "super::super::util", Rebase("super::util", 1))
	assert.Equal(t, "super::super::super", Rebase("super", 2))
	assert.Equal(t, "super", Rebase("self", 1))
	assert.Equal(t, "self::util", Rebase("self::util", 0))
}

func TestChain_Results(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	chain := NewDefaultChain()
	NewAnalyzer(chain).Analyze(p, arena, cacheUnits(arena))

	results := chain.Results()
	require.Len(t, results, 5)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Resolver)
		assert.LessOrEqual(t, r.Stats.Resolved, r.Stats.Attempted)
	}
	assert.Equal(t, []string{"local", "external", "builtin", "alias", "sibling"}, names)
	assert.Positive(t, results[0].Stats.Attempted)
}

type fixedResolver struct{ name string }

func (f fixedResolver) Name() string { return f.name }
func (f fixedResolver) Resolve(_ *Context, name string) (Resolution, bool) {
	return Resolution{Import: &unit.Import{Path: "fixed", Names: []string{name}}}, name != "skip"
}

func TestChain_FirstMatchWins(t *testing.T) {
	chain := NewChain(LocalResolver{}, fixedResolver{name: "fixed"})
	ctx := &Context{Unit: &unit.GeneratedUnit{Name: "u", Declares: []string{"Mine"}}}

	res, ok := chain.Resolve(ctx, "Mine")
	require.True(t, ok)
	assert.True(t, res.Local)
	assert.Equal(t, "local", res.Resolver)

	res, ok = chain.Resolve(ctx, "Other")
	require.True(t, ok)
	assert.Equal(t, "fixed", res.Resolver)

	_, ok = chain.Resolve(ctx, "skip")
	assert.False(t, ok)
}
