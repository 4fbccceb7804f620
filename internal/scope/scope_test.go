package scope

import (
	"testing"

	"modsplit/internal/config"
	"modsplit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(lines int) model.Span {
	return model.Span{StartLine: 1, EndLine: lines}
}

func newAnalyzer() *Analyzer {
	return NewAnalyzer(config.Default())
}

func TestDecide(t *testing.T) {
	t.Run("Inline when everything fits", func(t *testing.T) {
		p := &model.Program{
			Types:  []model.TypeDecl{{Name: "Small", Span: span(10)}},
			Blocks: []model.BehaviorBlock{{TypeName: "Small", Span: span(100)}},
		}
		d := newAnalyzer().Decide(p, "Small")
		assert.Equal(t, Inline, d.Strategy)
		assert.Equal(t, 110, d.TotalLines)
	})

	t.Run("Inline without behavior", func(t *testing.T) {
		p := &model.Program{Types: []model.TypeDecl{{Name: "Huge", Span: span(5000)}}}
		assert.Equal(t, Inline, newAnalyzer().Decide(p, "Huge").Strategy)
	})

	t.Run("Submodule when behavior exceeds impl limit", func(t *testing.T) {
		p := &model.Program{
			Types: []model.TypeDecl{{Name: "Cache", Span: span(20)}},
			Blocks: []model.BehaviorBlock{
				{TypeName: "Cache", Span: span(480)},
				{TypeName: "Cache", Trait: "Display", Span: span(400)},
			},
		}
		d := newAnalyzer().Decide(p, "Cache")
		assert.Equal(t, Submodule, d.Strategy)
		assert.Equal(t, 900, d.TotalLines)
		assert.Contains(t, d.Reason, "impl limit")
	})

	t.Run("Submodule when total exceeds max lines", func(t *testing.T) {
		p := &model.Program{
			Types:  []model.TypeDecl{{Name: "Big", Span: span(600)}},
			Blocks: []model.BehaviorBlock{{TypeName: "Big", Span: span(450)}},
		}
		assert.Equal(t, Submodule, newAnalyzer().Decide(p, "Big").Strategy)
	})

	t.Run("Wrapper when shared by several owners", func(t *testing.T) {
		p := &model.Program{
			Types: []model.TypeDecl{
				{Name: "Core", Span: span(600)},
				{Name: "Left", Fields: []model.Field{{Name: "core", Type: "Arc<Core>"}}},
				{Name: "Right"},
			},
			Blocks: []model.BehaviorBlock{
				{TypeName: "Core", Span: span(600)},
				{TypeName: "Right", Members: []model.Member{{Name: "run", References: []string{"Core"}}}},
			},
			Functions: []model.FunctionDecl{{Name: "make", Signature: model.Signature{Returns: "Core"}}},
		}
		d := newAnalyzer().Decide(p, "Core")
		assert.Equal(t, Wrapper, d.Strategy)
		assert.Equal(t, []string{"<free items>", "Left", "Right"}, d.ExternalOwners)
	})

	t.Run("DecideAll keeps source order", func(t *testing.T) {
		p := &model.Program{Types: []model.TypeDecl{{Name: "B"}, {Name: "A"}}}
		ds := newAnalyzer().DecideAll(p)
		require.Len(t, ds, 2)
		assert.Equal(t, "B", ds[0].TypeName)
	})
}

func cacheProgram() *model.Program {
	return &model.Program{
		Types: []model.TypeDecl{{
			Name:       "Cache",
			Visibility: model.VisPublic,
			Fields: []model.Field{
				{Name: "map", Type: "HashMap<K, V>"},
				{Name: "hits", Type: "u64", Visibility: model.VisPublic},
				{Name: "cap", Type: "usize", Visibility: model.VisParent},
			},
		}},
		Blocks: []model.BehaviorBlock{
			{TypeName: "Cache", SelfType: "Cache<K, V>", Members: []model.Member{
				{Name: "new", Visibility: model.VisPublic, References: []string{"HashMap", "map"}},
				{Name: "get", Visibility: model.VisPublic, References: []string{"map", "helper"}},
				{Name: "helper"},
				{Name: "lonely"},
			}},
			{TypeName: "Cache", SelfType: "Cache<K, V>", Trait: "Display", Members: []model.Member{
				{Name: "fmt", References: []string{"helper", "write"}},
			}},
		},
		Functions: []model.FunctionDecl{
			{Name: "local_only", References: []string{"local_only"}},
			{Name: "shared", Visibility: model.VisParent},
		},
	}
}

func cachePlacement(arena *model.Arena) Placement {
	pl := NewPlacement()
	pl.TypeUnit["Cache"] = "cache_type"
	for _, id := range arena.ForBlock(0) {
		pl.MemberUnit[id] = "cache_impl"
	}
	for _, id := range arena.ForBlock(1) {
		pl.MemberUnit[id] = "cache_display"
	}
	pl.FunctionUnit[0] = "functions"
	pl.FunctionUnit[1] = "functions"
	return pl
}

func TestInferVisibility(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	ann := newAnalyzer().InferVisibility(p, arena, cachePlacement(arena))

	assert.Equal(t, model.VisPublic, ann.Types["Cache"])
	assert.Equal(t, model.VisParent, ann.Fields["Cache"]["map"], "private field used by the impl unit")
	assert.Equal(t, model.VisPublic, ann.Fields["Cache"]["hits"])
	assert.Equal(t, model.VisOuter, ann.Fields["Cache"]["cap"], "pub(super) keeps its reach")

	assert.Equal(t, model.VisPublic, ann.Members[0])
	assert.Equal(t, model.VisParent, ann.Members[2], "helper is called from the trait unit")
	assert.Equal(t, model.VisPrivate, ann.Members[3])
	_, traitAnnotated := ann.Members[4]
	assert.False(t, traitAnnotated)

	assert.Equal(t, model.VisPrivate, ann.Functions[0])
	assert.Equal(t, model.VisOuter, ann.Functions[1])

	assert.Equal(t, model.VisParent, ann.Field("Cache", model.Field{Name: "map"}))
	assert.Equal(t, model.VisCrate, ann.Field("Other", model.Field{Name: "x", Visibility: model.VisCrate}))
}

func TestInferVisibility_PrivateTypeOpenedForImplUnits(t *testing.T) {
	p := &model.Program{
		Types: []model.TypeDecl{{Name: "Pair", Tuple: true, Fields: []model.Field{{Name: "0", Type: "u8"}}}},
		Blocks: []model.BehaviorBlock{{TypeName: "Pair", SelfType: "Pair", Members: []model.Member{
			{Name: "first"},
		}}},
	}
	arena := model.NewArena(p)
	pl := NewPlacement()
	pl.TypeUnit["Pair"] = "pair_type"
	pl.MemberUnit[0] = "pair_impl"

	ann := newAnalyzer().InferVisibility(p, arena, pl)
	assert.Equal(t, model.VisParent, ann.Types["Pair"])
	assert.Equal(t, model.VisParent, ann.Fields["Pair"]["0"])
}

func TestInferVisibility_InlineStaysPrivate(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	pl := NewPlacement()
	pl.TypeUnit["Cache"] = "cache"
	for id := 0; id < arena.Len(); id++ {
		pl.MemberUnit[model.MemberID(id)] = "cache"
	}
	pl.FunctionUnit[0] = "functions"
	pl.FunctionUnit[1] = "functions"

	ann := newAnalyzer().InferVisibility(p, arena, pl)
	assert.Equal(t, model.VisPrivate, ann.Fields["Cache"]["map"])
	assert.Equal(t, model.VisPrivate, ann.Members[2])
}

// Every name a unit mentions that is declared in another unit must end up
// at least parent-visible.
func TestInferVisibility_RoundTrip(t *testing.T) {
	p := cacheProgram()
	arena := model.NewArena(p)
	pl := cachePlacement(arena)
	ann := newAnalyzer().InferVisibility(p, arena, pl)
	usage := CollectUsage(p, arena, pl)

	check := func(name, home string, vis model.Visibility) {
		for unit := range usage[name] {
			if unit != home {
				assert.GreaterOrEqual(t, int(vis), int(model.VisParent), "%s used from %s", name, unit)
			}
		}
	}
	for _, ty := range p.Types {
		check(ty.Name, pl.TypeUnit[ty.Name], ann.Types[ty.Name])
		for _, f := range ty.Fields {
			check(f.Name, pl.TypeUnit[ty.Name], ann.Fields[ty.Name][f.Name])
		}
	}
	for id, vis := range ann.Members {
		check(arena.Member(id).Name, pl.MemberUnit[id], vis)
	}
	for i, vis := range ann.Functions {
		check(p.Functions[i].Name, pl.FunctionUnit[i], vis)
	}

	// Never wider than the original reach.
	for id, vis := range ann.Members {
		orig := arena.Member(id).Visibility
		if orig == model.VisPrivate {
			assert.LessOrEqual(t, int(vis), int(model.VisParent))
		}
	}
}
