// Package imports works out the `use` entries every generated unit needs.
package imports

import (
	"modsplit/internal/model"
	"modsplit/internal/unit"
)

// Context is what a resolver sees while resolving the names of one unit.
type Context struct {
	Program *model.Program
	Aliases *model.TypeAliasTable
	Imports *model.ImportTable
	Unit    *unit.GeneratedUnit
	// Owners maps a declared name to the unit that declares it.
	Owners map[string]*unit.GeneratedUnit
}

// Resolution is the outcome of one resolver for one name. Exactly one of
// Local, Import or Follow is meaningful.
type Resolution struct {
	Resolver string
	// Local means the name is already in scope.
	Local  bool
	Import *unit.Import
	// Substitute replaces the name in the unit text; Follow lists the names
	// the replacement mentions, which are resolved in turn.
	Substitute string
	Follow     []string
}

type Resolver interface {
	Name() string
	Resolve(ctx *Context, name string) (Resolution, bool)
}

type ResolveStats struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
}

type StageResult struct {
	Resolver string       `json:"resolver"`
	Stats    ResolveStats `json:"stats"`
}

type Chain struct {
	resolvers []Resolver
	stats     map[string]*ResolveStats
}

func NewChain(resolvers ...Resolver) *Chain {
	c := &Chain{resolvers: resolvers, stats: make(map[string]*ResolveStats, len(resolvers))}
	for _, r := range resolvers {
		c.stats[r.Name()] = &ResolveStats{}
	}
	return c
}

// NewDefaultChain resolves in the order: declared locally, original import
// table, builtin, alias, sibling unit. Imports shadow prelude names.
func NewDefaultChain() *Chain {
	return NewChain(
		LocalResolver{},
		ExternalResolver{},
		BuiltinResolver{},
		AliasResolver{},
		SiblingResolver{},
	)
}

// Resolve asks each resolver in turn. ok is false when none handled name.
func (c *Chain) Resolve(ctx *Context, name string) (Resolution, bool) {
	for _, r := range c.resolvers {
		st := c.stats[r.Name()]
		st.Attempted++
		res, ok := r.Resolve(ctx, name)
		if !ok {
			continue
		}
		st.Resolved++
		res.Resolver = r.Name()
		return res, true
	}
	return Resolution{}, false
}

// Results reports per-resolver counters accumulated since the chain was
// built, in chain order.
func (c *Chain) Results() []StageResult {
	out := make([]StageResult, 0, len(c.resolvers))
	for _, r := range c.resolvers {
		out = append(out, StageResult{Resolver: r.Name(), Stats: *c.stats[r.Name()]})
	}
	return out
}
