package imports

import (
	"strings"

	"modsplit/internal/model"
	"modsplit/internal/refscan"
	"modsplit/internal/unit"
)

// LocalResolver accepts names the unit itself declares.
type LocalResolver struct{}

func (LocalResolver) Name() string { return "local" }

func (LocalResolver) Resolve(ctx *Context, name string) (Resolution, bool) {
	if ctx.Unit.DeclaresName(name) {
		return Resolution{Local: true}, true
	}
	if owner, ok := ctx.Owners[name]; ok && owner == ctx.Unit {
		return Resolution{Local: true}, true
	}
	return Resolution{}, false
}

// BuiltinResolver accepts keywords, primitives and prelude names.
type BuiltinResolver struct{}

func (BuiltinResolver) Name() string { return "builtin" }

func (BuiltinResolver) Resolve(_ *Context, name string) (Resolution, bool) {
	if refscan.IsBuiltin(name) {
		return Resolution{Local: true}, true
	}
	return Resolution{}, false
}

// AliasResolver handles names declared as type aliases. Aliases at least
// crate-visible are part of the module's contract and are imported like
// any other sibling item, and so are generic aliases, which a textual
// substitution cannot instantiate. Other aliases are replaced by their
// fully expanded target, whose names are resolved instead.
type AliasResolver struct{}

func (AliasResolver) Name() string { return "alias" }

func (AliasResolver) Resolve(ctx *Context, name string) (Resolution, bool) {
	al, ok := ctx.Aliases.Lookup(name)
	if !ok || al.Visibility >= model.VisCrate || al.Generics != "" {
		return Resolution{}, false
	}
	expanded := ctx.Aliases.Expand(name)
	return Resolution{Substitute: expanded, Follow: model.RootIdents(expanded)}, true
}

// SiblingResolver imports names declared by other generated units through
// a path relative to the importing unit.
type SiblingResolver struct{}

func (SiblingResolver) Name() string { return "sibling" }

func (SiblingResolver) Resolve(ctx *Context, name string) (Resolution, bool) {
	owner, ok := ctx.Owners[name]
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Import: &unit.Import{
		Path:    RelativePath(ctx.Unit, owner),
		Names:   []string{name},
		Sibling: owner.ModulePath(),
	}}, true
}

// ExternalResolver carries entries of the original import table over,
// rebasing self:: and super:: paths for the unit's depth.
type ExternalResolver struct{}

func (ExternalResolver) Name() string { return "external" }

func (ExternalResolver) Resolve(ctx *Context, name string) (Resolution, bool) {
	imp, ok := ctx.Imports.Lookup(name)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Import: &unit.Import{
		Path:  Rebase(imp.Path, ctx.Unit.Depth),
		Names: []string{imp.Leaf()},
	}}, true
}

// RelativePath is the module path from one generated unit to the unit that
// owns a name. Units nested in another wrapper are reached through that
// wrapper, which re-exports its contents.
func RelativePath(from, to *unit.GeneratedUnit) string {
	switch {
	case to.Parent == from.Parent:
		return "super::" + to.Name
	case to.Parent != "":
		return supers(from.Depth) + "::" + to.Parent
	default:
		return supers(from.Depth) + "::" + to.Name
	}
}

// Rebase rewrites a path written in the original module so it still points
// at the same place from a unit depth modules further down.
func Rebase(path string, depth int) string {
	if depth <= 0 {
		return path
	}
	switch {
	case path == "self":
		return supers(depth)
	case strings.HasPrefix(path, "self::"):
		return supers(depth) + strings.TrimPrefix(path, "self")
	case path == "super":
		return supers(depth + 1)
	case strings.HasPrefix(path, "super::"):
		return supers(depth+1) + strings.TrimPrefix(path, "super")
	}
	return path
}

func supers(n int) string {
	if n <= 0 {
		return "self"
	}
	return strings.TrimSuffix(strings.Repeat("super::", n), "::")
}
