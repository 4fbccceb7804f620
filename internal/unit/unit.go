// Package unit holds the generated-unit types shared by the analyzers and
// the assembler.
package unit

import (
	"fmt"
	"sort"
	"strings"

	"modsplit/internal/model"
)

type Role string

const (
	RoleInline     Role = "inline"
	RoleType       Role = "type"
	RoleImpl       Role = "impl"
	RoleTrait      Role = "trait"
	RoleWrapper    Role = "wrapper"
	RoleStandalone Role = "standalone"
	RoleAggregator Role = "aggregator"
)

type ItemKind string

const (
	ItemType     ItemKind = "type"
	ItemImpl     ItemKind = "impl"
	ItemFunction ItemKind = "function"
	ItemAlias    ItemKind = "alias"
)

// Item is one piece of content placed in a unit. For ItemImpl, Members
// selects the block members that land here, in source order.
type Item struct {
	Kind     ItemKind         `json:"kind"`
	TypeName string           `json:"type_name,omitempty"`
	Block    int              `json:"block"`
	Members  []model.MemberID `json:"members,omitempty"`
	Function int              `json:"function"`
	Alias    string           `json:"alias,omitempty"`
}

func TypeItem(name string) Item {
	return Item{Kind: ItemType, TypeName: name, Block: -1, Function: -1}
}

func ImplItem(typeName string, block int, members []model.MemberID) Item {
	return Item{Kind: ItemImpl, TypeName: typeName, Block: block, Members: members, Function: -1}
}

func FunctionItem(index int) Item {
	return Item{Kind: ItemFunction, Block: -1, Function: index}
}

func AliasItem(name string) Item {
	return Item{Kind: ItemAlias, Alias: name, Block: -1, Function: -1}
}

// Import is one `use` entry: every name comes from Path. Sibling names the
// generated unit that owns the names when the path points inside the run.
// Vis is the keyword prefix of a re-export, empty for a plain import.
type Import struct {
	Path    string   `json:"path"`
	Names   []string `json:"names"`
	Sibling string   `json:"sibling,omitempty"`
	Glob    bool     `json:"glob,omitempty"`
	Vis     string   `json:"vis,omitempty"`
}

func (i Import) String() string {
	kw := "use"
	if i.Vis != "" {
		kw = i.Vis + " use"
	}
	switch {
	case i.Glob:
		return fmt.Sprintf("%s %s::*;", kw, i.Path)
	case i.Path == "" && len(i.Names) == 1:
		return fmt.Sprintf("%s %s;", kw, i.Names[0])
	case len(i.Names) == 1:
		return fmt.Sprintf("%s %s::%s;", kw, i.Path, i.Names[0])
	default:
		return fmt.Sprintf("%s %s::{%s};", kw, i.Path, strings.Join(i.Names, ", "))
	}
}

// Has reports whether the entry brings name into scope.
func (i Import) Has(name string) bool {
	for _, n := range i.Names {
		if n == name || strings.HasSuffix(n, " as "+name) {
			return true
		}
	}
	return false
}

// GeneratedUnit is one output file.
type GeneratedUnit struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	TypeName string `json:"type_name,omitempty"`
	GroupID  int    `json:"group_id"`
	Items    []Item `json:"items,omitempty"`

	// Parent is the wrapper namespace for units nested under a wrapper.
	Parent string `json:"parent,omitempty"`
	// Depth counts modules between the original module and this unit.
	Depth int    `json:"depth"`
	Path  string `json:"path"`

	Declares      []string          `json:"declares,omitempty"`
	Imports       []Import          `json:"imports,omitempty"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
	Doc           string            `json:"doc,omitempty"`

	// Submodules and ReExports are used by aggregator and wrapper units.
	Submodules []string `json:"submodules,omitempty"`
	ReExports  []Import `json:"re_exports,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// ModulePath is the unit's path relative to the original module, joined
// with "::".
func (u *GeneratedUnit) ModulePath() string {
	if u.Parent != "" {
		return u.Parent + "::" + u.Name
	}
	return u.Name
}

// DeclaresName reports whether the unit owns name.
func (u *GeneratedUnit) DeclaresName(name string) bool {
	for _, d := range u.Declares {
		if d == name {
			return true
		}
	}
	return false
}

// MemberIDs lists every member placed in the unit.
func (u *GeneratedUnit) MemberIDs() []model.MemberID {
	var out []model.MemberID
	for _, it := range u.Items {
		if it.Kind == ItemImpl {
			out = append(out, it.Members...)
		}
	}
	return out
}

// Uniquer hands out unique unit names within one run.
type Uniquer struct {
	used map[string]int
}

func NewUniquer(reserved ...string) *Uniquer {
	u := &Uniquer{used: make(map[string]int)}
	for _, r := range reserved {
		u.used[r] = 1
	}
	return u
}

// Name returns base the first time and base_2, base_3, ... afterwards.
func (u *Uniquer) Name(base string) string {
	n := u.used[base]
	u.used[base] = n + 1
	if n == 0 {
		return base
	}
	for {
		n++
		candidate := fmt.Sprintf("%s_%d", base, n)
		if u.used[candidate] == 0 {
			u.used[candidate] = 1
			u.used[base] = n
			return candidate
		}
	}
}

// SnakeCase converts a type name such as HTTPServer or CacheEntry to
// http_server or cache_entry.
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if i > 0 {
				prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z' || runes[i-1] >= '0' && runes[i-1] <= '9'
				nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
				if prevLower || (prevUpper && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SortedNames returns a sorted copy without duplicates.
func SortedNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
