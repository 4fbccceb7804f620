package model

import "strings"

// Import is one leaf of a `use` tree. Path is the module path, Name the
// imported item and Alias the bound name when renamed with `as`. Glob
// imports have Name "*".
type Import struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Glob  bool   `json:"glob,omitempty"`
}

// Bound is the name the import introduces into scope.
func (i Import) Bound() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

// Leaf is the text that goes inside braces when grouping by path.
func (i Import) Leaf() string {
	if i.Alias != "" && i.Alias != i.Name {
		return i.Name + " as " + i.Alias
	}
	return i.Name
}

// FullPath joins the module path and item name.
func (i Import) FullPath() string {
	if i.Path == "" {
		return i.Name
	}
	return i.Path + "::" + i.Name
}

// ImportTable indexes the original file's imports by bound name.
type ImportTable struct {
	byName map[string]Import
	globs  []Import
}

func NewImportTable(imports []Import) *ImportTable {
	t := &ImportTable{byName: make(map[string]Import, len(imports))}
	for _, imp := range imports {
		if imp.Glob {
			t.globs = append(t.globs, imp)
			continue
		}
		if _, dup := t.byName[imp.Bound()]; dup {
			continue
		}
		t.byName[imp.Bound()] = imp
	}
	return t
}

func (t *ImportTable) Lookup(name string) (Import, bool) {
	if t == nil {
		return Import{}, false
	}
	imp, ok := t.byName[name]
	return imp, ok
}

func (t *ImportTable) Globs() []Import {
	if t == nil {
		return nil
	}
	return t.globs
}

// IsRelative reports whether the import path starts at the current module
// tree (self, super, crate-relative).
func (i Import) IsRelative() bool {
	return i.Path == "self" || i.Path == "super" ||
		strings.HasPrefix(i.Path, "self::") || strings.HasPrefix(i.Path, "super::")
}
