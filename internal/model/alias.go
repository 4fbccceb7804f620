package model

import (
	"sort"
	"strings"
	"unicode"
)

// Alias is a `type Name = Target;` declaration.
type Alias struct {
	Name       string     `json:"name"`
	Target     string     `json:"target"`
	Generics   string     `json:"generics,omitempty"`
	Visibility Visibility `json:"visibility"`
	Doc        string     `json:"doc,omitempty"`
	Span       Span       `json:"span"`
	Source     string     `json:"source,omitempty"`
	Site       VisSite    `json:"site"`
}

// TypeAliasTable maps alias names to their declared targets.
type TypeAliasTable struct {
	entries map[string]Alias
}

func NewTypeAliasTable(aliases []Alias) *TypeAliasTable {
	t := &TypeAliasTable{entries: make(map[string]Alias, len(aliases))}
	for _, a := range aliases {
		t.entries[a.Name] = a
	}
	return t
}

func (t *TypeAliasTable) Lookup(name string) (Alias, bool) {
	if t == nil {
		return Alias{}, false
	}
	a, ok := t.entries[name]
	return a, ok
}

func (t *TypeAliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the alias names in sorted order.
func (t *TypeAliasTable) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for name := range t.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve follows an alias chain whose targets name other aliases and
// returns the chain of names visited (starting with name) and the ultimate
// target expression. ok is false when name is not an alias. A cyclic chain
// stops at the first repeated alias.
func (t *TypeAliasTable) Resolve(name string) (target string, chain []string, ok bool) {
	a, ok := t.Lookup(name)
	if !ok {
		return "", nil, false
	}
	seen := map[string]bool{name: true}
	chain = []string{name}
	target = a.Target
	for {
		head := HeadIdent(target)
		next, isAlias := t.Lookup(head)
		if !isAlias || seen[head] {
			return target, chain, true
		}
		seen[head] = true
		chain = append(chain, head)
		if head == strings.TrimSpace(target) {
			target = next.Target
			continue
		}
		target = ReplaceIdent(target, head, next.Target)
	}
}

// Expand rewrites every alias mentioned in expr with its fully expanded
// target. An alias met again on its own expansion path is left in place,
// so cycles stop while aliases reached along several paths all expand.
func (t *TypeAliasTable) Expand(expr string) string {
	if t.Len() == 0 {
		return expr
	}
	return t.expand(expr, make(map[string]bool))
}

func (t *TypeAliasTable) expand(expr string, onPath map[string]bool) string {
	for _, id := range Idents(expr) {
		a, ok := t.Lookup(id)
		if !ok || onPath[id] {
			continue
		}
		onPath[id] = true
		target := t.expand(a.Target, onPath)
		delete(onPath, id)
		expr = ReplaceIdent(expr, id, target)
	}
	return expr
}

// HeadIdent returns the last path segment of the leading path in a type
// expression: `std::sync::Arc<T>` yields `Arc`.
func HeadIdent(expr string) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimLeft(expr, "&*")
	expr = strings.TrimPrefix(expr, "mut ")
	if i := strings.IndexAny(expr, "<(["); i >= 0 {
		expr = expr[:i]
	}
	if i := strings.LastIndex(expr, "::"); i >= 0 {
		expr = expr[i+2:]
	}
	return strings.TrimSpace(expr)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Idents returns identifier tokens of a type expression in order of first
// appearance, skipping lifetimes and numeric literals.
func Idents(expr string) []string {
	var out []string
	seen := make(map[string]bool)
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			i++
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			continue
		}
		if !isIdentRune(r) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isIdentRune(runes[i]) {
			i++
		}
		tok := string(runes[start:i])
		if unicode.IsDigit(runes[start]) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// AssociatedItem reports whether seg, written as `root::seg`, names an
// item the scan should keep. Everything after Self is kept. After a type
// (upper-case root) associated functions and constants are kept, while
// CamelCase segments such as enum variants are not. Module paths
// (`std::`, `fmt::`) never are.
func AssociatedItem(root, seg string) bool {
	if root == "Self" {
		return true
	}
	return upperInitial(root) && !camelCase(seg)
}

func upperInitial(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func camelCase(s string) bool {
	if !upperInitial(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// RootIdents is Idents without path continuations: `fmt::Result<T>`
// yields fmt and T. Segments accepted by AssociatedItem are kept, so
// `Cache::hash_key` yields both names.
func RootIdents(expr string) []string {
	var out []string
	seen := make(map[string]bool)
	runes := []rune(expr)
	prevTok := ""
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			i++
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			prevTok = ""
			continue
		}
		if !isIdentRune(r) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isIdentRune(runes[i]) {
			i++
		}
		tok := string(runes[start:i])
		afterPath := false
		j := start - 1
		for j >= 0 && runes[j] == ' ' {
			j--
		}
		if j >= 1 && runes[j] == ':' && runes[j-1] == ':' {
			afterPath = !AssociatedItem(prevTok, tok)
		}
		prevTok = tok
		if afterPath || unicode.IsDigit(runes[start]) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// ReplaceIdent replaces whole-identifier occurrences of name in text.
// Occurrences that are path continuations (`x::name`) are left alone.
func ReplaceIdent(text, name, repl string) string {
	if name == "" || !strings.Contains(text, name) {
		return text
	}
	var b strings.Builder
	runes := []rune(text)
	nr := []rune(name)
	for i := 0; i < len(runes); {
		if i+len(nr) <= len(runes) && string(runes[i:i+len(nr)]) == name {
			before := i == 0 || !isIdentRune(runes[i-1])
			after := i+len(nr) == len(runes) || !isIdentRune(runes[i+len(nr)])
			qualified := i >= 2 && runes[i-1] == ':' && runes[i-2] == ':'
			if before && after && !qualified {
				b.WriteString(repl)
				i += len(nr)
				continue
			}
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}
