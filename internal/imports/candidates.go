package imports

import (
	"unicode"
	"unicode/utf8"

	"modsplit/internal/model"
	"modsplit/internal/unit"
)

// candidateSet keeps names in first-seen order.
type candidateSet struct {
	p       *model.Program
	imports *model.ImportTable
	aliases *model.TypeAliasTable
	free    map[string]bool
	skip    map[string]bool
	locals  map[string]bool
	seen    map[string]bool
	out     []string
}

func newCandidateSet(p *model.Program) *candidateSet {
	c := &candidateSet{
		p:       p,
		imports: p.ImportTable(),
		aliases: p.AliasTable(),
		free:    make(map[string]bool),
		skip:    map[string]bool{"Self": true, "self": true},
		locals:  make(map[string]bool),
		seen:    make(map[string]bool),
	}
	for _, n := range p.FreeItemNames() {
		c.free[n] = true
	}
	// Reached through Self:: or the type path, never imported.
	for _, t := range p.Types {
		for _, v := range t.Variants {
			if ids := model.Idents(v); len(ids) > 0 {
				c.skip[ids[0]] = true
			}
		}
	}
	for _, b := range p.Blocks {
		for _, m := range b.Members {
			c.skip[m.Name] = true
		}
	}
	return c
}

func (c *candidateSet) local(generics string) {
	for _, g := range model.GenericNames(generics) {
		c.locals[g] = true
	}
}

func (c *candidateSet) add(name string) {
	if name == "" || c.seen[name] {
		return
	}
	if c.skip[name] && !c.free[name] {
		if _, imported := c.imports.Lookup(name); !imported {
			return
		}
	}
	c.seen[name] = true
	c.out = append(c.out, name)
}

// exprs adds every path root of the given type expressions.
func (c *candidateSet) exprs(exprs ...string) {
	for _, e := range exprs {
		for _, id := range model.RootIdents(e) {
			c.add(id)
		}
	}
}

// refs adds body references that can name an item: type-like names, free
// items of the program and names bound by the original imports.
func (c *candidateSet) refs(names []string) {
	for _, n := range names {
		if c.free[n] || typeLike(n) {
			c.add(n)
			continue
		}
		if _, ok := c.imports.Lookup(n); ok {
			c.add(n)
			continue
		}
		if _, ok := c.aliases.Lookup(n); ok {
			c.add(n)
		}
	}
}

func typeLike(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// Candidates lists the names a unit mentions that may need an import, in
// first-seen order. Generic parameters, enum variants and block members
// are left out.
func Candidates(p *model.Program, arena *model.Arena, u *unit.GeneratedUnit) []string {
	c := newCandidateSet(p)
	for _, it := range u.Items {
		switch it.Kind {
		case unit.ItemType:
			t, ok := p.TypeByName(it.TypeName)
			if !ok {
				continue
			}
			c.local(t.Generics)
			c.exprs(t.Generics, t.Where)
			for _, f := range t.Fields {
				c.exprs(f.Type)
			}
			c.refs(t.References)
		case unit.ItemImpl:
			b := &p.Blocks[it.Block]
			c.local(b.Generics)
			c.add(b.TypeName)
			c.exprs(b.SelfType, b.Trait, b.Generics, b.Where)
			for _, id := range it.Members {
				m := arena.Member(id)
				c.local(m.Signature.Generics)
				c.exprs(m.Signature.TypeExprs()...)
				c.refs(m.References)
			}
		case unit.ItemFunction:
			f := &p.Functions[it.Function]
			c.local(f.Signature.Generics)
			c.exprs(f.Signature.TypeExprs()...)
			c.refs(f.References)
		case unit.ItemAlias:
			al, ok := c.aliases.Lookup(it.Alias)
			if !ok {
				continue
			}
			c.local(al.Generics)
			c.exprs(al.Target)
		}
	}
	out := c.out[:0]
	for _, n := range c.out {
		if !c.locals[n] {
			out = append(out, n)
		}
	}
	return out
}
