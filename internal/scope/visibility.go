package scope

import (
	"modsplit/internal/model"
)

// Placement records the unit each relocated declaration ends up in.
type Placement struct {
	TypeUnit     map[string]string
	MemberUnit   map[model.MemberID]string
	FunctionUnit map[int]string
	AliasUnit    map[string]string
}

func NewPlacement() Placement {
	return Placement{
		TypeUnit:     make(map[string]string),
		MemberUnit:   make(map[model.MemberID]string),
		FunctionUnit: make(map[int]string),
		AliasUnit:    make(map[string]string),
	}
}

// Annotations holds the inferred visibility of every relocated symbol.
// Trait members are absent: they take the trait's visibility.
type Annotations struct {
	Types     map[string]model.Visibility            `json:"types"`
	Fields    map[string]map[string]model.Visibility `json:"fields"`
	Members   map[model.MemberID]model.Visibility    `json:"members"`
	Functions map[int]model.Visibility               `json:"functions"`
	Aliases   map[string]model.Visibility            `json:"aliases"`
}

// Field returns the annotated visibility of a field, or its original one
// when it was not annotated.
func (a *Annotations) Field(typeName string, f model.Field) model.Visibility {
	if a != nil {
		if v, ok := a.Fields[typeName][f.Name]; ok {
			return v
		}
	}
	return f.Visibility
}

// Usage maps a referenced name to the set of units that mention it.
type Usage map[string]map[string]bool

func (u Usage) add(unit string, names ...string) {
	if unit == "" {
		return
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		set, ok := u[n]
		if !ok {
			set = make(map[string]bool)
			u[n] = set
		}
		set[unit] = true
	}
}

// UsedOutside reports whether name is mentioned from any unit other than
// home.
func (u Usage) UsedOutside(name, home string) bool {
	for unit := range u[name] {
		if unit != home {
			return true
		}
	}
	return false
}

// CollectUsage scans every placed declaration and records which unit
// mentions which names.
func CollectUsage(p *model.Program, arena *model.Arena, pl Placement) Usage {
	u := make(Usage)
	for _, t := range p.Types {
		unit := pl.TypeUnit[t.Name]
		u.add(unit, t.References...)
		for _, f := range t.Fields {
			u.add(unit, model.Idents(f.Type)...)
		}
		u.add(unit, model.Idents(t.Generics)...)
		u.add(unit, model.Idents(t.Where)...)
	}
	for bi := range p.Blocks {
		b := &p.Blocks[bi]
		header := append(model.Idents(b.SelfType), model.Idents(b.Trait)...)
		header = append(header, model.Idents(b.Generics)...)
		header = append(header, model.Idents(b.Where)...)
		header = append(header, b.TypeName)
		for _, id := range arena.ForBlock(bi) {
			m := arena.Member(id)
			unit := pl.MemberUnit[id]
			u.add(unit, header...)
			u.add(unit, m.References...)
			for _, e := range m.Signature.TypeExprs() {
				u.add(unit, model.Idents(e)...)
			}
		}
	}
	for i, f := range p.Functions {
		unit := pl.FunctionUnit[i]
		u.add(unit, f.References...)
		for _, e := range f.Signature.TypeExprs() {
			u.add(unit, model.Idents(e)...)
		}
	}
	for _, al := range p.Aliases {
		u.add(pl.AliasUnit[al.Name], model.Idents(al.Target)...)
	}
	return u
}

// InferVisibility computes the narrowest visibility each relocated symbol
// needs. Symbols that were crate-visible or public keep their visibility.
// Source pub(super) keeps its reach, which is one level further out once
// the file becomes a directory. Private symbols stay private when only their
// own unit mentions them and are opened to the parent scope otherwise.
func (a *Analyzer) InferVisibility(p *model.Program, arena *model.Arena, pl Placement) *Annotations {
	usage := CollectUsage(p, arena, pl)
	out := &Annotations{
		Types:     make(map[string]model.Visibility),
		Fields:    make(map[string]map[string]model.Visibility),
		Members:   make(map[model.MemberID]model.Visibility),
		Functions: make(map[int]model.Visibility),
		Aliases:   make(map[string]model.Visibility),
	}

	for _, t := range p.Types {
		home := pl.TypeUnit[t.Name]
		out.Types[t.Name] = infer(t.Visibility, usage.UsedOutside(t.Name, home))
		fields := make(map[string]model.Visibility, len(t.Fields))
		for _, f := range t.Fields {
			used := usage.UsedOutside(f.Name, home)
			if t.Tuple {
				// positional access is not visible to a name scan
				used = usage.UsedOutside(t.Name, home)
			}
			fields[f.Name] = infer(f.Visibility, used)
		}
		out.Fields[t.Name] = fields
	}

	for bi := range p.Blocks {
		if p.Blocks[bi].IsTrait() {
			continue
		}
		for _, id := range arena.ForBlock(bi) {
			m := arena.Member(id)
			out.Members[id] = infer(m.Visibility, usage.UsedOutside(m.Name, pl.MemberUnit[id]))
		}
	}

	for i, f := range p.Functions {
		out.Functions[i] = infer(f.Visibility, usage.UsedOutside(f.Name, pl.FunctionUnit[i]))
	}
	for _, al := range p.Aliases {
		out.Aliases[al.Name] = infer(al.Visibility, usage.UsedOutside(al.Name, pl.AliasUnit[al.Name]))
	}
	return out
}

func infer(original model.Visibility, usedOutside bool) model.Visibility {
	switch {
	case original >= model.VisOuter:
		return original
	case original == model.VisParent:
		return model.VisOuter
	case usedOutside:
		return model.VisParent
	default:
		return model.VisPrivate
	}
}
