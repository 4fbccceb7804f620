// Package scope decides how each type is laid out and how visible every
// relocated symbol has to be.
package scope

import (
	"fmt"
	"sort"

	"modsplit/internal/config"
	"modsplit/internal/model"
)

type Strategy string

const (
	// Inline keeps a type and all its behavior in one unit.
	Inline Strategy = "inline"
	// Submodule puts the type definition in one unit and each behavior
	// group in a sibling unit.
	Submodule Strategy = "submodule"
	// Wrapper is Submodule nested under a namespace of its own, used when
	// several other owners refer to the type.
	Wrapper Strategy = "wrapper"
)

type Decision struct {
	TypeName       string   `json:"type_name"`
	Strategy       Strategy `json:"strategy"`
	TypeLines      int      `json:"type_lines"`
	BehaviorLines  int      `json:"behavior_lines"`
	TotalLines     int      `json:"total_lines"`
	ExternalOwners []string `json:"external_owners,omitempty"`
	Reason         string   `json:"reason"`
}

type Analyzer struct {
	cfg *config.Config
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// DecideAll returns one decision per type, in source order.
func (a *Analyzer) DecideAll(p *model.Program) []Decision {
	out := make([]Decision, 0, len(p.Types))
	for _, t := range p.Types {
		out = append(out, a.Decide(p, t.Name))
	}
	return out
}

func (a *Analyzer) Decide(p *model.Program, typeName string) Decision {
	d := Decision{
		TypeName:      typeName,
		TypeLines:     p.TypeLines(typeName),
		BehaviorLines: p.BehaviorLines(typeName),
	}
	d.TotalLines = d.TypeLines + d.BehaviorLines
	maxLines, maxImpl := a.cfg.Split.MaxLines, a.cfg.Split.MaxImplLines

	switch {
	case len(p.BlocksFor(typeName)) == 0:
		d.Strategy = Inline
		d.Reason = "no behavior blocks"
		return d
	case d.TotalLines <= maxLines && d.BehaviorLines <= maxImpl:
		d.Strategy = Inline
		d.Reason = fmt.Sprintf("%d lines fit in %d", d.TotalLines, maxLines)
		return d
	case d.TotalLines <= maxLines:
		d.Strategy = Submodule
		d.Reason = fmt.Sprintf("behavior has %d lines, over the %d line impl limit", d.BehaviorLines, maxImpl)
	default:
		d.Strategy = Submodule
		d.Reason = fmt.Sprintf("%d lines exceed %d", d.TotalLines, maxLines)
	}

	d.ExternalOwners = externalOwners(p, typeName)
	if len(d.ExternalOwners) >= 2 {
		d.Strategy = Wrapper
		d.Reason += fmt.Sprintf("; referenced from %d other owners", len(d.ExternalOwners))
	}
	return d
}

// standaloneOwner stands for every free item: they share one unit.
const standaloneOwner = "<free items>"

// externalOwners lists the other types and the free-item unit whose
// declarations or behavior mention typeName.
func externalOwners(p *model.Program, typeName string) []string {
	owners := make(map[string]bool)
	for _, t := range p.Types {
		if t.Name != typeName && typeMentions(&t, typeName) {
			owners[t.Name] = true
		}
	}
	for bi := range p.Blocks {
		b := &p.Blocks[bi]
		if b.TypeName == typeName || owners[b.TypeName] {
			continue
		}
		if blockMentions(b, typeName) {
			owners[b.TypeName] = true
		}
	}
	for _, f := range p.Functions {
		if contains(f.References, typeName) || exprsMention(f.Signature.TypeExprs(), typeName) {
			owners[standaloneOwner] = true
			break
		}
	}
	for _, al := range p.Aliases {
		if exprsMention([]string{al.Target}, typeName) {
			owners[standaloneOwner] = true
			break
		}
	}
	out := make([]string, 0, len(owners))
	for o := range owners {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

func typeMentions(t *model.TypeDecl, name string) bool {
	if contains(t.References, name) {
		return true
	}
	for _, f := range t.Fields {
		if exprsMention([]string{f.Type}, name) {
			return true
		}
	}
	return exprsMention([]string{t.Generics, t.Where}, name)
}

func blockMentions(b *model.BehaviorBlock, name string) bool {
	if exprsMention([]string{b.Trait, b.Generics, b.Where}, name) {
		return true
	}
	for i := range b.Members {
		m := &b.Members[i]
		if contains(m.References, name) || exprsMention(m.Signature.TypeExprs(), name) {
			return true
		}
	}
	return false
}

func exprsMention(exprs []string, name string) bool {
	for _, e := range exprs {
		if e != "" && contains(model.Idents(e), name) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
