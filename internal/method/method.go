// Package method clusters the members of behavior blocks into size-bounded
// groups, each of which becomes one generated unit.
package method

import (
	"fmt"
	"sort"

	"modsplit/internal/config"
	"modsplit/internal/model"
	"modsplit/internal/report"
)

const stageName = "method"

type GroupKind string

const (
	KindConstructors GroupKind = "constructors"
	KindAccessors    GroupKind = "accessors"
	KindTrait        GroupKind = "trait"
	KindComponent    GroupKind = "component"
	// KindBlock keeps a whole block together (inline types, or when impl
	// splitting is disabled).
	KindBlock GroupKind = "block"
)

// Group is a set of members bound for the same unit.
type Group struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Kind      GroupKind        `json:"kind"`
	TypeName  string           `json:"type_name"`
	Block     int              `json:"block"`
	Trait     string           `json:"trait,omitempty"`
	Members   []model.MemberID `json:"members"`
	Lines     int              `json:"lines"`
	Oversized bool             `json:"oversized,omitempty"`
}

type Analyzer struct {
	cfg *config.Config
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// ClusterAll clusters every block in program order. Blocks of types listed
// in whole are kept as one group each. Group ids follow generation order.
func (a *Analyzer) ClusterAll(p *model.Program, arena *model.Arena, whole map[string]bool) ([]Group, []report.Warning) {
	var groups []Group
	var warnings []report.Warning
	for bi := range p.Blocks {
		var gs []Group
		var ws []report.Warning
		if whole[p.Blocks[bi].TypeName] {
			gs = []Group{a.wholeBlock(p, arena, bi)}
		} else {
			gs, ws = a.Cluster(p, arena, bi)
		}
		for i := range gs {
			gs[i].ID = len(groups)
			groups = append(groups, gs[i])
		}
		warnings = append(warnings, ws...)
	}
	return groups, warnings
}

// Cluster groups one block's members. Returned ids are local (0..n-1).
func (a *Analyzer) Cluster(p *model.Program, arena *model.Arena, block int) ([]Group, []report.Warning) {
	b := &p.Blocks[block]
	ids := arena.ForBlock(block)
	if len(ids) == 0 {
		return nil, nil
	}
	if b.IsTrait() {
		return a.traitGroup(b, arena, block)
	}
	if !a.cfg.Split.SplitImplBlocks {
		return []Group{a.wholeBlock(p, arena, block)}, nil
	}

	limit := a.cfg.Split.MaxImplLines
	cands, warnings := a.candidates(b, arena, ids, limit)
	groups := pack(cands, limit)
	for i := range groups {
		groups[i].ID = i
		groups[i].TypeName = b.TypeName
		groups[i].Block = block
		sort.Slice(groups[i].Members, func(x, y int) bool { return groups[i].Members[x] < groups[i].Members[y] })
	}
	return groups, warnings
}

func (a *Analyzer) wholeBlock(p *model.Program, arena *model.Arena, block int) Group {
	b := &p.Blocks[block]
	ids := arena.ForBlock(block)
	g := Group{
		Name:     "impl",
		Kind:     KindBlock,
		TypeName: b.TypeName,
		Block:    block,
		Trait:    b.Trait,
		Members:  append([]model.MemberID{}, ids...),
		Lines:    sumLines(arena, ids),
	}
	if b.IsTrait() {
		g.Name = traitGroupName(b.TraitName())
	}
	g.Oversized = g.Lines > a.cfg.Split.MaxImplLines
	return g
}

func (a *Analyzer) traitGroup(b *model.BehaviorBlock, arena *model.Arena, block int) ([]Group, []report.Warning) {
	ids := arena.ForBlock(block)
	g := Group{
		Name:     traitGroupName(b.Trait),
		Kind:     KindTrait,
		TypeName: b.TypeName,
		Block:    block,
		Trait:    b.Trait,
		Members:  append([]model.MemberID{}, ids...),
		Lines:    sumLines(arena, ids),
	}
	var warnings []report.Warning
	if g.Lines > a.cfg.Split.MaxImplLines {
		g.Oversized = true
		warnings = append(warnings, report.Warning{
			Code:    report.CodeOversizedTrait,
			Stage:   stageName,
			Subject: b.Trait,
			Message: fmt.Sprintf("impl %s for %s has %d lines, over the %d line limit; trait impls are never split", b.Trait, b.TypeName, g.Lines, a.cfg.Split.MaxImplLines),
		})
	}
	return []Group{g}, warnings
}

// candidate is a set of members that must stay together, before packing.
type candidate struct {
	kind    GroupKind
	name    string
	members []model.MemberID
	lines   int
}

func (a *Analyzer) candidates(b *model.BehaviorBlock, arena *model.Arena, ids []model.MemberID, limit int) ([]candidate, []report.Warning) {
	names := make(map[string]bool, len(ids))
	byName := make(map[string]model.MemberID, len(ids))
	for _, id := range ids {
		n := arena.Member(id).Name
		names[n] = true
		if _, dup := byName[n]; !dup {
			byName[n] = id
		}
	}

	var ctors, accessors, rest []model.MemberID
	for _, id := range ids {
		n := arena.Member(id).Name
		switch {
		case isConstructor(n):
			ctors = append(ctors, id)
		case isAccessor(n, names):
			accessors = append(accessors, id)
		default:
			rest = append(rest, id)
		}
	}

	var cands []candidate
	if len(ctors) > 0 {
		cands = append(cands, candidate{kind: KindConstructors, name: string(KindConstructors), members: ctors})
	}
	if len(accessors) > 0 {
		cands = append(cands, candidate{kind: KindAccessors, name: string(KindAccessors), members: accessors})
	}
	for _, comp := range components(arena, rest, byName) {
		cands = append(cands, candidate{kind: KindComponent, members: comp})
	}

	var out []candidate
	var warnings []report.Warning
	for _, c := range cands {
		for _, chunk := range chunk(arena, c.members, limit) {
			cc := candidate{kind: c.kind, name: c.name, members: chunk, lines: sumLines(arena, chunk)}
			if cc.kind == KindComponent {
				cc.name = componentName(arena.Member(largest(arena, chunk)).Name)
			}
			if len(chunk) == 1 && cc.lines > limit {
				m := arena.Member(chunk[0])
				warnings = append(warnings, report.Warning{
					Code:    report.CodeOversizedMember,
					Stage:   stageName,
					Subject: b.TypeName + "::" + m.Name,
					Message: fmt.Sprintf("%s::%s has %d lines, over the %d line limit; placed in its own group", b.TypeName, m.Name, cc.lines, limit),
				})
			}
			out = append(out, cc)
		}
	}
	return out, warnings
}

// components returns the connected components of the reference graph
// restricted to ids, each in source order, ordered by first member.
func components(arena *model.Arena, ids []model.MemberID, byName map[string]model.MemberID) [][]model.MemberID {
	in := make(map[model.MemberID]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}
	adj := make(map[model.MemberID][]model.MemberID)
	for _, id := range ids {
		for _, ref := range arena.Member(id).References {
			target, ok := byName[ref]
			if !ok || target == id || !in[target] {
				continue
			}
			adj[id] = append(adj[id], target)
			adj[target] = append(adj[target], id)
		}
	}

	seen := make(map[model.MemberID]bool, len(ids))
	var out [][]model.MemberID
	for _, id := range ids {
		if seen[id] {
			continue
		}
		var comp []model.MemberID
		stack := []model.MemberID{id}
		seen[id] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, nb := range adj[cur] {
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		out = append(out, comp)
	}
	return out
}

// chunk splits members in source order into runs that fit under limit. A
// member larger than limit becomes a run of its own.
func chunk(arena *model.Arena, ids []model.MemberID, limit int) [][]model.MemberID {
	if sumLines(arena, ids) <= limit {
		return [][]model.MemberID{ids}
	}
	var out [][]model.MemberID
	var cur []model.MemberID
	size := 0
	for _, id := range ids {
		n := arena.Member(id).Lines()
		if len(cur) > 0 && size+n > limit {
			out = append(out, cur)
			cur, size = nil, 0
		}
		cur = append(cur, id)
		size += n
		if size > limit {
			out = append(out, cur)
			cur, size = nil, 0
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// pack bin-packs candidates in descending size. Each goes to the open group
// with the least accumulated size that can still take it; equal sizes
// prefer the most recently opened group. Oversized candidates get a group
// of their own that accepts nothing else.
func pack(cands []candidate, limit int) []Group {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return cands[order[i]].lines > cands[order[j]].lines })

	var groups []Group
	for _, ci := range order {
		c := cands[ci]
		if c.lines > limit {
			groups = append(groups, Group{Name: c.name, Kind: c.kind, Members: append([]model.MemberID{}, c.members...), Lines: c.lines, Oversized: true})
			continue
		}
		best := -1
		for gi := len(groups) - 1; gi >= 0; gi-- {
			g := &groups[gi]
			if g.Oversized || g.Lines+c.lines > limit {
				continue
			}
			if best < 0 || g.Lines < groups[best].Lines {
				best = gi
			}
		}
		if best < 0 {
			groups = append(groups, Group{Name: c.name, Kind: c.kind, Members: append([]model.MemberID{}, c.members...), Lines: c.lines})
			continue
		}
		groups[best].Members = append(groups[best].Members, c.members...)
		groups[best].Lines += c.lines
	}
	return groups
}

func sumLines(arena *model.Arena, ids []model.MemberID) int {
	total := 0
	for _, id := range ids {
		total += arena.Member(id).Lines()
	}
	return total
}

// largest returns the biggest member, earliest in source order on ties.
func largest(arena *model.Arena, ids []model.MemberID) model.MemberID {
	best := ids[0]
	for _, id := range ids[1:] {
		if arena.Member(id).Lines() > arena.Member(best).Lines() {
			best = id
		}
	}
	return best
}
