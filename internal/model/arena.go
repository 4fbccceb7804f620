package model

import "strings"

// MemberID is a stable index of a member across the whole program, assigned
// in source order.
type MemberID int

type arenaEntry struct {
	block  int
	index  int
	member *Member
}

// Arena gives every member of a program a MemberID so later stages can pass
// ids around instead of member values.
type Arena struct {
	entries []arenaEntry
	byBlock [][]MemberID
}

func NewArena(p *Program) *Arena {
	a := &Arena{byBlock: make([][]MemberID, len(p.Blocks))}
	for bi := range p.Blocks {
		b := &p.Blocks[bi]
		for mi := range b.Members {
			id := MemberID(len(a.entries))
			a.entries = append(a.entries, arenaEntry{block: bi, index: mi, member: &b.Members[mi]})
			a.byBlock[bi] = append(a.byBlock[bi], id)
		}
	}
	return a
}

func (a *Arena) Len() int {
	return len(a.entries)
}

func (a *Arena) Member(id MemberID) *Member {
	return a.entries[id].member
}

// BlockOf returns the index of the block that owns the member.
func (a *Arena) BlockOf(id MemberID) int {
	return a.entries[id].block
}

// IndexInBlock returns the member's position inside its block.
func (a *Arena) IndexInBlock(id MemberID) int {
	return a.entries[id].index
}

// ForBlock returns the ids of a block's members in source order.
func (a *Arena) ForBlock(block int) []MemberID {
	if block < 0 || block >= len(a.byBlock) {
		return nil
	}
	return a.byBlock[block]
}

// GenericNames extracts the parameter names declared by a generics clause
// such as `<'a, K: Hash + Eq, V, const N: usize>`. Lifetimes keep their
// leading quote.
func GenericNames(generics string) []string {
	g := strings.TrimSpace(generics)
	g = strings.TrimPrefix(g, "<")
	g = strings.TrimSuffix(g, ">")
	var out []string
	for _, part := range splitTopLevel(g) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "const ")
		if part == "" {
			continue
		}
		end := strings.IndexAny(part, ":= ")
		if end >= 0 {
			part = part[:end]
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitTopLevel splits on commas that are not nested in brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>':
			if i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
