// Package refscan finds the names a piece of source mentions. It is a name
// scan, not a resolver: callers get candidate identifiers and decide what
// they mean.
package refscan

import (
	"context"
	"sort"
	"strings"

	"modsplit/internal/model"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// Scanner returns the sorted, deduplicated identifiers found in source.
type Scanner interface {
	Identifiers(source string) []string
}

var identNodeTypes = map[string]bool{
	"identifier":       true,
	"type_identifier":  true,
	"field_identifier": true,
}

// Collect walks a syntax subtree and gathers identifier leaves. Segments
// after a `::` are kept only when model.AssociatedItem accepts them, so
// `fmt::Result` yields fmt, `Cache::hash_key` yields Cache and hash_key,
// and `Status::Active` yields Status.
func Collect(node *sitter.Node, src []byte) []string {
	if node == nil {
		return nil
	}
	seen := make(map[string]bool)
	stack := []*sitter.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if identNodeTypes[n.Type()] {
			name := n.Content(src)
			if name != "" && !IsKeyword(name) && !qualified(n, src) {
				seen[name] = true
			}
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	return sortedSet(seen)
}

func qualified(n *sitter.Node, src []byte) bool {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "::" {
		return false
	}
	root := pathTail(prev.PrevSibling())
	if root == nil {
		return true
	}
	return !model.AssociatedItem(root.Content(src), n.Content(src))
}

// pathTail returns the last segment of a path node: `a::B` gives B and
// `Vec::<u8>` gives Vec.
func pathTail(n *sitter.Node) *sitter.Node {
	for n != nil {
		var next *sitter.Node
		switch n.Type() {
		case "scoped_identifier", "scoped_type_identifier":
			next = n.ChildByFieldName("name")
		case "generic_type", "generic_type_with_turbofish":
			next = n.ChildByFieldName("type")
		default:
			return n
		}
		if next == nil {
			return n
		}
		n = next
	}
	return nil
}

// TreeSitter scans snippets by parsing them as the body of an impl block.
type TreeSitter struct {
	fallback Scanner
}

func NewTreeSitter() *TreeSitter {
	return &TreeSitter{fallback: Lexical{}}
}

const wrapHead = "impl __Scan {\n"

func (s *TreeSitter) Identifiers(source string) []string {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	wrapped := []byte(wrapHead + source + "\n}\n")
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, wrapped)
	if err != nil || tree == nil {
		return s.fallback.Identifiers(source)
	}
	ids := Collect(tree.RootNode(), wrapped)
	out := ids[:0]
	for _, id := range ids {
		if id != "__Scan" {
			out = append(out, id)
		}
	}
	return out
}

// Lexical splits source into identifier tokens after blanking comments and
// string literals.
type Lexical struct{}

func (Lexical) Identifiers(source string) []string {
	seen := make(map[string]bool)
	for _, id := range model.RootIdents(stripLiterals(source)) {
		if !IsKeyword(id) {
			seen[id] = true
		}
	}
	return sortedSet(seen)
}

func stripLiterals(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
			b.WriteByte(' ')
		case c == '"':
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			b.WriteByte(' ')
		case c == '\'' && i+2 < len(src) && (src[i+2] == '\'' || src[i+1] == '\\'):
			// char literal; lifetimes have no closing quote
			i++
			for i < len(src) && src[i] != '\'' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
