package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedProgram marks a program model that lacks structural
// information the pipeline needs. It is always fatal.
var ErrMalformedProgram = errors.New("malformed program model")

// Span is a 1-based inclusive line range in the original file.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Lines returns the number of lines covered, or 0 for an unset span.
func (s Span) Lines() int {
	if s.StartLine <= 0 || s.EndLine < s.StartLine {
		return 0
	}
	return s.EndLine - s.StartLine + 1
}

// VisSite locates a visibility modifier inside a declaration's Source.
// Offset is where the declaration proper starts, after its docs and
// attributes; Len covers the modifier and the blanks that follow it, and is
// 0 for private declarations. A negative Offset means the declaration has
// no usable source position.
type VisSite struct {
	Offset int `json:"offset"`
	Len    int `json:"len"`
}

// NoSite is the site of declarations built without source text.
var NoSite = VisSite{Offset: -1}

// Known reports whether the site can be used to rewrite source.
func (s VisSite) Known() bool {
	return s.Offset >= 0
}

// Rewrite replaces the modifier at the site with keyword, which may be
// empty for private.
func (s VisSite) Rewrite(source, keyword string) string {
	if !s.Known() || s.Offset+s.Len > len(source) {
		return source
	}
	repl := ""
	if keyword != "" {
		repl = keyword + " "
	}
	return source[:s.Offset] + repl + source[s.Offset+s.Len:]
}

type TypeKind string

const (
	KindStruct TypeKind = "struct"
	KindEnum   TypeKind = "enum"
	KindUnion  TypeKind = "union"
)

type Field struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Visibility Visibility `json:"visibility"`
	Doc        string     `json:"doc,omitempty"`
	// Site is relative to the owning TypeDecl's Source.
	Site       VisSite    `json:"site"`
}

// TypeDecl is a struct or enum declaration.
type TypeDecl struct {
	Name       string     `json:"name"`
	Kind       TypeKind   `json:"kind"`
	Generics   string     `json:"generics,omitempty"`
	Where      string     `json:"where,omitempty"`
	Fields     []Field    `json:"fields,omitempty"`
	Tuple      bool       `json:"tuple,omitempty"`
	Variants   []string   `json:"variants,omitempty"`
	Visibility Visibility `json:"visibility"`
	Attributes []string   `json:"attributes,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	Span       Span       `json:"span"`
	Source     string     `json:"source,omitempty"`
	Site       VisSite    `json:"site"`
	References []string   `json:"references,omitempty"`
}

type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Signature struct {
	Receiver string  `json:"receiver,omitempty"`
	Params   []Param `json:"params,omitempty"`
	Returns  string  `json:"returns,omitempty"`
	Generics string  `json:"generics,omitempty"`
	Where    string  `json:"where,omitempty"`
}

// TypeExprs lists every type expression the signature mentions.
func (s Signature) TypeExprs() []string {
	var out []string
	for _, p := range s.Params {
		if p.Type != "" {
			out = append(out, p.Type)
		}
	}
	for _, e := range []string{s.Returns, s.Generics, s.Where} {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

type MemberKind string

const (
	MemberMethod MemberKind = "method"
	MemberConst  MemberKind = "const"
	MemberType   MemberKind = "type"
)

// Member is one item inside a behavior block. References holds the
// candidate identifiers found by a name scan of its source.
type Member struct {
	Name       string     `json:"name"`
	Kind       MemberKind `json:"kind"`
	Signature  Signature  `json:"signature"`
	Visibility Visibility `json:"visibility"`
	Doc        string     `json:"doc,omitempty"`
	Span       Span       `json:"span"`
	Source     string     `json:"source,omitempty"`
	Site       VisSite    `json:"site"`
	References []string   `json:"references,omitempty"`
}

// Lines is the size used for grouping. It never returns less than 1.
func (m *Member) Lines() int {
	if n := m.Span.Lines(); n > 0 {
		return n
	}
	if m.Source != "" {
		return strings.Count(strings.TrimRight(m.Source, "\n"), "\n") + 1
	}
	return 1
}

// BehaviorBlock is an impl block attached to one type, inherent when Trait
// is empty.
type BehaviorBlock struct {
	TypeName   string   `json:"type_name"`
	SelfType   string   `json:"self_type"`
	Trait      string   `json:"trait,omitempty"`
	Generics   string   `json:"generics,omitempty"`
	Where      string   `json:"where,omitempty"`
	Unsafe     bool     `json:"unsafe,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Doc        string   `json:"doc,omitempty"`
	// Header is the source text from the block's docs up to and including
	// the opening brace.
	Header     string   `json:"header,omitempty"`
	Span       Span     `json:"span"`
	Members    []Member `json:"members"`
}

func (b *BehaviorBlock) IsTrait() bool {
	return b.Trait != ""
}

// TraitName is the trait path without generic arguments.
func (b *BehaviorBlock) TraitName() string {
	t := b.Trait
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Lines is the block size: its span when known, otherwise the member total
// plus the header and closing lines.
func (b *BehaviorBlock) Lines() int {
	if n := b.Span.Lines(); n > 0 {
		return n
	}
	total := 2
	for i := range b.Members {
		total += b.Members[i].Lines()
	}
	return total
}

type FunctionKind string

const (
	FuncFn     FunctionKind = "fn"
	FuncConst  FunctionKind = "const"
	FuncStatic FunctionKind = "static"
	FuncTrait  FunctionKind = "trait"
	FuncItem   FunctionKind = "item"
)

// FunctionDecl is a free item. Kind fn is a free function; other kinds are
// carried verbatim.
type FunctionDecl struct {
	Name       string       `json:"name"`
	Kind       FunctionKind `json:"kind"`
	Signature  Signature    `json:"signature"`
	Visibility Visibility   `json:"visibility"`
	Doc        string       `json:"doc,omitempty"`
	Span       Span         `json:"span"`
	Source     string       `json:"source,omitempty"`
	Site       VisSite      `json:"site"`
	References []string     `json:"references,omitempty"`
}

// Program is the model of one input file.
type Program struct {
	Path       string          `json:"path"`
	SourceHash string          `json:"source_hash,omitempty"`
	ModuleDoc  string          `json:"module_doc,omitempty"`
	Types      []TypeDecl      `json:"types"`
	Blocks     []BehaviorBlock `json:"blocks"`
	Functions  []FunctionDecl  `json:"functions,omitempty"`
	Aliases    []Alias         `json:"aliases,omitempty"`
	Imports    []Import        `json:"imports,omitempty"`
}

// Validate reports structural problems that make the model unusable.
func (p *Program) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil program", ErrMalformedProgram)
	}
	declared := make(map[string]bool, len(p.Types))
	for _, t := range p.Types {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: type declaration without a name", ErrMalformedProgram)
		}
		if declared[t.Name] {
			return fmt.Errorf("%w: type %q declared twice", ErrMalformedProgram, t.Name)
		}
		declared[t.Name] = true
	}
	for i, b := range p.Blocks {
		if !declared[b.TypeName] {
			return fmt.Errorf("%w: behavior block %d references undeclared type %q", ErrMalformedProgram, i, b.TypeName)
		}
		for j, m := range b.Members {
			if strings.TrimSpace(m.Name) == "" {
				return fmt.Errorf("%w: member %d of %s block has no name", ErrMalformedProgram, j, b.TypeName)
			}
		}
	}
	for _, f := range p.Functions {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: free item without a name", ErrMalformedProgram)
		}
	}
	return nil
}

func (p *Program) TypeByName(name string) (*TypeDecl, bool) {
	for i := range p.Types {
		if p.Types[i].Name == name {
			return &p.Types[i], true
		}
	}
	return nil, false
}

// BlocksFor returns the indexes of the blocks attached to a type, in source
// order.
func (p *Program) BlocksFor(typeName string) []int {
	var out []int
	for i := range p.Blocks {
		if p.Blocks[i].TypeName == typeName {
			out = append(out, i)
		}
	}
	return out
}

// TypeLines is the size of a type declaration alone.
func (p *Program) TypeLines(typeName string) int {
	t, ok := p.TypeByName(typeName)
	if !ok {
		return 0
	}
	if n := t.Span.Lines(); n > 0 {
		return n
	}
	if t.Source != "" {
		return strings.Count(strings.TrimRight(t.Source, "\n"), "\n") + 1
	}
	return len(t.Fields) + len(t.Variants) + 2
}

// BehaviorLines is the total size of every block attached to a type.
func (p *Program) BehaviorLines(typeName string) int {
	total := 0
	for _, i := range p.BlocksFor(typeName) {
		total += p.Blocks[i].Lines()
	}
	return total
}

func (p *Program) AliasTable() *TypeAliasTable {
	return NewTypeAliasTable(p.Aliases)
}

func (p *Program) ImportTable() *ImportTable {
	return NewImportTable(p.Imports)
}

// FreeItemNames returns the names of free items and aliases in source order.
func (p *Program) FreeItemNames() []string {
	out := make([]string, 0, len(p.Functions)+len(p.Aliases))
	for _, f := range p.Functions {
		out = append(out, f.Name)
	}
	for _, a := range p.Aliases {
		out = append(out, a.Name)
	}
	return out
}
