package extractor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"modsplit/internal/model"
	"modsplit/internal/refscan"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// RustExtractor implements LanguageExtractor for Rust.
type RustExtractor struct{}

func NewRustExtractor() *RustExtractor {
	return &RustExtractor{}
}

func (r *RustExtractor) GetLanguage() *sitter.Language {
	return rust.GetLanguage()
}

// decor collects the comments and attributes seen since the previous item.
// They travel with the next item.
type decor struct {
	start *sitter.Node
	docs  []string
	attrs []string
}

func (d *decor) add(n *sitter.Node) {
	if d.start == nil {
		d.start = n
	}
}

func (d *decor) reset() {
	*d = decor{}
}

func (d *decor) from(n *sitter.Node) *sitter.Node {
	if d.start != nil {
		return d.start
	}
	return n
}

// header is what every top-level item and member shares.
type header struct {
	base   uint32
	source string
	span   model.Span
	doc    string
	attrs  []string
	vis    model.Visibility
	site   model.VisSite
}

type rustFile struct {
	src     []byte
	prog    *model.Program
	impls   []model.BehaviorBlock
	sources []string
	nodes   []*sitter.Node
}

// Extract walks the top-level items of the file. Comments and attributes
// are attached to the item that follows them; inner docs and inner
// attributes become the module doc.
func (r *RustExtractor) Extract(root *sitter.Node, sourceCode []byte, filepath string) (*model.Program, error) {
	x := &rustFile{src: sourceCode, prog: &model.Program{Path: filepath}}

	var d decor
	var moduleDoc []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "line_comment", "block_comment":
			text := strings.TrimRight(n.Content(sourceCode), "\r\n")
			if isInnerDoc(text) {
				moduleDoc = append(moduleDoc, text)
				continue
			}
			d.add(n)
			if doc, ok := outerDoc(text); ok {
				d.docs = append(d.docs, doc)
			}
		case "inner_attribute_item":
			moduleDoc = append(moduleDoc, n.Content(sourceCode))
		case "attribute_item":
			d.add(n)
			d.attrs = append(d.attrs, n.Content(sourceCode))
		case "use_declaration":
			x.prog.Imports = append(x.prog.Imports, x.useTree(n.ChildByFieldName("argument"), "")...)
			d.reset()
		case "empty_statement":
		default:
			if err := x.item(n, &d); err != nil {
				return nil, err
			}
			d.reset()
		}
	}
	if len(moduleDoc) > 0 {
		x.prog.ModuleDoc = strings.Join(moduleDoc, "\n") + "\n"
	}
	x.attachImpls()
	return x.prog, nil
}

func (x *rustFile) item(n *sitter.Node, d *decor) error {
	h := x.header(n, d)
	switch n.Type() {
	case "struct_item", "union_item", "enum_item":
		x.prog.Types = append(x.prog.Types, x.typeDecl(n, h))
	case "impl_item":
		b, err := x.implBlock(n, h)
		if err != nil {
			return err
		}
		x.impls = append(x.impls, b)
		x.sources = append(x.sources, h.source)
		x.nodes = append(x.nodes, n)
	case "type_item":
		x.prog.Aliases = append(x.prog.Aliases, model.Alias{
			Name:       x.text(n.ChildByFieldName("name")),
			Target:     x.text(n.ChildByFieldName("type")),
			Generics:   x.text(n.ChildByFieldName("type_parameters")),
			Visibility: h.vis,
			Doc:        h.doc,
			Span:       h.span,
			Source:     h.source,
			Site:       h.site,
		})
	default:
		x.prog.Functions = append(x.prog.Functions, x.freeItem(n, h))
	}
	return nil
}

func (x *rustFile) header(n *sitter.Node, d *decor) header {
	start := d.from(n)
	base := x.lineStart(start.StartByte())
	h := header{
		base:   base,
		source: string(x.src[base:n.EndByte()]),
		span: model.Span{
			StartLine: int(start.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
		},
		doc:   strings.Join(d.docs, "\n"),
		attrs: d.attrs,
	}
	h.vis, h.site = x.visibility(n, base)
	return h
}

func (x *rustFile) typeDecl(n *sitter.Node, h header) model.TypeDecl {
	t := model.TypeDecl{
		Name:       x.text(n.ChildByFieldName("name")),
		Kind:       model.KindStruct,
		Generics:   x.text(n.ChildByFieldName("type_parameters")),
		Where:      x.whereOf(n),
		Visibility: h.vis,
		Attributes: h.attrs,
		Doc:        h.doc,
		Span:       h.span,
		Source:     h.source,
		Site:       h.site,
	}
	switch n.Type() {
	case "enum_item":
		t.Kind = model.KindEnum
	case "union_item":
		t.Kind = model.KindUnion
	}

	if body := n.ChildByFieldName("body"); body != nil {
		switch body.Type() {
		case "field_declaration_list":
			t.Fields = x.fields(body, h.base)
		case "ordered_field_declaration_list":
			t.Tuple = true
			t.Fields = x.tupleFields(body, h.base)
		case "enum_variant_list":
			for i := 0; i < int(body.NamedChildCount()); i++ {
				v := body.NamedChild(i)
				if v.Type() == "enum_variant" {
					t.Variants = append(t.Variants, x.text(v.ChildByFieldName("name")))
				}
			}
		}
	}
	t.References = refscan.Collect(n, x.src)
	return t
}

func (x *rustFile) fields(list *sitter.Node, base uint32) []model.Field {
	var out []model.Field
	var docs []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Type() {
		case "line_comment", "block_comment":
			if doc, ok := outerDoc(strings.TrimRight(c.Content(x.src), "\r\n")); ok {
				docs = append(docs, doc)
			}
		case "field_declaration":
			vis, site := x.visibility(c, base)
			out = append(out, model.Field{
				Name:       x.text(c.ChildByFieldName("name")),
				Type:       x.text(c.ChildByFieldName("type")),
				Visibility: vis,
				Doc:        strings.Join(docs, "\n"),
				Site:       site,
			})
			docs = nil
		}
	}
	return out
}

// tupleFields names positional fields by index.
func (x *rustFile) tupleFields(list *sitter.Node, base uint32) []model.Field {
	var out []model.Field
	var vm *sitter.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Type() {
		case "visibility_modifier":
			vm = c
		case "attribute_item", "line_comment", "block_comment":
		default:
			f := model.Field{Name: strconv.Itoa(len(out)), Type: x.text(c)}
			if vm != nil {
				f.Visibility = model.ParseVisibility(vm.Content(x.src))
				f.Site = x.siteOf(vm, base)
			} else {
				f.Site = model.VisSite{Offset: int(c.StartByte() - base)}
			}
			out = append(out, f)
			vm = nil
		}
	}
	return out
}

func (x *rustFile) implBlock(n *sitter.Node, h header) (model.BehaviorBlock, error) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return model.BehaviorBlock{}, fmt.Errorf("%w: impl without a type at line %d", ErrSyntax, h.span.StartLine)
	}
	b := model.BehaviorBlock{
		TypeName:   selfTypeName(typeNode, x.src),
		SelfType:   x.text(typeNode),
		Trait:      x.text(n.ChildByFieldName("trait")),
		Generics:   x.text(n.ChildByFieldName("type_parameters")),
		Where:      x.whereOf(n),
		Attributes: h.attrs,
		Doc:        h.doc,
		Span:       h.span,
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "unsafe":
			b.Unsafe = true
		case "!":
			b.Trait = "!" + b.Trait
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		b.Header = h.source
		return b, nil
	}
	b.Header = string(x.src[h.base : body.StartByte()+1])
	b.Members = x.members(body)
	return b, nil
}

func (x *rustFile) members(body *sitter.Node) []model.Member {
	var out []model.Member
	var d decor
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "line_comment", "block_comment":
			d.add(n)
			if doc, ok := outerDoc(strings.TrimRight(n.Content(x.src), "\r\n")); ok {
				d.docs = append(d.docs, doc)
			}
			continue
		case "attribute_item":
			d.add(n)
			d.attrs = append(d.attrs, n.Content(x.src))
			continue
		case "empty_statement":
			continue
		}

		h := x.header(n, &d)
		m := model.Member{
			Visibility: h.vis,
			Doc:        h.doc,
			Span:       h.span,
			Source:     h.source,
			Site:       h.site,
		}
		switch n.Type() {
		case "function_item":
			m.Name = x.text(n.ChildByFieldName("name"))
			m.Kind = model.MemberMethod
			m.Signature = x.signature(n)
		case "const_item":
			m.Name = x.text(n.ChildByFieldName("name"))
			m.Kind = model.MemberConst
			m.Signature = model.Signature{Returns: x.text(n.ChildByFieldName("type"))}
		case "type_item", "associated_type":
			m.Name = x.text(n.ChildByFieldName("name"))
			m.Kind = model.MemberType
		case "macro_invocation":
			m.Name = fmt.Sprintf("%s!#%d", x.text(n.ChildByFieldName("macro")), len(out))
			m.Kind = model.MemberMethod
			m.Site = model.NoSite
		default:
			m.Name = fmt.Sprintf("%s#%d", n.Type(), len(out))
			m.Kind = model.MemberMethod
			m.Site = model.NoSite
		}
		m.References = refscan.Collect(n, x.src)
		out = append(out, m)
		d.reset()
	}
	return out
}

func (x *rustFile) freeItem(n *sitter.Node, h header) model.FunctionDecl {
	f := model.FunctionDecl{
		Name:       x.text(n.ChildByFieldName("name")),
		Kind:       model.FuncItem,
		Visibility: h.vis,
		Doc:        h.doc,
		Span:       h.span,
		Source:     h.source,
		Site:       h.site,
	}
	switch n.Type() {
	case "function_item":
		f.Kind = model.FuncFn
		f.Signature = x.signature(n)
	case "const_item":
		f.Kind = model.FuncConst
		f.Signature = model.Signature{Returns: x.text(n.ChildByFieldName("type"))}
	case "static_item":
		f.Kind = model.FuncStatic
		f.Signature = model.Signature{Returns: x.text(n.ChildByFieldName("type"))}
	case "trait_item":
		f.Kind = model.FuncTrait
		f.Signature = model.Signature{Generics: x.text(n.ChildByFieldName("type_parameters")), Where: x.whereOf(n)}
	case "macro_invocation":
		f.Name = x.text(n.ChildByFieldName("macro")) + "!"
		f.Site = model.NoSite
	case "macro_definition", "foreign_mod_item":
		f.Site = model.NoSite
	}
	if f.Name == "" {
		f.Name = fmt.Sprintf("%s@%d", n.Type(), h.span.StartLine)
	}
	f.References = refscan.Collect(n, x.src)
	return f
}

// attachImpls keeps impl blocks whose self type is declared in the file.
// The rest (blanket impls, impls for foreign types) move verbatim as free
// items.
func (x *rustFile) attachImpls() {
	declared := make(map[string]bool, len(x.prog.Types))
	for _, t := range x.prog.Types {
		declared[t.Name] = true
	}
	moved := false
	for i, b := range x.impls {
		if declared[b.TypeName] {
			x.prog.Blocks = append(x.prog.Blocks, b)
			continue
		}
		name := "impl " + b.SelfType
		if b.Trait != "" {
			name = "impl " + b.Trait + " for " + b.SelfType
		}
		x.prog.Functions = append(x.prog.Functions, model.FunctionDecl{
			Name:       name,
			Kind:       model.FuncItem,
			Doc:        b.Doc,
			Span:       b.Span,
			Source:     x.sources[i],
			Site:       model.NoSite,
			References: refscan.Collect(x.nodes[i], x.src),
		})
		moved = true
	}
	if moved {
		sort.SliceStable(x.prog.Functions, func(i, j int) bool {
			return x.prog.Functions[i].Span.StartLine < x.prog.Functions[j].Span.StartLine
		})
	}
	x.impls, x.sources, x.nodes = nil, nil, nil
}

func (x *rustFile) signature(n *sitter.Node) model.Signature {
	s := model.Signature{
		Returns:  x.text(n.ChildByFieldName("return_type")),
		Generics: x.text(n.ChildByFieldName("type_parameters")),
		Where:    x.whereOf(n),
	}
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return s
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "self_parameter":
			s.Receiver = p.Content(x.src)
		case "parameter":
			s.Params = append(s.Params, model.Param{
				Name: x.text(p.ChildByFieldName("pattern")),
				Type: x.text(p.ChildByFieldName("type")),
			})
		}
	}
	return s
}

// useTree flattens a use tree into one import per leaf.
func (x *rustFile) useTree(n *sitter.Node, prefix string) []model.Import {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "use_list":
		var out []model.Import
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out = append(out, x.useTree(n.NamedChild(i), prefix)...)
		}
		return out
	case "scoped_use_list":
		return x.useTree(n.ChildByFieldName("list"), joinPath(prefix, x.path(n.ChildByFieldName("path"))))
	case "use_as_clause":
		imps := x.useTree(n.ChildByFieldName("path"), prefix)
		if len(imps) == 1 {
			imps[0].Alias = x.text(n.ChildByFieldName("alias"))
		}
		return imps
	case "use_wildcard":
		p := strings.TrimSuffix(strings.TrimSuffix(x.path(n), "*"), "::")
		return []model.Import{{Path: joinPath(prefix, p), Name: "*", Glob: true}}
	case "line_comment", "block_comment":
		return nil
	default:
		return []model.Import{splitImport(joinPath(prefix, x.path(n)))}
	}
}

func splitImport(full string) model.Import {
	i := strings.LastIndex(full, "::")
	if i < 0 {
		return model.Import{Name: full}
	}
	path, name := full[:i], full[i+2:]
	if name == "self" {
		return splitImport(path)
	}
	return model.Import{Path: path, Name: name}
}

func joinPath(prefix, p string) string {
	switch {
	case prefix == "":
		return p
	case p == "":
		return prefix
	}
	return prefix + "::" + p
}

func (x *rustFile) visibility(n *sitter.Node, base uint32) (model.Visibility, model.VisSite) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "visibility_modifier" {
			return model.ParseVisibility(c.Content(x.src)), x.siteOf(c, base)
		}
	}
	return model.VisPrivate, model.VisSite{Offset: int(n.StartByte() - base)}
}

func (x *rustFile) siteOf(vm *sitter.Node, base uint32) model.VisSite {
	end := vm.EndByte()
	for int(end) < len(x.src) && (x.src[end] == ' ' || x.src[end] == '\t') {
		end++
	}
	return model.VisSite{Offset: int(vm.StartByte() - base), Len: int(end - vm.StartByte())}
}

// lineStart moves b back over indentation when nothing else precedes it on
// its line.
func (x *rustFile) lineStart(b uint32) uint32 {
	i := b
	for i > 0 && (x.src[i-1] == ' ' || x.src[i-1] == '\t') {
		i--
	}
	if i == 0 || x.src[i-1] == '\n' {
		return i
	}
	return b
}

func (x *rustFile) whereOf(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "where_clause" {
			return c.Content(x.src)
		}
	}
	return ""
}

func (x *rustFile) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(x.src)
}

func (x *rustFile) path(n *sitter.Node) string {
	return strings.Join(strings.Fields(x.text(n)), "")
}

// selfTypeName reduces an impl target such as `Cache<K, V>`, `&'a Cache`
// or `crate::Cache` to the bare type name.
func selfTypeName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "generic_type", "reference_type", "pointer_type":
		if inner := n.ChildByFieldName("type"); inner != nil {
			return selfTypeName(inner, src)
		}
	case "scoped_type_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return model.HeadIdent(n.Content(src))
}

func isInnerDoc(text string) bool {
	return strings.HasPrefix(text, "//!") || strings.HasPrefix(text, "/*!")
}

func outerDoc(text string) (string, bool) {
	switch {
	case strings.HasPrefix(text, "////"):
		return "", false
	case strings.HasPrefix(text, "///"):
		return strings.TrimPrefix(text[3:], " "), true
	case strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/***"):
		return strings.TrimSpace(strings.TrimSuffix(text[3:], "*/")), true
	}
	return "", false
}
