// Package render turns assembled units into file contents and writes them
// out.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modsplit/internal/config"
	"modsplit/internal/model"
	"modsplit/internal/scope"
	"modsplit/internal/unit"
)

// File is one rendered unit. Path is relative to the output directory.
type File struct {
	Unit    string `json:"unit"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Lines counts the lines of the rendered content.
func (f File) Lines() int {
	if f.Content == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(f.Content, "\n"), "\n") + 1
}

type Renderer struct {
	p     *model.Program
	arena *model.Arena
	ann   *scope.Annotations
	cfg   *config.Config
}

func New(p *model.Program, arena *model.Arena, ann *scope.Annotations, cfg *config.Config) *Renderer {
	if arena == nil {
		arena = model.NewArena(p)
	}
	if ann == nil {
		ann = &scope.Annotations{}
	}
	return &Renderer{p: p, arena: arena, ann: ann, cfg: cfg}
}

// All renders every unit in order.
func (r *Renderer) All(units []*unit.GeneratedUnit) []File {
	out := make([]File, 0, len(units))
	for _, u := range units {
		out = append(out, r.Unit(u))
	}
	return out
}

// Unit renders one unit: doc header, module declarations, re-exports,
// imports and items, each section separated by a blank line.
func (r *Renderer) Unit(u *unit.GeneratedUnit) File {
	var sections []string
	if doc := strings.TrimRight(u.Doc, "\n"); doc != "" {
		sections = append(sections, doc)
	}
	if len(u.Submodules) > 0 {
		mods := make([]string, 0, len(u.Submodules))
		for _, m := range u.Submodules {
			mods = append(mods, "mod "+m+";")
		}
		sections = append(sections, strings.Join(mods, "\n"))
	}
	if len(u.ReExports) > 0 {
		sections = append(sections, importLines(u.ReExports))
	}
	if len(u.Imports) > 0 {
		sections = append(sections, importLines(u.Imports))
	}
	for _, it := range u.Items {
		text := r.item(u, it)
		if text == "" {
			continue
		}
		sections = append(sections, r.substitute(u, text))
	}
	return File{
		Unit:    u.ModulePath(),
		Path:    u.Path,
		Content: strings.Join(sections, "\n\n") + "\n",
	}
}

func importLines(imps []unit.Import) string {
	lines := make([]string, 0, len(imps))
	for _, imp := range imps {
		lines = append(lines, imp.String())
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) item(u *unit.GeneratedUnit, it unit.Item) string {
	var text string
	switch it.Kind {
	case unit.ItemType:
		t, ok := r.p.TypeByName(it.TypeName)
		if !ok {
			return ""
		}
		text = r.typeDecl(t, u.Depth)
	case unit.ItemImpl:
		text = r.impl(it, u.Depth)
	case unit.ItemFunction:
		if it.Function < 0 || it.Function >= len(r.p.Functions) {
			return ""
		}
		text = r.function(it.Function, u.Depth)
	case unit.ItemAlias:
		text = r.alias(it.Alias, u.Depth)
	}
	if !r.cfg.Output.PreserveComments {
		text = stripComments(text)
	}
	return strings.TrimRight(text, "\n")
}

// substitute expands private aliases that were not carried over as imports.
func (r *Renderer) substitute(u *unit.GeneratedUnit, text string) string {
	if len(u.Substitutions) == 0 {
		return text
	}
	names := make([]string, 0, len(u.Substitutions))
	for n := range u.Substitutions {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		text = model.ReplaceIdent(text, n, u.Substitutions[n])
	}
	return text
}

// rewrite reports whether the declared modifier must change: widened
// symbols always do, and parent-relative levels depend on the depth.
func rewrite(original, inferred model.Visibility) bool {
	if original != inferred {
		return true
	}
	return inferred == model.VisParent || inferred == model.VisOuter
}

type edit struct {
	site model.VisSite
	kw   string
}

// applyEdits rewrites modifiers from the end of the text so earlier
// offsets stay valid.
func applyEdits(source string, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].site.Offset > edits[j].site.Offset })
	for _, e := range edits {
		source = e.site.Rewrite(source, e.kw)
	}
	return source
}

func (r *Renderer) typeDecl(t *model.TypeDecl, depth int) string {
	vis := visOr(r.ann.Types, t.Name, t.Visibility)
	if t.Source == "" {
		return r.synthType(t, vis, depth)
	}
	var edits []edit
	if rewrite(t.Visibility, vis) {
		edits = append(edits, edit{t.Site, vis.Keyword(depth)})
	}
	if t.Kind != model.KindEnum {
		for _, f := range t.Fields {
			fv := r.ann.Field(t.Name, f)
			if rewrite(f.Visibility, fv) {
				edits = append(edits, edit{f.Site, fv.Keyword(depth)})
			}
		}
	}
	return applyEdits(t.Source, edits)
}

func (r *Renderer) synthType(t *model.TypeDecl, vis model.Visibility, depth int) string {
	var b strings.Builder
	writeDoc(&b, "", t.Doc)
	for _, a := range t.Attributes {
		b.WriteString(a + "\n")
	}
	b.WriteString(prefix(vis.Keyword(depth)))
	kind := t.Kind
	if kind == "" {
		kind = model.KindStruct
	}
	b.WriteString(fmt.Sprintf("%s %s%s", kind, t.Name, t.Generics))

	switch {
	case kind == model.KindEnum:
		b.WriteString(where(t.Where) + " {\n")
		for _, v := range t.Variants {
			b.WriteString("    " + v + ",\n")
		}
		b.WriteString("}")
	case t.Tuple:
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, prefix(r.ann.Field(t.Name, f).Keyword(depth))+f.Type)
		}
		b.WriteString("(" + strings.Join(parts, ", ") + ")" + where(t.Where) + ";")
	case len(t.Fields) == 0:
		b.WriteString(where(t.Where) + ";")
	default:
		b.WriteString(where(t.Where) + " {\n")
		for _, f := range t.Fields {
			writeDoc(&b, "    ", f.Doc)
			b.WriteString(fmt.Sprintf("    %s%s: %s,\n", prefix(r.ann.Field(t.Name, f).Keyword(depth)), f.Name, f.Type))
		}
		b.WriteString("}")
	}
	return b.String()
}

// impl renders the selected members of one block under a copy of its
// header.
func (r *Renderer) impl(it unit.Item, depth int) string {
	if it.Block < 0 || it.Block >= len(r.p.Blocks) {
		return ""
	}
	blk := &r.p.Blocks[it.Block]
	header := blk.Header
	if header == "" {
		header = synthHeader(blk)
	}
	if len(it.Members) == 0 {
		return header + "}"
	}

	parts := make([]string, 0, len(it.Members))
	for _, id := range it.Members {
		m := r.arena.Member(id)
		parts = append(parts, r.member(id, m, blk.IsTrait(), depth))
	}
	return header + "\n" + strings.Join(parts, "\n\n") + "\n}"
}

func (r *Renderer) member(id model.MemberID, m *model.Member, inTrait bool, depth int) string {
	if m.Source == "" {
		return fmt.Sprintf("    // %s %s: source unavailable", m.Kind, m.Name)
	}
	text := strings.TrimRight(m.Source, "\n")
	if inTrait || !m.Site.Known() {
		return text
	}
	vis := m.Visibility
	if v, ok := r.ann.Members[id]; ok {
		vis = v
	}
	if rewrite(m.Visibility, vis) {
		text = m.Site.Rewrite(text, vis.Keyword(depth))
	}
	return text
}

func synthHeader(b *model.BehaviorBlock) string {
	var sb strings.Builder
	writeDoc(&sb, "", b.Doc)
	for _, a := range b.Attributes {
		sb.WriteString(a + "\n")
	}
	if b.Unsafe {
		sb.WriteString("unsafe ")
	}
	sb.WriteString("impl" + b.Generics + " ")
	if b.Trait != "" {
		sb.WriteString(b.Trait + " for ")
	}
	self := b.SelfType
	if self == "" {
		self = b.TypeName
	}
	sb.WriteString(self + where(b.Where) + " {")
	return sb.String()
}

func (r *Renderer) function(i, depth int) string {
	f := &r.p.Functions[i]
	if f.Source == "" {
		return fmt.Sprintf("// %s %s: source unavailable", f.Kind, f.Name)
	}
	vis := visOr(r.ann.Functions, i, f.Visibility)
	if f.Site.Known() && rewrite(f.Visibility, vis) {
		return f.Site.Rewrite(f.Source, vis.Keyword(depth))
	}
	return f.Source
}

func (r *Renderer) alias(name string, depth int) string {
	a, ok := r.p.AliasTable().Lookup(name)
	if !ok {
		return ""
	}
	vis := visOr(r.ann.Aliases, name, a.Visibility)
	if a.Source == "" {
		var b strings.Builder
		writeDoc(&b, "", a.Doc)
		b.WriteString(fmt.Sprintf("%stype %s%s = %s;", prefix(vis.Keyword(depth)), a.Name, a.Generics, a.Target))
		return b.String()
	}
	if a.Site.Known() && rewrite(a.Visibility, vis) {
		return a.Site.Rewrite(a.Source, vis.Keyword(depth))
	}
	return a.Source
}

func visOr[K comparable](m map[K]model.Visibility, key K, fallback model.Visibility) model.Visibility {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func prefix(kw string) string {
	if kw == "" {
		return ""
	}
	return kw + " "
}

func where(clause string) string {
	if clause == "" {
		return ""
	}
	return " " + clause
}

func writeDoc(b *strings.Builder, indent, doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		b.WriteString(strings.TrimRight(indent+"/// "+line, " ") + "\n")
	}
}

// stripComments drops plain line comments that sit on their own line. Doc
// comments are kept.
func stripComments(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "//") && !strings.HasPrefix(t, "///") && !strings.HasPrefix(t, "//!") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// WriteAll writes every file under dir, creating directories as needed.
func WriteAll(dir string, files []File) error {
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}
	return nil
}
