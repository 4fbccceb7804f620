// Package extractor parses a source file with tree-sitter and builds the
// program model the pipeline works on.
package extractor

import (
	"context"
	"fmt"
	"os"

	"modsplit/internal/model"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "rust", "rs":
		langExt = NewRustExtractor()
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// ExtractFromFile reads and parses a single source file.
func (e *Extractor) ExtractFromFile(filepath string) (*model.Program, error) {
	sourceCode, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return e.ExtractFromSource(context.Background(), filepath, sourceCode)
}

// ExtractFromSource parses source held in memory. filepath is only used for
// the program path and error messages.
func (e *Extractor) ExtractFromSource(ctx context.Context, filepath string, sourceCode []byte) (*model.Program, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filepath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, fmt.Errorf("%w: %s:%d", ErrSyntax, filepath, line)
	}

	prog, err := e.langExtractor.Extract(root, sourceCode, filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath, err)
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	prog.SourceHash = SourceHash(sourceCode)
	return prog, nil
}

// firstErrorLine finds the 1-based line of the first ERROR or missing node.
func firstErrorLine(root *sitter.Node) int {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() {
			return int(n.StartPoint().Row) + 1
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	return int(root.StartPoint().Row) + 1
}
