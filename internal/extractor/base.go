package extractor

import (
	"errors"

	"modsplit/internal/model"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax marks input the parser could not read. It is always fatal.
var ErrSyntax = errors.New("syntax error")

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	// Extract builds the program model from a parsed, error-free tree.
	Extract(root *sitter.Node, sourceCode []byte, filepath string) (*model.Program, error)
}
