package parser

import (
	"fmt"
	"unsafe"

	"github.com/jenian/titanlint/internal/languages"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// LanguageLoader interface for loading language grammars
type LanguageLoader interface {
	LoadJavaScript() (*sitter.Language, error)
	LoadTypeScript() (*sitter.Language, error)
	LoadTSX() (*sitter.Language, error)
}

// DefaultLanguageLoader loads the grammars compiled into the binary
type DefaultLanguageLoader struct{}

func (l *DefaultLanguageLoader) LoadJavaScript() (*sitter.Language, error) {
	return grammar("JavaScript", tree_sitter_javascript.Language())
}

func (l *DefaultLanguageLoader) LoadTypeScript() (*sitter.Language, error) {
	return grammar("TypeScript", tree_sitter_typescript.LanguageTypescript())
}

func (l *DefaultLanguageLoader) LoadTSX() (*sitter.Language, error) {
	return grammar("TSX", tree_sitter_typescript.LanguageTSX())
}

func grammar(name string, ptr unsafe.Pointer) (*sitter.Language, error) {
	if ptr == nil {
		return nil, fmt.Errorf("failed to load %s language grammar", name)
	}
	return sitter.NewLanguage(ptr), nil
}

// loadLanguage loads the Tree-Sitter language grammar for the given language
func loadLanguage(loader LanguageLoader, lang languages.Language) (*sitter.Language, error) {
	switch lang {
	case languages.LanguageJavaScript:
		// The JavaScript grammar includes JSX
		return loader.LoadJavaScript()
	case languages.LanguageTypeScript:
		return loader.LoadTypeScript()
	case languages.LanguageTSX:
		return loader.LoadTSX()
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}
