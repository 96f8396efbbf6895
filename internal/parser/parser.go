package parser

import (
	"fmt"
	"os"
	"sync"

	"github.com/jenian/titanlint/internal/analyzer"
	"github.com/jenian/titanlint/internal/languages"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/rs/zerolog"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser handles Tree-Sitter parsing of source files and runs the access-site extractor
type Parser struct {
	languages map[languages.Language]*sitter.Language
	mu        sync.RWMutex
	loader    LanguageLoader
	extractor *languages.Extractor
	logger    zerolog.Logger
}

// NewParser creates a parser that recognises the given environment references
func NewParser(extractor *languages.Extractor) *Parser {
	if extractor == nil {
		extractor = languages.NewExtractor()
	}
	return &Parser{
		languages: make(map[languages.Language]*sitter.Language),
		loader:    &DefaultLanguageLoader{},
		extractor: extractor,
		logger:    xlog.WithComponent("parser"),
	}
}

// SetLanguageLoader replaces the grammar loader. Cached grammars are dropped.
func (p *Parser) SetLanguageLoader(loader LanguageLoader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loader = loader
	p.languages = make(map[languages.Language]*sitter.Language)
}

// getLanguage returns a language grammar for the given language, loading it if needed
func (p *Parser) getLanguage(lang languages.Language) (*sitter.Language, error) {
	p.mu.RLock()
	if language, ok := p.languages[lang]; ok {
		p.mu.RUnlock()
		return language, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if language, ok := p.languages[lang]; ok {
		return language, nil
	}

	language, err := loadLanguage(p.loader, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to load language %s: %w", lang, err)
	}

	p.languages[lang] = language
	return language, nil
}

// ParseFile reads a single file and extracts its environment access sites
func (p *Parser) ParseFile(filePath string, lang languages.Language) ([]analyzer.AccessSite, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	sites, err := p.ParseSource(content, lang)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	p.logger.Debug().Str("file", filePath).Int("sites", len(sites)).Msg("parsed")
	return sites, nil
}

// ParseSource parses in-memory source and extracts its environment access sites
func (p *Parser) ParseSource(content []byte, lang languages.Language) ([]analyzer.AccessSite, error) {
	if !languages.Supported(lang) {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	language, err := p.getLanguage(lang)
	if err != nil {
		return nil, err
	}

	// Tree-sitter parsers are not safe for concurrent use, so each call gets its own
	tsParser := sitter.NewParser()
	defer tsParser.Close()
	if err := tsParser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language %s: %w", lang, err)
	}

	tree := tsParser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse returned no tree (language: %s)", lang)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse returned no root node (language: %s)", lang)
	}
	if root.HasError() {
		p.logger.Debug().Str("language", string(lang)).Msg("syntax errors in source, extracting from partial tree")
	}

	return p.extractor.Extract(root, content), nil
}
