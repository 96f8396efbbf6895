package lint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jenian/titanlint/internal/allowlist"
	"github.com/jenian/titanlint/internal/analyzer"
	"github.com/jenian/titanlint/internal/config"
	"github.com/jenian/titanlint/internal/languages"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/jenian/titanlint/internal/parser"
	"github.com/jenian/titanlint/internal/scanner"
	"github.com/jenian/titanlint/internal/titanconfig"
)

// Options configures a single check of a source tree
type Options struct {
	Root        string   // Directory to scan
	Allow       []string // allowList patterns added to the ones in .titanlint.yaml
	TitanConfig string   // Explicit titan.json path, overrides discovery
	Include     []string // Include globs
	Exclude     []string // Exclude globs
	Workers     int
}

// Outcome is the result of a check together with what the run depended on
type Outcome struct {
	Result   analyzer.ScanResult
	Disabled bool     // No titan.json was found, nothing was checked
	Dirs     []string // Directories that were scanned
}

// Check resolves configuration for opts.Root, scans it and reports undeclared environment reads.
// The finder may be shared across runs; nil uses a fresh one.
func Check(ctx context.Context, opts Options, finder *titanconfig.Finder) (*Outcome, error) {
	logger := xlog.WithComponent("lint")

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("path does not exist: %s", root)
	}

	toolCfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn().Err(err).Msgf("ignoring %s", config.FileName)
		toolCfg = &config.Config{}
	}
	toolCfg = toolCfg.Merge(opts.Allow, opts.TitanConfig)

	matcher, err := allowlist.Compile(toolCfg.AllowList)
	if err != nil {
		return nil, err
	}

	titan, titanPath := resolveTitanConfig(root, toolCfg, finder)

	fileScanner := scanner.NewScanner()
	if len(opts.Include) > 0 {
		fileScanner.SetIncludeGlobs(opts.Include)
	}
	if len(opts.Exclude) > 0 {
		fileScanner.SetExcludeGlobs(opts.Exclude)
	}
	if len(toolCfg.Ignores.Folders) > 0 {
		fileScanner.AddExcludeDirs(toolCfg.Ignores.Folders)
	}

	files, err := fileScanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}
	outcome := &Outcome{Dirs: fileScanner.Dirs()}

	if titan == nil {
		logger.Warn().Str("root", root).Msgf("no %s found, skipping check", titanconfig.FileName)
		outcome.Disabled = true
		outcome.Result = analyzer.Collect(nil, nil, "")
		return outcome, nil
	}

	for _, problem := range titanconfig.Problems(titan) {
		logger.Warn().Str("config", titanPath).Msg(problem)
	}

	declared := titanconfig.DeclaredEnvVars(titan)
	logger.Debug().
		Str("config", titanPath).
		Int("declared", len(declared)).
		Int("allowList", matcher.Len()).
		Int("files", len(files)).
		Msg("starting check")

	p := parser.NewParser(languages.NewExtractor(toolCfg.EnvReferences...))
	runner := NewRunner(p, analyzer.NewChecker(declared, matcher), opts.Workers)

	results, err := runner.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	outcome.Result = analyzer.Collect(results, declared.Sorted(), titanPath)
	return outcome, nil
}

// Declared returns the sorted declared set that applies to root and the configuration file it came from
func Declared(root, titanConfig string) ([]string, string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path: %w", err)
	}

	toolCfg, err := config.LoadConfig(abs)
	if err != nil {
		toolCfg = &config.Config{}
	}
	toolCfg = toolCfg.Merge(nil, titanConfig)

	titan, titanPath := resolveTitanConfig(abs, toolCfg, nil)
	if titan == nil {
		return nil, "", fmt.Errorf("no %s found for %s", titanconfig.FileName, abs)
	}
	logger := xlog.WithComponent("lint")
	for _, problem := range titanconfig.Problems(titan) {
		logger.Warn().Str("config", titanPath).Msg(problem)
	}
	return titanconfig.DeclaredEnvVars(titan).Sorted(), titanPath, nil
}

// resolveTitanConfig returns the pipeline configuration that applies to root, or nil when there is none
func resolveTitanConfig(root string, toolCfg *config.Config, finder *titanconfig.Finder) (*titanconfig.Config, string) {
	logger := xlog.WithComponent("lint")

	if explicit := toolCfg.ResolveTitanConfig(root); explicit != "" {
		cfg, err := titanconfig.Load(explicit)
		if err != nil {
			logger.Warn().Err(err).Str("config", explicit).Msg("unable to load configuration")
			return nil, ""
		}
		return cfg, explicit
	}

	if finder == nil {
		finder = titanconfig.NewFinder()
	}
	res := finder.Find(root)
	if res.Err != nil {
		logger.Warn().Err(res.Err).Str("config", res.Path).Msg("unable to load configuration")
		return nil, ""
	}
	return res.Config, res.Path
}
