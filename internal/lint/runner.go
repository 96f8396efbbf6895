package lint

import (
	"context"
	"runtime"
	"sort"

	"github.com/jenian/titanlint/internal/analyzer"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/jenian/titanlint/internal/parser"
	"github.com/jenian/titanlint/internal/scanner"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner parses files in parallel and checks their access sites
type Runner struct {
	parser  *parser.Parser
	checker *analyzer.Checker
	workers int
	logger  zerolog.Logger
}

// NewRunner creates a runner. workers <= 0 uses one worker per CPU.
func NewRunner(p *parser.Parser, checker *analyzer.Checker, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		parser:  p,
		checker: checker,
		workers: workers,
		logger:  xlog.WithComponent("lint"),
	}
}

// Run analyzes every file and returns one result per parsed file, sorted by relative path.
// Files that cannot be read or parsed are logged and left out.
func (r *Runner) Run(ctx context.Context, files []scanner.FileInfo) ([]analyzer.FileResult, error) {
	results := make([]*analyzer.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sites, err := r.parser.ParseFile(file.Path, file.Language)
			if err != nil {
				r.logger.Warn().Err(err).Str("file", file.RelPath).Msg("skipping file")
				return nil
			}

			// Each goroutine owns its own slot
			results[i] = &analyzer.FileResult{
				Path:        file.RelPath,
				Diagnostics: r.checker.Check(sites),
				Sites:       len(sites),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]analyzer.FileResult, 0, len(files))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}
