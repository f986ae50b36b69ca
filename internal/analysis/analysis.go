// Package analysis runs the whole pipeline: discovery, concurrent loading,
// program construction, mapping and forest building.
package analysis

import (
	"context"
	"fmt"
	"os"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/effectflow/internal/config"
	"github.com/phobologic/effectflow/internal/discover"
	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/eval"
	"github.com/phobologic/effectflow/internal/graph"
	"github.com/phobologic/effectflow/internal/lang"
	"github.com/phobologic/effectflow/internal/logging"
	"github.com/phobologic/effectflow/internal/mapping"
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/parse"
	"github.com/phobologic/effectflow/internal/resolve"
	"github.com/phobologic/effectflow/internal/syntax"
)

// Result is everything one run computes.
type Result struct {
	Files       []*syntax.File
	Mappings    []model.EffectMapping
	Forest      []*model.EffectTreeNode
	Unhandled   []graph.Dispatch
	Suggestions []model.Suggestion
	Ranks       map[string]float64
	Summary     model.Summary
}

// Discover expands paths into the source files cfg selects. Finding no file
// at all is an error.
func Discover(cfg *config.Config, paths []string) ([]discover.FileEntry, error) {
	files, err := discover.Files(paths, discover.Options{
		Extensions: cfg.Extensions,
		Exclude:    cfg.Exclude,
		SkipTests:  !cfg.IncludeTests,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.ErrNoFiles
	}
	return files, nil
}

// Run analyzes every source file under paths. A file that does not parse
// aborts the run and nothing is returned for it.
func Run(ctx context.Context, cfg *config.Config, paths []string) (*Result, error) {
	entries, err := Discover(cfg, paths)
	if err != nil {
		return nil, err
	}
	files, err := Load(ctx, entries, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return Analyze(ctx, cfg, files), nil
}

// Load reads and parses files with up to workers goroutines, each owning its
// parsers. Results keep the order of files. The first failure cancels the
// remaining work.
func Load(ctx context.Context, files []discover.FileEntry, workers int) ([]*syntax.File, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}
	logger := logging.FromContext(ctx)

	out := make([]*syntax.File, len(files))
	work := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			// sitter parsers are not safe for concurrent use.
			parsers := make(map[string]*sitter.Parser)
			defer func() {
				for _, p := range parsers {
					p.Close()
				}
			}()

			for idx := range work {
				f := files[idx]
				p, ok := parsers[f.Language]
				if !ok {
					l := lang.Languages[f.Language]
					if l == nil {
						return errs.NewSourceError(f.Path, 1, 1, "unsupported file type")
					}
					p = l.NewParser()
					parsers[f.Language] = p
				}

				source, err := os.ReadFile(f.Path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", f.Path, err)
				}
				file, err := parse.File(ctx, p, source, f.Path)
				if err != nil {
					return err
				}
				logger.Debug("loaded", "file", f.Path, "decls", len(file.Decls))
				out[idx] = file
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Analyze builds mappings and the forest over already loaded files.
func Analyze(ctx context.Context, cfg *config.Config, files []*syntax.File) *Result {
	logger := logging.FromContext(ctx)

	program := resolve.NewProgram(files)
	ev := eval.New(program,
		eval.WithFilterOperators(cfg.FilterOperators...),
		eval.WithMaxDepth(cfg.MaxDepth),
	)
	builder := mapping.New(ev,
		mapping.WithMarker(cfg.Marker),
		mapping.WithFactories(cfg.Factories...),
	)

	res := &Result{Files: files}
	res.Mappings = builder.Build(files)
	res.Forest = graph.BuildForest(res.Mappings)
	res.Unhandled = graph.Unhandled(res.Mappings)
	res.Suggestions = graph.Suggest(res.Mappings)
	res.Ranks = graph.Rank(res.Mappings)
	res.Summary = model.Summarize(len(files), res.Mappings, res.Forest)

	logger.Info("analysis complete",
		"files", res.Summary.Files,
		"effects", res.Summary.Effects,
		"roots", res.Summary.Roots,
		"suppressed", res.Summary.Suppressed,
	)
	if res.Summary.Unknown > 0 {
		logger.Warn("unresolved tokens", "count", res.Summary.Unknown)
	}
	for _, s := range res.Suggestions {
		logger.Warn("unhandled action resembles a handled one",
			"action", s.Action, "nearest", s.Nearest, "origin", s.Origin)
	}
	return res
}
