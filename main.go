// effectflow maps which actions trigger which NgRx effects and what those
// effects dispatch in turn.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/effectflow/internal/analysis"
	"github.com/phobologic/effectflow/internal/config"
	"github.com/phobologic/effectflow/internal/discover"
	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/logging"
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/ranking"
	"github.com/phobologic/effectflow/internal/render"
	"github.com/phobologic/effectflow/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// options holds the flag values shared by every command.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
	output     string

	format    string
	action    string
	maxRoots  int
	cachePath string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "effectflow [flags] <path>...",
		Short: "Map the action flow through NgRx effects",
		Long: `effectflow statically analyzes TypeScript effect classes and prints, for
every action that triggers an effect, the tree of effects it sets off and
the actions those effects dispatch.

Paths may be files or directories. Directories are searched recursively for
.ts and .tsx files, honoring .gitignore.`,
		Version:       version,
		Args:          requirePaths,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForest(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("effectflow {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errs.ErrUsage, err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "diagnostic level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "diagnostic format: text|json")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&opts.output, "output", "o", "", "write results to this file instead of stdout")

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "text", "output format: text|json|toon")
	f.StringVar(&opts.action, "action", "", "only show trees that mention this action or effect (substring)")
	f.IntVarP(&opts.maxRoots, "max-roots", "n", 0, "show at most this many trees, largest first")
	f.StringVar(&opts.cachePath, "cache", "", "reuse output stored at this path while no input file is newer")

	cmd.AddCommand(
		newMappingCmd(opts, stdout, stderr),
		newDocCmd(opts, stdout, stderr),
		newInitCmd(stdout, stderr),
	)
	return cmd
}

func requirePaths(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one file or directory is required", errs.ErrUsage)
	}
	return nil
}

// setup loads configuration, applies flag overrides and attaches a logger
// to ctx.
func (o *options) setup(ctx context.Context, stderr io.Writer) (context.Context, *config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, nil, err
	}
	return logging.WithLogger(ctx, logging.WithRun(logger)), cfg, nil
}

func (o *options) color(stdout io.Writer) bool {
	if o.noColor || o.output != "" {
		return false
	}
	_, isFile := stdout.(*os.File)
	return isFile
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q (want %s)", errs.ErrUsage, format, strings.Join(allowed, "|"))
}

func runForest(ctx context.Context, o *options, paths []string, stdout, stderr io.Writer) error {
	if err := checkFormat(o.format, "text", "json", "toon"); err != nil {
		return err
	}
	ctx, cfg, err := o.setup(ctx, stderr)
	if err != nil {
		return err
	}

	entries, err := analysis.Discover(cfg, paths)
	if err != nil {
		return err
	}

	key := o.cacheKey(cfg, stdout)
	if o.cachePath != "" && cacheIsFresh(o.cachePath, entries) {
		if data, ok := readCache(o.cachePath, key); ok {
			logging.FromContext(ctx).Debug("using cached output", "cache", o.cachePath)
			return o.emit(data, stdout)
		}
	}

	files, err := analysis.Load(ctx, entries, cfg.Workers)
	if err != nil {
		return err
	}
	res := analysis.Analyze(ctx, cfg, files)

	forest := res.Forest
	if o.action != "" {
		forest = ranking.FilterByAction(forest, o.action)
	}
	forest = ranking.SelectRoots(forest, res.Ranks, o.maxRoots)
	if o.action != "" || o.maxRoots > 0 {
		res = scoped(res, forest)
	}

	var buf bytes.Buffer
	switch o.format {
	case "json":
		err = render.JSON(&buf, forest)
	case "toon":
		_, err = fmt.Fprintln(&buf, toon.Encode(report(res, paths)))
	default:
		r := render.New(&buf, o.color(stdout))
		if err = r.Forest(forest); err == nil {
			err = r.Summary(res.Summary, res.Suggestions)
		}
	}
	if err != nil {
		return err
	}

	if o.cachePath != "" {
		writeCache(o.cachePath, key, buf.Bytes())
	}
	return o.emit(buf.Bytes(), stdout)
}

func newMappingCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var format, action string
	cmd := &cobra.Command{
		Use:   "mapping [flags] <path>...",
		Short: "Print one record per effect: its triggers and what it dispatches",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "json", "toon"); err != nil {
				return err
			}
			ctx, cfg, err := opts.setup(cmd.Context(), stderr)
			if err != nil {
				return err
			}
			res, err := analysis.Run(ctx, cfg, args)
			if err != nil {
				return err
			}
			if action != "" {
				res = narrowed(res, ranking.FilterMappings(res.Mappings, action))
			}

			var buf bytes.Buffer
			if format == "toon" {
				_, err = fmt.Fprintln(&buf, toon.Encode(report(res, args)))
			} else {
				err = render.JSON(&buf, res.Mappings)
			}
			if err != nil {
				return err
			}
			return opts.emit(buf.Bytes(), stdout)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|toon")
	cmd.Flags().StringVar(&action, "action", "", "only list effects that name this action or effect (substring)")
	return cmd
}

// emit writes data to the --output file, or to stdout when none is set.
func (o *options) emit(data []byte, stdout io.Writer) error {
	if o.output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.output, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", errs.ErrPersistence, o.output, err)
	}
	return nil
}

func report(res *analysis.Result, paths []string) *toon.Report {
	project := "."
	if len(paths) > 0 {
		if abs, err := filepath.Abs(paths[0]); err == nil {
			project = filepath.Base(abs)
		}
	}
	return &toon.Report{
		Project:     project,
		Summary:     res.Summary,
		Mappings:    res.Mappings,
		Unhandled:   res.Unhandled,
		Suggestions: res.Suggestions,
		Ranks:       res.Ranks,
	}
}

// scoped narrows res to the handlers shown in forest.
func scoped(res *analysis.Result, forest []*model.EffectTreeNode) *analysis.Result {
	out := narrowed(res, ranking.MappingsIn(forest, res.Mappings))
	out.Forest = forest
	return out
}

// narrowed keeps the mappings given and the diagnostics and ranks that
// belong to them. The summary keeps the counts of the whole run.
func narrowed(res *analysis.Result, mappings []model.EffectMapping) *analysis.Result {
	out := *res
	out.Mappings = mappings

	kept := make(map[string]struct{}, len(out.Mappings))
	for _, m := range out.Mappings {
		kept[m.Name] = struct{}{}
	}
	out.Unhandled = nil
	for _, d := range res.Unhandled {
		if _, ok := kept[d.Origin]; ok {
			out.Unhandled = append(out.Unhandled, d)
		}
	}
	out.Suggestions = nil
	for _, sg := range res.Suggestions {
		if _, ok := kept[sg.Origin]; ok {
			out.Suggestions = append(out.Suggestions, sg)
		}
	}

	actions := make(map[string]struct{})
	for _, m := range out.Mappings {
		for _, ts := range [][]model.Token{m.InputTypes, m.ReturnTypes} {
			for _, t := range ts {
				if t.IsLiteral() {
					actions[t.Value] = struct{}{}
				}
			}
		}
	}
	out.Ranks = make(map[string]float64, len(actions))
	for a, r := range res.Ranks {
		if _, ok := actions[a]; ok {
			out.Ranks[a] = r
		}
	}
	return &out
}

const cacheMagic = "effectflow-cache "

// cacheKey identifies everything besides the inputs that shapes the output.
func (o *options) cacheKey(cfg *config.Config, stdout io.Writer) string {
	data, _ := cfg.Marshal()
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s format=%s action=%q max-roots=%d color=%t config=%x",
		version, o.format, o.action, o.maxRoots, o.color(stdout), sum[:8])
}

// readCache returns the output stored under key.
func readCache(path, key string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	header := cacheMagic + key + "\n"
	if !bytes.HasPrefix(data, []byte(header)) {
		return nil, false
	}
	return data[len(header):], true
}

// writeCache stores output under key. Failures only cost the next run.
func writeCache(path, key string, output []byte) {
	data := append([]byte(cacheMagic+key+"\n"), output...)
	_ = os.WriteFile(path, data, 0o644)
}

// cacheIsFresh reports whether every input file is older than the cache.
func cacheIsFresh(cachePath string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(f.Path)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}
