package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/effectflow/internal/analysis"
	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/ranking"
	"github.com/phobologic/effectflow/internal/render"
)

const (
	sentinelStart = "<!-- effectflow:start -->"
	sentinelEnd   = "<!-- effectflow:end -->"
)

const defaultDocFile = "EFFECTS.md"

// newDocCmd implements `effectflow doc`, which writes (or updates) the effect
// forest as a section of a Markdown file.
func newDocCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var (
		path     string
		dryRun   bool
		maxRoots int
	)
	cmd := &cobra.Command{
		Use:   "doc [flags] <path>...",
		Short: "Write the effect forest into a Markdown file",
		Long: `Write the effect forest to a Markdown file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.`,
		Args: requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.setup(cmd.Context(), stderr)
			if err != nil {
				return err
			}
			res, err := analysis.Run(ctx, cfg, args)
			if err != nil {
				return err
			}
			forest := ranking.SelectRoots(res.Forest, res.Ranks, maxRoots)
			section, err := generateSection(forest)
			if err != nil {
				return err
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("%w: writing %s: %w", errs.ErrPersistence, path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote effectflow section to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", defaultDocFile, "Markdown file to update")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	cmd.Flags().IntVarP(&maxRoots, "max-roots", "n", 0, "include at most this many trees, largest first")
	return cmd
}

// generateSection returns the sentinel-wrapped forest documentation block.
func generateSection(forest []*model.EffectTreeNode) (string, error) {
	var tree bytes.Buffer
	if err := render.New(&tree, false).Forest(forest); err != nil {
		return "", err
	}

	body := `## Effect flow

Generated by ` + "`effectflow doc`" + `; do not edit between the markers. Each block
starts at an action and lists the effects it triggers, then the actions those
effects dispatch. ` + "`no further effect`" + ` marks an action nothing handles and
` + "`cycle`" + ` marks an action already reached on the same path.

` + "```text\n" + strings.TrimRight(tree.String(), "\n") + "\n```"

	return sentinelStart + "\n" + body + "\n" + sentinelEnd, nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
