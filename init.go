package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/effectflow/internal/config"
	"github.com/phobologic/effectflow/internal/errs"
)

// newInitCmd implements `effectflow init`, which writes the default
// configuration file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultFile,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: init takes at most one path, got %d", errs.ErrUsage, len(args))
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}
			return writeDefaultConfig(path, dryRun, force, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func writeDefaultConfig(path string, dryRun, force bool, stdout, stderr io.Writer) error {
	data, err := config.Default().Marshal()
	if err != nil {
		return err
	}

	if dryRun {
		_, err := stdout.Write(data)
		return err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s already exists (use --force to overwrite)", errs.ErrUsage, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", errs.ErrPersistence, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", errs.ErrPersistence, path, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	return nil
}
