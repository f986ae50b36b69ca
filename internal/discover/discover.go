// Package discover expands file and directory arguments into source files.
package discover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // As given, or joined onto the directory argument
	Language string
}

// Options narrows discovery.
type Options struct {
	// Extensions restricts files to these extensions. Empty means every
	// extension with a registered language.
	Extensions []string
	// Exclude holds gitignore-style patterns matched against paths relative
	// to each directory argument and against explicit file arguments.
	Exclude []string
	// SkipTests drops test and spec files found under directories.
	SkipTests bool
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	".angular":     {},
	".nx":          {},
	"build":        {},
	"dist":         {},
	"coverage":     {},
	"out-tsc":      {},
}

// Files expands paths in argument order. Directories are walked and their
// files sorted; explicit files are kept as long as their language is
// supported. A path that does not exist fails with errs.ErrPathNotFound.
// Files reached through more than one argument are listed once.
func Files(paths []string, opts Options) ([]FileEntry, error) {
	var exclude *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		exclude = ignore.CompileIgnoreLines(opts.Exclude...)
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var results []FileEntry
	add := func(path, langName string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		results = append(results, FileEntry{Path: path, Language: langName})
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errs.NotFound(p)
			}
			return nil, &errs.PathError{Path: p, Err: err}
		}
		if !info.IsDir() {
			if exclude != nil && exclude.MatchesPath(filepath.ToSlash(p)) {
				continue
			}
			if l := languageFor(p, exts); l != "" {
				add(p, l)
			}
			continue
		}
		entries, err := walk(p, exts, exclude, opts.SkipTests)
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		for _, e := range entries {
			add(e.Path, e.Language)
		}
	}
	return results, nil
}

func languageFor(path string, exts map[string]struct{}) string {
	ext := strings.ToLower(filepath.Ext(path))
	if len(exts) > 0 {
		if _, ok := exts[ext]; !ok {
			return ""
		}
	}
	return lang.ForExtension(ext)
}

func walk(root string, exts map[string]struct{}, exclude *ignore.GitIgnore, skipTests bool) ([]FileEntry, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		slashed := filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[slashed]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(slashed) {
			return nil
		}
		if exclude != nil && exclude.MatchesPath(slashed) {
			return nil
		}
		if skipTests && IsTestFile(slashed) {
			return nil
		}

		langName := languageFor(name, exts)
		if langName == "" {
			return nil
		}

		results = append(results, FileEntry{Path: path, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

var testDirs = map[string]struct{}{
	"__tests__": {},
	"__mocks__": {},
	"e2e":       {},
	"cypress":   {},
}

var testSuffixes = []string{".spec", ".test", ".e2e-spec", ".stories"}

// IsTestFile reports whether a slash-separated path names a test, spec or
// story file rather than application source.
func IsTestFile(path string) bool {
	parts := strings.Split(path, "/")
	for _, dir := range parts[:len(parts)-1] {
		if _, ok := testDirs[dir]; ok {
			return true
		}
	}
	base := parts[len(parts)-1]
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, s := range testSuffixes {
		if strings.HasSuffix(stem, s) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
