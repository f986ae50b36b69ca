// Package resolve maps identifiers to the declarations they refer to.
package resolve

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/effectflow/internal/syntax"
)

// DeclarationResolver resolves an identifier, in the scope of the file its
// position names, to a declaration node. It returns nil when the identifier
// cannot be resolved.
type DeclarationResolver interface {
	Resolve(id *syntax.Ident) syntax.Node
}

// FileScope resolves identifiers against the top-level declarations of a
// single file. Imports are not followed.
type FileScope struct {
	decls map[string]syntax.Node
}

// NewFileScope indexes the declarations of f.
func NewFileScope(f *syntax.File) *FileScope {
	s := &FileScope{decls: make(map[string]syntax.Node, len(f.Decls))}
	for _, d := range f.Decls {
		if name := syntax.DeclName(d); name != "" {
			if _, dup := s.decls[name]; !dup {
				s.decls[name] = d
			}
		}
	}
	return s
}

// Resolve implements DeclarationResolver.
func (s *FileScope) Resolve(id *syntax.Ident) syntax.Node {
	if id == nil {
		return nil
	}
	return s.decls[id.Name]
}

// DefaultMaxHops bounds alias chains followed by Program.
const DefaultMaxHops = 32

const defaultCacheSize = 4096

// moduleExtensions are tried, in order, when a relative import names a module
// without an extension.
var moduleExtensions = []string{".ts", ".tsx", "/index.ts", "/index.tsx"}

type cacheKey struct {
	file string
	name string
}

type cacheEntry struct {
	node syntax.Node
}

type unit struct {
	file  *syntax.File
	scope *FileScope
}

// Program resolves identifiers across a set of files, following imports,
// local export aliases and re-exports between them. It is read-only after
// construction and safe for concurrent use.
type Program struct {
	units   map[string]*unit
	maxHops int
	cache   *lru.Cache[cacheKey, cacheEntry]
}

// Option configures a Program.
type Option func(*Program)

// WithMaxHops sets the alias chain bound.
func WithMaxHops(n int) Option {
	return func(p *Program) {
		if n > 0 {
			p.maxHops = n
		}
	}
}

// NewProgram indexes files for resolution.
func NewProgram(files []*syntax.File, opts ...Option) *Program {
	p := &Program{
		units:   make(map[string]*unit, len(files)),
		maxHops: DefaultMaxHops,
	}
	for _, o := range opts {
		o(p)
	}
	for _, f := range files {
		p.units[key(f.Path)] = &unit{file: f, scope: NewFileScope(f)}
	}
	// Only errors on a non-positive size.
	p.cache, _ = lru.New[cacheKey, cacheEntry](defaultCacheSize)
	return p
}

// Files returns the number of files in the program.
func (p *Program) Files() int {
	return len(p.units)
}

// Resolve implements DeclarationResolver.
func (p *Program) Resolve(id *syntax.Ident) syntax.Node {
	if id == nil {
		return nil
	}
	k := cacheKey{file: key(id.At.File), name: id.Name}
	if e, ok := p.cache.Get(k); ok {
		return e.node
	}
	n := p.lookup(k.file, id.Name, 0, make(map[cacheKey]struct{}))
	p.cache.Add(k, cacheEntry{node: n})
	return n
}

// lookup finds name as visible inside file: its own declarations, its
// imports, and the names it exports. seen records the (file, name) pairs
// already searched for exports during one Resolve call.
func (p *Program) lookup(file, name string, hops int, seen map[cacheKey]struct{}) syntax.Node {
	if hops > p.maxHops {
		return nil
	}
	u := p.units[file]
	if u == nil {
		return nil
	}
	if d := u.scope.decls[name]; d != nil {
		return d
	}
	for _, imp := range u.file.Imports {
		if imp.Local != name {
			continue
		}
		target := p.module(file, imp.Module)
		if target == "" {
			return nil
		}
		if imp.Imported == "*" {
			return &syntax.Namespace{Path: p.units[target].file.Path}
		}
		return p.exported(target, imp.Imported, hops+1, seen)
	}
	return p.exported(file, name, hops+1, seen)
}

// exported finds what file exports under name.
func (p *Program) exported(file, name string, hops int, seen map[cacheKey]struct{}) syntax.Node {
	if hops > p.maxHops {
		return nil
	}
	u := p.units[file]
	if u == nil {
		return nil
	}
	// Barrels may re-export each other.
	k := cacheKey{file: file, name: name}
	if _, ok := seen[k]; ok {
		return nil
	}
	seen[k] = struct{}{}
	if d := u.scope.decls[name]; d != nil {
		return d
	}
	var stars []string
	for _, ex := range u.file.Exports {
		if ex.Exported == "*" {
			if t := p.module(file, ex.Module); t != "" {
				stars = append(stars, t)
			}
			continue
		}
		if ex.Exported != name {
			continue
		}
		if ex.Module == "" {
			if ex.Local == name {
				// `export { name }` re-publishes an import or declaration.
				return p.imported(file, name, hops+1, seen)
			}
			return p.lookup(file, ex.Local, hops+1, seen)
		}
		target := p.module(file, ex.Module)
		if target == "" {
			return nil
		}
		if ex.Local == "*" {
			// export * as name from
			return &syntax.Namespace{Path: p.units[target].file.Path}
		}
		return p.exported(target, ex.Local, hops+1, seen)
	}
	for _, t := range stars {
		if d := p.exported(t, name, hops+1, seen); d != nil {
			return d
		}
	}
	return nil
}

// imported resolves name through file's imports only.
func (p *Program) imported(file, name string, hops int, seen map[cacheKey]struct{}) syntax.Node {
	u := p.units[file]
	for _, imp := range u.file.Imports {
		if imp.Local != name {
			continue
		}
		target := p.module(file, imp.Module)
		if target == "" {
			return nil
		}
		if imp.Imported == "*" {
			return &syntax.Namespace{Path: p.units[target].file.Path}
		}
		return p.exported(target, imp.Imported, hops+1, seen)
	}
	return nil
}

// module maps a relative module specifier seen in from to a program file key.
// Package imports are outside the program and yield "".
func (p *Program) module(from, spec string) string {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return ""
	}
	base := filepath.Join(filepath.Dir(from), filepath.FromSlash(spec))
	if _, ok := p.units[base]; ok {
		return base
	}
	for _, ext := range moduleExtensions {
		candidate := base + filepath.FromSlash(ext)
		if _, ok := p.units[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
