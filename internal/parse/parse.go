// Package parse converts tree-sitter TypeScript syntax trees into the
// syntax package's closed node set.
package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/lang"
	"github.com/phobologic/effectflow/internal/syntax"
)

// File parses source and converts its top level. The parser must be created
// for the correct language. A tree containing syntax errors is rejected with
// an *errs.SourceError locating the first one.
func File(ctx context.Context, parser *sitter.Parser, source []byte, path string) (*syntax.File, error) {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			reason := "syntax error"
			if bad.IsMissing() {
				reason = fmt.Sprintf("missing %q", bad.Type())
			}
			p := bad.StartPoint()
			return nil, errs.NewSourceError(path, int(p.Row)+1, int(p.Column)+1, reason)
		}
		return nil, errs.NewSourceError(path, 1, 1, "syntax error")
	}

	c := &converter{src: source, path: path}
	f := &syntax.File{Path: path}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c.statement(f, root.NamedChild(i))
	}
	return f, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// Source parses source with a fresh parser for the language its path's
// extension selects.
func Source(ctx context.Context, source []byte, path string) (*syntax.File, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, errs.NewSourceError(path, 1, 1, "unsupported file type")
	}
	p := l.NewParser()
	defer p.Close()
	return File(ctx, p, source, path)
}

type converter struct {
	src  []byte
	path string
}

func (c *converter) text(n *sitter.Node) string {
	return lang.NodeText(n, c.src)
}

func (c *converter) pos(n *sitter.Node) syntax.Position {
	p := n.StartPoint()
	return syntax.Position{File: c.path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// namedChildren returns n's named children of the given type, or all of them
// when typ is empty.
func namedChildren(n *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if typ == "" || ch.Type() == typ {
			out = append(out, ch)
		}
	}
	return out
}

// hasToken reports whether n has a direct anonymous child spelled tok.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if !ch.IsNamed() && ch.Type() == tok {
			return true
		}
	}
	return false
}
