// Package eval partially evaluates handler pipelines to the action
// identifiers they can consume or produce.
//
// Evaluation is total: every node kind without a rule yields model.Unknown,
// so the absence of information is always explicit in the result.
package eval

import (
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/resolve"
	"github.com/phobologic/effectflow/internal/syntax"
)

// DefaultMaxDepth bounds recursion through declarations.
const DefaultMaxDepth = 64

// DefaultFilterOperators names the pipeline stages that select triggers.
var DefaultFilterOperators = []string{"ofType"}

// typeMember is the field an action object or class names its identifier with.
const typeMember = "type"

// Evaluator evaluates expressions against a declaration resolver. It holds no
// mutable state and may be shared between goroutines.
type Evaluator struct {
	resolver resolve.DeclarationResolver
	filters  map[string]struct{}
	maxDepth int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFilterOperators replaces the trigger-selecting operator names.
func WithFilterOperators(names ...string) Option {
	return func(e *Evaluator) {
		e.filters = make(map[string]struct{}, len(names))
		for _, n := range names {
			e.filters[n] = struct{}{}
		}
	}
}

// WithMaxDepth sets the recursion bound.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// New returns an Evaluator resolving identifiers through r.
func New(r resolve.DeclarationResolver, opts ...Option) *Evaluator {
	e := &Evaluator{resolver: r, maxDepth: DefaultMaxDepth}
	WithFilterOperators(DefaultFilterOperators...)(e)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate returns the identifiers n can produce, in branch discovery order.
func (e *Evaluator) Evaluate(n syntax.Node) []model.Token {
	return finalize(e.eval(n, 0))
}

// finalize turns a leaked constructor sentinel into Unknown; it only has
// meaning inside the construction rule.
func finalize(ts []model.Token) []model.Token {
	for i, t := range ts {
		if t.Kind == model.DeclaredConstruct {
			ts[i] = model.Unknown
		}
	}
	return ts
}

func unknown() []model.Token {
	return []model.Token{model.Unknown}
}

func (e *Evaluator) eval(n syntax.Node, depth int) []model.Token {
	if depth > e.maxDepth {
		return unknown()
	}
	depth++

	switch x := n.(type) {
	case *syntax.Call:
		return e.evalCall(x, depth)
	case *syntax.Function:
		return e.evalFunction(x, depth)
	case *syntax.FuncDecl:
		if x.Func == nil {
			return unknown()
		}
		return e.evalFunction(x.Func, depth)
	case *syntax.Object:
		p := x.Prop(typeMember)
		if p == nil {
			return unknown()
		}
		return e.eval(p.Value, depth)
	case *syntax.New:
		return e.evalNew(x, depth)
	case *syntax.Paren:
		return e.eval(x.Expr, depth)
	case *syntax.Array:
		var out []model.Token
		for _, el := range x.Elements {
			out = append(out, e.eval(el, depth)...)
		}
		return out
	case *syntax.Ident:
		d := e.resolver.Resolve(x)
		if d == nil {
			return []model.Token{model.Lit(x.Name)}
		}
		return e.eval(d, depth)
	case *syntax.VarDecl:
		if x.Initializer == nil {
			return unknown()
		}
		return e.eval(x.Initializer, depth)
	case *syntax.PropertyDecl:
		if x.Initializer == nil {
			return []model.Token{model.Constructed}
		}
		return e.eval(x.Initializer, depth)
	case *syntax.Param:
		return []model.Token{model.Constructed}
	case *syntax.String:
		return []model.Token{model.Lit(x.Value)}
	case *syntax.Member:
		return e.evalMember(x, depth)
	case *syntax.EnumMember:
		if x.Initializer == nil {
			return unknown()
		}
		return e.eval(x.Initializer, depth)
	default:
		return unknown()
	}
}

// evalCall concatenates the results of the call's arguments: in a pipeline
// only the terminal stage's argument list determines what is emitted.
// Trigger-selecting stages contribute nothing.
func (e *Evaluator) evalCall(c *syntax.Call, depth int) []model.Token {
	if e.isFilter(c) {
		return nil
	}
	switch c.Callee.(type) {
	case *syntax.Ident, *syntax.Member, *syntax.Call, *syntax.Paren:
	default:
		return unknown()
	}
	var out []model.Token
	for _, a := range c.Args {
		out = append(out, e.eval(a, depth)...)
	}
	return out
}

// evalFunction evaluates an expression body, or every return of a block
// body in source order.
func (e *Evaluator) evalFunction(f *syntax.Function, depth int) []model.Token {
	if !f.Block {
		if f.Body == nil {
			return unknown()
		}
		return e.eval(f.Body, depth)
	}
	var out []model.Token
	for _, r := range f.Returns {
		if r.Value == nil {
			out = append(out, model.Unknown)
			continue
		}
		out = append(out, e.eval(r.Value, depth)...)
	}
	return out
}

// evalNew resolves the constructed class's type member. A member assigned
// through the constructor is matched by the position of the constructor
// parameter named type.
func (e *Evaluator) evalNew(n *syntax.New, depth int) []model.Token {
	cls := e.class(n.Callee, depth)
	if cls == nil {
		return unknown()
	}
	member, ctor := e.typeMember(cls, depth)
	if member == nil {
		return unknown()
	}
	r := e.eval(member, depth)
	if len(r) != 1 || r[0] != model.Constructed {
		return r
	}
	i := ctor.ParamIndex(typeMember)
	if i < 0 || i >= len(n.Args) {
		return unknown()
	}
	return e.eval(n.Args[i], depth)
}

// typeMember finds the type member of cls or its nearest ancestor, and the
// constructor that applies when constructing cls.
func (e *Evaluator) typeMember(cls *syntax.ClassDecl, depth int) (syntax.Node, *syntax.Constructor) {
	var ctor *syntax.Constructor
	for c := cls; c != nil && depth <= e.maxDepth; depth++ {
		if ctor == nil {
			ctor = c.Constructor
		}
		if m := c.Member(typeMember); m != nil {
			return m, ctor
		}
		if c.Extends == nil {
			break
		}
		c = e.class(c.Extends, depth)
	}
	return nil, nil
}

// class resolves an expression naming a class.
func (e *Evaluator) class(n syntax.Node, depth int) *syntax.ClassDecl {
	switch x := n.(type) {
	case *syntax.Ident:
		cls, _ := e.resolver.Resolve(x).(*syntax.ClassDecl)
		return cls
	case *syntax.Member:
		cls, _ := e.member(x, depth).(*syntax.ClassDecl)
		return cls
	case *syntax.Paren:
		return e.class(x.Expr, depth)
	}
	return nil
}

func (e *Evaluator) evalMember(m *syntax.Member, depth int) []model.Token {
	d := e.member(m, depth)
	if d == nil {
		return unknown()
	}
	return e.eval(d, depth)
}

// member resolves Object.Property where Object names an enum, a constant
// object literal, a class with a static field, or a namespace import.
func (e *Evaluator) member(m *syntax.Member, depth int) syntax.Node {
	if depth > e.maxDepth {
		return nil
	}
	id, ok := m.Object.(*syntax.Ident)
	if !ok {
		return nil
	}
	switch d := e.resolver.Resolve(id).(type) {
	case *syntax.EnumDecl:
		if em := d.Member(m.Property); em != nil {
			return em
		}
	case *syntax.VarDecl:
		if obj := unwrapObject(d.Initializer); obj != nil {
			if p := obj.Prop(m.Property); p != nil {
				return p.Value
			}
		}
	case *syntax.ClassDecl:
		if s := d.Static(m.Property); s != nil {
			return s
		}
	case *syntax.Namespace:
		return e.resolver.Resolve(&syntax.Ident{
			At:   syntax.Position{File: d.Path},
			Name: m.Property,
		})
	}
	return nil
}

func unwrapObject(n syntax.Node) *syntax.Object {
	for {
		switch x := n.(type) {
		case *syntax.Object:
			return x
		case *syntax.Paren:
			n = x.Expr
		default:
			return nil
		}
	}
}

func (e *Evaluator) isFilter(c *syntax.Call) bool {
	_, ok := e.filters[syntax.CalleeName(c.Callee)]
	return ok
}
