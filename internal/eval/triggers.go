package eval

import (
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/syntax"
)

// EvaluateTriggers returns the identifiers the filter stage of a pipeline
// subscribes to, in argument order. Only the filter call's own arguments are
// evaluated. When the filter has no value arguments, its type arguments are
// taken as action classes and their type members evaluated instead.
func (e *Evaluator) EvaluateTriggers(n syntax.Node) []model.Token {
	c := e.findFilter(n, 0)
	if c == nil {
		return []model.Token{}
	}
	out := []model.Token{}
	if len(c.Args) > 0 {
		for _, a := range c.Args {
			out = append(out, e.eval(a, 0)...)
		}
		return finalize(out)
	}
	for _, name := range c.TypeArgs {
		out = append(out, e.classType(&syntax.Ident{At: c.At, Name: name})...)
	}
	return finalize(out)
}

// findFilter locates the filter call: first along the receiver chain
// (`actions.ofType(...).pipe(...)`), then among arguments in order
// (`actions.pipe(ofType(...), ...)`), then through function bodies.
func (e *Evaluator) findFilter(n syntax.Node, depth int) *syntax.Call {
	if depth > e.maxDepth {
		return nil
	}
	depth++

	switch x := n.(type) {
	case *syntax.Call:
		if e.isFilter(x) {
			return x
		}
		if c := e.findFilter(x.Callee, depth); c != nil {
			return c
		}
		for _, a := range x.Args {
			if c := e.findFilter(a, depth); c != nil {
				return c
			}
		}
	case *syntax.Member:
		return e.findFilter(x.Object, depth)
	case *syntax.Paren:
		return e.findFilter(x.Expr, depth)
	case *syntax.Function:
		if !x.Block {
			return e.findFilter(x.Body, depth)
		}
		for _, r := range x.Returns {
			if c := e.findFilter(r.Value, depth); c != nil {
				return c
			}
		}
	}
	return nil
}

// classType evaluates the type member of the class id names. A member that
// only a constructor call could supply is unknown here.
func (e *Evaluator) classType(id *syntax.Ident) []model.Token {
	cls := e.class(id, 0)
	if cls == nil {
		return unknown()
	}
	member, _ := e.typeMember(cls, 0)
	if member == nil {
		return unknown()
	}
	return e.eval(member, 0)
}
