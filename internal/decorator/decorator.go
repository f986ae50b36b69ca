// Package decorator reduces marker annotations on class members to plain values.
package decorator

import "github.com/phobologic/effectflow/internal/syntax"

// Value is the structural reduction of a marker subexpression.
type Value interface {
	isValue()
}

// Name is a bare identifier.
type Name string

// Bool is a boolean literal.
type Bool bool

// Pairs is an object literal's key/value members.
type Pairs []Argument

// Opaque is any shape the reduction does not recognize. It never equals a
// Name, so unrecognized markers cannot pass for recognized ones.
type Opaque struct {
	Kind string
}

// Evaluation is one reduced marker application.
type Evaluation struct {
	Expression Value
	Arguments  []Argument
}

// Argument is a named marker argument.
type Argument struct {
	Name  Value
	Value Value
}

func (Name) isValue()        {}
func (Bool) isValue()        {}
func (Pairs) isValue()       {}
func (Opaque) isValue()      {}
func (*Evaluation) isValue() {}

// Evaluate reduces every marker attached to decl. It returns nil when decl
// carries no markers or is not a declaration that can carry them.
func Evaluate(decl syntax.Node) []*Evaluation {
	var markers []syntax.Node
	switch d := decl.(type) {
	case *syntax.PropertyDecl:
		markers = d.Decorators
	case *syntax.ClassDecl:
		markers = d.Decorators
	}
	if len(markers) == 0 {
		return nil
	}
	out := make([]*Evaluation, 0, len(markers))
	for _, m := range markers {
		out = append(out, asEvaluation(Reduce(m)))
	}
	return out
}

// Reduce structurally reduces an expression.
func Reduce(n syntax.Node) Value {
	switch e := n.(type) {
	case *syntax.Call:
		ev := &Evaluation{Expression: Reduce(e.Callee)}
		for _, a := range e.Args {
			switch v := Reduce(a).(type) {
			case Pairs:
				ev.Arguments = append(ev.Arguments, v...)
			default:
				ev.Arguments = append(ev.Arguments, Argument{Name: Opaque{}, Value: v})
			}
		}
		return ev
	case *syntax.Ident:
		return Name(e.Name)
	case *syntax.Object:
		pairs := make(Pairs, 0, len(e.Props))
		for _, p := range e.Props {
			pairs = append(pairs, Argument{Name: Name(p.Key), Value: Reduce(p.Value)})
		}
		return pairs
	case *syntax.Bool:
		return Bool(e.Value)
	case *syntax.Paren:
		return Reduce(e.Expr)
	case *syntax.Opaque:
		return Opaque{Kind: e.Kind}
	}
	return Opaque{}
}

// asEvaluation normalizes a bare marker (`@Effect`) to an argument-less
// application.
func asEvaluation(v Value) *Evaluation {
	if ev, ok := v.(*Evaluation); ok {
		return ev
	}
	return &Evaluation{Expression: v}
}

// IsMarked reports whether any evaluation applies one of names.
func IsMarked(evals []*Evaluation, names ...string) bool {
	for _, ev := range evals {
		n, ok := ev.Expression.(Name)
		if !ok {
			continue
		}
		for _, want := range names {
			if string(n) == want {
				return true
			}
		}
	}
	return false
}

// IsEffect reports whether any evaluation is the effect marker.
func IsEffect(evals []*Evaluation, marker string) bool {
	return IsMarked(evals, marker)
}

// IsDispatchSuppressed reports whether any evaluation carries dispatch: false.
func IsDispatchSuppressed(evals []*Evaluation) bool {
	for _, ev := range evals {
		for _, a := range ev.Arguments {
			if a.Name == Name("dispatch") && a.Value == Bool(false) {
				return true
			}
		}
	}
	return false
}
