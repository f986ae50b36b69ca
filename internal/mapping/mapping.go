// Package mapping builds one EffectMapping per effect handler declared in a
// set of parsed files.
package mapping

import (
	"github.com/phobologic/effectflow/internal/decorator"
	"github.com/phobologic/effectflow/internal/eval"
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/syntax"
)

// DefaultMarker is the decorator name identifying an effect handler.
const DefaultMarker = "Effect"

// DefaultFactories are the calls whose result, assigned to a member, makes
// that member an effect handler.
var DefaultFactories = []string{"createEffect"}

// Builder drives the decorator and expression evaluators over class members.
type Builder struct {
	eval      *eval.Evaluator
	marker    string
	factories []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithMarker sets the effect decorator name.
func WithMarker(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.marker = name
		}
	}
}

// WithFactories sets the effect factory call names. An empty list disables
// factory detection.
func WithFactories(names ...string) Option {
	return func(b *Builder) {
		b.factories = names
	}
}

// New returns a Builder evaluating expressions with e.
func New(e *eval.Evaluator, opts ...Option) *Builder {
	b := &Builder{eval: e, marker: DefaultMarker, factories: DefaultFactories}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build returns the mappings of every effect handler in files, in file order
// then declaration order. Unresolvable members never fail the build; their
// unknowns are kept in the returned sequences.
func (b *Builder) Build(files []*syntax.File) []model.EffectMapping {
	out := []model.EffectMapping{}
	for _, f := range files {
		for _, d := range f.Decls {
			cls, ok := d.(*syntax.ClassDecl)
			if !ok {
				continue
			}
			for _, m := range cls.Members {
				if em, ok := b.member(f.Path, m); ok {
					out = append(out, em)
				}
			}
		}
	}
	return out
}

func (b *Builder) member(path string, m *syntax.PropertyDecl) (model.EffectMapping, bool) {
	evals := decorator.Evaluate(m)
	factory := b.factoryCall(m.Initializer)
	if factory == nil && !decorator.IsEffect(evals, b.marker) {
		return model.EffectMapping{}, false
	}
	if factory != nil {
		// The factory call is an effect whatever its callee reduces to
		// (fx.createEffect); only its dispatch option is read here.
		if ev, ok := decorator.Reduce(factory).(*decorator.Evaluation); ok {
			evals = append(evals, ev)
		}
	}

	em := model.EffectMapping{
		Name:       m.Name,
		InputTypes: []model.Token{},
		Location: model.SourceLocation{
			Path:   path,
			Line:   m.At.Line,
			Column: m.At.Column,
		},
	}
	if m.Initializer != nil {
		em.InputTypes = b.eval.EvaluateTriggers(m.Initializer)
	}

	switch {
	case decorator.IsDispatchSuppressed(evals), m.Initializer == nil:
		em.ReturnTypes = []model.Token{model.Void}
	case factory != nil:
		if len(factory.Args) == 0 {
			em.ReturnTypes = []model.Token{model.Unknown}
		} else {
			em.ReturnTypes = b.eval.Evaluate(factory.Args[0])
		}
	default:
		em.ReturnTypes = b.eval.Evaluate(m.Initializer)
	}
	if em.ReturnTypes == nil {
		em.ReturnTypes = []model.Token{}
	}
	return em, true
}

// factoryCall returns init as a call to one of the configured factories.
func (b *Builder) factoryCall(init syntax.Node) *syntax.Call {
	for {
		p, ok := init.(*syntax.Paren)
		if !ok {
			break
		}
		init = p.Expr
	}
	c, ok := init.(*syntax.Call)
	if !ok {
		return nil
	}
	name := syntax.CalleeName(c.Callee)
	for _, f := range b.factories {
		if f == name {
			return c
		}
	}
	return nil
}
