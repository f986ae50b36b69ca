package decorator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/effectflow/internal/syntax"
)

func effectCall(args ...syntax.Node) *syntax.Call {
	return &syntax.Call{Callee: &syntax.Ident{Name: "Effect"}, Args: args}
}

func dispatch(v bool) *syntax.Object {
	return &syntax.Object{Props: []*syntax.Property{{Key: "dispatch", Value: &syntax.Bool{Value: v}}}}
}

func TestEvaluateNoMarkers(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Evaluate(&syntax.PropertyDecl{Name: "plain"}))
	assert.Nil(t, Evaluate(&syntax.VarDecl{Name: "x"}))
}

func TestEvaluateCallMarker(t *testing.T) {
	t.Parallel()

	decl := &syntax.PropertyDecl{Decorators: []syntax.Node{effectCall(dispatch(false))}}
	evals := Evaluate(decl)
	require.Len(t, evals, 1)

	assert.Equal(t, Name("Effect"), evals[0].Expression)
	assert.Equal(t, []Argument{{Name: Name("dispatch"), Value: Bool(false)}}, evals[0].Arguments)
	assert.True(t, IsEffect(evals, "Effect"))
	assert.True(t, IsDispatchSuppressed(evals))
}

func TestEvaluateBareMarker(t *testing.T) {
	t.Parallel()

	decl := &syntax.PropertyDecl{Decorators: []syntax.Node{&syntax.Ident{Name: "Effect"}}}
	evals := Evaluate(decl)
	require.Len(t, evals, 1)
	assert.True(t, IsEffect(evals, "Effect"))
	assert.False(t, IsDispatchSuppressed(evals))
}

func TestDispatchTrueIsNotSuppressed(t *testing.T) {
	t.Parallel()

	evals := Evaluate(&syntax.PropertyDecl{Decorators: []syntax.Node{effectCall(dispatch(true))}})
	assert.True(t, IsEffect(evals, "Effect"))
	assert.False(t, IsDispatchSuppressed(evals))
}

func TestUnrecognizedShapesNeverMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		marker syntax.Node
	}{
		{"namespaced marker", &syntax.Call{Callee: &syntax.Member{Object: &syntax.Ident{Name: "fx"}, Property: "Effect"}}},
		{"string marker", &syntax.String{Value: "Effect"}},
		{"opaque", &syntax.Opaque{Kind: "template_string"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			evals := Evaluate(&syntax.PropertyDecl{Decorators: []syntax.Node{tt.marker}})
			require.Len(t, evals, 1)
			assert.False(t, IsEffect(evals, "Effect"))
		})
	}
}

func TestMultipleMarkers(t *testing.T) {
	t.Parallel()

	decl := &syntax.PropertyDecl{Decorators: []syntax.Node{
		&syntax.Call{Callee: &syntax.Ident{Name: "Debounce"}, Args: []syntax.Node{&syntax.Opaque{Kind: "number"}}},
		effectCall(),
	}}
	evals := Evaluate(decl)
	require.Len(t, evals, 2)
	assert.Equal(t, Name("Debounce"), evals[0].Expression)
	assert.Equal(t, Opaque{}, evals[0].Arguments[0].Name)
	assert.True(t, IsEffect(evals, "Effect"))
}

func TestReduceFactoryCall(t *testing.T) {
	t.Parallel()

	call := &syntax.Call{
		Callee: &syntax.Ident{Name: "createEffect"},
		Args:   []syntax.Node{&syntax.Function{}, dispatch(false)},
	}
	ev, ok := Reduce(call).(*Evaluation)
	require.True(t, ok)
	assert.True(t, IsMarked([]*Evaluation{ev}, "Effect", "createEffect"))
	assert.True(t, IsDispatchSuppressed([]*Evaluation{ev}))
}

func TestDispatchNestedObjectIsIgnored(t *testing.T) {
	t.Parallel()

	nested := &syntax.Object{Props: []*syntax.Property{{
		Key:   "dispatch",
		Value: &syntax.Object{Props: []*syntax.Property{{Key: "enabled", Value: &syntax.Bool{}}}},
	}}}
	evals := Evaluate(&syntax.PropertyDecl{Decorators: []syntax.Node{effectCall(nested)}})
	assert.False(t, IsDispatchSuppressed(evals))
}
