package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/effectflow/internal/eval"
	"github.com/phobologic/effectflow/internal/model"
	"github.com/phobologic/effectflow/internal/resolve"
	"github.com/phobologic/effectflow/internal/syntax"
)

const testFile = "/app/event.effects.ts"

func at(line, col int) syntax.Position {
	return syntax.Position{File: testFile, Line: line, Column: col}
}

func str(s string) *syntax.String { return &syntax.String{Value: s} }

func id(name string) *syntax.Ident { return &syntax.Ident{At: at(1, 1), Name: name} }

func call(callee syntax.Node, args ...syntax.Node) *syntax.Call {
	return &syntax.Call{Callee: callee, Args: args}
}

func method(recv syntax.Node, name string, args ...syntax.Node) *syntax.Call {
	return call(&syntax.Member{Object: recv, Property: name}, args...)
}

func arrow(body syntax.Node) *syntax.Function { return &syntax.Function{Body: body} }

func action(typ syntax.Node) *syntax.Paren {
	return &syntax.Paren{Expr: &syntax.Object{Props: []*syntax.Property{{Key: "type", Value: typ}}}}
}

func actions() *syntax.Member {
	return &syntax.Member{Object: &syntax.This{}, Property: "actions$"}
}

// pipeline builds `this.actions$.ofType(in).map(() => ({type: out}))`.
func pipeline(in, out string) *syntax.Call {
	return method(method(actions(), "ofType", str(in)), "map", arrow(action(str(out))))
}

func effect(args ...syntax.Node) syntax.Node {
	return call(id("Effect"), args...)
}

func noDispatch() *syntax.Object {
	return &syntax.Object{Props: []*syntax.Property{{Key: "dispatch", Value: &syntax.Bool{Value: false}}}}
}

func newBuilder(f *syntax.File, opts ...Option) *Builder {
	return New(eval.New(resolve.NewFileScope(f)), opts...)
}

func effectsFile(members ...*syntax.PropertyDecl) *syntax.File {
	return &syntax.File{
		Path: testFile,
		Decls: []syntax.Node{&syntax.ClassDecl{
			At:      at(3, 1),
			Name:    "EventEffects",
			Members: members,
		}},
	}
}

func TestBuildDecoratedEffects(t *testing.T) {
	t.Parallel()

	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "fetchEvents", Decorators: []syntax.Node{effect()}, Initializer: pipeline("FETCH_EVENTS", "FETCH_EVENT")},
		&syntax.PropertyDecl{At: at(9, 3), Name: "helper", Initializer: pipeline("IGNORED", "IGNORED")},
		&syntax.PropertyDecl{At: at(12, 3), Name: "fetchEvent", Decorators: []syntax.Node{id("Effect")}, Initializer: pipeline("FETCH_EVENT", "EDIT_EVENT")},
	)

	got := newBuilder(f).Build([]*syntax.File{f})
	want := []model.EffectMapping{
		{
			Name:        "fetchEvents",
			InputTypes:  model.Lits("FETCH_EVENTS"),
			ReturnTypes: model.Lits("FETCH_EVENT"),
			Location:    model.SourceLocation{Path: testFile, Line: 5, Column: 3},
		},
		{
			Name:        "fetchEvent",
			InputTypes:  model.Lits("FETCH_EVENT"),
			ReturnTypes: model.Lits("EDIT_EVENT"),
			Location:    model.SourceLocation{Path: testFile, Line: 12, Column: 3},
		},
	}
	assert.Equal(t, want, got)
}

func TestDispatchSuppressedIsVoid(t *testing.T) {
	t.Parallel()

	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "log", Decorators: []syntax.Node{effect(noDispatch())}, Initializer: pipeline("LOG", "SHOULD_NOT_APPEAR")},
		&syntax.PropertyDecl{At: at(8, 3), Name: "declared", Decorators: []syntax.Node{effect()}},
	)

	got := newBuilder(f).Build([]*syntax.File{f})
	require.Len(t, got, 2)
	assert.Equal(t, []model.Token{model.Void}, got[0].ReturnTypes)
	assert.Equal(t, model.Lits("LOG"), got[0].InputTypes)
	assert.True(t, got[0].Suppressed())

	assert.Equal(t, []model.Token{model.Void}, got[1].ReturnTypes)
	assert.Equal(t, []model.Token{}, got[1].InputTypes)
}

func TestUnknownsArePreserved(t *testing.T) {
	t.Parallel()

	init := method(method(actions(), "ofType", str("SAVE")), "switchMap",
		arrow(call(&syntax.Opaque{Kind: "subscript_expression"})))
	f := effectsFile(&syntax.PropertyDecl{At: at(5, 3), Name: "save", Decorators: []syntax.Node{effect()}, Initializer: init})

	got := newBuilder(f).Build([]*syntax.File{f})
	require.Len(t, got, 1)
	assert.Equal(t, []model.Token{model.Unknown}, got[0].ReturnTypes)
}

func TestFactoryEffects(t *testing.T) {
	t.Parallel()

	pipe := method(actions(), "pipe",
		call(id("ofType"), str("LOGIN")),
		call(id("map"), arrow(action(str("LOGIN_SUCCESS")))),
	)
	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "login", Initializer: call(id("createEffect"), arrow(pipe))},
		&syntax.PropertyDecl{At: at(9, 3), Name: "logout", Initializer: call(id("createEffect"), arrow(pipe), noDispatch())},
		&syntax.PropertyDecl{At: at(12, 3), Name: "empty", Initializer: call(id("createEffect"))},
	)

	got := newBuilder(f).Build([]*syntax.File{f})
	require.Len(t, got, 3)
	assert.Equal(t, model.Lits("LOGIN"), got[0].InputTypes)
	assert.Equal(t, model.Lits("LOGIN_SUCCESS"), got[0].ReturnTypes)
	assert.Equal(t, []model.Token{model.Void}, got[1].ReturnTypes)
	assert.Equal(t, []model.Token{model.Unknown}, got[2].ReturnTypes)
}

func TestQualifiedFactoryEffects(t *testing.T) {
	t.Parallel()

	fx := id("fx")
	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "load", Initializer: method(fx, "createEffect", arrow(pipeline("LOAD", "LOADED")))},
		&syntax.PropertyDecl{At: at(9, 3), Name: "audit", Initializer: method(fx, "createEffect", arrow(pipeline("LOADED", "AUDITED")), noDispatch())},
		&syntax.PropertyDecl{At: at(12, 3), Name: "other", Initializer: method(fx, "somethingElse", arrow(pipeline("X", "Y")))},
	)

	got := newBuilder(f).Build([]*syntax.File{f})
	require.Len(t, got, 2)
	assert.Equal(t, "load", got[0].Name)
	assert.Equal(t, model.Lits("LOADED"), got[0].ReturnTypes)
	assert.Equal(t, "audit", got[1].Name)
	assert.Equal(t, []model.Token{model.Void}, got[1].ReturnTypes)
}

func TestFactoriesDisabled(t *testing.T) {
	t.Parallel()

	f := effectsFile(&syntax.PropertyDecl{At: at(5, 3), Name: "login", Initializer: call(id("createEffect"), arrow(pipeline("A", "B")))})
	assert.Empty(t, newBuilder(f, WithFactories()).Build([]*syntax.File{f}))
}

func TestCustomMarker(t *testing.T) {
	t.Parallel()

	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "a", Decorators: []syntax.Node{call(id("Saga"))}, Initializer: pipeline("A", "B")},
		&syntax.PropertyDecl{At: at(7, 3), Name: "b", Decorators: []syntax.Node{effect()}, Initializer: pipeline("B", "C")},
	)
	got := newBuilder(f, WithMarker("Saga")).Build([]*syntax.File{f})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestFileThenDeclarationOrder(t *testing.T) {
	t.Parallel()

	mk := func(path, name string) *syntax.File {
		return &syntax.File{Path: path, Decls: []syntax.Node{
			&syntax.VarDecl{Name: "unrelated", Initializer: str("x")},
			&syntax.ClassDecl{Name: "C", Members: []*syntax.PropertyDecl{
				{Name: name + "1", Decorators: []syntax.Node{effect()}, Initializer: pipeline("A", "B")},
				{Name: name + "2", Decorators: []syntax.Node{effect()}, Initializer: pipeline("B", "C")},
			}},
		}}
	}
	files := []*syntax.File{mk("/b.ts", "b"), mk("/a.ts", "a")}

	got := New(eval.New(resolve.NewProgram(files))).Build(files)
	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"b1", "b2", "a1", "a2"}, names)
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	f := effectsFile(
		&syntax.PropertyDecl{At: at(5, 3), Name: "x", Decorators: []syntax.Node{effect()}, Initializer: pipeline("A", "B")},
		&syntax.PropertyDecl{At: at(8, 3), Name: "y", Decorators: []syntax.Node{effect()}, Initializer: pipeline("B", "A")},
	)
	b := newBuilder(f)

	first, err := json.Marshal(b.Build([]*syntax.File{f}))
	require.NoError(t, err)
	second, err := json.Marshal(b.Build([]*syntax.File{f}))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.JSONEq(t, `[
		{"name":"x","inputTypes":["A"],"returnTypes":["B"],"fileInfo":"/app/event.effects.ts:5:3"},
		{"name":"y","inputTypes":["B"],"returnTypes":["A"],"fileInfo":"/app/event.effects.ts:8:3"}
	]`, string(first))
}
