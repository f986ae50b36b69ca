package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".ts", "typescript"},
		{".tsx", "tsx"},
		{".mts", "typescript"},
		{".js", ""},
		{".py", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ForExtension(tt.ext))
		})
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()

	l := ForPath("src/app/EVENTS.EFFECTS.TS")
	require.NotNil(t, l)
	assert.Equal(t, "typescript", l.Name)

	l = ForPath("component.tsx")
	require.NotNil(t, l)
	assert.Equal(t, "tsx", l.Name)

	assert.Nil(t, ForPath("Makefile"))
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"typescript", "tsx"} {
		l, ok := Languages[name]
		require.True(t, ok, "%s language not registered", name)
		assert.NotNil(t, l.GetLanguage(), name)
	}
}

func TestExtensions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{".cts", ".mts", ".ts", ".tsx"}, Extensions())
}

func TestNewParserAndNodeText(t *testing.T) {
	t.Parallel()

	src := []byte("const LOGIN = 'LOGIN';")
	p := Languages["typescript"].NewParser()
	require.NotNil(t, p)
	tree, err := p.ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	require.False(t, root.HasError(), "unexpected parse error")
	assert.Equal(t, string(src), NodeText(root, src))
}
