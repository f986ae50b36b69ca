// Package render writes analysis results for people (indented text) and for
// tools (JSON).
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/phobologic/effectflow/internal/model"
)

var bullets = []string{"-", "+", "•"}

const rule = "////////////////////////////"

var (
	actionStyle = color.New(color.OpBold)
	originStyle = color.New(color.FgYellow)
	fileStyle   = color.New(color.FgBlue, color.OpItalic)
	warnStyle   = color.New(color.FgYellow, color.OpBold)
)

// Renderer writes console output to one writer.
type Renderer struct {
	w     io.Writer
	color bool
}

// New returns a Renderer. With useColor false no escape codes are written.
func New(w io.Writer, useColor bool) *Renderer {
	return &Renderer{w: w, color: useColor}
}

func (r *Renderer) paint(s color.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Sprint(text)
}

// Forest writes the header, which counts trees, and one block per root. A
// root's handlers start at depth one; every nested level is indented three
// spaces.
func (r *Renderer) Forest(forest []*model.EffectTreeNode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nTotal number of effects: %d\n%s\n", rule, len(forest), rule)

	for _, root := range forest {
		b.WriteString("\n")
		for _, n := range root.Children {
			r.node(&b, n, 1)
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) node(b *strings.Builder, n *model.EffectTreeNode, depth int) {
	b.WriteString(strings.Repeat("   ", depth-1))
	b.WriteString(bullets[depth%len(bullets)])
	b.WriteString(" > ")

	name := n.TriggeringType
	if n.Kind == model.NodeUnresolved {
		name = model.Unknown.String()
	}
	loc := n.SourceLocation
	if loc == "" {
		loc = "-"
	}
	fmt.Fprintf(b, "%s from %s [ %s ]\n",
		r.paint(actionStyle, name),
		r.paint(originStyle, n.OriginName),
		r.paint(fileStyle, loc))

	for _, c := range n.Children {
		r.node(b, c, depth+1)
	}
}

// Summary writes run counts and near-miss suggestions.
func (r *Renderer) Summary(s model.Summary, suggestions []model.Suggestion) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%d files, %d effects, %d actions, %d suppressed, %d unresolved\n",
		s.Files, s.Effects, s.Roots, s.Suppressed, s.Unknown)
	for _, sg := range suggestions {
		fmt.Fprintf(&b, "%s %q dispatched by %s has no handler; did you mean %q?\n",
			r.paint(warnStyle, "warning:"), sg.Action, sg.Origin, sg.Nearest)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

// JSON writes v indented by four spaces.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
