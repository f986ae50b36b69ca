// Package model defines core data structures for effectflow.
package model

import (
	"encoding/json"
	"fmt"
)

// TokenKind distinguishes a resolved literal from the evaluator's sentinels.
type TokenKind uint8

const (
	// Literal is a resolved action identifier.
	Literal TokenKind = iota
	// Unresolved marks a branch the evaluator could not reduce.
	Unresolved
	// DeclaredConstruct marks a value supplied through a constructor
	// argument. It is consumed by the evaluator and never leaves it.
	DeclaredConstruct
)

// Token is one element of an evaluated sequence.
type Token struct {
	Kind  TokenKind
	Value string
}

var (
	// Unknown is the explicit "could not tell" sentinel.
	Unknown = Token{Kind: Unresolved}
	// Void is the return sequence element of a handler whose dispatch is suppressed.
	Void = Lit("void")
	// Constructed is the constructor-supplied sentinel.
	Constructed = Token{Kind: DeclaredConstruct}
)

// Lit returns a literal token.
func Lit(s string) Token {
	return Token{Kind: Literal, Value: s}
}

// Lits converts strings to literal tokens.
func Lits(values ...string) []Token {
	out := make([]Token, len(values))
	for i, v := range values {
		out[i] = Lit(v)
	}
	return out
}

// IsLiteral reports whether t is a resolved identifier.
func (t Token) IsLiteral() bool {
	return t.Kind == Literal
}

func (t Token) String() string {
	switch t.Kind {
	case Literal:
		return t.Value
	case DeclaredConstruct:
		return "<constructor>"
	default:
		return "<unknown>"
	}
}

// MarshalJSON encodes literals as strings and every sentinel as null, so a
// legitimate identifier can never be mistaken for an unresolved branch.
func (t Token) MarshalJSON() ([]byte, error) {
	if t.Kind != Literal {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Token) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Unknown
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	*t = Lit(s)
	return nil
}

// SourceLocation points at a declaration in a source file. Line and Column are 1-based.
type SourceLocation struct {
	Path   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// EffectMapping is the record of one effect handler: what triggers it and
// what it may dispatch. ReturnTypes keeps branch discovery order; index 0 is
// the primary path.
type EffectMapping struct {
	Name        string
	InputTypes  []Token
	ReturnTypes []Token
	Location    SourceLocation
}

type mappingJSON struct {
	Name        string  `json:"name"`
	InputTypes  []Token `json:"inputTypes"`
	ReturnTypes []Token `json:"returnTypes"`
	FileInfo    string  `json:"fileInfo"`
}

// MarshalJSON emits the mapping with its location flattened to path:line:column.
func (m EffectMapping) MarshalJSON() ([]byte, error) {
	in := m.InputTypes
	if in == nil {
		in = []Token{}
	}
	out := m.ReturnTypes
	if out == nil {
		out = []Token{}
	}
	return json.Marshal(mappingJSON{
		Name:        m.Name,
		InputTypes:  in,
		ReturnTypes: out,
		FileInfo:    m.Location.String(),
	})
}

// Suppressed reports whether the mapping is the dispatch-suppressed form.
func (m EffectMapping) Suppressed() bool {
	return len(m.ReturnTypes) == 1 && m.ReturnTypes[0] == Void
}

// NodeKind classifies a forest node.
type NodeKind string

const (
	NodeRoot       NodeKind = "root"
	NodeEffect     NodeKind = "effect"
	NodeUnhandled  NodeKind = "unhandled"
	NodeCycle      NodeKind = "cycle"
	NodeUnresolved NodeKind = "unresolved"
)

// Synthetic origin names of terminal nodes.
const (
	NoFurtherEffect = "no further effect"
	CycleOrigin     = "cycle"
	UnknownOrigin   = "unresolved"
)

// EffectTreeNode is one node of the reachability forest.
type EffectTreeNode struct {
	Kind           NodeKind
	TriggeringType string
	OriginName     string
	SourceLocation string
	Children       []*EffectTreeNode
}

type treeObjectJSON struct {
	From     string `json:"from"`
	FileInfo string `json:"fileInfo"`
}

type treeNodeJSON struct {
	Name     string            `json:"name"`
	Kind     NodeKind          `json:"kind"`
	Object   *treeObjectJSON   `json:"object,omitempty"`
	Children []*EffectTreeNode `json:"children"`
}

// MarshalJSON emits the node in the name/object/children tree shape.
func (n *EffectTreeNode) MarshalJSON() ([]byte, error) {
	out := treeNodeJSON{
		Name:     n.TriggeringType,
		Kind:     n.Kind,
		Children: n.Children,
	}
	if out.Children == nil {
		out.Children = []*EffectTreeNode{}
	}
	if n.Kind != NodeRoot {
		loc := n.SourceLocation
		if loc == "" {
			loc = "-"
		}
		out.Object = &treeObjectJSON{From: n.OriginName, FileInfo: loc}
	}
	return json.Marshal(out)
}

// Summary aggregates a run for reporting.
type Summary struct {
	Files      int `json:"files"`
	Effects    int `json:"effects"`
	Roots      int `json:"roots"`
	Suppressed int `json:"suppressed"`
	Unknown    int `json:"unknown"`
}

// Summarize counts mappings, roots and unresolved tokens.
func Summarize(files int, mappings []EffectMapping, forest []*EffectTreeNode) Summary {
	s := Summary{Files: files, Effects: len(mappings), Roots: len(forest)}
	for i := range mappings {
		m := &mappings[i]
		if m.Suppressed() {
			s.Suppressed++
		}
		for _, t := range m.InputTypes {
			if !t.IsLiteral() {
				s.Unknown++
			}
		}
		for _, t := range m.ReturnTypes {
			if !t.IsLiteral() {
				s.Unknown++
			}
		}
	}
	return s
}

// Suggestion flags a dispatched action nobody handles that is a near miss
// for an action somebody does handle.
type Suggestion struct {
	Action   string `json:"action"`
	Nearest  string `json:"nearest"`
	Distance int    `json:"distance"`
	Origin   string `json:"origin"`
}
