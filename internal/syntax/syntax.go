// Package syntax is the closed set of syntax node kinds the analyzers consume.
//
// Every variant implements Node through an unexported marker method, so the
// set cannot grow outside this package and consumers can switch over it
// exhaustively with a single default arm.
package syntax

// Position is a 1-based location in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is implemented by every syntax variant.
type Node interface {
	Pos() Position
	isNode()
}

// File is one parsed source file.
type File struct {
	Path    string
	Imports []*Import
	Exports []*Export
	// Decls holds top-level declarations in source order: *ClassDecl,
	// *VarDecl, *FuncDecl and *EnumDecl.
	Decls []Node
}

// Import binds Local to Imported from Module. Imported is "default" for a
// default import and "*" for a namespace import.
type Import struct {
	Local    string
	Imported string
	Module   string
}

// Export publishes Local under Exported. Module is set for re-exports; an
// `export * from` clause has Local and Exported both "*".
type Export struct {
	Local    string
	Exported string
	Module   string
}

// ClassDecl is a class declaration.
type ClassDecl struct {
	At          Position
	Name        string
	Extends     Node
	Decorators  []Node
	Members     []*PropertyDecl
	Constructor *Constructor
}

// Member returns the instance field named name, falling back to a
// constructor parameter property. It returns nil when neither exists.
func (c *ClassDecl) Member(name string) Node {
	for _, m := range c.Members {
		if m.Name == name && !m.Static {
			return m
		}
	}
	if c.Constructor != nil {
		for _, p := range c.Constructor.Params {
			if p.Name == name && p.Property {
				return p
			}
		}
	}
	return nil
}

// Static returns the static field named name, or nil.
func (c *ClassDecl) Static(name string) *PropertyDecl {
	for _, m := range c.Members {
		if m.Name == name && m.Static {
			return m
		}
	}
	return nil
}

// Constructor holds a class constructor's parameter list.
type Constructor struct {
	At     Position
	Params []*Param
}

// ParamIndex returns the position of the parameter named name, or -1.
func (c *Constructor) ParamIndex(name string) int {
	if c == nil {
		return -1
	}
	for i, p := range c.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// PropertyDecl is a class field.
type PropertyDecl struct {
	At          Position
	Name        string
	Static      bool
	Decorators  []Node
	Initializer Node
}

// Param is a function or constructor parameter. Property is set when the
// parameter carries an accessibility or readonly modifier.
type Param struct {
	At       Position
	Name     string
	Index    int
	Property bool
}

// VarDecl is a const, let or var declarator.
type VarDecl struct {
	At          Position
	Name        string
	Initializer Node
}

// FuncDecl is a named function declaration.
type FuncDecl struct {
	At   Position
	Name string
	Func *Function
}

// EnumDecl is an enum declaration.
type EnumDecl struct {
	At      Position
	Name    string
	Members []*EnumMember
}

// Member returns the enum member named name, or nil.
func (e *EnumDecl) Member(name string) *EnumMember {
	for _, m := range e.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// EnumMember is one enum entry; Initializer is nil for implicit values.
type EnumMember struct {
	At          Position
	Name        string
	Initializer Node
}

// Namespace is what a namespace import resolves to.
type Namespace struct {
	At   Position
	Path string
}

// Function is an arrow function, function expression or function declaration
// body. Exactly one of Body and Returns is meaningful: Body for an expression
// body, Returns for a block body.
type Function struct {
	At      Position
	Params  []*Param
	Body    Node
	Block   bool
	Returns []*Return
}

// Return is a return statement; Value is nil for a bare return.
type Return struct {
	At    Position
	Value Node
}

// Call is a call expression.
type Call struct {
	At       Position
	Callee   Node
	TypeArgs []string
	Args     []Node
}

// New is a construction expression.
type New struct {
	At     Position
	Callee Node
	Args   []Node
}

// Member is a property access.
type Member struct {
	At       Position
	Object   Node
	Property string
}

// Object is an object literal.
type Object struct {
	At    Position
	Props []*Property
}

// Prop returns the last property keyed name, or nil.
func (o *Object) Prop(name string) *Property {
	var found *Property
	for _, p := range o.Props {
		if p.Key == name {
			found = p
		}
	}
	return found
}

// Property is a key/value member of an object literal. Shorthand
// properties carry an *Ident value.
type Property struct {
	At    Position
	Key   string
	Value Node
}

// Array is an array literal.
type Array struct {
	At       Position
	Elements []Node
}

// Paren is a parenthesized expression.
type Paren struct {
	At   Position
	Expr Node
}

// Ident is an identifier reference. Its position's File is the scope it
// resolves in.
type Ident struct {
	At   Position
	Name string
}

// String is a string literal with quotes and escapes removed.
type String struct {
	At    Position
	Value string
}

// Bool is a true or false literal.
type Bool struct {
	At    Position
	Value bool
}

// This is the `this` keyword.
type This struct {
	At Position
}

// Opaque stands for any construct the analyzers do not model. Kind is the
// grammar's name for it.
type Opaque struct {
	At   Position
	Kind string
}

func (n *ClassDecl) Pos() Position    { return n.At }
func (n *Constructor) Pos() Position  { return n.At }
func (n *PropertyDecl) Pos() Position { return n.At }
func (n *Param) Pos() Position        { return n.At }
func (n *VarDecl) Pos() Position      { return n.At }
func (n *FuncDecl) Pos() Position     { return n.At }
func (n *EnumDecl) Pos() Position     { return n.At }
func (n *EnumMember) Pos() Position   { return n.At }
func (n *Namespace) Pos() Position    { return n.At }
func (n *Function) Pos() Position     { return n.At }
func (n *Return) Pos() Position       { return n.At }
func (n *Call) Pos() Position         { return n.At }
func (n *New) Pos() Position          { return n.At }
func (n *Member) Pos() Position       { return n.At }
func (n *Object) Pos() Position       { return n.At }
func (n *Property) Pos() Position     { return n.At }
func (n *Array) Pos() Position        { return n.At }
func (n *Paren) Pos() Position        { return n.At }
func (n *Ident) Pos() Position        { return n.At }
func (n *String) Pos() Position       { return n.At }
func (n *Bool) Pos() Position         { return n.At }
func (n *This) Pos() Position         { return n.At }
func (n *Opaque) Pos() Position       { return n.At }

// Interface markers.
func (*ClassDecl) isNode()    {}
func (*Constructor) isNode()  {}
func (*PropertyDecl) isNode() {}
func (*Param) isNode()        {}
func (*VarDecl) isNode()      {}
func (*FuncDecl) isNode()     {}
func (*EnumDecl) isNode()     {}
func (*EnumMember) isNode()   {}
func (*Namespace) isNode()    {}
func (*Function) isNode()     {}
func (*Return) isNode()       {}
func (*Call) isNode()         {}
func (*New) isNode()          {}
func (*Member) isNode()       {}
func (*Object) isNode()       {}
func (*Property) isNode()     {}
func (*Array) isNode()        {}
func (*Paren) isNode()        {}
func (*Ident) isNode()        {}
func (*String) isNode()       {}
func (*Bool) isNode()         {}
func (*This) isNode()         {}
func (*Opaque) isNode()       {}

// DeclName returns the declared name of a top-level declaration, or "".
func DeclName(n Node) string {
	switch d := n.(type) {
	case *ClassDecl:
		return d.Name
	case *VarDecl:
		return d.Name
	case *FuncDecl:
		return d.Name
	case *EnumDecl:
		return d.Name
	}
	return ""
}

// CalleeName returns the name a call's callee refers to: the identifier
// itself or the property of a member access.
func CalleeName(n Node) string {
	switch c := n.(type) {
	case *Ident:
		return c.Name
	case *Member:
		return c.Property
	case *Paren:
		return CalleeName(c.Expr)
	}
	return ""
}
