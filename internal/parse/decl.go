package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/effectflow/internal/syntax"
)

// statement converts one top-level statement, appending what it declares,
// imports and exports to f. Statements that declare nothing are ignored.
func (c *converter) statement(f *syntax.File, n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		c.importStatement(f, n)
	case "export_statement":
		c.exportStatement(f, n)
	case "ambient_declaration":
		// declare const X: ...; declare enum E {...}
		for _, ch := range namedChildren(n, "") {
			c.statement(f, ch)
		}
	default:
		f.Decls = append(f.Decls, c.declaration(n, nil)...)
	}
}

// declaration converts a declaration node. Decorators that precede an
// `export` keyword are passed in by the export statement.
func (c *converter) declaration(n *sitter.Node, decorators []syntax.Node) []syntax.Node {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		return []syntax.Node{c.class(n, decorators)}
	case "lexical_declaration", "variable_declaration":
		var out []syntax.Node
		for _, d := range namedChildren(n, "variable_declarator") {
			name := d.ChildByFieldName("name")
			if name == nil || name.Type() != "identifier" {
				continue // destructuring
			}
			v := &syntax.VarDecl{At: c.pos(name), Name: c.text(name)}
			if value := d.ChildByFieldName("value"); value != nil {
				v.Initializer = c.expr(value)
			}
			out = append(out, v)
		}
		return out
	case "function_declaration", "generator_function_declaration":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return []syntax.Node{&syntax.FuncDecl{At: c.pos(name), Name: c.text(name), Func: c.function(n)}}
	case "enum_declaration":
		return []syntax.Node{c.enum(n)}
	}
	return nil
}

func (c *converter) importStatement(f *syntax.File, n *sitter.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	module := c.stringValue(src)
	for _, clause := range namedChildren(n, "import_clause") {
		for _, ch := range namedChildren(clause, "") {
			switch ch.Type() {
			case "identifier":
				f.Imports = append(f.Imports, &syntax.Import{Local: c.text(ch), Imported: "default", Module: module})
			case "namespace_import":
				if id := namedChildren(ch, "identifier"); len(id) > 0 {
					f.Imports = append(f.Imports, &syntax.Import{Local: c.text(id[0]), Imported: "*", Module: module})
				}
			case "named_imports":
				for _, spec := range namedChildren(ch, "import_specifier") {
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					f.Imports = append(f.Imports, &syntax.Import{Local: c.text(local), Imported: c.text(name), Module: module})
				}
			}
		}
	}
}

func (c *converter) exportStatement(f *syntax.File, n *sitter.Node) {
	module := ""
	if src := n.ChildByFieldName("source"); src != nil {
		module = c.stringValue(src)
	}
	isDefault := hasToken(n, "default")

	var decorators []syntax.Node
	for _, d := range namedChildren(n, "decorator") {
		decorators = append(decorators, c.decorator(d))
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		decls := c.declaration(decl, decorators)
		f.Decls = append(f.Decls, decls...)
		for _, d := range decls {
			name := syntax.DeclName(d)
			exported := name
			if isDefault {
				exported = "default"
			}
			f.Exports = append(f.Exports, &syntax.Export{Local: name, Exported: exported})
		}
		return
	}
	if value := n.ChildByFieldName("value"); value != nil {
		// export default <expression>
		f.Decls = append(f.Decls, &syntax.VarDecl{At: c.pos(value), Name: "default", Initializer: c.expr(value)})
		f.Exports = append(f.Exports, &syntax.Export{Local: "default", Exported: "default"})
		return
	}

	for _, ch := range namedChildren(n, "") {
		switch ch.Type() {
		case "export_clause":
			for _, spec := range namedChildren(ch, "export_specifier") {
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				exported := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = alias
				}
				f.Exports = append(f.Exports, &syntax.Export{Local: c.text(name), Exported: c.text(exported), Module: module})
			}
			return
		case "namespace_export":
			if id := namedChildren(ch, "identifier"); len(id) > 0 && module != "" {
				f.Exports = append(f.Exports, &syntax.Export{Local: "*", Exported: c.text(id[0]), Module: module})
			}
			return
		}
	}
	if module != "" && hasToken(n, "*") {
		f.Exports = append(f.Exports, &syntax.Export{Local: "*", Exported: "*", Module: module})
	}
}

func (c *converter) class(n *sitter.Node, decorators []syntax.Node) *syntax.ClassDecl {
	cls := &syntax.ClassDecl{At: c.pos(n), Decorators: decorators}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.At = c.pos(name)
		cls.Name = c.text(name)
	}
	for _, d := range namedChildren(n, "decorator") {
		cls.Decorators = append(cls.Decorators, c.decorator(d))
	}
	for _, h := range namedChildren(n, "class_heritage") {
		for _, ext := range namedChildren(h, "extends_clause") {
			value := ext.ChildByFieldName("value")
			if value == nil && ext.NamedChildCount() > 0 {
				value = ext.NamedChild(0)
			}
			if value != nil {
				cls.Extends = c.expr(value)
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	// Member decorators are children of the member in current grammars and
	// preceding siblings in older ones.
	var pending []syntax.Node
	for _, m := range namedChildren(body, "") {
		switch m.Type() {
		case "decorator":
			pending = append(pending, c.decorator(m))
		case "public_field_definition", "property_definition":
			cls.Members = append(cls.Members, c.field(m, pending))
			pending = nil
		case "method_definition":
			if name := m.ChildByFieldName("name"); name != nil && c.text(name) == "constructor" {
				cls.Constructor = c.constructor(m)
			}
			pending = nil
		default:
			pending = nil
		}
	}
	return cls
}

func (c *converter) field(n *sitter.Node, decorators []syntax.Node) *syntax.PropertyDecl {
	p := &syntax.PropertyDecl{At: c.pos(n), Decorators: decorators, Static: hasToken(n, "static")}
	for _, d := range namedChildren(n, "decorator") {
		p.Decorators = append(p.Decorators, c.decorator(d))
	}
	if name := n.ChildByFieldName("name"); name != nil {
		p.At = c.pos(name)
		p.Name = c.propertyName(name)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		p.Initializer = c.expr(value)
	}
	return p
}

func (c *converter) constructor(n *sitter.Node) *syntax.Constructor {
	ctor := &syntax.Constructor{At: c.pos(n)}
	if params := n.ChildByFieldName("parameters"); params != nil {
		ctor.Params = c.params(params)
	}
	return ctor
}

func (c *converter) params(n *sitter.Node) []*syntax.Param {
	var out []*syntax.Param
	for _, p := range namedChildren(n, "") {
		switch p.Type() {
		case "required_parameter", "optional_parameter":
		default:
			continue
		}
		param := &syntax.Param{At: c.pos(p), Index: len(out)}
		if pat := p.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
			param.Name = c.text(pat)
		}
		param.Property = len(namedChildren(p, "accessibility_modifier")) > 0 ||
			len(namedChildren(p, "override_modifier")) > 0 || hasToken(p, "readonly")
		out = append(out, param)
	}
	return out
}

func (c *converter) enum(n *sitter.Node) *syntax.EnumDecl {
	e := &syntax.EnumDecl{At: c.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		e.At = c.pos(name)
		e.Name = c.text(name)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return e
	}
	for _, m := range namedChildren(body, "") {
		switch m.Type() {
		case "enum_assignment":
			name := m.ChildByFieldName("name")
			if name == nil {
				continue
			}
			em := &syntax.EnumMember{At: c.pos(name), Name: c.propertyName(name)}
			if value := m.ChildByFieldName("value"); value != nil {
				em.Initializer = c.expr(value)
			}
			e.Members = append(e.Members, em)
		case "property_identifier", "string":
			e.Members = append(e.Members, &syntax.EnumMember{At: c.pos(m), Name: c.propertyName(m)})
		}
	}
	return e
}

// decorator converts the expression a decorator applies.
func (c *converter) decorator(n *sitter.Node) syntax.Node {
	if n.NamedChildCount() == 0 {
		return &syntax.Opaque{At: c.pos(n), Kind: n.Type()}
	}
	return c.expr(n.NamedChild(0))
}

// propertyName returns the name a property key denotes.
func (c *converter) propertyName(n *sitter.Node) string {
	if n.Type() == "string" {
		return c.stringValue(n)
	}
	return c.text(n)
}
