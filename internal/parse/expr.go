package parse

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/effectflow/internal/syntax"
)

// expr converts an expression. Kinds without a syntax counterpart become
// *syntax.Opaque carrying the grammar's node type.
func (c *converter) expr(n *sitter.Node) syntax.Node {
	at := c.pos(n)
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		return &syntax.Ident{At: at, Name: c.text(n)}
	case "this":
		return &syntax.This{At: at}
	case "string":
		return &syntax.String{At: at, Value: c.stringValue(n)}
	case "template_string":
		if len(namedChildren(n, "template_substitution")) > 0 {
			return &syntax.Opaque{At: at, Kind: n.Type()}
		}
		s := c.text(n)
		return &syntax.String{At: at, Value: s[1 : len(s)-1]}
	case "true":
		return &syntax.Bool{At: at, Value: true}
	case "false":
		return &syntax.Bool{At: at, Value: false}
	case "parenthesized_expression":
		inner := namedChildren(n, "")
		if len(inner) != 1 {
			return &syntax.Opaque{At: at, Kind: n.Type()}
		}
		return &syntax.Paren{At: at, Expr: c.expr(inner[0])}
	case "as_expression", "satisfies_expression", "non_null_expression":
		if n.NamedChildCount() == 0 {
			return &syntax.Opaque{At: at, Kind: n.Type()}
		}
		return c.expr(n.NamedChild(0))
	case "type_assertion":
		// <T>expr
		if n.NamedChildCount() == 0 {
			return &syntax.Opaque{At: at, Kind: n.Type()}
		}
		return c.expr(n.NamedChild(int(n.NamedChildCount()) - 1))
	case "call_expression":
		return c.call(n)
	case "new_expression":
		nw := &syntax.New{At: at}
		if ctor := n.ChildByFieldName("constructor"); ctor != nil {
			nw.Callee = c.expr(ctor)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			nw.Args = c.args(args)
		}
		return nw
	case "member_expression":
		m := &syntax.Member{At: at}
		if obj := n.ChildByFieldName("object"); obj != nil {
			m.Object = c.expr(obj)
		}
		if prop := n.ChildByFieldName("property"); prop != nil {
			m.Property = c.text(prop)
		}
		return m
	case "arrow_function", "function", "function_expression", "generator_function":
		return c.function(n)
	case "object":
		return c.object(n)
	case "array":
		arr := &syntax.Array{At: at}
		for _, el := range namedChildren(n, "") {
			arr.Elements = append(arr.Elements, c.expr(el))
		}
		return arr
	}
	return &syntax.Opaque{At: at, Kind: n.Type()}
}

func (c *converter) call(n *sitter.Node) *syntax.Call {
	call := &syntax.Call{At: c.pos(n)}
	if fn := n.ChildByFieldName("function"); fn != nil {
		call.Callee = c.expr(fn)
	}
	if targs := n.ChildByFieldName("type_arguments"); targs != nil {
		call.TypeArgs = c.typeNames(targs, nil)
	} else if targs := namedChildren(n, "type_arguments"); len(targs) > 0 {
		call.TypeArgs = c.typeNames(targs[0], nil)
	}
	if args := n.ChildByFieldName("arguments"); args != nil && args.Type() == "arguments" {
		call.Args = c.args(args)
	}
	return call
}

// typeNames flattens type arguments and unions (`ofType<A | B>`) into the
// class names they list.
func (c *converter) typeNames(n *sitter.Node, out []string) []string {
	for _, t := range namedChildren(n, "") {
		switch t.Type() {
		case "type_identifier":
			out = append(out, c.text(t))
		case "union_type", "parenthesized_type":
			out = c.typeNames(t, out)
		case "nested_type_identifier":
			if name := t.ChildByFieldName("name"); name != nil {
				out = append(out, c.text(name))
			}
		case "generic_type":
			if name := t.ChildByFieldName("name"); name != nil && name.Type() == "type_identifier" {
				out = append(out, c.text(name))
			}
		default:
			// typeof X, literal types and the like carry no class name.
			out = append(out, "")
		}
	}
	return out
}

func (c *converter) args(n *sitter.Node) []syntax.Node {
	var out []syntax.Node
	for _, a := range namedChildren(n, "") {
		if a.Type() == "comment" {
			continue
		}
		out = append(out, c.expr(a))
	}
	return out
}

func (c *converter) object(n *sitter.Node) *syntax.Object {
	obj := &syntax.Object{At: c.pos(n)}
	for _, p := range namedChildren(n, "") {
		switch p.Type() {
		case "pair":
			key := p.ChildByFieldName("key")
			value := p.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			if key.Type() == "computed_property_name" {
				continue
			}
			obj.Props = append(obj.Props, &syntax.Property{At: c.pos(p), Key: c.propertyName(key), Value: c.expr(value)})
		case "shorthand_property_identifier":
			obj.Props = append(obj.Props, &syntax.Property{At: c.pos(p), Key: c.text(p), Value: c.expr(p)})
		}
	}
	return obj
}

// function converts a function-like node. A block body contributes every
// return statement in source order; nested functions are not entered.
func (c *converter) function(n *sitter.Node) *syntax.Function {
	fn := &syntax.Function{At: c.pos(n)}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Params = c.params(params)
	} else if p := n.ChildByFieldName("parameter"); p != nil {
		fn.Params = []*syntax.Param{{At: c.pos(p), Name: c.text(p)}}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return fn
	}
	if body.Type() != "statement_block" {
		fn.Body = c.expr(body)
		return fn
	}
	fn.Block = true
	c.returns(body, fn)
	return fn
}

var nestedScopes = map[string]struct{}{
	"arrow_function":                 {},
	"function":                       {},
	"function_expression":            {},
	"function_declaration":           {},
	"generator_function":             {},
	"generator_function_declaration": {},
	"method_definition":              {},
	"class":                          {},
	"class_declaration":              {},
}

func (c *converter) returns(n *sitter.Node, fn *syntax.Function) {
	for _, ch := range namedChildren(n, "") {
		if ch.Type() == "return_statement" {
			r := &syntax.Return{At: c.pos(ch)}
			for _, v := range namedChildren(ch, "") {
				if v.Type() != "comment" {
					r.Value = c.expr(v)
					break
				}
			}
			fn.Returns = append(fn.Returns, r)
			continue
		}
		if _, nested := nestedScopes[ch.Type()]; nested {
			continue
		}
		c.returns(ch, fn)
	}
}

// stringValue returns a string literal's value with quotes removed and
// escapes decoded.
func (c *converter) stringValue(n *sitter.Node) string {
	if n.NamedChildCount() == 0 {
		s := c.text(n)
		if len(s) >= 2 {
			return s[1 : len(s)-1]
		}
		return ""
	}
	var b strings.Builder
	for _, ch := range namedChildren(n, "") {
		switch ch.Type() {
		case "string_fragment":
			b.WriteString(c.text(ch))
		case "escape_sequence":
			esc := c.text(ch)
			if s, err := strconv.Unquote(`"` + esc + `"`); err == nil {
				b.WriteString(s)
			} else {
				b.WriteString(strings.TrimPrefix(esc, `\`))
			}
		}
	}
	return b.String()
}
