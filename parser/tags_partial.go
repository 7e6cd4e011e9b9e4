package parser

import "github.com/liquidgo/liquid/lexer"

// IncludeNode is `{% include "name" [with expr] [for expr] [, key: val...] %}`
// (spec §4.5): the included template renders against the CURRENT scope.
type IncludeNode struct {
	nodeBase
	Template  Expression
	With      Expression
	WithAlias string
	For       Expression
	ForAlias  string
	Args      []FilterArg
}

// RenderNode is `{% render "name" ... %}`: like Include, but the rendered
// template gets an isolated scope containing only its explicit arguments
// (spec §4.5 "Render isolates scope").
type RenderNode struct {
	nodeBase
	Template  Expression
	With      Expression
	WithAlias string
	For       Expression
	ForAlias  string
	Args      []FilterArg
}

func parsePartialArgs(ep *ExprParser) (with, forExpr Expression, withAlias, forAlias string, args []FilterArg, err error) {
	for {
		switch ep.cur().Type {
		case lexer.WITH:
			ep.advance()
			with, err = ep.ParsePrimitive()
			if err != nil {
				return
			}
			if ep.cur().Type == lexer.AS {
				ep.advance()
				var n lexer.Token
				n, err = ep.expect(lexer.WORD)
				if err != nil {
					return
				}
				withAlias = n.Value
			}
		case lexer.FOR:
			ep.advance()
			forExpr, err = ep.ParsePrimitive()
			if err != nil {
				return
			}
			if ep.cur().Type == lexer.AS {
				ep.advance()
				var n lexer.Token
				n, err = ep.expect(lexer.WORD)
				if err != nil {
					return
				}
				forAlias = n.Value
			}
		case lexer.COMMA:
			ep.advance()
		case lexer.WORD:
			if !ep.peekIsColon() {
				err = newSyntaxError(ep.span(ep.cur()), "unexpected token %q in tag arguments", ep.cur().Value)
				return
			}
			name := ep.advance()
			ep.advance() // colon
			var v Expression
			v, err = ep.ParsePrimitive()
			if err != nil {
				return
			}
			args = append(args, FilterArg{Name: name.Value, Value: v})
		default:
			return
		}
	}
}

type includeTag struct{}

func (includeTag) Name() string  { return "include" }
func (includeTag) End() string   { return "" }
func (includeTag) IsBlock() bool { return false }

func (includeTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	tmplExpr, err := ep.ParsePrimitive()
	if err != nil {
		return nil, err
	}
	with, forExpr, withAlias, forAlias, kwargs, err := parsePartialArgs(ep)
	if err != nil {
		return nil, err
	}
	return &IncludeNode{
		nodeBase: nodeBase{span: p.Span(tok)}, Template: tmplExpr,
		With: with, WithAlias: withAlias, For: forExpr, ForAlias: forAlias, Args: kwargs,
	}, nil
}

type renderTag struct{}

func (renderTag) Name() string  { return "render" }
func (renderTag) End() string   { return "" }
func (renderTag) IsBlock() bool { return false }

func (renderTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	tmplExpr, err := ep.ParsePrimitive()
	if err != nil {
		return nil, err
	}
	with, forExpr, withAlias, forAlias, kwargs, err := parsePartialArgs(ep)
	if err != nil {
		return nil, err
	}
	return &RenderNode{
		nodeBase: nodeBase{span: p.Span(tok)}, Template: tmplExpr,
		With: with, WithAlias: withAlias, For: forExpr, ForAlias: forAlias, Args: kwargs,
	}, nil
}

func registerPartialTags(r *Registry) {
	r.Register(includeTag{})
	r.Register(renderTag{})
}
