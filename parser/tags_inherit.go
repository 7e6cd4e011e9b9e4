package parser

import "github.com/liquidgo/liquid/lexer"

// ExtendsNode is `{% extends "base" %}` (spec §4.5 template inheritance):
// must be the template's only top-level tag besides blocks/content.
type ExtendsNode struct {
	nodeBase
	Template Expression
}

// BlockNode is `{% block name [required] %}...{% endblock %}`. Required
// blocks must be overridden by every leaf template in the inheritance chain
// (spec §4.9 RequiredBlockError).
type BlockNode struct {
	nodeBase
	Name     string
	Required bool
	Body     []Node
}

type extendsTag struct{}

func (extendsTag) Name() string  { return "extends" }
func (extendsTag) End() string   { return "" }
func (extendsTag) IsBlock() bool { return false }

func (extendsTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	tmplExpr, err := p.ExprParserFor(args, base).ParsePrimitive()
	if err != nil {
		return nil, err
	}
	return &ExtendsNode{nodeBase{span: p.Span(tok)}, tmplExpr}, nil
}

type blockTag struct{}

func (blockTag) Name() string  { return "block" }
func (blockTag) End() string   { return "endblock" }
func (blockTag) IsBlock() bool { return true }

func (blockTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	nameTok, err := ep.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	required := false
	if ep.cur().Type == lexer.WORD && ep.cur().Value == "required" {
		ep.advance()
		required = true
	}
	body, stop, err := p.ParseUntil("endblock")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endblock\"")
	}
	p.ConsumeTagArgs() // endblock's optional trailing name is not checked
	return &BlockNode{nodeBase: nodeBase{span: p.Span(tok)}, Name: nameTok.Value, Required: required, Body: body}, nil
}

func registerInheritTags(r *Registry) {
	r.Register(extendsTag{})
	r.Register(blockTag{})
}
