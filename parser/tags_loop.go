package parser

import "github.com/liquidgo/liquid/lexer"

// ForNode is `{% for x in y %}...{% else %}...{% endfor %}` (spec §4.4/§4.5
// loop semantics, forloop drop populated at render time).
type ForNode struct {
	nodeBase
	Loop *LoopExpression
	Body []Node
	Else []Node // rendered when the iterable is empty
}

// TableRowNode is `{% tablerow x in y cols: n %}...{% endtablerow %}`.
type TableRowNode struct {
	nodeBase
	Loop *LoopExpression
	Body []Node
}

// CycleNode is `{% cycle [group:] a, b, c %}`.
type CycleNode struct {
	nodeBase
	Group  Expression // nil if anonymous, in which case the cycle is keyed by its evaluated values
	Values []Expression
}

// IfChangedNode is `{% ifchanged %}...{% endifchanged %}`.
type IfChangedNode struct {
	nodeBase
	Body []Node
}

// BreakNode / ContinueNode are `{% break %}` / `{% continue %}`, resolved via
// the runtime's loop control-flow signals.
type BreakNode struct{ nodeBase }
type ContinueNode struct{ nodeBase }

type forTag struct{}

func (forTag) Name() string  { return "for" }
func (forTag) End() string   { return "endfor" }
func (forTag) IsBlock() bool { return true }

func (forTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	loop, err := p.ExprParserFor(args, base).ParseLoopExpression()
	if err != nil {
		return nil, err
	}
	node := &ForNode{nodeBase: nodeBase{span: p.Span(tok)}, Loop: loop}

	body, stop, err := p.ParseUntil("else", "endfor")
	if err != nil {
		return nil, err
	}
	node.Body = body

	if stop.Value == "else" {
		p.ConsumeTagArgs()
		elseBody, s, err := p.ParseUntil("endfor")
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
		stop = s
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endfor\"")
	}
	p.ConsumeTagArgs()
	return node, nil
}

type tableRowTag struct{}

func (tableRowTag) Name() string  { return "tablerow" }
func (tableRowTag) End() string   { return "endtablerow" }
func (tableRowTag) IsBlock() bool { return true }

func (tableRowTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	loop, err := p.ExprParserFor(args, base).ParseLoopExpression()
	if err != nil {
		return nil, err
	}
	body, stop, err := p.ParseUntil("endtablerow")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endtablerow\"")
	}
	p.ConsumeTagArgs()
	return &TableRowNode{nodeBase: nodeBase{span: p.Span(tok)}, Loop: loop, Body: body}, nil
}

type cycleTag struct{}

func (cycleTag) Name() string  { return "cycle" }
func (cycleTag) End() string   { return "" }
func (cycleTag) IsBlock() bool { return false }

func (cycleTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	first, err := ep.ParsePrimitive()
	if err != nil {
		return nil, err
	}
	node := &CycleNode{nodeBase: nodeBase{span: p.Span(tok)}}
	if ep.cur().Type == lexer.COLON {
		ep.advance()
		node.Group = first
	} else {
		node.Values = append(node.Values, first)
	}
	for ep.cur().Type == lexer.COMMA {
		ep.advance()
		v, err := ep.ParsePrimitive()
		if err != nil {
			return nil, err
		}
		node.Values = append(node.Values, v)
	}
	return node, nil
}

type ifChangedTag struct{}

func (ifChangedTag) Name() string  { return "ifchanged" }
func (ifChangedTag) End() string   { return "endifchanged" }
func (ifChangedTag) IsBlock() bool { return true }

func (ifChangedTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	body, stop, err := p.ParseUntil("endifchanged")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endifchanged\"")
	}
	p.ConsumeTagArgs()
	return &IfChangedNode{nodeBase: nodeBase{span: p.Span(tok)}, Body: body}, nil
}

type breakTag struct{}

func (breakTag) Name() string  { return "break" }
func (breakTag) End() string   { return "" }
func (breakTag) IsBlock() bool { return false }
func (breakTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	return &BreakNode{nodeBase{span: p.Span(tok)}}, nil
}

type continueTag struct{}

func (continueTag) Name() string  { return "continue" }
func (continueTag) End() string   { return "" }
func (continueTag) IsBlock() bool { return false }
func (continueTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	return &ContinueNode{nodeBase{span: p.Span(tok)}}, nil
}

func registerLoopTags(r *Registry) {
	r.Register(forTag{})
	r.Register(tableRowTag{})
	r.Register(cycleTag{})
	r.Register(ifChangedTag{})
	r.Register(breakTag{})
	r.Register(continueTag{})
}
