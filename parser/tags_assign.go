package parser

import (
	"strings"

	"github.com/liquidgo/liquid/lexer"
)

// AssignNode is `{% assign name = expr %}`.
type AssignNode struct {
	nodeBase
	Name  string
	Value Expression
}

// CaptureNode is `{% capture name %}...{% endcapture %}`: renders its body
// to a string and assigns it rather than emitting output.
type CaptureNode struct {
	nodeBase
	Name string
	Body []Node
}

// IncrementNode / DecrementNode are `{% increment name %}` / `{% decrement
// name %}`: both read-and-mutate a counter and output the result (spec §4.4
// "counters").
type IncrementNode struct {
	nodeBase
	Name string
}
type DecrementNode struct {
	nodeBase
	Name string
}

// EchoNode is `{% echo expr %}`, the tag-form equivalent of `{{ expr }}`.
type EchoNode struct {
	nodeBase
	Expr Expression
}

// LiquidNode is `{% liquid ... %}`: a block whose body is line-oriented tag
// syntax with the `{% %}` delimiters implied on every line.
type LiquidNode struct {
	nodeBase
	Body []Node
}

type assignTag struct{}

func (assignTag) Name() string  { return "assign" }
func (assignTag) End() string   { return "" }
func (assignTag) IsBlock() bool { return false }

func (assignTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	nameTok, err := ep.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	if _, err := ep.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := ep.ParseFilteredExpression()
	if err != nil {
		return nil, err
	}
	return &AssignNode{nodeBase: nodeBase{span: p.Span(tok)}, Name: nameTok.Value, Value: value}, nil
}

type captureTag struct{}

func (captureTag) Name() string  { return "capture" }
func (captureTag) End() string   { return "endcapture" }
func (captureTag) IsBlock() bool { return true }

func (captureTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	nameTok, err := ep.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	body, stop, err := p.ParseUntil("endcapture")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endcapture\"")
	}
	p.ConsumeTagArgs()
	return &CaptureNode{nodeBase: nodeBase{span: p.Span(tok)}, Name: nameTok.Value, Body: body}, nil
}

type incrementTag struct{}

func (incrementTag) Name() string  { return "increment" }
func (incrementTag) End() string   { return "" }
func (incrementTag) IsBlock() bool { return false }
func (incrementTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	name, err := p.ExprParserFor(args, base).expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	return &IncrementNode{nodeBase{span: p.Span(tok)}, name.Value}, nil
}

type decrementTag struct{}

func (decrementTag) Name() string  { return "decrement" }
func (decrementTag) End() string   { return "" }
func (decrementTag) IsBlock() bool { return false }
func (decrementTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	name, err := p.ExprParserFor(args, base).expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	return &DecrementNode{nodeBase{span: p.Span(tok)}, name.Value}, nil
}

type echoTag struct{}

func (echoTag) Name() string  { return "echo" }
func (echoTag) End() string   { return "" }
func (echoTag) IsBlock() bool { return false }
func (echoTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	if strings.TrimSpace(args) == "" {
		return &EchoNode{nodeBase{span: p.Span(tok)}, NewNil(p.Span(tok))}, nil
	}
	expr, err := p.ExprParserFor(args, base).ParseFilteredExpression()
	if err != nil {
		return nil, err
	}
	return &EchoNode{nodeBase{span: p.Span(tok)}, expr}, nil
}

// endRawTag is a no-op: the outer lexer already folds a raw block's body
// into a single CONTENT token, so only the bare closing tag name reaches the
// parser (see node.go's container-helper comment).
type endRawTag struct{}

func (endRawTag) Name() string  { return "endraw" }
func (endRawTag) End() string   { return "" }
func (endRawTag) IsBlock() bool { return false }
func (endRawTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	return nil, nil
}

type liquidTag struct{}

func (liquidTag) Name() string  { return "liquid" }
func (liquidTag) End() string   { return "" }
func (liquidTag) IsBlock() bool { return false }

func (liquidTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	var sb strings.Builder
	for _, line := range strings.Split(args, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		sb.WriteString(p.cfg.TagStart)
		sb.WriteByte(' ')
		sb.WriteString(trimmed)
		sb.WriteByte(' ')
		sb.WriteString(p.cfg.TagEnd)
	}
	sub := NewParser(p.tmpl, sb.String(), p.cfg, p.registry)
	tmpl, err := sub.ParseTemplate()
	if err != nil {
		return nil, err
	}
	return &LiquidNode{nodeBase: nodeBase{span: p.Span(tok)}, Body: tmpl.Nodes}, nil
}

func registerAssignTags(r *Registry) {
	r.Register(assignTag{})
	r.Register(captureTag{})
	r.Register(incrementTag{})
	r.Register(decrementTag{})
	r.Register(echoTag{})
	r.Register(endRawTag{})
	r.Register(liquidTag{})
}
