package parser

import "github.com/liquidgo/liquid/lexer"

// Tolerance selects how ParseTemplate reacts to a malformed tag or output
// (spec §3 "tolerance mode", §7): Strict raises immediately, Warn and Lax
// both recover by substituting an IllegalNode and continuing, differing only
// in whether the caller can observe the collected errors via Warnings.
type Tolerance int

const (
	Strict Tolerance = iota
	Warn
	Lax
)

// Parser turns one template's token stream into a Template AST (spec
// §4.1/§4.2 combined: the outer Lexer drives node boundaries, ExprParser
// drives each tag/output's argument grammar).
type Parser struct {
	toks      []lexer.Token
	pos       int
	tmpl      string
	src       *Source
	registry  *Registry
	cfg       lexer.Config
	tolerance Tolerance
	Warnings  []*SyntaxError
}

func NewParser(name, source string, cfg lexer.Config, registry *Registry) *Parser {
	return NewParserWithTolerance(name, source, cfg, registry, Strict)
}

// NewParserWithTolerance builds a Parser that recovers from malformed tags
// and outputs instead of aborting the whole parse, per tolerance.
func NewParserWithTolerance(name, source string, cfg lexer.Config, registry *Registry, tolerance Tolerance) *Parser {
	return &Parser{
		toks:      lexer.New(name, source, cfg).Tokenize(),
		tmpl:      name,
		src:       NewSource(name, source),
		registry:  registry,
		cfg:       cfg,
		tolerance: tolerance,
	}
}

// Config returns the delimiter configuration this parser was built with, used
// by the `liquid` tag to re-lex its line-oriented body with matching
// delimiters.
func (p *Parser) Config() lexer.Config { return p.cfg }

// Registry returns the tag registry this parser resolves tag names against.
func (p *Parser) Registry() *Registry { return p.registry }

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// Span builds a diagnostic Span anchored at tok's byte offset.
func (p *Parser) Span(tok lexer.Token) Span {
	return Span{TemplateName: p.tmpl, ByteIndex: tok.Start}
}

// ExprParserFor builds an ExprParser over a tag/output's argument text.
func (p *Parser) ExprParserFor(args string, argBase int) *ExprParser {
	return NewExprParser(args, p.tmpl, argBase)
}

// ConsumeTagArgs consumes a TAG token and its optional following EXPR token,
// returning the tag token, its argument text (empty if absent), and the
// byte offset the argument text starts at (for Span construction).
func (p *Parser) ConsumeTagArgs() (lexer.Token, string, int) {
	tok := p.advance()
	if p.cur().Type == lexer.EXPR {
		e := p.advance()
		return tok, e.Value, e.Start
	}
	return tok, "", tok.Start
}

// ParseTemplate parses the whole token stream.
func (p *Parser) ParseTemplate() (*Template, error) {
	nodes, stop, err := p.ParseUntil()
	if err != nil {
		return nil, err
	}
	if stop.Type != lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "unexpected tag %q at top level", stop.Value)
	}
	propagateBlank(nodes)
	return &Template{Name: p.tmpl, Nodes: nodes, Source: p.src}, nil
}

// ParseUntil parses nodes until EOF or a TAG token whose name is in stop. It
// does not consume the stopping tag; callers decide what to do with it
// (continue an elsif/else chain, or consume the end tag).
func (p *Parser) ParseUntil(stop ...string) ([]Node, lexer.Token, error) {
	var nodes []Node
	for {
		tok := p.cur()
		switch tok.Type {
		case lexer.EOF:
			return nodes, tok, nil
		case lexer.CONTENT:
			p.advance()
			nodes = append(nodes, NewContentNode(tok.Value, p.Span(tok)))
		case lexer.OUTPUT:
			n, err := p.parseOutput()
			if err != nil {
				n, ok := p.recover(err)
				if !ok {
					return nil, lexer.Token{}, err
				}
				nodes = append(nodes, n)
				continue
			}
			nodes = append(nodes, n)
		case lexer.TAG:
			for _, s := range stop {
				if tok.Value == s {
					return nodes, tok, nil
				}
			}
			n, err := p.parseTag()
			if err != nil {
				n, ok := p.recover(err)
				if !ok {
					return nil, lexer.Token{}, err
				}
				nodes = append(nodes, n)
				continue
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		default:
			return nil, lexer.Token{}, newSyntaxError(p.Span(tok), "unexpected token %s %q", tok.Type, tok.Value)
		}
	}
}

// recover turns a parse error into an IllegalNode under Warn/Lax tolerance.
// It returns ok=false under Strict (or for an error type it doesn't
// recognize), telling the caller to propagate the error as before.
func (p *Parser) recover(err error) (Node, bool) {
	if p.tolerance == Strict {
		return nil, false
	}
	se, ok := err.(*SyntaxError)
	if !ok {
		return nil, false
	}
	if p.tolerance == Warn {
		p.Warnings = append(p.Warnings, se)
	}
	return NewIllegalNode(se), true
}

func (p *Parser) parseOutput() (Node, error) {
	outTok := p.advance()
	if p.cur().Type != lexer.EXPR {
		return NewOutputNode(NewNil(p.Span(outTok)), "", p.Span(outTok)), nil
	}
	exprTok := p.advance()
	ep := p.ExprParserFor(exprTok.Value, exprTok.Start)
	expr, err := ep.ParseFilteredExpression()
	if err != nil {
		return nil, err
	}
	return NewOutputNode(expr, exprTok.Value, p.Span(outTok)), nil
}

func (p *Parser) parseTag() (Node, error) {
	tagTok := p.cur()
	td, ok := p.registry.Get(tagTok.Value)
	if !ok {
		p.ConsumeTagArgs()
		return nil, newSyntaxError(p.Span(tagTok), "unknown tag %q", tagTok.Value)
	}
	_, args, base := p.ConsumeTagArgs()
	return td.Parse(p, tagTok, args, base)
}
