package parser

import "github.com/liquidgo/liquid/lexer"

// MacroParam is one formal parameter of a macro; Default is nil when the
// parameter has no default and must be supplied by every call.
type MacroParam struct {
	Name    string
	Default Expression
}

// MacroNode is `{% macro name(params...) %}...{% endmacro %}`: a reusable,
// parameterized fragment invoked with `{% call %}` (spec §4.7 macros).
type MacroNode struct {
	nodeBase
	Name   string
	Params []MacroParam
	Body   []Node
}

// CallNode is `{% call name(args...) %}`.
type CallNode struct {
	nodeBase
	Name string
	Args []FilterArg
}

// WithNode is `{% with a: 1, b: 2 %}...{% endwith %}`: introduces bindings
// local to its body without mutating the enclosing scope.
type WithNode struct {
	nodeBase
	Bindings []FilterArg
	Body     []Node
}

type macroTag struct{}

func (macroTag) Name() string  { return "macro" }
func (macroTag) End() string   { return "endmacro" }
func (macroTag) IsBlock() bool { return true }

func (macroTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	nameTok, err := ep.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	var params []MacroParam
	if ep.cur().Type == lexer.LPAREN {
		ep.advance()
		for ep.cur().Type != lexer.RPAREN {
			pname, err := ep.expect(lexer.WORD)
			if err != nil {
				return nil, err
			}
			param := MacroParam{Name: pname.Value}
			if ep.cur().Type == lexer.COLON {
				ep.advance()
				def, err := ep.ParsePrimitive()
				if err != nil {
					return nil, err
				}
				param.Default = def
			}
			params = append(params, param)
			if ep.cur().Type == lexer.COMMA {
				ep.advance()
				continue
			}
			break
		}
		if _, err := ep.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	body, stop, err := p.ParseUntil("endmacro")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endmacro\"")
	}
	p.ConsumeTagArgs()
	return &MacroNode{nodeBase: nodeBase{span: p.Span(tok)}, Name: nameTok.Value, Params: params, Body: body}, nil
}

type callTag struct{}

func (callTag) Name() string  { return "call" }
func (callTag) End() string   { return "" }
func (callTag) IsBlock() bool { return false }

func (callTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	nameTok, err := ep.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	hasParen := ep.cur().Type == lexer.LPAREN
	if hasParen {
		ep.advance()
	}
	var callArgs []FilterArg
	for ep.cur().Type != lexer.EOF && ep.cur().Type != lexer.RPAREN {
		if ep.cur().Type == lexer.WORD && ep.peekIsColon() {
			name := ep.advance()
			ep.advance()
			v, err := ep.ParsePrimitive()
			if err != nil {
				return nil, err
			}
			callArgs = append(callArgs, FilterArg{Name: name.Value, Value: v})
		} else {
			v, err := ep.ParsePrimitive()
			if err != nil {
				return nil, err
			}
			callArgs = append(callArgs, FilterArg{Value: v})
		}
		if ep.cur().Type == lexer.COMMA {
			ep.advance()
			continue
		}
		break
	}
	if hasParen {
		if _, err := ep.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	return &CallNode{nodeBase: nodeBase{span: p.Span(tok)}, Name: nameTok.Value, Args: callArgs}, nil
}

type withTag struct{}

func (withTag) Name() string  { return "with" }
func (withTag) End() string   { return "endwith" }
func (withTag) IsBlock() bool { return true }

func (withTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	var bindings []FilterArg
	for ep.cur().Type == lexer.WORD {
		name := ep.advance()
		if _, err := ep.expect(lexer.COLON); err != nil {
			return nil, err
		}
		v, err := ep.ParsePrimitive()
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, FilterArg{Name: name.Value, Value: v})
		if ep.cur().Type == lexer.COMMA {
			ep.advance()
			continue
		}
		break
	}
	body, stop, err := p.ParseUntil("endwith")
	if err != nil {
		return nil, err
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endwith\"")
	}
	p.ConsumeTagArgs()
	return &WithNode{nodeBase: nodeBase{span: p.Span(tok)}, Bindings: bindings, Body: body}, nil
}

func registerMacroTags(r *Registry) {
	r.Register(macroTag{})
	r.Register(callTag{})
	r.Register(withTag{})
}
