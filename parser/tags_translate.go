package parser

import "github.com/liquidgo/liquid/lexer"

// TranslateNode is `{% translate [count: expr] [context: expr] [key: value...] %}
// singular text{% plural %}plural text{% endtranslate %}` (grounded on
// original_source/liquid/extra/tags/translate_tag.py). `count` and `context`
// drive gettext-family dispatch at render time; every other keyword is a
// placeholder binding for the message text.
//
// Singular/Plural are flattened to a literal string at parse time: plain
// content passes through untouched, and each bare `{{ name }}` reference
// becomes a `%(name)s` placeholder, filled in at render time from Bindings,
// or from the render context when no binding has that name.
type TranslateNode struct {
	nodeBase
	Count     Expression // nil if no count: keyword was given
	Context   Expression // nil if no context: keyword was given
	Bindings  []FilterArg
	Singular  string
	Plural    string
	HasPlural bool // distinguishes "no plural block" from "plural block is empty"
}

type translateTag struct{}

func (translateTag) Name() string  { return "translate" }
func (translateTag) End() string   { return "endtranslate" }
func (translateTag) IsBlock() bool { return true }

func (translateTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	ep := p.ExprParserFor(args, base)
	node := &TranslateNode{nodeBase: nodeBase{span: p.Span(tok)}}
	for ep.cur().Type == lexer.WORD {
		name := ep.advance()
		if _, err := ep.expect(lexer.COLON); err != nil {
			return nil, err
		}
		v, err := ep.ParsePrimitive()
		if err != nil {
			return nil, err
		}
		switch name.Value {
		case "count":
			node.Count = v
		case "context":
			node.Context = v
		default:
			node.Bindings = append(node.Bindings, FilterArg{Name: name.Value, Value: v})
		}
		if ep.cur().Type == lexer.COMMA {
			ep.advance()
			continue
		}
		break
	}

	singular, stop, err := parseTranslateBody(p, "plural", "endtranslate")
	if err != nil {
		return nil, err
	}
	node.Singular = singular

	if stop.Value == "plural" {
		p.ConsumeTagArgs()
		plural, s, err := parseTranslateBody(p, "endtranslate")
		if err != nil {
			return nil, err
		}
		node.Plural = plural
		node.HasPlural = true
		stop = s
	}
	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endtranslate\"")
	}
	p.ConsumeTagArgs()
	return node, nil
}

// parseTranslateBody reads content up to (but not consuming) a TAG token
// whose name is in stop. Plain content passes through unchanged; a
// `{{ name }}` output is allowed too, provided it is a single-segment,
// unfiltered path, and is rewritten into a `%(name)s` placeholder filled in
// at render time (grounded on original_source/liquid/extra/tags/
// translate_tag.py's validate_message_block, which accepts exactly this
// shape and rejects property access or filters on the variable). Any other
// tag or a more complex output expression is a syntax error.
func parseTranslateBody(p *Parser, stop ...string) (string, lexer.Token, error) {
	text := ""
	for {
		tok := p.cur()
		switch tok.Type {
		case lexer.EOF:
			return text, tok, nil
		case lexer.CONTENT:
			p.advance()
			text += tok.Value
		case lexer.OUTPUT:
			name, err := parseTranslateVar(p, tok)
			if err != nil {
				return "", lexer.Token{}, err
			}
			text += "%(" + name + ")s"
		case lexer.TAG:
			for _, s := range stop {
				if tok.Value == s {
					return text, tok, nil
				}
			}
			return "", lexer.Token{}, newSyntaxError(p.Span(tok), "unexpected tag %q inside translate block", tok.Value)
		default:
			return "", lexer.Token{}, newSyntaxError(p.Span(tok), "translate block body must be plain text")
		}
	}
}

// parseTranslateVar consumes an OUTPUT/EXPR token pair and validates it is a
// bare, unfiltered variable reference, returning the variable's name.
func parseTranslateVar(p *Parser, outTok lexer.Token) (string, error) {
	p.advance()
	if p.cur().Type != lexer.EXPR {
		return "", newSyntaxError(p.Span(outTok), "expected a translation variable, found empty output")
	}
	exprTok := p.advance()
	ep := p.ExprParserFor(exprTok.Value, exprTok.Start)
	expr, err := ep.ParseFilteredExpression()
	if err != nil {
		return "", err
	}
	filtered, ok := expr.(*FilteredExpression)
	if !ok {
		return "", newSyntaxError(p.Span(outTok), "expected a translation variable, found %q", exprTok.Value)
	}
	if len(filtered.Filters) > 0 || len(filtered.TailFilters) > 0 {
		return "", newSyntaxError(p.Span(outTok), "unexpected filter on translation variable %q", exprTok.Value)
	}
	path, ok := filtered.Left.(*Path)
	if !ok {
		return "", newSyntaxError(p.Span(outTok), "expected a translation variable, found %q", exprTok.Value)
	}
	if len(path.Segments) != 1 || path.Segments[0].Kind != SegIdent {
		return "", newSyntaxError(p.Span(outTok), "unexpected property access on translation variable %q", exprTok.Value)
	}
	return path.Segments[0].Name, nil
}

func registerTranslateTags(r *Registry) {
	r.Register(translateTag{})
}
