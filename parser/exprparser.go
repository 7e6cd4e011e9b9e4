package parser

import (
	"strconv"

	"github.com/liquidgo/liquid/lexer"
)

// ExprParser turns the token stream from lexer.ExprLexer into Expression
// trees. It is created fresh for each OUTPUT/EXPR token's text and discarded
// afterward. Parsed expressions are not cached: identical expression text that
// appears several times in a template is parsed again at each occurrence.
type ExprParser struct {
	toks     []lexer.Token
	pos      int
	tmpl     string
	base     int // byte offset of this expression's start within the template
}

// NewExprParser builds a parser over raw, scanning it with lexer.ExprLexer.
// base is the byte offset of raw's first character within the owning
// template's source, used to translate token-local offsets into Spans.
func NewExprParser(raw, templateName string, base int) *ExprParser {
	return &ExprParser{
		toks: lexer.NewExprLexer(raw).Tokenize(),
		tmpl: templateName,
		base: base,
	}
}

func (p *ExprParser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *ExprParser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *ExprParser) span(tok lexer.Token) Span {
	return Span{TemplateName: p.tmpl, ByteIndex: p.base + tok.Start}
}

func (p *ExprParser) expect(tt lexer.TokenType) (lexer.Token, error) {
	t := p.cur()
	if t.Type != tt {
		return t, newSyntaxError(p.span(t), "expected %s, found %s %q", tt, t.Type, t.Value)
	}
	return p.advance(), nil
}

// AtEOF reports whether the parser consumed the whole token stream.
func (p *ExprParser) AtEOF() bool { return p.cur().Type == lexer.EOF }

// --- Entry point: primitive -------------------------------------------------

// ParsePrimitive parses a single literal, path, or range (spec §4.2
// "parse_primitive").
func (p *ExprParser) ParsePrimitive() (Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.STRING:
		p.advance()
		return NewString(tok.Value, p.span(tok)), nil
	case lexer.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, newSyntaxError(p.span(tok), "invalid integer %q", tok.Value)
		}
		return NewInteger(v, p.span(tok)), nil
	case lexer.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, newSyntaxError(p.span(tok), "invalid float %q", tok.Value)
		}
		return NewFloat(v, p.span(tok)), nil
	case lexer.TRUE:
		p.advance()
		return NewBoolean(true, p.span(tok)), nil
	case lexer.FALSE:
		p.advance()
		return NewBoolean(false, p.span(tok)), nil
	case lexer.NIL:
		p.advance()
		return NewNil(p.span(tok)), nil
	case lexer.WORD:
		switch tok.Value {
		case "empty":
			p.advance()
			return NewEmpty(p.span(tok)), nil
		case "blank":
			p.advance()
			return NewBlank(p.span(tok)), nil
		}
		return p.parsePathOrRange()
	case lexer.LPAREN:
		return p.parseRange()
	}
	return nil, newSyntaxError(p.span(tok), "expected a value, found %s %q", tok.Type, tok.Value)
}

func (p *ExprParser) parsePathOrRange() (Expression, error) {
	return p.parsePath()
}

// parseRange parses `(start..stop)`. Bounds may themselves be paths or
// integer literals (spec §4.2 "Range").
func (p *ExprParser) parseRange() (Expression, error) {
	open := p.cur()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	start, err := p.parseRangeBound()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RANGE); err != nil {
		return nil, err
	}
	stop, err := p.parseRangeBound()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return NewRange(start, stop, p.span(open)), nil
}

func (p *ExprParser) parseRangeBound() (Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INTEGER:
		return p.ParsePrimitive()
	case lexer.WORD:
		return p.parsePath()
	}
	return nil, newSyntaxError(p.span(tok), "expected an integer or path in range bound, found %s", tok.Type)
}

// --- Entry point: path -------------------------------------------------------

// parsePath parses a dotted/bracketed identifier chain (spec §4.2
// "parse_identifier"/"parse_path").
func (p *ExprParser) parsePath() (*Path, error) {
	head := p.cur()
	if head.Type != lexer.WORD {
		return nil, newSyntaxError(p.span(head), "expected an identifier, found %s %q", head.Type, head.Value)
	}
	p.advance()
	segs := []PathSegment{{Kind: SegIdent, Name: head.Value}}

	for {
		switch p.cur().Type {
		case lexer.DOT:
			p.advance()
			name, err := p.expect(lexer.WORD)
			if err != nil {
				return nil, err
			}
			segs = append(segs, PathSegment{Kind: SegIdent, Name: name.Value})
		case lexer.LBRACKET:
			p.advance()
			seg, err := p.parseBracketSegment()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		default:
			return NewPath(segs, p.span(head)), nil
		}
	}
}

func (p *ExprParser) parseBracketSegment() (PathSegment, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return PathSegment{}, newSyntaxError(p.span(tok), "invalid integer %q", tok.Value)
		}
		return PathSegment{Kind: SegIndex, Index: v}, nil
	case lexer.STRING:
		p.advance()
		return PathSegment{Kind: SegString, Name: tok.Value}, nil
	case lexer.WORD:
		inner, err := p.parsePath()
		if err != nil {
			return PathSegment{}, err
		}
		return PathSegment{Kind: SegNested, Nested: inner}, nil
	}
	return PathSegment{}, newSyntaxError(p.span(tok), "expected an index, string, or path inside [...], found %s", tok.Type)
}

// --- Entry point: filtered expression ---------------------------------------

// ParseFilteredExpression parses `<left> (| filter)* [if cond [else alt]] (|| filter)*`
// as used by `{{ ... }}` output and the `assign` tag (spec §4.2
// "FilteredExpression.parse").
func (p *ExprParser) ParseFilteredExpression() (Expression, error) {
	leftTok := p.cur()
	left, err := p.ParsePrimitive()
	if err != nil {
		return nil, err
	}
	filters, err := p.parseFilterChain(lexer.PIPE)
	if err != nil {
		return nil, err
	}

	if p.cur().Type == lexer.IF {
		p.advance()
		cond, err := p.ParseBooleanExpression()
		if err != nil {
			return nil, err
		}
		var alt Expression
		if p.cur().Type == lexer.ELSE {
			p.advance()
			alt, err = p.ParsePrimitive()
			if err != nil {
				return nil, err
			}
		}
		tail, err := p.parseFilterChain(lexer.DOUBLE_PIPE)
		if err != nil {
			return nil, err
		}
		return &TernaryFilteredExpression{
			base:        base{p.span(leftTok)},
			Left:        left,
			Filters:     filters,
			Condition:   cond,
			Alternative: alt,
			TailFilters: tail,
		}, nil
	}

	tail, err := p.parseFilterChain(lexer.DOUBLE_PIPE)
	if err != nil {
		return nil, err
	}
	return &FilteredExpression{
		base:        base{p.span(leftTok)},
		Left:        left,
		Filters:     filters,
		TailFilters: tail,
	}, nil
}

func (p *ExprParser) parseFilterChain(sep lexer.TokenType) ([]FilterCall, error) {
	var filters []FilterCall
	for p.cur().Type == sep {
		p.advance()
		nameTok, err := p.expect(lexer.WORD)
		if err != nil {
			return nil, err
		}
		fc := FilterCall{Name: nameTok.Value, span: p.span(nameTok)}
		if p.cur().Type == lexer.COLON {
			p.advance()
			for {
				arg, err := p.parseFilterArg()
				if err != nil {
					return nil, err
				}
				fc.Args = append(fc.Args, arg)
				if p.cur().Type != lexer.COMMA {
					break
				}
				p.advance()
			}
		}
		filters = append(filters, fc)
	}
	return filters, nil
}

func (p *ExprParser) parseFilterArg() (FilterArg, error) {
	// keyword arg: WORD COLON value
	if p.cur().Type == lexer.WORD && p.peekIsColon() {
		name := p.advance()
		p.advance() // colon
		val, err := p.ParsePrimitive()
		if err != nil {
			return FilterArg{}, err
		}
		return FilterArg{Name: name.Value, Value: val}, nil
	}
	val, err := p.ParsePrimitive()
	if err != nil {
		return FilterArg{}, err
	}
	return FilterArg{Value: val}, nil
}

func (p *ExprParser) peekIsColon() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Type == lexer.COLON
}

// --- Entry point: boolean expression -----------------------------------------

// ParseBooleanExpression parses the `if`/`unless`/`elsif`/`case when`
// condition grammar: an `or`-chain of `and`-chains of (optionally negated)
// comparisons (spec §4.2 "BooleanExpression.parse").
func (p *ExprParser) ParseBooleanExpression() (Expression, error) {
	left, err := p.parseAndChain()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == lexer.OR {
		tok := p.advance()
		right, err := p.parseAndChain()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{base: base{p.span(tok)}, Op: LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *ExprParser) parseAndChain() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == lexer.AND {
		tok := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{base: base{p.span(tok)}, Op: LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *ExprParser) parseNot() (Expression, error) {
	if p.cur().Type == lexer.NOT {
		tok := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{base: base{p.span(tok)}, Operand: operand}, nil
	}
	return p.parseComparison()
}

var compareOps = map[lexer.TokenType]CompareOp{
	lexer.EQ:       CmpEq,
	lexer.NE:       CmpNe,
	lexer.LT:       CmpLt,
	lexer.LE:       CmpLe,
	lexer.GT:       CmpGt,
	lexer.GE:       CmpGe,
	lexer.CONTAINS: CmpContains,
}

func (p *ExprParser) parseComparison() (Expression, error) {
	left, err := p.ParsePrimitive()
	if err != nil {
		return nil, err
	}
	if op, ok := compareOps[p.cur().Type]; ok {
		tok := p.advance()
		right, err := p.ParsePrimitive()
		if err != nil {
			return nil, err
		}
		return &CompareExpr{base: base{p.span(tok)}, Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// --- Entry point: loop expression --------------------------------------------

// ParseLoopExpression parses the `for` tag's `item in iterable [options]`
// clause (spec §4.2 "LoopExpression.parse").
func (p *ExprParser) ParseLoopExpression() (*LoopExpression, error) {
	idTok, err := p.expect(lexer.WORD)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}

	loop := &LoopExpression{base: base{p.span(idTok)}, Identifier: idTok.Value}

	switch p.cur().Type {
	case lexer.LPAREN:
		rng, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		loop.Iterable = rng
	default:
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		loop.Iterable = path
	}

	for p.cur().Type == lexer.WORD {
		switch p.cur().Value {
		case "limit":
			p.advance()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			v, err := p.ParsePrimitive()
			if err != nil {
				return nil, err
			}
			loop.Limit = v
		case "offset":
			p.advance()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			var v Expression
			if p.cur().Type == lexer.WORD && p.cur().Value == "continue" {
				tok := p.advance()
				v = NewString("continue", p.span(tok))
			} else {
				var err error
				v, err = p.ParsePrimitive()
				if err != nil {
					return nil, err
				}
			}
			loop.Offset = v
		case "cols":
			p.advance()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			v, err := p.ParsePrimitive()
			if err != nil {
				return nil, err
			}
			loop.Cols = v
		case "reversed":
			p.advance()
			loop.Reversed = true
		default:
			return loop, nil
		}
	}
	return loop, nil
}
