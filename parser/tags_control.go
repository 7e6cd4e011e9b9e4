package parser

import "github.com/liquidgo/liquid/lexer"

// IfBranch is one `if`/`elsif`/`else` arm. Cond is nil for the trailing
// `else` arm.
type IfBranch struct {
	Cond Expression
	Body []Node
}

// IfNode is `{% if %}...{% elsif %}...{% else %}...{% endif %}` (spec §4.4).
type IfNode struct {
	nodeBase
	Branches []IfBranch
}

// UnlessNode is `{% unless %}`: identical shape to If, condition negated at
// evaluation time rather than at parse time, so analysis still sees the
// original expression.
type UnlessNode struct {
	nodeBase
	Branches []IfBranch
}

// CaseWhen is one `when a, b, ...` arm of a CaseNode.
type CaseWhen struct {
	Values []Expression
	Body   []Node
}

// CaseNode is `{% case %}{% when %}...{% else %}...{% endcase %}`.
type CaseNode struct {
	nodeBase
	Subject Expression
	Whens   []CaseWhen
	Else    []Node
}

type ifTag struct{}

func (ifTag) Name() string   { return "if" }
func (ifTag) End() string    { return "endif" }
func (ifTag) IsBlock() bool  { return true }

func (ifTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	branches, err := parseIfBranches(p, args, base, "endif")
	if err != nil {
		return nil, err
	}
	return &IfNode{nodeBase: nodeBase{span: p.Span(tok)}, Branches: branches}, nil
}

type unlessTag struct{}

func (unlessTag) Name() string  { return "unless" }
func (unlessTag) End() string   { return "endunless" }
func (unlessTag) IsBlock() bool { return true }

func (unlessTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	branches, err := parseIfBranches(p, args, base, "endunless")
	if err != nil {
		return nil, err
	}
	return &UnlessNode{nodeBase: nodeBase{span: p.Span(tok)}, Branches: branches}, nil
}

// parseIfBranches shares the if/unless/elsif/else-chain parsing loop; endKw
// is the block's own end-tag keyword ("endif" or "endunless").
func parseIfBranches(p *Parser, firstArgs string, firstBase int, endKw string) ([]IfBranch, error) {
	cond, err := p.ExprParserFor(firstArgs, firstBase).ParseBooleanExpression()
	if err != nil {
		return nil, err
	}
	body, stop, err := p.ParseUntil("elsif", "else", endKw)
	if err != nil {
		return nil, err
	}
	branches := []IfBranch{{Cond: cond, Body: body}}

	for stop.Value == "elsif" {
		_, eargs, ebase := p.ConsumeTagArgs()
		c, err := p.ExprParserFor(eargs, ebase).ParseBooleanExpression()
		if err != nil {
			return nil, err
		}
		b, s, err := p.ParseUntil("elsif", "else", endKw)
		if err != nil {
			return nil, err
		}
		branches = append(branches, IfBranch{Cond: c, Body: b})
		stop = s
	}

	if stop.Value == "else" {
		p.ConsumeTagArgs()
		b, s, err := p.ParseUntil(endKw)
		if err != nil {
			return nil, err
		}
		branches = append(branches, IfBranch{Cond: nil, Body: b})
		stop = s
	}

	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing %q", endKw)
	}
	p.ConsumeTagArgs()
	return branches, nil
}

type caseTag struct{}

func (caseTag) Name() string  { return "case" }
func (caseTag) End() string   { return "endcase" }
func (caseTag) IsBlock() bool { return true }

func (caseTag) Parse(p *Parser, tok lexer.Token, args string, base int) (Node, error) {
	subject, err := p.ExprParserFor(args, base).ParsePrimitive()
	if err != nil {
		return nil, err
	}
	node := &CaseNode{nodeBase: nodeBase{span: p.Span(tok)}, Subject: subject}

	// Anything before the first `when` (other than whitespace-only content,
	// handled by the whitespace pass) is ignored, mirroring common Liquid
	// engines' tolerance of a blank line after `{% case %}`.
	_, stop, err := p.ParseUntil("when", "else", "endcase")
	if err != nil {
		return nil, err
	}

	for stop.Value == "when" {
		_, wargs, wbase := p.ConsumeTagArgs()
		values, err := parseCaseValues(p.ExprParserFor(wargs, wbase))
		if err != nil {
			return nil, err
		}
		body, s, err := p.ParseUntil("when", "else", "endcase")
		if err != nil {
			return nil, err
		}
		node.Whens = append(node.Whens, CaseWhen{Values: values, Body: body})
		stop = s
	}

	if stop.Value == "else" {
		p.ConsumeTagArgs()
		body, s, err := p.ParseUntil("endcase")
		if err != nil {
			return nil, err
		}
		node.Else = body
		stop = s
	}

	if stop.Type == lexer.EOF {
		return nil, newSyntaxError(p.Span(stop), "missing \"endcase\"")
	}
	p.ConsumeTagArgs()
	return node, nil
}

func parseCaseValues(ep *ExprParser) ([]Expression, error) {
	var values []Expression
	for {
		v, err := ep.ParsePrimitive()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if ep.cur().Type != lexer.COMMA && ep.cur().Type != lexer.OR {
			break
		}
		ep.advance()
	}
	return values, nil
}

func registerControlTags(r *Registry) {
	r.Register(ifTag{})
	r.Register(unlessTag{})
	r.Register(caseTag{})
}
