package parser

// Node is one element of a parsed template's AST (spec §3 "Node"). Nodes form
// a tree: block-type nodes (If, For, Block, ...) hold child Node slices.
type Node interface {
	Span() Span
	// Blank reports whether this node is known to render no visible
	// characters, used by the whitespace-suppression pass (spec §4.3/§4.6)
	// to decide whether a line made up only of tags can be dropped.
	Blank() bool
}

// BlankSetter is implemented by every concrete node; propagateBlank (blank.go)
// uses it to record a block's derived blank flag without needing the
// concrete type.
type BlankSetter interface {
	SetBlank(bool)
}

type nodeBase struct {
	span  Span
	blank bool
}

func (n *nodeBase) Span() Span       { return n.span }
func (n *nodeBase) Blank() bool      { return n.blank }
func (n *nodeBase) SetBlank(b bool)  { n.blank = b }

// Template is the root of a parsed template: its top-level node sequence
// plus the name it was loaded under (spec §3 "Template").
type Template struct {
	Name  string
	Nodes []Node
	// Source backs Span.Position for every node/expression below this root.
	Source *Source
}

// --- Leaf nodes --------------------------------------------------------------

// IllegalNode stands in for a tag or output the parser could not make sense
// of while running in Warn or Lax tolerance (spec §3/§7): it renders nothing
// and carries the SyntaxError that would have aborted parsing under Strict.
type IllegalNode struct {
	nodeBase
	Err *SyntaxError
}

func NewIllegalNode(err *SyntaxError) *IllegalNode {
	n := &IllegalNode{Err: err}
	n.span = err.Span
	n.blank = true
	return n
}

// ContentNode is a run of literal text between tags (spec §4.1).
type ContentNode struct {
	nodeBase
	Text string
}

func NewContentNode(text string, span Span) *ContentNode {
	n := &ContentNode{Text: text}
	n.span = span
	return n
}

// OutputNode is a `{{ expr }}` (spec §4.1/§4.2).
type OutputNode struct {
	nodeBase
	Expr Expression
	Raw  string // original expression text, as written between the delimiters
}

func NewOutputNode(expr Expression, raw string, span Span) *OutputNode {
	n := &OutputNode{Expr: expr, Raw: raw}
	n.span = span
	return n
}

// --- Container helper ---------------------------------------------------------

// Comment and raw bodies never reach this AST: the outer lexer swallows
// `{% comment %}...{% endcomment %}` and shorthand `{# ... #}` entirely, and
// emits a `{% raw %}...{% endraw %}` body as an ordinary CONTENT token (see
// lexer.Lexer.lexBlockComment/lexRawBody). A raw body therefore surfaces as a
// ContentNode, and a comment leaves no node at all.
//
// Block-type tags (If, For, Capture, ...) hold their children directly as a
// []Node field rather than through a shared wrapper type; propagateBlank
// (blank.go) walks those fields by type switch to derive each block's blank
// flag once parsing finishes.
