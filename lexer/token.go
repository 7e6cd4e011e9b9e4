// Package lexer tokenizes Liquid template source into an outer token stream
// (content, output, tag, expression, EOF) and, separately, tokenizes the raw
// expression text carried by OUTPUT and EXPRESSION tokens into a finer-grained
// stream of path/literal/operator tokens for the expression parser.
package lexer

import "fmt"

// TokenType identifies the kind of an outer or expression token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	// Outer token kinds.
	CONTENT // raw template text between tags/outputs
	OUTPUT  // {{ ... }}, Value is empty; the expression follows as an EXPR token
	TAG     // {% name ... %}, Value is the tag name
	EXPR    // the tag's expression substring, when it has one

	// Expression sub-lexer literal kinds.
	WORD    // bare identifier / path segment / tag-level keyword
	STRING  // quoted string literal
	INTEGER // integer literal
	FLOAT   // float literal
	TRUE
	FALSE
	NIL

	// Expression sub-lexer punctuation.
	COLON
	COMMA
	DOT
	LBRACKET
	RBRACKET
	LPAREN
	RPAREN
	PIPE
	DOUBLE_PIPE
	ASSIGN

	// Comparisons.
	EQ
	NE
	LT
	LE
	GT
	GE

	// Keywords recognized by the expression sub-lexer (boolean / loop grammar).
	CONTAINS
	AND
	OR
	NOT
	IN
	WITH
	FOR
	AS
	IF
	ELSE
	RANGE
)

var names = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	CONTENT: "CONTENT", OUTPUT: "OUTPUT", TAG: "TAG", EXPR: "EXPRESSION",
	WORD: "WORD", STRING: "STRING", INTEGER: "INTEGER", FLOAT: "FLOAT",
	TRUE: "TRUE", FALSE: "FALSE", NIL: "NIL",
	COLON: "COLON", COMMA: "COMMA", DOT: "DOT",
	LBRACKET: "LBRACKET", RBRACKET: "RBRACKET", LPAREN: "LPAREN", RPAREN: "RPAREN",
	PIPE: "PIPE", DOUBLE_PIPE: "DOUBLE_PIPE", ASSIGN: "ASSIGN",
	EQ: "EQ", NE: "NE", LT: "LT", LE: "LE", GT: "GT", GE: "GE",
	CONTAINS: "CONTAINS", AND: "AND", OR: "OR", NOT: "NOT", IN: "IN",
	WITH: "WITH", FOR: "FOR", AS: "AS", IF: "IF", ELSE: "ELSE", RANGE: "RANGE",
}

func (t TokenType) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Token(%d)", t)
}

// exprKeywords maps lower-case identifiers to their reserved token type within
// an expression sub-stream. Everything else lexes as WORD.
var exprKeywords = map[string]TokenType{
	"true": TRUE, "false": FALSE, "nil": NIL, "null": NIL, "empty": WORD, "blank": WORD,
	"contains": CONTAINS, "and": AND, "or": OR, "not": NOT, "in": IN,
	"with": WITH, "for": FOR, "as": AS, "if": IF, "else": ELSE,
}

// LookupExprKeyword resolves a bare identifier to its reserved expression
// token type, or WORD if it isn't reserved.
func LookupExprKeyword(ident string) TokenType {
	if t, ok := exprKeywords[ident]; ok {
		return t
	}
	return WORD
}

// Token is an immutable lexical unit. Start is the byte offset within the
// containing Source text where the token begins: the opening delimiter for
// OUTPUT and TAG tokens, and the untrimmed text for a trimmed CONTENT token.
type Token struct {
	Type  TokenType
	Value string
	Start int

	// TrimLeft/TrimRight record whether this token's delimiter carried a `-`
	// whitespace-control marker, so the parser can trim adjacent CONTENT.
	TrimLeft  bool
	TrimRight bool
}

func (t Token) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Start)
	}
	return fmt.Sprintf("%s@%d", t.Type, t.Start)
}
