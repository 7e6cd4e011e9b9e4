package lexer

import "strings"

// Config controls the delimiters the outer lexer recognizes. Defaults match
// standard Liquid syntax; CommentStart/End are only honored when
// ShorthandComments is enabled (spec §4.1).
type Config struct {
	VarStart     string
	VarEnd       string
	TagStart     string
	TagEnd       string
	CommentStart string
	CommentEnd   string

	ShorthandComments bool
}

func DefaultConfig() Config {
	return Config{
		VarStart: "{{", VarEnd: "}}",
		TagStart: "{%", TagEnd: "%}",
		CommentStart: "{#", CommentEnd: "#}",
	}
}

type state int

const (
	stateContent state = iota
	stateOutput
	stateTag
)

// Lexer is the outer, single-pass tokenizer. It is lazy, finite and
// non-restartable: call Next repeatedly until it returns an EOF token.
type Lexer struct {
	src    string
	name   string
	cfg    Config
	pos    int
	state  state
	inTag  bool // true once a TAG token has been emitted and EXPR is pending
	pendingTrimRight bool
}

func New(name, src string, cfg Config) *Lexer {
	return &Lexer{src: src, name: name, cfg: cfg, state: stateContent}
}

// Name of the template this lexer is scanning, used for diagnostics.
func (l *Lexer) Name() string { return l.name }

// Source returns the full source text being lexed.
func (l *Lexer) Source() string { return l.src }

func (l *Lexer) Next() Token {
	switch l.state {
	case stateContent:
		return l.lexContent()
	case stateOutput:
		return l.lexOutput()
	case stateTag:
		return l.lexTag()
	}
	return Token{Type: ILLEGAL, Start: l.pos}
}

// Tokenize drains the lexer into a slice, ending with an EOF token, or with
// the first ILLEGAL token, where scanning stops.
func (l *Lexer) Tokenize() []Token {
	toks := make([]Token, 0, len(l.src)/16+4)
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			break
		}
	}
	return toks
}

func (l *Lexer) lexContent() Token {
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Start: l.pos}
	}

	start := l.pos
	for l.pos < len(l.src) {
		if l.hasPrefix(l.cfg.VarStart) || l.hasPrefix(l.cfg.TagStart) ||
			(l.cfg.ShorthandComments && l.hasPrefix(l.cfg.CommentStart)) {
			if l.pos > start {
				return l.contentToken(start, l.pos)
			}
			return l.lexDelimiterStart()
		}
		l.pos++
	}
	if l.pos > start {
		return l.contentToken(start, l.pos)
	}
	return Token{Type: EOF, Start: l.pos}
}

func (l *Lexer) contentToken(start, end int) Token {
	text := l.src[start:end]
	trimLeft := l.pendingTrimRight
	l.pendingTrimRight = false
	if trimLeft {
		text = strings.TrimLeft(text, " \t\r\n")
	}
	// The upcoming delimiter may itself open with a trim marker (`{{-`,
	// `{%-`), which trims THIS content's trailing whitespace.
	trimRight := l.hasPrefixAt(end, l.cfg.VarStart+"-") || l.hasPrefixAt(end, l.cfg.TagStart+"-")
	if trimRight {
		text = strings.TrimRight(text, " \t\r\n")
	}
	return Token{Type: CONTENT, Value: text, Start: start, TrimLeft: trimLeft, TrimRight: trimRight}
}

func (l *Lexer) lexDelimiterStart() Token {
	switch {
	case l.hasPrefix(l.cfg.VarStart):
		return l.lexVarStart()
	case l.hasPrefix(l.cfg.TagStart):
		return l.lexTagStart()
	case l.cfg.ShorthandComments && l.hasPrefix(l.cfg.CommentStart):
		return l.skipShorthandComment()
	}
	return Token{Type: ILLEGAL, Start: l.pos}
}

func (l *Lexer) lexVarStart() Token {
	start := l.pos
	l.pos += len(l.cfg.VarStart)
	trimRight := false
	if l.hasPrefix("-") {
		l.pos++
		trimRight = true
	}
	l.state = stateOutput
	return Token{Type: OUTPUT, Start: start, TrimRight: trimRight}
}

func (l *Lexer) lexTagStart() Token {
	start := l.pos
	l.pos += len(l.cfg.TagStart)
	trimRight := false
	if l.hasPrefix("-") {
		l.pos++
		trimRight = true
	}
	l.skipSpaces()

	// raw is special: everything up to {% endraw %} is one CONTENT token,
	// bypassing tag/output recognition entirely (spec §4.1).
	if l.hasWord("raw") {
		return l.lexRawBody(start, trimRight)
	}
	if l.hasWord("comment") {
		return l.lexBlockComment(start, trimRight)
	}
	if l.hasPrefix("#") {
		return l.lexInlineComment(start, trimRight)
	}

	nameStart := l.pos
	for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
		l.pos++
	}
	name := l.src[nameStart:l.pos]
	l.state = stateTag
	l.inTag = true
	return Token{Type: TAG, Value: name, Start: start, TrimRight: trimRight}
}

// lexTag is entered right after a TAG token. It yields the tag's EXPRESSION
// (everything up to the block-end delimiter) if any, then the closing
// delimiter transitions state back to content.
func (l *Lexer) lexTag() Token {
	l.skipSpaces()
	if end, trimLeft, ok := l.matchTagEnd(); ok {
		l.pos = end
		l.pendingTrimRight = trimLeft
		l.state = stateContent
		l.inTag = false
		return l.Next()
	}
	start := l.pos
	for l.pos < len(l.src) {
		if _, _, ok := l.matchTagEnd(); ok {
			break
		}
		l.pos++
	}
	expr := strings.TrimRight(l.src[start:l.pos], " \t\r\n")
	return Token{Type: EXPR, Value: expr, Start: start}
}

func (l *Lexer) lexOutput() Token {
	l.skipSpaces()
	if end, trimLeft, ok := l.matchVarEnd(); ok {
		l.pos = end
		l.pendingTrimRight = trimLeft
		l.state = stateContent
		return l.Next()
	}
	start := l.pos
	for l.pos < len(l.src) {
		if _, _, ok := l.matchVarEnd(); ok {
			break
		}
		l.pos++
	}
	expr := strings.TrimRight(l.src[start:l.pos], " \t\r\n")
	return Token{Type: EXPR, Value: expr, Start: start}
}

func (l *Lexer) matchVarEnd() (end int, trimLeft bool, ok bool) {
	if l.hasPrefixAt(l.pos, "-"+l.cfg.VarEnd) {
		return l.pos + 1 + len(l.cfg.VarEnd), true, true
	}
	if l.hasPrefix(l.cfg.VarEnd) {
		return l.pos + len(l.cfg.VarEnd), false, true
	}
	return 0, false, false
}

func (l *Lexer) matchTagEnd() (end int, trimLeft bool, ok bool) {
	if l.hasPrefixAt(l.pos, "-"+l.cfg.TagEnd) {
		return l.pos + 1 + len(l.cfg.TagEnd), true, true
	}
	if l.hasPrefix(l.cfg.TagEnd) {
		return l.pos + len(l.cfg.TagEnd), false, true
	}
	return 0, false, false
}

// lexRawBody consumes the `raw` tag's own header, then scans verbatim for the
// literal text `{% endraw %}` (allowing whitespace-control variants), and
// returns everything in between as a single CONTENT token. On the following
// call the lexer resumes at (and re-lexes) the endraw tag normally.
func (l *Lexer) lexRawBody(tagStart int, trimRight bool) Token {
	l.pos += len("raw")
	l.skipSpaces()
	end, _, _ := l.matchTagEnd()
	if end == 0 {
		return Token{Type: ILLEGAL, Start: l.pos}
	}
	l.pos = end

	bodyStart := l.pos
	for l.pos < len(l.src) {
		if l.hasPrefix(l.cfg.TagStart) {
			save := l.pos
			p := l.pos + len(l.cfg.TagStart)
			for p < len(l.src) && (l.src[p] == ' ' || l.src[p] == '\t' || l.src[p] == '-') {
				p++
			}
			if strings.HasPrefix(l.src[p:], "endraw") {
				bodyEnd := save
				l.pos = save
				// Emit the body as CONTENT; endraw tag is lexed on next call.
				_ = tagStart
				_ = trimRight
				if bodyEnd > bodyStart {
					return Token{Type: CONTENT, Value: l.src[bodyStart:bodyEnd], Start: bodyStart}
				}
				l.state = stateContent
				return l.Next()
			}
		}
		l.pos++
	}
	// Unterminated raw block: treat remaining source as content.
	return Token{Type: CONTENT, Value: l.src[bodyStart:], Start: bodyStart}
}

// lexBlockComment skips `{% comment %} ... {% endcomment %}` verbatim,
// emitting nothing (spec §4.1).
func (l *Lexer) lexBlockComment(tagStart int, trimRight bool) Token {
	l.pos += len("comment")
	l.skipSpaces()
	end, _, ok := l.matchTagEnd()
	if !ok {
		return Token{Type: ILLEGAL, Start: l.pos}
	}
	l.pos = end

	for l.pos < len(l.src) {
		if l.hasPrefix(l.cfg.TagStart) {
			save := l.pos
			p := l.pos + len(l.cfg.TagStart)
			for p < len(l.src) && (l.src[p] == ' ' || l.src[p] == '\t' || l.src[p] == '-') {
				p++
			}
			if strings.HasPrefix(l.src[p:], "endcomment") {
				p += len("endcomment")
				for p < len(l.src) && (l.src[p] == ' ' || l.src[p] == '\t' || l.src[p] == '-') {
					p++
				}
				if end2, _, ok2 := l.matchTagEndAt(p); ok2 {
					l.pos = end2
					l.state = stateContent
					return l.Next()
				}
			}
			l.pos = save + 1
			continue
		}
		l.pos++
	}
	return Token{Type: ILLEGAL, Start: l.pos}
}

func (l *Lexer) matchTagEndAt(p int) (end int, trimLeft bool, ok bool) {
	if l.hasPrefixAt(p, l.cfg.TagEnd) {
		return p + len(l.cfg.TagEnd), false, true
	}
	return 0, false, false
}

// lexInlineComment handles `{% # ... %}` where every body line must start
// with optional whitespace then `#`.
func (l *Lexer) lexInlineComment(tagStart int, trimRight bool) Token {
	start := l.pos
	for l.pos < len(l.src) {
		if _, _, ok := l.matchTagEnd(); ok {
			break
		}
		l.pos++
	}
	body := l.src[start:l.pos]
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return Token{Type: ILLEGAL, Value: "every line of an inline comment must start with '#'", Start: start}
		}
	}
	end, trimLeft, ok := l.matchTagEnd()
	if !ok {
		return Token{Type: ILLEGAL, Start: l.pos}
	}
	l.pos = end
	l.pendingTrimRight = trimLeft
	l.state = stateContent
	return l.Next()
}

func (l *Lexer) skipShorthandComment() Token {
	l.pos += len(l.cfg.CommentStart)
	for l.pos < len(l.src) && !l.hasPrefix(l.cfg.CommentEnd) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{Type: ILLEGAL, Start: l.pos}
	}
	l.pos += len(l.cfg.CommentEnd)
	l.state = stateContent
	return l.Next()
}

func (l *Lexer) hasWord(w string) bool {
	if !strings.HasPrefix(l.src[l.pos:], w) {
		return false
	}
	after := l.pos + len(w)
	return after >= len(l.src) || !isIdentByte(l.src[after])
}

func (l *Lexer) hasPrefix(s string) bool { return l.hasPrefixAt(l.pos, s) }

func (l *Lexer) hasPrefixAt(pos int, s string) bool {
	if pos+len(s) > len(l.src) {
		return false
	}
	return l.src[pos:pos+len(s)] == s
}

func (l *Lexer) skipSpaces() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
