// Package liquiderr formats parse- and render-time failures for a host to
// display (spec §7): every error carries a Span, whose (line, column) is
// computed lazily against the template's Source, and the package's Error
// type renders that as "<message>, on line <L> of <origin>". DetailedError
// additionally renders a source-context gutter, grounded on the teacher's
// EnhancedTemplateError.DetailedError, for a "-v"/debug display mode.
package liquiderr

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/liquidgo/liquid/parser"
	"github.com/mattn/go-colorable"
)

// Diagnosable is satisfied by every parser/runtime error type in this
// module (via their embedded base or SyntaxError), so this package never
// needs to import runtime and can still locate any of them.
type Diagnosable interface {
	SpanValue() parser.Span
	RawMessage() string
}

// Error wraps a lower-level parse or render failure with its originating
// template name and (line, column). Unwrap exposes the original error so a
// caller can still errors.As into *runtime.UndefinedError, *parser.SyntaxError,
// and friends.
type Error struct {
	cause  error
	source *parser.Source

	Origin string
	Line   int
	Column int
}

// Wrap locates err's Span against src and returns an *Error ready to
// display. err values this package doesn't recognize (no SpanValue/
// RawMessage pair) pass through unchanged; a nil err returns nil.
func Wrap(err error, src *parser.Source) error {
	if err == nil {
		return nil
	}
	d, ok := err.(Diagnosable)
	if !ok {
		return err
	}
	span := d.SpanValue()
	origin := span.TemplateName
	if origin == "" && src != nil {
		origin = src.Name
	}
	var line, col int
	if src != nil {
		line, col = src.Position(span.ByteIndex)
	}
	return &Error{cause: err, source: src, Origin: origin, Line: line, Column: col}
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) message() string {
	if d, ok := e.cause.(Diagnosable); ok {
		return d.RawMessage()
	}
	return e.cause.Error()
}

// Error renders the spec §7 format: "<message>, on line <L> of <origin>".
func (e *Error) Error() string {
	if e.Line == 0 {
		return e.message()
	}
	return fmt.Sprintf("%s, on line %d of %s", e.message(), e.Line, e.Origin)
}

// DetailedError renders the same message plus a small source-context
// gutter around the offending line with a `^` pointer at the column.
func (e *Error) DetailedError() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", e.Error())
	for _, ln := range e.contextLines() {
		gutter := "    "
		if ln.current {
			gutter = "  > "
		}
		fmt.Fprintf(&b, "%s%3d | %s\n", gutter, ln.num, ln.text)
		if ln.current && e.Column > 0 {
			fmt.Fprintf(&b, "      | %s^\n", strings.Repeat(" ", e.Column-1))
		}
	}
	return b.String()
}

// ColoredDetailedError is DetailedError with the header, gutter and pointer
// colorized for a terminal (honors NO_COLOR via color.NoColor, same as the
// rest of the fatih/color ecosystem).
func (e *Error) ColoredDetailedError() string {
	header := color.New(color.FgRed, color.Bold)
	gutterColor := color.New(color.FgCyan)
	pointerColor := color.New(color.FgYellow, color.Bold)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", header.Sprint(e.Error()))
	for _, ln := range e.contextLines() {
		gutter := "    "
		if ln.current {
			gutter = "  > "
		}
		fmt.Fprintf(&b, "%s%s\n", gutterColor.Sprintf("%s%3d | ", gutter, ln.num), ln.text)
		if ln.current && e.Column > 0 {
			fmt.Fprintf(&b, "      | %s\n", pointerColor.Sprint(strings.Repeat(" ", e.Column-1)+"^"))
		}
	}
	return b.String()
}

// PrintColoredDetailedError writes ColoredDetailedError to stdout through
// go-colorable, so the ANSI codes above degrade correctly on a Windows
// console instead of printing escape sequences literally.
func (e *Error) PrintColoredDetailedError() {
	fmt.Fprint(colorable.NewColorableStdout(), e.ColoredDetailedError())
}

type contextLine struct {
	num     int
	text    string
	current bool
}

func (e *Error) contextLines() []contextLine {
	if e.source == nil || e.Line <= 0 {
		return nil
	}
	lines := strings.Split(e.source.Text, "\n")
	if e.Line > len(lines) {
		return nil
	}
	start := e.Line - 2
	if start < 1 {
		start = 1
	}
	end := e.Line + 2
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]contextLine, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, contextLine{num: i, text: lines[i-1], current: i == e.Line})
	}
	return out
}
