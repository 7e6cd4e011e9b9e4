package parser

import "fmt"

// SyntaxError reports a malformed template: bad token, wrong arity, unknown
// tag name. liquiderr.Wrap turns it into a liquiderr.Error, which attaches a
// Source for line/column rendering (spec §4.9).
type SyntaxError struct {
	Span Span
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Span.TemplateName, e.Span.ByteIndex, e.Msg)
}

// SpanValue and RawMessage let a host reformat the error with line/column
// info (spec §7) without depending on this package's internal shape.
func (e *SyntaxError) SpanValue() Span   { return e.Span }
func (e *SyntaxError) RawMessage() string { return e.Msg }

func newSyntaxError(span Span, format string, args ...any) *SyntaxError {
	return &SyntaxError{Span: span, Msg: fmt.Sprintf(format, args...)}
}
