package runtime

import (
	"fmt"

	"github.com/liquidgo/liquid/parser"
)

// base is embedded by every runtime error type: a Span for diagnostics plus
// an optional suggestion, following the teacher's builder-method error
// idiom (WithSuggestion chains onto a constructed error).
type base struct {
	Span       parser.Span
	Suggestion string
}

func (b *base) withSuggestion(s string) *base {
	b.Suggestion = s
	return b
}

func (b base) locate() string {
	if b.Span.TemplateName == "" {
		return ""
	}
	return fmt.Sprintf(" (%s:%d)", b.Span.TemplateName, b.Span.ByteIndex)
}

// SpanValue exposes the error's diagnostic span so a host can render a
// gutter-style "on line L of origin" message (spec §7) without knowing the
// concrete error type.
func (b base) SpanValue() parser.Span { return b.Span }

// UndefinedError is raised by strict Undefined access (spec §4.9).
type UndefinedError struct {
	base
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined variable %q%s", e.Name, e.locate())
}

func (e *UndefinedError) RawMessage() string { return fmt.Sprintf("undefined variable %q", e.Name) }

// TypeError is raised when an operation is applied to a value of the wrong
// kind (e.g. `size` on an integer, arithmetic filter on a non-numeric
// string that fails coercion).
type TypeError struct {
	base
	Message string
}

func (e *TypeError) Error() string { return fmt.Sprintf("%s%s", e.Message, e.locate()) }

func (e *TypeError) RawMessage() string { return e.Message }

func NewTypeError(span parser.Span, format string, args ...any) *TypeError {
	return &TypeError{base: base{Span: span}, Message: fmt.Sprintf(format, args...)}
}

// ValueError is raised on a structurally valid but semantically invalid
// value (bad filter argument, division by zero, string too long for
// to_int's DoS guard).
type ValueError struct {
	base
	Message string
}

func (e *ValueError) Error() string { return fmt.Sprintf("%s%s", e.Message, e.locate()) }

func (e *ValueError) RawMessage() string { return e.Message }

func NewValueError(span parser.Span, format string, args ...any) *ValueError {
	return &ValueError{base: base{Span: span}, Message: fmt.Sprintf(format, args...)}
}

// NoSuchFilterError is raised when an output/assign expression references an
// unregistered filter name.
type NoSuchFilterError struct {
	base
	Name string
}

func (e *NoSuchFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q%s", e.Name, e.locate())
}

func (e *NoSuchFilterError) RawMessage() string { return fmt.Sprintf("unknown filter %q", e.Name) }

// DisabledTagError is raised when a template uses a tag the Environment has
// disabled (spec §4.9).
type DisabledTagError struct {
	base
	Name string
}

func (e *DisabledTagError) Error() string {
	return fmt.Sprintf("tag %q is disabled%s", e.Name, e.locate())
}

func (e *DisabledTagError) RawMessage() string { return fmt.Sprintf("tag %q is disabled", e.Name) }

// TemplateNotFoundError is raised by a Loader miss.
type TemplateNotFoundError struct {
	base
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %q%s", e.Name, e.locate())
}

func (e *TemplateNotFoundError) RawMessage() string { return fmt.Sprintf("template not found: %q", e.Name) }

// TemplateInheritanceError covers malformed `extends`/`block` usage other
// than a missing required block (spec §4.5/§4.9).
type TemplateInheritanceError struct {
	base
	Message string
}

func (e *TemplateInheritanceError) Error() string { return fmt.Sprintf("%s%s", e.Message, e.locate()) }

func (e *TemplateInheritanceError) RawMessage() string { return e.Message }

// RequiredBlockError is raised when a `{% block name required %}` is never
// overridden by a leaf template.
type RequiredBlockError struct {
	base
	Name string
}

func (e *RequiredBlockError) Error() string {
	return fmt.Sprintf("block %q is required but was never overridden%s", e.Name, e.locate())
}

func (e *RequiredBlockError) RawMessage() string {
	return fmt.Sprintf("block %q is required but was never overridden", e.Name)
}

// ContextDepthError is raised when render-context nesting (includes,
// renders, macro calls) exceeds Limits.MaxContextDepth (spec §5).
type ContextDepthError struct {
	base
	Limit int
}

func (e *ContextDepthError) Error() string {
	return fmt.Sprintf("maximum context depth of %d exceeded%s", e.Limit, e.locate())
}

func (e *ContextDepthError) RawMessage() string {
	return fmt.Sprintf("maximum context depth of %d exceeded", e.Limit)
}

// LoopIterationLimitError is raised when a `for`/`tablerow` loop exceeds
// Limits.MaxLoopIterations (spec §5).
type LoopIterationLimitError struct {
	base
	Limit int
}

func (e *LoopIterationLimitError) Error() string {
	return fmt.Sprintf("loop exceeded %d iterations%s", e.Limit, e.locate())
}

func (e *LoopIterationLimitError) RawMessage() string {
	return fmt.Sprintf("loop exceeded %d iterations", e.Limit)
}

// OutputStreamLimitError is raised when rendered output exceeds
// Limits.MaxOutputBytes (spec §5), guarding against unbounded template
// amplification.
type OutputStreamLimitError struct {
	base
	Limit int
}

func (e *OutputStreamLimitError) Error() string {
	return fmt.Sprintf("output exceeded %d bytes%s", e.Limit, e.locate())
}

func (e *OutputStreamLimitError) RawMessage() string {
	return fmt.Sprintf("output exceeded %d bytes", e.Limit)
}

// LocalNamespaceLimitError is raised when the context's live scope stack, taken
// as a whole, would hold more local variables than Limits.MaxLocalVariables
// (spec §5).
type LocalNamespaceLimitError struct {
	base
	Limit int
}

func (e *LocalNamespaceLimitError) Error() string {
	return fmt.Sprintf("local namespace exceeded %d variables%s", e.Limit, e.locate())
}

func (e *LocalNamespaceLimitError) RawMessage() string {
	return fmt.Sprintf("local namespace exceeded %d variables", e.Limit)
}

// TranslationSyntaxError is raised by a malformed `{% translate %}` message
// (bad %(name)s placeholder, mismatched bindings).
type TranslationSyntaxError struct {
	base
	Message string
}

func (e *TranslationSyntaxError) Error() string { return fmt.Sprintf("%s%s", e.Message, e.locate()) }

func (e *TranslationSyntaxError) RawMessage() string { return e.Message }
