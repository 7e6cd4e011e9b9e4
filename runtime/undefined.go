package runtime

import (
	"fmt"

	"github.com/liquidgo/liquid/parser"
)

// UndefinedBehavior selects how a missing path resolves (spec §3
// "Undefined"): lenient renders as empty and compares equal to nil, debug
// renders a descriptive placeholder, strict raises on first use.
type UndefinedBehavior int

const (
	UndefinedLenient UndefinedBehavior = iota
	UndefinedDebug
	UndefinedStrict
)

// Undefined is the sum-type value bound to a path that resolved to nothing.
// It carries the path text and the Span it was encountered at so
// UndefinedError can point back at the template.
type Undefined struct {
	Name     string
	Behavior UndefinedBehavior
	Hint     string
	Span     parser.Span
}

func NewUndefined(name string, behavior UndefinedBehavior, span parser.Span) *Undefined {
	return &Undefined{Name: name, Behavior: behavior, Span: span}
}

func NewDebugUndefined(name, hint string, span parser.Span) *Undefined {
	return &Undefined{Name: name, Behavior: UndefinedDebug, Hint: hint, Span: span}
}

// String is what renders in `{{ }}` output; strict undefined never reaches
// here because evaluation fails first.
func (u *Undefined) String() string {
	switch u.Behavior {
	case UndefinedDebug:
		if u.Hint != "" {
			return fmt.Sprintf("{{ undefined: %s (%s) }}", u.Name, u.Hint)
		}
		return fmt.Sprintf("{{ undefined: %s }}", u.Name)
	default:
		return ""
	}
}

// Err reports the error strict mode should raise on first access, nil for
// lenient/debug.
func (u *Undefined) Err() error {
	if u.Behavior == UndefinedStrict {
		return &UndefinedError{base: base{Span: u.Span}, Name: u.Name}
	}
	return nil
}

func IsUndefined(v any) bool {
	_, ok := v.(*Undefined)
	return ok
}

// Handler constructs Undefined values consistently with an Environment's
// configured UndefinedBehavior and threads chained-access naming (`a.b.c`)
// through nested lookups.
type Handler struct {
	Behavior UndefinedBehavior
}

func NewHandler(behavior UndefinedBehavior) *Handler {
	return &Handler{Behavior: behavior}
}

// Missing builds the Undefined (or error, in strict mode) for a path head
// or selector that resolved to nothing.
func (h *Handler) Missing(name string, span parser.Span) (any, error) {
	u := h.build(name, span)
	if err := u.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

// Chain extends an existing Undefined with one more selector, e.g.
// `undefined.attr` becomes Undefined{Name: "undefined.attr"}.
func (h *Handler) Chain(parent *Undefined, selector string, span parser.Span) (any, error) {
	return h.Missing(parent.Name+selector, span)
}

func (h *Handler) build(name string, span parser.Span) *Undefined {
	switch h.Behavior {
	case UndefinedDebug:
		return NewDebugUndefined(name, "not found", span)
	case UndefinedStrict:
		return NewUndefined(name, UndefinedStrict, span)
	default:
		return NewUndefined(name, UndefinedLenient, span)
	}
}
