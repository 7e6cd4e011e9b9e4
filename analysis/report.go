// Package analysis implements the static analyzer (spec §4.8): structural
// analysis walks a parsed template's AST without rendering it, and
// contextual analysis drives an actual render to record every variable
// lookup a real data context produces.
package analysis

import (
	"github.com/liquidgo/liquid/parser"
	"github.com/samber/lo"
)

// Variable is one Path reference found during structural analysis.
type Variable struct {
	Name string // Path.String(), e.g. "a.b[0].c"
	Span parser.Span
}

// TagAnalysis is every occurrence of one tag name across a template (and,
// when partial resolution is enabled, its included/rendered/extended
// templates).
type TagAnalysis struct {
	Name  string
	Spans []parser.Span
}

// TemplateAnalysis is structural analysis's result (spec §4.8a): every
// variable reference, every name an assign/capture/increment/decrement binds
// somewhere in the template ("locals"; loop variables and with/macro
// bindings are block-scoped and not listed there), every reference whose
// head segment was not bound at that point ("globals"), every
// filter invoked, and every tag encountered.
type TemplateAnalysis struct {
	Variables []Variable
	Locals    []string
	Globals   []string
	Filters   map[string][]parser.Span
	Tags      map[string][]parser.Span
}

// FilterNames returns the deduplicated set of filter names found, in no
// particular order.
func (a *TemplateAnalysis) FilterNames() []string {
	return lo.Keys(a.Filters)
}

// TagNames returns the deduplicated set of tag names found, in no particular
// order.
func (a *TemplateAnalysis) TagNames() []string {
	return lo.Keys(a.Tags)
}

// ContextualTemplateAnalysis is contextual analysis's result (spec §4.8b):
// per-path lookup counts captured from an actual render, keyed by the
// stringified path representation (e.g. "a.b[0].c").
type ContextualTemplateAnalysis struct {
	Variables map[string]int
	Undefined map[string]int
	Assigns   map[string]int
}

func newTemplateAnalysis() *TemplateAnalysis {
	return &TemplateAnalysis{
		Filters: make(map[string][]parser.Span),
		Tags:    make(map[string][]parser.Span),
	}
}
