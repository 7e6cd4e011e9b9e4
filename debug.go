package miya

import (
	"strings"

	"github.com/liquidgo/liquid/inheritance"
	"github.com/liquidgo/liquid/liquiderr"
	"github.com/liquidgo/liquid/runtime"
)

// DebugReport bundles a render's output with the variable-lookup telemetry
// a runtime.Tracker collected along the way, for a "-v"/debug display mode.
// Grounded on the teacher's DebugTracer, reshaped around this module's own
// Tracker (spec §4.8b) rather than a separate step-event log, since nothing
// in this render engine emits per-step trace events beyond lookup/undefined/
// assign counts.
type DebugReport struct {
	Output    string
	Lookups   map[string]int
	Undefined map[string]int
	Assigns   map[string]int
	Err       error
}

// Debug renders the template like Render, but attaches a Tracker so the
// report also carries every variable path looked up, which ones resolved to
// nothing, and every name a `{% assign %}`/`{% capture %}` bound.
func (t *Template) Debug(globals map[string]any) *DebugReport {
	resolved, err := t.resolveInheritance()
	if err != nil {
		return &DebugReport{Err: locate(err, t.parsed.Source)}
	}

	ctx := t.newContext(globals)
	tracker := runtime.NewTracker()
	ctx.SetTracker(tracker)

	eval := t.env.newEvaluator()
	target := t.parsed
	if resolved != nil {
		inheritance.Apply(ctx, resolved)
		target = resolved.Base
	}

	var b strings.Builder
	renderErr := eval.Render(&b, target, ctx)
	if renderErr != nil {
		renderErr = locate(renderErr, t.parsed.Source)
	}

	return &DebugReport{
		Output:    b.String(),
		Lookups:   tracker.Lookups,
		Undefined: tracker.Undefined,
		Assigns:   tracker.Assigns,
		Err:       renderErr,
	}
}

// DetailedError renders r.Err's source-context gutter, or "" when the
// render succeeded or the error doesn't carry a locatable span.
func (r *DebugReport) DetailedError() string {
	le, ok := r.Err.(*liquiderr.Error)
	if !ok {
		return ""
	}
	return le.DetailedError()
}
