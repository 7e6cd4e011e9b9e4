package analysis

import (
	"io"

	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// AnalyzeWithContext performs contextual analysis (spec §4.8b): it actually
// renders tmpl against data, discarding the output, and returns the counts a
// runtime.Tracker recorded along the way. Unlike Analyze, this captures
// dynamic branches (a variable only referenced inside a conditional that
// happened to be true) but loses per-occurrence source spans — every hit on
// the same stringified path collapses into one counter.
func AnalyzeWithContext(eval *runtime.Evaluator, tmpl *parser.Template, data map[string]any, limits runtime.Limits) (*ContextualTemplateAnalysis, error) {
	ctx := runtime.NewContext(data, nil, limits, runtime.UndefinedLenient)
	tracker := runtime.NewTracker()
	ctx.SetTracker(tracker)

	if err := eval.Render(io.Discard, tmpl, ctx); err != nil {
		return nil, err
	}

	return &ContextualTemplateAnalysis{
		Variables: tracker.Lookups,
		Undefined: tracker.Undefined,
		Assigns:   tracker.Assigns,
	}, nil
}
