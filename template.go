package miya

import (
	"context"
	"io"
	"strings"

	"github.com/liquidgo/liquid/analysis"
	"github.com/liquidgo/liquid/inheritance"
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// Template is a parsed, ready-to-render Liquid document, built by
// Environment.FromString or Environment.GetTemplate (spec §6.5).
type Template struct {
	env     *Environment
	parsed  *parser.Template
	name    string
	globals map[string]any
	matter  map[string]any
}

// TemplateOption customizes a Template at compile time.
type TemplateOption func(*Template)

// WithTemplateName overrides the origin name FromString otherwise defaults
// to "<string>". Passing it to GetTemplate changes only what Name reports:
// the template is looked up, parsed and diagnosed under the name it was
// loaded with.
func WithTemplateName(name string) TemplateOption {
	return func(t *Template) { t.name = name }
}

// WithGlobals attaches data this Template sees on every Render call, unless
// a same-named key in Render's own argument overrides it.
func WithGlobals(globals map[string]any) TemplateOption {
	return func(t *Template) { t.globals = globals }
}

// WithMatter attaches a loader-supplied front-matter mapping (spec §3
// Loader's optional `matter` result) directly, bypassing the loader lookup
// GetTemplate otherwise performs.
func WithMatter(matter map[string]any) TemplateOption {
	return func(t *Template) { t.matter = matter }
}

// Name is this Template's origin identifier.
func (t *Template) Name() string { return t.name }

// Matter returns the front-matter mapping a MatterLoader decoded for this
// template, or nil if none was supplied.
func (t *Template) Matter() map[string]any { return t.matter }

// Render renders the template to a string against globals merged over the
// Template's own WithGlobals data and the Environment's WithGlobal data
// (spec §6.5 "render").
func (t *Template) Render(globals map[string]any) (string, error) {
	var b strings.Builder
	if err := t.RenderTo(&b, globals); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderTo streams rendered output to w instead of building a string.
func (t *Template) RenderTo(w io.Writer, globals map[string]any) error {
	resolved, err := t.resolveInheritance()
	if err != nil {
		return locate(err, t.parsed.Source)
	}

	ctx := t.newContext(globals)
	eval := t.env.newEvaluator()

	target := t.parsed
	if resolved != nil {
		inheritance.Apply(ctx, resolved)
		target = resolved.Base
	}
	return locate(eval.Render(w, target, ctx), t.parsed.Source)
}

// RenderAsync renders the template after concurrently prefetching every
// statically known `include`/`render` partial (spec §5: render "may
// suspend at loader I/O"), so the synchronous tree-walk that follows rarely
// blocks on a cold loader.
func (t *Template) RenderAsync(ctx context.Context, globals map[string]any) (string, error) {
	if loader := t.env.templateLoader(); loader != nil {
		runtime.PrefetchTemplates(ctx, loader, t.parsed.Nodes)
	}
	return t.Render(globals)
}

// Analyze performs structural analysis without rendering (spec §6.5
// "analyze"): every variable reference, every bound local, every filter and
// tag used. includePartials additionally walks included/rendered/extended
// templates the loader can resolve.
func (t *Template) Analyze(includePartials bool) (*analysis.TemplateAnalysis, error) {
	result, err := analysis.Analyze(t.parsed, t.env.templateLoader(), includePartials)
	if err != nil {
		return nil, locate(err, t.parsed.Source)
	}
	return result, nil
}

func (t *Template) analyzeTags(includePartials bool) ([]analysis.TagAnalysis, error) {
	result, err := t.Analyze(includePartials)
	if err != nil {
		return nil, err
	}
	tags := make([]analysis.TagAnalysis, 0, len(result.Tags))
	for _, name := range result.TagNames() {
		tags = append(tags, analysis.TagAnalysis{Name: name, Spans: result.Tags[name]})
	}
	return tags, nil
}

// AnalyzeWithContext actually renders the template against data, discarding
// the output, and returns the lookup/undefined/assign counts a real render
// produced (spec §6.5 "analyze_with_context"; captures dynamic branches
// structural analysis can't see, at the cost of per-occurrence spans).
func (t *Template) AnalyzeWithContext(data map[string]any) (*analysis.ContextualTemplateAnalysis, error) {
	eval := t.env.newEvaluator()
	result, err := analysis.AnalyzeWithContext(eval, t.parsed, t.mergeGlobals(data), t.env.limits)
	if err != nil {
		return nil, locate(err, t.parsed.Source)
	}
	return result, nil
}

func (t *Template) newContext(extra map[string]any) *runtime.Context {
	return runtime.NewContext(t.mergeGlobals(extra), nil, t.env.limits, t.env.undefinedBehavior)
}

func (t *Template) mergeGlobals(extra map[string]any) map[string]any {
	merged := make(map[string]any, len(t.env.globals)+len(t.globals)+len(extra))
	for k, v := range t.env.globals {
		merged[k] = v
	}
	for k, v := range t.globals {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (t *Template) resolveInheritance() (*inheritance.Resolved, error) {
	if !hasExtends(t.parsed.Nodes) {
		return nil, nil
	}
	l := t.env.templateLoader()
	if l == nil {
		return nil, &runtime.TemplateInheritanceError{Message: "extends requires a configured loader"}
	}
	return inheritance.Resolve(l, t.parsed)
}

func hasExtends(nodes []parser.Node) bool {
	for _, n := range nodes {
		if _, ok := n.(*parser.ExtendsNode); ok {
			return true
		}
	}
	return false
}
