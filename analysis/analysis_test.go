package analysis

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, name, src string) *parser.Template {
	t.Helper()
	p := parser.NewParser(name, src, lexer.DefaultConfig(), parser.DefaultRegistry())
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)
	return tmpl
}

type memLoader struct{ templates map[string]string }

func (m memLoader) Load(name string) (*parser.Template, error) {
	src, ok := m.templates[name]
	if !ok {
		return nil, &runtime.TemplateNotFoundError{Name: name}
	}
	return parser.NewParser(name, src, lexer.DefaultConfig(), parser.DefaultRegistry()).ParseTemplate()
}

func TestAnalyzeCollectsGlobalsAndLocals(t *testing.T) {
	tmpl := parse(t, "t", `{% assign greeting = "hi" %}{{ greeting }} {{ user.name | upcase }}`)
	report, err := Analyze(tmpl, nil, false)
	require.NoError(t, err)

	assert.Contains(t, report.Locals, "greeting")
	assert.Contains(t, report.Globals, "user")
	assert.NotContains(t, report.Globals, "greeting")
	assert.Contains(t, report.TagNames(), "assign")
	assert.Contains(t, report.FilterNames(), "upcase")
}

func TestAnalyzeForLoopVariableIsNotGlobal(t *testing.T) {
	tmpl := parse(t, "t", `{% for item in items %}{{ item }} of {{ forloop.index }}{% endfor %}`)
	report, err := Analyze(tmpl, nil, false)
	require.NoError(t, err)

	assert.Contains(t, report.Globals, "items")
	assert.NotContains(t, report.Globals, "item")
	assert.NotContains(t, report.Globals, "forloop")
	assert.Contains(t, report.TagNames(), "for")
}

func TestAnalyzeReferenceBeforeAssignIsStillGlobal(t *testing.T) {
	tmpl := parse(t, "t", `{{ count }}{% assign count = 1 %}`)
	report, err := Analyze(tmpl, nil, false)
	require.NoError(t, err)

	assert.Contains(t, report.Globals, "count")
	assert.Contains(t, report.Locals, "count")
}

func TestAnalyzeWithBindingsAreScopedToBody(t *testing.T) {
	tmpl := parse(t, "t", `{% with x: 1 %}{{ x }}{% endwith %}{{ x }}`)
	report, err := Analyze(tmpl, nil, false)
	require.NoError(t, err)

	assert.Contains(t, report.Globals, "x")
	assert.NotContains(t, report.Locals, "x")
}

func TestAnalyzeIncludeSharesScopeWhenResolved(t *testing.T) {
	loader := memLoader{templates: map[string]string{
		"partial.liquid": `{{ shared }}`,
	}}
	tmpl := parse(t, "main", `{% assign shared = 1 %}{% include "partial.liquid" %}`)
	report, err := Analyze(tmpl, loader, true)
	require.NoError(t, err)

	assert.NotContains(t, report.Globals, "shared")
	assert.Contains(t, report.TagNames(), "include")
}

func TestAnalyzeRenderIsolatesScopeWhenResolved(t *testing.T) {
	loader := memLoader{templates: map[string]string{
		"partial.liquid": `{{ shared }}`,
	}}
	tmpl := parse(t, "main", `{% assign shared = 1 %}{% render "partial.liquid" %}`)
	report, err := Analyze(tmpl, loader, true)
	require.NoError(t, err)

	assert.Contains(t, report.Globals, "shared")
}

func TestAnalyzeSkipsUnresolvedPartialsWhenNoLoader(t *testing.T) {
	tmpl := parse(t, "main", `{% include "partial.liquid" %}`)
	report, err := Analyze(tmpl, nil, true)
	require.NoError(t, err)
	assert.Contains(t, report.TagNames(), "include")
}

func TestAnalyzeCycleDetectionStopsInfiniteRecursion(t *testing.T) {
	loader := memLoader{templates: map[string]string{
		"a.liquid": `{% include "main" %}`,
	}}
	tmpl := parse(t, "main", `{% include "a.liquid" %}`)
	_, err := Analyze(tmpl, loader, true)
	require.NoError(t, err)
}

type stubFilters struct{}

func (stubFilters) Get(name string) (runtime.FilterFunc, bool) {
	return func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return v, nil
	}, true
}

func TestAnalyzeWithContextTracksLookupsAndUndefined(t *testing.T) {
	tmpl := parse(t, "t", `{{ user.name }} {{ missing.field }}`)
	eval := runtime.NewEvaluator(stubFilters{}, nil)

	result, err := AnalyzeWithContext(eval, tmpl, map[string]any{
		"user": map[string]any{"name": "Ada"},
	}, runtime.DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Variables["user.name"])
	assert.Equal(t, 1, result.Variables["missing.field"])
	assert.Equal(t, 1, result.Undefined["missing.field"])
	assert.NotContains(t, result.Undefined, "user.name")
}

func TestAnalyzeWithContextTracksAssigns(t *testing.T) {
	tmpl := parse(t, "t", `{% assign total = 1 %}{% assign total = 2 %}`)
	eval := runtime.NewEvaluator(stubFilters{}, nil)

	result, err := AnalyzeWithContext(eval, tmpl, nil, runtime.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Assigns["total"])
}

func TestAnalyzeLocalsAndGlobalsMatchExactSet(t *testing.T) {
	tmpl := parse(t, "t", `{% assign greeting = "hi" %}{% for item in items %}{{ greeting }} {{ item }} {{ user.name }}{% endfor %}`)
	report, err := Analyze(tmpl, nil, false)
	require.NoError(t, err)

	sortStrings := func(s []string) []string {
		sorted := append([]string(nil), s...)
		sort.Strings(sorted)
		return sorted
	}

	wantLocals := []string{"greeting"}
	if diff := cmp.Diff(wantLocals, sortStrings(report.Locals)); diff != "" {
		t.Errorf("Locals mismatch (-want +got):\n%s", diff)
	}

	wantGlobals := []string{"items", "user"}
	if diff := cmp.Diff(wantGlobals, sortStrings(report.Globals)); diff != "" {
		t.Errorf("Globals mismatch (-want +got):\n%s", diff)
	}
}
