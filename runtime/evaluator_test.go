package runtime

import (
	"strings"
	"testing"

	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFilters struct {
	fns map[string]FilterFunc
}

func (s stubFilters) Get(name string) (FilterFunc, bool) {
	fn, ok := s.fns[name]
	return fn, ok
}

func newStubFilters() stubFilters {
	return stubFilters{fns: map[string]FilterFunc{
		"upcase": func(input any, args FilterArgs, ctx *Context) (any, error) {
			return strings.ToUpper(ToString(input)), nil
		},
		"plus": func(input any, args FilterArgs, ctx *Context) (any, error) {
			a, err := ToFloat64(input, 0)
			if err != nil {
				return nil, err
			}
			arg, _ := args.Arg(0)
			b, err := ToFloat64(arg, 0)
			if err != nil {
				return nil, err
			}
			return a + b, nil
		},
	}}
}

type stubLoader struct {
	templates map[string]string
	cfg       lexer.Config
	reg       *parser.Registry
}

func (l stubLoader) Load(name string) (*parser.Template, error) {
	src, ok := l.templates[name]
	if !ok {
		return nil, &TemplateNotFoundError{Name: name}
	}
	p := parser.NewParser(name, src, l.cfg, l.reg)
	return p.ParseTemplate()
}

func renderSource(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", src, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ev := NewEvaluator(newStubFilters(), nil)
	ctx := NewContext(data, nil, DefaultLimits(), UndefinedLenient)
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	return out
}

func TestRenderContentAndOutput(t *testing.T) {
	out := renderSource(t, "hello {{ name }}!", map[string]any{"name": "world"})
	assert.Equal(t, "hello world!", out)
}

func TestRenderOutputAppliesFilter(t *testing.T) {
	out := renderSource(t, "{{ name | upcase }}", map[string]any{"name": "ann"})
	assert.Equal(t, "ANN", out)
}

func TestRenderUndefinedLenientIsEmpty(t *testing.T) {
	out := renderSource(t, "[{{ missing }}]", nil)
	assert.Equal(t, "[]", out)
}

func TestRenderUndefinedStrictErrors(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", "{{ missing }}", cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ev := NewEvaluator(newStubFilters(), nil)
	ctx := NewContext(nil, nil, DefaultLimits(), UndefinedStrict)
	_, err = ev.RenderToString(tmpl, ctx)
	require.Error(t, err)
	assert.IsType(t, &UndefinedError{}, err)
}

func TestRenderIfElsifElse(t *testing.T) {
	tmpl := "{% if a %}A{% elsif b %}B{% else %}C{% endif %}"
	assert.Equal(t, "A", renderSource(t, tmpl, map[string]any{"a": true}))
	assert.Equal(t, "B", renderSource(t, tmpl, map[string]any{"b": true}))
	assert.Equal(t, "C", renderSource(t, tmpl, nil))
}

func TestSuppressBlankControlFlowBlocksDropsWhitespaceOnlyOutput(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	src := "before\n{% if a %}\n  \n{% endif %}\nafter"
	p := parser.NewParser("t", src, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ctx := NewContext(map[string]any{"a": true}, nil, DefaultLimits(), UndefinedLenient)
	ev := &Evaluator{Filters: newStubFilters(), SuppressBlankControlFlowBlocks: true}
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "before\n\nafter", out)

	ctx2 := NewContext(map[string]any{"a": true}, nil, DefaultLimits(), UndefinedLenient)
	ev2 := &Evaluator{Filters: newStubFilters()}
	out2, err := ev2.RenderToString(tmpl, ctx2)
	require.NoError(t, err)
	assert.Equal(t, "before\n\n  \n\nafter", out2)
}

func TestSuppressBlankControlFlowBlocksKeepsNonBlankOutput(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", "{% if a %}hi{% endif %}", cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ctx := NewContext(map[string]any{"a": true}, nil, DefaultLimits(), UndefinedLenient)
	ev := &Evaluator{Filters: newStubFilters(), SuppressBlankControlFlowBlocks: true}
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRenderUnlessNegatesOnlyFirstBranch(t *testing.T) {
	out := renderSource(t, "{% unless a %}skip{% endunless %}", map[string]any{"a": true})
	assert.Equal(t, "", out)
	out = renderSource(t, "{% unless a %}shown{% endunless %}", nil)
	assert.Equal(t, "shown", out)
}

func TestRenderCase(t *testing.T) {
	tmpl := "{% case x %}{% when 1 %}one{% when 2, 3 %}two-or-three{% else %}other{% endcase %}"
	assert.Equal(t, "one", renderSource(t, tmpl, map[string]any{"x": int64(1)}))
	assert.Equal(t, "two-or-three", renderSource(t, tmpl, map[string]any{"x": int64(3)}))
	assert.Equal(t, "other", renderSource(t, tmpl, map[string]any{"x": int64(9)}))
}

func TestRenderForWithForloopDrop(t *testing.T) {
	tmpl := "{% for x in items %}{{ forloop.index }}:{{ x }}{% unless forloop.last %},{% endunless %}{% endfor %}"
	out := renderSource(t, tmpl, map[string]any{"items": []any{"a", "b", "c"}})
	assert.Equal(t, "1:a,2:b,3:c", out)
}

func TestRenderForAssignEscapesLoopScopeButLoopVarDoesNot(t *testing.T) {
	tmpl := "{% for x in items %}{% assign last = x %}{% endfor %}[{{ last }}][{{ x }}]"
	out := renderSource(t, tmpl, map[string]any{"items": []any{"a", "b", "c"}})
	assert.Equal(t, "[c][]", out)
}

func TestRenderForNestedLoopExposesParentloop(t *testing.T) {
	tmpl := "{% for x in a %}{% for y in x %}{{ forloop.parentloop.index }}.{{ forloop.index }}:{{ y }} {% endfor %}{% endfor %}"
	data := map[string]any{"a": []any{[]any{"a", "b"}, []any{"c"}}}
	out := renderSource(t, tmpl, data)
	assert.Equal(t, "1.1:a 1.2:b 2.1:c ", out)
}

func TestRenderForOutermostParentloopIsUndefined(t *testing.T) {
	tmpl := "[{% for x in items %}{{ forloop.parentloop.index }}{% endfor %}]"
	out := renderSource(t, tmpl, map[string]any{"items": []any{"a"}})
	assert.Equal(t, "[]", out)
}

func TestRenderForElseOnEmpty(t *testing.T) {
	out := renderSource(t, "{% for x in items %}{{ x }}{% else %}none{% endfor %}", map[string]any{"items": []any{}})
	assert.Equal(t, "none", out)
}

func TestRenderForOverRangeLimitOffset(t *testing.T) {
	out := renderSource(t, "{% for x in (1..10) limit: 3 offset: 2 %}{{ x }}{% endfor %}", nil)
	assert.Equal(t, "345", out)
}

func TestRenderForBreakAndContinue(t *testing.T) {
	tmpl := "{% for x in (1..5) %}{% if x == 3 %}{% break %}{% endif %}{{ x }}{% endfor %}"
	assert.Equal(t, "12", renderSource(t, tmpl, nil))

	tmpl = "{% for x in (1..4) %}{% if x == 2 %}{% continue %}{% endif %}{{ x }}{% endfor %}"
	assert.Equal(t, "134", renderSource(t, tmpl, nil))
}

func TestRenderCaptureAssignIncrementDecrement(t *testing.T) {
	tmpl := "{% capture greeting %}hi {{ name }}{% endcapture %}{{ greeting }}" +
		"{% increment n %}{% increment n %}{% decrement n %}"
	out := renderSource(t, tmpl, map[string]any{"name": "sam"})
	assert.Equal(t, "hi sam011", out)
}

func TestRenderCycle(t *testing.T) {
	tmpl := "{% for x in (1..4) %}{% cycle 'a', 'b' %}{% endfor %}"
	assert.Equal(t, "abab", renderSource(t, tmpl, nil))
}

func TestRenderIfChangedSuppressesRepeats(t *testing.T) {
	tmpl := "{% for x in items %}{% ifchanged %}{{ x }}{% endifchanged %}{% endfor %}"
	out := renderSource(t, tmpl, map[string]any{"items": []any{"a", "a", "b", "b", "a"}})
	assert.Equal(t, "aba", out)
}

func TestRenderTableRowLayout(t *testing.T) {
	out := renderSource(t, "{% tablerow x in (1..4) cols: 2 %}{{ x }}{% endtablerow %}", nil)
	assert.Equal(t, `<tr class="row1"><td class="col1">1</td><td class="col2">2</td></tr>
<tr class="row2"><td class="col1">3</td><td class="col2">4</td></tr>
`, out)
}

func TestRenderTableRowLoopDropFields(t *testing.T) {
	tmpl := "{% tablerow x in (1..4) cols: 2 %}{{ tablerowloop.col_first }}-{{ tablerowloop.col_last }}-{{ tablerowloop.row }}{% endtablerow %}"
	out := renderSource(t, tmpl, nil)
	assert.Equal(t, `<tr class="row1"><td class="col1">true-false-1</td><td class="col2">false-true-1</td></tr>
<tr class="row2"><td class="col1">true-false-2</td><td class="col2">false-true-2</td></tr>
`, out)
}

func TestRenderMacroCall(t *testing.T) {
	tmpl := `{% macro greet(name: "friend") %}hi {{ name }}{% endmacro %}{% call greet() %} {% call greet(name: "zo") %}`
	out := renderSource(t, tmpl, nil)
	assert.Equal(t, "hi friend hi zo", out)
}

func TestRenderMacroCallCollectsExcessArgsAndKwargs(t *testing.T) {
	tmpl := `{% macro greet(name) %}{{ name }}:{{ args[0] }},{{ args[1] }}:{{ kwargs.extra }}{% endmacro %}` +
		`{% call greet("a", "b", "c", extra: "x") %}`
	out := renderSource(t, tmpl, nil)
	assert.Equal(t, "a:b,c:x", out)
}

func TestRenderCallToUndefinedMacroRendersAsUndefined(t *testing.T) {
	out := renderSource(t, `[{% call nope() %}]`, nil)
	assert.Equal(t, "[]", out)
}

func TestRenderMacroBodyCannotInclude(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	loader := stubLoader{templates: map[string]string{"partial": "x"}, cfg: cfg, reg: reg}
	eval := NewEvaluator(newStubFilters(), loader)
	src := `{% macro m() %}{% include "partial" %}{% endmacro %}{% call m() %}`
	p := parser.NewParser("t", src, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)
	ctx := NewContext(nil, nil, DefaultLimits(), UndefinedLenient)
	var b strings.Builder
	err = eval.Render(&b, tmpl, ctx)
	require.Error(t, err)
	var disabled *DisabledTagError
	assert.ErrorAs(t, err, &disabled)
}

func TestRenderWithIntroducesScopedBindings(t *testing.T) {
	tmpl := `{% with a: 1, b: 2 %}{{ a }}-{{ b }}{% endwith %}[{{ a }}]`
	out := renderSource(t, tmpl, nil)
	assert.Equal(t, "1-2[]", out)
}

func TestRenderTranslateWithPlural(t *testing.T) {
	tmpl := `{% translate count: n %}one item{% plural %}%(n)s items{% endtranslate %}`
	assert.Equal(t, "one item", renderSource(t, tmpl, map[string]any{"n": int64(1)}))
	assert.Equal(t, "5 items", renderSource(t, tmpl, map[string]any{"n": int64(5)}))
}

func TestRenderTranslateAllowsBareVariableReference(t *testing.T) {
	tmpl := `{% translate %}Hello, {{ name }}!{% endtranslate %}`
	out := renderSource(t, tmpl, map[string]any{"name": "Sam"})
	assert.Equal(t, "Hello, Sam!", out)
}

func TestRenderTranslateRejectsPropertyAccessInBody(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", `{% translate %}Hi {{ user.name }}{% endtranslate %}`, cfg, reg)
	_, err := p.ParseTemplate()
	require.Error(t, err)
}

func TestRenderTranslateRejectsFilterInBody(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", `{% translate %}Hi {{ name | upcase }}{% endtranslate %}`, cfg, reg)
	_, err := p.ParseTemplate()
	require.Error(t, err)
}

type stubTranslations struct{}

func (stubTranslations) Gettext(message string) string { return "[g]" + message }
func (stubTranslations) Ngettext(singular, plural string, n int64) string {
	if n == 1 {
		return "[ng]" + singular
	}
	return "[ng]" + plural
}
func (stubTranslations) Pgettext(context, message string) string {
	return "[pg:" + context + "]" + message
}
func (stubTranslations) Npgettext(context, singular, plural string, n int64) string {
	if n == 1 {
		return "[npg:" + context + "]" + singular
	}
	return "[npg:" + context + "]" + plural
}

func TestRenderTranslateDispatchesToTranslationsCollaborator(t *testing.T) {
	data := map[string]any{"translations": stubTranslations{}}

	out := renderSource(t, `{% translate %}hi{% endtranslate %}`, data)
	assert.Equal(t, "[g]hi", out)

	out = renderSource(t, `{% translate context: "menu" %}file{% endtranslate %}`, data)
	assert.Equal(t, "[pg:menu]file", out)

	tmpl := `{% translate count: n %}one{% plural %}many{% endtranslate %}`
	withN := func(n int64) map[string]any { return map[string]any{"translations": stubTranslations{}, "n": n} }
	assert.Equal(t, "[ng]one", renderSource(t, tmpl, withN(1)))
	assert.Equal(t, "[ng]many", renderSource(t, tmpl, withN(3)))

	tmpl = `{% translate count: n, context: "menu" %}one{% plural %}many{% endtranslate %}`
	assert.Equal(t, "[npg:menu]one", renderSource(t, tmpl, withN(1)))
	assert.Equal(t, "[npg:menu]many", renderSource(t, tmpl, withN(3)))
}

func TestRenderIncludeSharesScope(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	loader := stubLoader{templates: map[string]string{
		"partial": `{% assign seen = true %}got {{ name }}`,
	}, cfg: cfg, reg: reg}

	p := parser.NewParser("t", `{% include "partial" with "sam" as name %}-{{ seen }}`, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ev := NewEvaluator(newStubFilters(), loader)
	ctx := NewContext(nil, nil, DefaultLimits(), UndefinedLenient)
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "got sam-true", out)
}

func TestRenderRenderIsolatesScope(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	loader := stubLoader{templates: map[string]string{
		"partial": `{{ name }}-[{{ outer }}]`,
	}, cfg: cfg, reg: reg}

	p := parser.NewParser("t", `{% assign outer = "leaked?" %}{% render "partial" name: "sam" %}`, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	ev := NewEvaluator(newStubFilters(), loader)
	ctx := NewContext(nil, nil, DefaultLimits(), UndefinedLenient)
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "sam-[]", out)
}

func TestRenderBlockOverride(t *testing.T) {
	cfg := lexer.DefaultConfig()
	reg := parser.DefaultRegistry()
	p := parser.NewParser("t", `before{% block content %}default{% endblock %}after`, cfg, reg)
	tmpl, err := p.ParseTemplate()
	require.NoError(t, err)

	override := tmpl.Nodes[1].(*parser.BlockNode)
	overridden := &parser.BlockNode{Name: override.Name, Body: []parser.Node{
		parser.NewContentNode("custom", parser.Span{}),
	}}

	ev := NewEvaluator(newStubFilters(), nil)
	ctx := NewContext(nil, nil, DefaultLimits(), UndefinedLenient)
	ctx.SetBlockChain("content", []*parser.BlockNode{overridden, override})
	out, err := ev.RenderToString(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "beforecustomafter", out)
}

func TestEqualAndCompareHelpers(t *testing.T) {
	assert.True(t, Equal(int64(1), float64(1)))
	assert.False(t, Equal([]any{1}, []any{1}))
	assert.False(t, Equal(nil, false))
}
