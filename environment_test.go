package miya

import (
	"testing"

	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/loader"
	"github.com/liquidgo/liquid/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dictLoader(templates map[string]string) Loader {
	return loader.NewDictLoader(lexer.DefaultConfig(), parser.DefaultRegistry(), templates)
}

func TestEnvironmentRenderFromString(t *testing.T) {
	env := NewEnvironment()
	out, err := env.Render("Hello, {{ name }}!", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out)
}

func TestEnvironmentGetTemplateUsesLoader(t *testing.T) {
	env := NewEnvironment(WithLoader(dictLoader(map[string]string{
		"greeting.liquid": "Hi, {{ name }}.",
	})))

	tmpl, err := env.GetTemplate("greeting.liquid")
	require.NoError(t, err)
	out, err := tmpl.Render(map[string]any{"name": "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Hi, Grace.", out)
}

func TestEnvironmentGetTemplateMissingIsNotFoundError(t *testing.T) {
	env := NewEnvironment(WithLoader(dictLoader(nil)))
	_, err := env.GetTemplate("nope.liquid")
	require.Error(t, err)
}

func TestEnvironmentGetTemplateWithoutLoaderFails(t *testing.T) {
	env := NewEnvironment()
	_, err := env.GetTemplate("anything.liquid")
	require.Error(t, err)
}

func TestEnvironmentStrictToleranceRejectsMalformedOutput(t *testing.T) {
	env := NewEnvironment(WithTolerance(Strict))
	_, err := env.FromString("{{ x | }}")
	require.Error(t, err)
}

func TestEnvironmentLaxToleranceRecoversMalformedOutput(t *testing.T) {
	env := NewEnvironment(WithTolerance(Lax))
	tmpl, err := env.FromString("before {{ x | }} after")
	require.NoError(t, err)
	out, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "before  after", out)
}

func TestEnvironmentWithGlobalIsVisibleToEveryTemplate(t *testing.T) {
	env := NewEnvironment(WithGlobal("site", "example.com"))
	out, err := env.Render("{{ site }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "example.com", out)
}

func TestEnvironmentAnalyzeTags(t *testing.T) {
	env := NewEnvironment(WithLoader(dictLoader(map[string]string{
		"page.liquid": "{% if show %}{{ name }}{% endif %}",
	})))
	tags, err := env.AnalyzeTags("page.liquid", false)
	require.NoError(t, err)

	names := make([]string, 0, len(tags))
	for _, ta := range tags {
		names = append(names, ta.Name)
	}
	assert.Contains(t, names, "if")
}

func TestEnvironmentAutoEscapeDefaultsOff(t *testing.T) {
	env := NewEnvironment()
	out, err := env.Render("{{ markup }}", map[string]any{"markup": "<b>hi</b>"})
	require.NoError(t, err)
	assert.Equal(t, "<b>hi</b>", out)
}

func TestEnvironmentWithAutoEscapeEscapesOutput(t *testing.T) {
	env := NewEnvironment(WithAutoEscape(true))
	out, err := env.Render("{{ markup }}", map[string]any{"markup": "<b>hi</b>"})
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", out)
}

func TestEnvironmentWithAutoEscapeDoesNotDoubleEscapeFilterOutput(t *testing.T) {
	env := NewEnvironment(WithAutoEscape(true))
	out, err := env.Render(`{{ markup | escape }}`, map[string]any{"markup": "<b>hi</b>"})
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", out)
}

func TestPackageLevelDefaultEnvironment(t *testing.T) {
	out, err := Render("{{ 1 | plus: 2 }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestSetDefaultLoaderRebuildsDefaultEnvironment(t *testing.T) {
	SetDefaultLoader(dictLoader(map[string]string{"t.liquid": "ok"}))
	defer SetDefaultLoader(nil)

	tmpl, err := GetTemplate("t.liquid")
	require.NoError(t, err)
	out, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
