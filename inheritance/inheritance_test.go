package inheritance

import (
	"testing"

	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLoader struct {
	cfg lexer.Config
	reg *parser.Registry
	src map[string]string
}

func newMemoryLoader(src map[string]string) *memoryLoader {
	return &memoryLoader{cfg: lexer.DefaultConfig(), reg: parser.DefaultRegistry(), src: src}
}

func (m *memoryLoader) Load(name string) (*parser.Template, error) {
	src, ok := m.src[name]
	if !ok {
		return nil, &runtime.TemplateNotFoundError{Name: name}
	}
	p := parser.NewParser(name, src, m.cfg, m.reg)
	return p.ParseTemplate()
}

func parseNamed(t *testing.T, loader *memoryLoader, name string) *parser.Template {
	t.Helper()
	tmpl, err := loader.Load(name)
	require.NoError(t, err)
	return tmpl
}

func renderResolved(t *testing.T, loader *memoryLoader, leafName string, data map[string]any) string {
	t.Helper()
	leaf := parseNamed(t, loader, leafName)
	resolved, err := Resolve(loader, leaf)
	require.NoError(t, err)

	ctx := runtime.NewContext(data, nil, runtime.DefaultLimits(), runtime.UndefinedLenient)
	Apply(ctx, resolved)

	ev := runtime.NewEvaluator(nil, loader)
	out, err := ev.RenderToString(resolved.Base, ctx)
	require.NoError(t, err)
	return out
}

func TestResolveSingleLevelOverride(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `before{% block content %}default{% endblock %}after`,
		"child.liquid": `{% extends "base.liquid" %}{% block content %}custom{% endblock %}`,
	})
	out := renderResolved(t, loader, "child.liquid", nil)
	assert.Equal(t, "beforecustomafter", out)
}

func TestResolveFallsBackToBaseWhenNotOverridden(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `before{% block content %}default{% endblock %}after`,
		"child.liquid": `{% extends "base.liquid" %}`,
	})
	out := renderResolved(t, loader, "child.liquid", nil)
	assert.Equal(t, "beforedefaultafter", out)
}

func TestResolveMultiLevelChainPicksMostDerived(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":   `{% block content %}base{% endblock %}`,
		"middle.liquid": `{% extends "base.liquid" %}{% block content %}middle{% endblock %}`,
		"leaf.liquid":   `{% extends "middle.liquid" %}{% block content %}leaf{% endblock %}`,
	})
	out := renderResolved(t, loader, "leaf.liquid", nil)
	assert.Equal(t, "leaf", out)
}

func TestResolveBlockNestedInsideIf(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `{% if show %}{% block content %}default{% endblock %}{% endif %}`,
		"child.liquid": `{% extends "base.liquid" %}{% block content %}custom{% endblock %}`,
	})
	out := renderResolved(t, loader, "child.liquid", map[string]any{"show": true})
	assert.Equal(t, "custom", out)
}

func TestResolveRequiredBlockNeverOverriddenErrors(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `{% block content required %}{% endblock %}`,
		"child.liquid": `{% extends "base.liquid" %}`,
	})
	leaf := parseNamed(t, loader, "child.liquid")
	_, err := Resolve(loader, leaf)
	require.Error(t, err)
	assert.IsType(t, &runtime.RequiredBlockError{}, err)
}

func TestResolveRequiredBlockOverriddenSucceeds(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `{% block content required %}{% endblock %}`,
		"child.liquid": `{% extends "base.liquid" %}{% block content %}filled in{% endblock %}`,
	})
	out := renderResolved(t, loader, "child.liquid", nil)
	assert.Equal(t, "filled in", out)
}

func TestResolveCycleDetected(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"a.liquid": `{% extends "b.liquid" %}`,
		"b.liquid": `{% extends "a.liquid" %}`,
	})
	leaf := parseNamed(t, loader, "a.liquid")
	_, err := Resolve(loader, leaf)
	require.Error(t, err)
	assert.IsType(t, &runtime.TemplateInheritanceError{}, err)
}

func TestResolveBlockSuperRendersParentBody(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `A{% block b %}X{% endblock %}`,
		"child.liquid": `{% extends "base.liquid" %}{% block b %}{{ block.super }}Y{% endblock %}`,
	})
	out := renderResolved(t, loader, "child.liquid", nil)
	assert.Equal(t, "AXY", out)
}

func TestResolveBlockSuperChainsThroughMultipleLevels(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":   `{% block content %}base{% endblock %}`,
		"middle.liquid": `{% extends "base.liquid" %}{% block content %}{{ block.super }}-middle{% endblock %}`,
		"leaf.liquid":   `{% extends "middle.liquid" %}{% block content %}{{ block.super }}-leaf{% endblock %}`,
	})
	out := renderResolved(t, loader, "leaf.liquid", nil)
	assert.Equal(t, "base-middle-leaf", out)
}

func TestResolveBlockSuperUndefinedWhenNoParentOverride(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"base.liquid":  `[{% block b %}{{ block.super }}X{% endblock %}]`,
		"child.liquid": `{% extends "base.liquid" %}`,
	})
	out := renderResolved(t, loader, "child.liquid", nil)
	assert.Equal(t, "[X]", out)
}

func TestResolveNoExtendsReturnsSelf(t *testing.T) {
	loader := newMemoryLoader(map[string]string{
		"standalone.liquid": `just content`,
	})
	out := renderResolved(t, loader, "standalone.liquid", nil)
	assert.Equal(t, "just content", out)
}
