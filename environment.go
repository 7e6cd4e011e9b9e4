package miya

import (
	"github.com/liquidgo/liquid/analysis"
	"github.com/liquidgo/liquid/filters"
	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/loader"
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// Environment is process-wide Liquid configuration, safe for concurrent use
// once built (spec §3 "Environment"): tag/filter registries, loader,
// undefined policy, tolerance mode, render limits and the handful of
// autoescape/whitespace toggles every Template built from it shares.
type Environment struct {
	loader   Loader
	resolved *loader.CachingLoader // loader wrapped with this Environment's parse settings + an LRU
	registry *parser.Registry
	lexCfg   lexer.Config
	filters  *filters.Registry

	undefinedBehavior          UndefinedBehavior
	tolerance                  Tolerance
	limits                     Limits
	autoEscape                 bool
	strictFilters              bool
	renderWhitespaceOnlyBlocks bool
	templateCacheSize          int

	globals map[string]any
}

// EnvironmentOption configures an Environment at construction time,
// following the teacher's functional-options idiom.
type EnvironmentOption func(*Environment)

func WithLoader(l Loader) EnvironmentOption { return func(e *Environment) { e.loader = l } }

func WithAutoEscape(enabled bool) EnvironmentOption {
	return func(e *Environment) { e.autoEscape = enabled }
}

// WithStrictFilters records the strict-filters setting (spec §4.9). The
// evaluator does not read it: an unregistered filter name is a
// NoSuchFilterError whether or not it is enabled, and no setting passes the
// input through unchanged.
func WithStrictFilters(enabled bool) EnvironmentOption {
	return func(e *Environment) { e.strictFilters = enabled }
}

func WithUndefinedBehavior(b UndefinedBehavior) EnvironmentOption {
	return func(e *Environment) { e.undefinedBehavior = b }
}

// WithTolerance selects how malformed tags/outputs are handled at parse
// time (spec §3/§7).
func WithTolerance(t Tolerance) EnvironmentOption {
	return func(e *Environment) { e.tolerance = t }
}

func WithLimits(l Limits) EnvironmentOption { return func(e *Environment) { e.limits = l } }

// WithCommentDelimiters opts into `{# ... #}` shorthand comments with the
// given delimiters (spec §4.1/§6.4; off by default).
func WithCommentDelimiters(start, end string) EnvironmentOption {
	return func(e *Environment) {
		e.lexCfg.CommentStart = start
		e.lexCfg.CommentEnd = end
		e.lexCfg.ShorthandComments = true
	}
}

func WithDelimiters(varStart, varEnd, tagStart, tagEnd string) EnvironmentOption {
	return func(e *Environment) {
		e.lexCfg.VarStart, e.lexCfg.VarEnd = varStart, varEnd
		e.lexCfg.TagStart, e.lexCfg.TagEnd = tagStart, tagEnd
	}
}

// WithGlobal binds a name every Template built from this Environment sees,
// unless a per-render global of the same name overrides it.
func WithGlobal(name string, v any) EnvironmentOption {
	return func(e *Environment) { e.globals[name] = v }
}

// WithFilter registers an additional filter alongside the built-ins.
func WithFilter(name string, fn FilterFunc) EnvironmentOption {
	return func(e *Environment) { e.filters.Register(name, fn) }
}

// WithDisabledTags removes tags from the tag registry, for a host that wants
// to forbid e.g. `include`. A removed tag is then parsed as an unknown tag;
// this option does not produce a DisabledTagError.
func WithDisabledTags(names ...string) EnvironmentOption {
	return func(e *Environment) {
		for _, n := range names {
			e.registry.Disable(n)
		}
	}
}

// WithTagRegistry swaps the default tag set entirely, for a host embedding
// a custom tag dialect.
func WithTagRegistry(r *parser.Registry) EnvironmentOption {
	return func(e *Environment) { e.registry = r }
}

// WithFilterRegistry swaps the default filter set entirely.
func WithFilterRegistry(r *filters.Registry) EnvironmentOption {
	return func(e *Environment) { e.filters = r }
}

// WithTemplateCacheSize bounds how many parsed templates GetTemplate keeps
// resident (spec §3 "template_cache_size"). 0 means unbounded.
func WithTemplateCacheSize(n int) EnvironmentOption {
	return func(e *Environment) { e.templateCacheSize = n }
}

// WithRenderWhitespaceOnlyBlocks disables whitespace-only block
// suppression (spec §4.3/§4.6 "render_whitespace_only_blocks"); suppression
// is on by default.
func WithRenderWhitespaceOnlyBlocks(enabled bool) EnvironmentOption {
	return func(e *Environment) { e.renderWhitespaceOnlyBlocks = enabled }
}

func NewEnvironment(opts ...EnvironmentOption) *Environment {
	env := &Environment{
		registry:          parser.DefaultRegistry(),
		lexCfg:            lexer.DefaultConfig(),
		filters:           filters.NewRegistry(),
		limits:            runtime.DefaultLimits(),
		autoEscape:        false,
		globals:           make(map[string]any),
		templateCacheSize: 256,
	}
	for _, opt := range opts {
		opt(env)
	}
	if env.loader != nil {
		env.resolved = loader.NewCachingLoader(&envLoaderAdapter{env: env, inner: env.loader}, env.templateCacheSize)
	}
	return env
}

// envLoaderAdapter parses with this Environment's registry, lexer config
// and tolerance while delegating raw source retrieval to the caller's
// Loader, so the caching/singleflight decorator still wraps one Load call
// per template name regardless of how that Environment is configured.
type envLoaderAdapter struct {
	env   *Environment
	inner Loader
}

func (a *envLoaderAdapter) Source(name string) (string, error) { return a.inner.Source(name) }

func (a *envLoaderAdapter) Load(name string) (*parser.Template, error) {
	src, err := a.inner.Source(name)
	if err != nil {
		return nil, err
	}
	p := parser.NewParserWithTolerance(name, src, a.env.lexCfg, a.env.registry, a.env.tolerance)
	return p.ParseTemplate()
}

func (e *Environment) newEvaluator() *runtime.Evaluator {
	ev := runtime.NewEvaluator(e.filters, e.templateLoader())
	ev.SuppressBlankControlFlowBlocks = !e.renderWhitespaceOnlyBlocks
	ev.AutoEscape = e.autoEscape
	return ev
}

func (e *Environment) templateLoader() runtime.TemplateLoader {
	if e.resolved == nil {
		return nil
	}
	return e.resolved
}

func (e *Environment) matterLoader() (*loader.MatterLoader, bool) {
	ml, ok := e.loader.(*loader.MatterLoader)
	return ml, ok
}

// FromString compiles source directly, without consulting the loader (spec
// §6.5 "from_string"). Its default template name is "<string>"; pass
// WithTemplateName to override it (useful so errors and analysis spans
// reference something more meaningful than the literal string).
func (e *Environment) FromString(source string, opts ...TemplateOption) (*Template, error) {
	t := &Template{env: e}
	for _, opt := range opts {
		opt(t)
	}
	if t.name == "" {
		t.name = "<string>"
	}
	src := parser.NewSource(t.name, source)
	p := parser.NewParserWithTolerance(t.name, source, e.lexCfg, e.registry, e.tolerance)
	parsed, err := p.ParseTemplate()
	if err != nil {
		return nil, locate(err, src)
	}
	t.parsed = parsed
	return t, nil
}

// GetTemplate resolves name through the configured Loader (spec §6.5
// "get_template"), going through this Environment's template cache.
func (e *Environment) GetTemplate(name string, opts ...TemplateOption) (*Template, error) {
	if e.resolved == nil {
		return nil, &runtime.TemplateNotFoundError{Name: name}
	}
	parsed, err := e.resolved.Load(name)
	if err != nil {
		return nil, locate(err, nil)
	}
	t := &Template{env: e, parsed: parsed, name: name}
	if ml, ok := e.matterLoader(); ok {
		if m, found := ml.Matter(name); found {
			t.matter = m
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Render compiles source and renders it in one step (spec §6.5 "render").
func (e *Environment) Render(source string, globals map[string]any) (string, error) {
	t, err := e.FromString(source)
	if err != nil {
		return "", err
	}
	return t.Render(globals)
}

// AnalyzeTags performs structural analysis over the named template and
// returns one TagAnalysis per distinct tag name encountered (spec §6.5
// "analyze_tags").
func (e *Environment) AnalyzeTags(name string, includePartials bool) ([]analysis.TagAnalysis, error) {
	t, err := e.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	return t.analyzeTags(includePartials)
}

// --- package-level default Environment, for quick one-off use ---------------

var defaultEnv = NewEnvironment()

// SetDefaultLoader rebuilds the package-level default Environment with l as
// its Loader, so the top-level GetTemplate convenience function works
// without a host ever constructing its own Environment.
func SetDefaultLoader(l Loader) { defaultEnv = NewEnvironment(WithLoader(l)) }

func FromString(source string) (*Template, error) { return defaultEnv.FromString(source) }

func GetTemplate(name string) (*Template, error) { return defaultEnv.GetTemplate(name) }

func Render(source string, globals map[string]any) (string, error) {
	return defaultEnv.Render(source, globals)
}
