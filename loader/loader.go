// Package loader resolves template names to parsed templates (spec §4.7,
// §6.1 "Loader interface"). Every concrete loader here satisfies
// runtime.TemplateLoader structurally, so the render engine never imports
// this package.
package loader

import (
	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
)

// Loader is the contract this package's implementations share, a superset
// of runtime.TemplateLoader with the raw-source accessor loaders above the
// render engine need (the caching decorator, the analyzer's partial
// resolution).
type Loader interface {
	// Load parses and returns the named template.
	Load(name string) (*parser.Template, error)
	// Source returns a template's raw text without parsing it.
	Source(name string) (string, error)
}

// DictLoader serves templates from an in-memory name->source map, the
// Liquid analog of a test fixture loader.
type DictLoader struct {
	cfg       lexer.Config
	registry  *parser.Registry
	templates map[string]string
}

// NewDictLoader builds a DictLoader over the given name->source templates.
func NewDictLoader(cfg lexer.Config, registry *parser.Registry, templates map[string]string) *DictLoader {
	t := make(map[string]string, len(templates))
	for k, v := range templates {
		t[k] = v
	}
	return &DictLoader{cfg: cfg, registry: registry, templates: t}
}

func (d *DictLoader) Source(name string) (string, error) {
	src, ok := d.templates[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return src, nil
}

func (d *DictLoader) Load(name string) (*parser.Template, error) {
	src, err := d.Source(name)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(name, src, d.cfg, d.registry)
	return p.ParseTemplate()
}

// Set adds or replaces a template's source, useful for tests that build up
// a fixture set incrementally.
func (d *DictLoader) Set(name, source string) { d.templates[name] = source }

// NotFoundError is returned by every loader in this package on a miss; it
// satisfies the same shape runtime expects from a TemplateLoader failure.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return "template not found: " + e.Name }
