package loader

import (
	"strings"

	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
	"gopkg.in/yaml.v3"
)

// frontMatterDelim is the line a template's YAML front matter block starts
// and ends with, matching the common `---` convention used by static-site
// generators built on Liquid.
const frontMatterDelim = "---"

// SplitFrontMatter extracts a leading `---\n...\n---\n` YAML block from raw
// template source, returning the decoded mapping and the remaining body to
// actually parse as Liquid. Source with no front matter returns a nil
// mapping and the source unchanged.
func SplitFrontMatter(source string) (map[string]any, string, error) {
	if !strings.HasPrefix(source, frontMatterDelim) {
		return nil, source, nil
	}
	rest := source[len(frontMatterDelim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return nil, source, nil
	}
	block := rest[:end]
	body := rest[end+1+len(frontMatterDelim):]
	body = strings.TrimPrefix(body, "\n")

	var matter map[string]any
	if err := yaml.Unmarshal([]byte(block), &matter); err != nil {
		return nil, source, err
	}
	return matter, body, nil
}

// MatterLoader decorates a Loader, stripping front matter from every
// source before parsing and exposing the decoded mapping per template name.
type MatterLoader struct {
	inner    Loader
	cfg      lexer.Config
	registry *parser.Registry
	matter   map[string]map[string]any
}

func NewMatterLoader(inner Loader, cfg lexer.Config, registry *parser.Registry) *MatterLoader {
	return &MatterLoader{inner: inner, cfg: cfg, registry: registry, matter: make(map[string]map[string]any)}
}

func (m *MatterLoader) Source(name string) (string, error) {
	raw, err := m.inner.Source(name)
	if err != nil {
		return "", err
	}
	matter, body, err := SplitFrontMatter(raw)
	if err != nil {
		return "", err
	}
	m.matter[name] = matter
	return body, nil
}

// Matter returns the front-matter mapping decoded the last time Source (or
// Load, which calls Source via the loader it wraps) resolved this name.
func (m *MatterLoader) Matter(name string) (map[string]any, bool) {
	v, ok := m.matter[name]
	return v, ok
}

func (m *MatterLoader) Load(name string) (*parser.Template, error) {
	body, err := m.Source(name)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(name, body, m.cfg, m.registry)
	return p.ParseTemplate()
}
