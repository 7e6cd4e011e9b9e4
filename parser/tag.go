package parser

import "github.com/liquidgo/liquid/lexer"

// TagDescriptor is how a tag plugs into the parser (spec §3 "Tag"). Block
// tags consume nested nodes up to their matching end tag; inline tags return
// immediately after parsing their own arguments.
type TagDescriptor interface {
	Name() string
	// End is the end-tag keyword ("endif", "endfor", ...), or "" for an
	// inline tag.
	End() string
	IsBlock() bool
	Parse(p *Parser, tok lexer.Token, args string, argBase int) (Node, error)
}

// Registry maps tag names to their descriptors (spec §3 "Environment.tags").
type Registry struct {
	tags map[string]TagDescriptor
}

func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]TagDescriptor)}
}

func (r *Registry) Register(td TagDescriptor) {
	r.tags[td.Name()] = td
}

func (r *Registry) Get(name string) (TagDescriptor, bool) {
	td, ok := r.tags[name]
	return td, ok
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tags))
	for n := range r.tags {
		names = append(names, n)
	}
	return names
}

// Disable removes a tag, used by Environment options that forbid `include`,
// `render`, or other tags in a restricted configuration (spec §4.9
// DisabledTagError).
func (r *Registry) Disable(name string) {
	delete(r.tags, name)
}

// DefaultRegistry returns a Registry with every built-in tag registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerControlTags(r)
	registerLoopTags(r)
	registerAssignTags(r)
	registerPartialTags(r)
	registerInheritTags(r)
	registerMacroTags(r)
	registerTranslateTags(r)
	return r
}
