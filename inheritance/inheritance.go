// Package inheritance resolves `{% extends %}`/`{% block %}` chains (spec
// §4.5): walk from a leaf template up through its ancestors, collect every
// definition of each named block in derivation order, and hand the base
// template's node list plus the resolved chains back to the caller for
// rendering. Keeping the full chain (not just the most-derived override)
// lets the evaluator render `{{ block.super }}` as the next-deeper
// definition rather than only the winning one.
package inheritance

import (
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// maxChainDepth guards a misconfigured loader (e.g. a template that extends
// itself) from recursing forever.
const maxChainDepth = 64

// Resolved is the outcome of walking an extends chain: the base template's
// node list to actually render, plus every definition of each block name
// encountered anywhere in the chain, most-derived first.
type Resolved struct {
	Base      *parser.Template
	Overrides map[string][]*parser.BlockNode
}

// Resolve walks leaf's extends chain via loader, returning the effective
// base template and the resolved block overrides. It does not itself touch
// a Context; call Apply with the result before rendering.
func Resolve(loader runtime.TemplateLoader, leaf *parser.Template) (*Resolved, error) {
	chain := []*parser.Template{leaf}
	seen := map[string]bool{leaf.Name: true}

	current := leaf
	for depth := 0; ; depth++ {
		if depth >= maxChainDepth {
			return nil, &runtime.TemplateInheritanceError{Message: "extends chain exceeds maximum depth (cycle?)"}
		}
		ext := findExtends(current.Nodes)
		if ext == nil {
			break
		}
		name, ok := ext.Template.(*parser.StringLiteral)
		if !ok {
			return nil, &runtime.TemplateInheritanceError{Message: "extends template name must be a string literal"}
		}
		if seen[name.Value] {
			return nil, &runtime.TemplateInheritanceError{Message: "extends cycle detected at " + name.Value}
		}
		parent, err := loader.Load(name.Value)
		if err != nil {
			return nil, err
		}
		seen[name.Value] = true
		chain = append(chain, parent)
		current = parent
	}

	overrides := make(map[string][]*parser.BlockNode)
	for _, tmpl := range chain {
		local := make(map[string]*parser.BlockNode)
		collectBlocks(tmpl.Nodes, local)
		for name, node := range local {
			overrides[name] = append(overrides[name], node)
		}
	}
	for name, nodes := range overrides {
		if nodes[0].Required {
			return nil, &runtime.RequiredBlockError{Name: name}
		}
	}

	base := chain[len(chain)-1]
	return &Resolved{Base: base, Overrides: overrides}, nil
}

// Apply registers every resolved block chain on ctx before the base template
// is rendered (spec §4.5 step 6: `{% block %}` nodes in the base template
// consult Context.BlockChain to decide whose body to render, and to resolve
// `{{ block.super }}` against the next-deeper definition).
func Apply(ctx *runtime.Context, r *Resolved) {
	for name, chain := range r.Overrides {
		ctx.SetBlockChain(name, chain)
	}
}

func findExtends(nodes []parser.Node) *parser.ExtendsNode {
	for _, n := range nodes {
		if ext, ok := n.(*parser.ExtendsNode); ok {
			return ext
		}
	}
	return nil
}

// collectBlocks walks a template's node tree looking for `{% block %}`
// declarations, recording the first (most-derived, since callers walk
// leaf-to-base) occurrence of each name into overrides.
func collectBlocks(nodes []parser.Node, overrides map[string]*parser.BlockNode) {
	for _, n := range nodes {
		collectBlocksFrom(n, overrides)
	}
}

func collectBlocksFrom(n parser.Node, overrides map[string]*parser.BlockNode) {
	switch node := n.(type) {
	case *parser.BlockNode:
		if _, exists := overrides[node.Name]; !exists {
			overrides[node.Name] = node
		}
		collectBlocks(node.Body, overrides)
	case *parser.IfNode:
		for _, b := range node.Branches {
			collectBlocks(b.Body, overrides)
		}
	case *parser.UnlessNode:
		for _, b := range node.Branches {
			collectBlocks(b.Body, overrides)
		}
	case *parser.CaseNode:
		for _, w := range node.Whens {
			collectBlocks(w.Body, overrides)
		}
		collectBlocks(node.Else, overrides)
	case *parser.ForNode:
		collectBlocks(node.Body, overrides)
		collectBlocks(node.Else, overrides)
	case *parser.TableRowNode:
		collectBlocks(node.Body, overrides)
	case *parser.CaptureNode:
		collectBlocks(node.Body, overrides)
	case *parser.WithNode:
		collectBlocks(node.Body, overrides)
	case *parser.LiquidNode:
		collectBlocks(node.Body, overrides)
	}
}
