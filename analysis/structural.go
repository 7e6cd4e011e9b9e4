package analysis

import (
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// Analyze performs structural analysis (spec §4.8a) over tmpl without
// rendering it. loader is only consulted when includePartials is true and a
// node's partial name is a string literal; pass nil to skip partial
// resolution entirely (equivalent to includePartials=false).
func Analyze(tmpl *parser.Template, loader runtime.TemplateLoader, includePartials bool) (*TemplateAnalysis, error) {
	a := &analyzer{
		result:          newTemplateAnalysis(),
		loader:          loader,
		includePartials: includePartials,
		visited:         map[string]bool{tmpl.Name: true},
		locals:          map[string]bool{},
	}
	if err := a.walkNodes(tmpl.Nodes); err != nil {
		return nil, err
	}
	a.result.Locals = setKeys(a.locals)
	a.result.Globals = setKeys(a.globalsSeen)
	return a.result, nil
}

// analyzer carries the traversal's mutable state: the currently assembled
// report, the template-wide locals a prior assign/capture/increment/
// decrement has bound so far (persists for the rest of the walk, since those
// bindings outlive their introducing node), and a stack of block-scoped
// bindings (for/tablerow/with/macro) that are only active for their body's
// descent.
type analyzer struct {
	result          *TemplateAnalysis
	loader          runtime.TemplateLoader
	includePartials bool
	visited         map[string]bool

	locals      map[string]bool
	globalsSeen map[string]bool
	scopeStack  []map[string]bool
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (a *analyzer) bound(name string) bool {
	if a.locals[name] {
		return true
	}
	for i := len(a.scopeStack) - 1; i >= 0; i-- {
		if a.scopeStack[i][name] {
			return true
		}
	}
	return false
}

func (a *analyzer) bindLocal(name string) {
	if a.locals == nil {
		a.locals = map[string]bool{}
	}
	a.locals[name] = true
}

func (a *analyzer) pushScope(names ...string) {
	frame := make(map[string]bool, len(names))
	for _, n := range names {
		frame[n] = true
	}
	a.scopeStack = append(a.scopeStack, frame)
}

func (a *analyzer) popScope() {
	a.scopeStack = a.scopeStack[:len(a.scopeStack)-1]
}

func (a *analyzer) recordTag(name string, span parser.Span) {
	a.result.Tags[name] = append(a.result.Tags[name], span)
}

func (a *analyzer) recordFilter(name string, span parser.Span) {
	a.result.Filters[name] = append(a.result.Filters[name], span)
}

func (a *analyzer) recordVariable(p *parser.Path) {
	a.result.Variables = append(a.result.Variables, Variable{Name: p.String(), Span: p.Span()})
	head := p.Head()
	if !a.bound(head) {
		if a.globalsSeen == nil {
			a.globalsSeen = map[string]bool{}
		}
		a.globalsSeen[head] = true
	}
}

func (a *analyzer) walkNodes(nodes []parser.Node) error {
	for _, n := range nodes {
		if err := a.walkNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) walkNode(n parser.Node) error {
	switch node := n.(type) {
	case *parser.ContentNode:
		return nil
	case *parser.OutputNode:
		a.walkExpr(node.Expr)
		return nil
	case *parser.AssignNode:
		a.recordTag("assign", node.Span())
		a.walkExpr(node.Value)
		a.bindLocal(node.Name)
		return nil
	case *parser.CaptureNode:
		a.recordTag("capture", node.Span())
		if err := a.walkNodes(node.Body); err != nil {
			return err
		}
		a.bindLocal(node.Name)
		return nil
	case *parser.IncrementNode:
		a.recordTag("increment", node.Span())
		a.bindLocal(node.Name)
		return nil
	case *parser.DecrementNode:
		a.recordTag("decrement", node.Span())
		a.bindLocal(node.Name)
		return nil
	case *parser.EchoNode:
		a.recordTag("echo", node.Span())
		a.walkExpr(node.Expr)
		return nil
	case *parser.LiquidNode:
		return a.walkNodes(node.Body)
	case *parser.IfNode:
		a.recordTag("if", node.Span())
		return a.walkBranches(node.Branches)
	case *parser.UnlessNode:
		a.recordTag("unless", node.Span())
		return a.walkBranches(node.Branches)
	case *parser.CaseNode:
		a.recordTag("case", node.Span())
		a.walkExpr(node.Subject)
		for _, w := range node.Whens {
			for _, v := range w.Values {
				a.walkExpr(v)
			}
			if err := a.walkNodes(w.Body); err != nil {
				return err
			}
		}
		return a.walkNodes(node.Else)
	case *parser.ForNode:
		a.recordTag("for", node.Span())
		a.walkLoopExpr(node.Loop)
		a.pushScope(node.Loop.Identifier, "forloop")
		err := a.walkNodes(node.Body)
		a.popScope()
		if err != nil {
			return err
		}
		return a.walkNodes(node.Else)
	case *parser.TableRowNode:
		a.recordTag("tablerow", node.Span())
		a.walkLoopExpr(node.Loop)
		a.pushScope(node.Loop.Identifier, "tablerowloop")
		err := a.walkNodes(node.Body)
		a.popScope()
		return err
	case *parser.CycleNode:
		a.recordTag("cycle", node.Span())
		if node.Group != nil {
			a.walkExpr(node.Group)
		}
		for _, v := range node.Values {
			a.walkExpr(v)
		}
		return nil
	case *parser.IfChangedNode:
		a.recordTag("ifchanged", node.Span())
		return a.walkNodes(node.Body)
	case *parser.BreakNode:
		a.recordTag("break", node.Span())
		return nil
	case *parser.ContinueNode:
		a.recordTag("continue", node.Span())
		return nil
	case *parser.MacroNode:
		a.recordTag("macro", node.Span())
		names := make([]string, 0, len(node.Params))
		for _, p := range node.Params {
			if p.Default != nil {
				a.walkExpr(p.Default)
			}
			names = append(names, p.Name)
		}
		a.pushScope(names...)
		err := a.walkNodes(node.Body)
		a.popScope()
		return err
	case *parser.CallNode:
		a.recordTag("call", node.Span())
		for _, arg := range node.Args {
			a.walkExpr(arg.Value)
		}
		return nil
	case *parser.WithNode:
		a.recordTag("with", node.Span())
		names := make([]string, 0, len(node.Bindings))
		for _, b := range node.Bindings {
			a.walkExpr(b.Value)
			names = append(names, b.Name)
		}
		a.pushScope(names...)
		err := a.walkNodes(node.Body)
		a.popScope()
		return err
	case *parser.IncludeNode:
		a.recordTag("include", node.Span())
		return a.walkPartial(node.Template, node.With, node.For, node.Args, false)
	case *parser.RenderNode:
		a.recordTag("render", node.Span())
		return a.walkPartial(node.Template, node.With, node.For, node.Args, true)
	case *parser.ExtendsNode:
		a.recordTag("extends", node.Span())
		return a.walkPartial(node.Template, nil, nil, nil, false)
	case *parser.BlockNode:
		a.recordTag("block", node.Span())
		return a.walkNodes(node.Body)
	case *parser.TranslateNode:
		a.recordTag("translate", node.Span())
		if node.Count != nil {
			a.walkExpr(node.Count)
		}
		for _, b := range node.Bindings {
			a.walkExpr(b.Value)
		}
		return nil
	}
	return nil
}

func (a *analyzer) walkBranches(branches []parser.IfBranch) error {
	for _, b := range branches {
		if b.Cond != nil {
			a.walkExpr(b.Cond)
		}
		if err := a.walkNodes(b.Body); err != nil {
			return err
		}
	}
	return nil
}

// walkPartial resolves include/render/extends partials when enabled. include
// shares the current scope (locals/scopeStack stay in effect for the
// recursive walk); render gets an isolated scope, matching the render
// semantics the evaluator itself applies; extends inherits the current
// scope, same as include, since the base template's names are effectively
// spliced into the leaf's own scope by the inheritance walk.
func (a *analyzer) walkPartial(tmplExpr, with, forExpr parser.Expression, args []parser.FilterArg, isolated bool) error {
	if with != nil {
		a.walkExpr(with)
	}
	if forExpr != nil {
		a.walkExpr(forExpr)
	}
	for _, arg := range args {
		a.walkExpr(arg.Value)
	}
	if !a.includePartials || a.loader == nil {
		return nil
	}
	lit, ok := tmplExpr.(*parser.StringLiteral)
	if !ok {
		return nil
	}
	if a.visited[lit.Value] {
		return nil
	}
	partial, err := a.loader.Load(lit.Value)
	if err != nil {
		return err
	}
	a.visited[lit.Value] = true

	if !isolated {
		return a.walkNodes(partial.Nodes)
	}
	saved := a.scopeStack
	savedLocals := a.locals
	a.scopeStack = nil
	a.locals = map[string]bool{}
	err = a.walkNodes(partial.Nodes)
	a.scopeStack = saved
	a.locals = savedLocals
	return err
}

func (a *analyzer) walkLoopExpr(l *parser.LoopExpression) {
	a.walkExpr(l.Iterable)
	if l.Limit != nil {
		a.walkExpr(l.Limit)
	}
	if l.Offset != nil {
		a.walkExpr(l.Offset)
	}
	if l.Cols != nil {
		a.walkExpr(l.Cols)
	}
}

func (a *analyzer) walkExpr(expr parser.Expression) {
	switch x := expr.(type) {
	case *parser.Path:
		a.recordVariable(x)
		for _, seg := range x.Segments {
			if seg.Kind == parser.SegNested && seg.Nested != nil {
				a.walkExpr(seg.Nested)
			}
		}
	case *parser.RangeLiteral:
		a.walkExpr(x.Start)
		a.walkExpr(x.Stop)
	case *parser.FilteredExpression:
		a.walkExpr(x.Left)
		a.walkFilterCalls(x.Filters)
		a.walkFilterCalls(x.TailFilters)
	case *parser.TernaryFilteredExpression:
		a.walkExpr(x.Left)
		a.walkFilterCalls(x.Filters)
		a.walkExpr(x.Condition)
		if x.Alternative != nil {
			a.walkExpr(x.Alternative)
		}
		a.walkFilterCalls(x.TailFilters)
	case *parser.CompareExpr:
		a.walkExpr(x.Left)
		a.walkExpr(x.Right)
	case *parser.LogicalExpr:
		a.walkExpr(x.Left)
		a.walkExpr(x.Right)
	case *parser.NotExpr:
		a.walkExpr(x.Operand)
	}
}

func (a *analyzer) walkFilterCalls(calls []parser.FilterCall) {
	for _, f := range calls {
		a.recordFilter(f.Name, f.Span())
		for _, arg := range f.Args {
			a.walkExpr(arg.Value)
		}
	}
}
