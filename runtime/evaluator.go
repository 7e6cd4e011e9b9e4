package runtime

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/whitespace"
)

// FilterArgs is a filter call's fully-evaluated argument list.
type FilterArgs struct {
	Positional []any
	Keyword    map[string]any
}

func (a FilterArgs) Arg(i int) (any, bool) {
	if i < len(a.Positional) {
		return a.Positional[i], true
	}
	return nil, false
}

func (a FilterArgs) Kw(name string) (any, bool) {
	v, ok := a.Keyword[name]
	return v, ok
}

// FilterFunc implements one registered filter (spec §4.2 "Filter").
type FilterFunc func(input any, args FilterArgs, ctx *Context) (any, error)

// FilterLookup is satisfied structurally by a filter registry; runtime
// never imports the filters package, keeping the dependency one-directional.
type FilterLookup interface {
	Get(name string) (FilterFunc, bool)
}

// TemplateLoader is satisfied structurally by a loader; returns a parsed,
// not-yet-rendered template.
type TemplateLoader interface {
	Load(name string) (*parser.Template, error)
}

// Evaluator walks a parsed node/expression tree against a Context, producing
// output (spec §4.6 "Render engine"). It is intentionally stateless between
// calls: all per-render state lives in Context.
type Evaluator struct {
	Filters FilterLookup
	Loader  TemplateLoader

	// SuppressBlankControlFlowBlocks enables whitespace-only block
	// suppression (spec §4.3/§4.6): an if/unless/case/for whose rendered
	// output is entirely whitespace is dropped instead of forwarded.
	SuppressBlankControlFlowBlocks bool

	// AutoEscape turns on escaping of `{{ }}`/`{% echo %}` output (spec §3
	// Environment "autoescape", §4.2/§4.6 `to_liquid_string(v, autoescape)`).
	// Escaper selects the markup dialect; a Safe value is never re-escaped.
	AutoEscape bool
	Escaper    *AutoEscaper
}

func NewEvaluator(filters FilterLookup, loader TemplateLoader) *Evaluator {
	return &Evaluator{Filters: filters, Loader: loader, Escaper: NewAutoEscaper(nil)}
}

func (e *Evaluator) outputString(v any) string {
	if !e.AutoEscape {
		return ToString(v)
	}
	return e.Escaper.Escape(v, e.Escaper.config.Context)
}

// renderControlFlow runs render and, when suppression is enabled, buffers
// its output and checks it for blankness before forwarding to w — the
// "buffer a block's output into an intermediate buffer and check isspace()"
// mechanism, applied to if/unless/case/for.
func (e *Evaluator) renderControlFlow(w *limitedWriter, render func(*limitedWriter) error) error {
	if !e.SuppressBlankControlFlowBlocks {
		return render(w)
	}
	var sb strings.Builder
	if err := render(newLimitedWriter(&sb, 0)); err != nil {
		return err
	}
	return whitespace.Flush(w, sb.String(), false)
}

// limitedWriter enforces Limits.MaxOutputBytes while writing rendered bytes
// (spec §5). A zero max disables the check, used for internal buffers
// (capture, ifchanged) that must not double-count against the outer limit.
type limitedWriter struct {
	w   io.Writer
	max int
	n   int
}

func newLimitedWriter(w io.Writer, max int) *limitedWriter {
	return &limitedWriter{w: w, max: max}
}

func (lw *limitedWriter) WriteString(s string) error {
	if lw.max > 0 && lw.n+len(s) > lw.max {
		return &OutputStreamLimitError{Limit: lw.max}
	}
	lw.n += len(s)
	_, err := io.WriteString(lw.w, s)
	return err
}

// Render renders a template's top-level nodes. It does not itself walk an
// `extends` chain: the inheritance package resolves the base template and
// block overrides first, then calls Render on the effective node list with
// ctx already carrying SetBlockChain entries.
func (e *Evaluator) Render(w io.Writer, tmpl *parser.Template, ctx *Context) error {
	lw := newLimitedWriter(w, ctx.Limits().MaxOutputBytes)
	e.hoistMacros(tmpl.Nodes, ctx)
	return e.RenderNodes(tmpl.Nodes, ctx, lw)
}

// RenderToString is Render into an in-memory buffer, used by callers (CLI,
// tests) that want the full output rather than streaming it.
func (e *Evaluator) RenderToString(tmpl *parser.Template, ctx *Context) (string, error) {
	var sb strings.Builder
	if err := e.Render(&sb, tmpl, ctx); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// hoistMacros pre-registers every top-level macro definition so a `call` can
// forward-reference a macro defined later in the same template (spec §4.7).
func (e *Evaluator) hoistMacros(nodes []parser.Node, ctx *Context) {
	for _, n := range nodes {
		if m, ok := n.(*parser.MacroNode); ok {
			ctx.RegisterMacro(m)
		}
	}
}

func (e *Evaluator) RenderNodes(nodes []parser.Node, ctx *Context, w *limitedWriter) error {
	for _, n := range nodes {
		if err := e.renderNode(n, ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) renderNode(n parser.Node, ctx *Context, w *limitedWriter) error {
	switch node := n.(type) {
	case *parser.ContentNode:
		return w.WriteString(node.Text)
	case *parser.OutputNode:
		v, err := e.Eval(node.Expr, ctx)
		if err != nil {
			return err
		}
		return w.WriteString(e.outputString(v))
	case *parser.IfNode:
		return e.renderControlFlow(w, func(cw *limitedWriter) error { return e.renderIf(node, ctx, cw) })
	case *parser.UnlessNode:
		return e.renderControlFlow(w, func(cw *limitedWriter) error { return e.renderUnless(node, ctx, cw) })
	case *parser.CaseNode:
		return e.renderControlFlow(w, func(cw *limitedWriter) error { return e.renderCase(node, ctx, cw) })
	case *parser.ForNode:
		return e.renderControlFlow(w, func(cw *limitedWriter) error { return e.renderFor(node, ctx, cw) })
	case *parser.TableRowNode:
		return e.renderTableRow(node, ctx, w)
	case *parser.CycleNode:
		return e.renderCycle(node, ctx, w)
	case *parser.IfChangedNode:
		return e.renderIfChanged(node, ctx, w)
	case *parser.BreakNode:
		return Break
	case *parser.ContinueNode:
		return Continue
	case *parser.AssignNode:
		v, err := e.Eval(node.Value, ctx)
		if err != nil {
			return err
		}
		return ctx.Set(node.Name, v)
	case *parser.CaptureNode:
		return e.renderCapture(node, ctx, w)
	case *parser.IncrementNode:
		return w.WriteString(ToString(ctx.Increment(node.Name)))
	case *parser.DecrementNode:
		return w.WriteString(ToString(ctx.Decrement(node.Name)))
	case *parser.EchoNode:
		v, err := e.Eval(node.Expr, ctx)
		if err != nil {
			return err
		}
		return w.WriteString(e.outputString(v))
	case *parser.LiquidNode:
		return e.RenderNodes(node.Body, ctx, w)
	case *parser.IncludeNode:
		return e.renderInclude(node, ctx, w)
	case *parser.RenderNode:
		return e.renderRender(node, ctx, w)
	case *parser.ExtendsNode:
		return nil
	case *parser.BlockNode:
		return e.renderBlock(node, ctx, w)
	case *parser.MacroNode:
		return nil
	case *parser.CallNode:
		return e.renderCall(node, ctx, w)
	case *parser.WithNode:
		return e.renderWith(node, ctx, w)
	case *parser.TranslateNode:
		return e.renderTranslate(node, ctx, w)
	case *parser.IllegalNode:
		return nil
	default:
		return NewTypeError(n.Span(), "unsupported node type %T", n)
	}
}

func (e *Evaluator) renderIf(node *parser.IfNode, ctx *Context, w *limitedWriter) error {
	for _, b := range node.Branches {
		if b.Cond == nil {
			return e.RenderNodes(b.Body, ctx, w)
		}
		v, err := e.Eval(b.Cond, ctx)
		if err != nil {
			return err
		}
		if Truthy(v) {
			return e.RenderNodes(b.Body, ctx, w)
		}
	}
	return nil
}

// renderUnless negates only the leading `unless` condition; any `elsif` arm
// that follows is tested like an ordinary `if` branch.
func (e *Evaluator) renderUnless(node *parser.UnlessNode, ctx *Context, w *limitedWriter) error {
	for i, b := range node.Branches {
		if b.Cond == nil {
			return e.RenderNodes(b.Body, ctx, w)
		}
		v, err := e.Eval(b.Cond, ctx)
		if err != nil {
			return err
		}
		truthy := Truthy(v)
		if i == 0 {
			truthy = !truthy
		}
		if truthy {
			return e.RenderNodes(b.Body, ctx, w)
		}
	}
	return nil
}

func (e *Evaluator) renderCase(node *parser.CaseNode, ctx *Context, w *limitedWriter) error {
	subject, err := e.Eval(node.Subject, ctx)
	if err != nil {
		return err
	}
	for _, when := range node.Whens {
		for _, valExpr := range when.Values {
			v, err := e.Eval(valExpr, ctx)
			if err != nil {
				return err
			}
			if Equal(subject, v) {
				return e.RenderNodes(when.Body, ctx, w)
			}
		}
	}
	if node.Else != nil {
		return e.RenderNodes(node.Else, ctx, w)
	}
	return nil
}

// evalIterable resolves a for/tablerow/include-for iterable. A range is
// expanded with its own guard against MaxLoopIterations so a huge range
// literal is rejected before any allocation happens.
func (e *Evaluator) evalIterable(expr parser.Expression, ctx *Context) ([]any, error) {
	if rl, ok := expr.(*parser.RangeLiteral); ok {
		startV, err := e.Eval(rl.Start, ctx)
		if err != nil {
			return nil, err
		}
		stopV, err := e.Eval(rl.Stop, ctx)
		if err != nil {
			return nil, err
		}
		start, err := ToInt64(startV, ctx.Limits().MaxNumberString)
		if err != nil {
			return nil, err
		}
		stop, err := ToInt64(stopV, ctx.Limits().MaxNumberString)
		if err != nil {
			return nil, err
		}
		if stop < start {
			return []any{}, nil
		}
		n := stop - start + 1
		if ctx.Limits().MaxLoopIterations > 0 && n > int64(ctx.Limits().MaxLoopIterations) {
			return nil, &LoopIterationLimitError{Limit: ctx.Limits().MaxLoopIterations}
		}
		out := make([]any, 0, n)
		for i := start; i <= stop; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	v, err := e.Eval(expr, ctx)
	if err != nil {
		return nil, err
	}
	return toSlice(v), nil
}

// toSlice coerces a value to an iteration sequence; a map iterates as
// [key, value] pairs ordered by key, since Go maps have no stable order of
// their own.
func toSlice(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, []any{k, x[k]})
		}
		return out
	default:
		return nil
	}
}

func (e *Evaluator) renderFor(node *parser.ForNode, ctx *Context, w *limitedWriter) error {
	items, err := e.evalIterable(node.Loop.Iterable, ctx)
	if err != nil {
		return err
	}

	offsetKey := "forloop_offset:" + node.Loop.Identifier
	base := 0
	if node.Loop.Offset != nil {
		if node.Loop.OffsetIsContinue() {
			if v, ok := ctx.TagNamespace(offsetKey); ok {
				base, _ = v.(int)
			}
		} else {
			offVal, err := e.Eval(node.Loop.Offset, ctx)
			if err != nil {
				return err
			}
			n, err := ToInt64(offVal, ctx.Limits().MaxNumberString)
			if err != nil {
				return err
			}
			base = int(n)
		}
	}
	if base < 0 {
		base = 0
	}
	if base > len(items) {
		base = len(items)
	}
	items = items[base:]

	if node.Loop.Limit != nil {
		limVal, err := e.Eval(node.Loop.Limit, ctx)
		if err != nil {
			return err
		}
		n, err := ToInt64(limVal, ctx.Limits().MaxNumberString)
		if err != nil {
			return err
		}
		if lim := int(n); lim >= 0 && lim < len(items) {
			items = items[:lim]
		}
	}
	if node.Loop.Reversed {
		reversed := make([]any, len(items))
		for i, v := range items {
			reversed[len(items)-1-i] = v
		}
		items = reversed
	}
	ctx.SetTagNamespace(offsetKey, base+len(items))

	if len(items) == 0 {
		if node.Else != nil {
			return e.RenderNodes(node.Else, ctx, w)
		}
		return nil
	}

	var parentDrop map[string]any
	if v, ok := ctx.Get("forloop"); ok {
		parentDrop, _ = v.(map[string]any)
	}

	ctx.PushTransparent()
	defer ctx.Pop()
	for idx, item := range items {
		if err := ctx.CountIteration(); err != nil {
			return err
		}
		ctx.SetLocal(node.Loop.Identifier, item)
		ctx.SetLocal("forloop", forLoopDrop(idx, len(items), parentDrop))
		if err := e.RenderNodes(node.Body, ctx, w); err != nil {
			if IsBreak(err) {
				break
			}
			if IsContinue(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func (e *Evaluator) renderTableRow(node *parser.TableRowNode, ctx *Context, w *limitedWriter) error {
	items, err := e.evalIterable(node.Loop.Iterable, ctx)
	if err != nil {
		return err
	}
	cols := len(items)
	if node.Loop.Cols != nil {
		v, err := e.Eval(node.Loop.Cols, ctx)
		if err != nil {
			return err
		}
		n, err := ToInt64(v, ctx.Limits().MaxNumberString)
		if err != nil {
			return err
		}
		if n > 0 {
			cols = int(n)
		}
	}
	if cols <= 0 {
		cols = 1
	}

	if err := w.WriteString(`<tr class="row1">`); err != nil {
		return err
	}
	ctx.PushTransparent()
	defer ctx.Pop()
	row := 1
	for idx, item := range items {
		if err := ctx.CountIteration(); err != nil {
			return err
		}
		col := idx % cols
		if idx > 0 && col == 0 {
			if err := w.WriteString("</tr>\n"); err != nil {
				return err
			}
			row++
			if err := w.WriteString(fmt.Sprintf(`<tr class="row%d">`, row)); err != nil {
				return err
			}
		}
		if err := w.WriteString(fmt.Sprintf(`<td class="col%d">`, col+1)); err != nil {
			return err
		}
		ctx.SetLocal(node.Loop.Identifier, item)
		ctx.SetLocal("tablerowloop", tableRowLoopDrop(idx, len(items), col, cols, row))
		bodyErr := e.RenderNodes(node.Body, ctx, w)
		if err := w.WriteString("</td>"); err != nil {
			return err
		}
		if bodyErr != nil {
			if IsBreak(bodyErr) {
				break
			}
			if IsContinue(bodyErr) {
				continue
			}
			return bodyErr
		}
	}
	return w.WriteString("</tr>\n")
}

func (e *Evaluator) renderCycle(node *parser.CycleNode, ctx *Context, w *limitedWriter) error {
	values := make([]any, len(node.Values))
	for i, expr := range node.Values {
		v, err := e.Eval(expr, ctx)
		if err != nil {
			return err
		}
		values[i] = v
	}
	var key string
	if node.Group != nil {
		g, err := e.Eval(node.Group, ctx)
		if err != nil {
			return err
		}
		key = ToString(g)
	} else {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = ToString(v)
		}
		key = strings.Join(parts, "\x00")
	}
	idx := ctx.CycleNext(key, len(values))
	return w.WriteString(ToString(values[idx]))
}

func (e *Evaluator) renderIfChanged(node *parser.IfChangedNode, ctx *Context, w *limitedWriter) error {
	var sb strings.Builder
	sw := newLimitedWriter(&sb, 0)
	if err := e.RenderNodes(node.Body, ctx, sw); err != nil {
		return err
	}
	out := sb.String()
	key := "ifchanged:" + strconv.Itoa(node.Span().ByteIndex)
	if prev, ok := ctx.TagNamespace(key); ok && prev == out {
		return nil
	}
	ctx.SetTagNamespace(key, out)
	return w.WriteString(out)
}

// renderCapture renders the body into an intermediate buffer and binds the
// result (spec §4.4 "capture"). Under autoescape, the captured string is
// already-rendered markup, not raw user input, so it's bound as Safe to
// avoid a second escaping pass when it's later output.
func (e *Evaluator) renderCapture(node *parser.CaptureNode, ctx *Context, w *limitedWriter) error {
	var sb strings.Builder
	sw := newLimitedWriter(&sb, 0)
	if err := e.RenderNodes(node.Body, ctx, sw); err != nil {
		return err
	}
	if e.AutoEscape {
		return ctx.Set(node.Name, Safe(sb.String()))
	}
	return ctx.Set(node.Name, sb.String())
}

func (e *Evaluator) renderInclude(node *parser.IncludeNode, ctx *Context, w *limitedWriter) error {
	if ctx.IsTagDisabled("include") {
		return &DisabledTagError{base: base{Span: node.Span()}, Name: "include"}
	}
	if e.Loader == nil {
		return NewValueError(node.Span(), "include requires a configured loader")
	}
	nameV, err := e.Eval(node.Template, ctx)
	if err != nil {
		return err
	}
	name := ToString(nameV)
	tmpl, err := e.Loader.Load(name)
	if err != nil {
		return &TemplateNotFoundError{base: base{Span: node.Span()}, Name: name}
	}

	if err := ctx.EnterDepth(); err != nil {
		return err
	}
	defer ctx.ExitDepth()

	bindKwargs := func() error {
		for _, a := range node.Args {
			v, err := e.Eval(a.Value, ctx)
			if err != nil {
				return err
			}
			if err := ctx.SetGlobal(a.Name, v); err != nil {
				return err
			}
		}
		return nil
	}

	if node.With != nil {
		v, err := e.Eval(node.With, ctx)
		if err != nil {
			return err
		}
		alias := node.WithAlias
		if alias == "" {
			alias = name
		}
		if err := ctx.SetGlobal(alias, v); err != nil {
			return err
		}
	}

	if node.For != nil {
		items, err := e.evalIterable(node.For, ctx)
		if err != nil {
			return err
		}
		alias := node.ForAlias
		if alias == "" {
			alias = name
		}
		e.hoistMacros(tmpl.Nodes, ctx)
		for _, item := range items {
			if err := ctx.CountIteration(); err != nil {
				return err
			}
			if err := ctx.SetGlobal(alias, item); err != nil {
				return err
			}
			if err := bindKwargs(); err != nil {
				return err
			}
			if err := e.RenderNodes(tmpl.Nodes, ctx, w); err != nil {
				return err
			}
		}
		return nil
	}

	if err := bindKwargs(); err != nil {
		return err
	}
	e.hoistMacros(tmpl.Nodes, ctx)
	return e.RenderNodes(tmpl.Nodes, ctx, w)
}

func (e *Evaluator) renderRender(node *parser.RenderNode, ctx *Context, w *limitedWriter) error {
	if e.Loader == nil {
		return NewValueError(node.Span(), "render requires a configured loader")
	}
	nameV, err := e.Eval(node.Template, ctx)
	if err != nil {
		return err
	}
	name := ToString(nameV)
	tmpl, err := e.Loader.Load(name)
	if err != nil {
		return &TemplateNotFoundError{base: base{Span: node.Span()}, Name: name}
	}

	if err := ctx.EnterDepth(); err != nil {
		return err
	}
	defer ctx.ExitDepth()

	data := make(map[string]any, len(node.Args))
	for _, a := range node.Args {
		v, err := e.Eval(a.Value, ctx)
		if err != nil {
			return err
		}
		data[a.Name] = v
	}

	if node.For != nil {
		items, err := e.evalIterable(node.For, ctx)
		if err != nil {
			return err
		}
		alias := node.ForAlias
		if alias == "" {
			alias = name
		}
		for _, item := range items {
			if err := ctx.CountIteration(); err != nil {
				return err
			}
			child := ctx.Isolated(cloneMap(data))
			child.PushDisabledTags("include")
			if err := child.SetGlobal(alias, item); err != nil {
				return err
			}
			e.hoistMacros(tmpl.Nodes, child)
			if err := e.RenderNodes(tmpl.Nodes, child, w); err != nil {
				return err
			}
		}
		return nil
	}

	if node.With != nil {
		v, err := e.Eval(node.With, ctx)
		if err != nil {
			return err
		}
		alias := node.WithAlias
		if alias == "" {
			alias = name
		}
		data[alias] = v
	}
	child := ctx.Isolated(data)
	child.PushDisabledTags("include")
	e.hoistMacros(tmpl.Nodes, child)
	return e.RenderNodes(tmpl.Nodes, child, w)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// renderBlock renders the most-derived override for this block name, or the
// block's own body when no template in the inheritance chain overrode it
// (spec §4.5). A `block` drop is bound for the body with `block.super`
// resolving to the next-deeper definition in the chain, rendered eagerly so
// it can recurse through its own super chain in turn.
func (e *Evaluator) renderBlock(node *parser.BlockNode, ctx *Context, w *limitedWriter) error {
	if ctx.IsTagDisabled("block") {
		return &DisabledTagError{base: base{Span: node.Span()}, Name: "block"}
	}
	if chain, ok := ctx.BlockChain(node.Name); ok && len(chain) > 0 {
		return e.renderBlockChain(chain, 0, ctx, w)
	}
	return e.renderBlockBody(node, nil, ctx, w)
}

// renderBlockChain renders chain[idx]'s body, wiring block.super to a
// rendering of chain[idx+1:] (undefined past the end of the chain).
func (e *Evaluator) renderBlockChain(chain []*parser.BlockNode, idx int, ctx *Context, w *limitedWriter) error {
	node := chain[idx]
	if idx+1 >= len(chain) {
		return e.renderBlockBody(node, nil, ctx, w)
	}

	var sb strings.Builder
	sw := newLimitedWriter(&sb, 0)
	if err := e.renderBlockChain(chain, idx+1, ctx, sw); err != nil {
		return err
	}
	var super any = sb.String()
	if e.AutoEscape {
		super = Safe(sb.String())
	}
	return e.renderBlockBody(node, super, ctx, w)
}

// renderBlockBody renders a single block's body with a transparent scope
// carrying the `block` drop (spec §4.4 "block" row); super is nil (renders
// as undefined) when there is no deeper definition to fall back to.
func (e *Evaluator) renderBlockBody(node *parser.BlockNode, super any, ctx *Context, w *limitedWriter) error {
	if super == nil {
		u, err := ctx.Undefined().Missing("super", node.Span())
		if err != nil {
			return err
		}
		super = u
	}
	ctx.PushTransparent()
	defer ctx.Pop()
	ctx.SetLocal("block", map[string]any{"super": super})
	return e.RenderNodes(node.Body, ctx, w)
}

// renderCall binds a `call` tag's arguments to its macro's parameters and
// renders the macro body (spec §4.4 "call"): excess positional arguments
// collect into `args`, excess keyword arguments into `kwargs`, and an
// undefined macro name renders as the undefined type rather than raising.
func (e *Evaluator) renderCall(node *parser.CallNode, ctx *Context, w *limitedWriter) error {
	macro, ok := ctx.Macro(node.Name)
	if !ok {
		v, err := ctx.Undefined().Missing(node.Name, node.Span())
		if err != nil {
			return err
		}
		return w.WriteString(e.outputString(v))
	}
	if err := ctx.EnterDepth(); err != nil {
		return err
	}
	defer ctx.ExitDepth()

	bound := make(map[string]any, len(macro.Params))
	var excessPositional []any
	excessKeyword := make(map[string]any)
	positional := 0
	for _, a := range node.Args {
		v, err := e.Eval(a.Value, ctx)
		if err != nil {
			return err
		}
		if a.Name == "" {
			if positional < len(macro.Params) {
				bound[macro.Params[positional].Name] = v
			} else {
				excessPositional = append(excessPositional, v)
			}
			positional++
			continue
		}
		if paramExists(macro.Params, a.Name) {
			bound[a.Name] = v
		} else {
			excessKeyword[a.Name] = v
		}
	}
	for _, p := range macro.Params {
		if _, ok := bound[p.Name]; !ok && p.Default != nil {
			v, err := e.Eval(p.Default, ctx)
			if err != nil {
				return err
			}
			bound[p.Name] = v
		}
	}
	bound["args"] = excessPositional
	bound["kwargs"] = excessKeyword

	ctx.Push()
	defer ctx.Pop()
	restore := ctx.PushDisabledTags("include", "block")
	defer restore()
	for k, v := range bound {
		if err := ctx.Set(k, v); err != nil {
			return err
		}
	}
	return e.RenderNodes(macro.Body, ctx, w)
}

func paramExists(params []parser.MacroParam, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (e *Evaluator) renderWith(node *parser.WithNode, ctx *Context, w *limitedWriter) error {
	ctx.Push()
	defer ctx.Pop()
	for _, b := range node.Bindings {
		v, err := e.Eval(b.Value, ctx)
		if err != nil {
			return err
		}
		if err := ctx.Set(b.Name, v); err != nil {
			return err
		}
	}
	return e.RenderNodes(node.Body, ctx, w)
}

// renderTranslate resolves the message body by dispatching to the
// translations collaborator's gettext/ngettext/pgettext/npgettext by the
// shape of count:/context: (spec §4.4), then fills in %(name)s placeholders
// from the tag's other keyword bindings, falling back to the render context
// for a name no binding supplies.
func (e *Evaluator) renderTranslate(node *parser.TranslateNode, ctx *Context, w *limitedWriter) error {
	bindings := make(map[string]any, len(node.Bindings)+1)
	for _, b := range node.Bindings {
		v, err := e.Eval(b.Value, ctx)
		if err != nil {
			return err
		}
		bindings[b.Name] = v
	}

	var count *int64
	if node.Count != nil {
		v, err := e.Eval(node.Count, ctx)
		if err != nil {
			return err
		}
		n, err := ToInt64(v, ctx.Limits().MaxNumberString)
		if err != nil {
			return err
		}
		count = &n
		bindings["count"] = v
	}

	var msgContext string
	if node.Context != nil {
		v, err := e.Eval(node.Context, ctx)
		if err != nil {
			return err
		}
		msgContext = ToString(v)
	}

	translations := resolveTranslations(ctx)

	var message string
	switch {
	case node.HasPlural && count != nil && msgContext != "":
		message = translations.Npgettext(msgContext, node.Singular, node.Plural, *count)
	case node.HasPlural && count != nil:
		message = translations.Ngettext(node.Singular, node.Plural, *count)
	case msgContext != "":
		message = translations.Pgettext(msgContext, node.Singular)
	default:
		message = translations.Gettext(node.Singular)
	}

	// A placeholder with no keyword binding takes its value from the render
	// context, which is how a bare `{{ name }}` in the body gets filled in.
	for rest := message; ; {
		_, after, ok := strings.Cut(rest, "%(")
		name, tail, ok2 := strings.Cut(after, ")s")
		if !ok || !ok2 {
			break
		}
		if _, bound := bindings[name]; !bound {
			if v, found := ctx.Get(name); found {
				bindings[name] = v
			}
		}
		rest = tail
	}

	return w.WriteString(Interpolate(message, bindings))
}

// --- Expressions -------------------------------------------------------------

// emptyMarker and blankMarker are the runtime values of the `empty`/`blank`
// primitives: meaningful only as a comparison operand, never rendered.
type emptyMarker struct{}
type blankMarker struct{}

func (e *Evaluator) Eval(expr parser.Expression, ctx *Context) (any, error) {
	switch x := expr.(type) {
	case *parser.StringLiteral:
		return x.Value, nil
	case *parser.IntegerLiteral:
		return x.Value, nil
	case *parser.FloatLiteral:
		return x.Value, nil
	case *parser.BooleanLiteral:
		return x.Value, nil
	case *parser.NilLiteral:
		return nil, nil
	case *parser.EmptyLiteral:
		return emptyMarker{}, nil
	case *parser.BlankLiteral:
		return blankMarker{}, nil
	case *parser.RangeLiteral:
		return e.evalIterable(x, ctx)
	case *parser.Path:
		return e.evalPath(x, ctx)
	case *parser.FilteredExpression:
		return e.evalFiltered(x, ctx)
	case *parser.TernaryFilteredExpression:
		return e.evalTernary(x, ctx)
	case *parser.CompareExpr:
		return e.evalCompare(x, ctx)
	case *parser.LogicalExpr:
		return e.evalLogical(x, ctx)
	case *parser.NotExpr:
		v, err := e.Eval(x.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return !Truthy(v), nil
	default:
		return nil, NewTypeError(expr.Span(), "unsupported expression type %T", expr)
	}
}

func (e *Evaluator) evalPath(p *parser.Path, ctx *Context) (any, error) {
	head := p.Segments[0]
	v, ok := ctx.Get(head.Name)
	if !ok {
		u, err := ctx.Undefined().Missing(head.Name, p.Span())
		if err != nil {
			return nil, err
		}
		v = u
	}
	for _, seg := range p.Segments[1:] {
		next, err := e.index(v, seg, ctx, p.Span())
		if err != nil {
			return nil, err
		}
		v = next
	}
	if ctx.tracker != nil {
		_, stillUndefined := v.(*Undefined)
		ctx.tracker.recordLookup(p.String(), !stillUndefined)
	}
	return v, nil
}

func (e *Evaluator) index(v any, seg parser.PathSegment, ctx *Context, span parser.Span) (any, error) {
	if u, ok := v.(*Undefined); ok {
		return ctx.Undefined().Chain(u, "."+segSelector(seg), span)
	}
	switch seg.Kind {
	case parser.SegIdent, parser.SegString:
		return e.indexKey(v, seg.Name, ctx, span)
	case parser.SegIndex:
		return e.indexArray(v, seg.Index, ctx, span)
	case parser.SegNested:
		key, err := e.Eval(seg.Nested, ctx)
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case string:
			return e.indexKey(v, k, ctx, span)
		case int64:
			return e.indexArray(v, k, ctx, span)
		default:
			n, err := ToInt64(k, ctx.Limits().MaxNumberString)
			if err != nil {
				return nil, err
			}
			return e.indexArray(v, n, ctx, span)
		}
	}
	return nil, nil
}

func segSelector(seg parser.PathSegment) string {
	if seg.Kind == parser.SegIndex {
		return strconv.FormatInt(seg.Index, 10)
	}
	return seg.Name
}

func (e *Evaluator) indexKey(v any, key string, ctx *Context, span parser.Span) (any, error) {
	switch m := v.(type) {
	case map[string]any:
		if val, ok := m[key]; ok {
			return val, nil
		}
		return ctx.Undefined().Missing(key, span)
	case []any:
		switch key {
		case "size":
			return int64(len(m)), nil
		case "first":
			if len(m) == 0 {
				return ctx.Undefined().Missing(key, span)
			}
			return m[0], nil
		case "last":
			if len(m) == 0 {
				return ctx.Undefined().Missing(key, span)
			}
			return m[len(m)-1], nil
		}
		return ctx.Undefined().Missing(key, span)
	case string:
		if key == "size" {
			return int64(len(m)), nil
		}
		return ctx.Undefined().Missing(key, span)
	default:
		return ctx.Undefined().Missing(key, span)
	}
}

func (e *Evaluator) indexArray(v any, idx int64, ctx *Context, span parser.Span) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return ctx.Undefined().Missing(strconv.FormatInt(idx, 10), span)
	}
	if idx < 0 {
		idx = int64(len(arr)) + idx
	}
	if idx < 0 || idx >= int64(len(arr)) {
		return ctx.Undefined().Missing(strconv.FormatInt(idx, 10), span)
	}
	return arr[idx], nil
}

func (e *Evaluator) evalFiltered(x *parser.FilteredExpression, ctx *Context) (any, error) {
	v, err := e.Eval(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	v, err = e.applyFilterChain(x.Filters, v, ctx)
	if err != nil {
		return nil, err
	}
	return e.applyFilterChain(x.TailFilters, v, ctx)
}

func (e *Evaluator) evalTernary(x *parser.TernaryFilteredExpression, ctx *Context) (any, error) {
	cond, err := e.Eval(x.Condition, ctx)
	if err != nil {
		return nil, err
	}
	var v any
	if Truthy(cond) {
		v, err = e.Eval(x.Left, ctx)
		if err != nil {
			return nil, err
		}
		v, err = e.applyFilterChain(x.Filters, v, ctx)
		if err != nil {
			return nil, err
		}
	} else if x.Alternative != nil {
		v, err = e.Eval(x.Alternative, ctx)
		if err != nil {
			return nil, err
		}
	}
	return e.applyFilterChain(x.TailFilters, v, ctx)
}

func (e *Evaluator) applyFilterChain(chain []parser.FilterCall, v any, ctx *Context) (any, error) {
	for _, fc := range chain {
		var err error
		v, err = e.applyFilter(fc, v, ctx)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (e *Evaluator) applyFilter(fc parser.FilterCall, input any, ctx *Context) (any, error) {
	if e.Filters == nil {
		return nil, &NoSuchFilterError{base: base{Span: fc.Span()}, Name: fc.Name}
	}
	fn, ok := e.Filters.Get(fc.Name)
	if !ok {
		return nil, &NoSuchFilterError{base: base{Span: fc.Span()}, Name: fc.Name}
	}
	args := FilterArgs{Keyword: make(map[string]any)}
	for _, a := range fc.Args {
		v, err := e.Eval(a.Value, ctx)
		if err != nil {
			return nil, err
		}
		if a.Name == "" {
			args.Positional = append(args.Positional, v)
		} else {
			args.Keyword[a.Name] = v
		}
	}
	return fn(input, args, ctx)
}

func (e *Evaluator) evalCompare(x *parser.CompareExpr, ctx *Context) (any, error) {
	left, err := e.Eval(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(x.Right, ctx)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case parser.CmpEq:
		return valuesEqual(left, right), nil
	case parser.CmpNe:
		return !valuesEqual(left, right), nil
	case parser.CmpContains:
		return containsValue(left, right), nil
	default:
		return numericCompare(x.Op, left, right), nil
	}
}

// valuesEqual special-cases the `empty`/`blank` comparison primitives,
// which aren't ordinary values — they only mean something as one side of an
// equality test.
func valuesEqual(a, b any) bool {
	if _, ok := a.(emptyMarker); ok {
		return IsEmptyValue(b)
	}
	if _, ok := b.(emptyMarker); ok {
		return IsEmptyValue(a)
	}
	if _, ok := a.(blankMarker); ok {
		return IsBlankValue(b)
	}
	if _, ok := b.(blankMarker); ok {
		return IsBlankValue(a)
	}
	return Equal(a, b)
}

func containsValue(left, right any) bool {
	switch l := left.(type) {
	case string:
		rs, ok := right.(string)
		return ok && strings.Contains(l, rs)
	case []any:
		for _, item := range l {
			if Equal(item, right) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// numericCompare implements `<`/`<=`/`>`/`>=`. A comparison between
// incompatible types (e.g. string vs. number) is false rather than an error,
// matching lenient Liquid comparison semantics.
func numericCompare(op parser.CompareOp, left, right any) bool {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case parser.CmpLt:
				return ls < rs
			case parser.CmpLe:
				return ls <= rs
			case parser.CmpGt:
				return ls > rs
			case parser.CmpGe:
				return ls >= rs
			}
		}
	}
	lf, err := ToFloat64(left, 0)
	if err != nil {
		return false
	}
	rf, err := ToFloat64(right, 0)
	if err != nil {
		return false
	}
	switch op {
	case parser.CmpLt:
		return lf < rf
	case parser.CmpLe:
		return lf <= rf
	case parser.CmpGt:
		return lf > rf
	case parser.CmpGe:
		return lf >= rf
	}
	return false
}

func (e *Evaluator) evalLogical(x *parser.LogicalExpr, ctx *Context) (any, error) {
	left, err := e.Eval(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	if x.Op == parser.LogicalAnd && !Truthy(left) {
		return false, nil
	}
	if x.Op == parser.LogicalOr && Truthy(left) {
		return true, nil
	}
	right, err := e.Eval(x.Right, ctx)
	if err != nil {
		return nil, err
	}
	return Truthy(right), nil
}
