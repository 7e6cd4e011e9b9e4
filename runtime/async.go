package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/liquidgo/liquid/parser"
	"golang.org/x/sync/errgroup"
)

// AsyncResult is a promise-like handle for a value computed by a background
// goroutine, cancelable through a context. Ported from the teacher's
// generic AsyncResult[T] (flow package): same completion-channel/atomic-bool
// shape, trimmed to the single Set/Result path this module actually needs
// (no Fork/chaining, since template prefetch never depends on another
// prefetch's result).
type AsyncResult[T any] struct {
	ctx          context.Context
	result       T
	err          error
	mu           sync.RWMutex
	completionCh chan struct{}
	isCompleted  atomic.Bool
	completionWg sync.WaitGroup
}

// NewAsyncResult starts the background wait for either ctx cancellation or
// a Set call, and returns immediately.
func NewAsyncResult[T any](ctx context.Context) *AsyncResult[T] {
	r := &AsyncResult[T]{ctx: ctx, completionCh: make(chan struct{}, 1)}
	r.completionWg.Add(1)
	go r.awaitCompletion()
	return r
}

func (r *AsyncResult[T]) awaitCompletion() {
	defer func() {
		r.isCompleted.Store(true)
		r.completionWg.Done()
	}()
	select {
	case <-r.ctx.Done():
		r.mu.Lock()
		r.err = r.ctx.Err()
		r.mu.Unlock()
	case <-r.completionCh:
	}
}

// Set records the outcome and wakes any Result caller. Idempotent: a second
// call is a no-op.
func (r *AsyncResult[T]) Set(v T, err error) {
	if r.IsCompleted() {
		return
	}
	r.mu.Lock()
	r.result, r.err = v, err
	r.mu.Unlock()
	if !r.isCompleted.Swap(true) {
		close(r.completionCh)
	}
	r.completionWg.Wait()
}

func (r *AsyncResult[T]) IsCompleted() bool { return r.isCompleted.Load() }

// Result blocks until the value is set or the context is canceled.
func (r *AsyncResult[T]) Result() (T, error) {
	r.completionWg.Wait()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result, r.err
}

// PrefetchTemplates walks a node tree collecting every literal `include`/
// `render` target and loads them concurrently via an errgroup, so by the
// time RenderNodes reaches the first partial its Load call is already
// warm in the loader's own cache (see loader.CachingLoader). Dynamic
// template-name expressions (a variable rather than a string literal)
// can't be resolved ahead of render and are skipped; they still load
// correctly, just synchronously, when the evaluator reaches them.
func PrefetchTemplates(ctx context.Context, loader TemplateLoader, nodes []parser.Node) map[string]*AsyncResult[*parser.Template] {
	names := collectPartialNames(nodes, nil)
	results := make(map[string]*AsyncResult[*parser.Template], len(names))
	if loader == nil || len(names) == 0 {
		return results
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		res := NewAsyncResult[*parser.Template](gctx)
		results[name] = res
		group.Go(func() error {
			tmpl, err := loader.Load(name)
			res.Set(tmpl, err)
			return err
		})
	}
	// Errors surface through each AsyncResult's own Result() call; Wait here
	// only ensures every goroutine has actually called Set before we return,
	// so a caller that immediately reads results won't race the group.
	_ = group.Wait()
	return results
}

func collectPartialNames(nodes []parser.Node, out []string) []string {
	for _, n := range nodes {
		out = collectPartialNamesFrom(n, out)
	}
	return out
}

func collectPartialNamesFrom(n parser.Node, out []string) []string {
	switch node := n.(type) {
	case *parser.IncludeNode:
		out = appendLiteralName(out, node.Template)
	case *parser.RenderNode:
		out = appendLiteralName(out, node.Template)
	case *parser.IfNode:
		for _, b := range node.Branches {
			out = collectPartialNames(b.Body, out)
		}
	case *parser.UnlessNode:
		for _, b := range node.Branches {
			out = collectPartialNames(b.Body, out)
		}
	case *parser.CaseNode:
		for _, w := range node.Whens {
			out = collectPartialNames(w.Body, out)
		}
		out = collectPartialNames(node.Else, out)
	case *parser.ForNode:
		out = collectPartialNames(node.Body, out)
		out = collectPartialNames(node.Else, out)
	case *parser.TableRowNode:
		out = collectPartialNames(node.Body, out)
	case *parser.CaptureNode:
		out = collectPartialNames(node.Body, out)
	case *parser.WithNode:
		out = collectPartialNames(node.Body, out)
	case *parser.BlockNode:
		out = collectPartialNames(node.Body, out)
	case *parser.LiquidNode:
		out = collectPartialNames(node.Body, out)
	}
	return out
}

func appendLiteralName(out []string, expr parser.Expression) []string {
	lit, ok := expr.(*parser.StringLiteral)
	if !ok {
		return out
	}
	for _, existing := range out {
		if existing == lit.Value {
			return out
		}
	}
	return append(out, lit.Value)
}
