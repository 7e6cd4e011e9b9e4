package runtime

import "github.com/liquidgo/liquid/parser"

// Limits bounds a single render the way spec §5 requires: depth guards
// against include/render/macro recursion, loop/output/namespace guards
// against amplification attacks from a template an untrusted author wrote.
// Zero disables the corresponding guard.
type Limits struct {
	MaxContextDepth   int
	MaxLoopIterations int
	MaxOutputBytes    int
	MaxLocalVariables int
	MaxNumberString   int
}

// DefaultLimits mirrors common safe defaults; callers needing unrestricted
// rendering (trusted templates) pass a zero Limits explicitly.
func DefaultLimits() Limits {
	return Limits{
		MaxContextDepth:   50,
		MaxLoopIterations: 1_000_000,
		MaxOutputBytes:    0,
		MaxLocalVariables: 0,
		MaxNumberString:   DefaultMaxNumberString,
	}
}

// renderState is shared by a root Context and every isolated child a
// `render` tag spins up, so depth/iteration guards bound the whole render
// tree instead of resetting at an isolation boundary.
type renderState struct {
	depth      int
	iterations int
}

// Context is the per-render state threaded through every node evaluation
// (spec §3 "Context"): a scope-chain stack for locals, read-only global
// data, process-wide built-ins, and the counters/cycles/tag-namespace state
// that persist across scope pushes within one render.
//
// Scope push/pop follows the teacher's copy-on-write context
// (context_cow.go) in spirit — child scopes share the parent's map until a
// write happens — but is reshaped as an explicit slice-of-maps stack rather
// than a linked COW chain, since Liquid's scope lifetime is strictly
// nested (block bodies), never retained past their Pop.
type Context struct {
	scopes   []map[string]any
	globals  map[string]any
	builtins map[string]any

	counters     map[string]int64
	cycles       map[string]int
	tagNamespace map[string]any
	macros       map[string]*parser.MacroNode
	blocks       map[string][]*parser.BlockNode

	state  *renderState
	limits Limits

	undefined *Handler

	localCount int

	tracker *Tracker

	disabledTags map[string]bool

	// localIdx is which scopes entry `assign`/`capture` target (spec §3
	// "local namespace... sits at a fixed position in the chain"). Most
	// pushes are transparent (for/tablerow/block bodies, spec's `block_scope`
	// default; if/unless/case bodies push no scope at all): localIdx stays put, so an assign inside a loop body escapes
	// to the scope active before the loop started. `with`/`call` push
	// opaquely, rebinding localIdx to their own new scope, so their bindings
	// (and any assign inside their body) stay local to the block.
	localIdx      int
	localIdxStack []int
}

// NewContext builds the top-level context for one Render call. data is the
// caller-supplied, read-only global scope (spec §4.2 "globals").
func NewContext(data map[string]any, builtins map[string]any, limits Limits, behavior UndefinedBehavior) *Context {
	return &Context{
		scopes:       []map[string]any{make(map[string]any, 8)},
		globals:      data,
		builtins:     builtins,
		counters:     make(map[string]int64),
		cycles:       make(map[string]int),
		tagNamespace: make(map[string]any),
		macros:       make(map[string]*parser.MacroNode),
		blocks:       make(map[string][]*parser.BlockNode),
		state:        &renderState{},
		limits:       limits,
		undefined:    NewHandler(behavior),
	}
}

// Isolated builds a fresh context for a `render` tag call (spec §4.5
// "Render isolates scope"): no access to the caller's locals or globals
// beyond what data supplies, but depth/iteration guards and registered
// macros are shared with the whole render tree so isolation can't be used
// to dodge the limits above.
func (c *Context) Isolated(data map[string]any) *Context {
	return &Context{
		scopes:       []map[string]any{make(map[string]any, 8)},
		globals:      data,
		builtins:     c.builtins,
		counters:     make(map[string]int64),
		cycles:       make(map[string]int),
		tagNamespace: make(map[string]any),
		macros:       c.macros,
		blocks:       make(map[string][]*parser.BlockNode),
		state:        c.state,
		limits:       c.limits,
		undefined:    c.undefined,
		tracker:      c.tracker,
		disabledTags: c.disabledTags,
	}
}

// SetTracker attaches a lookup/assignment recorder for contextual static
// analysis. Passing nil detaches it; nil is also the default, so ordinary
// renders never pay for this bookkeeping.
func (c *Context) SetTracker(t *Tracker) { c.tracker = t }

// Push opens a new innermost scope and makes it the assign target (spec
// §3 `block_scope=true`): used by `with` and macro `call`, where bindings
// and any assign made inside stay local to the block.
func (c *Context) Push() {
	c.localIdxStack = append(c.localIdxStack, c.localIdx)
	c.scopes = append(c.scopes, make(map[string]any, 4))
	c.localIdx = len(c.scopes) - 1
}

// PushTransparent opens a new innermost scope without moving the assign
// target (spec §3 `block_scope=false`, "the common case for if/for
// bodies"): used by `for`/`tablerow` so their own loop-drop bindings
// (item, forloop, tablerowloop) stay confined to one iteration while an
// `assign` inside the body still escapes to the scope active before the
// loop started.
func (c *Context) PushTransparent() {
	c.localIdxStack = append(c.localIdxStack, c.localIdx)
	c.scopes = append(c.scopes, make(map[string]any, 4))
}

// Pop closes the innermost scope and restores the assign target to what it
// was before the matching Push/PushTransparent. Panics if called without a
// matching push (programmer error in a node's evaluation, not a template
// error).
func (c *Context) Pop() {
	n := len(c.scopes)
	top := c.scopes[n-1]
	c.localCount -= len(top)
	c.scopes = c.scopes[:n-1]
	n = len(c.localIdxStack)
	c.localIdx = c.localIdxStack[n-1]
	c.localIdxStack = c.localIdxStack[:n-1]
}

// Get resolves a path head: innermost scope outward, then globals, then
// built-ins. The bool result is false only when nothing bound the name at
// all (callers turn that into an Undefined via Handler).
func (c *Context) Get(name string) (any, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	if v, ok := c.globals[name]; ok {
		return v, true
	}
	if v, ok := c.builtins[name]; ok {
		return v, true
	}
	return nil, false
}

// Set binds name in the current local namespace (spec §3/§4.4 "assign"):
// the scope at localIdx, which is the innermost scope unless one or more
// enclosing for/tablerow/block bodies pushed transparently, in which case it's
// the scope active before the outermost of those began.
func (c *Context) Set(name string, v any) error {
	return c.setIn(c.localIdx, name, v)
}

// SetLocal binds name in the innermost scope regardless of localIdx, for a
// tag's own loop-drop bindings (`forloop`, `tablerowloop`, the loop
// variable) that must never escape past their body even when assigns
// inside that same body do.
func (c *Context) SetLocal(name string, v any) error {
	return c.setIn(len(c.scopes)-1, name, v)
}

func (c *Context) setIn(idx int, name string, v any) error {
	target := c.scopes[idx]
	if _, exists := target[name]; !exists {
		if c.limits.MaxLocalVariables > 0 && c.localCount >= c.limits.MaxLocalVariables {
			return &LocalNamespaceLimitError{Limit: c.limits.MaxLocalVariables}
		}
		c.localCount++
	}
	target[name] = v
	c.tracker.recordAssign(name)
	return nil
}

// SetGlobal binds name in the outermost scope, used by `include` (spec
// §4.5: include shares and can mutate the caller's scope via assign).
func (c *Context) SetGlobal(name string, v any) error {
	top := c.scopes[0]
	if _, exists := top[name]; !exists {
		if c.limits.MaxLocalVariables > 0 && c.localCount >= c.limits.MaxLocalVariables {
			return &LocalNamespaceLimitError{Limit: c.limits.MaxLocalVariables}
		}
		c.localCount++
	}
	top[name] = v
	c.tracker.recordAssign(name)
	return nil
}

// Undefined returns this context's Undefined-value builder.
func (c *Context) Undefined() *Handler { return c.undefined }

// EnterDepth increments the include/render/macro nesting counter, returning
// a ContextDepthError once the limit is reached. Callers must pair every
// successful call with ExitDepth, typically via defer.
func (c *Context) EnterDepth() error {
	c.state.depth++
	if c.limits.MaxContextDepth > 0 && c.state.depth > c.limits.MaxContextDepth {
		return &ContextDepthError{Limit: c.limits.MaxContextDepth}
	}
	return nil
}

func (c *Context) ExitDepth() { c.state.depth-- }

// CountIteration advances the render tree's total loop-iteration counter,
// returning a LoopIterationLimitError once MaxLoopIterations is exceeded.
// Shared via renderState so an isolated `render` call cannot dodge the guard
// by starting a fresh counter.
func (c *Context) CountIteration() error {
	c.state.iterations++
	if c.limits.MaxLoopIterations > 0 && c.state.iterations > c.limits.MaxLoopIterations {
		return &LoopIterationLimitError{Limit: c.limits.MaxLoopIterations}
	}
	return nil
}

// Increment and Decrement implement the `increment`/`decrement` tags' shared
// counters (spec §4.4): persistent across scope pushes, keyed only by name,
// for the lifetime of one Render call.
func (c *Context) Increment(name string) int64 {
	v := c.counters[name]
	c.counters[name] = v + 1
	return v
}

func (c *Context) Decrement(name string) int64 {
	v := c.counters[name] - 1
	c.counters[name] = v
	return v
}

// CycleNext advances the named cycle group and returns the index to use
// this call. n is the current call's value-list length; the stored position
// is reduced modulo n, so a group whose length changes between calls carries
// on from its stored position rather than restarting (the key is the group
// identity, not the value list).
func (c *Context) CycleNext(key string, n int) int {
	i := c.cycles[key]
	next := (i + 1) % n
	c.cycles[key] = next
	return i % n
}

// TagNamespace exposes a per-tag scratch slot (spec §3 "tag_namespace"),
// used today by `ifchanged` to remember its last rendered value across
// iterations of an enclosing loop.
func (c *Context) TagNamespace(key string) (any, bool) {
	v, ok := c.tagNamespace[key]
	return v, ok
}

func (c *Context) SetTagNamespace(key string, v any) {
	c.tagNamespace[key] = v
}

// RegisterMacro records a macro definition discovered at render time so a
// later `call` anywhere in the same render can find it regardless of
// lexical position (spec §4.7: macros are hoisted, not scope-ordered).
// First definition of a given name wins.
func (c *Context) RegisterMacro(m *parser.MacroNode) {
	if _, exists := c.macros[m.Name]; !exists {
		c.macros[m.Name] = m
	}
}

func (c *Context) Macro(name string) (*parser.MacroNode, bool) {
	m, ok := c.macros[name]
	return m, ok
}

// BlockChain returns every `{% block %}` declaration sharing name across the
// whole extends chain, most-derived first, so `{{ block.super }}` can render
// the next-deeper definition.
func (c *Context) BlockChain(name string) ([]*parser.BlockNode, bool) {
	chain, ok := c.blocks[name]
	return chain, ok
}

func (c *Context) SetBlockChain(name string, chain []*parser.BlockNode) {
	c.blocks[name] = chain
}

// Limits exposes the configured render limits to the evaluator (output-byte
// checks live in the limited writer, not here).
func (c *Context) Limits() Limits { return c.limits }

// IsTagDisabled reports whether name is off-limits in the current render
// scope (spec §3 "disabled_tags"): set dynamically by `render` and `call`
// for the body they spin up, distinct from the Environment's parse-time
// registry disable.
func (c *Context) IsTagDisabled(name string) bool { return c.disabledTags[name] }

// PushDisabledTags adds names to the dynamically-disabled set for the
// remainder of this context's lifetime and returns a function that restores
// the prior set; callers that push onto a shared context (e.g. `call`,
// which reuses the caller's scope stack) must defer the returned restore.
func (c *Context) PushDisabledTags(names ...string) func() {
	prev := c.disabledTags
	next := make(map[string]bool, len(prev)+len(names))
	for k := range prev {
		next[k] = true
	}
	for _, n := range names {
		next[n] = true
	}
	c.disabledTags = next
	return func() { c.disabledTags = prev }
}
