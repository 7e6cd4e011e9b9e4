// Package miya is the host-facing Liquid template engine: an Environment
// holds process-wide configuration (loader, registries, undefined policy,
// render limits), and a Template compiled from it renders against caller
// data (spec §6.5 "Host-level API").
package miya

import (
	"github.com/liquidgo/liquid/loader"
	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// Loader resolves a template name to parsed source (spec §6.1); every
// loader in the loader/ package satisfies it directly.
type Loader = loader.Loader

// FilterFunc is the signature a caller-registered filter implements.
type FilterFunc = runtime.FilterFunc

// UndefinedBehavior selects how a missing variable resolves (spec §3
// "Undefined"): lenient, debug, or strict.
type UndefinedBehavior = runtime.UndefinedBehavior

const (
	UndefinedLenient = runtime.UndefinedLenient
	UndefinedDebug   = runtime.UndefinedDebug
	UndefinedStrict  = runtime.UndefinedStrict
)

// Tolerance selects how FromString/GetTemplate react to a malformed tag or
// output (spec §3/§7): Strict raises immediately, Warn/Lax recover.
type Tolerance = parser.Tolerance

const (
	Strict = parser.Strict
	Warn   = parser.Warn
	Lax    = parser.Lax
)

// Limits bounds a single render (spec §5): recursion depth, loop
// iterations, output bytes, local variable count.
type Limits = runtime.Limits
