package filters

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

// registerStringFilters wires the teacher's string-filter set onto
// runtime.FilterFunc's signature; the string manipulation itself is ported
// directly from filters/string_filters.go, only the argument/input plumbing
// changed (FilterArgs.Arg/Kw instead of a variadic interface{} slice).
func registerStringFilters(r *Registry) {
	r.Register("upcase", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return strings.ToUpper(runtime.ToString(v)), nil
	})
	r.Register("downcase", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return strings.ToLower(runtime.ToString(v)), nil
	})
	r.Register("capitalize", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		if s == "" {
			return s, nil
		}
		runes := []rune(s)
		runes[0] = unicode.ToUpper(runes[0])
		for i := 1; i < len(runes); i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
		return string(runes), nil
	})
	r.Register("strip", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return strings.TrimSpace(runtime.ToString(v)), nil
	})
	r.Register("lstrip", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return strings.TrimLeftFunc(runtime.ToString(v), unicode.IsSpace), nil
	})
	r.Register("rstrip", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return strings.TrimRightFunc(runtime.ToString(v), unicode.IsSpace), nil
	})
	r.Register("strip_newlines", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		s = strings.ReplaceAll(s, "\r\n", "")
		s = strings.ReplaceAll(s, "\n", "")
		return s, nil
	})
	r.Register("append", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		suffix, _ := args.Arg(0)
		return runtime.ToString(v) + runtime.ToString(suffix), nil
	})
	r.Register("prepend", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		prefix, _ := args.Arg(0)
		return runtime.ToString(prefix) + runtime.ToString(v), nil
	})
	r.Register("remove", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		target, _ := args.Arg(0)
		return strings.ReplaceAll(runtime.ToString(v), runtime.ToString(target), ""), nil
	})
	r.Register("remove_first", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		target, _ := args.Arg(0)
		return strings.Replace(runtime.ToString(v), runtime.ToString(target), "", 1), nil
	})
	r.Register("replace", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		if len(args.Positional) < 2 {
			return nil, runtime.NewValueError(parser.Span{}, "replace requires 2 arguments")
		}
		return strings.ReplaceAll(runtime.ToString(v), runtime.ToString(args.Positional[0]), runtime.ToString(args.Positional[1])), nil
	})
	r.Register("replace_first", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		if len(args.Positional) < 2 {
			return nil, runtime.NewValueError(parser.Span{}, "replace_first requires 2 arguments")
		}
		return strings.Replace(runtime.ToString(v), runtime.ToString(args.Positional[0]), runtime.ToString(args.Positional[1]), 1), nil
	})
	r.Register("truncate", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		n := 50
		if arg, ok := args.Arg(0); ok {
			iv, err := runtime.ToInt64(arg, ctx.Limits().MaxNumberString)
			if err != nil {
				return nil, err
			}
			n = int(iv)
		}
		ellipsis := "..."
		if arg, ok := args.Arg(1); ok {
			ellipsis = runtime.ToString(arg)
		}
		runes := []rune(s)
		if len(runes) <= n {
			return s, nil
		}
		cut := n - len([]rune(ellipsis))
		if cut < 0 {
			cut = 0
		}
		return string(runes[:cut]) + ellipsis, nil
	})
	r.Register("truncatewords", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		n := 15
		if arg, ok := args.Arg(0); ok {
			iv, err := runtime.ToInt64(arg, ctx.Limits().MaxNumberString)
			if err != nil {
				return nil, err
			}
			n = int(iv)
		}
		ellipsis := "..."
		if arg, ok := args.Arg(1); ok {
			ellipsis = runtime.ToString(arg)
		}
		words := strings.Fields(s)
		if len(words) <= n {
			return s, nil
		}
		return strings.Join(words[:n], " ") + ellipsis, nil
	})
	r.Register("split", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		sep, _ := args.Arg(0)
		parts := strings.Split(runtime.ToString(v), runtime.ToString(sep))
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	})
	r.Register("newline_to_br", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		s = strings.ReplaceAll(s, "\r\n", "<br />\n")
		s = strings.ReplaceAll(s, "\n", "<br />\n")
		return s, nil
	})
	r.Register("default", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		allowFalse := false
		if arg, ok := args.Kw("allow_false"); ok {
			allowFalse = runtime.Truthy(arg)
		}
		useDefault := runtime.IsUndefined(v) || v == nil
		if !useDefault && !allowFalse {
			if b, isBool := v.(bool); isBool && !b {
				useDefault = true
			}
		}
		if !useDefault {
			if s, isStr := v.(string); isStr && s == "" {
				useDefault = true
			}
		}
		if useDefault {
			fallback, _ := args.Arg(0)
			return fallback, nil
		}
		return v, nil
	})
	r.Register("json", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, runtime.NewValueError(parser.Span{}, "json: %v", err)
		}
		return string(data), nil
	})
}
