package filters

import (
	"sort"
	"strings"

	"github.com/liquidgo/liquid/runtime"
	"github.com/samber/lo"
)

// registerCollectionFilters ports teacher filters/collection_filters.go's
// array/hash filter set onto runtime's dynamic value model ([]any /
// map[string]any), using samber/lo for the set/slice operations the teacher
// hand-rolled with manual loops.
func registerCollectionFilters(r *Registry) {
	r.Register("size", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		switch x := v.(type) {
		case string:
			return int64(len([]rune(x))), nil
		case []any:
			return int64(len(x)), nil
		case map[string]any:
			return int64(len(x)), nil
		default:
			return int64(0), nil
		}
	})
	r.Register("first", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	})
	r.Register("last", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		if len(items) == 0 {
			return nil, nil
		}
		return items[len(items)-1], nil
	})
	r.Register("reverse", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		out := make([]any, len(items))
		for i, item := range items {
			out[len(items)-1-i] = item
		}
		return out, nil
	})
	r.Register("join", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		sep := " "
		if arg, ok := args.Arg(0); ok {
			sep = runtime.ToString(arg)
		}
		items := toItems(v)
		parts := lo.Map(items, func(item any, _ int) string { return runtime.ToString(item) })
		return strings.Join(parts, sep), nil
	})
	r.Register("uniq", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		return lo.UniqBy(items, func(item any) string { return runtime.ToString(item) }), nil
	})
	r.Register("compact", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		return lo.Filter(items, func(item any, _ int) bool { return !runtime.IsUndefined(item) && item != nil }), nil
	})
	r.Register("concat", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		argVal, _ := args.Arg(0)
		other := toItems(argVal)
		return append(append([]any{}, items...), other...), nil
	})
	r.Register("sum", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		var prop string
		if arg, ok := args.Arg(0); ok {
			prop = runtime.ToString(arg)
		}
		var total float64
		for _, item := range items {
			target := item
			if prop != "" {
				if m, ok := item.(map[string]any); ok {
					target = m[prop]
				}
			}
			f, err := runtime.ToFloat64(target, ctx.Limits().MaxNumberString)
			if err != nil {
				continue
			}
			total += f
		}
		return total, nil
	})
	r.Register("slice", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		offVal, _ := args.Arg(0)
		off, err := runtime.ToInt64(offVal, ctx.Limits().MaxNumberString)
		if err != nil {
			return nil, err
		}
		length := int64(1)
		if lenVal, ok := args.Arg(1); ok {
			length, err = runtime.ToInt64(lenVal, ctx.Limits().MaxNumberString)
			if err != nil {
				return nil, err
			}
		}
		n := int64(len(items))
		if off < 0 {
			off = n + off
		}
		if off < 0 {
			off = 0
		}
		if off >= n {
			return []any{}, nil
		}
		end := off + length
		if end > n {
			end = n
		}
		return items[off:end], nil
	})
	r.Register("map", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		argVal, _ := args.Arg(0)
		prop := runtime.ToString(argVal)
		return lo.Map(items, func(item any, _ int) any {
			if m, ok := item.(map[string]any); ok {
				return m[prop]
			}
			return nil
		}), nil
	})
	r.Register("where", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		items := toItems(v)
		argVal, _ := args.Arg(0)
		prop := runtime.ToString(argVal)
		hasTarget := false
		var target any
		if t, ok := args.Arg(1); ok {
			hasTarget = true
			target = t
		}
		return lo.Filter(items, func(item any, _ int) bool {
			m, ok := item.(map[string]any)
			if !ok {
				return false
			}
			val, present := m[prop]
			if !present {
				return false
			}
			if hasTarget {
				return runtime.Equal(val, target)
			}
			return runtime.Truthy(val)
		}), nil
	})
	r.Register("sort", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return sortItems(v, args, false), nil
	})
	r.Register("sort_natural", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return sortItems(v, args, true), nil
	})
}

func sortItems(v any, args runtime.FilterArgs, natural bool) []any {
	items := append([]any{}, toItems(v)...)
	var prop string
	if arg, ok := args.Arg(0); ok {
		prop = runtime.ToString(arg)
	}
	key := func(item any) string {
		target := item
		if prop != "" {
			if m, ok := item.(map[string]any); ok {
				target = m[prop]
			}
		}
		s := runtime.ToString(target)
		if natural {
			return strings.ToLower(s)
		}
		return s
	}
	sort.SliceStable(items, func(i, j int) bool { return key(items[i]) < key(items[j]) })
	return items
}

// toItems normalizes a dynamic value to a slice for the collection filters;
// a bare map is treated as a single-element collection, matching the
// teacher's "hashes are scalar from a filter's perspective" convention.
func toItems(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case nil:
		return nil
	case map[string]any:
		return []any{x}
	default:
		return []any{x}
	}
}
