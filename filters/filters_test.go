package filters

import (
	"testing"

	"github.com/liquidgo/liquid/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx() *runtime.Context {
	return runtime.NewContext(nil, nil, runtime.DefaultLimits(), runtime.UndefinedLenient)
}

func call(t *testing.T, r *Registry, name string, input any, positional ...any) any {
	t.Helper()
	fn, ok := r.Get(name)
	require.True(t, ok, "filter %q not registered", name)
	out, err := fn(input, runtime.FilterArgs{Positional: positional, Keyword: map[string]any{}}, newCtx())
	require.NoError(t, err)
	return out
}

func TestStringFilters(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "HELLO", call(t, r, "upcase", "hello"))
	assert.Equal(t, "hello", call(t, r, "downcase", "HELLO"))
	assert.Equal(t, "Hello world", call(t, r, "capitalize", "HELLO WORLD"))
	assert.Equal(t, "hi", call(t, r, "strip", "  hi  "))
	assert.Equal(t, "bb", call(t, r, "remove", "aabab", "a"))
	assert.Equal(t, "abab", call(t, r, "remove", "aXbXaXb", "X"))
	assert.Equal(t, "hiya", call(t, r, "append", "hi", "ya"))
	assert.Equal(t, "hithere", call(t, r, "prepend", "there", "hi"))
	assert.Equal(t, "a-b", call(t, r, "replace", "a b", " ", "-"))
	assert.Equal(t, []any{"a", "b", "c"}, call(t, r, "split", "a,b,c", ","))
}

func TestTruncateFilters(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "ab...", call(t, r, "truncate", "abcdef", int64(5)))
	assert.Equal(t, "one two...", call(t, r, "truncatewords", "one two three", int64(2)))
}

func TestDefaultFilter(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "x", call(t, r, "default", "", "x"))
	assert.Equal(t, "y", call(t, r, "default", nil, "y"))
	assert.Equal(t, "z", call(t, r, "default", false, "z"))
}

func TestNumericFilters(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, float64(5), call(t, r, "plus", float64(2), float64(3)))
	assert.Equal(t, float64(-1), call(t, r, "minus", float64(2), float64(3)))
	assert.Equal(t, float64(6), call(t, r, "times", float64(2), float64(3)))
	assert.Equal(t, int64(2), call(t, r, "divided_by", int64(7), int64(3)))
	assert.Equal(t, float64(1), call(t, r, "modulo", float64(7), float64(3)))
	assert.Equal(t, float64(3), call(t, r, "abs", float64(-3)))
	assert.Equal(t, int64(4), call(t, r, "ceil", float64(3.2)))
	assert.Equal(t, int64(3), call(t, r, "floor", float64(3.8)))
	assert.Equal(t, int64(4), call(t, r, "round", float64(3.5)))
	assert.Equal(t, float64(5), call(t, r, "at_least", float64(3), float64(5)))
	assert.Equal(t, float64(3), call(t, r, "at_most", float64(3), float64(5)))
}

func TestDividedByDivisionByZero(t *testing.T) {
	r := NewRegistry()
	fn, ok := r.Get("divided_by")
	require.True(t, ok)
	_, err := fn(float64(1), runtime.FilterArgs{Positional: []any{float64(0)}}, newCtx())
	require.Error(t, err)
}

func TestCollectionFilters(t *testing.T) {
	r := NewRegistry()
	items := []any{"b", "a", "c"}
	assert.Equal(t, int64(3), call(t, r, "size", items))
	assert.Equal(t, "b", call(t, r, "first", items))
	assert.Equal(t, "c", call(t, r, "last", items))
	assert.Equal(t, []any{"c", "a", "b"}, call(t, r, "reverse", items))
	assert.Equal(t, "b, a, c", call(t, r, "join", items, ", "))
	assert.Equal(t, []any{"a", "b", "c"}, call(t, r, "sort", items))

	dict := []any{
		map[string]any{"name": "beta", "score": float64(2)},
		map[string]any{"name": "alpha", "score": float64(5)},
	}
	assert.Equal(t, []any{"beta", "alpha"}, call(t, r, "map", dict, "name"))
	assert.Equal(t, float64(7), call(t, r, "sum", dict, "score"))

	filtered := call(t, r, "where", dict, "name", "alpha")
	assert.Equal(t, []any{dict[1]}, filtered)
}

func TestSliceFilter(t *testing.T) {
	r := NewRegistry()
	items := []any{"a", "b", "c", "d", "e"}
	assert.Equal(t, []any{"b", "c"}, call(t, r, "slice", items, int64(1), int64(2)))
	assert.Equal(t, []any{"e"}, call(t, r, "slice", items, int64(-1)))
}

func TestCompactAndConcat(t *testing.T) {
	r := NewRegistry()
	items := []any{"a", nil, "b"}
	assert.Equal(t, []any{"a", "b"}, call(t, r, "compact", items))
	assert.Equal(t, []any{"a", "b"}, call(t, r, "concat", []any{"a"}, []any{"b"}))
}

func TestHTMLFilters(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, runtime.Safe("&lt;b&gt;hi&lt;/b&gt;"), call(t, r, "escape", "<b>hi</b>"))
	assert.Equal(t, runtime.Safe("hi"), call(t, r, "strip_html", "<p>hi</p>"))
	assert.Equal(t, "a+b", call(t, r, "url_encode", "a b"))
	assert.Equal(t, "a b", call(t, r, "url_decode", "a%20b"))
	assert.Equal(t, int64(2), call(t, r, "number_of_words", "hi there"))
}

func TestRegistryNamesIncludesOneFilterPerFamily(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	assert.Contains(t, names, "upcase")
	assert.Contains(t, names, "plus")
	assert.Contains(t, names, "join")
	assert.Contains(t, names, "escape")
}
