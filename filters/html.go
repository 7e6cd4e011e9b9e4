package filters

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/liquidgo/liquid/parser"
	"github.com/liquidgo/liquid/runtime"
)

var stripHTMLTags = regexp.MustCompile(`<[^>]*>`)

// registerHTMLFilters ports teacher filters/html_filters.go's escaping
// filter set. No library in the dependency set covers HTML entity escaping
// or percent-encoding, so these route through the standard library's
// html/net-url packages rather than a pack dependency.
func registerHTMLFilters(r *Registry) {
	r.Register("escape", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return runtime.Safe(html.EscapeString(runtime.ToString(v))), nil
	})
	r.Register("escape_once", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		return runtime.Safe(html.EscapeString(html.UnescapeString(s))), nil
	})
	r.Register("strip_html", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s := runtime.ToString(v)
		return runtime.Safe(stripHTMLTags.ReplaceAllString(s, "")), nil
	})
	r.Register("url_encode", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return url.QueryEscape(runtime.ToString(v)), nil
	})
	r.Register("url_decode", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		s, err := url.QueryUnescape(runtime.ToString(v))
		if err != nil {
			return nil, runtime.NewValueError(parser.Span{}, "url_decode: %v", err)
		}
		return s, nil
	})
	r.Register("number_of_words", func(v any, args runtime.FilterArgs, ctx *runtime.Context) (any, error) {
		return int64(len(strings.Fields(runtime.ToString(v)))), nil
	})
}
