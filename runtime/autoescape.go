package runtime

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// reControlChars matches the control characters CSS/JSON string escaping
// must neutralize.
var reControlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// EscapeContext selects which markup dialect Escape targets.
type EscapeContext string

const (
	EscapeContextHTML  EscapeContext = "html"
	EscapeContextXHTML EscapeContext = "xhtml"
	EscapeContextXML   EscapeContext = "xml"
	EscapeContextJS    EscapeContext = "js"
	EscapeContextCSS   EscapeContext = "css"
	EscapeContextURL   EscapeContext = "url"
	EscapeContextJSON  EscapeContext = "json"
	EscapeContextNone  EscapeContext = "none"
)

// AutoEscapeConfig configures an AutoEscaper: which context to use by
// default, and which one to switch to for a template whose name carries a
// recognized extension (spec §3 Environment "autoescape").
type AutoEscapeConfig struct {
	Enabled    bool
	Context    EscapeContext
	Extensions map[string]EscapeContext
}

// DefaultAutoEscapeConfig escapes HTML by default, with the common
// extension-to-context table a multi-format host would want.
func DefaultAutoEscapeConfig() *AutoEscapeConfig {
	return &AutoEscapeConfig{
		Enabled: true,
		Context: EscapeContextHTML,
		Extensions: map[string]EscapeContext{
			".html":  EscapeContextHTML,
			".htm":   EscapeContextHTML,
			".xhtml": EscapeContextXHTML,
			".xml":   EscapeContextXML,
			".js":    EscapeContextJS,
			".css":   EscapeContextCSS,
			".json":  EscapeContextJSON,
		},
	}
}

// AutoEscaper applies autoescape (spec §4.2/§4.6 `to_liquid_string(v,
// autoescape)`) to a value about to be written as `{{ }}`/`{% echo %}`
// output. A Safe value always passes through unescaped.
type AutoEscaper struct {
	config *AutoEscapeConfig
}

func NewAutoEscaper(config *AutoEscapeConfig) *AutoEscaper {
	if config == nil {
		config = DefaultAutoEscapeConfig()
	}
	return &AutoEscaper{config: config}
}

// DetectContext picks the escape context for a template by its name's
// extension, falling back to the configured default.
func (ae *AutoEscaper) DetectContext(templateName string) EscapeContext {
	for ext, context := range ae.config.Extensions {
		if strings.HasSuffix(strings.ToLower(templateName), ext) {
			return context
		}
	}
	return ae.config.Context
}

// Escape stringifies v and escapes it for context, unless v is already Safe
// or escaping is disabled.
func (ae *AutoEscaper) Escape(v any, context EscapeContext) string {
	if _, ok := v.(Safe); ok {
		return ToString(v)
	}
	if !ae.config.Enabled || context == EscapeContextNone {
		return ToString(v)
	}

	str := ToString(v)
	switch context {
	case EscapeContextHTML:
		return html.EscapeString(str)
	case EscapeContextXHTML:
		return strings.ReplaceAll(html.EscapeString(str), "'", "&#39;")
	case EscapeContextXML:
		return escapeXML(str)
	case EscapeContextJS:
		return escapeJS(str)
	case EscapeContextCSS:
		return escapeCSS(str)
	case EscapeContextURL:
		return url.QueryEscape(str)
	case EscapeContextJSON:
		return escapeJSON(str)
	default:
		return html.EscapeString(str)
	}
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

func escapeJS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "<", "\\u003c")
	s = strings.ReplaceAll(s, ">", "\\u003e")
	s = strings.ReplaceAll(s, "&", "\\u0026")
	return s
}

func escapeCSS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\A ")
	s = strings.ReplaceAll(s, "\r", "\\D ")
	s = strings.ReplaceAll(s, "\t", "\\9 ")
	return reControlChars.ReplaceAllStringFunc(s, func(match string) string {
		const hex = "0123456789ABCDEF"
		return "\\" + string(hex[match[0]>>4]) + string(hex[match[0]&0x0F]) + " "
	})
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return reControlChars.ReplaceAllStringFunc(s, func(match string) string {
		const hex = "0123456789ABCDEF"
		return "\\u00" + string(hex[match[0]>>4]) + string(hex[match[0]&0x0F])
	})
}
