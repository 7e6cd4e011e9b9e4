package runtime

import "strings"

// Translations is the external collaborator a `translate` tag dispatches to
// (spec §4.4: "a translations object resolved from context variable
// `translations`"), grounded on gettext's NullTranslations/GNUTranslations
// protocol (original_source/liquid/extra/tags/translate_tag.py). A host
// application binds its own catalog-backed implementation into the render
// data under the key "translations"; this package only owns the dispatch
// logic and a no-op fallback.
type Translations interface {
	Gettext(message string) string
	Ngettext(singular, plural string, n int64) string
	Pgettext(context, message string) string
	Npgettext(context, singular, plural string, n int64) string
}

// NullTranslations is the Translations used when no `translations` context
// variable is bound: it never translates, only picks singular vs. plural by
// count and drops the message context, matching gettext.NullTranslations.
type NullTranslations struct{}

func (NullTranslations) Gettext(message string) string { return message }

func (NullTranslations) Ngettext(singular, plural string, n int64) string {
	return SelectPlural(float64(n), singular, plural)
}

func (NullTranslations) Pgettext(_, message string) string { return message }

func (NullTranslations) Npgettext(_, singular, plural string, n int64) string {
	return SelectPlural(float64(n), singular, plural)
}

// resolveTranslations looks up the "translations" context variable (spec
// §4.4); anything not satisfying the Translations interface, including an
// absent binding, falls back to NullTranslations.
func resolveTranslations(ctx *Context) Translations {
	if v, ok := ctx.Get("translations"); ok {
		if t, ok := v.(Translations); ok {
			return t
		}
	}
	return NullTranslations{}
}

// Interpolate fills `%(name)s`-style placeholders in a translate message
// body (grounded on original_source/liquid/messages.py, spec's supplemented
// `translate`/`plural` tags). Unknown placeholders are left verbatim rather
// than erroring, matching the original's tolerant behavior for messages
// that were translated before a binding was added.
func Interpolate(body string, bindings map[string]any) string {
	var sb strings.Builder
	i := 0
	for i < len(body) {
		if body[i] == '%' && i+1 < len(body) && body[i+1] == '(' {
			end := strings.IndexByte(body[i+2:], ')')
			if end >= 0 && i+2+end+1 < len(body) && body[i+2+end+1] == 's' {
				name := body[i+2 : i+2+end]
				if v, ok := bindings[name]; ok {
					sb.WriteString(ToString(v))
				} else {
					sb.WriteString(body[i : i+2+end+2])
				}
				i += 2 + end + 2
				continue
			}
		}
		sb.WriteByte(body[i])
		i++
	}
	return sb.String()
}

// SelectPlural picks the singular or plural message body by count, the
// simple two-form English/Romance-language rule the original falls back to
// when no locale-specific plural-rule table is configured: count == 1 is
// singular, everything else (including negative and fractional counts) is
// plural.
func SelectPlural(count float64, singular, plural string) string {
	if count == 1 || plural == "" {
		return singular
	}
	return plural
}
