// Package whitespace implements whitespace-only block suppression: a
// control-flow tag (if/unless/case/for) whose rendered output is entirely
// whitespace is dropped rather than forwarded, unless the caller opted out.
//
// Delimiter-adjacent trimming (`{{- -}}`, `{%- -%}`) is handled earlier, by
// the lexer trimming the adjacent CONTENT token exactly at lex time — this
// package only concerns the render-time check on a tag's buffered output.
package whitespace

import "strings"

// Writer is the minimal sink a buffered block flushes into; satisfied by the
// evaluator's output writer without this package needing to import runtime.
type Writer interface {
	WriteString(string) error
}

// IsBlank reports whether s contains only whitespace runes: the isspace()
// check a block's buffered output is tested against before forwarding.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Flush writes buffered into dst unless it is blank and forced is false.
// forced corresponds to a tag's own override ("forced_output"); none of the
// built-in control-flow tags set it today, but the parameter keeps the door
// open for one that does.
func Flush(dst Writer, buffered string, forced bool) error {
	if !forced && IsBlank(buffered) {
		return nil
	}
	return dst.WriteString(buffered)
}
