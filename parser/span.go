package parser

import "sort"

// Span is a diagnostic location: a template name plus a byte offset into its
// source. (line, column) is derived lazily via Source.Position (spec §3).
type Span struct {
	TemplateName string
	ByteIndex    int
}

// Source wraps a template's text with a memoized table of newline offsets so
// repeated Span.Position calls don't rescan from the start (grounded on
// original_source/liquid/span.py's lazy-line-cache behavior).
type Source struct {
	Name string
	Text string

	lineStarts []int // byte offset of the first byte of each line; computed once
}

func NewSource(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

func (s *Source) ensureLineStarts() {
	if s.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i := 0; i < len(s.Text); i++ {
		if s.Text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	s.lineStarts = starts
}

// Position converts a byte offset into a 1-indexed (line, column) pair.
func (s *Source) Position(byteIndex int) (line, column int) {
	s.ensureLineStarts()
	i := sort.Search(len(s.lineStarts), func(i int) bool { return s.lineStarts[i] > byteIndex })
	line = i // lineStarts[i-1] <= byteIndex < lineStarts[i]
	col := byteIndex - s.lineStarts[i-1] + 1
	return line, col
}
