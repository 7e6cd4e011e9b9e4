package liquiderr

import (
	"testing"

	"github.com/liquidgo/liquid/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeErr struct {
	span parser.Span
	msg  string
}

func (e *fakeErr) Error() string            { return e.msg }
func (e *fakeErr) SpanValue() parser.Span   { return e.span }
func (e *fakeErr) RawMessage() string       { return e.msg }

func TestWrapFormatsSpecLocation(t *testing.T) {
	src := parser.NewSource("greeting.liquid", "hello\n{{ x | }}\nbye")
	err := &fakeErr{span: parser.Span{TemplateName: "greeting.liquid", ByteIndex: 9}, msg: "expected filter name"}

	wrapped := Wrap(err, src)
	le, ok := wrapped.(*Error)
	require.True(t, ok)
	assert.Equal(t, "expected filter name, on line 2 of greeting.liquid", le.Error())
}

func TestWrapPassesThroughUnrecognizedErrors(t *testing.T) {
	plain := &struct{ error }{}
	assert.Nil(t, Wrap(nil, nil))
	assert.Same(t, error(plain), Wrap(plain, nil))
}

func TestDetailedErrorIncludesGutterAndPointer(t *testing.T) {
	src := parser.NewSource("t", "a\nb\n{{ bad }}\nc\nd")
	err := &fakeErr{span: parser.Span{ByteIndex: 5}, msg: "boom"}

	le := Wrap(err, src).(*Error)
	detailed := le.DetailedError()
	assert.Contains(t, detailed, "boom, on line 3 of t")
	assert.Contains(t, detailed, "> "+"  3 | {{ bad }}")
	assert.Contains(t, detailed, "^")
}

func TestUnwrapReachesOriginalError(t *testing.T) {
	src := parser.NewSource("t", "x")
	original := &fakeErr{span: parser.Span{ByteIndex: 0}, msg: "oops"}
	le := Wrap(original, src).(*Error)
	assert.Same(t, error(original), le.Unwrap())
}
