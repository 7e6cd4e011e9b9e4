package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathSegments(t *testing.T) {
	ep := NewExprParser(`a.b[0]["k"]`, "t", 0)
	path, err := ep.parsePath()
	require.NoError(t, err)
	require.Len(t, path.Segments, 4)
	assert.Equal(t, SegIdent, path.Segments[0].Kind)
	assert.Equal(t, "a", path.Segments[0].Name)
	assert.Equal(t, SegIdent, path.Segments[1].Kind)
	assert.Equal(t, SegIndex, path.Segments[2].Kind)
	assert.EqualValues(t, 0, path.Segments[2].Index)
	assert.Equal(t, SegString, path.Segments[3].Kind)
	assert.Equal(t, "k", path.Segments[3].Name)
	assert.Equal(t, `a.b[0]["k"]`, path.String())
}

func TestPathEqual(t *testing.T) {
	p1, err := NewExprParser("a.b", "t", 0).parsePath()
	require.NoError(t, err)
	p2, err := NewExprParser("a.b", "t", 0).parsePath()
	require.NoError(t, err)
	p3, err := NewExprParser("a.c", "t", 0).parsePath()
	require.NoError(t, err)
	assert.True(t, p1.Equal(p2))
	assert.False(t, p1.Equal(p3))
}

func TestParseTernaryFilteredExpression(t *testing.T) {
	ep := NewExprParser(`name | upcase if show else "default" || append: "!"`, "t", 0)
	expr, err := ep.ParseFilteredExpression()
	require.NoError(t, err)
	tern, ok := expr.(*TernaryFilteredExpression)
	require.True(t, ok)
	require.Len(t, tern.Filters, 1)
	assert.NotNil(t, tern.Alternative)
	require.Len(t, tern.TailFilters, 1)
	assert.Equal(t, "append", tern.TailFilters[0].Name)
}

func TestParseBooleanExpressionPrecedence(t *testing.T) {
	ep := NewExprParser(`a and b or not c`, "t", 0)
	expr, err := ep.ParseBooleanExpression()
	require.NoError(t, err)
	top, ok := expr.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, LogicalOr, top.Op)
	left, ok := top.Left.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, LogicalAnd, left.Op)
	assert.IsType(t, &NotExpr{}, top.Right)
}

func TestParseLoopExpressionContinueOffset(t *testing.T) {
	ep := NewExprParser(`x in coll offset: continue`, "t", 0)
	loop, err := ep.ParseLoopExpression()
	require.NoError(t, err)
	require.NotNil(t, loop.Offset)
	assert.True(t, loop.OffsetIsContinue())
}
