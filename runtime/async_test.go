package runtime

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/liquidgo/liquid/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncResultSetThenResult(t *testing.T) {
	r := NewAsyncResult[int](context.Background())
	go r.Set(42, nil)
	v, err := r.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestAsyncResultContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewAsyncResult[int](ctx)
	cancel()
	_, err := r.Result()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsyncResultSetIsIdempotent(t *testing.T) {
	r := NewAsyncResult[int](context.Background())
	r.Set(1, nil)
	r.Set(2, nil)
	v, err := r.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

type fakeLoader struct {
	calls     atomic.Int32
	templates map[string]string
}

func (f *fakeLoader) Load(name string) (*parser.Template, error) {
	f.calls.Add(1)
	src, ok := f.templates[name]
	if !ok {
		return nil, &TemplateNotFoundError{Name: name}
	}
	return &parser.Template{Name: name, Nodes: []parser.Node{&parser.ContentNode{Text: src}}}, nil
}

func TestPrefetchTemplatesLoadsLiteralIncludesConcurrently(t *testing.T) {
	loader := &fakeLoader{templates: map[string]string{
		"header.liquid": "H",
		"footer.liquid":  "F",
	}}
	name := func(s string) parser.Expression { return &parser.StringLiteral{Value: s} }
	nodes := []parser.Node{
		&parser.IncludeNode{Template: name("header.liquid")},
		&parser.IfNode{Branches: []parser.IfBranch{
			{Body: []parser.Node{&parser.RenderNode{Template: name("footer.liquid")}}},
		}},
	}

	results := PrefetchTemplates(context.Background(), loader, nodes)
	require.Len(t, results, 2)

	header, err := results["header.liquid"].Result()
	require.NoError(t, err)
	assert.Equal(t, "header.liquid", header.Name)

	footer, err := results["footer.liquid"].Result()
	require.NoError(t, err)
	assert.Equal(t, "footer.liquid", footer.Name)

	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestPrefetchTemplatesSkipsDynamicNames(t *testing.T) {
	loader := &fakeLoader{templates: map[string]string{}}
	nodes := []parser.Node{
		&parser.IncludeNode{Template: parser.NewPath([]parser.PathSegment{{Kind: parser.SegIdent, Name: "page"}}, parser.Span{})},
	}
	results := PrefetchTemplates(context.Background(), loader, nodes)
	assert.Empty(t, results)
}

func TestPrefetchTemplatesNilLoaderIsNoop(t *testing.T) {
	nodes := []parser.Node{&parser.IncludeNode{Template: &parser.StringLiteral{Value: "a.liquid"}}}
	results := PrefetchTemplates(context.Background(), nil, nodes)
	assert.Empty(t, results)
}

func TestPrefetchTemplatesSurfacesLoadError(t *testing.T) {
	loader := &fakeLoader{templates: map[string]string{}}
	nodes := []parser.Node{&parser.IncludeNode{Template: &parser.StringLiteral{Value: "missing.liquid"}}}
	results := PrefetchTemplates(context.Background(), loader, nodes)
	require.Contains(t, results, "missing.liquid")
	_, err := results["missing.liquid"].Result()
	require.Error(t, err)
}
