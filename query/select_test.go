package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/catalog"
)

type widget struct {
	ID    int64
	Label string
}

var (
	widgetID = catalog.NewField[widget, int64]("id", catalog.FieldInt64,
		func(w *widget) int64 { return w.ID }, func(w *widget, v int64) { w.ID = v })
	widgetLabel = catalog.NewField[widget, string]("label", catalog.FieldText,
		func(w *widget) string { return w.Label }, func(w *widget, v string) { w.Label = v })
)

func TestProjDecode(t *testing.T) {
	t.Run("one coerces driver integers", func(t *testing.T) {
		p := One(Col(widgetID))
		v, err := p.decode([]any{int64(9)})
		require.NoError(t, err)
		require.Equal(t, int64(9), v)
	})

	t.Run("one narrows to declared type", func(t *testing.T) {
		p := One(Cast[int64, uint32](Col(widgetID), "INTEGER"))
		v, err := p.decode([]any{int64(9)})
		require.NoError(t, err)
		require.Equal(t, uint32(9), v)
	})

	t.Run("two builds tuples", func(t *testing.T) {
		p := Two(Col(widgetLabel), Col(widgetID))
		v, err := p.decode([]any{"bolt", int64(3)})
		require.NoError(t, err)
		require.Equal(t, Tuple2[string, int64]{A: "bolt", B: int64(3)}, v)
	})

	t.Run("three builds triples", func(t *testing.T) {
		p := Three(Col(widgetID), Col(widgetLabel), Lit(1.5))
		v, err := p.decode([]any{int64(1), "nut", 1.5})
		require.NoError(t, err)
		require.Equal(t, Tuple3[int64, string, float64]{A: 1, B: "nut", C: 1.5}, v)
	})

	t.Run("nil yields the zero value", func(t *testing.T) {
		p := One(Col(widgetLabel))
		v, err := p.decode([]any{nil})
		require.NoError(t, err)
		require.Equal(t, "", v)
	})

	t.Run("incompatible value fails", func(t *testing.T) {
		p := One(Col(widgetID))
		_, err := p.decode([]any{"not a number"})
		require.Error(t, err)
	})
}

func TestSelectBuilderShape(t *testing.T) {
	q := Select(One(Col(widgetLabel))).
		From("widgets").
		Where(Gt(Col(widgetID), Lit(int64(5)))).
		OrderBy(Col(widgetLabel).Any(), ast.OrderDesc).
		Limit(Lit(int64(3)))

	sel, ok := q.Node().(*ast.Select)
	require.True(t, ok)
	require.True(t, sel.TopLevel)
	require.Len(t, sel.Columns, 1)
	require.Equal(t, "widgets", sel.From.Name)
	require.NotNil(t, sel.Where)
	require.Len(t, sel.OrderBy, 1)
	require.Equal(t, ast.OrderDesc, sel.OrderBy[0].Dir)
	require.NotNil(t, sel.Limit)
}

func TestCompoundShape(t *testing.T) {
	a := Select(One(Col(widgetLabel))).From("widgets")
	b := Select(One(Col(widgetLabel))).From("widgets")

	c := UnionAll(a, b)
	op, ok := c.Node().(*ast.SetOp)
	require.True(t, ok)
	require.Equal(t, ast.SetUnionAll, op.Kind)

	v, err := c.Decode([]any{"bolt"})
	require.NoError(t, err)
	require.Equal(t, "bolt", v)
}

func TestCaseBuilder(t *testing.T) {
	e := NewCase[string]().
		When(Gt(Col(widgetID), Lit(int64(10))), Lit("big")).
		When(Gt(Col(widgetID), Lit(int64(5))), Lit("medium")).
		Else(Lit("small"))

	c, ok := e.Node().(*ast.Case)
	require.True(t, ok)
	require.Nil(t, c.Scrutinee)
	require.Len(t, c.Whens, 2)
	require.NotNil(t, c.Else)
}

func TestAssignments(t *testing.T) {
	a := Set(widgetLabel, Lit("renamed"))
	require.Equal(t, any(widgetLabel), a.Column.Accessor)
	require.IsType(t, &ast.Literal{}, a.Value)

	cols := Columns([]Assignment{a})
	require.Len(t, cols, 1)
	require.Same(t, a.Column, cols[0])
}
