package bind_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
	"github.com/latticedb/sqlorm/query"
)

type user struct {
	ID   int64
	Name string
	Age  int64
}

var (
	userID = catalog.NewField[user, int64]("id", catalog.FieldInt64,
		func(u *user) int64 { return u.ID }, func(u *user, v int64) { u.ID = v })
	userName = catalog.NewField[user, string]("name", catalog.FieldText,
		func(u *user) string { return u.Name }, func(u *user, v string) { u.Name = v })
	userAge = catalog.NewField[user, int64]("age", catalog.FieldInt64,
		func(u *user) int64 { return u.Age }, func(u *user, v int64) { u.Age = v })
)

func newCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Register(catalog.MakeTable("users", (*user)(nil), []catalog.ColumnDescriptor{
		catalog.Col(userID, false, catalog.PrimaryKey()),
		catalog.Col(userName, false),
		catalog.Col(userAge, true),
	}))
	return cat
}

func TestWalkOrder(t *testing.T) {
	cat := newCatalog()

	t.Run("and with between", func(t *testing.T) {
		node := query.And(
			query.Eq(query.Col(userName), query.Lit("alice")),
			query.Between(query.Col(userAge), query.Lit(int64(18)), query.Lit(int64(65))),
		).Node()
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Equal(t, []any{"alice", int64(18), int64(65)}, args)
	})

	t.Run("in list", func(t *testing.T) {
		node := query.In(query.Col(userAge), query.Lit(int64(1)), query.Lit(int64(2))).Node()
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Equal(t, []any{int64(1), int64(2)}, args)
	})

	t.Run("select binds where before limit", func(t *testing.T) {
		q := query.Select(query.One(query.Col(userName))).
			From("users").
			Where(query.Gt(query.Col(userAge), query.Lit(int64(18)))).
			Limit(query.Lit(int64(10)))
		args, err := bind.Walk(q.Node(), cat)
		require.NoError(t, err)
		require.Equal(t, []any{int64(18), int64(10)}, args)
	})

	t.Run("implicit limit binds offset first", func(t *testing.T) {
		q := query.Select(query.One(query.Col(userName))).
			From("users").
			LimitOffsetImplicit(query.Lit(int64(20)), query.Lit(int64(10)))
		args, err := bind.Walk(q.Node(), cat)
		require.NoError(t, err)
		require.Equal(t, []any{int64(20), int64(10)}, args)
	})

	t.Run("columns contribute nothing", func(t *testing.T) {
		node := query.Eq(query.Col(userID), query.Col(userAge)).Node()
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Empty(t, args)
	})

	t.Run("subquery literals after outer ones", func(t *testing.T) {
		sub := query.Select(query.One(query.Col(userID))).
			From("users").
			Where(query.Gt(query.Col(userAge), query.Lit(int64(30))))
		node := query.And(
			query.Eq(query.Col(userName), query.Lit("bob")),
			query.InSelect(query.Col(userID), sub),
		).Node()
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Equal(t, []any{"bob", int64(30)}, args)
	})
}

func TestWalkTypeChecks(t *testing.T) {
	cat := newCatalog()

	t.Run("mismatched literal against typed column", func(t *testing.T) {
		// The query layer's generics normally rule this out; the walker
		// still guards hand-built trees.
		node := &ast.Cmp{
			Op:    ast.CmpEq,
			Left:  &ast.Column{Accessor: userAge},
			Right: &ast.Literal{Value: "not a number"},
		}
		_, err := bind.Walk(node, cat)
		require.Error(t, err)
		var bf *errs.BindFailed
		require.True(t, errors.As(err, &bf))
	})

	t.Run("between bounds checked against column type", func(t *testing.T) {
		node := &ast.Between{
			Expr: &ast.Column{Accessor: userAge},
			Low:  &ast.Literal{Value: int64(1)},
			High: &ast.Literal{Value: "ten"},
		}
		_, err := bind.Walk(node, cat)
		require.Error(t, err)
	})

	t.Run("null literal always binds", func(t *testing.T) {
		node := query.Eq(query.Col(userName), query.Null[string]()).Node()
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Equal(t, []any{nil}, args)
	})

	t.Run("untyped context skips the check", func(t *testing.T) {
		node := &ast.Arith{
			Op:    ast.ArithAdd,
			Left:  &ast.Literal{Value: int64(1)},
			Right: &ast.Literal{Value: int64(2)},
		}
		args, err := bind.Walk(node, cat)
		require.NoError(t, err)
		require.Equal(t, []any{int64(1), int64(2)}, args)
	})
}

func TestToDriverValue(t *testing.T) {
	t.Run("integers widen", func(t *testing.T) {
		v, err := bind.ToDriverValue(int32(7), catalog.FieldInt32)
		require.NoError(t, err)
		require.Equal(t, int64(7), v)
	})

	t.Run("nil pointer binds null", func(t *testing.T) {
		var p *string
		v, err := bind.ToDriverValue(p, catalog.FieldText)
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("pointer dereferences", func(t *testing.T) {
		s := "hi"
		v, err := bind.ToDriverValue(&s, catalog.FieldText)
		require.NoError(t, err)
		require.Equal(t, "hi", v)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		_, err := bind.ToDriverValue("text", catalog.FieldInt64)
		require.Error(t, err)
	})
}
