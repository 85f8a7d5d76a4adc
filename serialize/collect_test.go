package serialize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/query"
	"github.com/latticedb/sqlorm/serialize"
)

func TestCollectTables(t *testing.T) {
	t.Run("from and joins", func(t *testing.T) {
		q := query.Select(query.One(query.Col(userName))).
			FromAs("users", "u").
			Join("orders", "o", query.Eq(query.ColIn("u", userID), query.ColIn("o", orderUserID)))
		got := serialize.CollectTables(q.Node())
		require.Equal(t, []ast.QualifiedName{
			{Table: "users", Alias: "u"},
			{Table: "orders", Alias: "o"},
		}, got)
	})

	t.Run("compound collects both operands", func(t *testing.T) {
		a := query.Select(query.One(query.Col(userName))).From("users")
		b := query.Select(query.One(query.Col(userName))).From("users")
		got := serialize.CollectTables(query.Union(a, b).Node())
		require.Len(t, got, 2)
	})

	t.Run("bare expression has no tables", func(t *testing.T) {
		require.Empty(t, serialize.CollectTables(query.Lit(int64(1)).Node()))
	})
}
