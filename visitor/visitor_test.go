package visitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/visitor"
)

func TestInspect(t *testing.T) {
	tree := &ast.BoolExpr{
		Op: ast.BoolAnd,
		Left: &ast.Cmp{
			Op:    ast.CmpEq,
			Left:  &ast.Column{},
			Right: &ast.Literal{Value: int64(1)},
		},
		Right: &ast.IsNull{Expr: &ast.Column{}},
	}

	t.Run("visits every node", func(t *testing.T) {
		var count int
		visitor.Inspect(tree, func(ast.Node) bool { count++; return true })
		require.Equal(t, 6, count)
	})

	t.Run("false prunes the subtree", func(t *testing.T) {
		var count int
		visitor.Inspect(tree, func(n ast.Node) bool {
			count++
			_, isCmp := n.(*ast.Cmp)
			return !isCmp
		})
		// root, cmp (pruned), isnull, column under isnull
		require.Equal(t, 4, count)
	})
}

func TestCollectColumns(t *testing.T) {
	a, b := &ast.Column{}, &ast.Column{}
	tree := &ast.Cmp{Op: ast.CmpLt, Left: a, Right: &ast.Arith{
		Op:    ast.ArithAdd,
		Left:  b,
		Right: &ast.Literal{Value: int64(2)},
	}}

	cols := visitor.CollectColumns(tree)
	require.Equal(t, []*ast.Column{a, b}, cols)
}
