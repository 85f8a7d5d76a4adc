package query

import (
	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/catalog"
)

// Assignment is one "<column> = <value>" pair for an UPDATE SET list.
type Assignment struct {
	Column *ast.Column
	Value  ast.Node
}

// Set builds one assignment of a mapped field to an arbitrary
// expression (a literal, an arithmetic expression over the same row,
// a CASE, …).
func Set[T any, V any](f *catalog.Field[T, V], value Expr[V]) Assignment {
	return Assignment{Column: &ast.Column{Accessor: f}, Value: value.node}
}

// Columns returns the ast.Column targets of a set of assignments, in
// order, for CollectColumns-based multi-table validation.
func Columns(assignments []Assignment) []*ast.Column {
	out := make([]*ast.Column, len(assignments))
	for i, a := range assignments {
		out[i] = a.Column
	}
	return out
}
