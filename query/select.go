package query

import (
	"github.com/latticedb/sqlorm/ast"
)

// Tuple2 and Tuple3 are the multi-column projection result shapes.
// Two and Three project expressions into these.
type Tuple2[A, B any] struct {
	A A
	B B
}

type Tuple3[A, B, C any] struct {
	A A
	B B
	C C
}

// Proj is a projection of one or more expressions into a single result
// row type V: the column list to put in SELECT, plus the decoder that
// turns one row's worth of scanned values back into V.
type Proj[V any] struct {
	nodes  []ast.Node
	decode func([]any) (V, error)
}

// One projects a single expression; the natural case for scalar
// queries like count()/sum() or a single mapped column.
func One[V any](e Expr[V]) Proj[V] {
	return Proj[V]{
		nodes:  []ast.Node{e.node},
		decode: func(vals []any) (V, error) { return coerceValue[V](vals[0]) },
	}
}

// Two projects a pair of expressions into a Tuple2.
func Two[A, B any](a Expr[A], b Expr[B]) Proj[Tuple2[A, B]] {
	return Proj[Tuple2[A, B]]{
		nodes: []ast.Node{a.node, b.node},
		decode: func(vals []any) (Tuple2[A, B], error) {
			var out Tuple2[A, B]
			av, err := coerceValue[A](vals[0])
			if err != nil {
				return out, err
			}
			bv, err := coerceValue[B](vals[1])
			if err != nil {
				return out, err
			}
			out.A, out.B = av, bv
			return out, nil
		},
	}
}

// Three projects a triple of expressions into a Tuple3.
func Three[A, B, C any](a Expr[A], b Expr[B], c Expr[C]) Proj[Tuple3[A, B, C]] {
	return Proj[Tuple3[A, B, C]]{
		nodes: []ast.Node{a.node, b.node, c.node},
		decode: func(vals []any) (Tuple3[A, B, C], error) {
			var out Tuple3[A, B, C]
			av, err := coerceValue[A](vals[0])
			if err != nil {
				return out, err
			}
			bv, err := coerceValue[B](vals[1])
			if err != nil {
				return out, err
			}
			cv, err := coerceValue[C](vals[2])
			if err != nil {
				return out, err
			}
			out.A, out.B, out.C = av, bv, cv
			return out, nil
		},
	}
}

// SelectQuery is a mutable, fluent SELECT builder. Every method mutates
// and returns the same receiver, so chains read top to bottom in clause
// order; the zero value is never useful on its own, start from Select.
type SelectQuery[V any] struct {
	sel    *ast.Select
	decode func([]any) (V, error)
}

// Select starts a new query projecting proj's columns.
func Select[V any](proj Proj[V]) *SelectQuery[V] {
	return &SelectQuery[V]{
		sel:    &ast.Select{Columns: proj.nodes},
		decode: proj.decode,
	}
}

// From sets the query's FROM table.
func (q *SelectQuery[V]) From(table string) *SelectQuery[V] {
	q.sel.From = &ast.TableRef{Name: table}
	return q
}

// FromAs sets the query's FROM table under an explicit alias.
func (q *SelectQuery[V]) FromAs(table, alias string) *SelectQuery[V] {
	q.sel.From = &ast.TableRef{Name: table, Alias: alias}
	return q
}

func (q *SelectQuery[V]) join(kind ast.JoinKind, table, alias string, on Expr[bool]) *SelectQuery[V] {
	q.sel.Joins = append(q.sel.Joins, &ast.Join{
		Kind:   kind,
		Target: &ast.TableRef{Name: table, Alias: alias},
		On:     on.node,
	})
	return q
}

// Join, LeftJoin, and JoinUsing attach a join clause; alias may be
// empty for an unaliased join target.
func (q *SelectQuery[V]) Join(table, alias string, on Expr[bool]) *SelectQuery[V] {
	return q.join(ast.JoinInner, table, alias, on)
}

func (q *SelectQuery[V]) LeftJoin(table, alias string, on Expr[bool]) *SelectQuery[V] {
	return q.join(ast.JoinLeft, table, alias, on)
}

func (q *SelectQuery[V]) JoinUsing(table, alias string, columns ...string) *SelectQuery[V] {
	q.sel.Joins = append(q.sel.Joins, &ast.Join{
		Kind:   ast.JoinInner,
		Target: &ast.TableRef{Name: table, Alias: alias},
		Using:  columns,
	})
	return q
}

// Where sets the query's WHERE predicate, replacing any previous one.
// Combine multiple conditions with And/Or before calling Where.
func (q *SelectQuery[V]) Where(cond Expr[bool]) *SelectQuery[V] {
	q.sel.Where = cond.node
	return q
}

// Distinct marks the query SELECT DISTINCT.
func (q *SelectQuery[V]) Distinct() *SelectQuery[V] {
	q.sel.Distinct = true
	return q
}

// GroupBy sets the GROUP BY list.
func (q *SelectQuery[V]) GroupBy(exprs ...AnyExpr) *SelectQuery[V] {
	for _, e := range exprs {
		q.sel.GroupBy = append(q.sel.GroupBy, e.node)
	}
	return q
}

// Having sets the HAVING predicate (only meaningful alongside GroupBy).
func (q *SelectQuery[V]) Having(cond Expr[bool]) *SelectQuery[V] {
	q.sel.Having = cond.node
	return q
}

// OrderBy appends one ORDER BY term.
func (q *SelectQuery[V]) OrderBy(e AnyExpr, dir ast.OrderDir) *SelectQuery[V] {
	q.sel.OrderBy = append(q.sel.OrderBy, ast.OrderTerm{Expr: e.node, Dir: dir})
	return q
}

// OrderByCollate appends an ORDER BY term with an explicit collation.
func (q *SelectQuery[V]) OrderByCollate(e AnyExpr, collation string, dir ast.OrderDir) *SelectQuery[V] {
	q.sel.OrderBy = append(q.sel.OrderBy, ast.OrderTerm{Expr: e.node, Collation: collation, Dir: dir})
	return q
}

// Limit sets a bare LIMIT <count>.
func (q *SelectQuery[V]) Limit(count Expr[int64]) *SelectQuery[V] {
	q.sel.Limit = &ast.Limit{Count: count.node}
	return q
}

// LimitOffset sets LIMIT <count> OFFSET <offset>.
func (q *SelectQuery[V]) LimitOffset(count, offset Expr[int64]) *SelectQuery[V] {
	q.sel.Limit = &ast.Limit{Count: count.node, Offset: offset.node, HasOffset: true}
	return q
}

// LimitOffsetImplicit sets the comma form LIMIT <offset>, <count>.
func (q *SelectQuery[V]) LimitOffsetImplicit(offset, count Expr[int64]) *SelectQuery[V] {
	q.sel.Limit = &ast.Limit{Count: count.node, Offset: offset.node, HasOffset: true, OffsetIsImplicit: true}
	return q
}

// Node returns the underlying AST node for the serializer and bind
// walker, marked top-level.
func (q *SelectQuery[V]) Node() ast.Node {
	top := *q.sel
	top.TopLevel = true
	return &top
}

// Decode turns one row's scanned values into V.
func (q *SelectQuery[V]) Decode(vals []any) (V, error) {
	return q.decode(vals)
}

// CompoundQuery is the result of Union/UnionAll/Intersect/Except. It
// intentionally exposes only Node and Decode: a compound statement's
// operands already carry their own WHERE/ORDER BY/LIMIT, and SQLite
// itself only allows one ORDER BY/LIMIT on the compound as a whole, so
// there is no Where/GroupBy/OrderBy method to call here by construction
// rather than by a runtime check.
type CompoundQuery[V any] struct {
	node   ast.Node
	decode func([]any) (V, error)
}

func compound[V any](kind ast.SetOpKind, a, b *SelectQuery[V]) *CompoundQuery[V] {
	return &CompoundQuery[V]{
		node:   &ast.SetOp{Kind: kind, Left: a.sel, Right: b.sel},
		decode: a.decode,
	}
}

// Union, UnionAll, Intersect, and Except combine two queries of the
// same result shape with a SQL compound operator.
func Union[V any](a, b *SelectQuery[V]) *CompoundQuery[V] {
	return compound(ast.SetUnion, a, b)
}

func UnionAll[V any](a, b *SelectQuery[V]) *CompoundQuery[V] {
	return compound(ast.SetUnionAll, a, b)
}

func Intersect[V any](a, b *SelectQuery[V]) *CompoundQuery[V] {
	return compound(ast.SetIntersect, a, b)
}

func Except[V any](a, b *SelectQuery[V]) *CompoundQuery[V] {
	return compound(ast.SetExcept, a, b)
}

// Node returns the underlying AST node for the serializer.
func (q *CompoundQuery[V]) Node() ast.Node { return q.node }

// Decode turns one row's scanned values into V.
func (q *CompoundQuery[V]) Decode(vals []any) (V, error) { return q.decode(vals) }
