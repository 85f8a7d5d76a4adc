// Package query is the typed expression and query-builder layer:
// every exported constructor returns a query.Expr[V] for the precise
// Go type the expression produces, backed by an untyped ast.Node the
// serializer and bind walker can traverse with a single type switch.
package query

import (
	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/catalog"
)

// Expr is a typed handle on one SQL-producing AST node.
type Expr[V any] struct {
	node ast.Node
}

func wrap[V any](n ast.Node) Expr[V] { return Expr[V]{node: n} }

// Node exposes the underlying AST node to the serializer and bind
// walker; query package callers never need it directly.
func (e Expr[V]) Node() ast.Node { return e.node }

// AnyExpr is a type-erased expression, used where a clause accepts
// expressions of differing result types side by side (GROUP BY lists,
// ORDER BY terms).
type AnyExpr struct{ node ast.Node }

// Any erases V, keeping only the AST node.
func (e Expr[V]) Any() AnyExpr { return AnyExpr{node: e.node} }

// Number bounds the field types SUM/AVG/TOTAL/arithmetic accept.
type Number interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float64
}

func kindOfValue(v any) ast.ResultKind {
	switch v.(type) {
	case int, int8, int16, int32, int64:
		return ast.KindInt64
	case uint, uint8, uint16, uint32, uint64:
		return ast.KindUint64
	case float32, float64:
		return ast.KindFloat64
	case string:
		return ast.KindText
	case []byte:
		return ast.KindBlob
	case bool:
		return ast.KindBool
	default:
		return ast.KindInvalid
	}
}

// Lit builds a bindable literal.
func Lit[V any](v V) Expr[V] {
	return wrap[V](&ast.Literal{Value: any(v), Kind: kindOfValue(any(v))})
}

// Null builds a bindable NULL of the given result type.
func Null[V any]() Expr[V] {
	return wrap[V](&ast.Literal{Value: nil})
}

// Col references a mapped field by its catalog accessor.
func Col[T any, V any](f *catalog.Field[T, V]) Expr[V] {
	return wrap[V](&ast.Column{Accessor: f})
}

// ColIn references a mapped field qualified by an explicit table alias,
// for use when the same table is joined more than once.
func ColIn[T any, V any](alias string, f *catalog.Field[T, V]) Expr[V] {
	return wrap[V](&ast.Column{Accessor: f, Table: alias, TableSet: true})
}

// Rowid references the default rowid pseudo-column.
func Rowid() Expr[int64] {
	return wrap[int64](&ast.Column{IsRowid: true, Rowid: ast.RowidDefault})
}

// RowidIn references a table-qualified rowid pseudo-column of the given
// spelling (rowid/oid/_rowid_).
func RowidIn(alias string, name ast.RowidName) Expr[int64] {
	return wrap[int64](&ast.Column{IsRowid: true, Rowid: name, Table: alias, TableSet: true})
}

// As aliases an expression for use in a SELECT column list.
func As[V any](e Expr[V], name string) Expr[V] {
	return wrap[V](&ast.Alias{Expr: e.node, Name: name})
}

func cmpOp[V any](op ast.CmpOp, a, b Expr[V]) Expr[bool] {
	return wrap[bool](&ast.Cmp{Op: op, Left: a.node, Right: b.node})
}

// Eq, Ne, Lt, Le, Gt, Ge build comparison expressions.
func Eq[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpEq, a, b) }
func Ne[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpNe, a, b) }
func Lt[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpLt, a, b) }
func Le[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpLe, a, b) }
func Gt[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpGt, a, b) }
func Ge[V any](a, b Expr[V]) Expr[bool] { return cmpOp(ast.CmpGe, a, b) }

// And combines two or more boolean expressions with AND.
func And(a, b Expr[bool], rest ...Expr[bool]) Expr[bool] {
	out := wrap[bool](&ast.BoolExpr{Op: ast.BoolAnd, Left: a.node, Right: b.node})
	for _, r := range rest {
		out = wrap[bool](&ast.BoolExpr{Op: ast.BoolAnd, Left: out.node, Right: r.node})
	}
	return out
}

// Or combines two or more boolean expressions with OR.
func Or(a, b Expr[bool], rest ...Expr[bool]) Expr[bool] {
	out := wrap[bool](&ast.BoolExpr{Op: ast.BoolOr, Left: a.node, Right: b.node})
	for _, r := range rest {
		out = wrap[bool](&ast.BoolExpr{Op: ast.BoolOr, Left: out.node, Right: r.node})
	}
	return out
}

// Not negates a boolean expression.
func Not(a Expr[bool]) Expr[bool] {
	return wrap[bool](&ast.BoolExpr{Op: ast.BoolNot, Left: a.node})
}

// IsNull and IsNotNull build null-check expressions.
func IsNull[V any](a Expr[V]) Expr[bool] { return wrap[bool](&ast.IsNull{Expr: a.node}) }
func IsNotNull[V any](a Expr[V]) Expr[bool] {
	return wrap[bool](&ast.IsNull{Expr: a.node, Not: true})
}

func inOp[V any](not bool, e Expr[V], values []Expr[V]) Expr[bool] {
	nodes := make([]ast.Node, len(values))
	for i, v := range values {
		nodes[i] = v.node
	}
	return wrap[bool](&ast.In{Expr: e.node, Not: not, Values: nodes})
}

// In and NotIn build inline-list membership expressions.
func In[V any](e Expr[V], values ...Expr[V]) Expr[bool]    { return inOp(false, e, values) }
func NotIn[V any](e Expr[V], values ...Expr[V]) Expr[bool] { return inOp(true, e, values) }

// InSelect and NotInSelect build subquery membership expressions.
func InSelect[V any](e Expr[V], sub *SelectQuery[V]) Expr[bool] {
	return wrap[bool](&ast.In{Expr: e.node, Select: sub.sel})
}
func NotInSelect[V any](e Expr[V], sub *SelectQuery[V]) Expr[bool] {
	return wrap[bool](&ast.In{Expr: e.node, Not: true, Select: sub.sel})
}

// Between and NotBetween build range-check expressions.
func Between[V any](e, lo, hi Expr[V]) Expr[bool] {
	return wrap[bool](&ast.Between{Expr: e.node, Low: lo.node, High: hi.node})
}
func NotBetween[V any](e, lo, hi Expr[V]) Expr[bool] {
	return wrap[bool](&ast.Between{Expr: e.node, Low: lo.node, High: hi.node, Not: true})
}

// Like and NotLike build pattern-match expressions.
func Like(e, pattern Expr[string]) Expr[bool] {
	return wrap[bool](&ast.Like{Expr: e.node, Pattern: pattern.node})
}
func NotLike(e, pattern Expr[string]) Expr[bool] {
	return wrap[bool](&ast.Like{Expr: e.node, Pattern: pattern.node, Not: true})
}

// Exists and NotExists build subquery existence expressions.
func Exists[V any](sub *SelectQuery[V]) Expr[bool] {
	return wrap[bool](&ast.Exists{Select: sub.sel})
}
func NotExists[V any](sub *SelectQuery[V]) Expr[bool] {
	return wrap[bool](&ast.Exists{Select: sub.sel, Not: true})
}

// Cast renders CAST(e AS sqlType), changing the expression's declared
// Go result type from A to B.
func Cast[A, B any](e Expr[A], sqlType string) Expr[B] {
	return wrap[B](&ast.Cast{Expr: e.node, Type: sqlType})
}

// Collate attaches a named collation sequence to a text expression.
func Collate(e Expr[string], name string) Expr[string] {
	return wrap[string](&ast.Collate{Expr: e.node, Name: name})
}

// DistinctOf marks a single expression DISTINCT (for use as a bare
// SELECT DISTINCT <expr> projection; aggregate DISTINCT is set via
// CountDistinct).
func DistinctOf[V any](e Expr[V]) Expr[V] {
	return wrap[V](&ast.Distinct{Expr: e.node})
}

func arithOp[V Number](op ast.ArithOp, a, b Expr[V]) Expr[V] {
	return wrap[V](&ast.Arith{Op: op, Left: a.node, Right: b.node})
}

// Add, Sub, Mul, Div, Mod build arithmetic expressions.
func Add[V Number](a, b Expr[V]) Expr[V] { return arithOp(ast.ArithAdd, a, b) }
func Sub[V Number](a, b Expr[V]) Expr[V] { return arithOp(ast.ArithSub, a, b) }
func Mul[V Number](a, b Expr[V]) Expr[V] { return arithOp(ast.ArithMul, a, b) }
func Div[V Number](a, b Expr[V]) Expr[V] { return arithOp(ast.ArithDiv, a, b) }
func Mod[V Number](a, b Expr[V]) Expr[V] { return arithOp(ast.ArithMod, a, b) }

// Concat builds a || string concatenation expression.
func Concat(a, b Expr[string]) Expr[string] {
	return wrap[string](&ast.Arith{Op: ast.ArithConcat, Left: a.node, Right: b.node})
}

// Length, Abs, Lower, Upper, Coalesce are the core scalar functions
// every SQLite build carries; additional ones can be reached with Func.
func Length(e Expr[string]) Expr[int64] {
	return wrap[int64](&ast.ScalarFunc{Name: "length", Args: []ast.Node{e.node}})
}
func Abs[V Number](e Expr[V]) Expr[V] {
	return wrap[V](&ast.ScalarFunc{Name: "abs", Args: []ast.Node{e.node}})
}
func Lower(e Expr[string]) Expr[string] {
	return wrap[string](&ast.ScalarFunc{Name: "lower", Args: []ast.Node{e.node}})
}
func Upper(e Expr[string]) Expr[string] {
	return wrap[string](&ast.ScalarFunc{Name: "upper", Args: []ast.Node{e.node}})
}
func Coalesce[V any](exprs ...Expr[V]) Expr[V] {
	nodes := make([]ast.Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e.node
	}
	return wrap[V](&ast.ScalarFunc{Name: "coalesce", Args: nodes})
}

// Func builds an arbitrary scalar function call not covered above.
func Func[V any](name string, args ...AnyExpr) Expr[V] {
	nodes := make([]ast.Node, len(args))
	for i, a := range args {
		nodes[i] = a.node
	}
	return wrap[V](&ast.ScalarFunc{Name: name, Args: nodes})
}

// Count, CountAll, CountDistinct, Avg, Sum, Total, Min, Max,
// GroupConcat, GroupConcatSep build the supported aggregate functions.
func Count[T any, V any](f *catalog.Field[T, V]) Expr[int64] {
	return wrap[int64](&ast.AggregateExpr{Kind: ast.AggCount, Arg: &ast.Column{Accessor: f}})
}
func CountAll() Expr[int64] {
	return wrap[int64](&ast.AggregateExpr{Kind: ast.AggCountStar})
}
func CountDistinct[T any, V any](f *catalog.Field[T, V]) Expr[int64] {
	return wrap[int64](&ast.AggregateExpr{Kind: ast.AggCount, Arg: &ast.Column{Accessor: f}, Distinct: true})
}
func Avg[T any, V Number](f *catalog.Field[T, V]) Expr[float64] {
	return wrap[float64](&ast.AggregateExpr{Kind: ast.AggAvg, Arg: &ast.Column{Accessor: f}})
}
func Sum[T any, V Number](f *catalog.Field[T, V]) Expr[float64] {
	return wrap[float64](&ast.AggregateExpr{Kind: ast.AggSum, Arg: &ast.Column{Accessor: f}})
}
func Total[T any, V Number](f *catalog.Field[T, V]) Expr[float64] {
	return wrap[float64](&ast.AggregateExpr{Kind: ast.AggTotal, Arg: &ast.Column{Accessor: f}})
}
func Min[T any, V any](f *catalog.Field[T, V]) Expr[V] {
	return wrap[V](&ast.AggregateExpr{Kind: ast.AggMin, Arg: &ast.Column{Accessor: f}})
}
func Max[T any, V any](f *catalog.Field[T, V]) Expr[V] {
	return wrap[V](&ast.AggregateExpr{Kind: ast.AggMax, Arg: &ast.Column{Accessor: f}})
}
func GroupConcat[T any](f *catalog.Field[T, string]) Expr[string] {
	return wrap[string](&ast.AggregateExpr{Kind: ast.AggGroupConcat, Arg: &ast.Column{Accessor: f}})
}
func GroupConcatSep[T any](f *catalog.Field[T, string], sep Expr[string]) Expr[string] {
	return wrap[string](&ast.AggregateExpr{Kind: ast.AggGroupConcatSep, Arg: &ast.Column{Accessor: f}, Sep: sep.node})
}

// CaseBuilder accumulates WHEN/THEN arms for a CASE expression.
type CaseBuilder[V any] struct {
	scrutinee ast.Node
	whens     []ast.When
}

// NewCase starts a searched CASE (no scrutinee).
func NewCase[V any]() *CaseBuilder[V] { return &CaseBuilder[V]{} }

// CaseOf starts a simple CASE comparing scrutinee against each WHEN.
func CaseOf[S any, V any](scrutinee Expr[S]) *CaseBuilder[V] {
	return &CaseBuilder[V]{scrutinee: scrutinee.node}
}

// When appends one WHEN/THEN arm.
func (c *CaseBuilder[V]) When(cond Expr[bool], result Expr[V]) *CaseBuilder[V] {
	c.whens = append(c.whens, ast.When{Cond: cond.node, Result: result.node})
	return c
}

// Else finishes the CASE with an ELSE arm.
func (c *CaseBuilder[V]) Else(result Expr[V]) Expr[V] {
	return wrap[V](&ast.Case{Scrutinee: c.scrutinee, Whens: c.whens, Else: result.node})
}

// End finishes the CASE with no ELSE arm (NULL when nothing matches).
func (c *CaseBuilder[V]) End() Expr[V] {
	return wrap[V](&ast.Case{Scrutinee: c.scrutinee, Whens: c.whens})
}
