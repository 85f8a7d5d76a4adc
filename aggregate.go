package sqlorm

import (
	"context"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/engine"
	"github.com/latticedb/sqlorm/query"
	"github.com/latticedb/sqlorm/serialize"
)

// aggregate runs "SELECT <agg> FROM '<T's table>' [WHERE …]" and returns
// the single result cell, with found reporting whether the engine
// produced a row at all.
func aggregate[T any](ctx context.Context, s *Storage, agg ast.Node, where []query.Expr[bool]) (raw any, found bool, err error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return nil, false, err
	}
	sel := &ast.Select{
		Columns: []ast.Node{agg},
		From:    &ast.TableRef{Name: t.Name},
		Where:   whereNode(where),
	}
	sqlText, err := serialize.Serialize(sel, s.cat, serialize.DefaultOptions)
	if err != nil {
		return nil, false, err
	}
	args, err := bind.Walk(sel, s.cat)
	if err != nil {
		return nil, false, err
	}
	stmt, release, err := s.prepareStmt(ctx, sqlText)
	if err != nil {
		return nil, false, err
	}
	defer release()
	defer stmt.Finalize()
	if err := stmt.Query(ctx, args...); err != nil {
		return nil, false, err
	}
	res, err := stmt.Step()
	if err != nil {
		return nil, false, err
	}
	if res == engine.StepDone {
		return nil, false, nil
	}
	if err := stmt.Rows().Scan(&raw); err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func column[T, V any](f *catalog.Field[T, V]) *ast.Column {
	return &ast.Column{Accessor: f}
}

// Count returns the number of rows matching the conditions; COUNT(*),
// so 0 on an empty table.
func Count[T any](ctx context.Context, s *Storage, where ...query.Expr[bool]) (int64, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: ast.AggCountStar}, where)
	if err != nil || !found || raw == nil {
		return 0, err
	}
	n, err := bind.ConvertValue(raw, catalog.FieldInt64)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// CountColumn returns COUNT(<column>): the number of matching rows
// where the column is non-NULL.
func CountColumn[T, V any](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (int64, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: ast.AggCount, Arg: column(f)}, where)
	if err != nil || !found || raw == nil {
		return 0, err
	}
	n, err := bind.ConvertValue(raw, catalog.FieldInt64)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// Avg returns AVG(<column>), 0 when no rows match.
func Avg[T any, V query.Number](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (float64, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: ast.AggAvg, Arg: column(f)}, where)
	if err != nil || !found || raw == nil {
		return 0, err
	}
	v, err := bind.ConvertValue(raw, catalog.FieldFloat64)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Sum returns SUM(<column>), nil when no rows match (SQL NULL).
func Sum[T any, V query.Number](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (*float64, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: ast.AggSum, Arg: column(f)}, where)
	if err != nil || !found || raw == nil {
		return nil, err
	}
	v, err := bind.ConvertValue(raw, catalog.FieldFloat64)
	if err != nil {
		return nil, err
	}
	out := v.(float64)
	return &out, nil
}

// Total returns TOTAL(<column>), which is 0.0 rather than NULL on an
// empty set.
func Total[T any, V query.Number](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (float64, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: ast.AggTotal, Arg: column(f)}, where)
	if err != nil || !found || raw == nil {
		return 0, err
	}
	v, err := bind.ConvertValue(raw, catalog.FieldFloat64)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Min returns MIN(<column>) as the column's declared Go type, nil when
// no rows match.
func Min[T, V any](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (*V, error) {
	return minMax(ctx, s, ast.AggMin, f, where)
}

// Max returns MAX(<column>), nil when no rows match.
func Max[T, V any](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (*V, error) {
	return minMax(ctx, s, ast.AggMax, f, where)
}

func minMax[T, V any](ctx context.Context, s *Storage, kind ast.AggKind, f *catalog.Field[T, V], where []query.Expr[bool]) (*V, error) {
	raw, found, err := aggregate[T](ctx, s, &ast.AggregateExpr{Kind: kind, Arg: column(f)}, where)
	if err != nil || !found || raw == nil {
		return nil, err
	}
	v, err := bind.ConvertValue(raw, f.FieldType())
	if err != nil {
		return nil, err
	}
	out := v.(V)
	return &out, nil
}

// GroupConcat returns GROUP_CONCAT(<column>) with the default ","
// separator; the empty string when no rows match.
func GroupConcat[T, V any](ctx context.Context, s *Storage, f *catalog.Field[T, V], where ...query.Expr[bool]) (string, error) {
	return groupConcat(ctx, s, &ast.AggregateExpr{Kind: ast.AggGroupConcat, Arg: column(f)}, f, where)
}

// GroupConcatSep is GroupConcat with an explicit separator.
func GroupConcatSep[T, V any](ctx context.Context, s *Storage, f *catalog.Field[T, V], sep string, where ...query.Expr[bool]) (string, error) {
	agg := &ast.AggregateExpr{
		Kind: ast.AggGroupConcatSep,
		Arg:  column(f),
		Sep:  &ast.Literal{Value: sep, Kind: ast.KindText},
	}
	return groupConcat(ctx, s, agg, f, where)
}

func groupConcat[T, V any](ctx context.Context, s *Storage, agg *ast.AggregateExpr, f *catalog.Field[T, V], where []query.Expr[bool]) (string, error) {
	raw, found, err := aggregate[T](ctx, s, agg, where)
	if err != nil || !found || raw == nil {
		return "", err
	}
	v, err := bind.ConvertValue(raw, catalog.FieldText)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
