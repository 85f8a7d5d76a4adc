package sqlorm

import (
	"context"
	"strings"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/engine"
	"github.com/latticedb/sqlorm/errs"
	"github.com/latticedb/sqlorm/query"
	"github.com/latticedb/sqlorm/serialize"
	"github.com/latticedb/sqlorm/visitor"
)

// recordSelectSQL renders "SELECT "c1", "c2", … FROM '<table>'".
func recordSelectSQL(t *catalog.TableDescriptor) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(colIdent(c.Name))
	}
	b.WriteString(" FROM ")
	b.WriteString(tableIdent(t.Name))
	return b.String()
}

// Get returns the record whose primary key equals ids, failing with
// NotFound when no row matches.
func Get[T any](ctx context.Context, s *Storage, ids ...any) (T, error) {
	var zero T
	rec, err := getRow[T](ctx, s, ids)
	if err != nil {
		return zero, err
	}
	if rec == nil {
		t, _ := catalog.GetTable[T](s.cat)
		name := ""
		if t != nil {
			name = t.Name
		}
		return zero, &errs.NotFound{Table: name, PK: ids}
	}
	return *rec, nil
}

// GetPointer is Get returning nil instead of NotFound when no row
// matches.
func GetPointer[T any](ctx context.Context, s *Storage, ids ...any) (*T, error) {
	return getRow[T](ctx, s, ids)
}

func getRow[T any](ctx context.Context, s *Storage, ids []any) (*T, error) {
	t, cols, err := pkColumns[T](s, ids)
	if err != nil {
		return nil, err
	}
	pred, args, err := pkPredicate(cols, ids)
	if err != nil {
		return nil, err
	}
	stmt, release, err := s.prepareStmt(ctx, recordSelectSQL(t)+" WHERE "+pred)
	if err != nil {
		return nil, err
	}
	defer release()
	defer stmt.Finalize()
	if err := stmt.Query(ctx, args...); err != nil {
		return nil, err
	}
	res, err := stmt.Step()
	if err != nil {
		return nil, err
	}
	if res == engine.StepDone {
		return nil, nil
	}
	rec, err := bind.Extract[T](stmt.Rows(), t.Columns)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAll returns every record matching the conditions, in engine order.
// An empty table yields an empty slice, not an error.
func GetAll[T any](ctx context.Context, s *Storage, where ...query.Expr[bool]) ([]T, error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return nil, err
	}
	cond, args, err := s.whereSQL(where, serialize.DefaultOptions)
	if err != nil {
		return nil, err
	}
	stmt, release, err := s.prepareStmt(ctx, recordSelectSQL(t)+cond)
	if err != nil {
		return nil, err
	}
	defer release()
	defer stmt.Finalize()
	if err := stmt.Query(ctx, args...); err != nil {
		return nil, err
	}
	out := []T{}
	for {
		res, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if res == engine.StepDone {
			return out, nil
		}
		rec, err := bind.Extract[T](stmt.Rows(), t.Columns)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Cursor is the lazy, single-pass record sequence Iterate returns. It
// owns its prepared statement and, for transient connections, the
// connection itself; both are released when the cursor is exhausted,
// hits an error, or is closed early.
type Cursor[T any] struct {
	stmt    *engine.Statement
	release func()
	cols    []catalog.ColumnDescriptor
	cur     T
	err     error
	done    bool
}

// Next advances to the next record, reporting whether one is available.
// After Next returns false, check Err to distinguish exhaustion from a
// mid-iteration failure.
func (c *Cursor[T]) Next() bool {
	if c.done {
		return false
	}
	res, err := c.stmt.Step()
	if err != nil {
		c.err = err
		c.close()
		return false
	}
	if res == engine.StepDone {
		c.close()
		return false
	}
	rec, err := bind.Extract[T](c.stmt.Rows(), c.cols)
	if err != nil {
		c.err = err
		c.close()
		return false
	}
	c.cur = rec
	return true
}

// Record returns the record Next positioned on.
func (c *Cursor[T]) Record() T { return c.cur }

// Err returns the first error the cursor hit, if any.
func (c *Cursor[T]) Err() error { return c.err }

// Close releases the cursor's statement and connection early. Safe to
// call more than once and after exhaustion.
func (c *Cursor[T]) Close() error {
	c.close()
	return c.err
}

func (c *Cursor[T]) close() {
	if c.done {
		return
	}
	c.done = true
	if err := c.stmt.Finalize(); err != nil && c.err == nil {
		c.err = err
	}
	c.release()
}

// Iterate returns a lazy cursor over every record matching the
// conditions. Rows reflect the state at statement preparation;
// mid-iteration writes never retroactively change yielded rows.
func Iterate[T any](ctx context.Context, s *Storage, where ...query.Expr[bool]) (*Cursor[T], error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return nil, err
	}
	cond, args, err := s.whereSQL(where, serialize.DefaultOptions)
	if err != nil {
		return nil, err
	}
	stmt, release, err := s.prepareStmt(ctx, recordSelectSQL(t)+cond)
	if err != nil {
		return nil, err
	}
	if err := stmt.Query(ctx, args...); err != nil {
		stmt.Finalize()
		release()
		return nil, err
	}
	return &Cursor[T]{stmt: stmt, release: release, cols: t.Columns}, nil
}

// Select runs a typed expression query and returns one value of the
// projection type per result row. Extra conditions are ANDed into the
// query's WHERE clause.
func Select[V any](ctx context.Context, s *Storage, q *query.SelectQuery[V], where ...query.Expr[bool]) ([]V, error) {
	node := q.Node().(*ast.Select)
	if extra := whereNode(where); extra != nil {
		if node.Where != nil {
			node.Where = &ast.BoolExpr{Op: ast.BoolAnd, Left: node.Where, Right: extra}
		} else {
			node.Where = extra
		}
	}
	if err := s.inferFrom(node); err != nil {
		return nil, err
	}
	return runSelect(ctx, s, node, len(node.Columns), q.Decode)
}

// SelectCompound runs a compound (UNION/INTERSECT/EXCEPT) query. The
// builder's types already make extra where-args impossible to attach to
// a compound; the variadic parameter exists so a caller holding erased
// conditions gets the domain error rather than silently dropped input.
func SelectCompound[V any](ctx context.Context, s *Storage, q *query.CompoundQuery[V], where ...query.Expr[bool]) ([]V, error) {
	if len(where) > 0 {
		return nil, &errs.CompoundWithExtraArgs{}
	}
	node := q.Node().(*ast.SetOp)
	count := 0
	if err := s.inferCompound(node, &count); err != nil {
		return nil, err
	}
	return runSelect(ctx, s, node, count, q.Decode)
}

// runSelect serializes, binds, steps, and decodes a row-producing
// statement into one V per row.
func runSelect[V any](ctx context.Context, s *Storage, node ast.Node, columns int, decode func([]any) (V, error)) ([]V, error) {
	sqlText, err := serialize.Serialize(node, s.cat, serialize.DefaultOptions)
	if err != nil {
		return nil, err
	}
	args, err := bind.Walk(node, s.cat)
	if err != nil {
		return nil, err
	}
	stmt, release, err := s.prepareStmt(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer release()
	defer stmt.Finalize()
	if err := stmt.Query(ctx, args...); err != nil {
		return nil, err
	}
	out := []V{}
	for {
		res, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if res == engine.StepDone {
			return out, nil
		}
		raw := make([]any, columns)
		dest := make([]any, columns)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := stmt.Rows().Scan(dest...); err != nil {
			return nil, err
		}
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// inferCompound fills in FROM clauses on every operand and records the
// operand column count (all operands share one shape).
func (s *Storage) inferCompound(op *ast.SetOp, count *int) error {
	for _, side := range []ast.Node{op.Left, op.Right} {
		switch n := side.(type) {
		case *ast.Select:
			if err := s.inferFrom(n); err != nil {
				return err
			}
			*count = len(n.Columns)
		case *ast.SetOp:
			if err := s.inferCompound(n, count); err != nil {
				return err
			}
		}
	}
	return nil
}

// inferFrom computes a missing FROM clause per the serializer contract:
// the union of tables referenced anywhere in the statement, minus any
// table a JOIN clause already introduces. The first remaining table
// becomes FROM; further ones join in as CROSS JOINs, the comma-list
// equivalent.
func (s *Storage) inferFrom(sel *ast.Select) error {
	if sel.From != nil {
		return nil
	}
	joined := make(map[string]bool)
	for _, j := range sel.Joins {
		if j.Target == nil {
			continue
		}
		joined[j.Target.Name] = true
		if j.Target.Alias != "" {
			joined[j.Target.Alias] = true
		}
	}
	seen := make(map[string]bool)
	var tables []string
	var resolveErr error
	visitor.Inspect(sel, func(n ast.Node) bool {
		if resolveErr != nil {
			return false
		}
		if _, isSub := n.(*ast.Select); isSub && n != ast.Node(sel) {
			return false // a subquery's tables belong to its own FROM
		}
		c, ok := n.(*ast.Column)
		if !ok {
			return true
		}
		if c.IsRowid {
			if c.TableSet && !joined[c.Table] && !seen[c.Table] {
				seen[c.Table] = true
				tables = append(tables, c.Table)
			}
			return true
		}
		t, _, err := s.cat.ResolveColumn(c.Accessor)
		if err != nil {
			resolveErr = err
			return false
		}
		name := t.Name
		if c.TableSet {
			name = c.Table
		}
		if !joined[name] && !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
		return true
	})
	if resolveErr != nil {
		return resolveErr
	}
	if len(tables) == 0 {
		return nil // literal-only select
	}
	sel.From = &ast.TableRef{Name: tables[0]}
	if len(tables) > 1 {
		joins := make([]*ast.Join, 0, len(sel.Joins)+len(tables)-1)
		for _, name := range tables[1:] {
			joins = append(joins, &ast.Join{Kind: ast.JoinCross, Target: &ast.TableRef{Name: name}})
		}
		sel.Joins = append(joins, sel.Joins...)
	}
	return nil
}
