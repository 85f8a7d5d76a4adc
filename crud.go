package sqlorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
	"github.com/latticedb/sqlorm/query"
	"github.com/latticedb/sqlorm/serialize"
	"github.com/latticedb/sqlorm/visitor"
)

// insertColumnSet returns the columns an implicit-column INSERT binds:
// every declared column except a single-column PRIMARY KEY, which is
// omitted so the engine assigns the rowid. WITHOUT ROWID tables have no
// engine-assigned rowid, so their PK columns stay in.
func insertColumnSet(t *catalog.TableDescriptor) []catalog.ColumnDescriptor {
	var out []catalog.ColumnDescriptor
	for _, c := range t.Columns {
		if c.IsPrimaryKey() && !t.WithoutRowid {
			continue
		}
		out = append(out, c)
	}
	return out
}

func insertSQL(verb string, table string, cols []catalog.ColumnDescriptor, rows int) string {
	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(" INTO ")
	b.WriteString(tableIdent(table))
	if len(cols) == 0 {
		b.WriteString(" DEFAULT VALUES")
		return b.String()
	}
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(colIdent(c.Name))
	}
	b.WriteString(") VALUES ")
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	return b.String()
}

// Insert adds one record and returns the rowid the engine assigned.
// Single-column primary key columns are omitted from the statement;
// composite-key and WITHOUT ROWID key columns are bound like any other.
func Insert[T any](ctx context.Context, s *Storage, rec *T) (int64, error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return 0, err
	}
	cols := insertColumnSet(t)
	args, err := recordArgs(rec, cols)
	if err != nil {
		return 0, err
	}
	res, err := s.execStmt(ctx, insertSQL("INSERT", t.Name, cols, 1), args)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertColumns adds one record binding only the listed columns,
// identified by their declared field accessors.
func InsertColumns[T any](ctx context.Context, s *Storage, rec *T, accessors ...any) (int64, error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return 0, err
	}
	cols := make([]catalog.ColumnDescriptor, 0, len(accessors))
	for _, acc := range accessors {
		col, ok := t.ColumnByAccessor(acc)
		if !ok {
			return 0, &errs.ColumnNotFound{Accessor: fmt.Sprintf("%T", acc)}
		}
		cols = append(cols, col)
	}
	args, err := recordArgs(rec, cols)
	if err != nil {
		return 0, err
	}
	res, err := s.execStmt(ctx, insertSQL("INSERT", t.Name, cols, 1), args)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertRange adds every record in recs with batched multi-row INSERT
// statements. Batch size is capped so one statement never needs more
// bind parameters than the connection's variable-number limit allows.
// An empty slice is a no-op.
func InsertRange[T any](ctx context.Context, s *Storage, recs []T) error {
	return insertRange(ctx, s, recs, "INSERT")
}

// ReplaceRange is InsertRange with REPLACE INTO semantics: all columns,
// primary keys included.
func ReplaceRange[T any](ctx context.Context, s *Storage, recs []T) error {
	return insertRange(ctx, s, recs, "REPLACE")
}

func insertRange[T any](ctx context.Context, s *Storage, recs []T, verb string) error {
	if len(recs) == 0 {
		return nil
	}
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return err
	}
	var cols []catalog.ColumnDescriptor
	if verb == "REPLACE" {
		cols = t.Columns
	} else {
		cols = insertColumnSet(t)
	}
	if len(cols) == 0 {
		for i := range recs {
			if _, err := s.execStmt(ctx, insertSQL(verb, t.Name, nil, 1), nil); err != nil {
				return fmt.Errorf("sqlorm: %s range, record %d: %w", strings.ToLower(verb), i, err)
			}
		}
		return nil
	}
	batch := s.conn.VariableNumberLimit() / len(cols)
	if batch < 1 {
		batch = 1
	}
	for start := 0; start < len(recs); start += batch {
		end := start + batch
		if end > len(recs) {
			end = len(recs)
		}
		chunk := recs[start:end]
		args := make([]any, 0, len(chunk)*len(cols))
		for i := range chunk {
			rowArgs, err := recordArgs(&chunk[i], cols)
			if err != nil {
				return err
			}
			args = append(args, rowArgs...)
		}
		if _, err := s.execStmt(ctx, insertSQL(verb, t.Name, cols, len(chunk)), args); err != nil {
			return err
		}
	}
	return nil
}

// Replace runs REPLACE INTO with every column bound, primary key
// included, inserting or overwriting by key.
func Replace[T any](ctx context.Context, s *Storage, rec *T) error {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return err
	}
	args, err := recordArgs(rec, t.Columns)
	if err != nil {
		return err
	}
	_, err = s.execStmt(ctx, insertSQL("REPLACE", t.Name, t.Columns, 1), args)
	return err
}

// Update rewrites every non-key column of the row whose primary key
// matches rec's.
func Update[T any](ctx context.Context, s *Storage, rec *T) error {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return err
	}
	pk := t.PrimaryKeyColumns()
	if len(pk) == 0 {
		return &errs.TableHasNoPrimaryKeyColumn{Table: t.Name}
	}
	isKey := make(map[string]bool, len(pk))
	for _, name := range pk {
		isKey[name] = true
	}
	var setCols, keyCols []catalog.ColumnDescriptor
	for _, c := range t.Columns {
		if isKey[c.Name] {
			keyCols = append(keyCols, c)
		} else {
			setCols = append(setCols, c)
		}
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(tableIdent(t.Name))
	b.WriteString(" SET ")
	for i, c := range setCols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(colIdent(c.Name))
		b.WriteString(" = ?")
	}
	b.WriteString(" WHERE ")
	for i, c := range keyCols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(colIdent(c.Name))
		b.WriteString(" = ?")
	}

	args, err := recordArgs(rec, setCols)
	if err != nil {
		return err
	}
	keyArgs, err := recordArgs(rec, keyCols)
	if err != nil {
		return err
	}
	_, err = s.execStmt(ctx, b.String(), append(args, keyArgs...))
	return err
}

// UpdateAll runs a cross-row UPDATE: every assignment applies to every
// row matching the conditions. All assignments must target one table.
func UpdateAll(ctx context.Context, s *Storage, assignments []query.Assignment, where ...query.Expr[bool]) error {
	if len(assignments) == 0 {
		return &errs.IncorrectSetFieldsSpecified{}
	}
	tables := make(map[string]bool)
	var order []string
	note := func(t *catalog.TableDescriptor) {
		if !tables[t.Name] {
			tables[t.Name] = true
			order = append(order, t.Name)
		}
	}
	for _, a := range assignments {
		t, _, err := s.cat.ResolveColumn(a.Column.Accessor)
		if err != nil {
			return err
		}
		note(t)
		for _, c := range visitor.CollectColumns(a.Value) {
			if c.IsRowid {
				continue
			}
			t, _, err := s.cat.ResolveColumn(c.Accessor)
			if err != nil {
				return err
			}
			note(t)
		}
	}
	if len(order) > 1 {
		return &errs.TooManyTablesSpecified{Tables: order}
	}

	opts := serialize.Options{Uppercase: true, NoTableQualifier: true}
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(tableIdent(order[0]))
	b.WriteString(" SET ")
	var args []any
	for i, a := range assignments {
		if i > 0 {
			b.WriteString(", ")
		}
		_, col, err := s.cat.ResolveColumn(a.Column.Accessor)
		if err != nil {
			return err
		}
		valueSQL, err := serialize.Serialize(a.Value, s.cat, opts)
		if err != nil {
			return err
		}
		b.WriteString(colIdent(col.Name))
		b.WriteString(" = ")
		b.WriteString(valueSQL)
		valueArgs, err := bind.Walk(a.Value, s.cat)
		if err != nil {
			return err
		}
		args = append(args, valueArgs...)
	}
	cond, condArgs, err := s.whereSQL(where, opts)
	if err != nil {
		return err
	}
	b.WriteString(cond)
	_, err = s.execStmt(ctx, b.String(), append(args, condArgs...))
	return err
}

// pkColumns resolves T's primary key columns, in key order, failing
// when the table has none or when the supplied id count differs.
func pkColumns[T any](s *Storage, ids []any) (*catalog.TableDescriptor, []catalog.ColumnDescriptor, error) {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return nil, nil, err
	}
	names := t.PrimaryKeyColumns()
	if len(names) == 0 {
		return nil, nil, &errs.TableHasNoPrimaryKeyColumn{Table: t.Name}
	}
	if len(ids) != len(names) {
		return nil, nil, fmt.Errorf("sqlorm: table %q has a %d-column primary key, got %d value(s)", t.Name, len(names), len(ids))
	}
	cols := make([]catalog.ColumnDescriptor, 0, len(names))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("sqlorm: table %q declares unknown key column %q", t.Name, name)
		}
		cols = append(cols, col)
	}
	return t, cols, nil
}

func pkPredicate(cols []catalog.ColumnDescriptor, ids []any) (string, []any, error) {
	var b strings.Builder
	args := make([]any, 0, len(ids))
	for i, col := range cols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(colIdent(col.Name))
		b.WriteString(" = ?")
		v, err := bind.ToDriverValue(ids[i], col.FieldType)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
	}
	return b.String(), args, nil
}

// Remove deletes the row whose primary key equals ids (one value per
// key column, in key order).
func Remove[T any](ctx context.Context, s *Storage, ids ...any) error {
	t, cols, err := pkColumns[T](s, ids)
	if err != nil {
		return err
	}
	pred, args, err := pkPredicate(cols, ids)
	if err != nil {
		return err
	}
	_, err = s.execStmt(ctx, "DELETE FROM "+tableIdent(t.Name)+" WHERE "+pred, args)
	return err
}

// RemoveAll deletes every row matching the conditions; with none given,
// every row of the table.
func RemoveAll[T any](ctx context.Context, s *Storage, where ...query.Expr[bool]) error {
	t, err := catalog.GetTable[T](s.cat)
	if err != nil {
		return err
	}
	cond, args, err := s.whereSQL(where, serialize.Options{Uppercase: true, NoTableQualifier: true})
	if err != nil {
		return err
	}
	_, err = s.execStmt(ctx, "DELETE FROM "+tableIdent(t.Name)+cond, args)
	return err
}
