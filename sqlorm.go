// Package sqlorm is a statically typed ORM facade over SQLite.
//
// Tables are declared in Go code, mapped to plain record structs, and
// queried through a typed expression builder: every expression carries
// the Go type it produces, so Select returns values of precisely that
// type. Queries are always parameterized; literal values never appear
// in emitted SQL.
//
// Basic usage:
//
//	var userName = catalog.NewField[User, string]("name", catalog.FieldText,
//		func(u *User) string { return u.Name },
//		func(u *User, v string) { u.Name = v })
//
//	st := sqlorm.New(":memory:", []*catalog.TableDescriptor{userTable})
//	if _, err := st.SyncSchema(ctx, true); err != nil {
//		log.Fatal(err)
//	}
//	id, err := sqlorm.Insert(ctx, st, &User{Name: "Alice", Age: 30})
//
// Typed selects:
//
//	rows, err := sqlorm.Select(ctx, st,
//		query.Select(query.Two(query.Col(userName), query.Col(userAge))).
//			Where(query.Gt(query.Col(userAge), query.Lit(int64(18)))).
//			OrderBy(query.Col(userName).Any(), ast.OrderAsc))
//
// A Storage owns at most one database handle at a time and is not safe
// for concurrent use; callers that need parallelism construct one
// Storage per goroutine.
package sqlorm

import (
	"context"
	"database/sql"
	"strings"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/engine"
	"github.com/latticedb/sqlorm/migrate"
	"github.com/latticedb/sqlorm/query"
	"github.com/latticedb/sqlorm/serialize"
)

// Storage binds a table catalog to one connection lifecycle. All CRUD
// operations are package-level generic functions taking a *Storage,
// since Go methods cannot introduce type parameters.
type Storage struct {
	cat  *catalog.Catalog
	conn *engine.Connection
}

// New builds a Storage over path (a file path or ":memory:") with the
// given table declarations. The database is not opened until the first
// operation touches it.
func New(path string, tables []*catalog.TableDescriptor, opts ...engine.ConnOption) *Storage {
	cat := catalog.New()
	for _, t := range tables {
		cat.Register(t)
	}
	return &Storage{cat: cat, conn: engine.Open(path, opts...)}
}

// Catalog exposes the table registry.
func (s *Storage) Catalog() *catalog.Catalog { return s.cat }

// Connection exposes the lifecycle manager, for PRAGMA-level access.
func (s *Storage) Connection() *engine.Connection { return s.conn }

// Close releases the underlying database handle, if open.
func (s *Storage) Close() error { return s.conn.Close() }

// SyncSchema brings the live schema in line with the declared catalog
// and reports what it did per table. See migrate.SyncSchema.
func (s *Storage) SyncSchema(ctx context.Context, preserve bool) (map[string]migrate.SyncStatus, error) {
	return migrate.SyncSchema(ctx, s.conn, s.cat, preserve)
}

// SyncSchemaSimulate computes SyncSchema's classification without
// mutating the database.
func (s *Storage) SyncSchemaSimulate(ctx context.Context, preserve bool) (map[string]migrate.SyncStatus, error) {
	return migrate.SyncSchemaSimulate(ctx, s.conn, s.cat, preserve)
}

// BeginTransaction starts a transaction, making the connection sticky.
func (s *Storage) BeginTransaction(ctx context.Context) error {
	return s.conn.BeginTransaction(ctx)
}

// Commit ends the active transaction successfully.
func (s *Storage) Commit() error { return s.conn.Commit() }

// Rollback ends the active transaction, discarding its writes.
func (s *Storage) Rollback() error { return s.conn.Rollback() }

// Transaction runs fn inside a transaction, committing when it returns
// true and rolling back when it returns false or panics.
func (s *Storage) Transaction(fn func() bool) error { return s.conn.Transaction(fn) }

// prepareStmt compiles sqlText on the active transaction when one is in
// progress, otherwise on a freshly acquired connection. The returned
// release func must run after the statement is finalized; it closes a
// transient connection and is a no-op for sticky ones.
func (s *Storage) prepareStmt(ctx context.Context, sqlText string) (*engine.Statement, func(), error) {
	if tx := s.conn.Tx(); tx != nil {
		stmt, err := engine.PrepareTx(ctx, tx, sqlText)
		if err != nil {
			return nil, nil, err
		}
		return stmt, func() {}, nil
	}
	db, release, err := s.conn.Acquire()
	if err != nil {
		return nil, nil, err
	}
	stmt, err := engine.Prepare(ctx, db, sqlText)
	if err != nil {
		release()
		return nil, nil, err
	}
	return stmt, release, nil
}

// execStmt runs a DML/DDL statement to completion and returns the
// engine result for rowid/changes inspection.
func (s *Storage) execStmt(ctx context.Context, sqlText string, args []any) (sql.Result, error) {
	stmt, release, err := s.prepareStmt(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer release()
	defer stmt.Finalize()
	return stmt.Exec(ctx, args...)
}

// tableIdent renders a table name the way the emitted dialect quotes
// tables: single-quoted, embedded quotes doubled.
func tableIdent(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// colIdent renders a column name double-quoted.
func colIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// whereNode folds zero or more conditions into a single AST predicate;
// nil when no conditions were given.
func whereNode(conds []query.Expr[bool]) ast.Node {
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0].Node()
	default:
		return query.And(conds[0], conds[1], conds[2:]...).Node()
	}
}

// whereSQL renders " WHERE <conds>" (or "") plus its bind args.
func (s *Storage) whereSQL(conds []query.Expr[bool], opts serialize.Options) (string, []any, error) {
	node := whereNode(conds)
	if node == nil {
		return "", nil, nil
	}
	text, err := serialize.Serialize(node, s.cat, opts)
	if err != nil {
		return "", nil, err
	}
	args, err := bind.Walk(node, s.cat)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + text, args, nil
}

// recordArgs reads each column of rec through its accessor and converts
// the values for binding, in cols order.
func recordArgs(rec any, cols []catalog.ColumnDescriptor) ([]any, error) {
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		v, err := bind.ToDriverValue(col.Get(rec), col.FieldType)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
