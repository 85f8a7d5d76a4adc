package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/latticedb/sqlorm/errs"
)

// StepResult is the two-valued outcome of advancing a statement:
// ROW (a result row is available) or DONE (the statement is finished).
// Any other engine condition surfaces as an error instead.
type StepResult int

const (
	StepDone StepResult = iota
	StepRow
)

// Statement wraps one prepared statement for its entire lifetime: a
// single query/exec, one Step loop, then Finalize. Never reused across
// unrelated calls.
type Statement struct {
	stmt *sql.Stmt
	rows *sql.Rows
	sql  string
}

// Prepare compiles sqlText against db, wrapping failures in PrepareFailed.
func Prepare(ctx context.Context, db *sql.DB, sqlText string) (*Statement, error) {
	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, &errs.PrepareFailed{SQL: sqlText, Err: err}
	}
	return &Statement{stmt: stmt, sql: sqlText}, nil
}

// PrepareTx compiles sqlText against an active transaction.
func PrepareTx(ctx context.Context, tx *sql.Tx, sqlText string) (*Statement, error) {
	stmt, err := tx.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, &errs.PrepareFailed{SQL: sqlText, Err: err}
	}
	return &Statement{stmt: stmt, sql: sqlText}, nil
}

// Exec runs a prepared DML/DDL statement to completion; anything short
// of a clean DONE is a StepFailed.
func (s *Statement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, &errs.StepFailed{SQL: s.sql, Err: err}
	}
	return res, nil
}

// Query begins a row-producing statement; call Step to advance it.
func (s *Statement) Query(ctx context.Context, args ...any) error {
	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return &errs.StepFailed{SQL: s.sql, Err: err}
	}
	s.rows = rows
	return nil
}

// Step advances a query one row. Returns StepRow with the cursor
// positioned on a row, or StepDone when exhausted (checking rows.Err()
// to distinguish clean exhaustion from a mid-iteration failure).
func (s *Statement) Step() (StepResult, error) {
	if s.rows == nil {
		return StepDone, fmt.Errorf("engine: Step called before Query")
	}
	if s.rows.Next() {
		return StepRow, nil
	}
	if err := s.rows.Err(); err != nil {
		return StepDone, &errs.StepFailed{SQL: s.sql, Err: err}
	}
	return StepDone, nil
}

// Rows exposes the underlying *sql.Rows for Scan, valid after a ROW step.
func (s *Statement) Rows() *sql.Rows { return s.rows }

// Finalize releases the open rows cursor (if any) and the prepared
// statement. Callers run it on every exit path, error propagation
// included.
func (s *Statement) Finalize() error {
	var rowsErr error
	if s.rows != nil {
		rowsErr = s.rows.Close()
		s.rows = nil
	}
	stmtErr := s.stmt.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return stmtErr
}

// LastInsertRowID returns the rowid SQLite assigned to the most recent
// single-row INSERT on res.
func LastInsertRowID(res sql.Result) (int64, error) {
	return res.LastInsertId()
}

// RowsAffected returns the number of rows a DML statement touched.
func RowsAffected(res sql.Result) (int64, error) {
	return res.RowsAffected()
}
