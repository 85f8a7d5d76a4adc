package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/engine"
	"github.com/latticedb/sqlorm/errs"
)

func fileConn(t *testing.T, opts ...engine.ConnOption) *engine.Connection {
	t.Helper()
	c := engine.Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnectionLifecycle(t *testing.T) {
	t.Run("file connection is transient", func(t *testing.T) {
		c := fileConn(t)
		require.Equal(t, engine.Closed, c.State())

		db, release, err := c.Acquire()
		require.NoError(t, err)
		require.NotNil(t, db)
		require.Equal(t, engine.OpenTransient, c.State())

		release()
		require.Equal(t, engine.Closed, c.State())
	})

	t.Run("memory connection sticks", func(t *testing.T) {
		c := engine.Open(":memory:")
		defer c.Close()

		db, release, err := c.Acquire()
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE t (x INTEGER)")
		require.NoError(t, err)
		release()
		require.Equal(t, engine.OpenSticky, c.State())

		// The schema survives because the handle was never dropped.
		db2, release2, err := c.Acquire()
		require.NoError(t, err)
		defer release2()
		var n int
		require.NoError(t, db2.QueryRow(
			"SELECT count(*) FROM sqlite_master WHERE name = 't'").Scan(&n))
		require.Equal(t, 1, n)
	})

	t.Run("open forever sticks", func(t *testing.T) {
		c := fileConn(t, engine.WithOpenForever())
		_, release, err := c.Acquire()
		require.NoError(t, err)
		release()
		require.Equal(t, engine.OpenSticky, c.State())
	})
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("nested begin fails", func(t *testing.T) {
		c := fileConn(t)
		require.NoError(t, c.BeginTransaction(ctx))
		err := c.BeginTransaction(ctx)
		var already *errs.CannotStartTransactionWithinTransaction
		require.True(t, errors.As(err, &already))
		require.NoError(t, c.Rollback())
	})

	t.Run("commit without transaction fails", func(t *testing.T) {
		c := fileConn(t)
		var none *errs.NoActiveTransaction
		require.True(t, errors.As(c.Commit(), &none))
		require.True(t, errors.As(c.Rollback(), &none))
	})

	t.Run("commit closes a file connection", func(t *testing.T) {
		c := fileConn(t)
		require.NoError(t, c.BeginTransaction(ctx))
		require.Equal(t, engine.OpenSticky, c.State())
		require.NoError(t, c.Commit())
		require.Equal(t, engine.Closed, c.State())
	})

	t.Run("transaction helper commits on true", func(t *testing.T) {
		c := fileConn(t)
		ran := false
		require.NoError(t, c.Transaction(func() bool { ran = true; return true }))
		require.True(t, ran)
		require.Nil(t, c.Tx())
	})

	t.Run("rollback discards transaction changes", func(t *testing.T) {
		c := fileConn(t)
		require.NoError(t, c.BeginTransaction(ctx))
		tx := c.Tx()
		require.NotNil(t, tx)
		_, err := tx.Exec("CREATE TABLE scratch (x INTEGER)")
		require.NoError(t, err)
		require.NoError(t, c.Rollback())

		db, release, err := c.Acquire()
		require.NoError(t, err)
		defer release()
		var n int
		require.NoError(t, db.QueryRow(
			"SELECT count(*) FROM sqlite_master WHERE name = 'scratch'").Scan(&n))
		require.Equal(t, 0, n)
	})
}

func TestStatement(t *testing.T) {
	ctx := context.Background()
	c := engine.Open(":memory:")
	defer c.Close()

	db, release, err := c.Acquire()
	require.NoError(t, err)
	defer release()

	_, err = db.Exec("CREATE TABLE nums (n INTEGER NOT NULL)")
	require.NoError(t, err)

	t.Run("exec and rowid", func(t *testing.T) {
		stmt, err := engine.Prepare(ctx, db, "INSERT INTO nums (n) VALUES (?)")
		require.NoError(t, err)
		defer stmt.Finalize()
		res, err := stmt.Exec(ctx, int64(7))
		require.NoError(t, err)
		id, err := engine.LastInsertRowID(res)
		require.NoError(t, err)
		require.Equal(t, int64(1), id)
	})

	t.Run("query steps row then done", func(t *testing.T) {
		stmt, err := engine.Prepare(ctx, db, "SELECT n FROM nums")
		require.NoError(t, err)
		defer stmt.Finalize()
		require.NoError(t, stmt.Query(ctx))

		res, err := stmt.Step()
		require.NoError(t, err)
		require.Equal(t, engine.StepRow, res)

		var n int64
		require.NoError(t, stmt.Rows().Scan(&n))
		require.Equal(t, int64(7), n)

		res, err = stmt.Step()
		require.NoError(t, err)
		require.Equal(t, engine.StepDone, res)
	})

	t.Run("prepare failure is typed", func(t *testing.T) {
		_, err := engine.Prepare(ctx, db, "SELECT FROM nonsense WHERE")
		var pf *errs.PrepareFailed
		require.True(t, errors.As(err, &pf))
	})

	t.Run("constraint violation surfaces StepFailed", func(t *testing.T) {
		stmt, err := engine.Prepare(ctx, db, "INSERT INTO nums (n) VALUES (NULL)")
		require.NoError(t, err)
		defer stmt.Finalize()
		_, err = stmt.Exec(ctx)
		var sf *errs.StepFailed
		require.True(t, errors.As(err, &sf))
	})
}

func TestVariableNumberLimit(t *testing.T) {
	c := fileConn(t)
	require.Equal(t, engine.DefaultVariableNumberLimit, c.VariableNumberLimit())

	limited := fileConn(t, engine.WithLimit(engine.LimitVariableNumber, 4))
	require.Equal(t, 4, limited.VariableNumberLimit())
}
