package migrate

import (
	"context"
	"database/sql"

	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/engine"
	"github.com/latticedb/sqlorm/errs"
)

// SyncSchema brings the live database in line with every table
// registered in cat, in registration order, and returns each table's
// (and each declared index's) terminal SyncStatus. When preserve is
// true, a table whose only difference is extra live columns keeps its
// data via the backup-and-rename procedure instead of being dropped.
func SyncSchema(ctx context.Context, conn *engine.Connection, cat *catalog.Catalog, preserve bool) (map[string]SyncStatus, error) {
	return runSync(ctx, conn, cat, preserve, false)
}

// SyncSchemaSimulate computes the same classification as SyncSchema
// without executing any DDL.
func SyncSchemaSimulate(ctx context.Context, conn *engine.Connection, cat *catalog.Catalog, preserve bool) (map[string]SyncStatus, error) {
	return runSync(ctx, conn, cat, preserve, true)
}

func runSync(ctx context.Context, conn *engine.Connection, cat *catalog.Catalog, preserve, dryRun bool) (map[string]SyncStatus, error) {
	db, release, err := conn.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	result := make(map[string]SyncStatus)
	var syncErr error
	cat.ForEach(func(t *catalog.TableDescriptor) {
		if syncErr != nil {
			return
		}
		status, err := syncTable(ctx, db, t, preserve, dryRun)
		if err != nil {
			syncErr = err
			return
		}
		result[t.Name] = status
		for _, idx := range t.Indices {
			if !dryRun {
				if _, err := db.ExecContext(ctx, createIndexDDL(idx, t.Name)); err != nil {
					syncErr = &errs.ExecFailed{SQL: createIndexDDL(idx, t.Name), Err: err}
					return
				}
			}
			result[idx.Name] = AlreadyInSync
		}
	})
	if syncErr != nil {
		return nil, syncErr
	}
	return result, nil
}

func syncTable(ctx context.Context, db *sql.DB, t *catalog.TableDescriptor, preserve, dryRun bool) (SyncStatus, error) {
	exists, err := tableExists(ctx, db, t.Name)
	if err != nil {
		return AlreadyInSync, err
	}
	if !exists {
		if !dryRun {
			if _, err := db.ExecContext(ctx, createTableDDL(t)); err != nil {
				return AlreadyInSync, &errs.ExecFailed{SQL: createTableDDL(t), Err: err}
			}
		}
		return NewTableCreated, nil
	}

	live, err := tableInfo(ctx, db, t.Name)
	if err != nil {
		return AlreadyInSync, err
	}
	liveByName := make(map[string]liveColumn, len(live))
	for _, c := range live {
		liveByName[c.name] = c
	}
	declByName := make(map[string]catalog.ColumnDescriptor, len(t.Columns))
	for _, c := range t.Columns {
		declByName[c.Name] = c
	}

	var added, removed []string
	for name := range declByName {
		if _, ok := liveByName[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range liveByName {
		if _, ok := declByName[name]; !ok {
			removed = append(removed, name)
		}
	}
	for name, decl := range declByName {
		lc, ok := liveByName[name]
		if !ok {
			continue
		}
		if columnMismatch(decl, lc) {
			return recreateTable(ctx, db, t, dryRun)
		}
	}

	switch {
	case len(added) == 0 && len(removed) == 0:
		return AlreadyInSync, nil

	case len(added) > 0 && len(removed) == 0:
		for _, name := range added {
			col := declByName[name]
			if !col.Nullable && !hasDefault(col) {
				return recreateTable(ctx, db, t, dryRun)
			}
		}
		if !dryRun {
			for _, name := range orderedDeclared(t, added) {
				ddl := addColumnDDL(t.Name, declByName[name])
				if _, err := db.ExecContext(ctx, ddl); err != nil {
					return AlreadyInSync, &errs.ExecFailed{SQL: ddl, Err: err}
				}
			}
		}
		return NewColumnsAdded, nil

	case len(added) == 0 && len(removed) > 0:
		if !preserve {
			return recreateTable(ctx, db, t, dryRun)
		}
		if !dryRun {
			if err := backupAndRename(ctx, db, t, sharedColumns(t, liveByName)); err != nil {
				return AlreadyInSync, err
			}
		}
		return OldColumnsRemoved, nil

	default:
		if !dryRun {
			if err := backupAndRename(ctx, db, t, sharedColumns(t, liveByName)); err != nil {
				return AlreadyInSync, err
			}
		}
		return NewColumnsAddedAndOldColumnsRemoved, nil
	}
}

func recreateTable(ctx context.Context, db *sql.DB, t *catalog.TableDescriptor, dryRun bool) (SyncStatus, error) {
	if !dryRun {
		if _, err := db.ExecContext(ctx, dropTableDDL(t.Name)); err != nil {
			return AlreadyInSync, &errs.ExecFailed{SQL: dropTableDDL(t.Name), Err: err}
		}
		if _, err := db.ExecContext(ctx, createTableDDL(t)); err != nil {
			return AlreadyInSync, &errs.ExecFailed{SQL: createTableDDL(t), Err: err}
		}
	}
	return DroppedAndRecreated, nil
}

// backupAndRename creates the new-shaped table under a fresh name,
// copies the surviving columns across, drops the original, then
// renames the backup into its place.
func backupAndRename(ctx context.Context, db *sql.DB, t *catalog.TableDescriptor, shared []string) error {
	backupName, err := backupTableName(ctx, db, t.Name)
	if err != nil {
		return err
	}
	backupDDL := createTableDDLNamed(t, backupName)
	if _, err := db.ExecContext(ctx, backupDDL); err != nil {
		return &errs.ExecFailed{SQL: backupDDL, Err: err}
	}
	if len(shared) > 0 {
		copyDDL := copyRowsDDL(t.Name, backupName, shared)
		if _, err := db.ExecContext(ctx, copyDDL); err != nil {
			return &errs.ExecFailed{SQL: copyDDL, Err: err}
		}
	}
	if _, err := db.ExecContext(ctx, dropTableDDL(t.Name)); err != nil {
		return &errs.ExecFailed{SQL: dropTableDDL(t.Name), Err: err}
	}
	renameDDL := renameTableDDL(backupName, t.Name)
	if _, err := db.ExecContext(ctx, renameDDL); err != nil {
		return &errs.ExecFailed{SQL: renameDDL, Err: err}
	}
	return nil
}

func createTableDDLNamed(t *catalog.TableDescriptor, name string) string {
	renamed := *t
	renamed.Name = name
	return createTableDDL(&renamed)
}

func sharedColumns(t *catalog.TableDescriptor, liveByName map[string]liveColumn) []string {
	var out []string
	for _, c := range t.Columns {
		if _, ok := liveByName[c.Name]; ok {
			out = append(out, c.Name)
		}
	}
	return out
}

func orderedDeclared(t *catalog.TableDescriptor, names []string) []string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	var out []string
	for _, c := range t.Columns {
		if set[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

func hasDefault(col catalog.ColumnDescriptor) bool {
	_, ok := catalog.HasConstraint[catalog.DefaultConstraint](col.Constraints)
	return ok
}

// columnMismatch applies the coarse rule: any difference in (type,
// notNull, dfltValue, pk) on a column present on both sides forces
// DroppedAndRecreated, even where a finer-grained ALTER could have
// kept the data.
func columnMismatch(decl catalog.ColumnDescriptor, live liveColumn) bool {
	if decl.FieldType.String() != live.sqlType {
		return true
	}
	if decl.Nullable == live.notNull {
		return true
	}
	declPK := decl.IsPrimaryKey()
	livePK := live.pk > 0
	if declPK != livePK {
		return true
	}
	def, hasDef := catalog.HasConstraint[catalog.DefaultConstraint](decl.Constraints)
	switch {
	case hasDef && !live.dflt.Valid:
		return true
	case !hasDef && live.dflt.Valid:
		return true
	case hasDef && live.dflt.Valid:
		if literalDDL(def.Value) != live.dflt.String {
			return true
		}
	}
	return false
}
