package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// liveColumn is one row of PRAGMA table_info: (cid, name, type, notnull,
// dflt_value, pk).
type liveColumn struct {
	cid     int
	name    string
	sqlType string
	notNull bool
	dflt    sql.NullString
	pk      int
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("migrate: checking existence of %q: %w", name, err)
	}
	return n > 0, nil
}

func tableInfo(ctx context.Context, db *sql.DB, name string) ([]liveColumn, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("migrate: table_info(%q): %w", name, err)
	}
	defer rows.Close()

	var out []liveColumn
	for rows.Next() {
		var c liveColumn
		var notNull int
		if err := rows.Scan(&c.cid, &c.name, &c.sqlType, &notNull, &c.dflt, &c.pk); err != nil {
			return nil, fmt.Errorf("migrate: scanning table_info(%q): %w", name, err)
		}
		c.notNull = notNull != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `'` + name + `'`
}
