package migrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/latticedb/sqlorm/catalog"
)

// createTableDDL renders CREATE TABLE for t's full declared schema,
// including composite/single-column primary keys, foreign keys, and
// WITHOUT ROWID.
func createTableDDL(t *catalog.TableDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE '%s' (", t.Name)
	defs := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, col := range t.Columns {
		defs = append(defs, columnDDL(col))
	}
	if len(t.CompositeKey) > 0 {
		quoted := make([]string, len(t.CompositeKey))
		for i, c := range t.CompositeKey {
			quoted[i] = `"` + c + `"`
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, foreignKeyDDL(fk))
	}
	b.WriteString(strings.Join(defs, ", "))
	b.WriteString(")")
	if t.WithoutRowid {
		b.WriteString(" WITHOUT ROWID")
	}
	return b.String()
}

func columnDDL(col catalog.ColumnDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, `"%s" %s`, col.Name, col.FieldType.String())
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	for _, c := range col.Constraints {
		switch v := c.(type) {
		case catalog.PrimaryKeyConstraint:
			b.WriteString(" PRIMARY KEY")
			if v.Desc {
				b.WriteString(" DESC")
			}
			if v.AutoIncrement {
				b.WriteString(" AUTOINCREMENT")
			}
		case catalog.UniqueConstraint:
			b.WriteString(" UNIQUE")
		case catalog.DefaultConstraint:
			fmt.Fprintf(&b, " DEFAULT %s", literalDDL(v.Value))
		case catalog.CheckConstraint:
			fmt.Fprintf(&b, " CHECK (%s)", v.Expr)
		case catalog.CollateConstraint:
			fmt.Fprintf(&b, " COLLATE %s", v.Name)
		}
	}
	return b.String()
}

func foreignKeyDDL(fk catalog.ForeignKeyDescriptor) string {
	cols := quoteAll(fk.Columns)
	refCols := quoteAll(fk.RefColumns)
	s := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES '%s' (%s)",
		strings.Join(cols, ", "), fk.RefTable, strings.Join(refCols, ", "))
	if fk.OnDelete != catalog.NoAction {
		s += " ON DELETE " + fk.OnDelete.String()
	}
	if fk.OnUpdate != catalog.NoAction {
		s += " ON UPDATE " + fk.OnUpdate.String()
	}
	return s
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = `"` + n + `"`
	}
	return out
}

// literalDDL renders a Go value as inline SQL literal text for a
// DEFAULT clause. Unlike the serializer's placeholder-only output, DDL
// defaults are never bound: SQLite requires them inline.
func literalDDL(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return "X'" + fmt.Sprintf("%x", x) + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32, float64:
		return strconv.FormatFloat(asFloat(x), 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func addColumnDDL(table string, col catalog.ColumnDescriptor) string {
	return fmt.Sprintf("ALTER TABLE '%s' ADD COLUMN %s", table, columnDDL(col))
}

func createIndexDDL(idx catalog.IndexDescriptor, table string) string {
	kw := "CREATE INDEX IF NOT EXISTS"
	if idx.Unique {
		kw = "CREATE UNIQUE INDEX IF NOT EXISTS"
	}
	return fmt.Sprintf("%s '%s' ON '%s' (%s)", kw, idx.Name, table, strings.Join(quoteAll(idx.Columns), ", "))
}

func dropTableDDL(name string) string {
	return fmt.Sprintf("DROP TABLE '%s'", name)
}

func renameTableDDL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE '%s' RENAME TO '%s'", from, to)
}

func copyRowsDDL(from, to string, sharedColumns []string) string {
	cols := strings.Join(quoteAll(sharedColumns), ", ")
	return fmt.Sprintf("INSERT INTO '%s' (%s) SELECT %s FROM '%s'", to, cols, cols, from)
}
