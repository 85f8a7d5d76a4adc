package catalog

import "fmt"

// IndexDescriptor describes a CREATE INDEX statement belonging to a table.
type IndexDescriptor struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKeyDescriptor describes a table-level FOREIGN KEY constraint.
type ForeignKeyDescriptor struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   ReferentialAction
	OnUpdate   ReferentialAction
}

// TableDescriptor is the full mapping of a Go record type to a SQLite
// table: its name, columns in declaration order, composite primary key
// (when the single-column form in a ColumnDescriptor isn't used),
// WITHOUT ROWID flag, indices and foreign keys.
type TableDescriptor struct {
	Name          string
	RecordType    any // reflect.Type, boxed via an *T(nil) sentinel
	Columns       []ColumnDescriptor
	CompositeKey  []string // column names, only when len > 1
	WithoutRowid  bool
	Indices       []IndexDescriptor
	ForeignKeys   []ForeignKeyDescriptor
}

// TableOption configures a TableDescriptor at declaration time.
type TableOption func(*TableDescriptor)

// WithoutRowid marks the table WITHOUT ROWID. Requires a primary key
// (single or composite); neither MakeTable nor the DDL generator
// validates this — the engine rejects the CREATE TABLE at sync time and
// migrate.SyncSchema returns that failure as an ExecFailed.
func WithoutRowid() TableOption {
	return func(t *TableDescriptor) { t.WithoutRowid = true }
}

// WithCompositeKey declares a multi-column PRIMARY KEY. Column names
// must match ColumnDescriptor.Name values supplied to MakeTable; none
// of the named columns may also carry a single-column PrimaryKey
// constraint (migrate.SyncSchema rejects that combination).
func WithCompositeKey(columns ...string) TableOption {
	return func(t *TableDescriptor) { t.CompositeKey = columns }
}

// WithIndex attaches a secondary index.
func WithIndex(name string, unique bool, columns ...string) TableOption {
	return func(t *TableDescriptor) {
		t.Indices = append(t.Indices, IndexDescriptor{Name: name, Columns: columns, Unique: unique})
	}
}

// WithForeignKey attaches a table-level FOREIGN KEY constraint.
func WithForeignKey(columns []string, refTable string, refColumns []string, onDelete, onUpdate ReferentialAction) TableOption {
	return func(t *TableDescriptor) {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKeyDescriptor{
			Columns:    columns,
			RefTable:   refTable,
			RefColumns: refColumns,
			OnDelete:   onDelete,
			OnUpdate:   onUpdate,
		})
	}
}

// MakeTable declares a table mapping record type T to name, with the
// given columns in declaration order. zero is a *T(nil) sentinel used
// only to anchor RecordType for lookup by Go type; callers always pass
// (*T)(nil).
func MakeTable[T any](name string, zero *T, columns []ColumnDescriptor, opts ...TableOption) *TableDescriptor {
	t := &TableDescriptor{
		Name:       name,
		RecordType: zero,
		Columns:    columns,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PrimaryKeyColumns returns the table's primary key column names, in
// declaration order, from whichever of the two forms was used.
func (t *TableDescriptor) PrimaryKeyColumns() []string {
	if len(t.CompositeKey) > 0 {
		return t.CompositeKey
	}
	var out []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks up a column descriptor by name.
func (t *TableDescriptor) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnByAccessor looks up a column descriptor by accessor identity
// (a *Field[T,V] pointer, compared via ==).
func (t *TableDescriptor) ColumnByAccessor(accessor any) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Accessor == accessor {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

func (t *TableDescriptor) String() string {
	return fmt.Sprintf("catalog.TableDescriptor{Name: %q, Columns: %d}", t.Name, len(t.Columns))
}
