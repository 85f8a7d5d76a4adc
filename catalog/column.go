package catalog

import "reflect"

// Field is a typed accessor identifying one field of record type T with
// host value type V: a (get, set) lens pair plus a stable identity (the
// *Field[T,V] pointer itself). Declare one package-level Field per
// mapped column and reuse its pointer as the accessor everywhere the
// field is referenced in a query — pointer identity is what the
// catalog and the serializer key on.
type Field[T any, V any] struct {
	name      string
	fieldType FieldType
	get       func(*T) V
	set       func(*T, V)
}

// NewField declares a typed column accessor. get/set operate on a
// pointer to the record; set may be nil for read-only derived fields
// (never usable as an insert/update target, only as a SELECT source).
func NewField[T any, V any](name string, ft FieldType, get func(*T) V, set func(*T, V)) *Field[T, V] {
	return &Field[T, V]{name: name, fieldType: ft, get: get, set: set}
}

// Name returns the column's declared name.
func (f *Field[T, V]) Name() string { return f.name }

// FieldType returns the column's declared scalar kind.
func (f *Field[T, V]) FieldType() FieldType { return f.fieldType }

// Get reads the field from a record.
func (f *Field[T, V]) Get(rec *T) V { return f.get(rec) }

// Set writes the field on a record. Panics if the field was declared
// read-only (set == nil); callers that only ever read mapped columns
// never hit this path.
func (f *Field[T, V]) Set(rec *T, v V) { f.set(rec, v) }

func (f *Field[T, V]) getAny(rec any) any {
	r := rec.(*T)
	return f.get(r)
}

// setAny routes a type-erased scalar back into the field. Row
// extraction hands over bare scalars (int64, string, …) even for
// columns whose host type V is a pointer (the nullable representation
// bind.ToDriverValue unwraps on the way out), so a pointer-typed V is
// reconstructed around the scalar here; NULL never reaches this path,
// it leaves the field untouched.
func (f *Field[T, V]) setAny(rec any, v any) {
	r := rec.(*T)
	if vv, ok := v.(V); ok {
		f.set(r, vv)
		return
	}
	vt := reflect.TypeOf((*V)(nil)).Elem()
	if vt.Kind() == reflect.Ptr && v != nil {
		rv := reflect.ValueOf(v)
		if rv.Type().ConvertibleTo(vt.Elem()) {
			p := reflect.New(vt.Elem())
			p.Elem().Set(rv.Convert(vt.Elem()))
			f.set(r, p.Interface().(V))
			return
		}
	}
	f.set(r, v.(V))
}

// ColumnDescriptor is the type-erased view of a Field, held in a
// TableDescriptor alongside every other column regardless of its host
// value type.
type ColumnDescriptor struct {
	Name        string
	FieldType   FieldType
	Nullable    bool
	Constraints []Constraint
	// Accessor is the *Field[T,V] pointer, used as the identity key in
	// Catalog.ResolveColumn and in every Column AST node.
	Accessor any
	getAny   func(rec any) any
	setAny   func(rec any, v any)
}

// Get reads the column's value from a record (record passed as *T any).
func (c ColumnDescriptor) Get(rec any) any { return c.getAny(rec) }

// Set writes the column's value on a record.
func (c ColumnDescriptor) Set(rec any, v any) { c.setAny(rec, v) }

// IsPrimaryKey reports whether this column carries a single-column
// PRIMARY KEY constraint.
func (c ColumnDescriptor) IsPrimaryKey() bool {
	_, ok := HasConstraint[PrimaryKeyConstraint](c.Constraints)
	return ok
}

// IsAutoIncrement reports whether this column's PRIMARY KEY constraint
// requests AUTOINCREMENT.
func (c ColumnDescriptor) IsAutoIncrement() bool {
	pk, ok := HasConstraint[PrimaryKeyConstraint](c.Constraints)
	return ok && pk.AutoIncrement
}

// Col builds the type-erased descriptor for a declared Field. Nullable
// marks the column as allowing NULL; a column is NOT NULL exactly when
// this flag is false. It is an explicit flag rather than inferred from
// V, since Go generics can't branch on "V is a pointer type" without
// runtime reflection.
func Col[T any, V any](f *Field[T, V], nullable bool, constraints ...Constraint) ColumnDescriptor {
	return ColumnDescriptor{
		Name:        f.name,
		FieldType:   f.fieldType,
		Nullable:    nullable,
		Constraints: constraints,
		Accessor:    f,
		getAny:      f.getAny,
		setAny:      f.setAny,
	}
}
