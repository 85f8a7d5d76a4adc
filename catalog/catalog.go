package catalog

import (
	"reflect"

	"github.com/latticedb/sqlorm/errs"
)

// Catalog is the registry of declared tables, keyed by the Go record
// type they map. One Catalog backs one engine.Connection; tables are
// registered once at startup via Register and never removed.
type Catalog struct {
	byType map[reflect.Type]*TableDescriptor
	byName map[string]*TableDescriptor
	order  []*TableDescriptor
}

// New builds an empty Catalog.
func New() *Catalog {
	return &Catalog{
		byType: make(map[reflect.Type]*TableDescriptor),
		byName: make(map[string]*TableDescriptor),
	}
}

// Register adds a table to the catalog. Panics on a duplicate record
// type or duplicate table name, since both indicate a programming
// error in the caller's table declarations, not a runtime condition.
func (c *Catalog) Register(t *TableDescriptor) {
	rt := reflect.TypeOf(t.RecordType)
	if _, exists := c.byType[rt]; exists {
		panic("sqlorm: record type " + rt.String() + " registered twice")
	}
	if _, exists := c.byName[t.Name]; exists {
		panic("sqlorm: table name " + t.Name + " registered twice")
	}
	c.byType[rt] = t
	c.byName[t.Name] = t
	c.order = append(c.order, t)
}

// GetTable looks up the TableDescriptor mapped to record type T.
func GetTable[T any](c *Catalog) (*TableDescriptor, error) {
	rt := reflect.TypeOf((*T)(nil))
	t, ok := c.byType[rt]
	if !ok {
		return nil, &errs.TypeNotMapped{Type: rt.Elem().String()}
	}
	return t, nil
}

// FindTableName returns the table name mapped to record type T.
func FindTableName[T any](c *Catalog) (string, error) {
	t, err := GetTable[T](c)
	if err != nil {
		return "", err
	}
	return t.Name, nil
}

// TableByName looks up a TableDescriptor by its SQL name.
func (c *Catalog) TableByName(name string) (*TableDescriptor, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// ResolveColumn finds the column and owning table for an accessor
// (a *Field[T,V] pointer). Used by the serializer and bind walker to
// turn an ast.Column's Accessor into a concrete name and type.
func (c *Catalog) ResolveColumn(accessor any) (*TableDescriptor, ColumnDescriptor, error) {
	for _, t := range c.order {
		if col, ok := t.ColumnByAccessor(accessor); ok {
			return t, col, nil
		}
	}
	return nil, ColumnDescriptor{}, &errs.ColumnNotFound{Accessor: fmtAccessor(accessor)}
}

// ForEach visits every registered table in registration order. Used by
// migrate.SyncSchema to walk the whole catalog deterministically.
func (c *Catalog) ForEach(fn func(*TableDescriptor)) {
	for _, t := range c.order {
		fn(t)
	}
}

func fmtAccessor(accessor any) string {
	return reflect.ValueOf(accessor).Type().String()
}
