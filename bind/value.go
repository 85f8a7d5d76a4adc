package bind

import (
	"fmt"
	"reflect"

	"github.com/latticedb/sqlorm/catalog"
)

// ToDriverValue converts a Go value read from a mapped record field
// (via ColumnDescriptor.Get) into a database/sql driver-compatible
// value for binding as a statement parameter. Symmetric to Extract's
// convert, which goes the other direction. A nullable field's Go value
// may be a pointer; a nil pointer and a nil interface both bind as SQL
// NULL.
func ToDriverValue(v any, ft catalog.FieldType) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
		v = rv.Interface()
	}
	switch ft {
	case catalog.FieldInt32, catalog.FieldInt64, catalog.FieldUint32, catalog.FieldUint64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint()), nil
		}
		return nil, fmt.Errorf("bind: cannot bind %T as INTEGER", v)
	case catalog.FieldFloat64:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}
		return nil, fmt.Errorf("bind: cannot bind %T as REAL", v)
	case catalog.FieldText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("bind: cannot bind %T as TEXT", v)
		}
		return s, nil
	case catalog.FieldBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("bind: cannot bind %T as BLOB", v)
		}
		return b, nil
	case catalog.FieldBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("bind: cannot bind %T as boolean", v)
		}
		return b, nil
	default:
		return v, nil
	}
}
