package query

import (
	"fmt"
	"reflect"
)

// coerceValue converts a raw value scanned by database/sql (int64,
// float64, string, []byte, bool, or nil) into the declared projection
// type V. Select/SelectCompound decode scanned driver values, not
// values already typed as V: a uint32 or int32 projection still
// arrives over the wire as int64, and needs an explicit narrowing.
func coerceValue[V any](raw any) (V, error) {
	var zero V
	if raw == nil {
		return zero, nil
	}
	if v, ok := raw.(V); ok {
		return v, nil
	}
	target := reflect.TypeOf(zero)
	if target == nil {
		return zero, fmt.Errorf("query: cannot decode %T into %T", raw, zero)
	}
	rv := reflect.ValueOf(raw)
	if !rv.Type().ConvertibleTo(target) {
		return zero, fmt.Errorf("query: cannot decode %T into %T", raw, zero)
	}
	return rv.Convert(target).Interface().(V), nil
}
