package bind

import (
	"database/sql"
	"fmt"

	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
)

// Extract scans the current row of rows into a new T, using cols (in
// the same order as the row-producing SELECT's column list) to route
// each scanned value to the right field via its Set accessor. Call
// rows.Next() before Extract; it does not advance the cursor itself.
func Extract[T any](rows *sql.Rows, cols []catalog.ColumnDescriptor) (T, error) {
	var rec T
	dest := make([]any, len(cols))
	raw := make([]any, len(cols))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}
	for i, col := range cols {
		if raw[i] == nil {
			if !col.Nullable {
				return rec, &errs.UnexpectedNull{Column: col.Name}
			}
			continue
		}
		val, err := convert(raw[i], col.FieldType)
		if err != nil {
			return rec, fmt.Errorf("bind: column %q: %w", col.Name, err)
		}
		col.Set(&rec, val)
	}
	return rec, nil
}

// ConvertValue exposes the per-field-type scalar conversion Extract uses
// internally, for callers that decode a single aggregate/min/max result
// against a declared FieldType without a full record to populate.
func ConvertValue(raw any, ft catalog.FieldType) (any, error) {
	return convert(raw, ft)
}

func convert(raw any, ft catalog.FieldType) (any, error) {
	switch ft {
	case catalog.FieldInt32:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to INTEGER", raw)
		}
		return int32(n), nil
	case catalog.FieldInt64:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to INTEGER", raw)
		}
		return n, nil
	case catalog.FieldUint32:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to INTEGER", raw)
		}
		return uint32(n), nil
	case catalog.FieldUint64:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to INTEGER", raw)
		}
		return uint64(n), nil
	case catalog.FieldFloat64:
		f, ok := asFloat64(raw)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to REAL", raw)
		}
		return f, nil
	case catalog.FieldText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return nil, fmt.Errorf("cannot convert %T to TEXT", raw)
	case catalog.FieldBlob:
		switch v := raw.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
		return nil, fmt.Errorf("cannot convert %T to BLOB", raw)
	case catalog.FieldBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
		return nil, fmt.Errorf("cannot convert %T to boolean", raw)
	default:
		return raw, nil
	}
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func asFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}
