// Package bind turns a query AST into the ordered parameter slice
// database/sql expects, and decodes result rows back into records. Walk
// visits bindable leaves in exactly the order serialize.Serialize
// emits "?" placeholders for them, so the two never drift out of sync.
package bind

import (
	"fmt"
	"reflect"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
)

type walker struct {
	cat *catalog.Catalog
	out []any
	err error
}

// Walk collects one entry per bindable leaf in node, left to right.
// Where a literal stands directly opposite a column reference (a Cmp,
// Between, Like, or In operand), its Go value is checked against the
// column's declared catalog.FieldType before being appended.
func Walk(node ast.Node, cat *catalog.Catalog) ([]any, error) {
	w := &walker{cat: cat}
	w.walk(node)
	if w.err != nil {
		return nil, w.err
	}
	return w.out, nil
}

func (w *walker) walk(n ast.Node) {
	if n == nil || w.err != nil {
		return
	}
	switch node := n.(type) {
	case *ast.Literal:
		w.emit(node, catalog.FieldInvalid)
		return
	case *ast.Cmp:
		w.walkPaired(node.Left, node.Right)
		return
	case *ast.Between:
		w.walk(node.Expr)
		ft := inferType(node.Expr, w.cat)
		w.emitIfLiteral(node.Low, ft)
		w.emitIfLiteral(node.High, ft)
		return
	case *ast.Like:
		w.walkPaired(node.Expr, node.Pattern)
		return
	case *ast.In:
		w.walk(node.Expr)
		ft := inferType(node.Expr, w.cat)
		for _, v := range node.Values {
			w.emitIfLiteral(v, ft)
		}
		if node.Select != nil {
			w.walk(node.Select)
		}
		return
	}
	if n.Bindable() {
		if lit, ok := n.(*ast.Literal); ok {
			w.emit(lit, catalog.FieldInvalid)
		}
		return
	}
	for _, c := range ast.Children(n) {
		w.walk(c)
	}
}

func (w *walker) walkPaired(a, b ast.Node) {
	ft := inferType(a, w.cat)
	if ft == catalog.FieldInvalid {
		ft = inferType(b, w.cat)
	}
	w.emitIfLiteral(a, ft)
	w.emitIfLiteral(b, ft)
}

func (w *walker) emitIfLiteral(n ast.Node, ft catalog.FieldType) {
	if lit, ok := n.(*ast.Literal); ok {
		w.emit(lit, ft)
		return
	}
	w.walk(n)
}

func (w *walker) emit(lit *ast.Literal, ft catalog.FieldType) {
	if lit.Value != nil && ft != catalog.FieldInvalid && !valueMatchesType(lit.Value, ft) {
		w.err = &errs.BindFailed{
			Index: len(w.out),
			Err:   fmt.Errorf("value %v (%T) does not match column type %s", lit.Value, lit.Value, ft),
		}
		return
	}
	w.out = append(w.out, lit.Value)
}

// inferType resolves the declared column type standing behind an
// expression, when there is one: a direct column reference, a CAST, or
// a COLLATE wrapping either. Anything else (arithmetic, function
// calls, nested booleans) returns FieldInvalid, meaning "don't check".
func inferType(n ast.Node, cat *catalog.Catalog) catalog.FieldType {
	switch node := n.(type) {
	case *ast.Column:
		if node.IsRowid {
			return catalog.FieldInt64
		}
		_, col, err := cat.ResolveColumn(node.Accessor)
		if err != nil {
			return catalog.FieldInvalid
		}
		return col.FieldType
	case *ast.Cast:
		return sqlTypeToFieldType(node.Type)
	case *ast.Collate:
		return inferType(node.Expr, cat)
	default:
		return catalog.FieldInvalid
	}
}

func sqlTypeToFieldType(sqlType string) catalog.FieldType {
	switch sqlType {
	case "INTEGER":
		return catalog.FieldInt64
	case "REAL":
		return catalog.FieldFloat64
	case "TEXT":
		return catalog.FieldText
	case "BLOB":
		return catalog.FieldBlob
	default:
		return catalog.FieldInvalid
	}
}

func valueMatchesType(v any, ft catalog.FieldType) bool {
	// Nullable columns may carry pointer-typed literal values;
	// database/sql dereferences them at bind time, so check the pointee.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return true
		}
		v = rv.Elem().Interface()
	}
	switch ft {
	case catalog.FieldInt32, catalog.FieldInt64:
		switch v.(type) {
		case int, int8, int16, int32, int64:
			return true
		}
		return false
	case catalog.FieldUint32, catalog.FieldUint64:
		switch v.(type) {
		case uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case catalog.FieldFloat64:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case catalog.FieldText:
		_, ok := v.(string)
		return ok
	case catalog.FieldBlob:
		_, ok := v.([]byte)
		return ok
	case catalog.FieldBool:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}
