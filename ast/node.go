// Package ast defines the internal, non-generic expression tree that the
// serializer and bind walker traverse. Nodes are produced by the query
// builder (package query), never by parsing SQL text: the tree is built
// once per call and is immutable afterward.
//
// Every node carries the two pieces of metadata the serializer and the
// bind walker both need: its shape (dispatched via a type switch in
// package serialize) and its children, visited in the exact order the
// serializer emits them. That shared order is the only coupling between
// the serializer and the bind walker, and it is what makes positional
// parameterization safe.
package ast

// Node is the base interface for every AST node.
type Node interface {
	// Bindable reports whether this node itself is a bindable leaf
	// (renders to "?" and contributes one positional parameter).
	// Only literal leaves are bindable; column/accessor leaves never are.
	Bindable() bool
}

// Parent is implemented by nodes with sub-expressions. Leaves don't
// implement it; Children treats a non-implementor as childless.
type Parent interface {
	Children() []Node
}

// Children returns a node's direct sub-expressions in left-to-right
// serialization order. Leaves return nil.
func Children(n Node) []Node {
	if p, ok := n.(Parent); ok {
		return p.Children()
	}
	return nil
}

// ResultKind is a coarse runtime tag for a node's host-language result
// type, used where Go generics don't extend across heterogeneous
// collections (e.g. a table's column list, or a SELECT's column list).
// The precise static type lives one layer up, in query.Expr[V].
type ResultKind int

const (
	KindInvalid ResultKind = iota
	KindInt64
	KindUint64
	KindFloat64
	KindText
	KindBlob
	KindBool
	KindRow  // a record type produced by a row-producing node
	KindVoid // statements with no scalar result
)

// Statement is a top-level node that can be executed on its own
// (*Select and *SetOp; DML statements are built directly by the
// CRUD facade and never exposed as ast.Statement values).
type Statement interface {
	Node
	statementNode()
}
