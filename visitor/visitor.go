// Package visitor provides generic depth-first AST traversal built on
// ast.Children (the Children() method of nodes that implement
// ast.Parent). Unlike a type-switch walker, it needs no
// per-node-kind case: any node implementing ast.Parent is descended into
// automatically, so adding a node kind never requires a visitor change.
package visitor

import "github.com/latticedb/sqlorm/ast"

// Visitor is the interface for AST traversal.
type Visitor interface {
	Visit(node ast.Node) Visitor
}

// Walk traverses an AST in depth-first order, following the same
// left-to-right child order serialize and bind use.
func Walk(v Visitor, node ast.Node) {
	if node == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}
	for _, child := range ast.Children(node) {
		Walk(v, child)
	}
}

type funcVisitor struct {
	fn func(ast.Node) bool
}

func (v *funcVisitor) Visit(node ast.Node) Visitor {
	if v.fn(node) {
		return v
	}
	return nil
}

// Inspect calls fn for every node in the tree rooted at node. If fn
// returns false, that node's children are skipped.
func Inspect(node ast.Node, fn func(ast.Node) bool) {
	Walk(&funcVisitor{fn: fn}, node)
}

// CollectColumns returns every *ast.Column reachable from node, in
// traversal order, including duplicates. Used by sqlorm.UpdateAll to
// reject assignment lists spanning more than one table.
func CollectColumns(node ast.Node) []*ast.Column {
	var out []*ast.Column
	Inspect(node, func(n ast.Node) bool {
		if c, ok := n.(*ast.Column); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}
