package serialize

import "github.com/latticedb/sqlorm/ast"

// CollectTables returns every table referenced by a statement's FROM
// and JOIN clauses, in clause order. Compound statements (UNION,
// INTERSECT, EXCEPT) contribute every operand's tables in left-to-right
// order.
func CollectTables(node ast.Node) []ast.QualifiedName {
	var out []ast.QualifiedName
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch s := n.(type) {
		case *ast.Select:
			if s.From != nil {
				out = append(out, ast.QualifiedName{Table: s.From.Name, Alias: s.From.Alias})
			}
			for _, j := range s.Joins {
				if j.Target != nil {
					out = append(out, ast.QualifiedName{Table: j.Target.Name, Alias: j.Target.Alias})
				}
			}
		case *ast.SetOp:
			walk(s.Left)
			walk(s.Right)
		}
	}
	walk(node)
	return out
}
