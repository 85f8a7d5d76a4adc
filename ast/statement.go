package ast

// Select is the row-producing query node. Every clause is optional
// except Columns. From may be nil only for literal-only selects (not
// used by the CRUD facade, kept for completeness of the compiler).
type Select struct {
	Distinct bool
	Columns  []Node // Alias or bare Node
	From     *TableRef
	Joins    []*Join
	Where    Node
	GroupBy  []Node
	Having   Node
	OrderBy  []OrderTerm
	Limit    *Limit

	// TopLevel is false when this Select appears nested (a subquery, an
	// IN/EXISTS operand, or the operand of a SetOp). The serializer does
	// not read this field: it decides parenthesization from the Select's
	// position, wrapping subqueries in parentheses and rendering SetOp
	// operands (and the SetOp itself) without them.
	TopLevel bool
}

func (*Select) statementNode() {}
func (*Select) Bindable() bool { return false }

func (s *Select) Children() []Node {
	var out []Node
	out = append(out, s.Columns...)
	for _, j := range s.Joins {
		if j.On != nil {
			out = append(out, j.On)
		}
	}
	if s.Where != nil {
		out = append(out, s.Where)
	}
	out = append(out, s.GroupBy...)
	if s.Having != nil {
		out = append(out, s.Having)
	}
	for _, ob := range s.OrderBy {
		out = append(out, ob.Expr)
	}
	if s.Limit != nil {
		out = append(out, s.Limit.Children()...)
	}
	return out
}
