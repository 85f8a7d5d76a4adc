package ast

// TableRef identifies one table occurrence in a FROM/JOIN clause by its
// declared name and an optional alias. RecordType can hold the
// reflect.Type of the mapped record; the query builder does not set it
// and the serializer does not read it (column qualifiers are resolved
// through the catalog).
type TableRef struct {
	Name       string
	Alias      string
	RecordType any // reflect.Type
}

func (*TableRef) Bindable() bool { return false }

// QualifiedName is what the serializer's table-collection pass returns:
// the rendered table name together with whatever alias (if any) stands
// in for it in the emitted SQL.
type QualifiedName struct {
	Table string
	Alias string
}

// JoinKind enumerates the supported join keywords.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinLeftOuter
	JoinCross
	JoinNatural
	JoinPlain // bare "JOIN"
)

func (k JoinKind) Keyword() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinLeftOuter:
		return "LEFT OUTER JOIN"
	case JoinCross:
		return "CROSS JOIN"
	case JoinNatural:
		return "NATURAL JOIN"
	default:
		return "JOIN"
	}
}

// Join is one join clause against Target, constrained by On or Using
// (mutually exclusive; both nil for CROSS/NATURAL joins).
type Join struct {
	Kind   JoinKind
	Target *TableRef
	On     Node
	Using  []string
}

func (*Join) Bindable() bool { return false }
func (j *Join) Children() []Node {
	if j.On != nil {
		return []Node{j.On}
	}
	return nil
}

// OrderDir is the tri-state ORDER BY direction: no keyword emitted
// when unspecified.
type OrderDir int

const (
	OrderUnspecified OrderDir = iota
	OrderAsc
	OrderDesc
)

// OrderTerm is one ORDER BY item.
type OrderTerm struct {
	Expr      Node
	Collation string // optional, rendered before direction
	Dir       OrderDir
}

// Limit renders "LIMIT <Count>[ OFFSET <Offset>]" or, when
// OffsetIsImplicit is set, "LIMIT <Offset>, <Count>".
type Limit struct {
	Count            Node
	Offset           Node // nil when HasOffset is false
	HasOffset        bool
	OffsetIsImplicit bool
}

func (*Limit) Bindable() bool { return false }
func (l *Limit) Children() []Node {
	if l.HasOffset {
		if l.OffsetIsImplicit {
			return []Node{l.Offset, l.Count}
		}
		return []Node{l.Count, l.Offset}
	}
	return []Node{l.Count}
}

// SetOpKind enumerates compound SELECT operators.
type SetOpKind int

const (
	SetUnion SetOpKind = iota
	SetUnionAll
	SetIntersect
	SetExcept
)

func (k SetOpKind) Keyword() string {
	switch k {
	case SetUnion:
		return "UNION"
	case SetUnionAll:
		return "UNION ALL"
	case SetIntersect:
		return "INTERSECT"
	case SetExcept:
		return "EXCEPT"
	default:
		return ""
	}
}

// SetOp combines two row-producing nodes (*Select or nested *SetOp).
// The serializer recognizes SetOp operands and skips the
// parenthesization it would otherwise apply to a nested SELECT.
type SetOp struct {
	Kind  SetOpKind
	Left  Node
	Right Node
}

func (*SetOp) statementNode()     {}
func (*SetOp) Bindable() bool     { return false }
func (s *SetOp) Children() []Node { return []Node{s.Left, s.Right} }
