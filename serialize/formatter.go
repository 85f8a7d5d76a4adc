// Package serialize renders an ast.Node tree to parameterized SQL text.
// Every bindable leaf renders as "?"; bind.Walk must visit leaves in
// this exact left-to-right order for the resulting placeholder
// positions to line up with the values it appends.
package serialize

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/latticedb/sqlorm/ast"
	"github.com/latticedb/sqlorm/catalog"
)

// Options controls rendering.
type Options struct {
	Uppercase        bool // uppercase keywords
	NoTableQualifier bool // omit 'table'."column", render bare "column"
}

// DefaultOptions are the options used when none are supplied.
var DefaultOptions = Options{Uppercase: true}

type formatter struct {
	buf  bytes.Buffer
	opts Options
	cat  *catalog.Catalog
	err  error
}

// Serialize renders node to SQL text against the given catalog, which
// resolves Column accessors to their declared table and column names.
func Serialize(node ast.Node, cat *catalog.Catalog, opts Options) (string, error) {
	f := &formatter{opts: opts, cat: cat}
	f.format(node, true)
	if f.err != nil {
		return "", f.err
	}
	return f.buf.String(), nil
}

func (f *formatter) format(node ast.Node, topLevel bool) {
	if f.err != nil || node == nil {
		return
	}
	switch n := node.(type) {
	case *ast.Select:
		f.formatSelect(n, topLevel)
	case *ast.SetOp:
		f.formatSetOp(n)
	case *ast.Literal:
		f.write("?")
	case *ast.Raw:
		f.write(n.SQL)
	case *ast.Column:
		f.formatColumn(n)
	case *ast.Alias:
		f.format(n.Expr, false)
		f.write(" ")
		f.writeKeyword("AS")
		f.write(" ")
		f.writeColumnIdent(n.Name)
	case *ast.AggregateExpr:
		f.formatAggregate(n)
	case *ast.ScalarFunc:
		f.formatScalarFunc(n)
	case *ast.Arith:
		f.formatOperand(n.Left)
		f.write(" ")
		f.write(n.Op.Keyword())
		f.write(" ")
		f.formatOperand(n.Right)
	case *ast.Cmp:
		f.formatOperand(n.Left)
		f.write(" ")
		f.write(n.Op.Keyword())
		f.write(" ")
		f.formatOperand(n.Right)
	case *ast.BoolExpr:
		f.formatBoolExpr(n)
	case *ast.IsNull:
		f.formatOperand(n.Expr)
		f.write(" ")
		f.writeKeyword("IS")
		if n.Not {
			f.write(" ")
			f.writeKeyword("NOT")
		}
		f.write(" ")
		f.writeKeyword("NULL")
	case *ast.In:
		f.formatIn(n)
	case *ast.Between:
		f.formatBetween(n)
	case *ast.Like:
		f.formatLike(n)
	case *ast.Exists:
		if n.Not {
			f.writeKeyword("NOT")
			f.write(" ")
		}
		f.writeKeyword("EXISTS")
		f.write(" ")
		f.format(n.Select, false)
	case *ast.Cast:
		f.writeKeyword("CAST")
		f.write("(")
		f.format(n.Expr, false)
		f.write(" ")
		f.writeKeyword("AS")
		f.write(" ")
		f.write(n.Type)
		f.write(")")
	case *ast.Case:
		f.formatCase(n)
	case *ast.Collate:
		f.format(n.Expr, false)
		f.write(" ")
		f.writeKeyword("COLLATE")
		f.write(" ")
		f.write(n.Name)
	case *ast.Distinct:
		f.writeKeyword("DISTINCT")
		f.write(" ")
		f.format(n.Expr, false)
	default:
		f.err = fmt.Errorf("serialize: unhandled node type %T", node)
	}
}

// formatOperand wraps an operand in parentheses when its precedence
// relative to the enclosing operator would otherwise be ambiguous.
func (f *formatter) formatOperand(n ast.Node) {
	switch n.(type) {
	case *ast.BoolExpr, *ast.Arith:
		f.write("(")
		f.format(n, false)
		f.write(")")
	default:
		f.format(n, false)
	}
}

func (f *formatter) formatSelect(s *ast.Select, topLevel bool) {
	wrap := !topLevel
	if wrap {
		f.write("(")
	}
	f.writeKeyword("SELECT")
	if s.Distinct {
		f.write(" ")
		f.writeKeyword("DISTINCT")
	}
	f.write(" ")
	for i, col := range s.Columns {
		if i > 0 {
			f.write(", ")
		}
		f.format(col, false)
	}
	if s.From != nil {
		f.write(" ")
		f.writeKeyword("FROM")
		f.write(" ")
		f.formatTableRef(s.From)
	}
	for _, j := range s.Joins {
		f.write(" ")
		f.writeKeyword(j.Kind.Keyword())
		f.write(" ")
		f.formatTableRef(j.Target)
		if j.On != nil {
			f.write(" ")
			f.writeKeyword("ON")
			f.write(" ")
			f.format(j.On, false)
		} else if len(j.Using) > 0 {
			f.write(" ")
			f.writeKeyword("USING")
			f.write(" (")
			for i, u := range j.Using {
				if i > 0 {
					f.write(", ")
				}
				f.writeColumnIdent(u)
			}
			f.write(")")
		}
	}
	if s.Where != nil {
		f.write(" ")
		f.writeKeyword("WHERE")
		f.write(" ")
		f.format(s.Where, false)
	}
	if len(s.GroupBy) > 0 {
		f.write(" ")
		f.writeKeyword("GROUP BY")
		f.write(" ")
		for i, g := range s.GroupBy {
			if i > 0 {
				f.write(", ")
			}
			f.format(g, false)
		}
	}
	if s.Having != nil {
		f.write(" ")
		f.writeKeyword("HAVING")
		f.write(" ")
		f.format(s.Having, false)
	}
	if len(s.OrderBy) > 0 {
		f.write(" ")
		f.writeKeyword("ORDER BY")
		f.write(" ")
		for i, ob := range s.OrderBy {
			if i > 0 {
				f.write(", ")
			}
			f.format(ob.Expr, false)
			if ob.Collation != "" {
				f.write(" ")
				f.writeKeyword("COLLATE")
				f.write(" ")
				f.write(ob.Collation)
			}
			switch ob.Dir {
			case ast.OrderAsc:
				f.write(" ")
				f.writeKeyword("ASC")
			case ast.OrderDesc:
				f.write(" ")
				f.writeKeyword("DESC")
			}
		}
	}
	if s.Limit != nil {
		f.write(" ")
		f.formatLimit(s.Limit)
	}
	if wrap {
		f.write(")")
	}
}

func (f *formatter) formatLimit(l *ast.Limit) {
	f.writeKeyword("LIMIT")
	f.write(" ")
	if l.HasOffset && l.OffsetIsImplicit {
		f.format(l.Offset, false)
		f.write(", ")
		f.format(l.Count, false)
		return
	}
	f.format(l.Count, false)
	if l.HasOffset {
		f.write(" ")
		f.writeKeyword("OFFSET")
		f.write(" ")
		f.format(l.Offset, false)
	}
}

func (f *formatter) formatTableRef(t *ast.TableRef) {
	f.writeTableIdent(t.Name)
	if t.Alias != "" {
		f.write(" ")
		f.writeKeyword("AS")
		f.write(" ")
		f.writeTableIdent(t.Alias)
	}
}

func (f *formatter) formatSetOp(s *ast.SetOp) {
	f.format(s.Left, true)
	f.write(" ")
	f.writeKeyword(s.Kind.Keyword())
	f.write(" ")
	f.format(s.Right, true)
}

func (f *formatter) formatColumn(c *ast.Column) {
	if c.IsRowid {
		name := rowidKeyword(c.Rowid)
		if c.TableSet && !f.opts.NoTableQualifier {
			f.writeTableIdent(c.Table)
			f.write(".")
		}
		f.write(name)
		return
	}
	table, col, err := f.cat.ResolveColumn(c.Accessor)
	if err != nil {
		f.err = err
		return
	}
	tableName := table.Name
	if c.TableSet {
		tableName = c.Table
	}
	if !f.opts.NoTableQualifier {
		f.writeTableIdent(tableName)
		f.write(".")
	}
	f.writeColumnIdent(col.Name)
}

func rowidKeyword(r ast.RowidName) string {
	switch r {
	case ast.RowidOid:
		return "oid"
	case ast.RowidUnderscore:
		return "_rowid_"
	default:
		return "rowid"
	}
}

func (f *formatter) formatAggregate(a *ast.AggregateExpr) {
	f.write(a.Kind.Keyword())
	f.write("(")
	if a.Distinct {
		f.writeKeyword("DISTINCT")
		f.write(" ")
	}
	if a.Kind == ast.AggCountStar {
		f.write("*")
	} else {
		f.format(a.Arg, false)
		if a.Sep != nil {
			f.write(", ")
			f.format(a.Sep, false)
		}
	}
	f.write(")")
}

func (f *formatter) formatScalarFunc(s *ast.ScalarFunc) {
	f.writeFuncName(s.Name)
	f.write("(")
	for i, arg := range s.Args {
		if i > 0 {
			f.write(", ")
		}
		f.format(arg, false)
	}
	f.write(")")
}

func (f *formatter) formatBoolExpr(b *ast.BoolExpr) {
	if b.Op == ast.BoolNot {
		f.writeKeyword("NOT")
		f.write(" ")
		f.formatOperand(b.Left)
		return
	}
	f.formatOperand(b.Left)
	f.write(" ")
	if b.Op == ast.BoolAnd {
		f.writeKeyword("AND")
	} else {
		f.writeKeyword("OR")
	}
	f.write(" ")
	f.formatOperand(b.Right)
}

func (f *formatter) formatIn(n *ast.In) {
	f.formatOperand(n.Expr)
	if n.Not {
		f.write(" ")
		f.writeKeyword("NOT")
	}
	f.write(" ")
	f.writeKeyword("IN")
	f.write(" (")
	if n.Select != nil {
		f.format(n.Select, true)
	} else {
		for i, v := range n.Values {
			if i > 0 {
				f.write(", ")
			}
			f.format(v, false)
		}
	}
	f.write(")")
}

func (f *formatter) formatBetween(n *ast.Between) {
	f.formatOperand(n.Expr)
	if n.Not {
		f.write(" ")
		f.writeKeyword("NOT")
	}
	f.write(" ")
	f.writeKeyword("BETWEEN")
	f.write(" ")
	f.format(n.Low, false)
	f.write(" ")
	f.writeKeyword("AND")
	f.write(" ")
	f.format(n.High, false)
}

func (f *formatter) formatLike(n *ast.Like) {
	f.formatOperand(n.Expr)
	if n.Not {
		f.write(" ")
		f.writeKeyword("NOT")
	}
	f.write(" ")
	f.writeKeyword("LIKE")
	f.write(" ")
	f.format(n.Pattern, false)
}

func (f *formatter) formatCase(c *ast.Case) {
	f.writeKeyword("CASE")
	if c.Scrutinee != nil {
		f.write(" ")
		f.format(c.Scrutinee, false)
	}
	for _, w := range c.Whens {
		f.write(" ")
		f.writeKeyword("WHEN")
		f.write(" ")
		f.format(w.Cond, false)
		f.write(" ")
		f.writeKeyword("THEN")
		f.write(" ")
		f.format(w.Result, false)
	}
	if c.Else != nil {
		f.write(" ")
		f.writeKeyword("ELSE")
		f.write(" ")
		f.format(c.Else, false)
	}
	f.write(" ")
	f.writeKeyword("END")
}

func (f *formatter) write(s string) { f.buf.WriteString(s) }

func (f *formatter) writeKeyword(kw string) {
	if f.opts.Uppercase {
		f.buf.WriteString(strings.ToUpper(kw))
	} else {
		f.buf.WriteString(strings.ToLower(kw))
	}
}

// writeTableIdent renders a table name or table alias: always
// single-quoted, embedded single quotes doubled.
func (f *formatter) writeTableIdent(id string) {
	f.buf.WriteByte('\'')
	f.buf.WriteString(strings.ReplaceAll(id, "'", "''"))
	f.buf.WriteByte('\'')
}

// writeColumnIdent renders a column name or column alias: always
// double-quoted, embedded double quotes doubled.
func (f *formatter) writeColumnIdent(id string) {
	f.buf.WriteByte('"')
	f.buf.WriteString(strings.ReplaceAll(id, `"`, `""`))
	f.buf.WriteByte('"')
}

// writeFuncName renders a scalar function name, quoting only when the
// name would not scan as a bare identifier.
func (f *formatter) writeFuncName(name string) {
	if needsQuoting(name) {
		f.buf.WriteByte('"')
		f.buf.WriteString(strings.ReplaceAll(name, `"`, `""`))
		f.buf.WriteByte('"')
	} else {
		f.buf.WriteString(name)
	}
}

func needsQuoting(id string) bool {
	if len(id) == 0 {
		return true
	}
	ch := id[0]
	if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_') {
		return true
	}
	for i := 1; i < len(id); i++ {
		ch := id[i]
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '_') {
			return true
		}
	}
	return false
}
