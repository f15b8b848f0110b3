package columns

import (
	"strings"

	"github.com/leapstack-labs/dbtrace/pkg/sqlparser"
)

// Render prints an expression back to SQL text. The output is normalized
// rather than byte-faithful to the input; it is meant for display in trace
// results, not for re-parsing guarantees.
func Render(expr sqlparser.Expr) string {
	var sb strings.Builder
	renderExpr(&sb, expr)
	return sb.String()
}

func renderExpr(sb *strings.Builder, expr sqlparser.Expr) {
	switch e := expr.(type) {
	case nil:
		return

	case *sqlparser.ColumnRef:
		if e.Table != "" {
			sb.WriteString(e.Table)
			sb.WriteString(".")
		}
		sb.WriteString(e.Column)

	case *sqlparser.Literal:
		if e.Type == sqlparser.LiteralString {
			sb.WriteString("'")
			sb.WriteString(e.Value)
			sb.WriteString("'")
		} else {
			sb.WriteString(e.Value)
		}

	case *sqlparser.StarExpr:
		if e.Table != "" {
			sb.WriteString(e.Table)
			sb.WriteString(".")
		}
		sb.WriteString("*")

	case *sqlparser.BinaryExpr:
		renderExpr(sb, e.Left)
		sb.WriteString(" ")
		sb.WriteString(e.Op.String())
		sb.WriteString(" ")
		renderExpr(sb, e.Right)

	case *sqlparser.UnaryExpr:
		switch e.Op {
		case sqlparser.TOKEN_NOT:
			sb.WriteString("NOT ")
		default:
			sb.WriteString(e.Op.String())
		}
		renderExpr(sb, e.Expr)

	case *sqlparser.FuncCall:
		sb.WriteString(e.Name)
		sb.WriteString("(")
		if e.Distinct {
			sb.WriteString("DISTINCT ")
		}
		if e.Star {
			sb.WriteString("*")
		}
		for i, arg := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderExpr(sb, arg)
		}
		sb.WriteString(")")
		if e.Window != nil {
			sb.WriteString(" OVER (")
			renderWindow(sb, e.Window)
			sb.WriteString(")")
		}

	case *sqlparser.CaseExpr:
		sb.WriteString("CASE")
		if e.Operand != nil {
			sb.WriteString(" ")
			renderExpr(sb, e.Operand)
		}
		for _, w := range e.Whens {
			sb.WriteString(" WHEN ")
			renderExpr(sb, w.Condition)
			sb.WriteString(" THEN ")
			renderExpr(sb, w.Result)
		}
		if e.Else != nil {
			sb.WriteString(" ELSE ")
			renderExpr(sb, e.Else)
		}
		sb.WriteString(" END")

	case *sqlparser.CastExpr:
		sb.WriteString("CAST(")
		renderExpr(sb, e.Expr)
		sb.WriteString(" AS ")
		sb.WriteString(e.TypeName)
		sb.WriteString(")")

	case *sqlparser.InExpr:
		renderExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (")
		if e.Query != nil {
			sb.WriteString("...")
		}
		for i, v := range e.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderExpr(sb, v)
		}
		sb.WriteString(")")

	case *sqlparser.BetweenExpr:
		renderExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" BETWEEN ")
		renderExpr(sb, e.Low)
		sb.WriteString(" AND ")
		renderExpr(sb, e.High)

	case *sqlparser.IsNullExpr:
		renderExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}

	case *sqlparser.IsBoolExpr:
		renderExpr(sb, e.Expr)
		sb.WriteString(" IS ")
		if e.Not {
			sb.WriteString("NOT ")
		}
		if e.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}

	case *sqlparser.LikeExpr:
		renderExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		if e.Op == sqlparser.TOKEN_ILIKE {
			sb.WriteString(" ILIKE ")
		} else {
			sb.WriteString(" LIKE ")
		}
		renderExpr(sb, e.Pattern)

	case *sqlparser.ParenExpr:
		sb.WriteString("(")
		renderExpr(sb, e.Expr)
		sb.WriteString(")")

	case *sqlparser.SubqueryExpr:
		sb.WriteString("(SELECT ...)")

	case *sqlparser.ExistsExpr:
		sb.WriteString("EXISTS (SELECT ...)")
	}
}

func renderWindow(sb *strings.Builder, w *sqlparser.WindowSpec) {
	if len(w.PartitionBy) > 0 {
		sb.WriteString("PARTITION BY ")
		for i, p := range w.PartitionBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderExpr(sb, p)
		}
	}
	if len(w.OrderBy) > 0 {
		if len(w.PartitionBy) > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("ORDER BY ")
		for i, o := range w.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderExpr(sb, o.Expr)
			if o.Desc {
				sb.WriteString(" DESC")
			}
		}
	}
}
