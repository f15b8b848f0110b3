package sqlparser_test

import (
	"testing"

	"github.com/leapstack-labs/dbtrace/pkg/sqlparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, sql string) *sqlparser.SelectStmt {
	t.Helper()
	stmt, err := sqlparser.Parse(sql)
	require.NoError(t, err)
	require.NotNil(t, stmt.Body)
	return stmt
}

func TestSimpleSelect(t *testing.T) {
	stmt := parseOne(t, "SELECT id, name FROM users")
	core := stmt.Body.Left
	require.Len(t, core.Columns, 2)

	ref, ok := core.Columns[0].Expr.(*sqlparser.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "id", ref.Column)

	tn, ok := core.From.Source.(*sqlparser.TableName)
	require.True(t, ok)
	assert.Equal(t, "users", tn.Name)
}

func TestSelectStar(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM orders")
	core := stmt.Body.Left
	require.Len(t, core.Columns, 1)
	assert.True(t, core.Columns[0].Star)
}

func TestTableStar(t *testing.T) {
	stmt := parseOne(t, "SELECT o.*, c.name FROM orders o JOIN customers c ON o.customer_id = c.id")
	core := stmt.Body.Left
	require.Len(t, core.Columns, 2)
	assert.Equal(t, "o", core.Columns[0].TableStar)

	ref, ok := core.Columns[1].Expr.(*sqlparser.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "c", ref.Table)
	assert.Equal(t, "name", ref.Column)
}

func TestAliases(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantAlias string
	}{
		{"with AS", "SELECT id AS user_id FROM users", "user_id"},
		{"without AS", "SELECT id user_id FROM users", "user_id"},
		{"expression with AS", "SELECT amount * 2 AS doubled FROM orders", "doubled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			require.Len(t, stmt.Body.Left.Columns, 1)
			assert.Equal(t, tt.wantAlias, stmt.Body.Left.Columns[0].Alias)
		})
	}
}

func TestQualifiedTableName(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		catalog string
		schema  string
		table   string
		alias   string
	}{
		{"bare", "SELECT * FROM orders", "", "", "orders", ""},
		{"schema qualified", "SELECT * FROM analytics.orders", "", "analytics", "orders", ""},
		{"fully qualified", "SELECT * FROM prod.analytics.orders", "prod", "analytics", "orders", ""},
		{"aliased", "SELECT * FROM analytics.orders o", "", "analytics", "orders", "o"},
		{"aliased with AS", "SELECT * FROM analytics.orders AS o", "", "analytics", "orders", "o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			tn, ok := stmt.Body.Left.From.Source.(*sqlparser.TableName)
			require.True(t, ok)
			assert.Equal(t, tt.catalog, tn.Catalog)
			assert.Equal(t, tt.schema, tn.Schema)
			assert.Equal(t, tt.table, tn.Name)
			assert.Equal(t, tt.alias, tn.Alias)
		})
	}
}

func TestJoins(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantType sqlparser.JoinType
	}{
		{"inner", "SELECT * FROM a INNER JOIN b ON a.id = b.id", sqlparser.JoinInner},
		{"bare join", "SELECT * FROM a JOIN b ON a.id = b.id", sqlparser.JoinInner},
		{"left", "SELECT * FROM a LEFT JOIN b ON a.id = b.id", sqlparser.JoinLeft},
		{"left outer", "SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.id", sqlparser.JoinLeft},
		{"right", "SELECT * FROM a RIGHT JOIN b ON a.id = b.id", sqlparser.JoinRight},
		{"full", "SELECT * FROM a FULL OUTER JOIN b ON a.id = b.id", sqlparser.JoinFull},
		{"cross", "SELECT * FROM a CROSS JOIN b", sqlparser.JoinCross},
		{"comma", "SELECT * FROM a, b", sqlparser.JoinComma},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			require.Len(t, stmt.Body.Left.From.Joins, 1)
			assert.Equal(t, tt.wantType, stmt.Body.Left.From.Joins[0].Type)
		})
	}
}

func TestJoinUsing(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM a JOIN b USING (id, region)")
	require.Len(t, stmt.Body.Left.From.Joins, 1)
	join := stmt.Body.Left.From.Joins[0]
	assert.Equal(t, []string{"id", "region"}, join.Using)
	assert.Nil(t, join.Condition)
}

func TestSelfJoinAliases(t *testing.T) {
	stmt := parseOne(t, "SELECT e.name, m.name FROM employees e JOIN employees m ON e.manager_id = m.id")
	tn, ok := stmt.Body.Left.From.Source.(*sqlparser.TableName)
	require.True(t, ok)
	assert.Equal(t, "e", tn.Alias)

	right, ok := stmt.Body.Left.From.Joins[0].Right.(*sqlparser.TableName)
	require.True(t, ok)
	assert.Equal(t, "m", right.Alias)
}

func TestWithClause(t *testing.T) {
	stmt := parseOne(t, `
		WITH base AS (SELECT id, amount FROM orders),
		     totals AS (SELECT id, sum(amount) AS total FROM base GROUP BY id)
		SELECT * FROM totals`)

	require.NotNil(t, stmt.With)
	require.Len(t, stmt.With.CTEs, 2)
	assert.Equal(t, "base", stmt.With.CTEs[0].Name)
	assert.Equal(t, "totals", stmt.With.CTEs[1].Name)
	require.NotNil(t, stmt.With.CTEs[1].Select)
}

func TestCTEColumnList(t *testing.T) {
	stmt := parseOne(t, "WITH t (a, b) AS (SELECT 1, 2) SELECT a FROM t")
	require.NotNil(t, stmt.With)
	require.Len(t, stmt.With.CTEs, 1)
	assert.Equal(t, []string{"a", "b"}, stmt.With.CTEs[0].Columns)
}

func TestRecursiveCTE(t *testing.T) {
	stmt := parseOne(t, "WITH RECURSIVE nums AS (SELECT 1 AS n UNION ALL SELECT n + 1 FROM nums WHERE n < 10) SELECT n FROM nums")
	require.NotNil(t, stmt.With)
	assert.True(t, stmt.With.Recursive)
}

func TestSetOperations(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		op   sqlparser.SetOpType
	}{
		{"union", "SELECT a FROM t1 UNION SELECT a FROM t2", sqlparser.SetOpUnion},
		{"union all", "SELECT a FROM t1 UNION ALL SELECT a FROM t2", sqlparser.SetOpUnionAll},
		{"intersect", "SELECT a FROM t1 INTERSECT SELECT a FROM t2", sqlparser.SetOpIntersect},
		{"except", "SELECT a FROM t1 EXCEPT SELECT a FROM t2", sqlparser.SetOpExcept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			assert.Equal(t, tt.op, stmt.Body.Op)
			require.NotNil(t, stmt.Body.Right)
		})
	}
}

func TestDerivedTable(t *testing.T) {
	stmt := parseOne(t, "SELECT sub.total FROM (SELECT sum(amount) AS total FROM orders) sub")
	dt, ok := stmt.Body.Left.From.Source.(*sqlparser.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "sub", dt.Alias)
	require.NotNil(t, dt.Select)
}

func TestClauses(t *testing.T) {
	stmt := parseOne(t, `
		SELECT region, count(*) AS cnt
		FROM orders
		WHERE status = 'complete'
		GROUP BY region
		HAVING count(*) > 10
		ORDER BY cnt DESC
		LIMIT 5 OFFSET 10`)

	core := stmt.Body.Left
	assert.NotNil(t, core.Where)
	require.Len(t, core.GroupBy, 1)
	assert.NotNil(t, core.Having)
	require.Len(t, core.OrderBy, 1)
	assert.True(t, core.OrderBy[0].Desc)
	assert.NotNil(t, core.Limit)
	assert.NotNil(t, core.Offset)
}

func TestQualifyClause(t *testing.T) {
	stmt := parseOne(t, "SELECT id, row_number() OVER (PARTITION BY user_id ORDER BY ts DESC) AS rn FROM events QUALIFY rn = 1")
	assert.NotNil(t, stmt.Body.Left.Qualify)
}

func TestCaseExpression(t *testing.T) {
	stmt := parseOne(t, "SELECT CASE WHEN amount > 100 THEN 'big' WHEN amount > 10 THEN 'medium' ELSE 'small' END AS size FROM orders")
	ce, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.CaseExpr)
	require.True(t, ok)
	assert.Len(t, ce.Whens, 2)
	assert.NotNil(t, ce.Else)
	assert.Nil(t, ce.Operand)
}

func TestCaseWithOperand(t *testing.T) {
	stmt := parseOne(t, "SELECT CASE status WHEN 'a' THEN 1 ELSE 0 END FROM orders")
	ce, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.CaseExpr)
	require.True(t, ok)
	assert.NotNil(t, ce.Operand)
	assert.Len(t, ce.Whens, 1)
}

func TestCastExpressions(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantType string
	}{
		{"cast function", "SELECT CAST(amount AS DECIMAL(10, 2)) FROM orders", "DECIMAL(10, 2)"},
		{"double colon", "SELECT amount::integer FROM orders", "integer"},
		{"double precision", "SELECT amount::double precision FROM orders", "double precision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			ce, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.CastExpr)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, ce.TypeName)
		})
	}
}

func TestCastThenAlias(t *testing.T) {
	stmt := parseOne(t, "SELECT amount::integer cents FROM orders")
	item := stmt.Body.Left.Columns[0]
	assert.Equal(t, "cents", item.Alias)
	_, ok := item.Expr.(*sqlparser.CastExpr)
	assert.True(t, ok)
}

func TestWindowFunction(t *testing.T) {
	stmt := parseOne(t, "SELECT rank() OVER (PARTITION BY region ORDER BY amount DESC ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM orders")
	fn, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.FuncCall)
	require.True(t, ok)
	require.NotNil(t, fn.Window)
	assert.Len(t, fn.Window.PartitionBy, 1)
	assert.Len(t, fn.Window.OrderBy, 1)
}

func TestAggregateFilter(t *testing.T) {
	stmt := parseOne(t, "SELECT count(*) FILTER (WHERE status = 'ok') FROM orders")
	fn, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.FuncCall)
	require.True(t, ok)
	assert.True(t, fn.Star)
	assert.NotNil(t, fn.Filter)
}

func TestInExpressions(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM orders WHERE status IN ('a', 'b', 'c')")
	in, ok := stmt.Body.Left.Where.(*sqlparser.InExpr)
	require.True(t, ok)
	assert.Len(t, in.Values, 3)
	assert.False(t, in.Not)

	stmt = parseOne(t, "SELECT * FROM orders WHERE id NOT IN (SELECT order_id FROM refunds)")
	in, ok = stmt.Body.Left.Where.(*sqlparser.InExpr)
	require.True(t, ok)
	assert.True(t, in.Not)
	assert.NotNil(t, in.Query)
}

func TestBetween(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM orders WHERE amount BETWEEN 10 AND 100 AND status = 'ok'")
	// The top-level expression should be AND with BETWEEN on the left
	and, ok := stmt.Body.Left.Where.(*sqlparser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_AND, and.Op)
	_, ok = and.Left.(*sqlparser.BetweenExpr)
	assert.True(t, ok)
}

func TestLikeAndIsNull(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM users WHERE name LIKE 'a%' OR email IS NOT NULL")
	or, ok := stmt.Body.Left.Where.(*sqlparser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_OR, or.Op)

	like, ok := or.Left.(*sqlparser.LikeExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_LIKE, like.Op)

	isNull, ok := or.Right.(*sqlparser.IsNullExpr)
	require.True(t, ok)
	assert.True(t, isNull.Not)
}

func TestExistsSubquery(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)")
	ex, ok := stmt.Body.Left.Where.(*sqlparser.ExistsExpr)
	require.True(t, ok)
	require.NotNil(t, ex.Select)
}

func TestScalarSubquery(t *testing.T) {
	stmt := parseOne(t, "SELECT (SELECT max(amount) FROM orders) AS top FROM dual")
	_, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.SubqueryExpr)
	assert.True(t, ok)
}

func TestOperatorPrecedence(t *testing.T) {
	stmt := parseOne(t, "SELECT a + b * c FROM t")
	add, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_PLUS, add.Op)

	mul, ok := add.Right.(*sqlparser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_STAR, mul.Op)
}

func TestStringConcat(t *testing.T) {
	stmt := parseOne(t, "SELECT first_name || ' ' || last_name FROM users")
	outer, ok := stmt.Body.Left.Columns[0].Expr.(*sqlparser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, sqlparser.TOKEN_DPIPE, outer.Op)
}

func TestQuotedIdentifiers(t *testing.T) {
	stmt := parseOne(t, `SELECT "Order Total", `+"`weird name`"+` FROM "My Table"`)
	core := stmt.Body.Left
	require.Len(t, core.Columns, 2)

	ref, ok := core.Columns[0].Expr.(*sqlparser.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "Order Total", ref.Column)
}

func TestNotASelect(t *testing.T) {
	_, err := sqlparser.Parse("INSERT INTO t VALUES (1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a SELECT")
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := sqlparser.Parse("SELECT a FROM")
	require.Error(t, err)

	var perr *sqlparser.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "line")
}

func TestLateralSubquery(t *testing.T) {
	stmt := parseOne(t, "SELECT * FROM users u, LATERAL (SELECT * FROM orders o WHERE o.user_id = u.id) recent")
	require.Len(t, stmt.Body.Left.From.Joins, 1)
	lt, ok := stmt.Body.Left.From.Joins[0].Right.(*sqlparser.LateralTable)
	require.True(t, ok)
	assert.Equal(t, "recent", lt.Alias)
}
