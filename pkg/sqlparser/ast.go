package sqlparser

// Statement is any top-level SQL statement.
type Statement interface {
	stmtNode()
}

// Expr is any expression node.
type Expr interface {
	exprNode()
}

// TableRef is anything that can appear as a source in a FROM clause.
type TableRef interface {
	tableRefNode()
}

// SelectStmt is a full query: an optional WITH clause followed by the
// select body.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

// WithClause holds the CTEs declared ahead of a query.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is one named query in a WITH clause.
type CTE struct {
	Name    string
	Columns []string // optional explicit column list: name (a, b) AS (...)
	Select  *SelectStmt
}

// SelectBody chains SELECT cores through set operations. A plain query
// has Op SetOpNone and a nil Right.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOpType
	All   bool
	Right *SelectBody
}

// SetOpType names the set operation joining two select bodies.
type SetOpType string

const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpUnionAll  SetOpType = "UNION ALL"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore is a single SELECT clause with its trailing clauses.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Qualify  Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem is one projection in the SELECT list. Exactly one of
// Star, TableStar, or Expr is set.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string // AS alias
}

// FromClause is the first source plus any joined ones.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join attaches one more source to a FROM clause. Condition and Using
// are mutually exclusive.
type Join struct {
	Type      JoinType
	Right     TableRef
	Condition Expr     // ON clause
	Using     []string // USING (col1, col2) columns
}

// JoinType is the SQL keyword naming the join flavor.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	// JoinComma is the implicit cross join written with a comma.
	JoinComma JoinType = ","
)

// OrderByItem is one sort key in an ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default
}

// TableName is a possibly qualified table reference.
type TableName struct {
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

// Qualified renders the dotted table name, alias excluded.
func (t *TableName) Qualified() string {
	s := t.Name
	if t.Schema != "" {
		s = t.Schema + "." + s
	}
	if t.Catalog != "" {
		s = t.Catalog + "." + s
	}
	return s
}

// DerivedTable is a subquery used as a FROM source.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

// LateralTable is a LATERAL subquery in a FROM clause.
type LateralTable struct {
	Select *SelectStmt
	Alias  string
}

// ColumnRef is a column reference, optionally qualified by a table
// name or alias.
type ColumnRef struct {
	Table  string
	Column string
}

// LiteralType classifies a literal value.
type LiteralType int

const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a constant value in an expression.
type Literal struct {
	Type  LiteralType
	Value string
}

// BinaryExpr is an infix operator applied to two operands.
type BinaryExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

// UnaryExpr is a prefix operator applied to one operand.
type UnaryExpr struct {
	Op   TokenType
	Expr Expr
}

// FuncCall is a function invocation, window functions included.
type FuncCall struct {
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool        // COUNT(*)
	Window   *WindowSpec // OVER clause
	Filter   Expr        // FILTER (WHERE ...) clause
}

// WindowSpec is the inside of an OVER clause. Frame specifications are
// consumed but not modeled.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr is a CASE expression, searched or with an operand.
type CaseExpr struct {
	Operand Expr // CASE operand WHEN ... (optional)
	Whens   []WhenClause
	Else    Expr
}

// WhenClause is one WHEN/THEN arm of a CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr covers both CAST(x AS t) and the x::t shorthand.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

// InExpr is an IN test against either a value list or a subquery.
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr      // IN (1, 2, 3)
	Query  *SelectStmt // IN (SELECT ...)
}

// BetweenExpr is a BETWEEN range test.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// IsNullExpr is an IS [NOT] NULL test.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// IsBoolExpr is an IS [NOT] TRUE/FALSE test.
type IsBoolExpr struct {
	Expr  Expr
	Not   bool
	Value bool
}

// LikeExpr is a LIKE or ILIKE pattern match.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
	Op      TokenType // TOKEN_LIKE or TOKEN_ILIKE
}

// ParenExpr is an explicitly parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

// StarExpr is a bare * or t.* used as an expression.
type StarExpr struct {
	Table string // optional table qualifier for t.*
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

// ExistsExpr is an [NOT] EXISTS test.
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

func (*SelectStmt) stmtNode() {}

func (*TableName) tableRefNode()    {}
func (*DerivedTable) tableRefNode() {}
func (*LateralTable) tableRefNode() {}

func (*ColumnRef) exprNode()    {}
func (*Literal) exprNode()      {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*FuncCall) exprNode()     {}
func (*CaseExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*InExpr) exprNode()       {}
func (*BetweenExpr) exprNode()  {}
func (*IsNullExpr) exprNode()   {}
func (*IsBoolExpr) exprNode()   {}
func (*LikeExpr) exprNode()     {}
func (*ParenExpr) exprNode()    {}
func (*StarExpr) exprNode()     {}
func (*SubqueryExpr) exprNode() {}
func (*ExistsExpr) exprNode()   {}
