package sqlparser

import "fmt"

// Resolver walks the AST and builds scopes:
// - CTE definitions (names and columns)
// - Table references in FROM clauses
// - Derived table and LATERAL subquery registration
type Resolver struct {
	schema Schema
}

// NewResolver creates a new resolver with the given schema.
func NewResolver(schema Schema) *Resolver {
	return &Resolver{schema: schema}
}

// Resolve builds scopes for a SELECT statement and returns the root scope.
func (r *Resolver) Resolve(stmt *SelectStmt) (*Scope, error) {
	if stmt == nil {
		return nil, &ResolveError{Message: "nil statement"}
	}

	scope := NewScope(r.schema)

	if stmt.With != nil {
		if err := r.resolveCTEs(scope, stmt.With); err != nil {
			return nil, err
		}
	}

	if err := r.resolveSelectBody(scope, stmt.Body); err != nil {
		return nil, err
	}

	return scope, nil
}

// resolveCTEs resolves all CTEs in a WITH clause.
// CTEs can reference previously defined CTEs (forward references not allowed).
func (r *Resolver) resolveCTEs(scope *Scope, with *WithClause) error {
	for _, cte := range with.CTEs {
		// Child scope so the CTE body can see previously defined CTEs
		cteScope := scope.Child()

		if cte.Select == nil {
			continue
		}

		if cte.Select.With != nil {
			if err := r.resolveCTEs(cteScope, cte.Select.With); err != nil {
				return err
			}
		}

		if cte.Select.Body != nil {
			if err := r.resolveSelectBody(cteScope, cte.Select.Body); err != nil {
				return err
			}

			columns := cte.Columns
			if len(columns) == 0 {
				columns = r.extractSelectColumns(cte.Select.Body)
			}

			underlyingSources := r.collectUnderlyingSources(cteScope)
			scope.RegisterCTEWithSources(cte.Name, columns, underlyingSources)
		}
	}
	return nil
}

// collectUnderlyingSources collects all physical table sources from a scope,
// tracing through CTEs and derived tables.
func (r *Resolver) collectUnderlyingSources(scope *Scope) []string {
	seen := make(map[string]struct{})
	var sources []string

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			sources = append(sources, name)
		}
	}

	for _, entry := range scope.AllEntries() {
		switch entry.Type {
		case ScopeTable:
			name := entry.SourceTable
			if name == "" {
				name = entry.Name
			}
			add(name)
		case ScopeCTE, ScopeDerived:
			for _, underlying := range entry.UnderlyingSources {
				add(underlying)
			}
		}
	}

	return sources
}

// resolveSelectBody resolves a SELECT body (may include set operations).
func (r *Resolver) resolveSelectBody(scope *Scope, body *SelectBody) error {
	if body == nil {
		return nil
	}

	if body.Left != nil {
		if err := r.resolveSelectCore(scope, body.Left); err != nil {
			return err
		}
	}

	// Set operation sides get their own scope
	if body.Right != nil {
		rightScope := scope.Child()
		if err := r.resolveSelectBody(rightScope, body.Right); err != nil {
			return err
		}
	}

	return nil
}

// ResolveCore registers a single SELECT core's FROM clause into scope.
// Callers walking set operations use it to resolve each side against its
// own child scope.
func (r *Resolver) ResolveCore(scope *Scope, core *SelectCore) error {
	return r.resolveSelectCore(scope, core)
}

// resolveSelectCore resolves the FROM clause of a single SELECT.
// Expression resolution happens during extraction, not here.
func (r *Resolver) resolveSelectCore(scope *Scope, core *SelectCore) error {
	if core == nil || core.From == nil {
		return nil
	}

	if err := r.resolveTableRef(scope, core.From.Source); err != nil {
		return err
	}

	for _, join := range core.From.Joins {
		if err := r.resolveTableRef(scope, join.Right); err != nil {
			return err
		}
	}

	return nil
}

// resolveTableRef resolves a table reference and registers it in scope.
func (r *Resolver) resolveTableRef(scope *Scope, ref TableRef) error {
	if ref == nil {
		return nil
	}

	switch t := ref.(type) {
	case *TableName:
		if cte, ok := scope.LookupCTE(t.Name); ok {
			// Reference to a CTE, possibly under an alias; propagate its
			// columns and underlying sources.
			entry := &ScopeEntry{
				Type:              ScopeCTE,
				Name:              cte.Name,
				Alias:             t.Alias,
				Columns:           cte.Columns,
				UnderlyingSources: cte.UnderlyingSources,
			}
			scope.add(entry.EffectiveName(), entry)
		} else {
			scope.RegisterTable(t)
		}

	case *DerivedTable:
		subScope := scope.Child()

		if t.Select != nil {
			if t.Select.With != nil {
				if err := r.resolveCTEs(subScope, t.Select.With); err != nil {
					return err
				}
			}

			if t.Select.Body != nil {
				if err := r.resolveSelectBody(subScope, t.Select.Body); err != nil {
					return err
				}

				columns := r.extractSelectColumns(t.Select.Body)
				underlyingSources := r.collectUnderlyingSources(subScope)
				scope.RegisterDerivedWithSources(t.Alias, columns, underlyingSources)
			}
		}

	case *LateralTable:
		// LATERAL subqueries can reference tables from the outer scope, so
		// they resolve against the current scope rather than a child.
		if t.Select != nil {
			if t.Select.With != nil {
				if err := r.resolveCTEs(scope, t.Select.With); err != nil {
					return err
				}
			}

			if t.Select.Body != nil {
				if err := r.resolveSelectBody(scope, t.Select.Body); err != nil {
					return err
				}

				columns := r.extractSelectColumns(t.Select.Body)
				scope.RegisterDerived(t.Alias, columns)
			}
		}
	}

	return nil
}

// extractSelectColumns extracts output column names from a SELECT list.
func (r *Resolver) extractSelectColumns(body *SelectBody) []string {
	if body == nil || body.Left == nil {
		return nil
	}

	var columns []string
	for i, item := range body.Left.Columns {
		columns = append(columns, extractColumnName(item, i))
	}
	return columns
}

// extractColumnName determines the output name for a SELECT item.
func extractColumnName(item SelectItem, index int) string {
	if item.Alias != "" {
		return item.Alias
	}

	if item.Star {
		return "*"
	}
	if item.TableStar != "" {
		return item.TableStar + ".*"
	}

	if item.Expr != nil {
		return InferColumnName(item.Expr, index)
	}

	return generatedColumnName(index)
}

// InferColumnName infers an output column name from an expression.
// Complex expressions without aliases get positional names.
func InferColumnName(expr Expr, index int) string {
	switch e := expr.(type) {
	case *ColumnRef:
		return e.Column
	case *FuncCall:
		return normalize(e.Name)
	case *CastExpr:
		return InferColumnName(e.Expr, index)
	case *ParenExpr:
		return InferColumnName(e.Expr, index)
	default:
		return generatedColumnName(index)
	}
}

func generatedColumnName(index int) string {
	return fmt.Sprintf("column%d", index)
}

// ResolveError represents an error during scope resolution.
type ResolveError struct {
	Message string
}

func (e *ResolveError) Error() string {
	return "resolve error: " + e.Message
}

// CollectColumns collects all column references from an expression.
// Subqueries are not descended into; they carry their own scopes.
func CollectColumns(expr Expr) []*ColumnRef {
	var refs []*ColumnRef
	collectColumns(expr, &refs)
	return refs
}

func collectColumns(expr Expr, refs *[]*ColumnRef) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ColumnRef:
		*refs = append(*refs, e)

	case *BinaryExpr:
		collectColumns(e.Left, refs)
		collectColumns(e.Right, refs)

	case *UnaryExpr:
		collectColumns(e.Expr, refs)

	case *FuncCall:
		for _, arg := range e.Args {
			collectColumns(arg, refs)
		}
		if e.Filter != nil {
			collectColumns(e.Filter, refs)
		}
		if e.Window != nil {
			for _, p := range e.Window.PartitionBy {
				collectColumns(p, refs)
			}
			for _, o := range e.Window.OrderBy {
				collectColumns(o.Expr, refs)
			}
		}

	case *CaseExpr:
		collectColumns(e.Operand, refs)
		for _, w := range e.Whens {
			collectColumns(w.Condition, refs)
			collectColumns(w.Result, refs)
		}
		collectColumns(e.Else, refs)

	case *CastExpr:
		collectColumns(e.Expr, refs)

	case *InExpr:
		collectColumns(e.Expr, refs)
		for _, v := range e.Values {
			collectColumns(v, refs)
		}

	case *BetweenExpr:
		collectColumns(e.Expr, refs)
		collectColumns(e.Low, refs)
		collectColumns(e.High, refs)

	case *IsNullExpr:
		collectColumns(e.Expr, refs)

	case *IsBoolExpr:
		collectColumns(e.Expr, refs)

	case *LikeExpr:
		collectColumns(e.Expr, refs)
		collectColumns(e.Pattern, refs)

	case *ParenExpr:
		collectColumns(e.Expr, refs)

	case *StarExpr, *Literal, *SubqueryExpr, *ExistsExpr:
		// No column refs collected
	}
}
