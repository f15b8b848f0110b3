package columns

import (
	"github.com/leapstack-labs/dbtrace/pkg/sqlparser"
)

// Extract parses one model's SQL and produces its output column list.
// The schema parameter is optional; when present it enables wildcard
// expansion. Extract never returns an error: unparseable SQL yields a
// Result carrying a ParseFailure and whatever columns were resolved.
func Extract(sql string, schema sqlparser.Schema) *Result {
	stripped := StripJinja(sql)

	stmt, err := sqlparser.Parse(stripped)
	if err != nil {
		return &Result{Failure: &ParseFailure{Message: err.Error()}}
	}

	resolver := sqlparser.NewResolver(schema)
	scope, err := resolver.Resolve(stmt)
	if err != nil {
		return &Result{Failure: &ParseFailure{Message: err.Error()}}
	}

	ex := &extractor{resolver: resolver}
	cols := ex.extractBody(scope, stmt.Body)
	if len(cols) == 0 {
		return &Result{Failure: &ParseFailure{Message: "no output columns recognized"}}
	}

	return &Result{Columns: cols}
}

// extractor walks the AST producing ParsedColumns.
type extractor struct {
	resolver *sqlparser.Resolver
}

func (e *extractor) extractBody(scope *sqlparser.Scope, body *sqlparser.SelectBody) []ParsedColumn {
	if body == nil || body.Left == nil {
		return nil
	}

	cols := e.extractCore(scope, body.Left)

	// Set operations: output columns come from the left side, sources
	// merge from both sides positionally. Each side resolves its FROM
	// clause in its own child scope.
	if body.Right != nil {
		rightScope := scope.Child()
		if err := e.resolver.ResolveCore(rightScope, body.Right.Left); err != nil {
			return cols
		}
		rightCols := e.extractBody(rightScope, body.Right)
		for i := range cols {
			if i < len(rightCols) {
				cols[i].Sources = mergeSources(cols[i].Sources, rightCols[i].Sources)
				cols[i].IsDerived = true
			}
		}
	}

	return cols
}

func (e *extractor) extractCore(scope *sqlparser.Scope, core *sqlparser.SelectCore) []ParsedColumn {
	if core == nil {
		return nil
	}

	var cols []ParsedColumn
	for i, item := range core.Columns {
		cols = append(cols, e.extractItem(scope, item, i)...)
	}
	return cols
}

func (e *extractor) extractItem(scope *sqlparser.Scope, item sqlparser.SelectItem, index int) []ParsedColumn {
	if item.Star {
		return e.expandStar(scope, "")
	}
	if item.TableStar != "" {
		return e.expandStar(scope, item.TableStar)
	}

	col := e.extractExpr(scope, item.Expr)

	name := item.Alias
	if name == "" {
		name = sqlparser.InferColumnName(item.Expr, index)
	}
	col.Name = name

	return []ParsedColumn{col}
}

// expandStar resolves a * or table.* projection. With schema information it
// expands to one direct column per known upstream column. Without it, each
// table in scope contributes a single wildcard ref with column "*", left
// for the tracer to expand against the upstream node's declared columns.
func (e *extractor) expandStar(scope *sqlparser.Scope, tableName string) []ParsedColumn {
	refs := scope.ExpandStar(tableName)
	if len(refs) > 0 {
		var cols []ParsedColumn
		for _, ref := range refs {
			src := e.resolveRef(scope, ref)
			cols = append(cols, ParsedColumn{
				Name:    ref.Column,
				Sources: []SourceRef{src},
			})
		}
		return cols
	}

	if tableName != "" {
		return []ParsedColumn{{
			Name:    tableName + ".*",
			Sources: []SourceRef{e.wildcardRef(scope, tableName)},
		}}
	}

	var cols []ParsedColumn
	for _, entry := range scope.AllEntries() {
		name := entry.EffectiveName()
		cols = append(cols, ParsedColumn{
			Name:    name + ".*",
			Sources: []SourceRef{e.wildcardRef(scope, name)},
		})
	}
	return cols
}

func (e *extractor) wildcardRef(scope *sqlparser.Scope, tableName string) SourceRef {
	ref := SourceRef{Table: tableName, Column: "*"}
	if entry, ok := scope.Lookup(tableName); ok {
		ref.Table = sourceTableFor(entry)
	}
	return ref
}

// extractExpr classifies an expression as direct or derived and collects
// its source columns.
func (e *extractor) extractExpr(scope *sqlparser.Scope, expr sqlparser.Expr) ParsedColumn {
	col := ParsedColumn{}
	if expr == nil {
		return col
	}

	switch ex := expr.(type) {
	case *sqlparser.ColumnRef:
		col.Sources = []SourceRef{e.resolveRef(scope, ex)}

	case *sqlparser.ParenExpr:
		return e.extractExpr(scope, ex.Expr)

	case *sqlparser.Literal:
		col.IsDerived = true

	default:
		// Function calls, CASE, CAST, operators: derived, reading every
		// column referenced anywhere in the expression.
		col.IsDerived = true
		col.Sources = e.collectSources(scope, expr)
		text := Render(expr)
		for i := range col.Sources {
			col.Sources[i].Expression = text
		}
	}

	return col
}

// collectSources gathers deduplicated source refs from an expression.
func (e *extractor) collectSources(scope *sqlparser.Scope, expr sqlparser.Expr) []SourceRef {
	refs := sqlparser.CollectColumns(expr)

	var sources []SourceRef
	seen := make(map[string]struct{})
	for _, ref := range refs {
		src := e.resolveRef(scope, ref)
		key := src.Table + "." + src.Column
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}

// resolveRef maps a column reference to a source table through the scope.
func (e *extractor) resolveRef(scope *sqlparser.Scope, ref *sqlparser.ColumnRef) SourceRef {
	resolved, ok := scope.ResolveColumnFull(ref)
	if !ok {
		// Unqualified and unresolvable; keep the column name alone.
		return SourceRef{Column: ref.Column}
	}

	src := SourceRef{Table: resolved.SourceTable, Column: ref.Column}

	// Columns read through a CTE or derived table with a single underlying
	// physical table are attributed to that table, so cross-model tracing
	// survives the common staging-CTE pattern. Multiple underlying tables
	// leave the reference on the CTE name, which resolves to nothing.
	if resolved.FromCTE || resolved.FromDerived {
		if entry, found := scope.Lookup(resolved.Table); found && len(entry.UnderlyingSources) == 1 {
			src.Table = entry.UnderlyingSources[0]
		}
	}

	return src
}

func sourceTableFor(entry *sqlparser.ScopeEntry) string {
	if entry.Type == sqlparser.ScopeTable {
		if entry.SourceTable != "" {
			return entry.SourceTable
		}
		return entry.Name
	}
	if len(entry.UnderlyingSources) == 1 {
		return entry.UnderlyingSources[0]
	}
	return entry.EffectiveName()
}

func mergeSources(a, b []SourceRef) []SourceRef {
	seen := make(map[string]struct{})
	var merged []SourceRef

	for _, s := range append(a, b...) {
		key := s.Table + "." + s.Column
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}
