package sqlparser

import "strings"

// Schema holds known column lists keyed by table name. When present it
// lets the resolver expand SELECT * and resolve unqualified columns.
type Schema map[string][]string

// ScopeType classifies what a scope entry stands for.
type ScopeType int

const (
	// ScopeTable is a physical table named in FROM.
	ScopeTable ScopeType = iota
	// ScopeCTE is a WITH-clause common table expression.
	ScopeCTE
	// ScopeDerived is a parenthesized subquery in FROM.
	ScopeDerived
)

// ScopeEntry is one name visible in a query's FROM context.
type ScopeEntry struct {
	Type              ScopeType
	Name              string   // Original table/CTE name
	Alias             string   // Alias (if any)
	Columns           []string // Known columns (from schema or derived query)
	SourceTable       string   // For physical tables: fully qualified name (schema.table)
	UnderlyingSources []string // For CTEs/derived tables: underlying physical tables
}

// EffectiveName is the name the query refers to this entry by: the
// alias when one exists, the declared name otherwise.
func (e *ScopeEntry) EffectiveName() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Name
}

// ColumnSource is the resolved origin of a single column reference.
type ColumnSource struct {
	Table       string // Source table name or alias as written
	SourceTable string // Fully qualified source (e.g., schema.table)
	Column      string // Column name
	FromCTE     bool   // True if from a CTE
	FromDerived bool   // True if from a derived table
}

// Scope is the set of tables, CTEs, and derived tables a query can
// reference. Lookups are case-insensitive. Entries keep FROM-clause
// declaration order so column resolution and star expansion are
// deterministic. Scopes nest: a subquery's scope chains to the outer
// query's for correlated references.
type Scope struct {
	parent  *Scope
	order   []string
	entries map[string]*ScopeEntry
	schema  Schema
}

// NewScope creates a root scope backed by optional schema info.
func NewScope(schema Schema) *Scope {
	return &Scope{entries: map[string]*ScopeEntry{}, schema: schema}
}

// Child creates a nested scope that falls back to s on lookup misses.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, entries: map[string]*ScopeEntry{}, schema: s.schema}
}

func normalize(name string) string {
	return strings.ToLower(name)
}

func (s *Scope) add(key string, entry *ScopeEntry) {
	key = normalize(key)
	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = entry
}

// ordered yields the entries in declaration order.
func (s *Scope) ordered() []*ScopeEntry {
	entries := make([]*ScopeEntry, 0, len(s.order))
	for _, key := range s.order {
		entries = append(entries, s.entries[key])
	}
	return entries
}

// RegisterCTE makes a CTE visible under its name.
func (s *Scope) RegisterCTE(name string, columns []string) {
	s.RegisterCTEWithSources(name, columns, nil)
}

// RegisterCTEWithSources makes a CTE visible and records which physical
// tables it ultimately reads from.
func (s *Scope) RegisterCTEWithSources(name string, columns []string, underlyingSources []string) {
	s.add(name, &ScopeEntry{
		Type:              ScopeCTE,
		Name:              name,
		Columns:           columns,
		UnderlyingSources: underlyingSources,
	})
}

// RegisterTable makes a FROM-clause table visible, pulling its column
// list from the schema when one of the name forms matches.
func (s *Scope) RegisterTable(table *TableName) {
	entry := &ScopeEntry{
		Type:        ScopeTable,
		Name:        table.Name,
		Alias:       table.Alias,
		SourceTable: table.Qualified(),
	}
	entry.Columns = s.schemaColumns(entry.SourceTable, table.Name)
	s.add(entry.EffectiveName(), entry)
}

// schemaColumns tries both the qualified and bare name, exact case
// first and lowered second.
func (s *Scope) schemaColumns(qualified, bare string) []string {
	if s.schema == nil {
		return nil
	}
	for _, key := range []string{qualified, bare, normalize(qualified), normalize(bare)} {
		if cols, ok := s.schema[key]; ok {
			return cols
		}
	}
	return nil
}

// RegisterDerived makes a FROM-clause subquery visible under its alias.
func (s *Scope) RegisterDerived(alias string, columns []string) {
	s.RegisterDerivedWithSources(alias, columns, nil)
}

// RegisterDerivedWithSources makes a FROM-clause subquery visible and
// records the physical tables it reads from.
func (s *Scope) RegisterDerivedWithSources(alias string, columns []string, underlyingSources []string) {
	s.add(alias, &ScopeEntry{
		Type:              ScopeDerived,
		Name:              alias,
		Alias:             alias,
		Columns:           columns,
		UnderlyingSources: underlyingSources,
	})
}

// Lookup finds an entry by table name or alias, walking outward through
// parent scopes on a miss.
func (s *Scope) Lookup(name string) (*ScopeEntry, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if entry, ok := cur.entries[normalize(name)]; ok {
			return entry, true
		}
	}
	return nil, false
}

// LookupCTE finds a CTE by name, walking outward through parent scopes.
func (s *Scope) LookupCTE(name string) (*ScopeEntry, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if entry, ok := cur.entries[normalize(name)]; ok && entry.Type == ScopeCTE {
			return entry, true
		}
	}
	return nil, false
}

// AllEntries lists the entries of this scope only, parents excluded,
// in declaration order.
func (s *Scope) AllEntries() []*ScopeEntry {
	return s.ordered()
}

// ResolveColumn finds which scope entry a column reference belongs to.
// Qualified references resolve through the qualifier. Unqualified ones
// match against known column lists in declaration order, so a column
// two joined tables both declare resolves to the first table named in
// FROM. Failing that, a lone physical table in scope claims the
// column, which covers raw tables the schema never described. The
// parent scope is consulted last.
func (s *Scope) ResolveColumn(ref *ColumnRef) (*ScopeEntry, bool) {
	if ref.Table != "" {
		return s.Lookup(ref.Table)
	}

	want := normalize(ref.Column)
	for _, entry := range s.ordered() {
		for _, col := range entry.Columns {
			if normalize(col) == want {
				return entry, true
			}
		}
	}

	if sole := s.soleTable(); sole != nil {
		return sole, true
	}

	if s.parent != nil {
		return s.parent.ResolveColumn(ref)
	}
	return nil, false
}

// soleTable returns the entry when exactly one physical table is in
// scope, nil otherwise.
func (s *Scope) soleTable() *ScopeEntry {
	var found *ScopeEntry
	for _, entry := range s.ordered() {
		if entry.Type != ScopeTable {
			continue
		}
		if found != nil {
			return nil
		}
		found = entry
	}
	return found
}

// ResolveColumnFull resolves a column reference down to a ColumnSource.
// A qualified reference that misses every entry still resolves, carrying
// the qualifier as written; an unqualified miss does not.
func (s *Scope) ResolveColumnFull(ref *ColumnRef) (*ColumnSource, bool) {
	entry, ok := s.ResolveColumn(ref)
	if !ok {
		if ref.Table == "" {
			return nil, false
		}
		return &ColumnSource{Table: ref.Table, Column: ref.Column}, true
	}

	source := &ColumnSource{
		Table:       entry.EffectiveName(),
		SourceTable: entry.SourceTable,
		Column:      ref.Column,
		FromCTE:     entry.Type == ScopeCTE,
		FromDerived: entry.Type == ScopeDerived,
	}
	if source.SourceTable == "" {
		source.SourceTable = entry.Name
	}
	return source, true
}

// ExpandStar lists the column references a star select stands for. With
// a qualifier it covers that one entry; without, every entry in scope,
// in declaration order. Entries with unknown columns contribute
// nothing, so the result is nil when no column info exists.
func (s *Scope) ExpandStar(tableName string) []*ColumnRef {
	if tableName != "" {
		entry, ok := s.Lookup(tableName)
		if !ok || len(entry.Columns) == 0 {
			return nil
		}
		return entryRefs(entry)
	}

	var refs []*ColumnRef
	for _, entry := range s.ordered() {
		refs = append(refs, entryRefs(entry)...)
	}
	return refs
}

func entryRefs(entry *ScopeEntry) []*ColumnRef {
	refs := make([]*ColumnRef, len(entry.Columns))
	for i, col := range entry.Columns {
		refs[i] = &ColumnRef{Table: entry.EffectiveName(), Column: col}
	}
	return refs
}

// HasSchemaInfo reports whether any entry carries a column list.
func (s *Scope) HasSchemaInfo() bool {
	for _, entry := range s.entries {
		if len(entry.Columns) > 0 {
			return true
		}
	}
	return false
}
