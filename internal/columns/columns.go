// Package columns extracts per-output-column provenance from a single
// model's SQL. Output is pure data: table references are the names and
// aliases as written, not graph node ids. Mapping references to graph
// nodes happens in the lineage package.
package columns

// SourceRef is one source column an output column reads from.
type SourceRef struct {
	Table      string `json:"table"`                // table name or alias as written, possibly schema-qualified
	Column     string `json:"column"`               // source column name, "*" for unexpanded wildcards
	Expression string `json:"expression,omitempty"` // transformation expression text, empty for direct passthrough
}

// ParsedColumn describes one projected output column.
type ParsedColumn struct {
	Name      string      `json:"name"`
	IsDerived bool        `json:"is_derived"`
	Sources   []SourceRef `json:"sources,omitempty"`
}

// ParseFailure records SQL that could not be projected into columns.
// It is carried on the result rather than returned as an error: a model
// with unparseable SQL degrades its own branch, never the whole trace.
type ParseFailure struct {
	Message string `json:"message"`
}

func (f *ParseFailure) Error() string {
	return "column parse failure: " + f.Message
}

// Result is the outcome of extracting one model's columns. Columns holds
// whatever was resolved; Failure is set when parsing gave up partway.
type Result struct {
	Columns []ParsedColumn `json:"columns"`
	Failure *ParseFailure  `json:"failure,omitempty"`
}

// Column returns the parsed column with the given name, if present.
func (r *Result) Column(name string) (*ParsedColumn, bool) {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			return &r.Columns[i], true
		}
	}
	return nil, false
}
