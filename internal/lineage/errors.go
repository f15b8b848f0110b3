package lineage

import "fmt"

// ColumnNotFoundError reports a trace request for a column that is not in
// the node's resolved output list.
type ColumnNotFoundError struct {
	Node   string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found on node %q", e.Column, e.Node)
}
