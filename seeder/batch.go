package seeder

import (
	"fmt"
	"strings"
)

// UpsertBuilder accumulates rows for one target relation and renders them as
// a single multi-row statement. With conflict keys configured, a conflicting
// row has its remaining columns replaced by the incoming values; without
// them the statement is a plain insert. The builder holds no connection:
// constructing the statement and executing it are separate concerns.
type UpsertBuilder struct {
	table        string
	columns      []string
	conflictKeys []string
	rows         [][]any
}

// NewUpsertBuilder creates a builder for the given relation. conflictKeys
// may be nil for insert-only relations.
func NewUpsertBuilder(table string, conflictKeys []string, columns ...string) *UpsertBuilder {
	return &UpsertBuilder{
		table:        table,
		columns:      columns,
		conflictKeys: conflictKeys,
	}
}

// Append adds one row. The value count must match the configured columns.
func (b *UpsertBuilder) Append(values ...any) error {
	if len(values) != len(b.columns) {
		return fmt.Errorf("%w: %d values for %d columns of %s", ErrShapeMismatch, len(values), len(b.columns), b.table)
	}
	b.rows = append(b.rows, values)
	return nil
}

// Len returns the number of accumulated rows.
func (b *UpsertBuilder) Len() int {
	return len(b.rows)
}

// Build renders one statement inserting every accumulated row, with the
// flattened parameter list in row order. Zero accumulated rows yield an
// empty statement, the nothing-to-flush signal. Build does not consume the
// rows; call Clear after a successful execution.
func (b *UpsertBuilder) Build() (string, []any) {
	if len(b.rows) == 0 {
		return "", nil
	}

	group := "(" + strings.TrimSuffix(strings.Repeat("?,", len(b.columns)), ",") + ")"
	groups := make([]string, 0, len(b.rows))
	args := make([]any, 0, len(b.rows)*len(b.columns))
	for _, row := range b.rows {
		groups = append(groups, group)
		args = append(args, row...)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(") VALUES ")
	sb.WriteString(strings.Join(groups, ","))

	if len(b.conflictKeys) > 0 {
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(strings.Join(b.conflictKeys, ", "))
		sb.WriteString(")")
		assignments := b.updateAssignments()
		if len(assignments) == 0 {
			sb.WriteString(" DO NOTHING")
		} else {
			sb.WriteString(" DO UPDATE SET ")
			sb.WriteString(strings.Join(assignments, ", "))
		}
	}

	return sb.String(), args
}

// Clear discards accumulated rows. The relation, columns and conflict keys
// are kept, so the builder is immediately reusable for the next batch.
func (b *UpsertBuilder) Clear() {
	b.rows = b.rows[:0]
}

// updateAssignments lists "col = EXCLUDED.col" for every non-key column
func (b *UpsertBuilder) updateAssignments() []string {
	keys := make(map[string]struct{}, len(b.conflictKeys))
	for _, k := range b.conflictKeys {
		keys[k] = struct{}{}
	}

	assignments := make([]string, 0, len(b.columns))
	for _, col := range b.columns {
		if _, ok := keys[col]; ok {
			continue
		}
		assignments = append(assignments, col+" = EXCLUDED."+col)
	}
	return assignments
}
