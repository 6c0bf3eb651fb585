package builder

import (
	"fmt"
	"strconv"
	"strings"
)

type statementKind int

const (
	kindSelect statementKind = iota
	kindInsert
	kindUpdate
	kindDelete
)

type clause struct {
	sql  string
	args []interface{}
}

// SQLBuilder composes PostgreSQL statements with positional placeholders.
// Conditions are written with "?" and renumbered to $1..$n on Build.
type SQLBuilder struct {
	kind      statementKind
	table     string
	columns   []string
	values    []interface{}
	sets      []clause
	where     []clause
	orderBy   []string
	limit     int
	offset    int
	forUpdate bool
	returning []string
}

// NewSQLBuilder creates a new SQL builder
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Select starts a SELECT statement over the given columns
func (b *SQLBuilder) Select(columns ...string) *SQLBuilder {
	b.kind = kindSelect
	b.columns = columns
	return b
}

// Insert starts an INSERT INTO statement over the given columns
func (b *SQLBuilder) Insert(table string, columns ...string) *SQLBuilder {
	b.kind = kindInsert
	b.table = table
	b.columns = columns
	return b
}

// Update starts an UPDATE statement
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.kind = kindUpdate
	b.table = table
	return b
}

// Delete starts a DELETE FROM statement
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.kind = kindDelete
	b.table = table
	return b
}

// From sets the table of a SELECT
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Values sets the INSERT values, one per column
func (b *SQLBuilder) Values(values ...interface{}) *SQLBuilder {
	b.values = values
	return b
}

// Set adds "column = ?" to an UPDATE
func (b *SQLBuilder) Set(column string, value interface{}) *SQLBuilder {
	b.sets = append(b.sets, clause{sql: column + " = ?", args: []interface{}{value}})
	return b
}

// Where adds a condition; multiple conditions are joined with AND.
func (b *SQLBuilder) Where(condition string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, clause{sql: condition, args: args})
	return b
}

// WhereIf adds the condition only when ok is true.
func (b *SQLBuilder) WhereIf(ok bool, condition string, args ...interface{}) *SQLBuilder {
	if !ok {
		return b
	}
	return b.Where(condition, args...)
}

// WhereAny adds a parenthesized group of conditions joined with OR.
func (b *SQLBuilder) WhereAny(conditions []string, args ...interface{}) *SQLBuilder {
	if len(conditions) == 0 {
		return b
	}
	return b.Where("("+strings.Join(conditions, " OR ")+")", args...)
}

// OrderBy appends ORDER BY terms such as "last_name ASC"
func (b *SQLBuilder) OrderBy(terms ...string) *SQLBuilder {
	b.orderBy = append(b.orderBy, terms...)
	return b
}

// Limit sets the LIMIT clause; zero means no limit
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset sets the OFFSET clause
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// ForUpdate locks the selected rows until the transaction ends
func (b *SQLBuilder) ForUpdate() *SQLBuilder {
	b.forUpdate = true
	return b
}

// Returning appends a RETURNING clause to INSERT, UPDATE or DELETE
func (b *SQLBuilder) Returning(columns ...string) *SQLBuilder {
	b.returning = columns
	return b
}

// Count derives a SELECT COUNT(*) with the same table and conditions,
// dropping ordering, paging and locking.
func (b *SQLBuilder) Count() *SQLBuilder {
	return &SQLBuilder{
		kind:    kindSelect,
		table:   b.table,
		columns: []string{"COUNT(*)"},
		where:   append([]clause(nil), b.where...),
	}
}

// Build generates the SQL query and its arguments
func (b *SQLBuilder) Build() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	switch b.kind {
	case kindSelect:
		cols := "*"
		if len(b.columns) > 0 {
			cols = strings.Join(b.columns, ", ")
		}
		sb.WriteString("SELECT " + cols + " FROM " + b.table)
	case kindInsert:
		sb.WriteString("INSERT INTO " + b.table)
		sb.WriteString(" (" + strings.Join(b.columns, ", ") + ")")
		marks := make([]string, len(b.values))
		for i := range marks {
			marks[i] = "?"
		}
		sb.WriteString(" VALUES (" + strings.Join(marks, ", ") + ")")
		args = append(args, b.values...)
	case kindUpdate:
		sb.WriteString("UPDATE " + b.table + " SET ")
		parts := make([]string, len(b.sets))
		for i, s := range b.sets {
			parts[i] = s.sql
			args = append(args, s.args...)
		}
		sb.WriteString(strings.Join(parts, ", "))
	case kindDelete:
		sb.WriteString("DELETE FROM " + b.table)
	}

	if len(b.where) > 0 {
		parts := make([]string, len(b.where))
		for i, w := range b.where {
			parts[i] = w.sql
			args = append(args, w.args...)
		}
		sb.WriteString(" WHERE " + strings.Join(parts, " AND "))
	}

	if b.kind == kindSelect {
		if len(b.orderBy) > 0 {
			sb.WriteString(" ORDER BY " + strings.Join(b.orderBy, ", "))
		}
		if b.limit > 0 {
			sb.WriteString(" LIMIT " + strconv.Itoa(b.limit))
		}
		if b.offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(b.offset))
		}
		if b.forUpdate {
			sb.WriteString(" FOR UPDATE")
		}
	}

	if len(b.returning) > 0 && b.kind != kindSelect {
		sb.WriteString(" RETURNING " + strings.Join(b.returning, ", "))
	}

	return numberPlaceholders(sb.String()), args
}

// BuildSafe is Build with a check that every placeholder has an argument.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}
	if b.kind == kindInsert && len(b.columns) != len(b.values) {
		return "", nil, fmt.Errorf("insert has %d columns but %d values", len(b.columns), len(b.values))
	}
	if b.kind == kindUpdate && len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update requires at least one SET column")
	}
	query, args := b.Build()
	if n := strings.Count(query, "$"); n != len(args) {
		return "", nil, fmt.Errorf("placeholder count %d does not match argument count %d", n, len(args))
	}
	return query, args, nil
}

func numberPlaceholders(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
