package versioned

import (
	"strconv"
	"strings"
)

type fragment struct {
	sql  string
	args []any
}

// Statement builds a conditional UPDATE ... RETURNING. Fragments use ? as the
// placeholder; Build renumbers them into PostgreSQL $n parameters.
type Statement struct {
	table     string
	sets      []fragment
	where     []fragment
	returning string
}

// Update starts a statement against table.
func Update(table string) *Statement {
	return &Statement{table: table}
}

// Set assigns a bound value to a column.
func (s *Statement) Set(column string, value any) *Statement {
	s.sets = append(s.sets, fragment{sql: column + " = ?", args: []any{value}})
	return s
}

// SetExpr assigns a raw SQL expression to a column.
func (s *Statement) SetExpr(column, expr string, args ...any) *Statement {
	s.sets = append(s.sets, fragment{sql: column + " = " + expr, args: args})
	return s
}

// Where adds an AND-ed predicate.
func (s *Statement) Where(expr string, args ...any) *Statement {
	s.where = append(s.where, fragment{sql: expr, args: args})
	return s
}

// Bump increments the version counter and refreshes updated_at.
func (s *Statement) Bump() *Statement {
	return s.SetExpr("version", "version + 1").SetExpr("updated_at", "NOW()")
}

// Guard restricts the update to one live row at the expected version and
// bumps the version.
func (s *Statement) Guard(id, version int64) *Statement {
	return s.Bump().
		Where("id = ?", id).
		Where("version = ?", version).
		Where("is_deleted = false")
}

// Returning sets the RETURNING column list.
func (s *Statement) Returning(columns string) *Statement {
	s.returning = columns
	return s
}

// Build renders the SQL text and its positional arguments.
func (s *Statement) Build() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	write := func(f fragment) {
		rest := f.sql
		used := 0
		for {
			idx := strings.IndexByte(rest, '?')
			if idx < 0 || used >= len(f.args) {
				b.WriteString(rest)
				break
			}
			b.WriteString(rest[:idx])
			args = append(args, f.args[used])
			used++
			b.WriteString("$" + strconv.Itoa(len(args)))
			rest = rest[idx+1:]
		}
	}

	b.WriteString("UPDATE ")
	b.WriteString(s.table)
	b.WriteString(" SET ")
	for i, f := range s.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		write(f)
	}
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		for i, f := range s.where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			write(f)
		}
	}
	if s.returning != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(s.returning)
	}
	return b.String(), args
}
