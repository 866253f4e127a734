package records

import (
	"fmt"
	"strings"
)

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpLike
	OpIsNull
	OpNotNull
)

// Filter is one WHERE predicate.  Value is ignored for the null checks.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches column = value.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Like matches column LIKE pattern.  The caller supplies any wildcards.
func Like(column, pattern string) Filter { return Filter{Column: column, Op: OpLike, Value: pattern} }

// IsNull matches column IS NULL.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// NotNull matches column IS NOT NULL.
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

// Order sorts on a single column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a Select.  Empty Columns means all columns.  Limit <= 0
// means no limit.
type Query struct {
	Columns []string
	Filters []Filter
	Order   *Order
	Limit   int
}

// Where returns a copy of q with f appended.
func (q Query) Where(f ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), f...)
	return q
}

// OrderBy returns a copy of q sorted on column.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = &Order{Column: column, Desc: desc}
	return q
}

// build renders q with ? placeholders.
func (q Query) build(table string) (string, []any, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if !identRe.MatchString(c) {
				return "", nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, c)
			}
		}
		cols = strings.Join(q.Columns, ", ")
	}

	var (
		b    strings.Builder
		args []any
		cond []string
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, table)

	for _, f := range q.Filters {
		if !identRe.MatchString(f.Column) {
			return "", nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, f.Column)
		}
		switch f.Op {
		case OpEq:
			cond = append(cond, f.Column+" = ?")
			args = append(args, f.Value)
		case OpLike:
			cond = append(cond, f.Column+" LIKE ?")
			args = append(args, f.Value)
		case OpIsNull:
			cond = append(cond, f.Column+" IS NULL")
		case OpNotNull:
			cond = append(cond, f.Column+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("records: unknown filter op %d", f.Op)
		}
	}
	if len(cond) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(cond, " AND "))
	}

	if q.Order != nil {
		if !identRe.MatchString(q.Order.Column) {
			return "", nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, q.Order.Column)
		}
		dir := "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.Order.Column, dir)
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args, nil
}
