// internal/records/records.go
//
// Record store over a SQL database.
//
// Context
// -------
// Content pages and lead forms talk to the database through two operation
// shapes only:
//
//	Select(table, Query{Columns, Filters, Order, Limit}) → []Record
//	Insert(table, rows...)                              → []Record
//
// Records are plain map[string]any keyed by snake_case column names.  JSON
// columns come back as strings and are decoded later by internal/transform.
//
// Identifiers (tables, columns) cannot be bound as parameters, so every one
// is checked against identRe and tables against an allow-list.  Values are
// always bound.
//
// Notes
// -----
// • MySQL returns text columns as []byte through MapScan; they are turned
//   into strings before leaving this package.
// • Postgres drivers (pgx, postgres) get INSERT … RETURNING *.  MySQL echoes
//   the written row back instead.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/leadsite/internal/database"
)

var (
	// ErrUnknownTable is returned for a table outside the allow-list.
	ErrUnknownTable = errors.New("records: unknown table")
	// ErrBadIdentifier is returned for a column name that is not a plain
	// snake_case identifier.
	ErrBadIdentifier = errors.New("records: bad identifier")
)

// Tables known to the site.
const (
	TableCaseStudies   = "case_studies"
	TableTestimonials  = "testimonials"
	TableInsights      = "insights"
	TableContact       = "contact_submissions"
	TableBuyerApps     = "buyer_applications"
	TableSellerInquiry = "seller_inquiries"
)

// DefaultTables is the allow-list used by NewSQL when none is given.
var DefaultTables = []string{
	TableCaseStudies, TableTestimonials, TableInsights,
	TableContact, TableBuyerApps, TableSellerInquiry,
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Record is one row keyed by column name.
type Record = map[string]any

// Store is the backend contract used by content fetchers and the submitter.
type Store interface {
	Select(ctx context.Context, table string, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rows ...Record) ([]Record, error)
}

// SQL implements Store on a *sqlx.DB.
type SQL struct {
	db        *sqlx.DB
	tables    map[string]bool
	returning bool
}

// NewSQL wraps db.  With no tables given, DefaultTables is the allow-list.
func NewSQL(db *sqlx.DB, tables ...string) *SQL {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	allow := make(map[string]bool, len(tables))
	for _, t := range tables {
		allow[t] = true
	}
	return &SQL{
		db:        db,
		tables:    allow,
		returning: database.IsPostgres(db.DriverName()),
	}
}

// Select runs q against table.
func (s *SQL) Select(ctx context.Context, table string, q Query) ([]Record, error) {
	if err := s.checkTable(table); err != nil {
		return nil, err
	}
	query, args, err := q.build(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("records: select %s: %w", table, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{}
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("records: scan %s: %w", table, err)
		}
		out = append(out, normalize(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: select %s: %w", table, err)
	}
	return out, nil
}

// Insert writes rows in one transaction and returns the stored rows.
func (s *SQL) Insert(ctx context.Context, table string, rows ...Record) ([]Record, error) {
	if err := s.checkTable(table); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	type stmt struct {
		query string
		args  []any
	}
	stmts := make([]stmt, len(rows))
	for i, row := range rows {
		q, args, err := insertSQL(table, row)
		if err != nil {
			return nil, err
		}
		stmts[i] = stmt{q, args}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("records: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		query, args := stmts[i].query, stmts[i].args
		if s.returning {
			rec := Record{}
			if err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING *"), args...).MapScan(rec); err != nil {
				return nil, fmt.Errorf("records: insert %s: %w", table, err)
			}
			out = append(out, normalize(rec))
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("records: insert %s: %w", table, err)
		}
		out = append(out, copyRecord(row))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("records: commit: %w", err)
	}
	return out, nil
}

func (s *SQL) checkTable(table string) error {
	if !s.tables[table] || !identRe.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// insertSQL builds a single-row INSERT with columns in sorted order.  Slice
// and map values are stored as JSON text.
func insertSQL(table string, row Record) (string, []any, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		if !identRe.MatchString(c) {
			return "", nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, c)
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("records: insert %s: empty row", table)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := columnValue(row[c])
		if err != nil {
			return "", nil, fmt.Errorf("records: column %s: %w", c, err)
		}
		args[i] = v
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
	return q, args, nil
}

func columnValue(v any) (any, error) {
	switch v.(type) {
	case []string, []any, map[string]any, []map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

// normalize converts driver []byte values into strings in place.
func normalize(rec Record) Record {
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
	return rec
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
