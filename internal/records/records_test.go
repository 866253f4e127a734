// internal/records/records_test.go
//
// Record store tests using sqlmock.
//
// Run: go test ./internal/records -v

package records

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T, driver string) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQL(sqlx.NewDb(db, driver)), mock
}

func TestSelect_FiltersOrderLimit(t *testing.T) {
	s, mock := newMock(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM case_studies WHERE property_type = ? AND published_at IS NOT NULL ORDER BY published_at DESC LIMIT ?`,
	)).
		WithArgs("office", int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "results"}).
			AddRow(int64(1), []byte("Tower"), []byte(`["a"]`)))

	q := Query{Limit: 10}.
		Where(Eq("property_type", "office"), NotNull("published_at")).
		OrderBy("published_at", true)

	got, err := s.Select(context.Background(), TableCaseStudies, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tower", got[0]["title"])
	assert.Equal(t, `["a"]`, got[0]["results"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_PostgresPlaceholders(t *testing.T) {
	s, mock := newMock(t, "pgx")

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, title FROM insights WHERE category = $1 AND title LIKE $2`,
	)).
		WithArgs("market", "%rates%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	q := Query{Columns: []string{"id", "title"}}.
		Where(Eq("category", "market"), Like("title", "%rates%"))

	got, err := s.Select(context.Background(), TableInsights, q)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_RejectsUnknownTableAndColumns(t *testing.T) {
	s, _ := newMock(t, "mysql")
	ctx := context.Background()

	_, err := s.Select(ctx, "users", Query{})
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, err = s.Select(ctx, TableTestimonials, Query{}.Where(Eq("featured; DROP TABLE x", true)))
	assert.True(t, errors.Is(err, ErrBadIdentifier))

	_, err = s.Select(ctx, TableTestimonials, Query{}.OrderBy("created_at desc", false))
	assert.True(t, errors.Is(err, ErrBadIdentifier))
}

func TestInsert_MySQLEchoesRow(t *testing.T) {
	s, mock := newMock(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO buyer_applications (email, first_name, property_types) VALUES (?, ?, ?)`,
	)).
		WithArgs("jane@example.com", "Jane", `["office","retail"]`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	row := Record{
		"first_name":     "Jane",
		"email":          "jane@example.com",
		"property_types": []string{"office", "retail"},
	}
	got, err := s.Insert(context.Background(), TableBuyerApps, row)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jane", got[0]["first_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_PostgresReturning(t *testing.T) {
	s, mock := newMock(t, "pgx")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO contact_submissions (email, first_name) VALUES ($1, $2) RETURNING *`,
	)).
		WithArgs("jane@example.com", "Jane").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name"}).
			AddRow("abc", "jane@example.com", "Jane"))
	mock.ExpectCommit()

	got, err := s.Insert(context.Background(), TableContact,
		Record{"first_name": "Jane", "email": "jane@example.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RollsBackOnError(t *testing.T) {
	s, mock := newMock(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seller_inquiries (email) VALUES (?)`)).
		WithArgs("a@b.co").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Insert(context.Background(), TableSellerInquiry, Record{"email": "a@b.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsBadColumn(t *testing.T) {
	s, _ := newMock(t, "mysql")
	_, err := s.Insert(context.Background(), TableContact, Record{"firstName": "Jane"})
	assert.True(t, errors.Is(err, ErrBadIdentifier))
}
