package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const bookColumns = `book_id, book_ulid, book_no, title, author, genre, year, edition,
	description, language, image, location, available_copies, availability, created_at, updated_at`

var bookNoKeyRe = regexp.MustCompile(`^B\d+$`)

// whereKey resolves a path key to a column: numeric id, book number
// (B-prefixed) or ULID.
func whereKey(key string) (string, any) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return "book_id = ?", id
	}
	if bookNoKeyRe.MatchString(key) {
		return "book_no = ?", key
	}
	return "book_ulid = ?", key
}

func (s *SQLStore) ListBookNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT book_no FROM books`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books
	(book_ulid, book_no, title, author, genre, year, edition, description,
	 language, image, location, available_copies, availability)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		b.BookULID, b.BookNo, b.Title, b.Author, b.Genre, b.Year, b.Edition, b.Description,
		b.Language, b.Image, b.Location, b.AvailableCopies, b.Availability,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict("book_no already exists")
		}
		return err
	}
	id, _ := res.LastInsertId()
	b.BookID = id
	return nil
}

func (s *SQLStore) GetByKey(ctx context.Context, key string) (*Book, error) {
	clause, arg := whereKey(key)
	q := fmt.Sprintf(`SELECT %s FROM books WHERE %s`, bookColumns, clause)
	var b Book
	if err := scanBook(s.db.QueryRowContext(ctx, q, arg), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) List(ctx context.Context, query SearchQuery, p Page) ([]Book, int64, error) {
	where, args := buildWhere(query)

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`SELECT %s FROM books %s ORDER BY book_id %s LIMIT ? OFFSET ?`,
		bookColumns, where, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.BookID, &b.BookULID, &b.BookNo, &b.Title, &b.Author, &b.Genre, &b.Year, &b.Edition,
			&b.Description, &b.Language, &b.Image, &b.Location, &b.AvailableCopies, &b.Availability,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cq := `SELECT COUNT(*) FROM books ` + where
	if err := s.db.QueryRowContext(ctx, cq, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLStore) Update(ctx context.Context, b *Book) error {
	const q = `
	UPDATE books
	SET book_no = ?, title = ?, author = ?, genre = ?, year = ?, edition = ?,
	    description = ?, language = ?, image = ?, location = ?,
	    available_copies = ?, availability = ?, updated_at = CURRENT_TIMESTAMP
	WHERE book_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		b.BookNo, b.Title, b.Author, b.Genre, b.Year, b.Edition,
		b.Description, b.Language, b.Image, b.Location,
		b.AvailableCopies, b.Availability, b.BookID,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict("book_no already exists")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("book not found")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	clause, arg := whereKey(key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE `+clause, arg)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1451 {
			return ErrConflict("book has borrowings or reservations")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("book not found")
	}
	return nil
}

func (s *SQLStore) Stats(ctx context.Context) (*StatsResponse, error) {
	const q = `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN availability THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN availability THEN 0 ELSE 1 END), 0),
	       COALESCE(SUM(available_copies), 0)
	FROM books`
	var st StatsResponse
	if err := s.db.QueryRowContext(ctx, q).Scan(
		&st.TotalBooks, &st.AvailableBooks, &st.UnavailableBooks, &st.TotalCopies,
	); err != nil {
		return nil, err
	}
	// Copies on unavailable rows are zero, so the two sums coincide.
	st.AvailableCopies = st.TotalCopies
	return &st, nil
}

func (s *SQLStore) Genres(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT genre FROM books WHERE genre <> '' ORDER BY genre`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanBook(row *sql.Row, b *Book) error {
	err := row.Scan(
		&b.BookID, &b.BookULID, &b.BookNo, &b.Title, &b.Author, &b.Genre, &b.Year, &b.Edition,
		&b.Description, &b.Language, &b.Image, &b.Location, &b.AvailableCopies, &b.Availability,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return ErrNotFound("book not found")
	}
	return err
}

func buildWhere(q SearchQuery) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`WHERE 1=1`)
	args := []any{}
	if q.Search != nil && *q.Search != "" {
		sb.WriteString(` AND (title LIKE ? OR author LIKE ? OR genre LIKE ?)`)
		like := "%" + *q.Search + "%"
		args = append(args, like, like, like)
	}
	if q.Genre != nil && *q.Genre != "" {
		sb.WriteString(` AND genre = ?`)
		args = append(args, *q.Genre)
	}
	if q.Language != nil && *q.Language != "" {
		sb.WriteString(` AND language = ?`)
		args = append(args, *q.Language)
	}
	if q.YearFrom != nil {
		sb.WriteString(` AND year >= ?`)
		args = append(args, *q.YearFrom)
	}
	if q.YearTo != nil {
		sb.WriteString(` AND year <= ?`)
		args = append(args, *q.YearTo)
	}
	if q.Available != nil {
		sb.WriteString(` AND availability = ?`)
		args = append(args, *q.Available)
	}
	return sb.String(), args
}
