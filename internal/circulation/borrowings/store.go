package borrowings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	platformdb "LMS-backend/internal/platform/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const borrowingColumns = `borrowing_id, borrowing_ulid, borrowing_number, member_no, book_id,
	quantity, borrow_date, due_date, return_date, status, late_fee`

// whereKey resolves a path key to the matching column: numeric keys hit
// the primary key, everything else is treated as a ULID.
func whereKey(key string) (string, any) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return "borrowing_id = ?", id
	}
	return "borrowing_ulid = ?", key
}

func (s *SQLStore) ListNumbersByYear(ctx context.Context, year int) ([]string, error) {
	const q = `SELECT borrowing_number FROM borrowings WHERE borrowing_number LIKE CONCAT('BR', ?, '%')`
	rows, err := s.db.QueryContext(ctx, q, year)
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

// lockBookRow locks the book's inventory row for the current transaction.
func lockBookRow(ctx context.Context, tx platformdb.DBTX, bookID int64) (int, error) {
	const q = `SELECT available_copies FROM books WHERE book_id = ? FOR UPDATE`
	var copies int
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&copies); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound("book not found")
		}
		return 0, err
	}
	return copies, nil
}

// setBookCopies writes the new copy count and the derived availability
// flag together so the invariant holds after every mutation.
func setBookCopies(ctx context.Context, tx platformdb.DBTX, bookID int64, copies int) error {
	const q = `UPDATE books SET available_copies = ?, availability = ?, updated_at = CURRENT_TIMESTAMP WHERE book_id = ?`
	res, err := tx.ExecContext(ctx, q, copies, copies > 0, bookID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return ErrInternal("failed to update books.available_copies")
	}
	return nil
}

// ExecCreateBorrowing runs the full borrow transaction: lock the book
// row, re-check stock, decrement, insert. All or nothing.
func (s *SQLStore) ExecCreateBorrowing(ctx context.Context, b *Borrowing) error {
	return platformdb.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx platformdb.DBTX) error {
		copies, err := lockBookRow(ctx, tx, b.BookID)
		if err != nil {
			return err
		}
		if err := CheckStock(copies, b.Quantity); err != nil {
			return err
		}
		if err := setBookCopies(ctx, tx, b.BookID, copies-b.Quantity); err != nil {
			return err
		}

		const q = `
		INSERT INTO borrowings
		(borrowing_ulid, borrowing_number, member_no, book_id, quantity, borrow_date, due_date, status, late_fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q,
			b.BorrowingULID, b.BorrowingNumber, b.MemberNo, b.BookID,
			b.Quantity, b.BorrowDate, b.DueDate, b.Status, b.LateFee,
		)
		if err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) {
				switch me.Number {
				case 1062:
					return ErrConflict("borrowing_number already exists")
				case 1452:
					return ErrInvalid("unknown member_no or book_id")
				}
			}
			return err
		}
		id, _ := res.LastInsertId()
		b.BorrowingID = id
		return nil
	})
}

// ExecReturnBorrowing runs the full return transaction: lock and validate
// the borrowing, stamp return date and fee, restore book inventory.
func (s *SQLStore) ExecReturnBorrowing(ctx context.Context, key string, returnedAt time.Time, weeklyFee float64) (*Borrowing, error) {
	var b Borrowing
	err := platformdb.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx platformdb.DBTX) error {
		clause, arg := whereKey(key)
		q := fmt.Sprintf(`SELECT %s FROM borrowings WHERE %s FOR UPDATE`, borrowingColumns, clause)
		if err := scanBorrowing(tx.QueryRowContext(ctx, q, arg), &b); err != nil {
			return err
		}

		if err := b.ApplyReturn(returnedAt, weeklyFee); err != nil {
			return err
		}

		const upd = `UPDATE borrowings SET status = ?, return_date = ?, late_fee = ?, updated_at = CURRENT_TIMESTAMP WHERE borrowing_id = ?`
		if _, err := tx.ExecContext(ctx, upd, b.Status, b.ReturnDate, b.LateFee, b.BorrowingID); err != nil {
			return err
		}

		copies, err := lockBookRow(ctx, tx, b.BookID)
		if err != nil {
			return err
		}
		return setBookCopies(ctx, tx, b.BookID, copies+b.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) GetByKey(ctx context.Context, key string) (*Borrowing, error) {
	clause, arg := whereKey(key)
	q := fmt.Sprintf(`SELECT %s FROM borrowings WHERE %s`, borrowingColumns, clause)
	var b Borrowing
	if err := scanBorrowing(s.db.QueryRowContext(ctx, q, arg), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) List(ctx context.Context, f Filter, p Page) ([]Borrowing, int64, error) {
	where, args := buildWhere(f)

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

	q := fmt.Sprintf(`SELECT %s FROM borrowings %s ORDER BY borrow_date %s, borrowing_id %s LIMIT ? OFFSET ?`,
		borrowingColumns, where, order, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Borrowing
	for rows.Next() {
		var b Borrowing
		if err := rows.Scan(
			&b.BorrowingID, &b.BorrowingULID, &b.BorrowingNumber, &b.MemberNo, &b.BookID,
			&b.Quantity, &b.BorrowDate, &b.DueDate, &b.ReturnDate, &b.Status, &b.LateFee,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cq := `SELECT COUNT(*) FROM borrowings ` + where
	if err := s.db.QueryRowContext(ctx, cq, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLStore) Update(ctx context.Context, b *Borrowing) error {
	const q = `
	UPDATE borrowings
	SET member_no = ?, borrow_date = ?, due_date = ?, return_date = ?, status = ?, late_fee = ?, updated_at = CURRENT_TIMESTAMP
	WHERE borrowing_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		b.MemberNo, b.BorrowDate, b.DueDate, b.ReturnDate, b.Status, b.LateFee, b.BorrowingID,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1452 {
			return ErrInvalid("unknown member_no")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("borrowing not found")
	}
	return nil
}

// Delete removes the row without touching book inventory. The asymmetry
// with the return transition is intentional.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	clause, arg := whereKey(key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM borrowings WHERE `+clause, arg)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("borrowing not found")
	}
	return nil
}

func (s *SQLStore) SumFees(ctx context.Context) (float64, float64, error) {
	const q = `
	SELECT
		COALESCE(SUM(CASE WHEN status = 'RETURNED' THEN late_fee ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status <> 'RETURNED' THEN late_fee ELSE 0 END), 0)
	FROM borrowings`
	var returned, outstanding float64
	if err := s.db.QueryRowContext(ctx, q).Scan(&returned, &outstanding); err != nil {
		return 0, 0, err
	}
	return returned, outstanding, nil
}

func scanBorrowing(row *sql.Row, b *Borrowing) error {
	err := row.Scan(
		&b.BorrowingID, &b.BorrowingULID, &b.BorrowingNumber, &b.MemberNo, &b.BookID,
		&b.Quantity, &b.BorrowDate, &b.DueDate, &b.ReturnDate, &b.Status, &b.LateFee,
	)
	if err == sql.ErrNoRows {
		return ErrNotFound("borrowing not found")
	}
	return err
}

func buildWhere(f Filter) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`WHERE 1=1`)
	args := []any{}
	if f.MemberNo != nil {
		sb.WriteString(` AND member_no = ?`)
		args = append(args, *f.MemberNo)
	}
	if f.BookID != nil {
		sb.WriteString(` AND book_id = ?`)
		args = append(args, *f.BookID)
	}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}
	return sb.String(), args
}
