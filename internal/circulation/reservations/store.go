package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mysql "github.com/go-sql-driver/mysql"

	platformdb "LMS-backend/internal/platform/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const reservationColumns = `reservation_id, reservation_ulid, reservation_number, member_no, book_id,
	reservation_date, status`

func whereKey(key string) (string, any) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return "reservation_id = ?", id
	}
	return "reservation_ulid = ?", key
}

func (s *SQLStore) ListNumbersByYear(ctx context.Context, year int) ([]string, error) {
	const q = `SELECT reservation_number FROM reservations WHERE reservation_number LIKE CONCAT('RS', ?, '%')`
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

func (s *SQLStore) Insert(ctx context.Context, r *Reservation) error {
	const q = `
	INSERT INTO reservations
	(reservation_ulid, reservation_number, member_no, book_id, reservation_date, status)
	VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		r.ReservationULID, r.ReservationNumber, r.MemberNo, r.BookID, r.ReservationDate, r.Status,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) {
			switch me.Number {
			case 1062:
				return ErrConflict("reservation_number already exists")
			case 1452:
				return ErrInvalid("unknown member_no or book_id")
			}
		}
		return err
	}
	id, _ := res.LastInsertId()
	r.ReservationID = id
	return nil
}

// ExecReceive runs the receive transaction: lock the row, validate the
// PENDING precondition, flip to RECEIVED and cancel the member's other
// pending reservations for the same book.
func (s *SQLStore) ExecReceive(ctx context.Context, key string) (*Reservation, int, error) {
	var r Reservation
	var cancelled int64
	err := platformdb.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx platformdb.DBTX) error {
		clause, arg := whereKey(key)
		q := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s FOR UPDATE`, reservationColumns, clause)
		if err := scanReservation(tx.QueryRowContext(ctx, q, arg), &r); err != nil {
			return err
		}

		if err := r.ApplyReceive(); err != nil {
			return err
		}

		const upd = `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE reservation_id = ?`
		if _, err := tx.ExecContext(ctx, upd, r.Status, r.ReservationID); err != nil {
			return err
		}

		const cancel = `
		UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE member_no = ? AND book_id = ? AND status = ? AND reservation_id <> ?`
		res, err := tx.ExecContext(ctx, cancel, StatusCancelled, r.MemberNo, r.BookID, StatusPending, r.ReservationID)
		if err != nil {
			return err
		}
		cancelled, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &r, int(cancelled), nil
}

func (s *SQLStore) ExecCancel(ctx context.Context, key string) (*Reservation, error) {
	var r Reservation
	err := platformdb.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx platformdb.DBTX) error {
		clause, arg := whereKey(key)
		q := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s FOR UPDATE`, reservationColumns, clause)
		if err := scanReservation(tx.QueryRowContext(ctx, q, arg), &r); err != nil {
			return err
		}

		if err := r.ApplyCancel(); err != nil {
			return err
		}

		const upd = `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE reservation_id = ?`
		_, err := tx.ExecContext(ctx, upd, r.Status, r.ReservationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) GetByKey(ctx context.Context, key string) (*Reservation, error) {
	clause, arg := whereKey(key)
	q := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s`, reservationColumns, clause)
	var r Reservation
	if err := scanReservation(s.db.QueryRowContext(ctx, q, arg), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) List(ctx context.Context, f Filter, p Page) ([]Reservation, int64, error) {
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

	q := fmt.Sprintf(`SELECT %s FROM reservations %s ORDER BY reservation_date %s, reservation_id %s LIMIT ? OFFSET ?`,
		reservationColumns, where, order, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(
			&r.ReservationID, &r.ReservationULID, &r.ReservationNumber, &r.MemberNo, &r.BookID,
			&r.ReservationDate, &r.Status,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cq := `SELECT COUNT(*) FROM reservations ` + where
	if err := s.db.QueryRowContext(ctx, cq, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLStore) Update(ctx context.Context, r *Reservation) error {
	const q = `
	UPDATE reservations
	SET member_no = ?, reservation_date = ?, updated_at = CURRENT_TIMESTAMP
	WHERE reservation_id = ?`
	res, err := s.db.ExecContext(ctx, q, r.MemberNo, r.ReservationDate, r.ReservationID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1452 {
			return ErrInvalid("unknown member_no")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("reservation not found")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	clause, arg := whereKey(key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE `+clause, arg)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("reservation not found")
	}
	return nil
}

func scanReservation(row *sql.Row, r *Reservation) error {
	err := row.Scan(
		&r.ReservationID, &r.ReservationULID, &r.ReservationNumber, &r.MemberNo, &r.BookID,
		&r.ReservationDate, &r.Status,
	)
	if err == sql.ErrNoRows {
		return ErrNotFound("reservation not found")
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
