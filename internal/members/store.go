package members

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

const memberColumns = `member_id, member_ulid, member_no, name, email, phone,
	membership_type, status, join_date, created_at, updated_at`

var memberNoKeyRe = regexp.MustCompile(`^M\d+$`)

func whereKey(key string) (string, any) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return "member_id = ?", id
	}
	if memberNoKeyRe.MatchString(key) {
		return "member_no = ?", key
	}
	return "member_ulid = ?", key
}

func (s *SQLStore) ListNumbersByYear(ctx context.Context, year int) ([]string, error) {
	const q = `SELECT member_no FROM members WHERE member_no LIKE CONCAT('M', ?, '%')`
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

func (s *SQLStore) Insert(ctx context.Context, m *Member) error {
	const q = `
	INSERT INTO members
	(member_ulid, member_no, name, email, phone, membership_type, status, join_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		m.MemberULID, m.MemberNo, m.Name, m.Email, m.Phone, m.MembershipType, m.Status, m.JoinDate,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict("member_no or email already exists")
		}
		return err
	}
	id, _ := res.LastInsertId()
	m.MemberID = id
	return nil
}

func (s *SQLStore) GetByKey(ctx context.Context, key string) (*Member, error) {
	clause, arg := whereKey(key)
	q := fmt.Sprintf(`SELECT %s FROM members WHERE %s`, memberColumns, clause)
	var m Member
	if err := scanMember(s.db.QueryRowContext(ctx, q, arg), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) List(ctx context.Context, f Filter, p Page) ([]Member, int64, error) {
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

	q := fmt.Sprintf(`SELECT %s FROM members %s ORDER BY member_id %s LIMIT ? OFFSET ?`,
		memberColumns, where, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(
			&m.MemberID, &m.MemberULID, &m.MemberNo, &m.Name, &m.Email, &m.Phone,
			&m.MembershipType, &m.Status, &m.JoinDate, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cq := `SELECT COUNT(*) FROM members ` + where
	if err := s.db.QueryRowContext(ctx, cq, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLStore) Update(ctx context.Context, m *Member) error {
	const q = `
	UPDATE members
	SET name = ?, email = ?, phone = ?, membership_type = ?, status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE member_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		m.Name, m.Email, m.Phone, m.MembershipType, m.Status, m.MemberID,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict("email already exists")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("member not found")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	clause, arg := whereKey(key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE `+clause, arg)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1451 {
			return ErrConflict("member has borrowings or reservations")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("member not found")
	}
	return nil
}

func scanMember(row *sql.Row, m *Member) error {
	err := row.Scan(
		&m.MemberID, &m.MemberULID, &m.MemberNo, &m.Name, &m.Email, &m.Phone,
		&m.MembershipType, &m.Status, &m.JoinDate, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return ErrNotFound("member not found")
	}
	return err
}

func buildWhere(f Filter) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`WHERE 1=1`)
	args := []any{}
	if f.Search != nil && *f.Search != "" {
		sb.WriteString(` AND (name LIKE ? OR email LIKE ? OR member_no LIKE ?)`)
		like := "%" + *f.Search + "%"
		args = append(args, like, like, like)
	}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}
	return sb.String(), args
}
