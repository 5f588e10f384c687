package borrowings

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"LMS-backend/internal/circulation/events"
	"LMS-backend/internal/circulation/numbering"
	"LMS-backend/internal/circulation/policy"
)

// ===== interfaces =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Store is the persistence boundary. The SQL implementation runs every
// state transition as one transaction; no partially applied state is
// visible to other readers.
type Store interface {
	ListNumbersByYear(ctx context.Context, year int) ([]string, error)
	ExecCreateBorrowing(ctx context.Context, b *Borrowing) error
	ExecReturnBorrowing(ctx context.Context, key string, returnedAt time.Time, weeklyFee float64) (*Borrowing, error)
	GetByKey(ctx context.Context, key string) (*Borrowing, error)
	List(ctx context.Context, f Filter, p Page) ([]Borrowing, int64, error)
	Update(ctx context.Context, b *Borrowing) error
	Delete(ctx context.Context, key string) error
	SumFees(ctx context.Context) (returned float64, outstanding float64, err error)
}

// ===== Service =====

type Service struct {
	store Store
	clock Clock
	id    IDGen
	pol   policy.Policy
	pub   events.Publisher
}

func NewService(db *sql.DB, pol policy.Policy, pub events.Publisher) *Service {
	return newService(NewStore(db), pol, pub)
}

func newService(store Store, pol policy.Policy, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store: store,
		clock: realClock{},
		id:    ulidGen{},
		pol:   pol,
		pub:   pub,
	}
}

// CreateBorrowing starts an ACTIVE borrowing. The stock precondition is
// enforced by the store under a row lock; the suggested borrowing number
// is advisory and a duplicate insert surfaces as a conflict.
func (s *Service) CreateBorrowing(ctx context.Context, req CreateBorrowingRequest) (*BorrowingResponse, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalid("quantity must be >= 1")
	}
	if req.MemberNo == "" {
		return nil, ErrInvalid("member_id is required")
	}
	if req.BookID <= 0 {
		return nil, ErrInvalid("book_id is required")
	}

	now := s.clock.Now()

	borrowDate := now
	if req.BorrowDate != nil && *req.BorrowDate != "" {
		parsed, err := parseDate(*req.BorrowDate)
		if err != nil {
			return nil, err
		}
		borrowDate = parsed
	}

	dueDate := s.pol.DueDate(borrowDate)
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = parsed
	}
	if dueDate.Before(borrowDate) {
		return nil, ErrInvalid("due_date must not precede borrow_date")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	nums, err := s.store.ListNumbersByYear(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	b := &Borrowing{
		BorrowingULID:   idStr,
		BorrowingNumber: numbering.Next(nums, numbering.BorrowingPrefix, now.Year()),
		MemberNo:        req.MemberNo,
		BookID:          req.BookID,
		Quantity:        req.Quantity,
		BorrowDate:      borrowDate,
		DueDate:         dueDate,
		Status:          StatusActive,
		LateFee:         0,
	}

	if err := s.store.ExecCreateBorrowing(ctx, b); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeBorrowingCreated, map[string]any{
		"borrowing_number": b.BorrowingNumber,
		"member_id":        b.MemberNo,
		"book_id":          b.BookID,
		"quantity":         b.Quantity,
		"due_date":         b.DueDate.Format("2006-01-02"),
	})

	resp := buildBorrowingResponse(b)
	return &resp, nil
}

// ReturnBorrowing runs the ACTIVE -> RETURNED transition: return date,
// late fee, status and inventory restore happen in one transaction.
func (s *Service) ReturnBorrowing(ctx context.Context, key string) (*BorrowingResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	b, err := s.store.ExecReturnBorrowing(ctx, key, s.clock.Now(), s.pol.WeeklyFee)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeBorrowingReturned, map[string]any{
		"borrowing_number": b.BorrowingNumber,
		"member_id":        b.MemberNo,
		"book_id":          b.BookID,
		"quantity":         b.Quantity,
		"late_fee":         b.LateFee,
	})

	resp := buildBorrowingResponse(b)
	return &resp, nil
}

func (s *Service) GetBorrowing(ctx context.Context, key string) (*BorrowingResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}
	b, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildBorrowingResponse(b)
	return &resp, nil
}

func (s *Service) ListBorrowings(ctx context.Context, f Filter, p Page) ([]BorrowingResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	result := make([]BorrowingResponse, 0, len(items))
	for i := range items {
		result = append(result, buildBorrowingResponse(&items[i]))
	}
	return result, total, nil
}

// UpdateBorrowing applies the administrative partial update: member and
// dates may change, status is re-derived from return-date presence, and
// the late fee is recomputed. Inventory is not touched here; only the
// create/return transitions move stock.
func (s *Service) UpdateBorrowing(ctx context.Context, key string, req UpdateBorrowingRequest) (*BorrowingResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	b, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if req.MemberNo != nil && *req.MemberNo != "" {
		b.MemberNo = *req.MemberNo
	}
	if req.BorrowDate != nil && *req.BorrowDate != "" {
		parsed, err := parseDate(*req.BorrowDate)
		if err != nil {
			return nil, err
		}
		b.BorrowDate = parsed
	}
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		b.DueDate = parsed
	}
	if req.ReturnDate != nil {
		if *req.ReturnDate == "" {
			b.ReturnDate = sql.NullTime{}
		} else {
			parsed, err := parseDate(*req.ReturnDate)
			if err != nil {
				return nil, err
			}
			b.ReturnDate = sql.NullTime{Time: parsed, Valid: true}
		}
	}

	if b.ReturnDate.Valid {
		b.Status = StatusReturned
	} else {
		b.Status = StatusActive
	}
	var returnedAt *time.Time
	if b.ReturnDate.Valid {
		val := b.ReturnDate.Time
		returnedAt = &val
	}
	b.LateFee = s.pol.LateFee(b.DueDate, returnedAt, s.clock.Now())

	if err := s.store.Update(ctx, b); err != nil {
		return nil, err
	}

	resp := buildBorrowingResponse(b)
	return &resp, nil
}

// DeleteBorrowing removes the record administratively. Unlike a return it
// does not restore book inventory; the return transition is the only
// inventory-restoring path.
func (s *Service) DeleteBorrowing(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalid("id or ulid is required")
	}
	return s.store.Delete(ctx, key)
}

// FineStats aggregates late fees across all borrowings. Rounding to two
// decimals happens here, on the aggregate, never per record.
func (s *Service) FineStats(ctx context.Context) (*FineStatsResponse, error) {
	returned, outstanding, err := s.store.SumFees(ctx)
	if err != nil {
		return nil, err
	}
	return &FineStatsResponse{
		TotalFines:   policy.RoundAmount(returned + outstanding),
		PaidFines:    policy.RoundAmount(returned),
		PendingFines: policy.RoundAmount(outstanding),
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.pub.Publish(ctx, eventType, payload); err != nil {
		log.Printf("[WARN] failed to publish %s: %v", eventType, err)
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalid("invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}
