package reservations

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"LMS-backend/internal/circulation/events"
	"LMS-backend/internal/circulation/numbering"
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

type Store interface {
	ListNumbersByYear(ctx context.Context, year int) ([]string, error)
	Insert(ctx context.Context, r *Reservation) error
	ExecReceive(ctx context.Context, key string) (*Reservation, int, error)
	ExecCancel(ctx context.Context, key string) (*Reservation, error)
	GetByKey(ctx context.Context, key string) (*Reservation, error)
	List(ctx context.Context, f Filter, p Page) ([]Reservation, int64, error)
	Update(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, key string) error
}

// ===== Service =====

type Service struct {
	store Store
	clock Clock
	id    IDGen
	pub   events.Publisher
}

func NewService(db *sql.DB, pub events.Publisher) *Service {
	return newService(NewStore(db), pub)
}

func newService(store Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store: store,
		clock: realClock{},
		id:    ulidGen{},
		pub:   pub,
	}
}

func (s *Service) CreateReservation(ctx context.Context, req CreateReservationRequest) (*ReservationResponse, error) {
	if req.MemberNo == "" {
		return nil, ErrInvalid("member_id is required")
	}
	if req.BookID <= 0 {
		return nil, ErrInvalid("book_id is required")
	}

	now := s.clock.Now()

	reservationDate := now
	if req.ReservationDate != nil && *req.ReservationDate != "" {
		parsed, err := parseDate(*req.ReservationDate)
		if err != nil {
			return nil, err
		}
		reservationDate = parsed
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	nums, err := s.store.ListNumbersByYear(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		ReservationULID:   idStr,
		ReservationNumber: numbering.Next(nums, numbering.ReservationPrefix, now.Year()),
		MemberNo:          req.MemberNo,
		BookID:            req.BookID,
		ReservationDate:   reservationDate,
		Status:            StatusPending,
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeReservationCreated, map[string]any{
		"reservation_number": r.ReservationNumber,
		"member_id":          r.MemberNo,
		"book_id":            r.BookID,
	})

	resp := buildReservationResponse(r)
	return &resp, nil
}

// ReceiveReservation runs PENDING -> RECEIVED and auto-cancels the
// member's other pending reservations for the same book in the same
// transaction. The reservation.received event is the signal observers
// use to follow up with a borrowing; no borrowing is created here.
func (s *Service) ReceiveReservation(ctx context.Context, key string) (*ReceiveResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	r, cancelled, err := s.store.ExecReceive(ctx, key)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeReservationReceived, map[string]any{
		"reservation_number": r.ReservationNumber,
		"member_id":          r.MemberNo,
		"book_id":            r.BookID,
		"auto_cancelled":     cancelled,
	})

	return &ReceiveResponse{
		ReservationResponse: buildReservationResponse(r),
		AutoCancelled:       cancelled,
	}, nil
}

func (s *Service) CancelReservation(ctx context.Context, key string) (*ReservationResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	r, err := s.store.ExecCancel(ctx, key)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeReservationCancelled, map[string]any{
		"reservation_number": r.ReservationNumber,
		"member_id":          r.MemberNo,
		"book_id":            r.BookID,
	})

	resp := buildReservationResponse(r)
	return &resp, nil
}

func (s *Service) GetReservation(ctx context.Context, key string) (*ReservationResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}
	r, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildReservationResponse(r)
	return &resp, nil
}

func (s *Service) ListReservations(ctx context.Context, f Filter, p Page) ([]ReservationResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	result := make([]ReservationResponse, 0, len(items))
	for i := range items {
		result = append(result, buildReservationResponse(&items[i]))
	}
	return result, total, nil
}

func (s *Service) UpdateReservation(ctx context.Context, key string, req UpdateReservationRequest) (*ReservationResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	r, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if req.MemberNo != nil && *req.MemberNo != "" {
		r.MemberNo = *req.MemberNo
	}
	if req.ReservationDate != nil && *req.ReservationDate != "" {
		parsed, err := parseDate(*req.ReservationDate)
		if err != nil {
			return nil, err
		}
		r.ReservationDate = parsed
	}

	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}

	resp := buildReservationResponse(r)
	return &resp, nil
}

func (s *Service) DeleteReservation(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalid("id or ulid is required")
	}
	return s.store.Delete(ctx, key)
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
