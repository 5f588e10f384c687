package members

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

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
	Insert(ctx context.Context, m *Member) error
	GetByKey(ctx context.Context, key string) (*Member, error)
	List(ctx context.Context, f Filter, p Page) ([]Member, int64, error)
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, key string) error
}

// ===== Service =====

type Service struct {
	store Store
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return newService(NewStore(db))
}

func newService(store Store) *Service {
	return &Service{
		store: store,
		clock: realClock{},
		id:    ulidGen{},
	}
}

func (s *Service) CreateMember(ctx context.Context, req CreateMemberRequest) (*MemberResponse, error) {
	if req.Name == "" {
		return nil, ErrInvalid("name is required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, ErrInvalid("valid email is required")
	}

	now := s.clock.Now()

	joinDate := now
	if req.JoinDate != nil && *req.JoinDate != "" {
		parsed, err := parseDate(*req.JoinDate)
		if err != nil {
			return nil, err
		}
		joinDate = parsed
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	nums, err := s.store.ListNumbersByYear(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	membershipType := req.MembershipType
	if membershipType == "" {
		membershipType = "STANDARD"
	}

	m := &Member{
		MemberULID:     idStr,
		MemberNo:       numbering.Next(nums, numbering.MemberPrefix, now.Year()),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		MembershipType: membershipType,
		Status:         StatusActive,
		JoinDate:       joinDate,
	}

	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	resp := buildMemberResponse(m)
	return &resp, nil
}

func (s *Service) GetMember(ctx context.Context, key string) (*MemberResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id, member_no or ulid is required")
	}
	m, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildMemberResponse(m)
	return &resp, nil
}

func (s *Service) ListMembers(ctx context.Context, f Filter, p Page) ([]MemberResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	result := make([]MemberResponse, 0, len(items))
	for i := range items {
		result = append(result, buildMemberResponse(&items[i]))
	}
	return result, total, nil
}

func (s *Service) UpdateMember(ctx context.Context, key string, req UpdateMemberRequest) (*MemberResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id, member_no or ulid is required")
	}

	m, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		m.Name = *req.Name
	}
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			return nil, ErrInvalid("valid email is required")
		}
		m.Email = *req.Email
	}
	if req.Phone != nil {
		m.Phone = *req.Phone
	}
	if req.MembershipType != nil && *req.MembershipType != "" {
		m.MembershipType = *req.MembershipType
	}
	if req.Status != nil {
		if *req.Status != StatusActive && *req.Status != StatusInactive {
			return nil, ErrInvalid("status must be ACTIVE or INACTIVE")
		}
		m.Status = *req.Status
	}

	if err := s.store.Update(ctx, m); err != nil {
		return nil, err
	}

	resp := buildMemberResponse(m)
	return &resp, nil
}

func (s *Service) DeleteMember(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalid("id, member_no or ulid is required")
	}
	return s.store.Delete(ctx, key)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalid("invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}
