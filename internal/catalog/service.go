package catalog

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"LMS-backend/internal/circulation/numbering"
)

// ===== interfaces =====

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
	ListBookNumbers(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, b *Book) error
	GetByKey(ctx context.Context, key string) (*Book, error)
	List(ctx context.Context, q SearchQuery, p Page) ([]Book, int64, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (*StatsResponse, error)
	Genres(ctx context.Context) ([]string, error)
}

// ===== Service =====

type Service struct {
	store Store
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return newService(NewStore(db))
}

func newService(store Store) *Service {
	return &Service{
		store: store,
		id:    ulidGen{},
	}
}

func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	if req.Title == "" {
		return nil, ErrInvalid("title is required")
	}
	if req.Author == "" {
		return nil, ErrInvalid("author is required")
	}
	if req.AvailableCopies < 0 {
		return nil, ErrInvalid("available_copies must be >= 0")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	bookNo := req.BookNo
	if bookNo == "" {
		nums, err := s.store.ListBookNumbers(ctx)
		if err != nil {
			return nil, err
		}
		bookNo = numbering.NextBookNumber(nums)
	}

	b := &Book{
		BookULID:        idStr,
		BookNo:          bookNo,
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		Year:            req.Year,
		Edition:         req.Edition,
		Description:     req.Description,
		Language:        req.Language,
		Image:           req.Image,
		Location:        req.Location,
		AvailableCopies: req.AvailableCopies,
	}
	b.Recompute()

	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}

	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) GetBook(ctx context.Context, key string) (*BookResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id, book_no or ulid is required")
	}
	b, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) ListBooks(ctx context.Context, q SearchQuery, p Page) ([]BookResponse, int64, error) {
	items, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return nil, 0, err
	}
	result := make([]BookResponse, 0, len(items))
	for i := range items {
		result = append(result, buildBookResponse(&items[i]))
	}
	return result, total, nil
}

func (s *Service) UpdateBook(ctx context.Context, key string, req UpdateBookRequest) (*BookResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id, book_no or ulid is required")
	}

	b, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if req.BookNo != nil && *req.BookNo != "" {
		b.BookNo = *req.BookNo
	}
	if req.Title != nil && *req.Title != "" {
		b.Title = *req.Title
	}
	if req.Author != nil && *req.Author != "" {
		b.Author = *req.Author
	}
	if req.Genre != nil {
		b.Genre = *req.Genre
	}
	if req.Year != nil {
		b.Year = *req.Year
	}
	if req.Edition != nil {
		b.Edition = *req.Edition
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Language != nil {
		b.Language = *req.Language
	}
	if req.Image != nil {
		b.Image = *req.Image
	}
	if req.Location != nil {
		b.Location = *req.Location
	}
	if req.AvailableCopies != nil {
		if *req.AvailableCopies < 0 {
			return nil, ErrInvalid("available_copies must be >= 0")
		}
		b.AvailableCopies = *req.AvailableCopies
	}
	// Availability always tracks the copy count, whether or not it changed.
	b.Recompute()

	if err := s.store.Update(ctx, b); err != nil {
		return nil, err
	}

	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) DeleteBook(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalid("id, book_no or ulid is required")
	}
	return s.store.Delete(ctx, key)
}

func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	return s.store.Stats(ctx)
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.store.Genres(ctx)
}

func (s *Service) NextBookNumber(ctx context.Context) (*NextNumberResponse, error) {
	nums, err := s.store.ListBookNumbers(ctx)
	if err != nil {
		return nil, err
	}
	return &NextNumberResponse{BookNo: numbering.NextBookNumber(nums)}, nil
}

var csvHeader = []string{
	"book_no", "title", "author", "genre", "year", "edition",
	"language", "location", "available_copies", "availability",
}

// ExportCSV streams the whole catalog as UTF-8 CSV with a BOM so
// spreadsheet tools pick the encoding up without prompting.
func (s *Service) ExportCSV(ctx context.Context, out io.Writer) error {
	items, _, err := s.store.List(ctx, SearchQuery{}, Page{Limit: 100000, Order: "asc"})
	if err != nil {
		return err
	}

	enc := unicode.UTF8BOM.NewEncoder()
	w := csv.NewWriter(transform.NewWriter(out, enc))

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for i := range items {
		b := &items[i]
		rec := []string{
			b.BookNo, b.Title, b.Author, b.Genre,
			strconv.Itoa(b.Year), b.Edition, b.Language, b.Location,
			strconv.Itoa(b.AvailableCopies), strconv.FormatBool(b.Availability),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
