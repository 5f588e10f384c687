package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	nextID int64
	books  map[int64]*Book
}

func newFakeStore() *fakeStore {
	return &fakeStore{books: map[int64]*Book{}}
}

func (f *fakeStore) ListBookNumbers(ctx context.Context) ([]string, error) {
	var out []string
	for _, b := range f.books {
		out = append(out, b.BookNo)
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, b *Book) error {
	for _, other := range f.books {
		if other.BookNo == b.BookNo {
			return ErrConflict("book_no already exists")
		}
	}
	f.nextID++
	b.BookID = f.nextID
	clone := *b
	f.books[b.BookID] = &clone
	return nil
}

func (f *fakeStore) GetByKey(ctx context.Context, key string) (*Book, error) {
	b, err := f.byKey(key)
	if err != nil {
		return nil, err
	}
	clone := *b
	return &clone, nil
}

func (f *fakeStore) List(ctx context.Context, q SearchQuery, p Page) ([]Book, int64, error) {
	var out []Book
	for id := int64(1); id <= f.nextID; id++ {
		b, ok := f.books[id]
		if !ok {
			continue
		}
		if q.Search != nil {
			s := *q.Search
			if !strings.Contains(b.Title, s) && !strings.Contains(b.Author, s) && !strings.Contains(b.Genre, s) {
				continue
			}
		}
		if q.Genre != nil && b.Genre != *q.Genre {
			continue
		}
		if q.Language != nil && b.Language != *q.Language {
			continue
		}
		if q.YearFrom != nil && b.Year < *q.YearFrom {
			continue
		}
		if q.YearTo != nil && b.Year > *q.YearTo {
			continue
		}
		if q.Available != nil && b.Availability != *q.Available {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Update(ctx context.Context, b *Book) error {
	if _, ok := f.books[b.BookID]; !ok {
		return ErrNotFound("book not found")
	}
	clone := *b
	f.books[b.BookID] = &clone
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	b, err := f.byKey(key)
	if err != nil {
		return err
	}
	delete(f.books, b.BookID)
	return nil
}

func (f *fakeStore) Stats(ctx context.Context) (*StatsResponse, error) {
	var st StatsResponse
	for _, b := range f.books {
		st.TotalBooks++
		if b.Availability {
			st.AvailableBooks++
		} else {
			st.UnavailableBooks++
		}
		st.TotalCopies += int64(b.AvailableCopies)
	}
	st.AvailableCopies = st.TotalCopies
	return &st, nil
}

func (f *fakeStore) Genres(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, b := range f.books {
		if b.Genre != "" && !seen[b.Genre] {
			seen[b.Genre] = true
			out = append(out, b.Genre)
		}
	}
	return out, nil
}

func (f *fakeStore) byKey(key string) (*Book, error) {
	for _, b := range f.books {
		if fmt.Sprint(b.BookID) == key || b.BookULID == key || b.BookNo == key {
			return b, nil
		}
	}
	return nil, ErrNotFound("book not found")
}

func TestCreateBookSuggestsNumber(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	res, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:           "The Go Programming Language",
		Author:          "Donovan",
		AvailableCopies: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "B10001", res.BookNo)
	assert.True(t, res.Availability)

	// Subsequent numbers follow the max numeric suffix.
	next, err := svc.NextBookNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B10002", next.BookNo)
}

func TestCreateBookZeroCopiesUnavailable(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	res, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:  "Out of Stock",
		Author: "Nobody",
	})
	require.NoError(t, err)
	assert.False(t, res.Availability)
	assert.Equal(t, 0, res.AvailableCopies)
}

func TestCreateBookValidation(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	testCases := []struct {
		name string
		req  CreateBookRequest
	}{
		{"missing title", CreateBookRequest{Author: "A"}},
		{"missing author", CreateBookRequest{Title: "T"}},
		{"negative copies", CreateBookRequest{Title: "T", Author: "A", AvailableCopies: -1}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBook(context.Background(), tt.req)
			require.Error(t, err)
			api, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, CodeInvalidArgument, api.Code)
		})
	}
}

func TestNextBookNumberSkipsMalformed(t *testing.T) {
	store := newFakeStore()
	store.books[1] = &Book{BookID: 1, BookNo: "B10005"}
	store.books[2] = &Book{BookID: 2, BookNo: "B10002"}
	store.books[3] = &Book{BookID: 3, BookNo: "LEGACY-7"}
	store.nextID = 3
	svc := newService(store)

	next, err := svc.NextBookNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B10006", next.BookNo)
}

func TestUpdateBookRederivesAvailability(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	created, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title: "T", Author: "A", AvailableCopies: 2,
	})
	require.NoError(t, err)
	require.True(t, created.Availability)

	zero := 0
	updated, err := svc.UpdateBook(context.Background(), created.BookULID, UpdateBookRequest{AvailableCopies: &zero})
	require.NoError(t, err)
	assert.False(t, updated.Availability)

	five := 5
	updated, err = svc.UpdateBook(context.Background(), created.BookULID, UpdateBookRequest{AvailableCopies: &five})
	require.NoError(t, err)
	assert.True(t, updated.Availability)
}

func TestGetBookByNumber(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	created, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title: "T", Author: "A", BookNo: "B10042", AvailableCopies: 1,
	})
	require.NoError(t, err)

	got, err := svc.GetBook(context.Background(), "B10042")
	require.NoError(t, err)
	assert.Equal(t, created.BookID, got.BookID)
}

func TestListBooksSearch(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	for _, b := range []CreateBookRequest{
		{Title: "Go in Action", Author: "Kennedy", Genre: "Programming", AvailableCopies: 1},
		{Title: "Dune", Author: "Herbert", Genre: "SciFi", AvailableCopies: 1},
		{Title: "Neuromancer", Author: "Gibson", Genre: "SciFi"},
	} {
		_, err := svc.CreateBook(context.Background(), b)
		require.NoError(t, err)
	}

	search := "SciFi"
	res, total, err := svc.ListBooks(context.Background(), SearchQuery{Search: &search}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	avail := true
	res, total, err = svc.ListBooks(context.Background(), SearchQuery{Search: &search, Available: &avail}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Dune", res[0].Title)
}

func TestExportCSVWritesBOM(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	_, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title: "Dune", Author: "Herbert", Genre: "SciFi", Year: 1965, AvailableCopies: 2,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))
	body := string(out)
	assert.Contains(t, body, "book_no,title,author")
	assert.Contains(t, body, "Dune,Herbert,SciFi,1965")
}
