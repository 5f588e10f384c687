package borrowings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LMS-backend/internal/circulation/events"
	"LMS-backend/internal/circulation/policy"
)

// fakeStore keeps borrowings and book inventory in memory. Transitions go
// through the same CheckStock/ApplyReturn helpers the SQL store uses.
type fakeStore struct {
	nextID     int64
	borrowings map[int64]*Borrowing
	copies     map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		borrowings: map[int64]*Borrowing{},
		copies:     map[int64]int{},
	}
}

func (f *fakeStore) ListNumbersByYear(ctx context.Context, year int) ([]string, error) {
	var out []string
	for _, b := range f.borrowings {
		out = append(out, b.BorrowingNumber)
	}
	return out, nil
}

func (f *fakeStore) ExecCreateBorrowing(ctx context.Context, b *Borrowing) error {
	copies, ok := f.copies[b.BookID]
	if !ok {
		return ErrNotFound("book not found")
	}
	if err := CheckStock(copies, b.Quantity); err != nil {
		return err
	}
	f.copies[b.BookID] = copies - b.Quantity
	f.nextID++
	b.BorrowingID = f.nextID
	clone := *b
	f.borrowings[b.BorrowingID] = &clone
	return nil
}

func (f *fakeStore) ExecReturnBorrowing(ctx context.Context, key string, returnedAt time.Time, weeklyFee float64) (*Borrowing, error) {
	b, err := f.byKey(key)
	if err != nil {
		return nil, err
	}
	if err := b.ApplyReturn(returnedAt, weeklyFee); err != nil {
		return nil, err
	}
	f.copies[b.BookID] += b.Quantity
	clone := *b
	return &clone, nil
}

func (f *fakeStore) GetByKey(ctx context.Context, key string) (*Borrowing, error) {
	b, err := f.byKey(key)
	if err != nil {
		return nil, err
	}
	clone := *b
	return &clone, nil
}

func (f *fakeStore) List(ctx context.Context, filter Filter, p Page) ([]Borrowing, int64, error) {
	var out []Borrowing
	for _, b := range f.borrowings {
		if filter.MemberNo != nil && b.MemberNo != *filter.MemberNo {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Update(ctx context.Context, b *Borrowing) error {
	if _, ok := f.borrowings[b.BorrowingID]; !ok {
		return ErrNotFound("borrowing not found")
	}
	clone := *b
	f.borrowings[b.BorrowingID] = &clone
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	b, err := f.byKey(key)
	if err != nil {
		return err
	}
	delete(f.borrowings, b.BorrowingID)
	return nil
}

func (f *fakeStore) SumFees(ctx context.Context) (float64, float64, error) {
	var returned, outstanding float64
	for _, b := range f.borrowings {
		if b.Status == StatusReturned {
			returned += b.LateFee
		} else {
			outstanding += b.LateFee
		}
	}
	return returned, outstanding, nil
}

func (f *fakeStore) byKey(key string) (*Borrowing, error) {
	for _, b := range f.borrowings {
		if fmt.Sprint(b.BorrowingID) == key || b.BorrowingULID == key {
			return b, nil
		}
	}
	return nil, ErrNotFound("borrowing not found")
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type capturingPublisher struct {
	types    []string
	payloads []map[string]any
}

func (p *capturingPublisher) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	p.types = append(p.types, eventType)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func strptr(s string) *string { return &s }

func newTestService(store *fakeStore, now time.Time, pub events.Publisher) *Service {
	svc := newService(store, policy.Policy{LoanDays: 14, WeeklyFee: 100}, pub)
	svc.clock = &fakeClock{now: now}
	return svc
}

func TestCreateBorrowing(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 3
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	pub := &capturingPublisher{}
	svc := newTestService(store, now, pub)

	res, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{
		MemberNo: "M20260001",
		BookID:   7,
		Quantity: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, res.Status)
	assert.Equal(t, 0.0, res.LateFee)
	assert.Equal(t, "BR20260001", res.BorrowingNumber)
	assert.Equal(t, now.AddDate(0, 0, 14), res.DueDate)
	assert.Nil(t, res.ReturnDate)
	assert.Equal(t, 1, store.copies[7])
	assert.Equal(t, []string{events.TypeBorrowingCreated}, pub.types)
}

func TestCreateBorrowingNumbersAdvance(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 5
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, now, nil)

	first, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 1})
	require.NoError(t, err)
	second, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, "BR20260001", first.BorrowingNumber)
	assert.Equal(t, "BR20260002", second.BorrowingNumber)
}

func TestCreateBorrowingValidation(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 3
	svc := newTestService(store, time.Now(), nil)

	testCases := []struct {
		name string
		req  CreateBorrowingRequest
		code Code
	}{
		{"zero quantity", CreateBorrowingRequest{MemberNo: "M1", BookID: 7}, CodeInvalidArgument},
		{"missing member", CreateBorrowingRequest{BookID: 7, Quantity: 1}, CodeInvalidArgument},
		{"missing book", CreateBorrowingRequest{MemberNo: "M1", Quantity: 1}, CodeInvalidArgument},
		{"bad date", CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 1, BorrowDate: strptr("02-03-2026")}, CodeInvalidArgument},
		{"quantity over stock", CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 4}, CodeConflict},
		{"unknown book", CreateBorrowingRequest{MemberNo: "M1", BookID: 99, Quantity: 1}, CodeNotFound},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBorrowing(context.Background(), tt.req)
			require.Error(t, err)
			api, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.code, api.Code)
			// No partial mutation on rejection.
			assert.Equal(t, 3, store.copies[7])
			assert.Empty(t, store.borrowings)
		})
	}
}

func TestReturnBorrowingRestoresStock(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 3
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	pub := &capturingPublisher{}
	svc := newTestService(store, now, pub)

	created, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{
		MemberNo: "M20260001",
		BookID:   7,
		Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.copies[7])

	// Returned 10 days past the 14-day window: 2 started weeks at 100.
	svc.clock = &fakeClock{now: created.DueDate.AddDate(0, 0, 10)}
	returned, err := svc.ReturnBorrowing(context.Background(), created.BorrowingULID)
	require.NoError(t, err)

	assert.Equal(t, StatusReturned, returned.Status)
	assert.Equal(t, 200.0, returned.LateFee)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 3, store.copies[7])
	assert.Equal(t, []string{events.TypeBorrowingCreated, events.TypeBorrowingReturned}, pub.types)
}

func TestReturnBorrowingOnTimeNoFee(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 1
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, now, nil)

	created, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 1})
	require.NoError(t, err)

	svc.clock = &fakeClock{now: created.DueDate}
	returned, err := svc.ReturnBorrowing(context.Background(), created.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, returned.LateFee)
}

func TestReturnBorrowingTwiceRejected(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 2
	svc := newTestService(store, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), nil)

	created, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.ReturnBorrowing(context.Background(), created.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.copies[7])

	_, err = svc.ReturnBorrowing(context.Background(), created.BorrowingULID)
	require.Error(t, err)
	api, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, CodeConflict, api.Code)
	// The second attempt must not double-restore inventory.
	assert.Equal(t, 2, store.copies[7])
}

func TestDeleteBorrowingKeepsInventory(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 3
	svc := newTestService(store, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), nil)

	created, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, store.copies[7])

	require.NoError(t, svc.DeleteBorrowing(context.Background(), created.BorrowingULID))
	// Administrative delete does not restore copies.
	assert.Equal(t, 1, store.copies[7])
}

func TestUpdateBorrowingRederivesStatusAndFee(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 1
	now := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, now, nil)

	created, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: "M1", BookID: 7, Quantity: 1})
	require.NoError(t, err)

	// Setting a return date one day past due closes the borrowing with one week's fee.
	late := created.DueDate.AddDate(0, 0, 1).Format("2006-01-02")
	updated, err := svc.UpdateBorrowing(context.Background(), created.BorrowingULID, UpdateBorrowingRequest{ReturnDate: &late})
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, updated.Status)
	assert.Equal(t, 100.0, updated.LateFee)

	// Clearing the return date reopens it; before due, no fee accrues.
	updated, err = svc.UpdateBorrowing(context.Background(), created.BorrowingULID, UpdateBorrowingRequest{ReturnDate: strptr("")})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)
	assert.Equal(t, 0.0, updated.LateFee)
}

func TestListBorrowingsMemberFilter(t *testing.T) {
	store := newFakeStore()
	store.copies[7] = 5
	svc := newTestService(store, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), nil)

	for _, m := range []string{"M1", "M2", "M1"} {
		_, err := svc.CreateBorrowing(context.Background(), CreateBorrowingRequest{MemberNo: m, BookID: 7, Quantity: 1})
		require.NoError(t, err)
	}

	member := "M1"
	res, total, err := svc.ListBorrowings(context.Background(), Filter{MemberNo: &member}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, res, 2)
}

func TestFineStatsRounding(t *testing.T) {
	store := newFakeStore()
	store.borrowings[1] = &Borrowing{BorrowingID: 1, Status: StatusReturned, LateFee: 0.1}
	store.borrowings[2] = &Borrowing{BorrowingID: 2, Status: StatusReturned, LateFee: 0.2}
	store.borrowings[3] = &Borrowing{BorrowingID: 3, Status: StatusActive, LateFee: 100}
	store.nextID = 3
	svc := newTestService(store, time.Now(), nil)

	stats, err := svc.FineStats(context.Background())
	require.NoError(t, err)
	// 0.1 + 0.2 only sums to a clean 0.3 after aggregate rounding.
	assert.Equal(t, 100.3, stats.TotalFines)
	assert.Equal(t, 0.3, stats.PaidFines)
	assert.Equal(t, 100.0, stats.PendingFines)
}
