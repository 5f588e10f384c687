package borrowings

import (
	"database/sql"
	"time"

	"LMS-backend/internal/circulation/policy"
)

// Status is the borrowing lifecycle state. ACTIVE -> RETURNED, one way.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReturned Status = "RETURNED"
)

func (s Status) Terminal() bool { return s == StatusReturned }

// Borrowing represents one row of the borrowings table.
type Borrowing struct {
	BorrowingID     int64
	BorrowingULID   string
	BorrowingNumber string
	MemberNo        string
	BookID          int64
	Quantity        int
	BorrowDate      time.Time
	DueDate         time.Time
	ReturnDate      sql.NullTime
	Status          Status
	LateFee         float64
}

// ApplyReturn performs the ACTIVE -> RETURNED transition in place: stamps
// the return date, computes the late fee against the due date, and flips
// the status. A second return is a conflict, never a silent success.
// The caller is responsible for restoring book inventory alongside.
func (b *Borrowing) ApplyReturn(returnedAt time.Time, weeklyFee float64) error {
	if b.Status != StatusActive {
		return ErrConflict("borrowing already returned")
	}
	b.ReturnDate = sql.NullTime{Time: returnedAt, Valid: true}
	b.LateFee = policy.CalculateLateFee(b.DueDate, returnedAt, weeklyFee)
	b.Status = StatusReturned
	return nil
}

// CheckStock validates the creation precondition against the copies
// currently available. Advisory outside a transaction; the store re-runs
// it under a row lock before the decrement.
func CheckStock(availableCopies, quantity int) error {
	if quantity < 1 {
		return ErrInvalid("quantity must be >= 1")
	}
	if quantity > availableCopies {
		return ErrConflict("insufficient available copies")
	}
	return nil
}

// Filter narrows borrowing listings.
type Filter struct {
	MemberNo *string
	BookID   *int64
	Status   *Status
}

// Page bounds listing results.
type Page struct {
	Limit  int
	Offset int
	Order  string
}
