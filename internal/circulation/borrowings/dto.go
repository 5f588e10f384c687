package borrowings

import "time"

// Borrow request. Dates use "2006-01-02"; an omitted due date gets the
// policy default window from the borrow date.
type CreateBorrowingRequest struct {
	MemberNo   string  `json:"member_id" binding:"required"`
	BookID     int64   `json:"book_id" binding:"required"`
	Quantity   int     `json:"quantity"`
	BorrowDate *string `json:"borrow_date,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
}

// Partial update. A non-nil return_date re-derives status RETURNED and
// recomputes the late fee; an explicit empty string clears the return and
// reopens the borrowing.
type UpdateBorrowingRequest struct {
	MemberNo   *string `json:"member_id,omitempty"`
	BorrowDate *string `json:"borrow_date,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
	ReturnDate *string `json:"return_date,omitempty"`
}

type BorrowingResponse struct {
	BorrowingID     int64      `json:"borrowing_id"`
	BorrowingULID   string     `json:"borrowing_ulid"`
	BorrowingNumber string     `json:"borrowing_number"`
	MemberNo        string     `json:"member_id"`
	BookID          int64      `json:"book_id"`
	Quantity        int        `json:"quantity"`
	BorrowDate      time.Time  `json:"borrow_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	Status          Status     `json:"status"`
	LateFee         float64    `json:"late_fee"`
}

// Fine totals across all borrowings, rounded to 2 decimals.
type FineStatsResponse struct {
	TotalFines   float64 `json:"total_fines"`
	PaidFines    float64 `json:"paid_fines"`
	PendingFines float64 `json:"pending_fines"`
}

func buildBorrowingResponse(b *Borrowing) BorrowingResponse {
	resp := BorrowingResponse{
		BorrowingID:     b.BorrowingID,
		BorrowingULID:   b.BorrowingULID,
		BorrowingNumber: b.BorrowingNumber,
		MemberNo:        b.MemberNo,
		BookID:          b.BookID,
		Quantity:        b.Quantity,
		BorrowDate:      b.BorrowDate,
		DueDate:         b.DueDate,
		Status:          b.Status,
		LateFee:         b.LateFee,
	}
	if b.ReturnDate.Valid {
		val := b.ReturnDate.Time
		resp.ReturnDate = &val
	}
	return resp
}
