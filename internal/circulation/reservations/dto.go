package reservations

import "time"

// Reservation request. No availability precondition: reserving an
// unavailable book is the point of a reservation.
type CreateReservationRequest struct {
	MemberNo        string  `json:"member_id" binding:"required"`
	BookID          int64   `json:"book_id" binding:"required"`
	ReservationDate *string `json:"reservation_date,omitempty"`
}

// Partial update. Status is not updatable here; transitions go through
// the receive/cancel operations only.
type UpdateReservationRequest struct {
	MemberNo        *string `json:"member_id,omitempty"`
	ReservationDate *string `json:"reservation_date,omitempty"`
}

type ReservationResponse struct {
	ReservationID     int64     `json:"reservation_id"`
	ReservationULID   string    `json:"reservation_ulid"`
	ReservationNumber string    `json:"reservation_number"`
	MemberNo          string    `json:"member_id"`
	BookID            int64     `json:"book_id"`
	ReservationDate   time.Time `json:"reservation_date"`
	Status            Status    `json:"status"`
}

// ReceiveResponse reports the received reservation plus how many of the
// member's other pending reservations for the same book were auto-cancelled.
type ReceiveResponse struct {
	ReservationResponse
	AutoCancelled int `json:"auto_cancelled"`
}

func buildReservationResponse(r *Reservation) ReservationResponse {
	return ReservationResponse{
		ReservationID:     r.ReservationID,
		ReservationULID:   r.ReservationULID,
		ReservationNumber: r.ReservationNumber,
		MemberNo:          r.MemberNo,
		BookID:            r.BookID,
		ReservationDate:   r.ReservationDate,
		Status:            r.Status,
	}
}
