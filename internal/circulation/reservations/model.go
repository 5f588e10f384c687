package reservations

import "time"

// Status is the reservation lifecycle state. PENDING is the only
// non-terminal state; RECEIVED and CANCELLED are final.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Terminal() bool { return s == StatusReceived || s == StatusCancelled }

// Reservation represents one row of the reservations table.
type Reservation struct {
	ReservationID     int64
	ReservationULID   string
	ReservationNumber string
	MemberNo          string
	BookID            int64
	ReservationDate   time.Time
	Status            Status
}

// ApplyReceive performs PENDING -> RECEIVED. Receiving does not create a
// borrowing or touch inventory; staff record the pickup as a separate
// borrowing, and observers get the reservation.received signal.
func (r *Reservation) ApplyReceive() error {
	if r.Status != StatusPending {
		return ErrConflict("reservation is not pending")
	}
	r.Status = StatusReceived
	return nil
}

// ApplyCancel performs PENDING -> CANCELLED.
func (r *Reservation) ApplyCancel() error {
	if r.Status != StatusPending {
		return ErrConflict("reservation is not pending")
	}
	r.Status = StatusCancelled
	return nil
}

type Filter struct {
	MemberNo *string
	BookID   *int64
	Status   *Status
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
