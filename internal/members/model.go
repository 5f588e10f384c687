package members

import "time"

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Member represents one row of the members table. MemberNo is the
// public identifier borrowings and reservations reference; MemberID is
// the surrogate key.
type Member struct {
	MemberID       int64
	MemberULID     string
	MemberNo       string
	Name           string
	Email          string
	Phone          string
	MembershipType string
	Status         Status
	JoinDate       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Filter struct {
	Search *string // substring over name/email/member_no
	Status *Status
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
