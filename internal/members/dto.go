package members

import "time"

type CreateMemberRequest struct {
	Name           string  `json:"name" binding:"required"`
	Email          string  `json:"email" binding:"required"`
	Phone          string  `json:"phone,omitempty"`
	MembershipType string  `json:"membership_type,omitempty"`
	JoinDate       *string `json:"join_date,omitempty"` // YYYY-MM-DD
}

type UpdateMemberRequest struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	MembershipType *string `json:"membership_type,omitempty"`
	Status         *Status `json:"status,omitempty"`
}

type MemberResponse struct {
	MemberID       int64     `json:"member_id"`
	MemberULID     string    `json:"member_ulid"`
	MemberNo       string    `json:"member_no"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	MembershipType string    `json:"membership_type"`
	Status         Status    `json:"status"`
	JoinDate       time.Time `json:"join_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func buildMemberResponse(m *Member) MemberResponse {
	return MemberResponse{
		MemberID:       m.MemberID,
		MemberULID:     m.MemberULID,
		MemberNo:       m.MemberNo,
		Name:           m.Name,
		Email:          m.Email,
		Phone:          m.Phone,
		MembershipType: m.MembershipType,
		Status:         m.Status,
		JoinDate:       m.JoinDate,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
