package catalog

import "time"

type CreateBookRequest struct {
	BookNo          string `json:"book_no,omitempty"`
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	Genre           string `json:"genre,omitempty"`
	Year            int    `json:"year,omitempty"`
	Edition         string `json:"edition,omitempty"`
	Description     string `json:"description,omitempty"`
	Language        string `json:"language,omitempty"`
	Image           string `json:"image,omitempty"`
	Location        string `json:"location,omitempty"`
	AvailableCopies int    `json:"available_copies"`
}

// Partial update. Availability is not accepted: it is re-derived
// whenever the copy count changes.
type UpdateBookRequest struct {
	BookNo          *string `json:"book_no,omitempty"`
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	Year            *int    `json:"year,omitempty"`
	Edition         *string `json:"edition,omitempty"`
	Description     *string `json:"description,omitempty"`
	Language        *string `json:"language,omitempty"`
	Image           *string `json:"image,omitempty"`
	Location        *string `json:"location,omitempty"`
	AvailableCopies *int    `json:"available_copies,omitempty"`
}

type BookResponse struct {
	BookID          int64     `json:"book_id"`
	BookULID        string    `json:"book_ulid"`
	BookNo          string    `json:"book_no"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre,omitempty"`
	Year            int       `json:"year,omitempty"`
	Edition         string    `json:"edition,omitempty"`
	Description     string    `json:"description,omitempty"`
	Language        string    `json:"language,omitempty"`
	Image           string    `json:"image,omitempty"`
	Location        string    `json:"location,omitempty"`
	AvailableCopies int       `json:"available_copies"`
	Availability    bool      `json:"availability"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StatsResponse struct {
	TotalBooks       int64 `json:"total_books"`
	AvailableBooks   int64 `json:"available_books"`
	UnavailableBooks int64 `json:"unavailable_books"`
	TotalCopies      int64 `json:"total_copies"`
	AvailableCopies  int64 `json:"available_copies"`
}

type NextNumberResponse struct {
	BookNo string `json:"book_no"`
}

func buildBookResponse(b *Book) BookResponse {
	return BookResponse{
		BookID:          b.BookID,
		BookULID:        b.BookULID,
		BookNo:          b.BookNo,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           b.Genre,
		Year:            b.Year,
		Edition:         b.Edition,
		Description:     b.Description,
		Language:        b.Language,
		Image:           b.Image,
		Location:        b.Location,
		AvailableCopies: b.AvailableCopies,
		Availability:    b.Availability,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
