package catalog

import "time"

// Book represents one row of the books table. Availability is derived,
// never set directly: it must equal available_copies > 0 at all times.
type Book struct {
	BookID          int64
	BookULID        string
	BookNo          string
	Title           string
	Author          string
	Genre           string
	Year            int
	Edition         string
	Description     string
	Language        string
	Image           string
	Location        string
	AvailableCopies int
	Availability    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Recompute re-derives availability from the copy count.
func (b *Book) Recompute() {
	b.Availability = b.AvailableCopies > 0
}

type SearchQuery struct {
	Search    *string // substring over title/author/genre
	Language  *string
	YearFrom  *int
	YearTo    *int
	Available *bool
	Genre     *string
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
