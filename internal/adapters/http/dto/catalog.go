package dto

import (
	"strconv"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

// Count query kinds, reported back in CountResponse.Query.
const (
	QueryBooks     = "books"
	QueryAuthor    = "author"
	QueryGenre     = "genre"
	QueryPublished = "published_between"
)

// BookResponse is the JSON form of a book.
type BookResponse struct {
	Name            string   `json:"name"`
	Author          string   `json:"author"`
	PublicationYear int      `json:"publicationYear"`
	Synopsis        string   `json:"synopsis"`
	Genres          []string `json:"genres"`
}

// NewBookResponse converts a domain book.
func NewBookResponse(b domain.Book) BookResponse {
	return BookResponse{
		Name:            b.Name(),
		Author:          b.Author(),
		PublicationYear: b.PublicationYear(),
		Synopsis:        b.Synopsis(),
		Genres:          b.Genres(),
	}
}

// NewBookResponses converts books keeping their order.
func NewBookResponses(books []domain.Book) []BookResponse {
	out := make([]BookResponse, len(books))
	for i, b := range books {
		out[i] = NewBookResponse(b)
	}

	return out
}

// LibrariesResponse lists library names.
type LibrariesResponse struct {
	Libraries []string `json:"libraries"`
}

// CountQuery selects what a count endpoint counts. At most one of author,
// genre, or the from/to year range may be given; none counts every book.
// A present but empty author or genre is still that query and matches no
// book.
type CountQuery struct {
	Libraries []string `form:"library" validate:"dive,notblank"`
	Author    *string  `form:"author"`
	Genre     *string  `form:"genre"`
	From      *int     `form:"from"    validate:"required_with=To"`
	To        *int     `form:"to"      validate:"required_with=From"`
}

// Validate implements Validatable.
func (q *CountQuery) Validate() error {
	selected := 0

	for _, set := range []bool{q.Author != nil, q.Genre != nil, q.From != nil} {
		if set {
			selected++
		}
	}

	if selected > 1 {
		return domain.NewValidationError("query", "give only one of author, genre or from/to")
	}

	return nil
}

// Kind reports which count the query asks for.
func (q *CountQuery) Kind() string {
	switch {
	case q.Author != nil:
		return QueryAuthor
	case q.Genre != nil:
		return QueryGenre
	case q.From != nil:
		return QueryPublished
	default:
		return QueryBooks
	}
}

// Describe renders the query for CountResponse, e.g. "author=Bram Stoker".
func (q *CountQuery) Describe() string {
	switch q.Kind() {
	case QueryAuthor:
		return "author=" + *q.Author
	case QueryGenre:
		return "genre=" + *q.Genre
	case QueryPublished:
		return "from=" + strconv.Itoa(*q.From) + "&to=" + strconv.Itoa(*q.To)
	default:
		return QueryBooks
	}
}

// CountResponse is the result of a count query. Library is set for a
// single library, Libraries for an aggregate (empty means every library).
type CountResponse struct {
	Library   string   `json:"library,omitempty"`
	Libraries []string `json:"libraries,omitempty"`
	Query     string   `json:"query"`
	Count     int      `json:"count"`
}

// ImportRequest is the body of an import.
type ImportRequest struct {
	ISBN string `json:"isbn" validate:"required,bookisbn"`
}
