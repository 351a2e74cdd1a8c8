package domain

import (
	"strconv"
	"strings"
)

// Library is a fixed, ordered collection of books.
// It never changes after construction; the zero value is an empty library.
type Library struct {
	books []Book
}

// NewEmptyLibrary returns a library with no books.
func NewEmptyLibrary() *Library {
	return &Library{books: []Book{}}
}

// NewLibrary returns a library owning a copy of books.
// Books are trusted as already validated by NewBook.
func NewLibrary(books []Book) (*Library, error) {
	if books == nil {
		return nil, NewNilArgumentError("books")
	}

	owned := make([]Book, len(books))
	copy(owned, books)

	return &Library{books: owned}, nil
}

// BookCount returns the number of books.
func (l *Library) BookCount() int {
	return len(l.books)
}

// Books returns a copy of the books in construction order.
func (l *Library) Books() []Book {
	out := make([]Book, len(l.books))
	copy(out, l.books)

	return out
}

// BooksOfAuthor counts books whose author equals author exactly.
func (l *Library) BooksOfAuthor(author string) int {
	n := 0

	for _, b := range l.books {
		if b.author == author {
			n++
		}
	}

	return n
}

// BooksPublishedBetween counts books published in the inclusive year range.
// Reversed bounds are swapped.
func (l *Library) BooksPublishedBetween(yearFrom, yearTo int) int {
	if yearFrom > yearTo {
		yearFrom, yearTo = yearTo, yearFrom
	}

	n := 0

	for _, b := range l.books {
		if b.PublishedBetween(yearFrom, yearTo) {
			n++
		}
	}

	return n
}

// BooksOfGenre counts books listing genre. A book counts once even if the
// genre is repeated in its list.
func (l *Library) BooksOfGenre(genre string) int {
	n := 0

	for _, b := range l.books {
		if b.HasGenre(genre) {
			n++
		}
	}

	return n
}

// String renders the library report: one block per book with its index,
// summary and synopsis.
func (l *Library) String() string {
	var sb strings.Builder

	for i, b := range l.books {
		sb.WriteString("Libro[")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString("]\n- ")
		sb.WriteString(b.String())
		sb.WriteString("\n   Sinossi:\n")
		sb.WriteString(b.synopsis)
		sb.WriteString("\n")
	}

	return sb.String()
}
