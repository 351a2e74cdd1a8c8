package domain

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// MaxSynopsisLength is the longest synopsis a Book accepts, counted in
// runes. Characters outside the Basic Multilingual Plane, such as emoji,
// count once here where a UTF-16 length would count them twice.
const MaxSynopsisLength = 200

// Book is an immutable catalogue entry. Build it with NewBook.
type Book struct {
	name            string
	author          string
	publicationYear int
	synopsis        string
	genres          []string
}

// NewBook validates the arguments and returns a Book holding them verbatim.
// Genres may be empty but not nil.
func NewBook(name, author string, publicationYear int, synopsis string, genres []string) (Book, error) {
	switch {
	case name == "":
		return Book{}, NewValidationError("name", "book name must not be empty")
	case author == "":
		return Book{}, NewValidationError("author", "author must not be empty")
	case synopsis == "":
		return Book{}, NewValidationError("synopsis", "synopsis must not be empty")
	}

	if n := utf8.RuneCountInString(synopsis); n > MaxSynopsisLength {
		return Book{}, NewValidationErrorWithValue("synopsis",
			fmt.Sprintf("synopsis must be at most %d characters", MaxSynopsisLength), n)
	}

	if genres == nil {
		return Book{}, NewValidationError("genres", "genres must not be nil")
	}

	return Book{
		name:            name,
		author:          author,
		publicationYear: publicationYear,
		synopsis:        synopsis,
		genres:          slices.Clone(genres),
	}, nil
}

// Name returns the book title.
func (b Book) Name() string { return b.name }

// Author returns the author name.
func (b Book) Author() string { return b.author }

// PublicationYear returns the year of publication.
func (b Book) PublicationYear() int { return b.publicationYear }

// Synopsis returns the synopsis.
func (b Book) Synopsis() string { return b.synopsis }

// Genres returns a copy of the genre list.
func (b Book) Genres() []string {
	out := make([]string, len(b.genres))
	copy(out, b.genres)

	return out
}

// HasGenre reports whether genre appears in the genre list.
func (b Book) HasGenre(genre string) bool {
	return slices.Contains(b.genres, genre)
}

// PublishedBetween reports whether the book was published in [from, to].
// Bounds must already be ordered.
func (b Book) PublishedBetween(from, to int) bool {
	return b.publicationYear >= from && b.publicationYear <= to
}

// String renders the one-line summary used in library reports.
// The trailing newline is part of the format.
func (b Book) String() string {
	return fmt.Sprintf("\"%s\", \"%s\" (%d)\n", b.name, b.author, b.publicationYear)
}
