// Command demo builds two sample libraries and prints their report and a
// handful of counts.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

type sampleBook struct {
	name     string
	author   string
	year     int
	synopsis string
	genres   []string
}

var samples = []sampleBook{
	{name: "Signore degli Anelli", author: "J.R.R. Tolkien", year: 1954, synopsis: "Sinossi 1", genres: []string{}},
	{name: "Dracula", author: "Bram Stoker", year: 1897, synopsis: "Sinossi 2", genres: []string{}},
}

func main() {
	if err := run(os.Stdout, samples); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run writes nothing to w unless every book is valid.
func run(w io.Writer, sampleBooks []sampleBook) error {
	books := make([]domain.Book, 0, len(sampleBooks))

	for _, s := range sampleBooks {
		book, err := domain.NewBook(s.name, s.author, s.year, s.synopsis, s.genres)
		if err != nil {
			return fmt.Errorf("building %q: %w", s.name, err)
		}

		books = append(books, book)
	}

	library, err := domain.NewLibrary(books)
	if err != nil {
		return err
	}

	library2, err := domain.NewLibrary(books)
	if err != nil {
		return err
	}

	both := []*domain.Library{library, library2}

	byAuthor, err := domain.CountBooksOfAuthor(both, "Bram Stoker")
	if err != nil {
		return err
	}

	byYears, err := domain.CountBooksPublishedBetween(both, 1000, 2000)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n%d\n%d\n%d\n%d\n",
		library,
		library.BooksOfAuthor("Bram Stoker"),
		byAuthor,
		library.BooksPublishedBetween(1000, 2000),
		byYears,
	)

	return err
}
