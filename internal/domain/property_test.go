package domain

import (
	"fmt"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

// ============================================================================
// Property-Based Tests for Book and Library
// ============================================================================

var (
	sampleAuthors = []string{"J.R.R. Tolkien", "Bram Stoker", "Mary Shelley", "Italo Calvino"}
	sampleGenres  = []string{"fantasy", "horror", "gothic", "romanzo", "saggio"}
)

func drawBook(t *rapid.T, label string) Book {
	name := rapid.StringMatching(`[A-Za-z ]{1,30}`).Draw(t, label+"-name")
	author := rapid.SampledFrom(sampleAuthors).Draw(t, label+"-author")
	year := rapid.IntRange(-500, 2100).Draw(t, label+"-year")
	synopsis := rapid.StringN(1, MaxSynopsisLength, -1).Draw(t, label+"-synopsis")
	gs := rapid.SliceOfN(rapid.SampledFrom(sampleGenres), 0, 4).Draw(t, label+"-genres")

	if gs == nil {
		gs = []string{}
	}

	b, err := NewBook(name, author, year, synopsis, gs)
	if err != nil {
		t.Fatalf("valid book rejected: %v", err)
	}

	return b
}

func drawLibrary(t *rapid.T, label string) (*Library, []Book) {
	n := rapid.IntRange(0, 15).Draw(t, label+"-size")
	books := make([]Book, n)

	for i := range books {
		books[i] = drawBook(t, fmt.Sprintf("%s-%d", label, i))
	}

	lib, err := NewLibrary(books)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	return lib, books
}

// TestProperty_BookRoundTrip verifies valid arguments come back unchanged.
func TestProperty_BookRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringN(1, 50, -1).Draw(t, "name")
		author := rapid.StringN(1, 50, -1).Draw(t, "author")
		year := rapid.Int().Draw(t, "year")
		synopsis := rapid.StringN(1, MaxSynopsisLength, -1).Draw(t, "synopsis")
		gs := rapid.SliceOf(rapid.String()).Draw(t, "genres")

		if gs == nil {
			gs = []string{}
		}

		b, err := NewBook(name, author, year, synopsis, gs)
		if err != nil {
			t.Fatalf("NewBook: %v", err)
		}

		if b.Name() != name || b.Author() != author || b.PublicationYear() != year || b.Synopsis() != synopsis {
			t.Fatalf("fields changed: %+v", b)
		}

		if !slices.Equal(b.Genres(), gs) {
			t.Fatalf("genres changed: got %v want %v", b.Genres(), gs)
		}
	})
}

// TestProperty_BookCountMatchesInput verifies BookCount equals the input length.
func TestProperty_BookCountMatchesInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lib, books := drawLibrary(t, "lib")

		if lib.BookCount() != len(books) {
			t.Fatalf("BookCount = %d, want %d", lib.BookCount(), len(books))
		}
	})
}

// TestProperty_BooksOfAuthorMatchesFilter verifies the author count equals a plain filter.
func TestProperty_BooksOfAuthorMatchesFilter(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lib, books := drawLibrary(t, "lib")
		author := rapid.SampledFrom(sampleAuthors).Draw(t, "author")

		want := 0
		for _, b := range books {
			if b.Author() == author {
				want++
			}
		}

		if got := lib.BooksOfAuthor(author); got != want {
			t.Fatalf("BooksOfAuthor(%q) = %d, want %d", author, got, want)
		}
	})
}

// TestProperty_YearRangeSymmetric verifies swapped bounds give the same count.
func TestProperty_YearRangeSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lib, _ := drawLibrary(t, "lib")
		a := rapid.IntRange(-600, 2200).Draw(t, "a")
		b := rapid.IntRange(-600, 2200).Draw(t, "b")

		if lib.BooksPublishedBetween(a, b) != lib.BooksPublishedBetween(b, a) {
			t.Fatalf("asymmetric range %d..%d", a, b)
		}

		if n := lib.BooksPublishedBetween(a, b); n < 0 || n > lib.BookCount() {
			t.Fatalf("count %d out of bounds", n)
		}
	})
}

// TestProperty_GenreCountedOnce verifies a book contributes at most one to a genre count.
func TestProperty_GenreCountedOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lib, books := drawLibrary(t, "lib")
		genre := rapid.SampledFrom(sampleGenres).Draw(t, "genre")

		want := 0
		for _, b := range books {
			if slices.Contains(b.Genres(), genre) {
				want++
			}
		}

		if got := lib.BooksOfGenre(genre); got != want {
			t.Fatalf("BooksOfGenre(%q) = %d, want %d", genre, got, want)
		}
	})
}

// TestProperty_AggregateIsSum verifies every aggregate equals the sum of instance results.
func TestProperty_AggregateIsSum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(t, "libraries")
		libs := make([]*Library, n)

		for i := range libs {
			libs[i], _ = drawLibrary(t, fmt.Sprintf("lib%d", i))
		}

		author := rapid.SampledFrom(sampleAuthors).Draw(t, "author")
		genre := rapid.SampledFrom(sampleGenres).Draw(t, "genre")
		from := rapid.IntRange(-600, 2200).Draw(t, "from")
		to := rapid.IntRange(-600, 2200).Draw(t, "to")

		var wantCount, wantAuthor, wantYears, wantGenre int
		for _, l := range libs {
			wantCount += l.BookCount()
			wantAuthor += l.BooksOfAuthor(author)
			wantYears += l.BooksPublishedBetween(from, to)
			wantGenre += l.BooksOfGenre(genre)
		}

		check := func(what string, got int, err error, want int) {
			if err != nil {
				t.Fatalf("%s: %v", what, err)
			}

			if got != want {
				t.Fatalf("%s = %d, want %d", what, got, want)
			}
		}

		got, err := CountBooks(libs)
		check("CountBooks", got, err, wantCount)

		got, err = CountBooksOfAuthor(libs, author)
		check("CountBooksOfAuthor", got, err, wantAuthor)

		got, err = CountBooksPublishedBetween(libs, from, to)
		check("CountBooksPublishedBetween", got, err, wantYears)

		got, err = CountBooksOfGenre(libs, genre)
		check("CountBooksOfGenre", got, err, wantGenre)
	})
}
