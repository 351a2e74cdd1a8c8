package domain

import "fmt"

// CountBooks sums BookCount over libraries.
func CountBooks(libraries []*Library) (int, error) {
	return sumOver(libraries, (*Library).BookCount)
}

// CountBooksOfAuthor sums BooksOfAuthor over libraries.
func CountBooksOfAuthor(libraries []*Library, author string) (int, error) {
	return sumOver(libraries, func(l *Library) int {
		return l.BooksOfAuthor(author)
	})
}

// CountBooksPublishedBetween sums BooksPublishedBetween over libraries.
// Reversed bounds are swapped once, up front.
func CountBooksPublishedBetween(libraries []*Library, yearFrom, yearTo int) (int, error) {
	if yearFrom > yearTo {
		yearFrom, yearTo = yearTo, yearFrom
	}

	return sumOver(libraries, func(l *Library) int {
		return l.BooksPublishedBetween(yearFrom, yearTo)
	})
}

// CountBooksOfGenre sums BooksOfGenre over libraries.
func CountBooksOfGenre(libraries []*Library, genre string) (int, error) {
	return sumOver(libraries, func(l *Library) int {
		return l.BooksOfGenre(genre)
	})
}

// sumOver rejects a nil slice or nil element before counting anything.
func sumOver(libraries []*Library, count func(*Library) int) (int, error) {
	if libraries == nil {
		return 0, NewNilArgumentError("libraries")
	}

	for i, l := range libraries {
		if l == nil {
			return 0, NewNilArgumentError(fmt.Sprintf("libraries[%d]", i))
		}
	}

	total := 0
	for _, l := range libraries {
		total += count(l)
	}

	return total, nil
}
