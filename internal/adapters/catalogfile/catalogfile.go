// Package catalogfile reads library seeds from a YAML catalogue file and
// watches it for changes.
//
// File layout:
//
//	libraries:
//	  - name: centrale
//	    books:
//	      - name: Dracula
//	        author: Bram Stoker
//	        publication_year: 1897
//	        synopsis: Il conte arriva a Londra.
//	        genres: [horror]
package catalogfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

type fileDoc struct {
	Libraries []libraryDoc `yaml:"libraries"`
}

type libraryDoc struct {
	Name  string    `yaml:"name"`
	Books []bookDoc `yaml:"books"`
}

type bookDoc struct {
	Name     string   `yaml:"name"`
	Author   string   `yaml:"author"`
	Year     int      `yaml:"publication_year"`
	Synopsis string   `yaml:"synopsis"`
	Genres   []string `yaml:"genres"`
}

// Load reads and validates the catalogue at path.
func Load(path string) ([]ports.LibrarySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue %s: %w", path, err)
	}

	seeds, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}

	return seeds, nil
}

// Parse decodes a catalogue document. Unknown keys are rejected, and
// every book is checked by domain.NewBook.
func Parse(r io.Reader) ([]ports.LibrarySeed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	seeds := make([]ports.LibrarySeed, 0, len(doc.Libraries))
	seen := make(map[string]struct{}, len(doc.Libraries))

	for i, l := range doc.Libraries {
		if l.Name == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("libraries[%d].name", i), "must not be empty")
		}

		if _, dup := seen[l.Name]; dup {
			return nil, domain.NewConflictError("library", fmt.Sprintf("%q declared twice", l.Name))
		}

		seen[l.Name] = struct{}{}

		books := make([]domain.Book, 0, len(l.Books))

		for j, b := range l.Books {
			genres := b.Genres
			if genres == nil {
				genres = []string{}
			}

			book, err := domain.NewBook(b.Name, b.Author, b.Year, b.Synopsis, genres)
			if err != nil {
				return nil, fmt.Errorf("library %q book %d: %w", l.Name, j, err)
			}

			books = append(books, book)
		}

		seeds = append(seeds, ports.LibrarySeed{Name: l.Name, Books: books})
	}

	return seeds, nil
}
