package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, run(&out, samples))

	want := "Libro[0]\n- \"Signore degli Anelli\", \"J.R.R. Tolkien\" (1954)\n\n   Sinossi:\nSinossi 1\n" +
		"Libro[1]\n- \"Dracula\", \"Bram Stoker\" (1897)\n\n   Sinossi:\nSinossi 2\n" +
		"\n" +
		"1\n2\n2\n4\n"

	assert.Equal(t, want, out.String())
}

func TestRun_SamplesHaveEmptyGenres(t *testing.T) {
	for _, s := range samples {
		assert.NotNil(t, s.genres, s.name)
		assert.Empty(t, s.genres, s.name)
	}
}

func TestRun_InvalidBook(t *testing.T) {
	tests := []struct {
		name  string
		books []sampleBook
		field string
	}{
		{
			name:  "nil genres",
			books: []sampleBook{{name: "Dracula", author: "Bram Stoker", year: 1897, synopsis: "Sinossi 2"}},
			field: "genres",
		},
		{
			name: "empty author after a valid book",
			books: []sampleBook{
				samples[0],
				{name: "Dracula", year: 1897, synopsis: "Sinossi 2", genres: []string{}},
			},
			field: "author",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			err := run(&out, tt.books)

			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %v", err)
			assert.Contains(t, err.Error(), "Dracula")
			assert.Contains(t, err.Error(), tt.field)
			assert.Empty(t, out.String(), "nothing is printed on failure")
		})
	}
}
