package acl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// olBook is one entry of the Open Library "jscmd=data" books response.
type olBook struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Authors     []olNamed `json:"authors"`
	PublishDate string    `json:"publish_date"`
	Notes       olText    `json:"notes"`
	Subjects    []olNamed `json:"subjects"`
}

type olNamed struct {
	Name string `json:"name"`
}

// olText accepts both a plain string and the {"type","value"} text object
// Open Library uses for long fields.
type olText string

func (t *olText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""

		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*t = olText(s)

		return nil
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	*t = olText(obj.Value)

	return nil
}

// translateBook maps an Open Library record to a domain.Book.
//
//	title         → name
//	first author  → author
//	publish_date  → year (first four-digit number, 0 when absent)
//	notes | title → synopsis, clipped to domain.MaxSynopsisLength runes
//	subjects      → genres
func translateBook(isbn string, ext *olBook) (domain.Book, error) {
	name := strings.TrimSpace(ext.Title)

	var author string
	if len(ext.Authors) > 0 {
		author = strings.TrimSpace(ext.Authors[0].Name)
	}

	synopsis := strings.TrimSpace(string(ext.Notes))
	if synopsis == "" {
		synopsis = strings.TrimSpace(strings.Join([]string{name, ext.Subtitle}, " "))
	}

	book, err := domain.NewBook(name, author, parseYear(ext.PublishDate), clipRunes(synopsis, domain.MaxSynopsisLength), genres(ext.Subjects))
	if err != nil {
		return domain.Book{}, fmt.Errorf("open library record for ISBN %s is incomplete: %w", isbn, err)
	}

	return book, nil
}

func parseYear(publishDate string) int {
	m := yearPattern.FindStringSubmatch(publishDate)
	if m == nil {
		return 0
	}

	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}

	return year
}

func clipRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return strings.TrimSpace(string(runes[:limit]))
}

func genres(subjects []olNamed) []string {
	out := make([]string, 0, len(subjects))
	seen := make(map[string]struct{}, len(subjects))

	for _, s := range subjects {
		g := strings.TrimSpace(s.Name)
		if g == "" {
			continue
		}

		if _, dup := seen[g]; dup {
			continue
		}

		seen[g] = struct{}{}
		out = append(out, g)
	}

	return out
}
