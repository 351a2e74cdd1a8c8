package domain

import "strings"

// ParseISBN normalises an ISBN-10 or ISBN-13 by dropping hyphens and
// spaces, then checks its length, digits and check digit.
// ISBN-10 check digit X is returned upper-case.
func ParseISBN(raw string) (string, error) {
	isbn := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(raw))

	switch len(isbn) {
	case 10:
		if !validISBN10(isbn) {
			return "", NewValidationErrorWithValue("isbn", "invalid ISBN-10", raw)
		}
	case 13:
		if !validISBN13(isbn) {
			return "", NewValidationErrorWithValue("isbn", "invalid ISBN-13", raw)
		}
	default:
		return "", NewValidationErrorWithValue("isbn", "isbn must have 10 or 13 digits", raw)
	}

	return isbn, nil
}

func validISBN10(s string) bool {
	sum := 0

	for i := range 10 {
		c := s[i]

		var d int

		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c == 'X' && i == 9:
			d = 10
		default:
			return false
		}

		sum += (10 - i) * d
	}

	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0

	for i := range 13 {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}

		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}

		sum += d
	}

	return sum%10 == 0
}
