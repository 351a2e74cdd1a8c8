package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of items per page.
const DefaultLimit = 20

// MaxLimit is the maximum allowed items per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when a cursor cannot be decoded or points
// outside the collection.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds the paging query parameters.
type PaginationRequest struct {
	// Cursor is the opaque NextCursor of a previous page.
	Cursor string `form:"cursor"`

	// Limit is the page size (1-100, default 20).
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Offset returns the position the page starts at. An empty cursor is the
// first page.
func (p *PaginationRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	c, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	return c.Position, nil
}

// PaginatedResponse is one page of an ordered collection.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Paginate cuts the page described by req out of all. Positions are stable
// because libraries never reorder their books.
func Paginate[T any](all []T, req PaginationRequest) (*PaginatedResponse[T], error) {
	offset, err := req.Offset()
	if err != nil {
		return nil, err
	}

	if offset > len(all) {
		return nil, ErrInvalidCursor
	}

	end := min(offset+req.GetLimit(), len(all))

	page := &PaginatedResponse[T]{
		Items:   append(make([]T, 0, end-offset), all[offset:end]...),
		HasMore: end < len(all),
	}

	if page.HasMore {
		page.NextCursor = EncodeCursor(CursorData{Position: end})
	}

	return page, nil
}

// CursorData is the content of a pagination cursor.
type CursorData struct {
	// Position is the index of the first item of the page.
	Position int `json:"p"`
}

// EncodeCursor encodes cursor data as URL-safe base64 JSON.
func EncodeCursor(data CursorData) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(encoded string) (CursorData, error) {
	var data CursorData

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return data, ErrInvalidCursor
	}

	if err := json.Unmarshal(raw, &data); err != nil || data.Position < 0 {
		return CursorData{}, ErrInvalidCursor
	}

	return data, nil
}
