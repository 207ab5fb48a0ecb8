package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is the cursor-based paging request shared by list endpoints.
type Pagination struct {
	PageToken string `form:"page_token" json:"page_token"`
	PageSize  int    `form:"page_size" json:"page_size"`
}

// Normalize clamps the page size into the allowed window.
func (p Pagination) Normalize() Pagination {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.PageToken = strings.TrimSpace(p.PageToken)
	return p
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor marks the last item of the previous page. IDs are snowflakes,
// so ordering by id is ordering by creation time.
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return c, ErrInvalidPageToken
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, ErrInvalidPageToken
	}
	if c.ID == "" {
		return c, ErrInvalidPageToken
	}
	return c, nil
}

// BuildCursorPageInfo expects callers to have fetched pageSize+1 rows.
// The extra row only signals that another page exists; callers truncate.
func BuildCursorPageInfo[T any](items []T, pageSize int, token func(T) string) PageInfo {
	if pageSize <= 0 || len(items) <= pageSize {
		return PageInfo{}
	}
	last := items[pageSize-1]
	return PageInfo{
		NextPageToken: token(last),
		HasMore:       true,
	}
}
