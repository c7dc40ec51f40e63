package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor represents the pagination cursor components.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Meta is returned alongside a page of results.
type Meta struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Page is a page of rows plus its pagination metadata.
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"pagination"`
}

// Newest applies created-at-descending keyset pagination to query. The
// table qualifier may be empty.
func Newest(query *gorm.DB, table string, cursor *Cursor, limit int) *gorm.DB {
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}
	if cursor != nil {
		query = query.Where(
			fmt.Sprintf("(%s < ?) OR (%s = ? AND %s < ?)", col("created_at"), col("created_at"), col("id")),
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	return query.
		Order(col("created_at") + " DESC").
		Order(col("id") + " DESC").
		Limit(LimitWithBuffer(limit))
}

// Build trims the buffered row fetched by Newest and derives the next cursor.
func Build[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	normalized := NormalizeLimit(limit)
	page := Page[T]{Items: rows}
	if len(rows) > normalized {
		page.Items = rows[:normalized]
		page.Meta.HasMore = true
		page.Meta.NextCursor = EncodeCursor(cursorOf(page.Items[normalized-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

// ErrInvalidCursor is returned for cursors that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor builds a base64 cursor string from the provided values.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: format", ErrInvalidCursor)
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{
		CreatedAt: t,
		ID:        id,
	}, nil
}
