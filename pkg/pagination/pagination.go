package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size used when the caller sends none.
	DefaultLimit = 25
	// MaxLimit caps every page.
	MaxLimit = 100
)

// Params carries a page request from the HTTP layer to repositories.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) key of the last row on a page. Pages are
// always ordered newest first.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting non-positive values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer is the row count to fetch so a following page can be detected.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders a cursor as URL-safe text.
func EncodeCursor(cursor Cursor) string {
	raw, _ := json.Marshal(Cursor{CreatedAt: cursor.CreatedAt.UTC(), ID: cursor.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor reverses EncodeCursor. An empty value means the first page and
// yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if cursor.ID == uuid.Nil || cursor.CreatedAt.IsZero() {
		return nil, errors.New("cursor is incomplete")
	}
	return &cursor, nil
}

// Scope returns a gorm scope applying the cursor predicate, newest-first
// ordering and the buffered limit.
func Scope(params Params) (func(*gorm.DB) *gorm.DB, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(params.Limit))
	}, nil
}

// Trim drops the buffer row fetched by Scope and returns the next cursor, or
// "" on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[len(rows)-1]))
}
