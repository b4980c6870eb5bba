// Package pagination provides keyset cursors for ledger history pages.
// A cursor encodes the position of the last record returned as seq + id,
// so records inserted concurrently never shift page boundaries.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when none is requested
	DefaultLimit = 15
	// MaxLimit is the largest allowed page size
	MaxLimit = 100
)

// ErrInvalidCursor is returned for cursors that were not produced by Encode.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a stable position in an account's history.
type Cursor struct {
	Seq int64
	ID  string
}

// Encode serializes the cursor to an opaque string for clients.
// Format: base64("sk:{seq}:id:{id}")
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("sk:%d:id:%s", c.Seq, c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an encoded cursor. An empty string means "from the newest record"
// and yields a nil cursor.
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", ErrInvalidCursor)
	}

	raw := string(data)
	if !strings.HasPrefix(raw, "sk:") {
		return nil, fmt.Errorf("%w: missing sk prefix", ErrInvalidCursor)
	}

	parts := strings.SplitN(raw[len("sk:"):], ":id:", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: missing id segment", ErrInvalidCursor)
	}

	seq, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || seq < 1 {
		return nil, fmt.Errorf("%w: bad seq", ErrInvalidCursor)
	}

	return &Cursor{Seq: seq, ID: parts[1]}, nil
}

// ClampLimit ensures limit is within [1, MaxLimit], substituting DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
