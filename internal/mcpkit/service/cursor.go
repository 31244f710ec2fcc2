package service

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/sjzar/mcpkit/internal/errors"
)

const cursorPrefix = "offset:"

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errors.InvalidCursor(cursor, err)
	}
	n, ok := strings.CutPrefix(string(b), cursorPrefix)
	if !ok {
		return 0, errors.InvalidCursor(cursor, nil)
	}
	offset, err := strconv.Atoi(n)
	if err != nil || offset < 0 {
		return 0, errors.InvalidCursor(cursor, err)
	}
	return offset, nil
}

// paginate returns the page of items starting at cursor and the cursor of
// the next page, empty on the last page. A cursor past the end yields an
// empty page.
func paginate[T any](items []T, cursor string, size int) ([]T, string, error) {
	offset := 0
	if cursor != "" {
		var err error
		if offset, err = decodeCursor(cursor); err != nil {
			return nil, "", err
		}
	}
	if offset >= len(items) {
		return []T{}, "", nil
	}

	end := len(items)
	if size > 0 && offset+size < end {
		end = offset + size
	}

	page := items[offset:end]
	if end < len(items) {
		return page, encodeCursor(end), nil
	}
	return page, "", nil
}
