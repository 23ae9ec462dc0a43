package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many items any page can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
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

// EncodeCursor builds a base64 cursor from the last product id on the page.
// Catalog ids are opaque strings, so the cursor carries the id verbatim.
func EncodeCursor(productID string) string {
	return base64.StdEncoding.EncodeToString([]byte(productID))
}

// ParseCursor decodes the cursor string back into a product id.
func ParseCursor(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("invalid cursor format")
	}
	return string(decoded), nil
}
