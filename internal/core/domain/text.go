package domain

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ContentHash returns the hex MD5 of text. The same text always yields
// the same hash, which makes it usable as an idempotent vector ID.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// TruncateBytes cuts text to at most n bytes without splitting a UTF-8
// sequence. A non-positive n disables truncation. Truncating an already
// truncated string with the same n returns it unchanged.
func TruncateBytes(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// FlattenMetadata returns a copy of meta where nested maps and slices are
// JSON-encoded strings. Scalars pass through; nil values are dropped.
func FlattenMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool, int, int32, int64, float32, float64:
			out[k] = val
		case []string:
			out[k] = val
		default:
			data, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}

// CopyMetadata returns a shallow copy of meta, never nil.
func CopyMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
