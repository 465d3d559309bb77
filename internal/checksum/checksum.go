// Package checksum fingerprints collection files for change detection and
// HTTP preconditions.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data. Empty input (an absent
// collection) yields "".
func Sum(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats sum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// ParseIfMatch strips entity-tag quoting and the weak prefix from an
// If-Match header value. "*" and "" both mean no precondition.
func ParseIfMatch(header string) string {
	v := strings.TrimSpace(header)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}
