package license

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Keys are issued externally in the form PREFIX-XXXX-XXXX-XXXX-XXXX-CC:
// four blocks of uppercase alphanumerics followed by a two-character
// checksum, the first hex byte of SHA-256 over the concatenated blocks,
// uppercased. This service never mints keys; the format check lets
// seeding and clients reject mangled keys before hitting the store.

var keyPattern = regexp.MustCompile(`^([A-Z0-9]{2,8})-((?:[A-Z0-9]{4}-){4})([A-Z0-9]{2})$`)

// ValidKeyFormat reports whether key matches the issued-key layout and
// carries a correct checksum.
func ValidKeyFormat(key string) bool {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	raw := strings.ReplaceAll(strings.TrimSuffix(m[2], "-"), "-", "")
	return checksum(raw) == m[3]
}

func checksum(raw string) string {
	digest := sha256.Sum256([]byte(raw))
	return strings.ToUpper(hex.EncodeToString(digest[:1]))
}

// NormalizeKey trims surrounding whitespace and uppercases a key so
// lookups are insensitive to copy-paste artifacts.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// CheckKeyFormat returns a descriptive error for a malformed key.
func CheckKeyFormat(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("license key %q does not match expected format PREFIX-XXXX-XXXX-XXXX-XXXX-CC", MaskKey(key))
	}
	if !ValidKeyFormat(key) {
		return fmt.Errorf("license key %s has an invalid checksum", MaskKey(key))
	}
	return nil
}
