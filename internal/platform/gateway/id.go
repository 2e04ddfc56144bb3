package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// InstantLayout renders creation instants with nanosecond resolution.
const InstantLayout = "2006-01-02T15:04:05.000000000"

// FormatInstant renders t in UTC using InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// GenerateID derives a record id as the hex SHA-256 of subject || instant.
// The id never depends on mutable record fields.
func GenerateID(subject, instant string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: subject identifier is required", ErrInvalidInput)
	}
	if instant == "" {
		return "", fmt.Errorf("%w: creation instant is required", ErrInvalidInput)
	}
	sum := sha256.Sum256([]byte(subject + instant))
	return hex.EncodeToString(sum[:]), nil
}
