// Package id generates compact, URL-safe identifiers.
//
// Identifiers are UUIDv4 payloads encoded as lowercase unpadded base32,
// which keeps them URL-safe, case-insensitive, and 26 characters long.
package id

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// Stamp UUID version 4 and RFC 4122 variant bits so the payload remains
	// a valid UUID when decoded.
	raw[6] = (raw[6] & 0x0F) | 0x40
	raw[8] = (raw[8] & 0x3F) | 0x80

	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}
