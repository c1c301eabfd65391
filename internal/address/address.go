// Package address converts between provider-tagged WhatsApp addresses
// ("whatsapp:+15550001111") and the canonical phone numbers used internally.
package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Tag is the channel prefix the provider puts in front of WhatsApp numbers.
const Tag = "whatsapp:"

// ErrMalformedAddress is returned when an address does not match the
// tagged-number pattern.
var ErrMalformedAddress = errors.New("malformed address")

var (
	taggedPattern    = regexp.MustCompile(`^whatsapp:(\+\d+)$`)
	canonicalPattern = regexp.MustCompile(`^\+\d+$`)
)

// Decode extracts the canonical number from a provider address.
func Decode(providerAddress string) (string, error) {
	m := taggedPattern.FindStringSubmatch(strings.TrimSpace(providerAddress))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedAddress, providerAddress)
	}
	return m[1], nil
}

// Encode tags a canonical number for the provider.
func Encode(canonical string) string {
	return Tag + canonical
}

// Valid reports whether s is a well-formed canonical number.
func Valid(s string) bool {
	return canonicalPattern.MatchString(s)
}
