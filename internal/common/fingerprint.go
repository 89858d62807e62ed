package common

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"unicode/utf8"
)

// FingerprintLen is the number of hex characters kept from the digest.
// Two distinct endpoints share a code roughly once in 65536 pairs; the code
// is for visual comparison only.
const FingerprintLen = 4

// EncodingError is returned when input cannot be treated as UTF-8 text
type EncodingError struct {
	Message string
}

func (e *EncodingError) Error() string {
	return e.Message
}

// IsEncodingError checks if error is (or wraps) EncodingError
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

// Fingerprint returns the first 4 lowercase hex characters of the SHA-256
// digest of input's UTF-8 bytes.
func Fingerprint(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", &EncodingError{Message: "input is not valid UTF-8"}
	}

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:FingerprintLen], nil
}
