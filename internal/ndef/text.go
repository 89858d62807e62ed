// Package ndef decodes the NFC Data Exchange Format records read from
// credential tags and encodes new ones for tag provisioning.
package ndef

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	statusUTF16   = 0x80
	statusLangLen = 0x3F
)

// DecodingError is returned for malformed tag data
type DecodingError struct {
	Message string
}

func (e *DecodingError) Error() string {
	return e.Message
}

// IsDecodingError checks if error is (or wraps) DecodingError
func IsDecodingError(err error) bool {
	var de *DecodingError
	return errors.As(err, &de)
}

func decodingErrorf(format string, args ...any) error {
	return &DecodingError{Message: fmt.Sprintf(format, args...)}
}

// DecodeText decodes the payload of a Text record. The status byte's high
// bit selects UTF-16 (1) or UTF-8 (0); its low 6 bits give the length of
// the language code that precedes the text.
func DecodeText(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", decodingErrorf("empty text payload")
	}

	status := payload[0]
	start := 1 + int(status&statusLangLen)
	if start > len(payload) {
		return "", decodingErrorf("language code length %d exceeds payload of %d bytes", start-1, len(payload))
	}
	body := payload[start:]

	if status&statusUTF16 == 0 {
		if !utf8.Valid(body) {
			return "", decodingErrorf("text is not valid UTF-8")
		}
		return string(body), nil
	}

	if len(body)%2 != 0 {
		return "", decodingErrorf("UTF-16 text has odd length %d", len(body))
	}
	// Big-endian unless a byte order mark says otherwise.
	text, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(body)
	if err != nil {
		return "", decodingErrorf("failed to decode UTF-16 text: %v", err)
	}
	return string(text), nil
}

// EncodeText builds a Text record payload. lang is an IANA language code
// such as "en" (at most 63 bytes).
func EncodeText(text, lang string, utf16 bool) ([]byte, error) {
	if len(lang) > statusLangLen {
		return nil, fmt.Errorf("language code too long: %d bytes", len(lang))
	}

	body := []byte(text)
	status := byte(len(lang))
	if utf16 {
		encoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode UTF-16 text: %w", err)
		}
		body = encoded
		status |= statusUTF16
	}

	payload := make([]byte, 0, 1+len(lang)+len(body))
	payload = append(payload, status)
	payload = append(payload, lang...)
	return append(payload, body...), nil
}
