package common

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode"
)

// utf8BOM is written in front of JSON files for proper display in Windows
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WithBOM prepends the UTF-8 BOM to data
func WithBOM(data []byte) []byte {
	out := make([]byte, 0, len(utf8BOM)+len(data))
	out = append(out, utf8BOM...)
	return append(out, data...)
}

// StripBOM removes a leading UTF-8 BOM if present
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// DecodeHexDump parses a hex dump such as "D1 01 0F 54" or "d1:01:0f:54".
// Whitespace, colons and an optional 0x prefix are ignored.
func DecodeHexDump(dump string) ([]byte, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(dump), "0x")
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return -1
		}
		return r
	}, cleaned)
	return hex.DecodeString(cleaned)
}

// LooksLikeHex reports whether data is a non-empty hex dump and not raw bytes
func LooksLikeHex(data []byte) bool {
	hasDigit := false
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9', b >= 'a' && b <= 'f', b >= 'A' && b <= 'F':
			hasDigit = true
		case b == ' ', b == '\t', b == '\n', b == '\r', b == ':', b == 'x':
		default:
			return false
		}
	}
	return hasDigit
}
