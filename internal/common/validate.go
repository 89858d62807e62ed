package common

import (
	"regexp"
	"strings"
)

// endpointPattern matches http(s)://A.B.C.D:PORT/credentials with every
// octet in 0-255 and a 1-5 digit port. Host names are not accepted.
var endpointPattern = regexp.MustCompile(
	`^(https?://)((25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)\.){3}` +
		`(25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d):` +
		`\d{1,5}/credentials$`)

// credentialsPattern matches exactly one object with elector_id,
// public_key and private_key, in that order, each a non-empty string
// without embedded quotes.
var credentialsPattern = regexp.MustCompile(
	`^\{\s*"elector_id"\s*:\s*"[^"]+"\s*,` +
		`\s*"public_key"\s*:\s*"[^"]+"\s*,` +
		`\s*"private_key"\s*:\s*"[^"]+"\s*\}$`)

// IsValidEndpoint reports whether a scanned string is a credentials
// endpoint of the exact form http(s)://<ipv4>:<port>/credentials.
// Surrounding whitespace is ignored.
func IsValidEndpoint(candidate string) bool {
	return endpointPattern.MatchString(strings.TrimSpace(candidate))
}

// IsValidCredentials reports whether a tag payload is a credentials
// object with the fixed field order elector_id, public_key, private_key.
// Surrounding whitespace is ignored.
func IsValidCredentials(payload string) bool {
	return credentialsPattern.MatchString(strings.TrimSpace(payload))
}
