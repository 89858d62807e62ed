package model

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes returned by the receiver API
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeBodyTooLarge       = "body_too_large"
	CodeVaultFailure       = "vault_failure"
)
