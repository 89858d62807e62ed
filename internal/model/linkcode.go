package model

// LinkCode represents response for GET /linkcode
type LinkCode struct {
	Endpoint string `json:"endpoint"`
	Code     string `json:"code"`
	QR       string `json:"QR"` // base64 PNG
}
