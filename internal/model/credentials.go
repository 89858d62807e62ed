package model

import "time"

// Credentials is the elector credential set carried on an NFC tag
type Credentials struct {
	ElectorID  string `json:"elector_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// VaultFile represents the sealed credentials file structure
type VaultFile struct {
	ElectorID  string    `json:"electorId"`
	SealedAt   time.Time `json:"sealedAt"`
	Salt       string    `json:"salt"`
	Nonce      string    `json:"nonce"`
	CipherText string    `json:"cipherText"`
}

// ReceiveResponse represents response for POST /credentials
type ReceiveResponse struct {
	Status string `json:"status"`
}

// CredentialsStatus represents response for GET /credentials.
// Key material is never included.
type CredentialsStatus struct {
	Loaded    bool       `json:"loaded"`
	ElectorID string     `json:"elector_id,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Sealed    bool       `json:"sealed"`
}
