package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/model"
)

// ErrInvalidPassword is returned when the vault cannot be opened with the given password
var ErrInvalidPassword = errors.New("invalid password")

// OpenCredentials reads and decrypts the vault at filePath
// password must be []byte for security (caller should zero it after use)
func OpenCredentials(filePath string, password []byte) (*model.VaultFile, *model.Credentials, error) {
	vault, err := ReadVault(filePath)
	if err != nil {
		return nil, nil, err
	}

	// Decode salt and nonce
	salt, err := base64.StdEncoding.DecodeString(vault.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(vault.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(vault.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != aesGCM.NonceSize() {
		return nil, nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, []byte(vault.ElectorID))
	if err != nil {
		return nil, nil, ErrInvalidPassword
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var creds model.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return vault, &creds, nil
}

// ReadVault reads the vault envelope without decryption
func ReadVault(filePath string) (*model.VaultFile, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("file does not exist")
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, errors.New("file is empty")
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var vault model.VaultFile
	if err := json.Unmarshal(common.StripBOM(fileData), &vault); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vault file: %w", err)
	}

	return &vault, nil
}
