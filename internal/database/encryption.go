package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"leadflow/internal/constants"
)

const (
	keySize         = 32 // AES-256
	nonceSize       = 12 // GCM standard
	kdfIterations   = 100000
	minSecretLength = 32
)

// encryptor handles at-rest encryption of phone numbers and message content.
// When LEADFLOW_ENABLE_ENCRYPTION is not "true" every method passes values
// through unchanged.
type encryptor struct {
	gcm     cipher.AEAD
	enabled bool
}

func NewEncryptor() (*encryptor, error) {
	if os.Getenv("LEADFLOW_ENABLE_ENCRYPTION") != "true" {
		return &encryptor{}, nil
	}

	key, err := deriveKey(os.Getenv("LEADFLOW_ENCRYPTION_SECRET"))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm, enabled: true}, nil
}

func deriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("LEADFLOW_ENCRYPTION_SECRET environment variable is required when encryption is enabled")
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("encryption secret must be at least %d characters long", minSecretLength)
	}
	return pbkdf2.Key([]byte(secret), []byte(constants.EncryptionSalt), kdfIterations, keySize, sha256.New), nil
}

// EncryptIfEnabled seals plaintext with a random nonce. Two calls with the
// same input produce different ciphertexts.
func (e *encryptor) EncryptIfEnabled(plaintext string) (string, error) {
	if !e.enabled || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.seal(nonce, plaintext), nil
}

// EncryptForLookupIfEnabled seals plaintext with a nonce derived from the
// plaintext itself, so equal inputs yield equal ciphertexts. Indexed columns
// such as message_id and conversation_id need this to stay searchable.
func (e *encryptor) EncryptForLookupIfEnabled(plaintext string) (string, error) {
	if !e.enabled || plaintext == "" {
		return plaintext, nil
	}

	hash := sha256.Sum256([]byte(plaintext + constants.EncryptionLookupSalt))
	return e.seal(hash[:nonceSize], plaintext), nil
}

func (e *encryptor) DecryptIfEnabled(ciphertext string) (string, error) {
	if !e.enabled || ciphertext == "" {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// seal encrypts plaintext and prepends the nonce for storage.
func (e *encryptor) seal(nonce []byte, plaintext string) string {
	sealed := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...))
}
