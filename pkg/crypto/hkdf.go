package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives keySize bytes from a master secret using HKDF-SHA256.
//
// Parameters:
//   - secret: The master secret
//   - salt: Per-asset salt (the song id for session keys)
//   - info: Context string separating key purposes
//   - keySize: The desired output key size in bytes
func DeriveKey(secret, salt, info []byte, keySize int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, info)

	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}

	return key, nil
}
