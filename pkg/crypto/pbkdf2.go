package crypto

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// UserKeySize is the size of a derived user key; it doubles as the owner
	// signing key.
	UserKeySize = 64

	// UserSaltSize is the size of the per-user PBKDF2 salt.
	UserSaltSize = 16

	// UserKeyIterations is the PBKDF2 iteration count used by the players.
	UserKeyIterations = 500
)

// DeriveUserKey derives a user key from a PIN using PBKDF2-HMAC-SHA512.
func DeriveUserKey(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, UserKeyIterations, UserKeySize, sha512.New)
}
