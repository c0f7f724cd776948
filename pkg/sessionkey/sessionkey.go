// Package sessionkey manages the per-song session keys that feed the segment
// cipher: random generation, validation, deterministic derivation and wiping.
package sessionkey

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
)

const (
	// Size is the size of a session key in bytes (AES-128).
	Size = crypto.SessionKeySize

	// MinMasterSize is the smallest master secret accepted by Derive.
	MinMasterSize = 16
)

// derivationInfo separates session keys from any other key derived from the
// same master secret.
var derivationInfo = []byte("song session key")

var (
	ErrInvalidSize   = errors.New("invalid session key size: must be 16 bytes")
	ErrShortMaster   = errors.New("master secret is too short")
	ErrMissingSongID = errors.New("song id is required for derivation")
)

// Generate creates a new random session key.
func Generate() ([]byte, error) {
	key := make([]byte, Size)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Validate checks if a session key has the correct size.
func Validate(key []byte) error {
	if len(key) != Size {
		return ErrInvalidSize
	}
	return nil
}

// Derive computes the session key for a song from a master secret, so that
// keys never have to be stored. The song id is the HKDF salt.
func Derive(master, songID []byte) ([]byte, error) {
	if len(master) < MinMasterSize {
		return nil, ErrShortMaster
	}
	if len(songID) == 0 {
		return nil, ErrMissingSongID
	}
	return crypto.DeriveKey(master, songID, derivationInfo, Size)
}

// Zero overwrites key in place.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
