// Package crypto provides the cryptographic primitives used by the song container:
// the block transposition, the AES-ECB segment cipher, HMAC-SHA512 signing and the
// key derivation functions.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	// SessionKeySize is the key size for AES-128 in bytes.
	SessionKeySize = 16

	// BlockSize is the cipher block size. Segments are always a multiple of it.
	BlockSize = aes.BlockSize
)

var (
	ErrInvalidKeySize   = errors.New("invalid key size: must be 16 bytes for AES-128")
	ErrInvalidBlockSize = errors.New("input is not a multiple of the cipher block size")
)

// SegmentCipher encrypts and decrypts segment payloads with AES in ECB mode.
// The cipher is keyed with the transposed session key, so the same raw session
// key has to be supplied on both sides.
type SegmentCipher struct {
	block cipher.Block
}

// NewSegmentCipher creates a segment cipher from a raw (untransposed) session key.
func NewSegmentCipher(sessionKey []byte) (*SegmentCipher, error) {
	if len(sessionKey) != SessionKeySize {
		return nil, ErrInvalidKeySize
	}

	key := make([]byte, SessionKeySize)
	TransposeBlock(key, sessionKey)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &SegmentCipher{block: block}, nil
}

// Encrypt encrypts each block of src independently. No transposition is applied.
func (c *SegmentCipher) Encrypt(src []byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBlockSize, len(src))
	}

	dst := make([]byte, len(src))
	for off := 0; off < len(src); off += BlockSize {
		c.block.Encrypt(dst[off:off+BlockSize], src[off:off+BlockSize])
	}
	return dst, nil
}

// Decrypt is the inverse of Encrypt.
func (c *SegmentCipher) Decrypt(src []byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBlockSize, len(src))
	}

	dst := make([]byte, len(src))
	for off := 0; off < len(src); off += BlockSize {
		c.block.Decrypt(dst[off:off+BlockSize], src[off:off+BlockSize])
	}
	return dst, nil
}

// EncryptSegment transposes every block of plaintext and then encrypts it.
// plaintext must already be padded to a block multiple.
func (c *SegmentCipher) EncryptSegment(plaintext []byte) ([]byte, error) {
	transposed, err := Transpose(plaintext)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(transposed)
}

// DecryptSegment decrypts a segment and undoes the block transposition.
func (c *SegmentCipher) DecryptSegment(ciphertext []byte) ([]byte, error) {
	transposed, err := c.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return Transpose(transposed)
}

// PaddedSize rounds n up to the next multiple of BlockSize.
func PaddedSize(n int) int {
	if r := n % BlockSize; r != 0 {
		return n + BlockSize - r
	}
	return n
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
