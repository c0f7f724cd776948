package drm

import (
	"context"
	"fmt"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
)

// KeyStore persists session keys outside the container, indexed by song id.
type KeyStore interface {
	Put(ctx context.Context, id SongID, key []byte) error
	Get(ctx context.Context, id SongID) ([]byte, error)
}

// ProtectConfig contains configuration for protecting a song.
type ProtectConfig struct {
	// SongID identifies the song. A random id is generated if zero.
	SongID SongID

	// Owner is the user the song is packaged for.
	Owner string

	// OwnerKey signs the header on behalf of Owner.
	OwnerKey []byte

	// AuthorityKey is the content-authority key used for the authority
	// signature and every segment trailer.
	AuthorityKey []byte

	// Regions lists the region names the song may play in.
	Regions []string

	// RegionTable resolves Regions to codes.
	RegionTable RegionTable

	// SharedUsers optionally pre-populates the sharing list.
	SharedUsers []string

	// Len250ms is the number of audio bytes per 250 ms. It is stored as is.
	Len250ms uint32

	// SegmentSize is the plaintext payload per segment.
	// Defaults to DefaultSegmentSize if zero.
	SegmentSize int

	// SessionKey is the raw session key. A random key is generated if nil.
	SessionKey []byte

	// KeyStore receives the session key before any segment is encrypted.
	KeyStore KeyStore

	// Logger receives progress entries. Defaults to logger.Default().
	Logger logger.Logger
}

// Validate checks the protect config for required fields.
func (c *ProtectConfig) Validate() error {
	if len(c.AuthorityKey) == 0 {
		return fmt.Errorf("%w: authority key", ErrMissingKey)
	}
	if len(c.OwnerKey) == 0 {
		return fmt.Errorf("%w: owner key", ErrMissingKey)
	}
	if c.KeyStore == nil {
		return ErrMissingStore
	}
	if c.SegmentSize < 0 || c.SegmentSize%crypto.BlockSize != 0 || int64(c.SegmentSize) > MaxSegmentSize {
		return fmt.Errorf("%w: got %d", ErrInvalidSegment, c.SegmentSize)
	}
	if c.SessionKey != nil && len(c.SessionKey) != crypto.SessionKeySize {
		return fmt.Errorf("%w: session key is %d bytes, want %d", ErrInput, len(c.SessionKey), crypto.SessionKeySize)
	}
	return nil
}

// segmentSize returns the configured segment size or the default.
func (c *ProtectConfig) segmentSize() int {
	if c.SegmentSize <= 0 {
		return DefaultSegmentSize
	}
	return c.SegmentSize
}

// UnprotectConfig contains configuration for recovering a protected song.
type UnprotectConfig struct {
	// AuthorityKey verifies the header and every segment trailer.
	AuthorityKey []byte

	// OwnerKey optionally verifies the owner signature as well.
	OwnerKey []byte

	// SessionKey is the raw session key. If nil it is fetched from KeyStore.
	SessionKey []byte

	// KeyStore supplies the session key when SessionKey is nil.
	KeyStore KeyStore

	// BodyLength trims the recovered body to its original length. When zero
	// the padded body is returned. It must fit the header's segment layout.
	BodyLength int64

	// Preview limits the recovered body to the first 30 seconds.
	Preview bool

	// Logger receives progress entries. Defaults to logger.Default().
	Logger logger.Logger
}

// Validate checks the unprotect config for required fields.
func (c *UnprotectConfig) Validate() error {
	if len(c.AuthorityKey) == 0 {
		return fmt.Errorf("%w: authority key", ErrMissingKey)
	}
	if c.SessionKey == nil && c.KeyStore == nil {
		return fmt.Errorf("%w: session key or key store", ErrMissingKey)
	}
	if c.BodyLength < 0 {
		return fmt.Errorf("%w: negative body length", ErrInput)
	}
	return nil
}

// sessionKey resolves the session key for id.
func (c *UnprotectConfig) sessionKey(ctx context.Context, id SongID) ([]byte, error) {
	if c.SessionKey != nil {
		key := make([]byte, len(c.SessionKey))
		copy(key, c.SessionKey)
		return key, nil
	}

	key, err := c.KeyStore.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session key for %s: %w", id, withKind(err))
	}
	return key, nil
}
