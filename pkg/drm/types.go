// Package drm implements the protected song container: a fixed 1368-byte header
// followed by a body of AES-ECB encrypted segments, each chained to its position
// by an HMAC-SHA512 trailer.
package drm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
)

// Layout constants
const (
	// SongIDSize is the size of the random per-song identifier.
	SongIDSize = 16

	// NameSize is the fixed width of an owner or shared user name.
	NameSize = 16

	// MaxRegions is the number of region slots in a header.
	MaxRegions = 32

	// MaxSharedUsers is the number of shared user slots in a header.
	MaxSharedUsers = 64

	// SourcePrefixSize is the number of leading source bytes copied verbatim into
	// the header.
	SourcePrefixSize = 44

	// SignatureSize is the size of the header and trailer signatures.
	SignatureSize = crypto.SignatureSize

	// HeaderSize is the encoded size of a Header.
	HeaderSize = 1368

	// TrailerSize is the encoded size of a Trailer.
	TrailerSize = 128

	// DefaultSegmentSize is the plaintext payload per non-terminal segment.
	DefaultSegmentSize = 14336

	// MaxSegmentSize is the largest segment size whose trailer next-size
	// still fits in 32 bits.
	MaxSegmentSize = (math.MaxUint32 - TrailerSize) &^ (crypto.BlockSize - 1)
)

// Field offsets within the encoded header
const (
	offsetRegions      = SongIDSize + NameSize
	offsetLen250ms     = offsetRegions + MaxRegions*4
	offsetSourcePrefix = offsetLen250ms + 3*4
	offsetAuthoritySig = offsetSourcePrefix + SourcePrefixSize
	offsetSharedUsers  = offsetAuthoritySig + SignatureSize
	offsetOwnerSig     = offsetSharedUsers + MaxSharedUsers*NameSize

	trailerPadSize = TrailerSize - SongIDSize - 2*4 - SignatureSize

	previewSeconds    = 30
	quartersPerSecond = 4
)

// The trailer must hold a whole number of cipher blocks.
const _ uint = -(TrailerSize % crypto.BlockSize)

// byteOrder is the byte order of every integer in the container.
var byteOrder = binary.LittleEndian

// SongID identifies one protected song.
type SongID [SongIDSize]byte

// NewSongID returns a random song id.
func NewSongID() SongID {
	return SongID(uuid.New())
}

// ParseSongID parses the hex form produced by SongID.String.
func ParseSongID(s string) (SongID, error) {
	var id SongID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: song id: %v", ErrInput, err)
	}
	if len(b) != SongIDSize {
		return id, fmt.Errorf("%w: song id must be %d bytes", ErrInput, SongIDSize)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the song id in hex.
func (id SongID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the id is unset.
func (id SongID) IsZero() bool {
	return id == SongID{}
}

// Name is a fixed-width, zero padded user name.
type Name [NameSize]byte

// NewName converts s to a Name. Names longer than NameSize fail with
// ErrFieldTooLarge.
func NewName(s string) (Name, error) {
	var n Name
	if len(s) > NameSize {
		return n, fmt.Errorf("%w: name %q is longer than %d bytes", ErrFieldTooLarge, s, NameSize)
	}
	copy(n[:], s)
	return n, nil
}

// String returns the name without its padding.
func (n Name) String() string {
	end := len(n)
	for end > 0 && (n[end-1] == 0 || n[end-1] == ' ') {
		end--
	}
	return string(n[:end])
}

// IsEmpty reports whether the slot is unused.
func (n Name) IsEmpty() bool {
	return n[0] == 0
}

// PreviewLength returns the number of body bytes in the 30 second preview of a song.
func PreviewLength(h *Header) int64 {
	return int64(h.Len250ms) * quartersPerSecond * previewSeconds
}
