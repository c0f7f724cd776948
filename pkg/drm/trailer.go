package drm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
)

// Trailer follows every encrypted segment and binds it to its song and position.
type Trailer struct {
	SongID SongID

	// Index is the 0-based position of the segment this trailer follows.
	Index uint32

	// NextSegmentSize is the size of the next segment including its trailer,
	// or 0 after the terminal segment.
	NextSegmentSize uint32

	// Signature is HMAC-SHA512 over the encrypted segment, SongID, Index and
	// NextSegmentSize.
	Signature [SignatureSize]byte

	Padding [trailerPadSize]byte
}

// Terminal reports whether the trailer marks the end of the stream.
func (t *Trailer) Terminal() bool {
	return t.NextSegmentSize == 0
}

// Marshal serializes the trailer into its TrailerSize byte form.
func (t *Trailer) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, TrailerSize))
	if err := binary.Write(buf, byteOrder, t); err != nil {
		return nil, fmt.Errorf("failed to encode trailer: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseTrailer parses a TrailerSize byte trailer.
func ParseTrailer(data []byte) (*Trailer, error) {
	if len(data) != TrailerSize {
		return nil, fmt.Errorf("%w: trailer is %d bytes, want %d", ErrTruncatedBody, len(data), TrailerSize)
	}

	t := &Trailer{}
	if err := binary.Read(bytes.NewReader(data), byteOrder, t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedBody, err)
	}
	return t, nil
}

// signedFields returns the trailer fields covered by the signature.
func (t *Trailer) signedFields() []byte {
	b := make([]byte, SongIDSize+8)
	copy(b, t.SongID[:])
	byteOrder.PutUint32(b[SongIDSize:], t.Index)
	byteOrder.PutUint32(b[SongIDSize+4:], t.NextSegmentSize)
	return b
}

// BuildTrailer signs an encrypted segment and returns its encoded trailer.
func BuildTrailer(segment []byte, songID SongID, index, nextSegmentSize uint32, authorityKey []byte) ([]byte, error) {
	if len(authorityKey) == 0 {
		return nil, fmt.Errorf("%w: authority key", ErrMissingKey)
	}

	t := &Trailer{
		SongID:          songID,
		Index:           index,
		NextSegmentSize: nextSegmentSize,
	}
	copy(t.Signature[:], crypto.HMACSHA512(authorityKey, segment, t.signedFields()))

	return t.Marshal()
}

// VerifyTrailer checks that trailer was produced for segment under songID.
// It returns the parsed trailer so callers can check its position in the chain.
func VerifyTrailer(segment, trailer []byte, songID SongID, authorityKey []byte) (*Trailer, error) {
	if len(authorityKey) == 0 {
		return nil, fmt.Errorf("%w: authority key", ErrMissingKey)
	}

	t, err := ParseTrailer(trailer)
	if err != nil {
		return nil, err
	}

	if t.SongID != songID {
		return nil, fmt.Errorf("%w: segment %d belongs to song %s", ErrTrailerAuthentication, t.Index, t.SongID)
	}

	if !crypto.VerifyHMACSHA512(authorityKey, t.Signature[:], segment, t.signedFields()) {
		return nil, fmt.Errorf("%w: segment %d", ErrTrailerAuthentication, t.Index)
	}

	return t, nil
}

// checkPosition verifies that an authenticated trailer sits where the header
// says it should.
func (t *Trailer) checkPosition(h *Header, index uint32) error {
	if t.Index != index {
		return fmt.Errorf("%w: found segment %d at position %d", ErrBrokenChain, t.Index, index)
	}

	want := h.FirstSegmentSize + TrailerSize
	if index == h.NrSegments-1 {
		want = 0
	}
	if t.NextSegmentSize != want {
		return fmt.Errorf("%w: segment %d announces next size %d, want %d", ErrBrokenChain, index, t.NextSegmentSize, want)
	}

	return nil
}
