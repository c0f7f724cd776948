package drm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Header is the fixed-layout DRM header at the start of every container.
// Field order and widths match the encoded layout; all integers are little-endian.
type Header struct {
	// SongID is random per song and repeated in every segment trailer.
	SongID SongID

	// Owner is the user whose key produced OwnerSig.
	Owner Name

	// Regions holds the region codes the song may play in. Unused slots are 0.
	Regions [MaxRegions]uint32

	// Len250ms is the number of audio bytes per 250 ms at the source sample rate.
	Len250ms uint32

	// NrSegments is the number of body segments.
	NrSegments uint32

	// FirstSegmentSize is the payload size of every non-terminal segment,
	// excluding its trailer.
	FirstSegmentSize uint32

	// SourcePrefix is an opaque copy of the first bytes of the source file.
	SourcePrefix [SourcePrefixSize]byte

	// AuthoritySig is HMAC-SHA512 over every field before it, keyed with the
	// content-authority key.
	AuthoritySig [SignatureSize]byte

	// SharedUsers lists users the owner has shared the song with. The list ends
	// at the first empty slot.
	SharedUsers [MaxSharedUsers]Name

	// OwnerSig is HMAC-SHA512 over the signed fields, AuthoritySig and
	// SharedUsers, keyed with the owner key.
	OwnerSig [SignatureSize]byte
}

// Fields holds the variable-width values a Header is built from.
type Fields struct {
	SongID           SongID
	Owner            string
	Regions          []uint32
	Len250ms         uint32
	NrSegments       uint32
	FirstSegmentSize uint32
	SourcePrefix     []byte
	SharedUsers      []string
}

// NewHeader builds a Header from f. Values shorter than their slot are zero
// padded; values that do not fit fail with ErrFieldTooLarge. Signatures are left
// zero.
func NewHeader(f Fields) (*Header, error) {
	h := &Header{
		SongID:           f.SongID,
		Len250ms:         f.Len250ms,
		NrSegments:       f.NrSegments,
		FirstSegmentSize: f.FirstSegmentSize,
	}

	owner, err := NewName(f.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	h.Owner = owner

	if len(f.Regions) > MaxRegions {
		return nil, fmt.Errorf("%w: %d regions, at most %d fit", ErrFieldTooLarge, len(f.Regions), MaxRegions)
	}
	copy(h.Regions[:], f.Regions)

	if len(f.SourcePrefix) > SourcePrefixSize {
		return nil, fmt.Errorf("%w: source prefix is %d bytes, at most %d fit", ErrFieldTooLarge, len(f.SourcePrefix), SourcePrefixSize)
	}
	copy(h.SourcePrefix[:], f.SourcePrefix)

	if len(f.SharedUsers) > MaxSharedUsers {
		return nil, fmt.Errorf("%w: %d shared users, at most %d fit", ErrFieldTooLarge, len(f.SharedUsers), MaxSharedUsers)
	}
	for i, u := range f.SharedUsers {
		name, err := NewName(u)
		if err != nil {
			return nil, fmt.Errorf("shared user %d: %w", i, err)
		}
		h.SharedUsers[i] = name
	}

	return h, nil
}

// Marshal serializes the header into its HeaderSize byte form.
func (h *Header) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	if err := binary.Write(buf, byteOrder, h); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseHeader reads and parses a header from a reader.
func ParseHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if n, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read %d of %d bytes: %v", ErrTruncatedHeader, n, HeaderSize, err)
	}
	return UnmarshalHeader(buf)
}

// UnmarshalHeader parses the first HeaderSize bytes of data. Trailing bytes are
// ignored.
func UnmarshalHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: have %d of %d bytes", ErrTruncatedHeader, len(data), HeaderSize)
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), byteOrder, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	return h, nil
}

// RegionCodes returns the used region slots, stopping at the first zero code.
func (h *Header) RegionCodes() []uint32 {
	var codes []uint32
	for _, c := range h.Regions {
		if c == 0 {
			break
		}
		codes = append(codes, c)
	}
	return codes
}

// SharedWith returns the used shared user slots, stopping at the first empty one.
func (h *Header) SharedWith() []string {
	var users []string
	for _, u := range h.SharedUsers {
		if u.IsEmpty() {
			break
		}
		users = append(users, u.String())
	}
	return users
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	c := *h
	return &c
}
