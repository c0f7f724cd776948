package drm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestHeaderSize(t *testing.T) {
	if got := binary.Size(Header{}); got != HeaderSize {
		t.Fatalf("binary size of Header: got %d, want %d", got, HeaderSize)
	}
	if got := binary.Size(Trailer{}); got != TrailerSize {
		t.Fatalf("binary size of Trailer: got %d, want %d", got, TrailerSize)
	}
	if offsetOwnerSig+SignatureSize != HeaderSize {
		t.Fatalf("field offsets add up to %d, want %d", offsetOwnerSig+SignatureSize, HeaderSize)
	}
}

func TestHeaderEncodedSize(t *testing.T) {
	maxRegions := make([]uint32, MaxRegions)
	for i := range maxRegions {
		maxRegions[i] = uint32(i + 1)
	}
	maxUsers := make([]string, MaxSharedUsers)
	for i := range maxUsers {
		maxUsers[i] = strings.Repeat(string(rune('a'+i%26)), NameSize)
	}

	tests := []struct {
		name   string
		fields Fields
	}{
		{"empty", Fields{}},
		{"typical", Fields{SongID: NewSongID(), Owner: "misha", Regions: []uint32{1, 2}, Len250ms: 44100}},
		{"maximal", Fields{
			SongID:           NewSongID(),
			Owner:            strings.Repeat("o", NameSize),
			Regions:          maxRegions,
			Len250ms:         ^uint32(0),
			NrSegments:       ^uint32(0),
			FirstSegmentSize: ^uint32(0),
			SourcePrefix:     bytes.Repeat([]byte{0xFF}, SourcePrefixSize),
			SharedUsers:      maxUsers,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHeader(tt.fields)
			if err != nil {
				t.Fatalf("NewHeader failed: %v", err)
			}
			data, err := h.Marshal()
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) != HeaderSize {
				t.Errorf("encoded size: got %d, want %d", len(data), HeaderSize)
			}
		})
	}
}

func TestHeaderLayout(t *testing.T) {
	h, err := NewHeader(Fields{
		SongID:           SongID{1, 2, 3},
		Owner:            "misha",
		Regions:          []uint32{7},
		Len250ms:         0x11223344,
		NrSegments:       5,
		FirstSegmentSize: DefaultSegmentSize,
		SourcePrefix:     []byte("RIFF"),
		SharedUsers:      []string{"alice"},
	})
	if err != nil {
		t.Fatalf("NewHeader failed: %v", err)
	}
	h.AuthoritySig[0] = 0xAA
	h.OwnerSig[63] = 0xBB

	data, _ := h.Marshal()

	if !bytes.Equal(data[:3], []byte{1, 2, 3}) {
		t.Error("song id not at offset 0")
	}
	if string(data[SongIDSize:SongIDSize+5]) != "misha" || data[SongIDSize+5] != 0 {
		t.Error("owner not zero padded at offset 16")
	}
	if binary.LittleEndian.Uint32(data[offsetRegions:]) != 7 || binary.LittleEndian.Uint32(data[offsetRegions+4:]) != 0 {
		t.Error("regions not at offset 32")
	}
	if binary.LittleEndian.Uint32(data[offsetLen250ms:]) != 0x11223344 {
		t.Error("len_250ms not little-endian at offset 160")
	}
	if binary.LittleEndian.Uint32(data[offsetLen250ms+4:]) != 5 {
		t.Error("nr_segments not at offset 164")
	}
	if binary.LittleEndian.Uint32(data[offsetLen250ms+8:]) != DefaultSegmentSize {
		t.Error("first_segment_size not at offset 168")
	}
	if string(data[offsetSourcePrefix:offsetSourcePrefix+4]) != "RIFF" {
		t.Error("source prefix not at offset 172")
	}
	if data[offsetAuthoritySig] != 0xAA {
		t.Error("authority signature not at offset 216")
	}
	if string(data[offsetSharedUsers:offsetSharedUsers+5]) != "alice" {
		t.Error("shared users not at offset 280")
	}
	if data[HeaderSize-1] != 0xBB {
		t.Error("owner signature not at the end")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h, _ := NewHeader(Fields{
		SongID:      NewSongID(),
		Owner:       "misha",
		Regions:     []uint32{1, 3},
		Len250ms:    44100,
		NrSegments:  3,
		SharedUsers: []string{"alice", "bob"},
	})
	if err := h.Sign(testAuthorityKey, testOwnerKey); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	data, _ := h.Marshal()
	parsed, err := ParseHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if *parsed != *h {
		t.Error("parsed header doesn't match")
	}
	if parsed.Owner.String() != "misha" {
		t.Errorf("owner: got %q, want %q", parsed.Owner.String(), "misha")
	}
	if got := parsed.SharedWith(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("shared users: got %v", got)
	}
	if got := parsed.RegionCodes(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("region codes: got %v", got)
	}
}

func TestHeaderFieldTooLarge(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
	}{
		{"owner", Fields{Owner: strings.Repeat("x", NameSize+1)}},
		{"regions", Fields{Regions: make([]uint32, MaxRegions+1)}},
		{"prefix", Fields{SourcePrefix: make([]byte, SourcePrefixSize+1)}},
		{"shared users", Fields{SharedUsers: make([]string, MaxSharedUsers+1)}},
		{"shared user name", Fields{SharedUsers: []string{strings.Repeat("y", NameSize+1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHeader(tt.fields)
			if !errors.Is(err, ErrFieldTooLarge) {
				t.Errorf("expected ErrFieldTooLarge, got %v", err)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("expected a format error, got %v", err)
			}
		})
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	for _, n := range []int{0, 1, HeaderSize - 1} {
		_, err := ParseHeader(bytes.NewReader(make([]byte, n)))
		if !errors.Is(err, ErrTruncatedHeader) {
			t.Errorf("%d bytes: expected ErrTruncatedHeader, got %v", n, err)
		}
		if _, err := UnmarshalHeader(make([]byte, n)); !errors.Is(err, ErrTruncatedHeader) {
			t.Errorf("%d bytes: expected ErrTruncatedHeader, got %v", n, err)
		}
	}
}

func TestSongIDParse(t *testing.T) {
	id := NewSongID()
	parsed, err := ParseSongID(id.String())
	if err != nil {
		t.Fatalf("ParseSongID failed: %v", err)
	}
	if parsed != id {
		t.Error("parsed song id doesn't match")
	}

	if _, err := ParseSongID("abcd"); !errors.Is(err, ErrInput) {
		t.Errorf("expected an input error, got %v", err)
	}
	if NewSongID() == NewSongID() {
		t.Error("song ids should be random")
	}
}

func TestNameString(t *testing.T) {
	n, _ := NewName("misha")
	if n.String() != "misha" {
		t.Errorf("got %q, want %q", n.String(), "misha")
	}

	// Space padded names from older tools
	var spaced Name
	copy(spaced[:], "bob             ")
	if spaced.String() != "bob" {
		t.Errorf("got %q, want %q", spaced.String(), "bob")
	}
}
