// Package wav reads the canonical 44 byte WAV header that a protected song
// keeps as its source prefix.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of a canonical PCM WAV header.
const HeaderSize = 44

var (
	ErrShortHeader = errors.New("wav: header is shorter than 44 bytes")
	ErrNotWAV      = errors.New("wav: missing RIFF/WAVE magic")
	ErrNoByteRate  = errors.New("wav: byte rate is zero")
)

// Header is the canonical RIFF/WAVE header of a PCM file.
type Header struct {
	RiffID   [4]byte // "RIFF"
	FileSize uint32
	WaveID   [4]byte // "WAVE"

	FmtID         [4]byte // "fmt "
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16
	BitsPerSample uint16

	DataID   [4]byte // "data"
	DataSize uint32
}

// ParseHeader decodes the first HeaderSize bytes of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: got %d", ErrShortHeader, len(data))
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, h); err != nil {
		return nil, err
	}
	if string(h.RiffID[:]) != "RIFF" || string(h.WaveID[:]) != "WAVE" {
		return nil, ErrNotWAV
	}
	return h, nil
}

// Len250ms returns the number of audio bytes played in 250 ms.
func (h *Header) Len250ms() uint32 {
	return uint32(uint64(h.ByteRate) * 250 / 1000)
}

// Len250ms reads the byte rate from a WAV header prefix and returns the
// number of audio bytes per 250 ms.
func Len250ms(prefix []byte) (uint32, error) {
	h, err := ParseHeader(prefix)
	if err != nil {
		return 0, err
	}
	if h.ByteRate == 0 {
		return 0, ErrNoByteRate
	}
	return h.Len250ms(), nil
}
