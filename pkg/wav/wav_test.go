package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func testHeader(t *testing.T, sampleRate uint32, channels, bits uint16) []byte {
	t.Helper()
	h := Header{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(channels) * uint32(bits) / 8,
		BlockAlign:    channels * bits / 8,
		BitsPerSample: bits,
		DataID:        [4]byte{'d', 'a', 't', 'a'},
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHeaderSize(t *testing.T) {
	if got := binary.Size(Header{}); got != HeaderSize {
		t.Errorf("header size: got %d, want %d", got, HeaderSize)
	}
}

func TestLen250ms(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate uint32
		channels   uint16
		bits       uint16
		want       uint32
	}{
		{"cd stereo", 44100, 2, 16, 44100},
		{"mono 16 bit", 44100, 1, 16, 22050},
		{"48k stereo", 48000, 2, 16, 48000},
		{"8k mono 8 bit", 8000, 1, 8, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := testHeader(t, tt.sampleRate, tt.channels, tt.bits)
			// Byte rate lives at offset 28
			if rate := binary.LittleEndian.Uint32(prefix[28:32]); rate*250/1000 != tt.want {
				t.Fatalf("byte rate %d at offset 28", rate)
			}

			got, err := Len250ms(prefix)
			if err != nil {
				t.Fatalf("Len250ms failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLen250msErrors(t *testing.T) {
	good := testHeader(t, 44100, 2, 16)

	notWAV := append([]byte(nil), good...)
	copy(notWAV, "RIFX")

	silent := testHeader(t, 0, 2, 16)

	tests := []struct {
		name   string
		prefix []byte
		want   error
	}{
		{"short", good[:20], ErrShortHeader},
		{"not wav", notWAV, ErrNotWAV},
		{"zero byte rate", silent, ErrNoByteRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Len250ms(tt.prefix); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
