package drm

import (
	"context"
	"fmt"
	"io"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/logging"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/sessionkey"
)

// Reader recovers the source of a protected song. Every segment trailer is
// verified before the segment is decrypted.
// Implements io.ReadCloser.
type Reader struct {
	config UnprotectConfig
	src    io.Reader
	log    logger.Logger

	header *Header
	cipher *crypto.SegmentCipher

	prefix []byte

	segmentIndex uint32
	segmentData  []byte // Decrypted data from current segment
	segmentPos   int    // Position within current segment

	// remaining is the number of body bytes still to return, or -1 when the
	// body is not limited.
	remaining int64

	closed bool
}

// NewReader parses and verifies the header from src and prepares the segment
// cipher. Segments are read lazily.
func NewReader(ctx context.Context, src io.Reader, config UnprotectConfig) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}

	if err := h.VerifyAuthority(config.AuthorityKey); err != nil {
		return nil, err
	}
	if len(config.OwnerKey) > 0 {
		if err := h.VerifyOwner(config.OwnerKey); err != nil {
			return nil, err
		}
	}

	if err := checkLayout(h); err != nil {
		return nil, err
	}

	key, err := config.sessionKey(ctx, h.SongID)
	if err != nil {
		return nil, err
	}
	defer sessionkey.Zero(key)

	cipher, err := crypto.NewSegmentCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment cipher: %w", err)
	}

	r := &Reader{
		config:    config,
		src:       src,
		header:    h,
		cipher:    cipher,
		prefix:    append([]byte(nil), h.SourcePrefix[:]...),
		remaining: -1,
	}
	if config.BodyLength > 0 {
		if err := CheckBodyLength(h, config.BodyLength); err != nil {
			return nil, err
		}
		r.remaining = config.BodyLength
	}
	if config.Preview {
		if preview := PreviewLength(h); r.remaining < 0 || preview < r.remaining {
			r.remaining = preview
		}
	}

	r.log = logging.OrDefault(config.Logger).WithFields(map[string]any{
		"song": h.SongID.String(),
	})
	r.log.Debugf("header verified: %d segments of %d bytes", h.NrSegments, h.FirstSegmentSize)

	return r, nil
}

// checkLayout rejects headers whose segment layout cannot be read.
func checkLayout(h *Header) error {
	if h.NrSegments == 0 {
		return ErrNoSegments
	}
	if h.FirstSegmentSize%crypto.BlockSize != 0 {
		return fmt.Errorf("%w: first segment size %d", ErrInvalidBlockSize, h.FirstSegmentSize)
	}
	if h.NrSegments > 1 && h.FirstSegmentSize == 0 {
		return fmt.Errorf("%w: %d segments of size 0", ErrInvalidBlockSize, h.NrSegments)
	}
	return nil
}

// CheckBodyLength reports whether n source body bytes produce the segment
// layout of h. Every segment but the last is full, and the last holds at
// least one byte unless the body is empty.
func CheckBodyLength(h *Header, n int64) error {
	if n == 0 && h.NrSegments == 1 {
		return nil
	}
	lo := int64(h.NrSegments-1) * int64(h.FirstSegmentSize)
	hi := lo + int64(h.FirstSegmentSize)
	if n <= lo || n > hi {
		return fmt.Errorf("%w: %d bytes for %d segments of %d", ErrBodyLength, n, h.NrSegments, h.FirstSegmentSize)
	}
	return nil
}

// Header returns the verified header.
func (r *Reader) Header() *Header {
	return r.header
}

// Read implements io.Reader. The source prefix is returned first, followed by
// the decrypted body.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.closed {
		return 0, ErrReaderClosed
	}

	total := 0

	if len(r.prefix) > 0 {
		copied := copy(p, r.prefix)
		r.prefix = r.prefix[copied:]
		p = p[copied:]
		total += copied
	}

	for len(p) > 0 {
		if r.remaining == 0 {
			// A preview stops early; a trimmed body still has its padding
			// segments checked.
			if !r.config.Preview {
				if err := r.verifyRest(); err != nil {
					return total, err
				}
			}
			break
		}

		// If we have data in the current segment buffer, use it
		if r.segmentPos < len(r.segmentData) {
			chunk := r.segmentData[r.segmentPos:]
			if r.remaining > 0 && int64(len(chunk)) > r.remaining {
				chunk = chunk[:r.remaining]
			}
			copied := copy(p, chunk)
			r.segmentPos += copied
			p = p[copied:]
			total += copied
			if r.remaining > 0 {
				r.remaining -= int64(copied)
			}
			continue
		}

		if r.segmentIndex >= r.header.NrSegments {
			break
		}

		if err := r.decryptNextSegment(); err != nil {
			return total, err
		}
	}

	if total == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return total, nil
}

// decryptNextSegment reads, verifies and decrypts the next segment.
func (r *Reader) decryptNextSegment() error {
	index := r.segmentIndex

	segment, err := r.readSegment(index)
	if err != nil {
		return err
	}

	plaintext, err := r.cipher.DecryptSegment(segment)
	if err != nil {
		return fmt.Errorf("%w: segment %d: %v", ErrInvalidBlockSize, index, err)
	}

	r.log.Debugf("segment %d verified: %d bytes", index, len(segment))

	r.segmentData = plaintext
	r.segmentPos = 0
	r.segmentIndex++
	return nil
}

// verifyRest reads and verifies the segments after the current one without
// decrypting them.
func (r *Reader) verifyRest() error {
	for r.segmentIndex < r.header.NrSegments {
		if _, err := r.readSegment(r.segmentIndex); err != nil {
			return err
		}
		r.segmentIndex++
	}
	r.segmentData = nil
	return nil
}

// readSegment reads segment index and verifies its trailer, returning the
// encrypted payload.
func (r *Reader) readSegment(index uint32) ([]byte, error) {
	full := int64(r.header.FirstSegmentSize) + TrailerSize

	var raw []byte
	if index < r.header.NrSegments-1 {
		raw = make([]byte, full)
		if _, err := io.ReadFull(r.src, raw); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrTruncatedBody, index, err)
		}
	} else {
		// The terminal segment may be shorter; it runs to the end of the input
		var err error
		if raw, err = io.ReadAll(io.LimitReader(r.src, full+1)); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrTruncatedBody, index, err)
		}
		if int64(len(raw)) > full {
			return nil, fmt.Errorf("%w: segment %d", ErrOversizedSegment, index)
		}
		if len(raw) < TrailerSize {
			return nil, fmt.Errorf("%w: terminal segment is %d bytes", ErrTruncatedBody, len(raw))
		}
	}

	segment, trailerBytes := raw[:len(raw)-TrailerSize], raw[len(raw)-TrailerSize:]

	trailer, err := VerifyTrailer(segment, trailerBytes, r.header.SongID, r.config.AuthorityKey)
	if err != nil {
		return nil, err
	}
	if err := trailer.checkPosition(r.header, index); err != nil {
		return nil, err
	}
	return segment, nil
}

// Close releases the decrypted segment buffer.
func (r *Reader) Close() error {
	if r.closed {
		return ErrReaderClosed
	}
	r.closed = true

	r.segmentData = nil
	r.cipher = nil

	return nil
}

// ReadAll reads and decrypts the entire song.
// This is a convenience method that calls Read until EOF and then Close.
func (r *Reader) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err := r.Close(); err != nil {
		return nil, err
	}

	return data, nil
}
