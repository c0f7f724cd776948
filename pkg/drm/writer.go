package drm

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/logging"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/sessionkey"
)

// state tracks a Writer through the protect pipeline.
type state int

const (
	stateInit state = iota
	stateHeaderBuilt
	stateSegmenting
	stateSigned
	stateWritten
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateHeaderBuilt:
		return "header-built"
	case stateSegmenting:
		return "segmenting"
	case stateSigned:
		return "signed"
	case stateWritten:
		return "written"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result describes a finished container.
type Result struct {
	SongID           SongID
	Segments         uint32
	FirstSegmentSize uint32

	// BodyLength is the exact number of source bytes after the prefix.
	// Unprotect needs it to strip the terminal segment's padding.
	BodyLength int64

	// PaddedLength is the number of plaintext bytes actually encrypted.
	PaddedLength int64

	// ContainerSize is the total number of bytes written.
	ContainerSize int64
}

// Writer protects a song written to it. The first SourcePrefixSize bytes are
// copied into the header; the rest is segmented, encrypted and signed.
// The header depends on the whole body. When dst is an io.WriteSeeker the
// segments are streamed after a placeholder header that Close rewrites;
// otherwise nothing reaches dst until Close.
// Implements io.WriteCloser.
type Writer struct {
	config ProtectConfig
	dst    io.Writer
	log    logger.Logger
	state  state

	header *Header
	cipher *crypto.SegmentCipher

	prefix    []byte
	window    []byte
	windowPos int

	// pending is the last sealed segment. Its trailer is written only once
	// the writer knows whether another segment follows.
	pending []byte
	index   uint32

	// seeker is set when segments stream straight to dst. start is the
	// offset of the header within it.
	seeker     io.WriteSeeker
	start      int64
	streaming  bool
	body       bytes.Buffer
	written    int64
	bodyLength int64
	padded     int64

	result Result
}

// NewWriter builds the header, commits the session key to the configured key
// store and returns a Writer ready for the source bytes.
func NewWriter(ctx context.Context, dst io.Writer, config ProtectConfig) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	w := &Writer{
		config: config,
		dst:    dst,
		state:  stateInit,
		prefix: make([]byte, 0, SourcePrefixSize),
		window: make([]byte, config.segmentSize()),
	}

	if err := w.buildHeader(); err != nil {
		return nil, err
	}
	w.log = logging.OrDefault(config.Logger).WithFields(map[string]any{
		"song":  w.header.SongID.String(),
		"owner": config.Owner,
	})

	key := config.SessionKey
	if key == nil {
		var err error
		if key, err = sessionkey.Generate(); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	} else {
		key = append([]byte(nil), key...)
	}
	defer sessionkey.Zero(key)

	if err := config.KeyStore.Put(ctx, w.header.SongID, key); err != nil {
		return nil, fmt.Errorf("failed to store session key: %w", withKind(err))
	}

	cipher, err := crypto.NewSegmentCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment cipher: %w", err)
	}
	w.cipher = cipher

	if ws, ok := dst.(io.WriteSeeker); ok {
		// Pipes and terminals satisfy the interface but cannot seek
		if start, err := ws.Seek(0, io.SeekCurrent); err == nil {
			w.seeker, w.start = ws, start
		}
	}

	w.log.Debugf("session key committed, segment size %d", len(w.window))
	return w, nil
}

// buildHeader moves the writer from init to header-built.
func (w *Writer) buildHeader() error {
	id := w.config.SongID
	if id.IsZero() {
		id = NewSongID()
	}

	codes, err := w.config.RegionTable.Encode(w.config.Regions)
	if err != nil {
		return err
	}

	h, err := NewHeader(Fields{
		SongID:           id,
		Owner:            w.config.Owner,
		Regions:          codes[:],
		Len250ms:         w.config.Len250ms,
		FirstSegmentSize: uint32(len(w.window)),
		SharedUsers:      w.config.SharedUsers,
	})
	if err != nil {
		return err
	}

	w.header = h
	w.state = stateHeaderBuilt
	return nil
}

// Header returns the header. Its signatures are only valid after Close.
func (w *Writer) Header() *Header {
	return w.header
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.state > stateSegmenting {
		return 0, ErrWriterClosed
	}
	w.state = stateSegmenting

	total := 0

	// The prefix is copied, never encrypted
	if need := SourcePrefixSize - len(w.prefix); need > 0 {
		take := min(need, len(p))
		w.prefix = append(w.prefix, p[:take]...)
		p = p[take:]
		total += take
	}

	for len(p) > 0 {
		toCopy := copy(w.window[w.windowPos:], p)
		w.windowPos += toCopy
		w.bodyLength += int64(toCopy)
		p = p[toCopy:]
		total += toCopy

		if w.windowPos == len(w.window) {
			if err := w.sealWindow(); err != nil {
				return total, err
			}
		}
	}

	return total, nil
}

// sealWindow encrypts the window into pending, first emitting the previous
// pending segment now that a successor is known to exist.
func (w *Writer) sealWindow() error {
	if w.pending != nil {
		if err := w.emit(w.header.FirstSegmentSize + TrailerSize); err != nil {
			return err
		}
	}

	size := crypto.PaddedSize(w.windowPos)
	for i := w.windowPos; i < size; i++ {
		w.window[i] = 0
	}

	sealed, err := w.cipher.EncryptSegment(w.window[:size])
	if err != nil {
		return fmt.Errorf("%w: segment %d: %v", ErrInvalidBlockSize, w.index, err)
	}

	w.pending = sealed
	w.padded += int64(size)
	w.windowPos = 0
	return nil
}

// emit signs the pending segment and appends it with its trailer to the body.
func (w *Writer) emit(nextSegmentSize uint32) error {
	trailer, err := BuildTrailer(w.pending, w.header.SongID, w.index, nextSegmentSize, w.config.AuthorityKey)
	if err != nil {
		return err
	}

	if err := w.writeSegment(w.pending, trailer); err != nil {
		return err
	}
	w.log.Debugf("segment %d sealed: %d bytes, next %d", w.index, len(w.pending), nextSegmentSize)

	w.pending = nil
	w.index++
	return nil
}

// writeSegment appends a sealed segment and its trailer to the body, writing
// the placeholder header first when streaming.
func (w *Writer) writeSegment(segment, trailer []byte) error {
	if w.seeker == nil {
		w.body.Write(segment)
		w.body.Write(trailer)
		w.written += int64(len(segment) + len(trailer))
		return nil
	}

	if !w.streaming {
		if _, err := w.seeker.Write(make([]byte, HeaderSize)); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.streaming = true
	}
	if _, err := w.seeker.Write(segment); err != nil {
		return fmt.Errorf("failed to write segment %d: %w", w.index, err)
	}
	if _, err := w.seeker.Write(trailer); err != nil {
		return fmt.Errorf("failed to write segment %d: %w", w.index, err)
	}
	w.written += int64(len(segment) + len(trailer))
	return nil
}

// writeHeader writes the signed header in front of the body.
func (w *Writer) writeHeader(header []byte) error {
	if w.seeker == nil {
		if _, err := w.dst.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if _, err := w.dst.Write(w.body.Bytes()); err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}
		return nil
	}

	if _, err := w.seeker.Seek(w.start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind to header: %w", err)
	}
	if _, err := w.seeker.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	// Leave dst positioned after the container
	if _, err := w.seeker.Seek(w.start+int64(len(header))+w.written, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek past body: %w", err)
	}
	return nil
}

// Close finishes the trailer chain, signs the header and writes the container.
func (w *Writer) Close() error {
	if w.state > stateSegmenting {
		return ErrWriterClosed
	}
	w.state = stateSigned

	if len(w.prefix) < SourcePrefixSize {
		return fmt.Errorf("%w: got %d bytes", ErrShortSource, len(w.prefix))
	}
	copy(w.header.SourcePrefix[:], w.prefix)

	// A partial window is the terminal segment. An empty body still produces
	// one empty terminal segment.
	if w.windowPos > 0 || w.pending == nil {
		if err := w.sealWindow(); err != nil {
			return err
		}
	}
	if err := w.emit(0); err != nil {
		return err
	}

	w.header.NrSegments = w.index
	if err := w.header.Sign(w.config.AuthorityKey, w.config.OwnerKey); err != nil {
		return err
	}

	header, err := w.header.Marshal()
	if err != nil {
		return err
	}
	if err := w.writeHeader(header); err != nil {
		return err
	}
	w.state = stateWritten

	w.result = Result{
		SongID:           w.header.SongID,
		Segments:         w.header.NrSegments,
		FirstSegmentSize: w.header.FirstSegmentSize,
		BodyLength:       w.bodyLength,
		PaddedLength:     w.padded,
		ContainerSize:    int64(len(header)) + w.written,
	}
	w.body.Reset()
	w.state = stateDone

	w.log.Infof("protected %d body bytes in %d segments", w.bodyLength, w.result.Segments)
	return nil
}

// Result returns the container description. It is only meaningful after a
// successful Close.
func (w *Writer) Result() Result {
	return w.result
}
