package drm

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/logging"
)

// VerifyOptions configures VerifyContainer.
type VerifyOptions struct {
	// AuthorityKey verifies the header and every trailer.
	AuthorityKey []byte

	// OwnerKey optionally verifies the owner signature.
	OwnerKey []byte

	// Workers is the number of segments verified in parallel.
	// Defaults to runtime.NumCPU() if zero.
	Workers int

	Logger logger.Logger
}

type verifyJob struct {
	index  uint32
	offset int64
	length int64
}

type verifyResult struct {
	index uint32
	err   error
}

// VerifyContainer checks the header signatures and every segment trailer of a
// container without decrypting it. Each trailer depends only on bytes already
// in the container, so segments are verified in parallel. The error for the
// lowest failing segment is returned.
func VerifyContainer(ctx context.Context, r io.ReaderAt, size int64, opts VerifyOptions) (*Header, error) {
	if len(opts.AuthorityKey) == 0 {
		return nil, fmt.Errorf("%w: authority key", ErrMissingKey)
	}
	log := logging.OrDefault(opts.Logger)

	h, err := ParseHeader(io.NewSectionReader(r, 0, HeaderSize))
	if err != nil {
		return nil, err
	}
	if err := h.VerifyAuthority(opts.AuthorityKey); err != nil {
		return nil, err
	}
	if len(opts.OwnerKey) > 0 {
		if err := h.VerifyOwner(opts.OwnerKey); err != nil {
			return nil, err
		}
	}

	jobs, err := segmentJobs(h, size)
	if err != nil {
		return nil, err
	}

	numWorkers := opts.Workers
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(jobs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan verifyJob, len(jobs))
	results := make(chan verifyResult, len(jobs))

	for i := 0; i < numWorkers; i++ {
		go func() {
			for job := range jobCh {
				if ctx.Err() != nil {
					results <- verifyResult{index: job.index, err: ctx.Err()}
					continue
				}
				results <- verifyResult{index: job.index, err: verifySegmentAt(r, h, job, opts.AuthorityKey)}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var firstErr error
	var firstIndex uint32
	for range jobs {
		res := <-results
		if res.err != nil && (firstErr == nil || res.index < firstIndex) {
			firstErr, firstIndex = res.err, res.index
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	log.Debugf("container %s verified: %d segments, %d workers", h.SongID, h.NrSegments, numWorkers)
	return h, nil
}

// segmentJobs computes the position of every segment from the header and the
// container size.
func segmentJobs(h *Header, size int64) ([]verifyJob, error) {
	if err := checkLayout(h); err != nil {
		return nil, err
	}

	full := int64(h.FirstSegmentSize) + TrailerSize
	last := size - HeaderSize - int64(h.NrSegments-1)*full
	if last < TrailerSize {
		return nil, fmt.Errorf("%w: container is %d bytes, too small for %d segments", ErrTruncatedBody, size, h.NrSegments)
	}
	if last > full {
		return nil, fmt.Errorf("%w: %d bytes after the last full segment", ErrOversizedSegment, last)
	}

	jobs := make([]verifyJob, h.NrSegments)
	offset := int64(HeaderSize)
	for i := range jobs {
		length := full
		if uint32(i) == h.NrSegments-1 {
			length = last
		}
		jobs[i] = verifyJob{index: uint32(i), offset: offset, length: length}
		offset += length
	}
	return jobs, nil
}

func verifySegmentAt(r io.ReaderAt, h *Header, job verifyJob, authorityKey []byte) error {
	raw := make([]byte, job.length)
	if n, err := r.ReadAt(raw, job.offset); err != nil && !(err == io.EOF && n == len(raw)) {
		return fmt.Errorf("%w: segment %d: %v", ErrTruncatedBody, job.index, err)
	}

	split := len(raw) - TrailerSize
	trailer, err := VerifyTrailer(raw[:split], raw[split:], h.SongID, authorityKey)
	if err != nil {
		return err
	}
	return trailer.checkPosition(h, job.index)
}
