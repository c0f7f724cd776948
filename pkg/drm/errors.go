package drm

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of these,
// so callers can classify failures with errors.Is.
var (
	ErrInput          = errors.New("input error")
	ErrFormat         = errors.New("format error")
	ErrLookup         = errors.New("lookup error")
	ErrAuthentication = errors.New("authentication error")
)

var (
	// Input errors
	ErrShortSource    = fmt.Errorf("%w: source is shorter than the %d byte prefix", ErrInput, SourcePrefixSize)
	ErrMissingStore   = fmt.Errorf("%w: key store is required", ErrInput)
	ErrAlreadyShared  = fmt.Errorf("%w: song is already shared with user", ErrInput)
	ErrInvalidSegment = fmt.Errorf("%w: segment size must be a positive multiple of the block size", ErrInput)

	// Format errors
	ErrTruncatedHeader  = fmt.Errorf("%w: truncated header", ErrFormat)
	ErrTruncatedBody    = fmt.Errorf("%w: truncated segment", ErrFormat)
	ErrFieldTooLarge    = fmt.Errorf("%w: field too large", ErrFormat)
	ErrInvalidBlockSize = fmt.Errorf("%w: invalid block size", ErrFormat)
	ErrNoSegments       = fmt.Errorf("%w: header declares no segments", ErrFormat)
	ErrSharingListFull  = fmt.Errorf("%w: sharing list is full", ErrFormat)
	ErrBodyLength       = fmt.Errorf("%w: body length does not fit the segment layout", ErrFormat)
	ErrOversizedSegment = fmt.Errorf("%w: terminal segment is longer than a full segment", ErrFormat)

	// Lookup errors
	ErrUnknownRegion  = fmt.Errorf("%w: unknown region", ErrLookup)
	ErrTooManyRegions = fmt.Errorf("%w: too many regions", ErrLookup)
	ErrUnknownUser    = fmt.Errorf("%w: unknown user", ErrLookup)
	ErrMissingKey     = fmt.Errorf("%w: missing key", ErrLookup)
	ErrKeyNotFound    = fmt.Errorf("%w: session key not found", ErrLookup)

	// Authentication errors
	ErrTrailerAuthentication = fmt.Errorf("%w: trailer signature mismatch", ErrAuthentication)
	ErrHeaderAuthentication  = fmt.Errorf("%w: header signature mismatch", ErrAuthentication)
	ErrBrokenChain           = fmt.Errorf("%w: segment chain broken", ErrAuthentication)
	ErrNotOwner              = fmt.Errorf("%w: caller does not own the song", ErrAuthentication)

	// State errors
	ErrWriterClosed = errors.New("writer is closed")
	ErrReaderClosed = errors.New("reader is closed")
)

// withKind returns err unchanged when it already carries an error kind and
// otherwise marks it as an input error.
func withKind(err error) error {
	for _, kind := range []error{ErrInput, ErrFormat, ErrLookup, ErrAuthentication} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrInput, err)
}
