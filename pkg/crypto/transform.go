package crypto

import "fmt"

// groupSize is the width of a row in the 4x4 block matrix.
const groupSize = 4

// TransposeBlock writes the transposition of one 16-byte block into dst.
// The block is read as four 4-byte groups and byte k of every group is gathered
// into run k, so dst[4k+j] = src[4j+k]. The operation is its own inverse.
// dst and src must not overlap.
func TransposeBlock(dst, src []byte) {
	_ = src[BlockSize-1]
	_ = dst[BlockSize-1]
	for k := 0; k < groupSize; k++ {
		for j := 0; j < groupSize; j++ {
			dst[groupSize*k+j] = src[groupSize*j+k]
		}
	}
}

// Transpose applies TransposeBlock to every 16-byte block of src and returns the
// result in a new slice.
func Transpose(src []byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBlockSize, len(src))
	}

	dst := make([]byte, len(src))
	for off := 0; off < len(src); off += BlockSize {
		TransposeBlock(dst[off:off+BlockSize], src[off:off+BlockSize])
	}
	return dst, nil
}
