package drm

import (
	"bytes"
	"context"
	"io"
)

// Protect is a convenience function that protects an in-memory song.
// Returns the complete container and its description.
func Protect(ctx context.Context, source []byte, config ProtectConfig) ([]byte, *Result, error) {
	var buf bytes.Buffer

	res, err := ProtectTo(ctx, &buf, bytes.NewReader(source), config)
	if err != nil {
		return nil, nil, err
	}

	return buf.Bytes(), res, nil
}

// ProtectTo protects the song read from src and writes the container to dst.
func ProtectTo(ctx context.Context, dst io.Writer, src io.Reader, config ProtectConfig) (*Result, error) {
	w, err := NewWriter(ctx, dst, config)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(w, src); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	res := w.Result()
	return &res, nil
}

// Unprotect is a convenience function that recovers an in-memory song.
func Unprotect(ctx context.Context, container []byte, config UnprotectConfig) ([]byte, error) {
	r, err := NewReader(ctx, bytes.NewReader(container), config)
	if err != nil {
		return nil, err
	}

	return r.ReadAll()
}

// UnprotectTo recovers the song read from src and writes it to dst.
// Returns the number of bytes written.
func UnprotectTo(ctx context.Context, dst io.Writer, src io.Reader, config UnprotectConfig) (int64, error) {
	r, err := NewReader(ctx, src, config)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		return n, err
	}

	return n, r.Close()
}
