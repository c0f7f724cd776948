package drm

import (
	"fmt"
	"io"
)

// Share adds user to the sharing list and re-signs the owner signature.
// The authority signature does not cover the sharing list and is kept.
// The caller must already have verified that ownerKey belongs to the owner.
func (h *Header) Share(user string, ownerKey []byte) error {
	name, err := NewName(user)
	if err != nil {
		return err
	}
	if name == (Name{}) {
		return fmt.Errorf("%w: empty user name", ErrInput)
	}
	if name == h.Owner {
		return fmt.Errorf("%w: %q is the owner", ErrAlreadyShared, user)
	}

	for i, slot := range h.SharedUsers {
		if slot == name {
			return fmt.Errorf("%w: %q", ErrAlreadyShared, user)
		}
		if slot.IsEmpty() {
			h.SharedUsers[i] = name
			return h.SignOwner(ownerKey)
		}
	}

	return fmt.Errorf("%w: %d users", ErrSharingListFull, MaxSharedUsers)
}

// ShareContainer reads a container from src, shares it with user and writes
// the new container to dst. The body is copied unchanged. Both header
// signatures are verified first, so only the owner can share.
func ShareContainer(dst io.Writer, src io.Reader, user string, authorityKey, ownerKey []byte) (*Header, error) {
	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}

	if err := h.VerifyAuthority(authorityKey); err != nil {
		return nil, err
	}
	if err := h.VerifyOwner(ownerKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOwner, err)
	}

	shared := h.Clone()
	if err := shared.Share(user, ownerKey); err != nil {
		return nil, err
	}

	header, err := shared.Marshal()
	if err != nil {
		return nil, err
	}
	if _, err := dst.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("failed to copy body: %w", err)
	}

	return shared, nil
}
