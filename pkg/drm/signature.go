package drm

import (
	"fmt"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
)

// signedBytes returns the encoded header up to end.
func signedBytes(h *Header, end int) ([]byte, error) {
	data, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return data[:end], nil
}

// AuthoritySignature computes the content-authority signature over every header
// field that precedes it.
func AuthoritySignature(h *Header, authorityKey []byte) ([]byte, error) {
	if len(authorityKey) == 0 {
		return nil, fmt.Errorf("%w: authority key", ErrMissingKey)
	}

	data, err := signedBytes(h, offsetAuthoritySig)
	if err != nil {
		return nil, err
	}
	return crypto.HMACSHA512(authorityKey, data), nil
}

// OwnerSignature computes the owner signature over the authority-signed fields,
// the authority signature and the sharing list.
func OwnerSignature(h *Header, ownerKey []byte) ([]byte, error) {
	if len(ownerKey) == 0 {
		return nil, fmt.Errorf("%w: owner key", ErrMissingKey)
	}

	data, err := signedBytes(h, offsetOwnerSig)
	if err != nil {
		return nil, err
	}
	return crypto.HMACSHA512(ownerKey, data), nil
}

// Sign fills in both header signatures. The authority signature goes first
// because the owner signature covers it.
func (h *Header) Sign(authorityKey, ownerKey []byte) error {
	sig, err := AuthoritySignature(h, authorityKey)
	if err != nil {
		return err
	}
	copy(h.AuthoritySig[:], sig)

	return h.SignOwner(ownerKey)
}

// SignOwner recomputes only the owner signature.
func (h *Header) SignOwner(ownerKey []byte) error {
	sig, err := OwnerSignature(h, ownerKey)
	if err != nil {
		return err
	}
	copy(h.OwnerSig[:], sig)
	return nil
}

// VerifyAuthority checks the content-authority signature.
func (h *Header) VerifyAuthority(authorityKey []byte) error {
	return verifySignature(h, authorityKey, h.AuthoritySig[:], offsetAuthoritySig, "authority")
}

// VerifyOwner checks the owner signature.
func (h *Header) VerifyOwner(ownerKey []byte) error {
	return verifySignature(h, ownerKey, h.OwnerSig[:], offsetOwnerSig, "owner")
}

func verifySignature(h *Header, key, sig []byte, end int, which string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: %s key", ErrMissingKey, which)
	}

	data, err := signedBytes(h, end)
	if err != nil {
		return err
	}

	if !crypto.VerifyHMACSHA512(key, sig, data) {
		return fmt.Errorf("%w: %s signature", ErrHeaderAuthentication, which)
	}
	return nil
}
