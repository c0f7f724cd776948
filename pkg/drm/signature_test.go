package drm

import (
	"bytes"
	"errors"
	"testing"
)

func signedTestHeader(t *testing.T) *Header {
	t.Helper()
	h, err := NewHeader(Fields{
		SongID:           NewSongID(),
		Owner:            "misha",
		Regions:          []uint32{1, 2},
		Len250ms:         44100,
		NrSegments:       4,
		FirstSegmentSize: DefaultSegmentSize,
		SourcePrefix:     []byte("RIFF"),
	})
	if err != nil {
		t.Fatalf("NewHeader failed: %v", err)
	}
	if err := h.Sign(testAuthorityKey, testOwnerKey); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return h
}

func TestSignVerify(t *testing.T) {
	h := signedTestHeader(t)

	if err := h.VerifyAuthority(testAuthorityKey); err != nil {
		t.Errorf("authority signature should verify: %v", err)
	}
	if err := h.VerifyOwner(testOwnerKey); err != nil {
		t.Errorf("owner signature should verify: %v", err)
	}
	if err := h.VerifyOwner(testAuthorityKey); !errors.Is(err, ErrHeaderAuthentication) {
		t.Errorf("expected ErrHeaderAuthentication, got %v", err)
	}
}

func TestAuthoritySignatureCoversPrefix(t *testing.T) {
	h := signedTestHeader(t)
	h.NrSegments++

	if err := h.VerifyAuthority(testAuthorityKey); !errors.Is(err, ErrHeaderAuthentication) {
		t.Errorf("changing nr_segments should break the authority signature, got %v", err)
	}
}

func TestAuthoritySignatureExcludesSharing(t *testing.T) {
	h := signedTestHeader(t)
	h.SharedUsers[0], _ = NewName("alice")

	if err := h.VerifyAuthority(testAuthorityKey); err != nil {
		t.Errorf("the sharing list is not covered by the authority signature: %v", err)
	}
	if err := h.VerifyOwner(testOwnerKey); !errors.Is(err, ErrHeaderAuthentication) {
		t.Errorf("the sharing list is covered by the owner signature, got %v", err)
	}
}

func TestOwnerSignatureDependsOnAuthoritySignature(t *testing.T) {
	h := signedTestHeader(t)
	base, _ := OwnerSignature(h, testOwnerKey)

	for i := 0; i < SignatureSize; i++ {
		changed := h.Clone()
		changed.AuthoritySig[i] ^= 0x80

		sig, err := OwnerSignature(changed, testOwnerKey)
		if err != nil {
			t.Fatalf("OwnerSignature failed: %v", err)
		}
		if bytes.Equal(sig, base) {
			t.Fatalf("flipping authority signature byte %d did not change the owner signature", i)
		}
	}
}

func TestSignatureMissingKey(t *testing.T) {
	h := signedTestHeader(t)

	if _, err := AuthoritySignature(h, nil); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if _, err := OwnerSignature(h, []byte{}); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if err := h.Sign(testAuthorityKey, nil); !errors.Is(err, ErrLookup) {
		t.Errorf("expected a lookup error, got %v", err)
	}
}
