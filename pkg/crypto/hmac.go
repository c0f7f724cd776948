package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
)

// SignatureSize is the size of an HMAC-SHA512 signature in bytes.
const SignatureSize = sha512.Size

// HMACSHA512 computes HMAC-SHA512 over the concatenation of parts.
func HMACSHA512(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha512.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// VerifyHMACSHA512 recomputes the signature over parts and compares it with sig
// in constant time.
func VerifyHMACSHA512(key, sig []byte, parts ...[]byte) bool {
	return hmac.Equal(HMACSHA512(key, parts...), sig)
}
