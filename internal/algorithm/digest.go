// Package algorithm resolves the cipher and digest tokens stored in container
// snapshots and derives container keys.
package algorithm

import (
	"crypto"
	_ "crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"

	_ "golang.org/x/crypto/blake2b"

	"github.com/dtroode/keybox/internal/model"
)

// Digest is a digest algorithm token.
type Digest string

const (
	// DigestSHA256 is the preferred digest.
	DigestSHA256 Digest = "sha256"
	// DigestBLAKE2b256 is used when SHA-256 is not linked into the binary.
	DigestBLAKE2b256 Digest = "blake2b256"
)

// DigestPreference is the order DefaultDigest walks.
var DigestPreference = []Digest{DigestSHA256, DigestBLAKE2b256}

var digests = map[Digest]crypto.Hash{
	DigestSHA256:     crypto.SHA256,
	DigestBLAKE2b256: crypto.BLAKE2b_256,
}

var errUnknownDigest = errors.New("unknown digest algorithm")

// LookupDigest resolves token. Unknown or unavailable tokens are a
// configuration error.
func LookupDigest(token string) (Digest, error) {
	d := Digest(token)
	h, ok := digests[d]
	if !ok {
		return "", model.NewConfigurationError("digest algorithm", token, errUnknownDigest)
	}
	if !h.Available() {
		return "", model.NewConfigurationError("digest algorithm", token, errors.New("not linked into binary"))
	}
	return d, nil
}

// DefaultDigest returns the first available digest in DigestPreference.
func DefaultDigest() (Digest, error) {
	for _, d := range DigestPreference {
		if d.Available() {
			return d, nil
		}
	}
	return "", model.NewConfigurationError("digest algorithm", "", errors.New("no digest available"))
}

// Available reports whether the digest can be computed.
func (d Digest) Available() bool {
	h, ok := digests[d]
	return ok && h.Available()
}

// Size returns the digest output length in bytes.
func (d Digest) Size() int {
	return digests[d].Size()
}

// New returns a fresh hash.Hash for the digest.
func (d Digest) New() hash.Hash {
	return digests[d].New()
}

// Sum hashes the concatenation of parts.
func (d Digest) Sum(parts ...[]byte) []byte {
	h := d.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HexSum is Sum encoded as lowercase hex.
func (d Digest) HexSum(parts ...[]byte) string {
	return hex.EncodeToString(d.Sum(parts...))
}

func (d Digest) String() string {
	return string(d)
}
