package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Digest is a content fingerprint in algorithm:hex form.
type Digest struct {
	Algorithm string `json:"algorithm"`
	Hex       string `json:"hex"`
}

// ParseDigest parses "sha256:abcd…". Only sha256 is currently supported.
func ParseDigest(s string) (Digest, error) {
	algo, hexPart, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, fmt.Errorf("transfer: malformed digest %q", s)
	}
	if algo != "sha256" {
		return Digest{}, fmt.Errorf("transfer: unsupported digest algorithm %q", algo)
	}
	if len(hexPart) != sha256.Size*2 {
		return Digest{}, fmt.Errorf("transfer: digest %q has wrong length", s)
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return Digest{}, fmt.Errorf("transfer: digest %q is not hex: %w", s, err)
	}
	return Digest{Algorithm: algo, Hex: hexPart}, nil
}

// String returns the algorithm:hex form.
func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hex
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && d.Hex == ""
}

// Equal compares digests case-insensitively on the hex part.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && strings.EqualFold(d.Hex, other.Hex)
}

// digester wraps a running hash for the supported algorithm.
type digester struct {
	algorithm string
	h         hash.Hash
}

func newDigester() *digester {
	return &digester{algorithm: "sha256", h: sha256.New()}
}

func (d *digester) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

func (d *digester) Digest() Digest {
	return Digest{Algorithm: d.algorithm, Hex: hex.EncodeToString(d.h.Sum(nil))}
}
