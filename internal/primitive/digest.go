// Package primitive implements the typed wire primitives of the protocol:
// identifiers, digests, signatures, indexed signatures, seals, serial
// numbers, timestamps, and material paths. Encoding is a compact textual
// frame of code∥payload-b64url; decoding is a greedy left-to-right parse of
// (code, slice) pairs.
package primitive

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// DigestAlgorithm identifies a supported hash function.
type DigestAlgorithm string

const (
	Blake3_256 DigestAlgorithm = "Blake3_256"
	Blake3_512 DigestAlgorithm = "Blake3_512"
	Blake2b256 DigestAlgorithm = "Blake2b_256"
	Blake2b512 DigestAlgorithm = "Blake2b_512"
	Blake2s256 DigestAlgorithm = "Blake2s_256"
	SHA2_256   DigestAlgorithm = "SHA2_256"
	SHA2_512   DigestAlgorithm = "SHA2_512"
	SHA3_256   DigestAlgorithm = "SHA3_256"
	SHA3_512   DigestAlgorithm = "SHA3_512"
)

// digestCode is the CESR-style hard code for a self-addressing digest.
var digestCode = map[DigestAlgorithm]string{
	Blake3_256: "E",
	Blake2b256: "F",
	Blake2s256: "G",
	SHA2_256:   "I",
	SHA3_256:   "H",
	Blake3_512: "0D",
	Blake2b512: "0E",
	SHA2_512:   "0F",
	SHA3_512:   "0G",
}

var codeDigest = func() map[string]DigestAlgorithm {
	m := make(map[string]DigestAlgorithm, len(digestCode))
	for a, c := range digestCode {
		m[c] = a
	}
	return m
}()

var digestSize = map[DigestAlgorithm]int{
	Blake3_256: 32,
	Blake2b256: 32,
	Blake2s256: 32,
	SHA2_256:   32,
	SHA3_256:   32,
	Blake3_512: 64,
	Blake2b512: 64,
	SHA2_512:   64,
	SHA3_512:   64,
}

// Digest is a tagged hash value carrying its raw bytes.
type Digest struct {
	Algorithm DigestAlgorithm
	Bytes     []byte
}

// Sum computes the digest of data under algo.
func Sum(algo DigestAlgorithm, data []byte) (Digest, error) {
	var sum []byte
	switch algo {
	case Blake3_256:
		h := blake3.Sum256(data)
		sum = h[:]
	case Blake3_512:
		h := blake3.Sum512(data)
		sum = h[:]
	case Blake2b256:
		h := blake2b.Sum256(data)
		sum = h[:]
	case Blake2b512:
		h := blake2b.Sum512(data)
		sum = h[:]
	case Blake2s256:
		h := blake2s.Sum256(data)
		sum = h[:]
	case SHA2_256:
		h := sha256.Sum256(data)
		sum = h[:]
	case SHA2_512:
		h := sha512.Sum512(data)
		sum = h[:]
	case SHA3_256:
		h := sha3.Sum256(data)
		sum = h[:]
	case SHA3_512:
		h := sha3.Sum512(data)
		sum = h[:]
	default:
		return Digest{}, fmt.Errorf("primitive: unsupported digest algorithm %q", algo)
	}
	return Digest{Algorithm: algo, Bytes: sum}, nil
}

// VerifyBinding reports whether hash(data) == d's payload.
func (d Digest) VerifyBinding(data []byte) bool {
	got, err := Sum(d.Algorithm, data)
	if err != nil || len(got.Bytes) != len(d.Bytes) {
		return false
	}
	for i := range d.Bytes {
		if got.Bytes[i] != d.Bytes[i] {
			return false
		}
	}
	return true
}

// Size returns the encoded value size (b64url chars) for algo, used by the
// dummy-hash protocol to size the sentinel run before the real digest is
// known.
func Size(algo DigestAlgorithm) int {
	code, ok := digestCode[algo]
	if !ok {
		return 0
	}
	n := digestSize[algo]
	return len(code) + b64Len(n)
}

func b64Len(n int) int {
	return (4*n + 2) / 3
}

// RawSize returns the raw hash output size in bytes for algo, used to build
// a same-length sentinel digest before the real one is known.
func RawSize(algo DigestAlgorithm) int {
	return digestSize[algo]
}

// Text renders the digest as code∥base64url(payload).
func (d Digest) Text() (string, error) {
	code, ok := digestCode[d.Algorithm]
	if !ok {
		return "", fmt.Errorf("primitive: unknown digest algorithm %q", d.Algorithm)
	}
	return code + base64.RawURLEncoding.EncodeToString(d.Bytes), nil
}

// ParseDigest decodes a code∥payload text frame into a Digest and returns
// the number of bytes of s consumed.
func ParseDigest(s string) (Digest, int, error) {
	for _, codeLen := range []int{1, 2} {
		if len(s) < codeLen {
			continue
		}
		code := s[:codeLen]
		algo, ok := codeDigest[code]
		if !ok {
			continue
		}
		n := digestSize[algo]
		valLen := b64Len(n)
		if len(s) < codeLen+valLen {
			return Digest{}, 0, fmt.Errorf("primitive: short digest frame for code %q", code)
		}
		raw, err := base64.RawURLEncoding.DecodeString(s[codeLen : codeLen+valLen])
		if err != nil {
			return Digest{}, 0, fmt.Errorf("primitive: bad digest payload: %w", err)
		}
		return Digest{Algorithm: algo, Bytes: raw}, codeLen + valLen, nil
	}
	return Digest{}, 0, fmt.Errorf("primitive: unrecognized digest code in %q", s)
}

// Equal reports whether two digests carry the same algorithm and bytes.
func (d Digest) Equal(o Digest) bool {
	if d.Algorithm != o.Algorithm || len(d.Bytes) != len(o.Bytes) {
		return false
	}
	for i := range d.Bytes {
		if d.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

func (d Digest) IsZero() bool { return len(d.Bytes) == 0 }

// MarshalText implements encoding.TextMarshaler so a Digest serializes as
// its typed text frame in JSON, CBOR and msgpack alike.
func (d Digest) MarshalText() ([]byte, error) {
	t, err := d.Text()
	if err != nil {
		return nil, err
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, n, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	if n != len(text) {
		return fmt.Errorf("primitive: trailing bytes after digest frame %q", text)
	}
	*d = parsed
	return nil
}
