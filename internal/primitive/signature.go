package primitive

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureAlgorithm names a self-signing derivation: Sign(data) -> Signature.
type SignatureAlgorithm string

const (
	SigEd25519Sha512        SignatureAlgorithm = "Ed25519Sha512"
	SigECDSAsecp256k1Sha256 SignatureAlgorithm = "ECDSAsecp256k1Sha256"
	SigEd448                SignatureAlgorithm = "Ed448"
)

var sigCode = map[SignatureAlgorithm]string{
	SigEd25519Sha512:        "0B",
	SigECDSAsecp256k1Sha256: "0C",
	SigEd448:                "1AAE",
}

var codeSig = func() map[string]SignatureAlgorithm {
	m := make(map[string]SignatureAlgorithm, len(sigCode))
	for a, c := range sigCode {
		m[c] = a
	}
	return m
}()

// ErrUnsupportedAlgorithm is returned by signature operations that have no
// verifiable implementation in this build (see Ed448 in DESIGN.md).
var ErrUnsupportedAlgorithm = errors.New("primitive: unsupported signature algorithm in this build")

// Signature is a tagged signature value.
type Signature struct {
	Algorithm SignatureAlgorithm
	Bytes     []byte
}

// Sign produces a Signature over data using priv under algo.
func Sign(algo SignatureAlgorithm, priv []byte, data []byte) (Signature, error) {
	switch algo {
	case SigEd25519Sha512:
		if len(priv) != ed25519.PrivateKeySize {
			return Signature{}, fmt.Errorf("primitive: bad ed25519 private key size %d", len(priv))
		}
		sig := ed25519.Sign(ed25519.PrivateKey(priv), data)
		return Signature{Algorithm: algo, Bytes: sig}, nil
	case SigECDSAsecp256k1Sha256:
		h := sha256.Sum256(data)
		key := secp256k1.PrivKeyFromBytes(priv)
		sig, err := ethSignCompact(key, h[:])
		if err != nil {
			return Signature{}, err
		}
		return Signature{Algorithm: algo, Bytes: sig}, nil
	case SigEd448:
		return Signature{}, ErrUnsupportedAlgorithm
	default:
		return Signature{}, fmt.Errorf("primitive: unknown signature algorithm %q", algo)
	}
}

// ethSignCompact signs digest with key and returns go-ethereum's
// [R || S || V] compact recoverable signature, the same wrapper the teacher
// uses in pkg/anchor and pkg/verification for secp256k1.
func ethSignCompact(key *secp256k1.PrivateKey, digest []byte) ([]byte, error) {
	return ethcrypto.Sign(digest, key.ToECDSA())
}

// Verify checks sig over data against pub.
func Verify(algo SignatureAlgorithm, pub []byte, data []byte, sig Signature) (bool, error) {
	if sig.Algorithm != algo {
		return false, fmt.Errorf("primitive: signature algorithm mismatch: want %q got %q", algo, sig.Algorithm)
	}
	switch algo {
	case SigEd25519Sha512:
		if len(pub) != ed25519.PublicKeySize {
			return false, fmt.Errorf("primitive: bad ed25519 public key size %d", len(pub))
		}
		return ed25519.Verify(ed25519.PublicKey(pub), data, sig.Bytes), nil
	case SigECDSAsecp256k1Sha256:
		h := sha256.Sum256(data)
		pubKey, err := secp256k1.ParsePubKey(pub)
		if err != nil {
			return false, fmt.Errorf("primitive: bad secp256k1 public key: %w", err)
		}
		uncompressed := ethcrypto.FromECDSAPub(pubKey.ToECDSA())
		if len(sig.Bytes) == 65 {
			// go-ethereum's recoverable [R||S||V] compact form.
			return ethcrypto.VerifySignature(uncompressed, h[:], sig.Bytes[:64]), nil
		}
		parsed, err := ecdsa.ParseDERSignature(sig.Bytes)
		if err != nil {
			return false, err
		}
		return parsed.Verify(h[:], pubKey), nil
	case SigEd448:
		return false, ErrUnsupportedAlgorithm
	default:
		return false, fmt.Errorf("primitive: unknown signature algorithm %q", algo)
	}
}

// Text renders the signature as code∥base64url(payload).
func (s Signature) Text() (string, error) {
	code, ok := sigCode[s.Algorithm]
	if !ok {
		return "", fmt.Errorf("primitive: unknown signature algorithm %q", s.Algorithm)
	}
	return code + base64.RawURLEncoding.EncodeToString(s.Bytes), nil
}

// ParseSignature decodes a code∥payload signature frame.
func ParseSignature(s string) (Signature, int, error) {
	for _, codeLen := range []int{2, 4} {
		if len(s) < codeLen {
			continue
		}
		code := s[:codeLen]
		algo, ok := codeSig[code]
		if !ok {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(s[codeLen:])
		if err != nil {
			return Signature{}, 0, fmt.Errorf("primitive: bad signature payload: %w", err)
		}
		return Signature{Algorithm: algo, Bytes: raw}, len(s), nil
	}
	return Signature{}, 0, fmt.Errorf("primitive: unrecognized signature code in %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	t, err := s.Text()
	if err != nil {
		return nil, err
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	parsed, _, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
