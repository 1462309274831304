package primitive

import (
	"encoding/base64"
	"fmt"
)

// IdentifierKind tags the two prefix derivations an Identifier can carry.
type IdentifierKind int

const (
	// Basic identifiers are a public key plus a transferability flag.
	Basic IdentifierKind = iota
	// SelfAddressing identifiers are the digest of their own inception event.
	SelfAddressing
)

// KeyAlgorithm names the signing-key scheme behind a Basic identifier.
type KeyAlgorithm string

const (
	Ed25519       KeyAlgorithm = "Ed25519"
	Ed25519NT     KeyAlgorithm = "Ed25519NT"
	ECDSAsecp256k1   KeyAlgorithm = "ECDSAsecp256k1"
	ECDSAsecp256k1NT KeyAlgorithm = "ECDSAsecp256k1NT"
	Ed448         KeyAlgorithm = "Ed448"
	Ed448NT       KeyAlgorithm = "Ed448NT"
)

var basicCode = map[KeyAlgorithm]string{
	Ed25519NT:        "B",
	Ed25519:          "D",
	ECDSAsecp256k1NT: "1AAA",
	ECDSAsecp256k1:   "1AAB",
	Ed448NT:          "1AAC",
	Ed448:            "1AAD",
}

var codeBasic = func() map[string]KeyAlgorithm {
	m := make(map[string]KeyAlgorithm, len(basicCode))
	for a, c := range basicCode {
		m[c] = a
	}
	return m
}()

// IsTransferable reports whether keys under algo may be rotated away from;
// non-transferable keys are always the current signing key (used for
// witness identifiers).
func (a KeyAlgorithm) IsTransferable() bool {
	switch a {
	case Ed25519NT, ECDSAsecp256k1NT, Ed448NT:
		return false
	default:
		return true
	}
}

// Identifier is a self-certifying identifier prefix: either a public key
// (Basic) or the digest of an inception event (SelfAddressing).
type Identifier struct {
	Kind      IdentifierKind
	Algorithm KeyAlgorithm // set when Kind == Basic
	PubKey    []byte       // set when Kind == Basic
	Digest    Digest       // set when Kind == SelfAddressing
}

// NewBasicIdentifier builds a Basic identifier prefix from a public key.
func NewBasicIdentifier(algo KeyAlgorithm, pub []byte) Identifier {
	return Identifier{Kind: Basic, Algorithm: algo, PubKey: pub}
}

// NewSelfAddressingIdentifier builds a self-addressing identifier prefix
// from the inception event's digest.
func NewSelfAddressingIdentifier(d Digest) Identifier {
	return Identifier{Kind: SelfAddressing, Digest: d}
}

// IsTransferable reports whether this identifier's controlling key may be
// rotated.
func (id Identifier) IsTransferable() bool {
	if id.Kind == Basic {
		return id.Algorithm.IsTransferable()
	}
	return true
}

// Text renders the identifier as its typed text frame.
func (id Identifier) Text() (string, error) {
	switch id.Kind {
	case Basic:
		code, ok := basicCode[id.Algorithm]
		if !ok {
			return "", fmt.Errorf("primitive: unknown key algorithm %q", id.Algorithm)
		}
		return code + base64.RawURLEncoding.EncodeToString(id.PubKey), nil
	case SelfAddressing:
		return id.Digest.Text()
	default:
		return "", fmt.Errorf("primitive: unknown identifier kind %d", id.Kind)
	}
}

// ParseIdentifier decodes a typed text frame into an Identifier.
func ParseIdentifier(s string) (Identifier, error) {
	// Try digest codes (self-addressing) first, then basic-prefix codes.
	if d, n, err := ParseDigest(s); err == nil && n == len(s) {
		return NewSelfAddressingIdentifier(d), nil
	}
	for _, codeLen := range []int{1, 4} {
		if len(s) < codeLen {
			continue
		}
		code := s[:codeLen]
		algo, ok := codeBasic[code]
		if !ok {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(s[codeLen:])
		if err != nil {
			return Identifier{}, fmt.Errorf("primitive: bad identifier payload: %w", err)
		}
		return NewBasicIdentifier(algo, raw), nil
	}
	return Identifier{}, fmt.Errorf("primitive: unrecognized identifier text %q", s)
}

// Equal compares two identifiers for structural equality.
func (id Identifier) Equal(o Identifier) bool {
	t1, err1 := id.Text()
	t2, err2 := o.Text()
	if err1 != nil || err2 != nil {
		return false
	}
	return t1 == t2
}

func (id Identifier) String() string {
	t, err := id.Text()
	if err != nil {
		return fmt.Sprintf("<invalid identifier: %v>", err)
	}
	return t
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	t, err := id.Text()
	if err != nil {
		return nil, err
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
