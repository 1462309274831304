package event

import "github.com/keri-id/controller/internal/primitive"

// Inception is the icp (or dip, when Delegator is set) event that
// establishes an identifier's initial key state.
type Inception struct {
	Version          VersionString          `json:"v"`
	Type             Type                   `json:"t"`
	Digest           primitive.Digest       `json:"d"`
	Prefix           primitive.Identifier   `json:"i"`
	Sn               SerialNumber           `json:"s"`
	KeyThreshold     primitive.Threshold    `json:"kt"`
	Keys             []primitive.Identifier `json:"k"`
	NextThreshold    primitive.Threshold    `json:"nt"`
	NextKeyDigests   []primitive.Digest     `json:"n"`
	WitnessThreshold SerialNumber           `json:"bt"`
	Witnesses        []primitive.Identifier `json:"b"`
	Config           []string               `json:"c"`
	Anchors          []primitive.Seal       `json:"a"`
	Delegator        *primitive.Identifier  `json:"di,omitempty"`
}

// NewInception builds an icp/dip event with a derived self-addressing
// prefix: the prefix and digest are the same value, computed over the
// event with the prefix field itself held as a same-length sentinel.
func NewInception(algo primitive.DigestAlgorithm, kind SerializationKind, ev Inception) (Inception, []byte, error) {
	ev.Type = Icp
	if ev.Delegator != nil {
		ev.Type = Dip
	}
	ev.Sn = 0
	ev.Prefix = primitive.Identifier{Kind: primitive.SelfAddressing, Digest: primitive.Digest{Algorithm: algo, Bytes: make([]byte, primitive.RawSize(algo))}}

	final, digest, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) {
			ev.Digest = d
			ev.Prefix = primitive.NewSelfAddressingIdentifier(d)
		},
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Inception{}, nil, err
	}
	_ = digest
	return ev, final, nil
}

// NewDelegatedInception builds a dip event whose prefix is self-addressing
// but whose key state is anchored by a delegator's subsequent ixn seal.
func NewDelegatedInception(algo primitive.DigestAlgorithm, kind SerializationKind, delegator primitive.Identifier, ev Inception) (Inception, []byte, error) {
	ev.Delegator = &delegator
	return NewInception(algo, kind, ev)
}
