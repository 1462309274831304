package event

import "github.com/keri-id/controller/internal/primitive"

// Rotation is the rot (or drt) event that establishes a new key state,
// pruning and grafting witnesses and binding to the prior event's digest.
type Rotation struct {
	Version          VersionString          `json:"v"`
	Type             Type                   `json:"t"`
	Digest           primitive.Digest       `json:"d"`
	Prefix           primitive.Identifier   `json:"i"`
	Sn               SerialNumber           `json:"s"`
	PriorDigest      primitive.Digest       `json:"p"`
	KeyThreshold     primitive.Threshold    `json:"kt"`
	Keys             []primitive.Identifier `json:"k"`
	NextThreshold    primitive.Threshold    `json:"nt"`
	NextKeyDigests   []primitive.Digest     `json:"n"`
	WitnessThreshold SerialNumber           `json:"bt"`
	WitnessesPruned  []primitive.Identifier `json:"br"`
	WitnessesGrafted []primitive.Identifier `json:"ba"`
	Anchors          []primitive.Seal       `json:"a"`
}

// NewRotation builds a rot event following prior at sequence number sn.
func NewRotation(algo primitive.DigestAlgorithm, kind SerializationKind, ev Rotation) (Rotation, []byte, error) {
	ev.Type = Rot
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Rotation{}, nil, err
	}
	return ev, final, nil
}

// NewDelegatedRotation builds a drt event; delegated rotations carry the
// same body shape as rot, with the delegator's approving seal arriving out
// of band via the delegator's own ixn anchoring this event's digest.
func NewDelegatedRotation(algo primitive.DigestAlgorithm, kind SerializationKind, ev Rotation) (Rotation, []byte, error) {
	ev.Type = Drt
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Rotation{}, nil, err
	}
	return ev, final, nil
}
