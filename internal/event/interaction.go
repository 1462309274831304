package event

import "github.com/keri-id/controller/internal/primitive"

// Interaction is the ixn event that anchors seals into the key event log
// without changing key state.
type Interaction struct {
	Version     VersionString        `json:"v"`
	Type        Type                 `json:"t"`
	Digest      primitive.Digest     `json:"d"`
	Prefix      primitive.Identifier `json:"i"`
	Sn          SerialNumber         `json:"s"`
	PriorDigest primitive.Digest     `json:"p"`
	Anchors     []primitive.Seal     `json:"a"`
}

// NewInteraction builds an ixn event anchoring seals after prior.
func NewInteraction(algo primitive.DigestAlgorithm, kind SerializationKind, ev Interaction) (Interaction, []byte, error) {
	ev.Type = Ixn
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Interaction{}, nil, err
	}
	return ev, final, nil
}
