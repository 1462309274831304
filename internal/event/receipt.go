package event

import "github.com/keri-id/controller/internal/primitive"

// Receipt is the rct message body: an attestation that the digest of the
// event at (Prefix, Sn) matches Digest. The actual attestation -- one or
// more witness couples or transferable quadruples -- travels as attachment
// groups alongside this body, not inside it.
type Receipt struct {
	Version VersionString        `json:"v"`
	Type    Type                 `json:"t"`
	Digest  primitive.Digest     `json:"d"`
	Prefix  primitive.Identifier `json:"i"`
	Sn      SerialNumber         `json:"s"`
}

// NewReceipt builds a rct body referencing the receipted event.
func NewReceipt(kind SerializationKind, prefix primitive.Identifier, sn uint64, digest primitive.Digest) (Receipt, []byte, error) {
	ev := Receipt{Type: Rct, Prefix: prefix, Sn: SerialNumber(sn), Digest: digest}
	final, err := FinalizeSize(
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Receipt{}, nil, err
	}
	return ev, final, nil
}
