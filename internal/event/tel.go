package event

import (
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

// RegistryInception is the vcp event that establishes a credential
// registry's transaction event log, anchored into its issuer's KEL via a
// SourceSeal carried in an ixn's anchors.
type RegistryInception struct {
	Version          VersionString        `json:"v"`
	Type             Type                 `json:"t"`
	Digest           primitive.Digest     `json:"d"`
	Prefix           primitive.Identifier `json:"i"`
	IssuerPrefix     primitive.Identifier `json:"ii"`
	Sn               SerialNumber         `json:"s"`
	Config           []string             `json:"c"`
	WitnessThreshold SerialNumber         `json:"bt"`
	Backers          []primitive.Identifier `json:"b"`
}

// NewRegistryInception builds a vcp event for issuer, self-addressed.
func NewRegistryInception(algo primitive.DigestAlgorithm, kind SerializationKind, ev RegistryInception) (RegistryInception, []byte, error) {
	ev.Type = Vcp
	ev.Sn = 0
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) {
			ev.Digest = d
			ev.Prefix = primitive.NewSelfAddressingIdentifier(d)
		},
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return RegistryInception{}, nil, err
	}
	return ev, final, nil
}

// RegistryRotation is the vrt event that prunes and grafts a registry's
// backer set.
type RegistryRotation struct {
	Version          VersionString          `json:"v"`
	Type             Type                   `json:"t"`
	Digest           primitive.Digest       `json:"d"`
	Prefix           primitive.Identifier   `json:"i"`
	PriorDigest      primitive.Digest       `json:"p"`
	Sn               SerialNumber           `json:"s"`
	WitnessThreshold SerialNumber           `json:"bt"`
	BackersPruned    []primitive.Identifier `json:"br"`
	BackersGrafted   []primitive.Identifier `json:"ba"`
}

// NewRegistryRotation builds a vrt event for a registry.
func NewRegistryRotation(algo primitive.DigestAlgorithm, kind SerializationKind, ev RegistryRotation) (RegistryRotation, []byte, error) {
	ev.Type = Vrt
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return RegistryRotation{}, nil, err
	}
	return ev, final, nil
}

// Issuance is the iss event (un-backed) or bis event (backed, carrying a
// RegistrySeal pinning the registry's TEL state at issuance time).
type Issuance struct {
	Version      VersionString        `json:"v"`
	Type         Type                 `json:"t"`
	Digest       primitive.Digest     `json:"d"`
	Prefix       primitive.Identifier `json:"i"` // credential SAID
	Sn           SerialNumber         `json:"s"`
	RegistryID   primitive.Identifier `json:"ri"`
	Timestamp    string               `json:"dt"`
	RegistrySeal *primitive.Seal      `json:"ra,omitempty"`
}

// NewIssuance builds an iss (Backed=false) or bis (Backed=true) event for
// the credential identified by credentialSAID.
func NewIssuance(algo primitive.DigestAlgorithm, kind SerializationKind, credentialSAID, registryID primitive.Identifier, t time.Time, backed bool, registrySeal *primitive.Seal) (Issuance, []byte, error) {
	ev := Issuance{
		Prefix:     credentialSAID,
		RegistryID: registryID,
		Timestamp:  t.UTC().Format("2006-01-02T15:04:05.000000-00:00"),
	}
	if backed {
		ev.Type = Bis
		ev.RegistrySeal = registrySeal
	} else {
		ev.Type = Iss
	}
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Issuance{}, nil, err
	}
	return ev, final, nil
}

// Revocation is the rev (un-backed) or brv (backed) event retiring a
// previously issued credential.
type Revocation struct {
	Version      VersionString        `json:"v"`
	Type         Type                 `json:"t"`
	Digest       primitive.Digest     `json:"d"`
	Prefix       primitive.Identifier `json:"i"`
	Sn           SerialNumber         `json:"s"`
	PriorDigest  primitive.Digest     `json:"p"`
	RegistryID   primitive.Identifier `json:"ri"`
	Timestamp    string               `json:"dt"`
	RegistrySeal *primitive.Seal      `json:"ra,omitempty"`
}

// NewRevocation builds a rev (Backed=false) or brv (Backed=true) event
// retiring the credential at priorDigest.
func NewRevocation(algo primitive.DigestAlgorithm, kind SerializationKind, credentialSAID, registryID primitive.Identifier, priorDigest primitive.Digest, t time.Time, backed bool, registrySeal *primitive.Seal) (Revocation, []byte, error) {
	ev := Revocation{
		Prefix:      credentialSAID,
		RegistryID:  registryID,
		PriorDigest: priorDigest,
		Timestamp:   t.UTC().Format("2006-01-02T15:04:05.000000-00:00"),
	}
	if backed {
		ev.Type = Brv
		ev.RegistrySeal = registrySeal
	} else {
		ev.Type = Rev
	}
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Revocation{}, nil, err
	}
	return ev, final, nil
}
