package primitive

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SealKind tags the four seal variants that can appear inside an anchor or
// a source-seal attachment.
type SealKind int

const (
	SealDigest SealKind = iota
	SealEvent
	SealLocation
	SealRoot
)

// Seal is a reference anchored into an event: a bare digest, a specific
// (identifier, sn, digest) event, a (identifier, sn, ilk, prior-digest)
// location, or a Merkle tree root.
type Seal struct {
	Kind     SealKind
	Digest   Digest     // SealDigest, SealRoot
	Prefix   Identifier // SealEvent, SealLocation
	Sn       uint64     // SealEvent, SealLocation
	Ilk      string     // SealLocation
	PriorDig Digest     // SealLocation
}

// DigestSeal builds a bare-digest seal.
func DigestSeal(d Digest) Seal { return Seal{Kind: SealDigest, Digest: d} }

// RootSeal builds a Merkle-tree-root seal.
func RootSeal(d Digest) Seal { return Seal{Kind: SealRoot, Digest: d} }

// EventSealOf builds an event seal (id, sn, digest).
func EventSealOf(id Identifier, sn uint64, d Digest) Seal {
	return Seal{Kind: SealEvent, Prefix: id, Sn: sn, Digest: d}
}

// LocationSealOf builds a location seal (id, sn, ilk, prior digest).
func LocationSealOf(id Identifier, sn uint64, ilk string, prior Digest) Seal {
	return Seal{Kind: SealLocation, Prefix: id, Sn: sn, Ilk: ilk, PriorDig: prior}
}

// EventSeal is the common (identifier, sn, digest) triple used to pin an
// establishment event, e.g. a signer's last establishment event, or a
// delegated event being anchored by its delegator.
type EventSeal struct {
	Prefix Identifier
	Sn     uint64
	Digest Digest
}

// SourceSeal attaches a TEL event to the KEL `ixn` event that anchors it.
type SourceSeal struct {
	Sn     uint64
	Digest Digest
}

type sealWire struct {
	Digest     string `json:"d,omitempty"`
	RootDigest string `json:"rd,omitempty"`
	Prefix     string `json:"i,omitempty"`
	Sn         string `json:"s,omitempty"`
	Ilk        string `json:"t,omitempty"`
	Prior      string `json:"p,omitempty"`
}

// MarshalJSON renders a Seal as the field subset its Kind carries: a bare
// digest seal as {"d"}, a root seal as {"rd"}, an event seal as
// {"i","s","d"}, a location seal as {"i","s","t","p"}.
func (s Seal) MarshalJSON() ([]byte, error) {
	var w sealWire
	switch s.Kind {
	case SealDigest:
		t, err := s.Digest.Text()
		if err != nil {
			return nil, err
		}
		w.Digest = t
	case SealRoot:
		t, err := s.Digest.Text()
		if err != nil {
			return nil, err
		}
		w.RootDigest = t
	case SealEvent:
		pt, err := s.Prefix.Text()
		if err != nil {
			return nil, err
		}
		dt, err := s.Digest.Text()
		if err != nil {
			return nil, err
		}
		w.Prefix, w.Sn, w.Digest = pt, strconv.FormatUint(s.Sn, 16), dt
	case SealLocation:
		pt, err := s.Prefix.Text()
		if err != nil {
			return nil, err
		}
		pr, err := s.PriorDig.Text()
		if err != nil {
			return nil, err
		}
		w.Prefix, w.Sn, w.Ilk, w.Prior = pt, strconv.FormatUint(s.Sn, 16), s.Ilk, pr
	default:
		return nil, fmt.Errorf("primitive: unknown seal kind %d", s.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON infers the seal's Kind from which fields are present.
func (s *Seal) UnmarshalJSON(data []byte) error {
	var w sealWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("primitive: bad seal: %w", err)
	}
	switch {
	case w.RootDigest != "":
		d, _, err := ParseDigest(w.RootDigest)
		if err != nil {
			return err
		}
		*s = RootSeal(d)
	case w.Prefix != "" && w.Ilk != "":
		id, err := ParseIdentifier(w.Prefix)
		if err != nil {
			return err
		}
		sn, err := strconv.ParseUint(w.Sn, 16, 64)
		if err != nil {
			return fmt.Errorf("primitive: bad seal sn %q: %w", w.Sn, err)
		}
		prior, _, err := ParseDigest(w.Prior)
		if err != nil {
			return err
		}
		*s = LocationSealOf(id, sn, w.Ilk, prior)
	case w.Prefix != "":
		id, err := ParseIdentifier(w.Prefix)
		if err != nil {
			return err
		}
		sn, err := strconv.ParseUint(w.Sn, 16, 64)
		if err != nil {
			return fmt.Errorf("primitive: bad seal sn %q: %w", w.Sn, err)
		}
		d, _, err := ParseDigest(w.Digest)
		if err != nil {
			return err
		}
		*s = EventSealOf(id, sn, d)
	case w.Digest != "":
		d, _, err := ParseDigest(w.Digest)
		if err != nil {
			return err
		}
		*s = DigestSeal(d)
	default:
		return fmt.Errorf("primitive: empty or unrecognized seal object")
	}
	return nil
}

// MarshalJSON renders an EventSeal as {"i","s","d"}.
func (es EventSeal) MarshalJSON() ([]byte, error) {
	return EventSealOf(es.Prefix, es.Sn, es.Digest).MarshalJSON()
}

// UnmarshalJSON parses an EventSeal from {"i","s","d"}.
func (es *EventSeal) UnmarshalJSON(data []byte) error {
	var seal Seal
	if err := json.Unmarshal(data, &seal); err != nil {
		return err
	}
	es.Prefix, es.Sn, es.Digest = seal.Prefix, seal.Sn, seal.Digest
	return nil
}
