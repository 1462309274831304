package escrow

import (
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// OutOfOrderEntry is a key or transaction event that arrived before the
// prior event in its log, escrowed until that prior event shows up.
type OutOfOrderEntry struct {
	Prefix primitive.Identifier
	Sn     uint64
	Type   event.Type
	Raw    []byte
}

// PartiallySignedEntry is an establishment or interaction event that has
// not yet collected enough verified signatures to satisfy its threshold.
type PartiallySignedEntry struct {
	Prefix primitive.Identifier
	Sn     uint64
	Raw    []byte
	Sigs   []primitive.IndexedSignature
}

// PartiallyWitnessedEntry is an event accepted into the log but still short
// of its declared witness receipt threshold.
type PartiallyWitnessedEntry struct {
	Prefix primitive.Identifier
	Sn     uint64
	Digest primitive.Digest
}

// MissingDelegatorEntry is a dip/drt event awaiting the delegator's
// approving seal in one of the delegator's own ixn events.
type MissingDelegatorEntry struct {
	Prefix    primitive.Identifier
	Sn        uint64
	Delegator primitive.Identifier
	Raw       []byte
}

// DuplicitousEntry is a second, conflicting event seen at a sequence number
// that already has a recorded event -- recorded for operator review rather
// than silently applied or silently dropped.
type DuplicitousEntry struct {
	Prefix primitive.Identifier
	Sn     uint64
	Raw    []byte
}

// ReplyEntry is a rpy message that references a KEL/TEL position the local
// state hasn't reached yet.
type ReplyEntry struct {
	Route string
	Raw   []byte
}

// TelOutOfOrderEntry is a TEL event (vcp/vrt/iss/rev/bis/brv) that arrived
// before the prior event in its own registry or credential log.
type TelOutOfOrderEntry struct {
	Prefix primitive.Identifier
	Sn     uint64
	Type   event.Type
	Raw    []byte
}

// MissingRegistryEntry is an iss/rev/bis/brv naming a registry this store
// has not yet seen a vcp for.
type MissingRegistryEntry struct {
	RegistryID primitive.Identifier
	Raw        []byte
}

// MissingIssuerEntry is a backed TEL event (bis/brv) whose RegistrySeal
// cites a registry sn the registry's state has not yet reached.
type MissingIssuerEntry struct {
	ExpectedDigest primitive.Digest
	Raw            []byte
}

// Escrows bundles the named escrows the processor routes events and
// messages through when validation defers rather than accepts or rejects
// outright: the six core KEL/reply escrows, plus the three TEL-specific
// escrows (out-of-order, missing-registry and missing-issuer) described for
// the transaction event log.
type Escrows struct {
	OutOfOrder         *Escrow
	PartiallySigned    *Escrow
	PartiallyWitnessed *Escrow
	MissingDelegator   *Escrow
	Duplicitous        *Escrow
	Reply              *Escrow
	TelOutOfOrder      *Escrow
	MissingRegistry    *Escrow
	MissingIssuer      *Escrow
}

// NewEscrows builds every escrow, each aged out after ttl.
func NewEscrows(ttl time.Duration) *Escrows {
	return &Escrows{
		OutOfOrder:         New(ttl),
		PartiallySigned:    New(ttl),
		PartiallyWitnessed: New(ttl),
		MissingDelegator:   New(ttl),
		Duplicitous:        New(ttl),
		Reply:              New(ttl),
		TelOutOfOrder:      New(ttl),
		MissingRegistry:    New(ttl),
		MissingIssuer:      New(ttl),
	}
}

// Sweep runs a TTL eviction pass over every escrow and returns the total
// number of entries dropped, intended to be called from a cron.Cron tick.
func (e *Escrows) Sweep() int {
	return e.OutOfOrder.Sweep() +
		e.PartiallySigned.Sweep() +
		e.PartiallyWitnessed.Sweep() +
		e.MissingDelegator.Sweep() +
		e.Duplicitous.Sweep() +
		e.Reply.Sweep() +
		e.TelOutOfOrder.Sweep() +
		e.MissingRegistry.Sweep() +
		e.MissingIssuer.Sweep()
}

func prefixKey(prefix primitive.Identifier) string { return prefix.String() }
