// Package tel implements the transaction event log reducer: the pure state
// transitions a credential registry and the credentials issued against it
// go through as vcp/vrt/iss/rev/bis/brv events are applied, mirroring
// internal/state's KEL reducer for the same chain-integrity invariants.
package tel

import (
	"errors"
	"fmt"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// Sentinel errors a TEL state transition can fail with.
var (
	ErrOutOfOrder         = errors.New("tel: event sequence number does not follow the current state")
	ErrBrokenChain        = errors.New("tel: event's prior digest does not match the current state's last digest")
	ErrNoRegistry         = errors.New("tel: registry has not been incepted")
	ErrAlreadyIncepted    = errors.New("tel: registry already has an inception event")
	ErrAlreadyIssued      = errors.New("tel: credential is already issued")
	ErrNotIssued          = errors.New("tel: credential has not been issued")
	ErrAlreadyRevoked     = errors.New("tel: credential is already revoked")
	ErrBackingMismatch    = errors.New("tel: iss/rev and bis/brv events cannot mix for the same credential")
	ErrMissingSourceSeal  = errors.New("tel: backed event carries no registry seal pinning the anchoring registry state")
)

// RegistryState is the state of a credential registry's own TEL: its
// backer (witness) pool and chain position, independent of any credential
// issued against it.
type RegistryState struct {
	Prefix           primitive.Identifier
	IssuerPrefix     primitive.Identifier
	Sn               uint64
	LastDigest       primitive.Digest
	WitnessThreshold uint64
	Backers          []primitive.Identifier
	Backed           bool // carried over by a vrt; no event applied in this package sets it
}

// IsZero reports whether s is the empty state of a registry with no vcp
// applied yet.
func (s RegistryState) IsZero() bool { return s.Sn == 0 && s.LastDigest.IsZero() }

// ApplyRegistryInception computes the state after a vcp event. s must be
// the zero state.
func ApplyRegistryInception(s RegistryState, ev event.RegistryInception) (RegistryState, error) {
	if !s.IsZero() {
		return s, ErrAlreadyIncepted
	}
	return RegistryState{
		Prefix:           ev.Prefix,
		IssuerPrefix:     ev.IssuerPrefix,
		Sn:               0,
		LastDigest:       ev.Digest,
		WitnessThreshold: uint64(ev.WitnessThreshold),
		Backers:          ev.Backers,
	}, nil
}

// ApplyRegistryRotation computes the state after a vrt event following s.
func ApplyRegistryRotation(s RegistryState, ev event.RegistryRotation) (RegistryState, error) {
	if s.IsZero() {
		return s, ErrNoRegistry
	}
	if uint64(ev.Sn) != s.Sn+1 {
		return s, fmt.Errorf("%w: have sn %d, event carries sn %d", ErrOutOfOrder, s.Sn, uint64(ev.Sn))
	}
	if !ev.PriorDigest.Equal(s.LastDigest) {
		return s, ErrBrokenChain
	}
	backers := pruneGraft(s.Backers, ev.BackersPruned, ev.BackersGrafted)
	return RegistryState{
		Prefix:           s.Prefix,
		IssuerPrefix:     s.IssuerPrefix,
		Sn:               uint64(ev.Sn),
		LastDigest:       ev.Digest,
		WitnessThreshold: uint64(ev.WitnessThreshold),
		Backers:          backers,
		Backed:           s.Backed,
	}, nil
}

// CredentialState is the issuance/revocation status of one credential
// tracked in a registry's TEL.
type CredentialState struct {
	Prefix      primitive.Identifier
	RegistryID  primitive.Identifier
	LastDigest  primitive.Digest
	Issued      bool
	Revoked     bool
	Backed      bool
}

// IsZero reports whether c is the empty state of a credential with no
// iss/bis applied yet.
func (c CredentialState) IsZero() bool { return !c.Issued && !c.Revoked }

// ApplyIssuance computes the state after an iss/bis event. c must be the
// zero state. reg is the registry's current state, consulted only to
// confirm a backed issuance's RegistrySeal pins a state reg has actually
// reached.
func ApplyIssuance(c CredentialState, reg RegistryState, ev event.Issuance) (CredentialState, error) {
	if !c.IsZero() {
		return c, ErrAlreadyIssued
	}
	backed := ev.Type == event.Bis
	if backed {
		if ev.RegistrySeal == nil {
			return c, ErrMissingSourceSeal
		}
		if ev.RegistrySeal.Sn > reg.Sn {
			return c, fmt.Errorf("%w: registry seal cites sn %d, registry is at sn %d", ErrOutOfOrder, ev.RegistrySeal.Sn, reg.Sn)
		}
	}
	return CredentialState{
		Prefix:     ev.Prefix,
		RegistryID: ev.RegistryID,
		LastDigest: ev.Digest,
		Issued:     true,
		Backed:     backed,
	}, nil
}

// ApplyRevocation computes the state after a rev/brv event following c.
func ApplyRevocation(c CredentialState, reg RegistryState, ev event.Revocation) (CredentialState, error) {
	if c.IsZero() {
		return c, ErrNotIssued
	}
	if c.Revoked {
		return c, ErrAlreadyRevoked
	}
	backed := ev.Type == event.Brv
	if backed != c.Backed {
		return c, ErrBackingMismatch
	}
	if !ev.PriorDigest.Equal(c.LastDigest) {
		return c, ErrBrokenChain
	}
	if backed {
		if ev.RegistrySeal == nil {
			return c, ErrMissingSourceSeal
		}
		if ev.RegistrySeal.Sn > reg.Sn {
			return c, fmt.Errorf("%w: registry seal cites sn %d, registry is at sn %d", ErrOutOfOrder, ev.RegistrySeal.Sn, reg.Sn)
		}
	}
	next := c
	next.LastDigest = ev.Digest
	next.Revoked = true
	return next, nil
}

// pruneGraft removes pruned identifiers from current and appends grafted
// ones, preserving order and skipping duplicates already present. Mirrors
// internal/state's witness pruneGraft for a registry's backer pool.
func pruneGraft(current, pruned, grafted []primitive.Identifier) []primitive.Identifier {
	kept := make([]primitive.Identifier, 0, len(current)+len(grafted))
	for _, b := range current {
		drop := false
		for _, p := range pruned {
			if b.Equal(p) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, b)
		}
	}
	for _, g := range grafted {
		dup := false
		for _, b := range kept {
			if b.Equal(g) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, g)
		}
	}
	return kept
}
