// Package state implements the pure key-state reducer: given the current
// state of an identifier and the next event in its log, compute the state
// that results, or reject the event as structurally invalid. It never
// touches storage, signatures, or the network -- those live in validator,
// eventdb, and transport respectively.
package state

import (
	"errors"
	"fmt"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// Sentinel errors a pure state transition can fail with. validator maps
// these onto its own typed error taxonomy alongside failures -- like bad
// signatures -- that only it can detect.
var (
	ErrOutOfOrder              = errors.New("state: event sequence number does not follow the current state")
	ErrBrokenChain             = errors.New("state: event's prior digest does not match the current state's last digest")
	ErrEstablishmentCommitment = errors.New("state: rotation keys do not match the prior next-key digest commitment")
	ErrNotEstablishment        = errors.New("state: expected an establishment event")
	ErrAlreadyIncepted         = errors.New("state: identifier already has an inception event")
	ErrThresholdInvalid        = errors.New("state: threshold cannot be satisfied by its key set")
)

// KeyState is the controlling key state of an identifier at its current
// sequence number: signing keys, next-key commitment, witness pool, and a
// pin to the last establishment event for receipt/delegation seals.
type KeyState struct {
	Prefix            primitive.Identifier
	Sn                uint64
	LastDigest        primitive.Digest
	LastEventType     event.Type
	KeyThreshold      primitive.Threshold
	Keys              []primitive.Identifier
	NextThreshold     primitive.Threshold
	NextKeyDigests    []primitive.Digest
	WitnessThreshold  uint64
	Witnesses         []primitive.Identifier
	Delegator         *primitive.Identifier
	LastEstablishment primitive.EventSeal
}

// IsZero reports whether s is the empty state of an identifier with no
// inception event yet applied.
func (s KeyState) IsZero() bool { return s.Keys == nil && s.Sn == 0 && s.LastDigest.IsZero() }

// ApplyInception computes the state after an icp/dip event. s must be the
// zero state.
func ApplyInception(s KeyState, ev event.Inception) (KeyState, error) {
	if !s.IsZero() {
		return s, ErrAlreadyIncepted
	}
	if err := ev.KeyThreshold.Validate(); err != nil {
		return s, fmt.Errorf("%w: %v", ErrThresholdInvalid, err)
	}
	if int(ev.KeyThreshold.Simple) > len(ev.Keys) && !ev.KeyThreshold.IsWeighted() {
		return s, fmt.Errorf("%w: simple threshold %d exceeds %d keys", ErrThresholdInvalid, ev.KeyThreshold.Simple, len(ev.Keys))
	}
	return KeyState{
		Prefix:            ev.Prefix,
		Sn:                0,
		LastDigest:        ev.Digest,
		LastEventType:     ev.Type,
		KeyThreshold:      ev.KeyThreshold,
		Keys:              ev.Keys,
		NextThreshold:     ev.NextThreshold,
		NextKeyDigests:    ev.NextKeyDigests,
		WitnessThreshold:  uint64(ev.WitnessThreshold),
		Witnesses:         ev.Witnesses,
		Delegator:         ev.Delegator,
		LastEstablishment: primitive.EventSeal{Prefix: ev.Prefix, Sn: 0, Digest: ev.Digest},
	}, nil
}

// ApplyRotation computes the state after a rot/drt event following s.
func ApplyRotation(s KeyState, ev event.Rotation) (KeyState, error) {
	if s.IsZero() {
		return s, ErrNotEstablishment
	}
	if uint64(ev.Sn) != s.Sn+1 {
		return s, fmt.Errorf("%w: have sn %d, event carries sn %d", ErrOutOfOrder, s.Sn, uint64(ev.Sn))
	}
	if !ev.PriorDigest.Equal(s.LastDigest) {
		return s, ErrBrokenChain
	}
	if err := VerifyNextCommitment(s.NextKeyDigests, ev.Keys); err != nil {
		return s, fmt.Errorf("%w: %v", ErrEstablishmentCommitment, err)
	}
	if err := ev.KeyThreshold.Validate(); err != nil {
		return s, fmt.Errorf("%w: %v", ErrThresholdInvalid, err)
	}

	witnesses := pruneGraft(s.Witnesses, ev.WitnessesPruned, ev.WitnessesGrafted)
	return KeyState{
		Prefix:            s.Prefix,
		Sn:                uint64(ev.Sn),
		LastDigest:        ev.Digest,
		LastEventType:     ev.Type,
		KeyThreshold:      ev.KeyThreshold,
		Keys:              ev.Keys,
		NextThreshold:     ev.NextThreshold,
		NextKeyDigests:    ev.NextKeyDigests,
		WitnessThreshold:  uint64(ev.WitnessThreshold),
		Witnesses:         witnesses,
		Delegator:         s.Delegator,
		LastEstablishment: primitive.EventSeal{Prefix: s.Prefix, Sn: uint64(ev.Sn), Digest: ev.Digest},
	}, nil
}

// ApplyInteraction computes the state after an ixn event following s. An
// interaction event carries no key-state change; it only advances Sn and
// LastDigest so subsequent events chain correctly.
func ApplyInteraction(s KeyState, ev event.Interaction) (KeyState, error) {
	if s.IsZero() {
		return s, ErrNotEstablishment
	}
	if uint64(ev.Sn) != s.Sn+1 {
		return s, fmt.Errorf("%w: have sn %d, event carries sn %d", ErrOutOfOrder, s.Sn, uint64(ev.Sn))
	}
	if !ev.PriorDigest.Equal(s.LastDigest) {
		return s, ErrBrokenChain
	}
	next := s
	next.Sn = uint64(ev.Sn)
	next.LastDigest = ev.Digest
	next.LastEventType = ev.Type
	return next, nil
}

// VerifyNextCommitment checks that each of newKeys's identifiers hashes,
// under the algorithm the corresponding prior digest was computed with, to
// that prior next-key digest -- the pre-rotation binding that lets a
// controller commit to a future key set before revealing it.
func VerifyNextCommitment(priorNextDigests []primitive.Digest, newKeys []primitive.Identifier) error {
	if len(priorNextDigests) != len(newKeys) {
		return fmt.Errorf("prior commitment has %d digests, rotation reveals %d keys", len(priorNextDigests), len(newKeys))
	}
	for i, want := range priorNextDigests {
		text, err := newKeys[i].Text()
		if err != nil {
			return fmt.Errorf("key %d: %w", i, err)
		}
		got, err := primitive.Sum(want.Algorithm, []byte(text))
		if err != nil {
			return fmt.Errorf("key %d: %w", i, err)
		}
		if !got.Equal(want) {
			return fmt.Errorf("key %d does not match its next-key digest commitment", i)
		}
	}
	return nil
}

// pruneGraft removes pruned identifiers from current and appends grafted
// ones, preserving order and skipping duplicates already present.
func pruneGraft(current, pruned, grafted []primitive.Identifier) []primitive.Identifier {
	kept := make([]primitive.Identifier, 0, len(current)+len(grafted))
	for _, w := range current {
		drop := false
		for _, p := range pruned {
			if w.Equal(p) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, w)
		}
	}
	for _, g := range grafted {
		dup := false
		for _, w := range kept {
			if w.Equal(g) {
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
