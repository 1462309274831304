// Package validator runs the ordered checks an incoming key event must
// pass before it is applied to an identifier's state: digest binding,
// chain continuity, signature verification, and threshold satisfaction.
// Each failure mode is reported as a distinct, inspectable error kind so
// callers (the processor's escrow routing, in particular) can branch on
// why an event was rejected rather than parsing error strings.
package validator

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/state"
)

// Kind tags why a validation failed.
type Kind string

const (
	WrongDigest       Kind = "wrong_digest"
	OutOfOrder        Kind = "out_of_order"
	PartiallySigned   Kind = "partially_signed"
	BrokenChain       Kind = "broken_chain"
	MissingDelegator  Kind = "missing_delegator"
	InvalidSignature  Kind = "invalid_signature"
	DuplicateAtSn     Kind = "duplicate_at_sn"
	ThresholdInvalid  Kind = "threshold_invalid"
)

// Error is the typed validation failure. Unwrap exposes the underlying
// state/crypto error so errors.Is against state's own sentinels still works.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return fmt.Sprintf("validator: %s: %v", e.Kind, e.err) }
func (e *Error) Unwrap() error { return e.err }

func fail(kind Kind, err error) *Error { return &Error{Kind: kind, err: err} }

// DuplicateChecker looks up whatever digest, if any, the database already
// holds at (prefix, sn) -- the first-seen record a duplicity check compares
// a newly arriving event's digest against.
type DuplicateChecker interface {
	ExistingDigestAtSn(prefix primitive.Identifier, sn uint64) (primitive.Digest, bool, error)
}

// Validator runs the check pipeline against a DuplicateChecker-backed store.
type Validator struct {
	log *log.Logger
	dup DuplicateChecker
}

// New builds a Validator. logger may be nil, in which case log.Default() is used.
func New(logger *log.Logger, dup DuplicateChecker) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{log: logger, dup: dup}
}

func sigAlgoFor(k primitive.KeyAlgorithm) (primitive.SignatureAlgorithm, error) {
	switch k {
	case primitive.Ed25519, primitive.Ed25519NT:
		return primitive.SigEd25519Sha512, nil
	case primitive.ECDSAsecp256k1, primitive.ECDSAsecp256k1NT:
		return primitive.SigECDSAsecp256k1Sha256, nil
	case primitive.Ed448, primitive.Ed448NT:
		return primitive.SigEd448, nil
	default:
		return "", fmt.Errorf("validator: unknown key algorithm %q", k)
	}
}

// verifySignatures checks each indexed signature against keys[sig.CurrentIdx]
// and returns the set of key indices with a verified signature.
func verifySignatures(keys []primitive.Identifier, data []byte, sigs []primitive.IndexedSignature) (map[uint32]bool, error) {
	present := make(map[uint32]bool, len(sigs))
	for _, sig := range sigs {
		if int(sig.CurrentIdx) >= len(keys) {
			return nil, fmt.Errorf("signature index %d out of range for %d keys", sig.CurrentIdx, len(keys))
		}
		key := keys[sig.CurrentIdx]
		algo, err := sigAlgoFor(key.Algorithm)
		if err != nil {
			return nil, err
		}
		ok, err := primitive.Verify(algo, key.PubKey, data, sig.Signature)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("signature at index %d does not verify", sig.CurrentIdx)
		}
		present[sig.CurrentIdx] = true
	}
	return present, nil
}

// checkDuplicate flags a DuplicateAtSn failure when the store already holds
// a different digest at the event's (prefix, sn).
func (v *Validator) checkDuplicate(prefix primitive.Identifier, sn uint64, digest primitive.Digest) error {
	if v.dup == nil {
		return nil
	}
	existing, found, err := v.dup.ExistingDigestAtSn(prefix, sn)
	if err != nil {
		return err
	}
	if found && !existing.Equal(digest) {
		return fail(DuplicateAtSn, fmt.Errorf("prefix %s already has a different event at sn %d", prefix, sn))
	}
	return nil
}

// Inception validates and applies an icp/dip event against the zero state.
func (v *Validator) Inception(algo primitive.DigestAlgorithm, kind event.SerializationKind, ev event.Inception, raw []byte, sigs []primitive.IndexedSignature) (state.KeyState, error) {
	if err := v.checkDuplicate(ev.Prefix, uint64(ev.Sn), ev.Digest); err != nil {
		return state.KeyState{}, err
	}
	clone := ev
	clone.Digest = primitive.Digest{}
	_, rebuilt, err := event.NewInception(algo, kind, clone)
	if err != nil {
		return state.KeyState{}, fail(WrongDigest, err)
	}
	if !bytes.Equal(rebuilt, raw) {
		return state.KeyState{}, fail(WrongDigest, fmt.Errorf("re-derived inception bytes do not match the wire frame"))
	}

	present, err := verifySignatures(ev.Keys, raw, sigs)
	if err != nil {
		return state.KeyState{}, fail(InvalidSignature, err)
	}
	if !ev.KeyThreshold.Satisfied(present) {
		return state.KeyState{}, fail(PartiallySigned, fmt.Errorf("%d of required signatures present", len(present)))
	}

	if ev.Type.IsDelegated() && ev.Delegator == nil {
		return state.KeyState{}, fail(MissingDelegator, fmt.Errorf("dip event declares no delegator"))
	}

	s, err := state.ApplyInception(state.KeyState{}, ev)
	if err != nil {
		return state.KeyState{}, classifyStateError(err)
	}
	v.log.Printf("validator: inception accepted for %s", ev.Prefix)
	return s, nil
}

// Rotation validates and applies a rot/drt event against s.
func (v *Validator) Rotation(algo primitive.DigestAlgorithm, kind event.SerializationKind, s state.KeyState, ev event.Rotation, raw []byte, sigs []primitive.IndexedSignature) (state.KeyState, error) {
	if err := v.checkDuplicate(s.Prefix, uint64(ev.Sn), ev.Digest); err != nil {
		return s, err
	}
	clone := ev
	clone.Digest = primitive.Digest{}
	_, rebuilt, err := event.NewRotation(algo, kind, clone)
	if err != nil {
		return s, fail(WrongDigest, err)
	}
	if !bytes.Equal(rebuilt, raw) {
		return s, fail(WrongDigest, fmt.Errorf("re-derived rotation bytes do not match the wire frame"))
	}

	// Check sequencing, chain linkage, and the next-key commitment before
	// spending any crypto on signatures: an out-of-order event is usually
	// signed by a key set this state doesn't know about yet, so verifying
	// against the current keys first would misreport it as unsigned rather
	// than out of order.
	next, err := state.ApplyRotation(s, ev)
	if err != nil {
		return s, classifyStateError(err)
	}

	// A rotation is signed by the key set it rotates in.
	present, err := verifySignatures(next.Keys, raw, sigs)
	if err != nil {
		return s, fail(InvalidSignature, err)
	}
	if !next.KeyThreshold.Satisfied(present) {
		return s, fail(PartiallySigned, fmt.Errorf("%d of required signatures present", len(present)))
	}

	v.log.Printf("validator: rotation accepted for %s at sn %d", s.Prefix, ev.Sn)
	return next, nil
}

// Interaction validates and applies an ixn event against s.
func (v *Validator) Interaction(algo primitive.DigestAlgorithm, kind event.SerializationKind, s state.KeyState, ev event.Interaction, raw []byte, sigs []primitive.IndexedSignature) (state.KeyState, error) {
	if err := v.checkDuplicate(s.Prefix, uint64(ev.Sn), ev.Digest); err != nil {
		return s, err
	}
	clone := ev
	clone.Digest = primitive.Digest{}
	_, rebuilt, err := event.NewInteraction(algo, kind, clone)
	if err != nil {
		return s, fail(WrongDigest, err)
	}
	if !bytes.Equal(rebuilt, raw) {
		return s, fail(WrongDigest, fmt.Errorf("re-derived interaction bytes do not match the wire frame"))
	}

	next, err := state.ApplyInteraction(s, ev)
	if err != nil {
		return s, classifyStateError(err)
	}

	present, err := verifySignatures(s.Keys, raw, sigs)
	if err != nil {
		return s, fail(InvalidSignature, err)
	}
	if !s.KeyThreshold.Satisfied(present) {
		return s, fail(PartiallySigned, fmt.Errorf("%d of required signatures present", len(present)))
	}

	v.log.Printf("validator: interaction accepted for %s at sn %d", s.Prefix, ev.Sn)
	return next, nil
}

func classifyStateError(err error) error {
	switch {
	case errors.Is(err, state.ErrOutOfOrder):
		return fail(OutOfOrder, err)
	case errors.Is(err, state.ErrBrokenChain):
		return fail(BrokenChain, err)
	case errors.Is(err, state.ErrEstablishmentCommitment):
		return fail(InvalidSignature, err)
	case errors.Is(err, state.ErrThresholdInvalid):
		return fail(ThresholdInvalid, err)
	default:
		return err
	}
}
