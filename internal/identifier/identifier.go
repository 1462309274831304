// Package identifier implements the high-level two-phase Identifier API: a
// prepare step that returns an unsigned event for the caller to sign with
// key material this system never holds, and a finalize step that submits
// the signed event through the processor. Everything below this layer
// (validator, state, eventdb, escrow, notify) is unaware that an
// "identifier" or "controller" exists; this is the one place that wires
// those packages into the incept/rotate/anchor/delegate/issue/revoke/
// sign/verify operations a caller actually invokes.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/oobi"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/processor"
	"github.com/keri-id/controller/internal/transport"
)

// Sentinel errors the Identifier API's own operations can fail with,
// distinct from the validator's and state's taxonomies since these guard
// preconditions that are checked before an event is even built.
var (
	ErrNotIncepted      = errors.New("identifier: controller has no inception event yet")
	ErrAlreadyIncepted  = errors.New("identifier: controller is already incepted")
	ErrUnknownIdentifier = errors.New("identifier: signer's establishment event was not found")
	ErrFaultySignature  = errors.New("identifier: signature does not verify against the cited establishment event")
)

// Controller is one managed identifier: an incepted (or not-yet-incepted)
// KEL, the processor it submits events through, and the transport/OOBI
// capabilities its higher-level operations (delegation, watchers, witness
// notification) suspend on.
type Controller struct {
	proc      *processor.Processor
	store     eventdb.Store
	transport transport.Transport
	oobiStore oobi.Store
	bus       *notify.Bus
	algo      primitive.DigestAlgorithm
	kind      event.SerializationKind
	mailbox   *Mailbox

	mu     sync.RWMutex
	prefix primitive.Identifier
	set    bool
}

// New builds a Controller around an identifier it will either incept
// itself or that names an already-incepted prefix. tr and oobiStore may be
// nil for a Controller that only ever drives its own KEL in tests; any
// operation that needs them returns an error if called on a nil one.
func New(proc *processor.Processor, store eventdb.Store, tr transport.Transport, oobiStore oobi.Store, bus *notify.Bus, algo primitive.DigestAlgorithm, kind event.SerializationKind) *Controller {
	return &Controller{
		proc:      proc,
		store:     store,
		transport: tr,
		oobiStore: oobiStore,
		bus:       bus,
		algo:      algo,
		kind:      kind,
		mailbox:   NewMailbox(),
	}
}

// Prefix returns the identifier this Controller manages. It is the zero
// Identifier until an inception has been finalized or Bind has been called.
func (c *Controller) Prefix() primitive.Identifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefix
}

// Bind points an already-constructed Controller at a prefix this process
// did not itself incept -- a watcher or witness replaying someone else's
// KEL, for instance.
func (c *Controller) Bind(prefix primitive.Identifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefix, c.set = prefix, true
}

func nextDigestsOf(algo primitive.DigestAlgorithm, keys []primitive.Identifier) ([]primitive.Digest, error) {
	out := make([]primitive.Digest, len(keys))
	for i, k := range keys {
		text, err := k.Text()
		if err != nil {
			return nil, fmt.Errorf("identifier: next key %d: %w", i, err)
		}
		d, err := primitive.Sum(algo, []byte(text))
		if err != nil {
			return nil, fmt.Errorf("identifier: next key %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// PrepareIncept builds the unsigned icp event for a new identifier
// controlled by keys, pre-rotating to nextKeys, with witnesses and a
// witness receipt threshold bt. The key and next-key thresholds default to
// requiring every key present; use PrepareInceptGroup for an explicit
// weighted or partial threshold.
func (c *Controller) PrepareIncept(keys, nextKeys, witnesses []primitive.Identifier, bt uint64) (event.Inception, []byte, error) {
	return c.PrepareInceptGroup(keys, nextKeys, primitive.NewSimpleThreshold(uint32(len(keys))), primitive.NewSimpleThreshold(uint32(len(nextKeys))), witnesses, bt, nil)
}

// PrepareInceptGroup builds the unsigned icp/dip event for an identifier
// with an explicit key and next-key threshold -- the multisig and
// delegated-inception case, where the caller supplies a fractional or
// partial threshold rather than "every key must sign".
func (c *Controller) PrepareInceptGroup(keys, nextKeys []primitive.Identifier, kt, nt primitive.Threshold, witnesses []primitive.Identifier, bt uint64, delegator *primitive.Identifier) (event.Inception, []byte, error) {
	nextDigests, err := nextDigestsOf(c.algo, nextKeys)
	if err != nil {
		return event.Inception{}, nil, err
	}
	body := event.Inception{
		KeyThreshold:     kt,
		Keys:             keys,
		NextThreshold:    nt,
		NextKeyDigests:   nextDigests,
		WitnessThreshold: event.SerialNumber(bt),
		Witnesses:        witnesses,
	}
	if delegator != nil {
		return event.NewDelegatedInception(c.algo, c.kind, *delegator, body)
	}
	return event.NewInception(c.algo, c.kind, body)
}

// FinalizeIncept submits the signed icp/dip event and, on success, binds
// this Controller to the newly incepted prefix.
func (c *Controller) FinalizeIncept(ev event.Inception, raw []byte, sigs []primitive.IndexedSignature) (primitive.Identifier, error) {
	c.mu.RLock()
	already := c.set
	c.mu.RUnlock()
	if already {
		return primitive.Identifier{}, ErrAlreadyIncepted
	}
	if err := c.proc.ProcessNotice(ev.Prefix, raw, sigs); err != nil {
		return primitive.Identifier{}, err
	}
	c.Bind(ev.Prefix)
	return ev.Prefix, nil
}

// PrepareRotate builds the unsigned rot event following this Controller's
// current state: newKeys become the signing set, newNextKeys the next
// pre-rotation commitment, addW/rmW graft and prune the witness pool, and
// anchors are carried into the event's seal list.
func (c *Controller) PrepareRotate(newKeys, newNextKeys, addW, rmW []primitive.Identifier, bt uint64, anchors []primitive.Seal) (event.Rotation, []byte, error) {
	s, err := c.currentState()
	if err != nil {
		return event.Rotation{}, nil, err
	}
	nextDigests, err := nextDigestsOf(c.algo, newNextKeys)
	if err != nil {
		return event.Rotation{}, nil, err
	}
	return event.NewRotation(c.algo, c.kind, event.Rotation{
		Prefix:           s.Prefix,
		Sn:               event.SerialNumber(s.Sn + 1),
		PriorDigest:      s.LastDigest,
		KeyThreshold:     primitive.NewSimpleThreshold(uint32(len(newKeys))),
		Keys:             newKeys,
		NextThreshold:    primitive.NewSimpleThreshold(uint32(len(newNextKeys))),
		NextKeyDigests:   nextDigests,
		WitnessThreshold: event.SerialNumber(bt),
		WitnessesPruned:  rmW,
		WitnessesGrafted: addW,
		Anchors:          anchors,
	})
}

// FinalizeRotate submits the signed rot/drt event.
func (c *Controller) FinalizeRotate(ev event.Rotation, raw []byte, sigs []primitive.IndexedSignature) error {
	return c.proc.ProcessNotice(ev.Prefix, raw, sigs)
}

// PrepareAnchor builds the unsigned ixn event anchoring payloadDigests as
// bare digest seals.
func (c *Controller) PrepareAnchor(payloadDigests []primitive.Digest) (event.Interaction, []byte, error) {
	seals := make([]primitive.Seal, len(payloadDigests))
	for i, d := range payloadDigests {
		seals[i] = primitive.DigestSeal(d)
	}
	return c.PrepareAnchorWithSeal(seals)
}

// PrepareAnchorWithSeal builds the unsigned ixn event anchoring the given
// seals directly, for a caller that needs an event seal, location seal, or
// Merkle root seal rather than a bare digest.
func (c *Controller) PrepareAnchorWithSeal(seals []primitive.Seal) (event.Interaction, []byte, error) {
	s, err := c.currentState()
	if err != nil {
		return event.Interaction{}, nil, err
	}
	return event.NewInteraction(c.algo, c.kind, event.Interaction{
		Prefix:      s.Prefix,
		Sn:          event.SerialNumber(s.Sn + 1),
		PriorDigest: s.LastDigest,
		Anchors:     seals,
	})
}

// FinalizeAnchor submits the signed ixn event.
func (c *Controller) FinalizeAnchor(ev event.Interaction, raw []byte, sigs []primitive.IndexedSignature) error {
	return c.proc.ProcessNotice(ev.Prefix, raw, sigs)
}

func (c *Controller) currentState() (stateSnapshot, error) {
	if !c.set {
		return stateSnapshot{}, ErrNotIncepted
	}
	s, err := c.proc.State(c.Prefix())
	if err != nil {
		return stateSnapshot{}, err
	}
	return stateSnapshot{
		Prefix:            s.Prefix,
		Sn:                s.Sn,
		LastDigest:        s.LastDigest,
		Keys:              s.Keys,
		Witnesses:         s.Witnesses,
		LastEstablishment: s.LastEstablishment,
	}, nil
}

// stateSnapshot is the subset of state.KeyState the identifier package
// reads, kept separate so this package does not re-export internal/state's
// full type as part of its own API surface.
type stateSnapshot struct {
	Prefix            primitive.Identifier
	Sn                uint64
	LastDigest        primitive.Digest
	Keys              []primitive.Identifier
	Witnesses         []primitive.Identifier
	LastEstablishment primitive.EventSeal
}

// TransferableSignature pairs a signature over arbitrary data with a seal
// pinning the signer's last establishment event, the form Verify checks a
// signature against: the signer's currently authoritative key set, not an
// embedded public key the verifier would otherwise have to trust blindly.
type TransferableSignature struct {
	SignerSeal primitive.EventSeal
	Sig        primitive.IndexedSignature
}

// Sign wraps an externally produced signature over data with a seal
// pinning it to this Controller's current establishment event and the key
// index the caller signed with. This system never holds signing key
// material; Sign only attaches the provenance a verifier needs.
func (c *Controller) Sign(sig primitive.Signature, keyIndex uint32) (TransferableSignature, error) {
	s, err := c.currentState()
	if err != nil {
		return TransferableSignature{}, err
	}
	return TransferableSignature{
		SignerSeal: s.LastEstablishment,
		Sig:        primitive.NewIndexedSignature(sig, keyIndex),
	}, nil
}

// sigAlgoFor mirrors validator's own key-algorithm-to-signature-algorithm
// mapping; duplicated here rather than imported since validator does not
// export it and the mapping is a one-line table, not shared logic worth a
// new export.
func sigAlgoFor(k primitive.KeyAlgorithm) (primitive.SignatureAlgorithm, error) {
	switch k {
	case primitive.Ed25519, primitive.Ed25519NT:
		return primitive.SigEd25519Sha512, nil
	case primitive.ECDSAsecp256k1, primitive.ECDSAsecp256k1NT:
		return primitive.SigECDSAsecp256k1Sha256, nil
	case primitive.Ed448, primitive.Ed448NT:
		return primitive.SigEd448, nil
	default:
		return "", fmt.Errorf("identifier: unknown key algorithm %q", k)
	}
}

// Verify checks ts against data, resolving signer's establishment event
// from the shared Store (any prefix this node has a log for, not only
// Controllers it manages) to learn which key ts.Sig.CurrentIdx names.
func (c *Controller) Verify(data []byte, signer primitive.Identifier, ts TransferableSignature) error {
	log, err := c.store.GetLog(signer, eventdb.QueryParams{BySn: &ts.SignerSeal.Sn})
	if err != nil {
		return err
	}
	if len(log) != 1 || !log[0].Digest.Equal(ts.SignerSeal.Digest) {
		return ErrUnknownIdentifier
	}
	keys, err := establishmentKeys(c.kind, log[0])
	if err != nil {
		return err
	}
	if int(ts.Sig.CurrentIdx) >= len(keys) {
		return ErrFaultySignature
	}
	key := keys[ts.Sig.CurrentIdx]
	algo, err := sigAlgoFor(key.Algorithm)
	if err != nil {
		return err
	}
	ok, err := primitive.Verify(algo, key.PubKey, data, ts.Sig.Signature)
	if err != nil || !ok {
		return ErrFaultySignature
	}
	return nil
}

func establishmentKeys(kind event.SerializationKind, ev eventdb.StoredEvent) ([]primitive.Identifier, error) {
	switch ev.Type {
	case event.Icp, event.Dip:
		var icp event.Inception
		if err := event.Unmarshal(kind, ev.Raw, &icp); err != nil {
			return nil, err
		}
		return icp.Keys, nil
	case event.Rot, event.Drt:
		var rot event.Rotation
		if err := event.Unmarshal(kind, ev.Raw, &rot); err != nil {
			return nil, err
		}
		return rot.Keys, nil
	default:
		return nil, fmt.Errorf("identifier: event at cited seal is not an establishment event (%s)", ev.Type)
	}
}

// NotifyWitnesses best-effort broadcasts the already-signed event at sn to
// every witness in the current witness pool, returning how many accepted
// delivery. A witness that cannot be reached does not fail the whole
// batch; the caller learns the count and decides whether it satisfies the
// witness threshold well enough to proceed.
func (c *Controller) NotifyWitnesses(ctx context.Context, sn uint64, sigs []primitive.IndexedSignature) (int, error) {
	if c.transport == nil {
		return 0, fmt.Errorf("identifier: no transport configured")
	}
	s, err := c.currentState()
	if err != nil {
		return 0, err
	}
	log, err := c.store.GetLog(s.Prefix, eventdb.QueryParams{BySn: &sn})
	if err != nil {
		return 0, err
	}
	if len(log) != 1 {
		return 0, fmt.Errorf("identifier: no logged event at sn %d", sn)
	}
	raw := log[0].Raw

	accepted := 0
	for _, w := range s.Witnesses {
		if err := c.transport.SendMessage(ctx, w, raw, sigs); err != nil {
			continue
		}
		accepted++
	}
	return accepted, nil
}

// QueryMailbox asks each of witnesses for the messages they hold about
// aboutID, returning whichever replies were reachable.
func (c *Controller) QueryMailbox(ctx context.Context, aboutID primitive.Identifier, witnesses []primitive.Identifier) ([]event.Reply, error) {
	if c.transport == nil {
		return nil, fmt.Errorf("identifier: no transport configured")
	}
	text, err := aboutID.Text()
	if err != nil {
		return nil, err
	}
	qry, _, err := event.NewQuery(c.kind, event.MailboxQueryRoute, event.KeyStateRoute, time.Now(), map[string]any{"i": text})
	if err != nil {
		return nil, err
	}
	var replies []event.Reply
	for _, w := range witnesses {
		reply, err := c.transport.SendQuery(ctx, w, qry)
		if err != nil {
			continue
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// ResolveOOBI dereferences a bare (scheme, url) OOBI and, if the reply
// names a subject, persists it to the OOBI store for future GetLocScheme
// / GetEndRole lookups.
func (c *Controller) ResolveOOBI(ctx context.Context, scheme, url string) (event.Reply, error) {
	if c.transport == nil {
		return event.Reply{}, fmt.Errorf("identifier: no transport configured")
	}
	reply, err := c.transport.ResolveOOBI(ctx, scheme, url)
	if err != nil {
		return event.Reply{}, err
	}
	if c.oobiStore != nil {
		subject, ok := oobi.SubjectOf(reply.Data)
		if ok {
			if err := c.oobiStore.SaveOOBI(oobi.SignedReply{Reply: reply, Signer: subject}); err != nil {
				return reply, err
			}
		}
	}
	return reply, nil
}
