// Package processor drives the ordered notice-handling pipeline: decode,
// validate, persist, and notify. It is the one place that wires validator,
// eventdb, escrow, and notify together; everything above it (the identifier
// package, the HTTP/transport handlers) only ever calls Processor methods.
package processor

import (
	"fmt"
	"log"
	"sync"

	"github.com/keri-id/controller/internal/escrow"
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/state"
	"github.com/keri-id/controller/internal/tel"
	"github.com/keri-id/controller/internal/validator"
)

// Processor applies incoming KEL notices (icp/dip/rot/drt/ixn) and receipts
// against a validator and a Store, escrowing whatever cannot yet be applied
// and publishing a Notification for every outcome.
type Processor struct {
	log     *log.Logger
	val     *validator.Validator
	store   eventdb.Store
	escrows *escrow.Escrows
	bus     *notify.Bus
	algo    primitive.DigestAlgorithm
	kind    event.SerializationKind

	mu         sync.Mutex
	states     map[string]state.KeyState
	telStates  map[string]tel.RegistryState
	credStates map[string]tel.CredentialState
}

// New builds a Processor. logger may be nil, in which case log.Default() is used.
func New(logger *log.Logger, val *validator.Validator, store eventdb.Store, escrows *escrow.Escrows, bus *notify.Bus, algo primitive.DigestAlgorithm, kind event.SerializationKind) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		log:        logger,
		val:        val,
		store:      store,
		escrows:    escrows,
		bus:        bus,
		algo:       algo,
		kind:       kind,
		states:     make(map[string]state.KeyState),
		telStates:  make(map[string]tel.RegistryState),
		credStates: make(map[string]tel.CredentialState),
	}
}

func stateKey(prefix primitive.Identifier) string { return prefix.String() }

// stateFor returns the cached key state for prefix, replaying the log from
// storage the first time it is asked about.
func (p *Processor) stateFor(prefix primitive.Identifier) (state.KeyState, error) {
	key := stateKey(prefix)
	p.mu.Lock()
	if s, ok := p.states[key]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	log, err := p.store.GetLog(prefix, eventdb.QueryParams{})
	if err != nil {
		return state.KeyState{}, err
	}
	s := state.KeyState{}
	for _, ev := range log {
		s, err = p.applyStored(s, ev)
		if err != nil {
			return state.KeyState{}, fmt.Errorf("processor: replaying %s at sn %d: %w", prefix, ev.Sn, err)
		}
	}
	p.mu.Lock()
	p.states[key] = s
	p.mu.Unlock()
	return s, nil
}

// State returns the current key state for prefix, replaying from storage if
// it is not already cached. The identifier package calls this to learn the
// sequence number and digest a new rotation or interaction must chain from.
func (p *Processor) State(prefix primitive.Identifier) (state.KeyState, error) {
	return p.stateFor(prefix)
}

func (p *Processor) setState(prefix primitive.Identifier, s state.KeyState) {
	p.mu.Lock()
	p.states[stateKey(prefix)] = s
	p.mu.Unlock()
}

func (p *Processor) applyStored(s state.KeyState, ev eventdb.StoredEvent) (state.KeyState, error) {
	switch ev.Type {
	case event.Icp, event.Dip:
		var icp event.Inception
		if err := event.Unmarshal(p.kind, ev.Raw, &icp); err != nil {
			return s, err
		}
		return state.ApplyInception(s, icp)
	case event.Rot, event.Drt:
		var rot event.Rotation
		if err := event.Unmarshal(p.kind, ev.Raw, &rot); err != nil {
			return s, err
		}
		return state.ApplyRotation(s, rot)
	case event.Ixn:
		var ixn event.Interaction
		if err := event.Unmarshal(p.kind, ev.Raw, &ixn); err != nil {
			return s, err
		}
		return state.ApplyInteraction(s, ixn)
	default:
		return s, fmt.Errorf("processor: cannot replay event type %s", ev.Type)
	}
}

// ProcessNotice validates raw (an icp/dip/rot/drt/ixn event, keyed by its
// declared prefix) against the current state and, on success, persists it
// and publishes KelEventAdded. A failure that might resolve once more data
// arrives is escrowed and reported as the matching Notification kind rather
// than returned as a hard error.
func (p *Processor) ProcessNotice(prefix primitive.Identifier, raw []byte, sigs []primitive.IndexedSignature) error {
	t, err := event.PeekType(p.kind, raw)
	if err != nil {
		return fmt.Errorf("processor: %w", err)
	}

	switch t {
	case event.Icp, event.Dip:
		var ev event.Inception
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.processEstablishment(ev.Prefix, 0, raw, func() (state.KeyState, error) {
			return p.val.Inception(p.algo, p.kind, ev, raw, sigs)
		}, ev.Type)
	case event.Rot, event.Drt:
		var ev event.Rotation
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.processEstablishment(prefix, uint64(ev.Sn), raw, func() (state.KeyState, error) {
			s, err := p.stateFor(prefix)
			if err != nil {
				return state.KeyState{}, err
			}
			return p.val.Rotation(p.algo, p.kind, s, ev, raw, sigs)
		}, ev.Type)
	case event.Ixn:
		var ev event.Interaction
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.processEstablishment(prefix, uint64(ev.Sn), raw, func() (state.KeyState, error) {
			s, err := p.stateFor(prefix)
			if err != nil {
				return state.KeyState{}, err
			}
			return p.val.Interaction(p.algo, p.kind, s, ev, raw, sigs)
		}, ev.Type)
	default:
		return fmt.Errorf("processor: ProcessNotice does not handle event type %s", t)
	}
}

func (p *Processor) processEstablishment(prefix primitive.Identifier, sn uint64, raw []byte, validate func() (state.KeyState, error), evType event.Type) error {
	newState, err := validate()
	if err != nil {
		return p.escrowFailure(prefix, sn, evType, raw, err)
	}

	digest := newState.LastDigest
	if err := p.store.AppendLog(prefix, eventdb.StoredEvent{Sn: sn, Digest: digest, Type: evType, Raw: raw}); err != nil {
		return err
	}
	p.setState(prefix, newState)
	p.escrows.OutOfOrder.Remove(stateKey(prefix), func(payload any) bool {
		entry, ok := payload.(escrow.OutOfOrderEntry)
		return ok && entry.Sn <= sn
	})
	return p.bus.Publish(notify.Notification{Kind: notify.KelEventAdded, Payload: eventdb.StoredEvent{Sn: sn, Digest: digest, Type: evType, Raw: raw}})
}

func (p *Processor) escrowFailure(prefix primitive.Identifier, sn uint64, evType event.Type, raw []byte, err error) error {
	var verr *validator.Error
	if !asValidatorError(err, &verr) {
		return err
	}

	key := stateKey(prefix)
	entry := escrow.OutOfOrderEntry{Prefix: prefix, Sn: sn, Type: evType, Raw: raw}
	switch verr.Kind {
	case validator.OutOfOrder:
		p.escrows.OutOfOrder.Add(key, entry)
		return p.bus.Publish(notify.Notification{Kind: notify.OutOfOrder, Payload: entry})
	case validator.PartiallySigned:
		p.escrows.PartiallySigned.Add(key, escrow.PartiallySignedEntry{Prefix: prefix, Sn: sn, Raw: raw})
		return p.bus.Publish(notify.Notification{Kind: notify.PartiallySigned, Payload: entry})
	case validator.MissingDelegator:
		p.escrows.MissingDelegator.Add(key, escrow.MissingDelegatorEntry{Prefix: prefix, Sn: sn, Raw: raw})
		return p.bus.Publish(notify.Notification{Kind: notify.MissingDelegator, Payload: entry})
	case validator.DuplicateAtSn:
		if err := p.store.AddDuplicitous(prefix, sn, raw); err != nil {
			return err
		}
		p.escrows.Duplicitous.Add(key, escrow.DuplicitousEntry{Prefix: prefix, Sn: sn, Raw: raw})
		return p.bus.Publish(notify.Notification{Kind: notify.DuplicitousEvent, Payload: entry})
	default:
		return verr
	}
}

func asValidatorError(err error, target **validator.Error) bool {
	ve, ok := err.(*validator.Error)
	if !ok {
		return false
	}
	*target = ve
	return true
}

// ProcessReceipt records a witness or transferable-signer receipt against
// the event at (prefix, sn), then reports whether its witness threshold is
// now met.
func (p *Processor) ProcessReceipt(prefix primitive.Identifier, sn uint64, couples []primitive.NonTransferableReceiptCouple, quads []primitive.TransferableReceiptQuadruple) error {
	for _, c := range couples {
		if err := p.store.AppendNonTransferableReceipt(prefix, sn, c); err != nil {
			return err
		}
	}
	for _, q := range quads {
		if err := p.store.AppendTransferableReceipt(prefix, sn, q); err != nil {
			return err
		}
	}

	s, err := p.stateFor(prefix)
	if err != nil {
		return err
	}
	have, err := p.store.GetNonTransferableReceipts(prefix, sn)
	if err != nil {
		return err
	}
	if uint64(len(have)) < s.WitnessThreshold {
		key := stateKey(prefix)
		p.escrows.PartiallyWitnessed.Add(key, escrow.PartiallyWitnessedEntry{Prefix: prefix, Sn: sn})
		return p.bus.Publish(notify.Notification{Kind: notify.PartiallyWitnessed, Payload: escrow.PartiallyWitnessedEntry{Prefix: prefix, Sn: sn}})
	}
	return p.bus.Publish(notify.Notification{Kind: notify.ReceiptAdded, Payload: escrow.PartiallyWitnessedEntry{Prefix: prefix, Sn: sn}})
}

// RetryEscrowed re-attempts every out-of-order entry escrowed for prefix,
// in sequence-number order, typically called right after a new event for
// that same prefix has been accepted -- the event the escrowed one may have
// been waiting on.
func (p *Processor) RetryEscrowed(prefix primitive.Identifier) (int, error) {
	key := stateKey(prefix)
	pending := p.escrows.OutOfOrder.GetAll(key)
	accepted := 0
	for _, raw := range pending {
		entry, ok := raw.(escrow.OutOfOrderEntry)
		if !ok {
			continue
		}
		if err := p.ProcessNotice(entry.Prefix, entry.Raw, nil); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}
