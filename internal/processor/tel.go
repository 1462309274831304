package processor

import (
	"errors"
	"fmt"

	"github.com/keri-id/controller/internal/escrow"
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/tel"
)

// telStateFor returns the cached registry state for prefix, replaying its
// vcp/vrt log from storage the first time it is asked about. A registry is
// just another prefix in the same Store that holds KELs.
func (p *Processor) telStateFor(prefix primitive.Identifier) (tel.RegistryState, error) {
	key := stateKey(prefix)
	p.mu.Lock()
	if s, ok := p.telStates[key]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	log, err := p.store.GetLog(prefix, eventdb.QueryParams{})
	if err != nil {
		return tel.RegistryState{}, err
	}
	s := tel.RegistryState{}
	for _, ev := range log {
		switch ev.Type {
		case event.Vcp:
			var vcp event.RegistryInception
			if err := event.Unmarshal(p.kind, ev.Raw, &vcp); err != nil {
				return tel.RegistryState{}, err
			}
			s, err = tel.ApplyRegistryInception(s, vcp)
		case event.Vrt:
			var vrt event.RegistryRotation
			if err := event.Unmarshal(p.kind, ev.Raw, &vrt); err != nil {
				return tel.RegistryState{}, err
			}
			s, err = tel.ApplyRegistryRotation(s, vrt)
		default:
			return tel.RegistryState{}, fmt.Errorf("processor: cannot replay registry event type %s", ev.Type)
		}
		if err != nil {
			return tel.RegistryState{}, fmt.Errorf("processor: replaying registry %s at sn %d: %w", prefix, ev.Sn, err)
		}
	}
	p.mu.Lock()
	p.telStates[key] = s
	p.mu.Unlock()
	return s, nil
}

func (p *Processor) setTelState(prefix primitive.Identifier, s tel.RegistryState) {
	p.mu.Lock()
	p.telStates[stateKey(prefix)] = s
	p.mu.Unlock()
}

// credStateFor returns the cached credential state for prefix, replaying
// its iss/rev (or bis/brv) log against the registry state reg.
func (p *Processor) credStateFor(prefix primitive.Identifier, reg tel.RegistryState) (tel.CredentialState, error) {
	key := stateKey(prefix)
	p.mu.Lock()
	if c, ok := p.credStates[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	log, err := p.store.GetLog(prefix, eventdb.QueryParams{})
	if err != nil {
		return tel.CredentialState{}, err
	}
	c := tel.CredentialState{}
	for _, ev := range log {
		switch ev.Type {
		case event.Iss, event.Bis:
			var iss event.Issuance
			if err := event.Unmarshal(p.kind, ev.Raw, &iss); err != nil {
				return tel.CredentialState{}, err
			}
			c, err = tel.ApplyIssuance(c, reg, iss)
		case event.Rev, event.Brv:
			var rev event.Revocation
			if err := event.Unmarshal(p.kind, ev.Raw, &rev); err != nil {
				return tel.CredentialState{}, err
			}
			c, err = tel.ApplyRevocation(c, reg, rev)
		default:
			return tel.CredentialState{}, fmt.Errorf("processor: cannot replay credential event type %s", ev.Type)
		}
		if err != nil {
			return tel.CredentialState{}, fmt.Errorf("processor: replaying credential %s at sn %d: %w", prefix, ev.Sn, err)
		}
	}
	p.mu.Lock()
	p.credStates[key] = c
	p.mu.Unlock()
	return c, nil
}

func (p *Processor) setCredState(prefix primitive.Identifier, c tel.CredentialState) {
	p.mu.Lock()
	p.credStates[stateKey(prefix)] = c
	p.mu.Unlock()
}

// RegistryState returns the current TEL state of the registry at prefix,
// replaying from storage if it is not already cached. The identifier
// package calls this to learn a registry's sn and backer pool before
// preparing a vrt, or before citing it in a backed issuance/revocation.
func (p *Processor) RegistryState(prefix primitive.Identifier) (tel.RegistryState, error) {
	return p.telStateFor(prefix)
}

// CredentialState returns the current issuance/revocation status of the
// credential at prefix, tracked in registry's TEL.
func (p *Processor) CredentialState(prefix, registry primitive.Identifier) (tel.CredentialState, error) {
	reg, err := p.telStateFor(registry)
	if err != nil {
		return tel.CredentialState{}, err
	}
	return p.credStateFor(prefix, reg)
}

// ProcessTelNotice validates and applies a vcp/vrt/iss/rev/bis/brv event.
// Registry events are keyed by the registry's own self-addressing prefix;
// credential events are keyed by the credential's SAID and cite a registry
// prefix of their own. A failure that might resolve once more data arrives
// -- the registry's own chain running ahead, the cited registry being
// unknown, or the registry not yet having reached the sn a backed event's
// RegistrySeal cites -- is escrowed rather than returned as a hard error.
func (p *Processor) ProcessTelNotice(raw []byte) error {
	t, err := event.PeekType(p.kind, raw)
	if err != nil {
		return fmt.Errorf("processor: %w", err)
	}

	switch t {
	case event.Vcp:
		var ev event.RegistryInception
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.applyRegistryInception(ev, raw)
	case event.Vrt:
		var ev event.RegistryRotation
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.applyRegistryRotation(ev, raw)
	case event.Iss, event.Bis:
		var ev event.Issuance
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.applyIssuance(ev, raw)
	case event.Rev, event.Brv:
		var ev event.Revocation
		if err := event.Unmarshal(p.kind, raw, &ev); err != nil {
			return err
		}
		return p.applyRevocation(ev, raw)
	default:
		return fmt.Errorf("processor: ProcessTelNotice does not handle event type %s", t)
	}
}

func (p *Processor) applyRegistryInception(ev event.RegistryInception, raw []byte) error {
	cur, err := p.telStateFor(ev.Prefix)
	if err != nil {
		return err
	}
	next, err := tel.ApplyRegistryInception(cur, ev)
	if err != nil {
		return err // already incepted: a hard error, not an escrow condition
	}
	if err := p.store.AppendLog(ev.Prefix, eventdb.StoredEvent{Sn: 0, Digest: ev.Digest, Type: event.Vcp, Raw: raw}); err != nil {
		return err
	}
	p.setTelState(ev.Prefix, next)
	return p.bus.Publish(notify.Notification{Kind: notify.TelEventAdded, Payload: eventdb.StoredEvent{Sn: 0, Digest: ev.Digest, Type: event.Vcp, Raw: raw}})
}

func (p *Processor) applyRegistryRotation(ev event.RegistryRotation, raw []byte) error {
	cur, err := p.telStateFor(ev.Prefix)
	if err != nil {
		return err
	}
	next, err := tel.ApplyRegistryRotation(cur, ev)
	if err != nil {
		if errors.Is(err, tel.ErrOutOfOrder) || errors.Is(err, tel.ErrBrokenChain) || errors.Is(err, tel.ErrNoRegistry) {
			key := stateKey(ev.Prefix)
			entry := escrow.TelOutOfOrderEntry{Prefix: ev.Prefix, Sn: uint64(ev.Sn), Type: event.Vrt, Raw: raw}
			p.escrows.TelOutOfOrder.Add(key, entry)
			return p.bus.Publish(notify.Notification{Kind: notify.TelOutOfOrder, Payload: entry})
		}
		return err
	}
	if err := p.store.AppendLog(ev.Prefix, eventdb.StoredEvent{Sn: uint64(ev.Sn), Digest: ev.Digest, Type: event.Vrt, Raw: raw}); err != nil {
		return err
	}
	p.setTelState(ev.Prefix, next)
	return p.bus.Publish(notify.Notification{Kind: notify.TelEventAdded, Payload: eventdb.StoredEvent{Sn: uint64(ev.Sn), Digest: ev.Digest, Type: event.Vrt, Raw: raw}})
}

func (p *Processor) applyIssuance(ev event.Issuance, raw []byte) error {
	reg, err := p.telStateFor(ev.RegistryID)
	if err != nil {
		return err
	}
	if reg.IsZero() {
		entry := escrow.MissingRegistryEntry{RegistryID: ev.RegistryID, Raw: raw}
		p.escrows.MissingRegistry.Add(stateKey(ev.RegistryID), entry)
		return p.bus.Publish(notify.Notification{Kind: notify.MissingRegistry, Payload: entry})
	}

	cur, err := p.credStateFor(ev.Prefix, reg)
	if err != nil {
		return err
	}
	next, err := tel.ApplyIssuance(cur, reg, ev)
	if err != nil {
		if errors.Is(err, tel.ErrOutOfOrder) {
			entry := escrow.MissingIssuerEntry{ExpectedDigest: ev.RegistrySeal.Digest, Raw: raw}
			p.escrows.MissingIssuer.Add(stateKey(ev.Prefix), entry)
			return p.bus.Publish(notify.Notification{Kind: notify.MissingIssuer, Payload: entry})
		}
		return err
	}

	if err := p.store.AppendLog(ev.Prefix, eventdb.StoredEvent{Sn: 0, Digest: ev.Digest, Type: ev.Type, Raw: raw}); err != nil {
		return err
	}
	p.setCredState(ev.Prefix, next)
	return p.bus.Publish(notify.Notification{Kind: notify.TelEventAdded, Payload: eventdb.StoredEvent{Sn: 0, Digest: ev.Digest, Type: ev.Type, Raw: raw}})
}

func (p *Processor) applyRevocation(ev event.Revocation, raw []byte) error {
	reg, err := p.telStateFor(ev.RegistryID)
	if err != nil {
		return err
	}
	if reg.IsZero() {
		entry := escrow.MissingRegistryEntry{RegistryID: ev.RegistryID, Raw: raw}
		p.escrows.MissingRegistry.Add(stateKey(ev.RegistryID), entry)
		return p.bus.Publish(notify.Notification{Kind: notify.MissingRegistry, Payload: entry})
	}

	cur, err := p.credStateFor(ev.Prefix, reg)
	if err != nil {
		return err
	}
	next, err := tel.ApplyRevocation(cur, reg, ev)
	if err != nil {
		switch {
		case errors.Is(err, tel.ErrOutOfOrder):
			entry := escrow.MissingIssuerEntry{ExpectedDigest: ev.RegistrySeal.Digest, Raw: raw}
			p.escrows.MissingIssuer.Add(stateKey(ev.Prefix), entry)
			return p.bus.Publish(notify.Notification{Kind: notify.MissingIssuer, Payload: entry})
		case errors.Is(err, tel.ErrNotIssued), errors.Is(err, tel.ErrBrokenChain):
			key := stateKey(ev.Prefix)
			entry := escrow.TelOutOfOrderEntry{Prefix: ev.Prefix, Sn: 1, Type: ev.Type, Raw: raw}
			p.escrows.TelOutOfOrder.Add(key, entry)
			return p.bus.Publish(notify.Notification{Kind: notify.TelOutOfOrder, Payload: entry})
		default:
			return err
		}
	}

	if err := p.store.AppendLog(ev.Prefix, eventdb.StoredEvent{Sn: 1, Digest: ev.Digest, Type: ev.Type, Raw: raw}); err != nil {
		return err
	}
	p.setCredState(ev.Prefix, next)
	return p.bus.Publish(notify.Notification{Kind: notify.TelEventAdded, Payload: eventdb.StoredEvent{Sn: 1, Digest: ev.Digest, Type: ev.Type, Raw: raw}})
}
