package identifier

import (
	"fmt"
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/tel"
)

// PrepareInceptRegistry builds the unsigned vcp event establishing a new
// credential registry for this Controller, paired with the unsigned ixn
// that anchors the registry's inception into this Controller's own KEL --
// the anchor is what makes the registry's backer pool and chain position
// trustworthy, since a vcp event carries no signature of its own.
func (c *Controller) PrepareInceptRegistry(witnessThreshold uint64, backers []primitive.Identifier) (event.RegistryInception, []byte, event.Interaction, []byte, error) {
	s, err := c.currentState()
	if err != nil {
		return event.RegistryInception{}, nil, event.Interaction{}, nil, err
	}
	vcp, vcpRaw, err := event.NewRegistryInception(c.algo, c.kind, event.RegistryInception{
		IssuerPrefix:     s.Prefix,
		WitnessThreshold: event.SerialNumber(witnessThreshold),
		Backers:          backers,
	})
	if err != nil {
		return event.RegistryInception{}, nil, event.Interaction{}, nil, err
	}
	ixn, ixnRaw, err := c.PrepareAnchorWithSeal([]primitive.Seal{primitive.EventSealOf(vcp.Prefix, 0, vcp.Digest)})
	if err != nil {
		return event.RegistryInception{}, nil, event.Interaction{}, nil, err
	}
	return vcp, vcpRaw, ixn, ixnRaw, nil
}

// FinalizeInceptRegistry submits the vcp event and its anchoring ixn, in
// that order: the registry's own TEL must exist before anything can cite
// it, but the anchor is what a verifier trusts to prove this Controller
// actually created it.
func (c *Controller) FinalizeInceptRegistry(vcp event.RegistryInception, vcpRaw []byte, ixn event.Interaction, ixnRaw []byte, ixnSigs []primitive.IndexedSignature) (primitive.Identifier, error) {
	if err := c.proc.ProcessTelNotice(vcpRaw); err != nil {
		return primitive.Identifier{}, err
	}
	if err := c.FinalizeAnchor(ixn, ixnRaw, ixnSigs); err != nil {
		return primitive.Identifier{}, err
	}
	return vcp.Prefix, nil
}

// PrepareRotateRegistry builds the unsigned vrt event pruning/grafting
// registry's backer pool.
func (c *Controller) PrepareRotateRegistry(registry primitive.Identifier, addBackers, rmBackers []primitive.Identifier, bt uint64) (event.RegistryRotation, []byte, error) {
	reg, err := c.proc.RegistryState(registry)
	if err != nil {
		return event.RegistryRotation{}, nil, err
	}
	if reg.IsZero() {
		return event.RegistryRotation{}, nil, fmt.Errorf("identifier: registry %s has no vcp yet", registry)
	}
	return event.NewRegistryRotation(c.algo, c.kind, event.RegistryRotation{
		Prefix:           registry,
		PriorDigest:      reg.LastDigest,
		Sn:               event.SerialNumber(reg.Sn + 1),
		WitnessThreshold: event.SerialNumber(bt),
		BackersPruned:    rmBackers,
		BackersGrafted:   addBackers,
	})
}

// FinalizeRotateRegistry submits the vrt event. A registry's
// backers are not this Controller's own keys, so a vrt carries no
// indexed-signature set of its own; trust comes from the same mechanism
// as a vcp -- an anchoring ixn the caller submits separately via
// FinalizeAnchor.
func (c *Controller) FinalizeRotateRegistry(raw []byte) error {
	return c.proc.ProcessTelNotice(raw)
}

// PrepareIssue builds the unsigned iss (or bis, when backed) event issuing
// credentialSAID against registry, paired with the unsigned ixn anchoring
// it into this Controller's KEL.
func (c *Controller) PrepareIssue(registry, credentialSAID primitive.Identifier, backed bool) (event.Issuance, []byte, event.Interaction, []byte, error) {
	reg, err := c.proc.RegistryState(registry)
	if err != nil {
		return event.Issuance{}, nil, event.Interaction{}, nil, err
	}
	if reg.IsZero() {
		return event.Issuance{}, nil, event.Interaction{}, nil, fmt.Errorf("identifier: registry %s has no vcp yet", registry)
	}
	var regSeal *primitive.Seal
	if backed {
		seal := primitive.EventSealOf(registry, reg.Sn, reg.LastDigest)
		regSeal = &seal
	}
	iss, issRaw, err := event.NewIssuance(c.algo, c.kind, credentialSAID, registry, time.Now(), backed, regSeal)
	if err != nil {
		return event.Issuance{}, nil, event.Interaction{}, nil, err
	}
	ixn, ixnRaw, err := c.PrepareAnchorWithSeal([]primitive.Seal{primitive.EventSealOf(iss.Prefix, 0, iss.Digest)})
	if err != nil {
		return event.Issuance{}, nil, event.Interaction{}, nil, err
	}
	return iss, issRaw, ixn, ixnRaw, nil
}

// FinalizeIssue submits the iss/bis event and its anchoring ixn.
func (c *Controller) FinalizeIssue(issRaw []byte, ixn event.Interaction, ixnRaw []byte, ixnSigs []primitive.IndexedSignature) error {
	if err := c.proc.ProcessTelNotice(issRaw); err != nil {
		return err
	}
	return c.FinalizeAnchor(ixn, ixnRaw, ixnSigs)
}

// PrepareRevoke builds the unsigned rev (or brv, when backed) event
// retiring credentialSAID, paired with the unsigned anchoring ixn.
// priorDigest is the iss/bis event's own digest, the chain link a
// revocation must cite.
func (c *Controller) PrepareRevoke(registry, credentialSAID primitive.Identifier, priorDigest primitive.Digest, backed bool) (event.Revocation, []byte, event.Interaction, []byte, error) {
	reg, err := c.proc.RegistryState(registry)
	if err != nil {
		return event.Revocation{}, nil, event.Interaction{}, nil, err
	}
	if reg.IsZero() {
		return event.Revocation{}, nil, event.Interaction{}, nil, fmt.Errorf("identifier: registry %s has no vcp yet", registry)
	}
	var regSeal *primitive.Seal
	if backed {
		seal := primitive.EventSealOf(registry, reg.Sn, reg.LastDigest)
		regSeal = &seal
	}
	rev, revRaw, err := event.NewRevocation(c.algo, c.kind, credentialSAID, registry, priorDigest, time.Now(), backed, regSeal)
	if err != nil {
		return event.Revocation{}, nil, event.Interaction{}, nil, err
	}
	ixn, ixnRaw, err := c.PrepareAnchorWithSeal([]primitive.Seal{primitive.EventSealOf(rev.Prefix, 1, rev.Digest)})
	if err != nil {
		return event.Revocation{}, nil, event.Interaction{}, nil, err
	}
	return rev, revRaw, ixn, ixnRaw, nil
}

// FinalizeRevoke submits the rev/brv event and its anchoring ixn.
func (c *Controller) FinalizeRevoke(revRaw []byte, ixn event.Interaction, ixnRaw []byte, ixnSigs []primitive.IndexedSignature) error {
	if err := c.proc.ProcessTelNotice(revRaw); err != nil {
		return err
	}
	return c.FinalizeAnchor(ixn, ixnRaw, ixnSigs)
}

// CredentialStatus reports a credential's current issuance/revocation
// state, for a caller deciding whether to accept a presented credential.
func (c *Controller) CredentialStatus(credentialSAID, registry primitive.Identifier) (tel.CredentialState, error) {
	return c.proc.CredentialState(credentialSAID, registry)
}
