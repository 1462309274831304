package identifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// Index returns self's position within keys, the signing index a group
// co-signer uses to locate itself on a shared establishment event. The
// second return is false if self does not appear in keys at all.
func Index(keys []primitive.Identifier, self primitive.Identifier) (uint32, bool) {
	for i, k := range keys {
		if k.Equal(self) {
			return uint32(i), true
		}
	}
	return 0, false
}

// IsLeader reports whether ownIndex is the unique publisher for an event
// that present (the signing indices that have already signed) describes:
// the participant whose signing index equals the minimum signing index
// present on the event is the one responsible for broadcasting it once
// enough signatures have been collected.
func IsLeader(ownIndex uint32, present map[uint32]bool) bool {
	if len(present) == 0 {
		return false
	}
	min := ownIndex
	found := false
	for idx := range present {
		if !found || idx < min {
			min, found = idx, true
		}
	}
	return ownIndex == min
}

// ProposeGroupInception sends the unsigned icp event for a group identifier
// to every co-signer's mailbox (all keys but self) as a MultisigProposeRoute
// exn, so each can independently sign and submit their own copy. Every
// co-signer receives the same proposal ID (gid), letting them correlate
// replies to this proposal if another leader's competing proposal for the
// same group is in flight concurrently.
func (c *Controller) ProposeGroupInception(ctx context.Context, ev event.Inception, raw []byte, coSigners []primitive.Identifier) error {
	if c.transport == nil {
		return fmt.Errorf("identifier: no transport configured")
	}
	text, err := ev.Prefix.Text()
	if err != nil {
		return err
	}
	gid := uuid.New().String()
	exn, exnRaw, err := event.NewExchange(c.algo, c.kind, c.Prefix(), event.MultisigProposeRoute, time.Now(),
		map[string]any{"gid": gid, "i": text, "icp": string(raw)}, nil)
	if err != nil {
		return err
	}
	for _, signer := range coSigners {
		if err := c.transport.SendMessage(ctx, signer, exnRaw, nil); err != nil {
			continue
		}
	}
	_ = exn
	return nil
}

// PendingGroupProposals drains the multisig topic of this Controller's
// mailbox, returning every exn a fellow group co-signer has proposed.
func (c *Controller) PendingGroupProposals() []event.Exchange {
	return c.mailbox.Drain(TopicMultisig)
}

// PrepareDelegateAnchor builds the unsigned ixn this delegator uses to
// approve a delegated event, anchoring an event seal pinning the
// delegate's (prefix, sn, digest).
func (c *Controller) PrepareDelegateAnchor(delegated primitive.EventSeal) (event.Interaction, []byte, error) {
	return c.PrepareAnchorWithSeal([]primitive.Seal{primitive.EventSealOf(delegated.Prefix, delegated.Sn, delegated.Digest)})
}

// FinalizeDelegate submits the delegator's signed anchoring ixn and, on
// success, sends the delegate an exn carrying the raw ixn (under
// "delegator_ixn") so the delegate's missing-delegator escrow entry can be
// retried.
func (c *Controller) FinalizeDelegate(ctx context.Context, ixn event.Interaction, raw []byte, sigs []primitive.IndexedSignature, delegate primitive.Identifier) error {
	if err := c.FinalizeAnchor(ixn, raw, sigs); err != nil {
		return err
	}
	if c.transport == nil {
		return fmt.Errorf("identifier: no transport configured")
	}
	exn, exnRaw, err := event.NewExchange(c.algo, c.kind, c.Prefix(), event.DelegateRequestRoute, time.Now(),
		map[string]any{"delegator_ixn": string(raw)}, nil)
	if err != nil {
		return err
	}
	_ = exn
	return c.transport.SendMessage(ctx, delegate, exnRaw, nil)
}
