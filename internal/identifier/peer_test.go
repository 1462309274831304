package identifier

import (
	"context"
	"testing"

	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport/inmem"
)

func newControllerWithTransport(router *inmem.Router) *Controller {
	c := newController()
	c.transport = router
	return c
}

func TestHandleMessageDeliversExchangeToMailbox(t *testing.T) {
	router := inmem.New()

	sender := newControllerWithTransport(router)
	recipient := newControllerWithTransport(router)

	key0, priv0 := keyPair(t)
	key1, _ := keyPair(t)
	icp, icpRaw, err := recipient.PrepareIncept([]primitive.Identifier{key0}, []primitive.Identifier{key1}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	sig0, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := recipient.FinalizeIncept(icp, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)}); err != nil {
		t.Fatal(err)
	}
	router.Register(recipient.Prefix(), recipient)

	coSigner, _ := keyPair(t)
	if err := sender.ProposeGroupInception(context.Background(), icp, icpRaw, []primitive.Identifier{recipient.Prefix()}); err != nil {
		t.Fatal(err)
	}
	_ = coSigner

	pending := recipient.PendingGroupProposals()
	if len(pending) != 1 {
		t.Fatalf("expected one queued multisig proposal, got %d", len(pending))
	}
}

func TestHandleQueryAnswersMailboxQuery(t *testing.T) {
	router := inmem.New()
	c := newControllerWithTransport(router)

	key0, priv0 := keyPair(t)
	key1, _ := keyPair(t)
	icp, icpRaw, err := c.PrepareIncept([]primitive.Identifier{key0}, []primitive.Identifier{key1}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	sig0, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.FinalizeIncept(icp, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)}); err != nil {
		t.Fatal(err)
	}
	router.Register(c.Prefix(), c)

	replies, err := c.QueryMailbox(context.Background(), c.Prefix(), []primitive.Identifier{c.Prefix()})
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected one reachable reply, got %d", len(replies))
	}
}
