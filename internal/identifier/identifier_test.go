package identifier

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/keri-id/controller/internal/escrow"
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb/inmem"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/processor"
	"github.com/keri-id/controller/internal/validator"
)

func keyPair(t *testing.T) (primitive.Identifier, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return primitive.NewBasicIdentifier(primitive.Ed25519, pub), priv
}

func nextCommitment(t *testing.T, id primitive.Identifier) primitive.Digest {
	t.Helper()
	text, err := id.Text()
	if err != nil {
		t.Fatal(err)
	}
	d, err := primitive.Sum(primitive.Blake3_256, []byte(text))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newController() *Controller {
	store := inmem.New()
	escrows := escrow.NewEscrows(time.Hour)
	bus := notify.NewBus(nil)
	val := validator.New(nil, store)
	p := processor.New(nil, val, store, escrows, bus, primitive.Blake3_256, event.JSON)
	return New(p, store, nil, nil, bus, primitive.Blake3_256, event.JSON)
}

func TestInceptRotate(t *testing.T) {
	c := newController()

	key0, priv0 := keyPair(t)
	key1, priv1 := keyPair(t)
	witness0, _ := keyPair(t)

	icp, icpRaw, err := c.PrepareIncept([]primitive.Identifier{key0}, []primitive.Identifier{key1}, []primitive.Identifier{witness0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	sig0, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}
	prefix, err := c.FinalizeIncept(icp, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if !prefix.Equal(icp.Prefix) {
		t.Fatalf("expected bound prefix to equal the icp event's own prefix")
	}
	if _, err := c.FinalizeIncept(icp, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)}); err == nil {
		t.Fatalf("expected a second incept attempt to fail")
	}

	key2, _ := keyPair(t)
	rot, rotRaw, err := c.PrepareRotate([]primitive.Identifier{key1}, []primitive.Identifier{key2}, nil, nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rot.Sn != 1 {
		t.Fatalf("expected rotation at sn 1, got %d", rot.Sn)
	}
	sig1, err := primitive.Sign(primitive.SigEd25519Sha512, priv1, rotRaw)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.FinalizeRotate(rot, rotRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig1, 0)}); err != nil {
		t.Fatal(err)
	}

	s, err := c.currentState()
	if err != nil {
		t.Fatal(err)
	}
	if s.Sn != 1 || !s.Keys[0].Equal(key1) {
		t.Fatalf("expected state sn 1 with key1 active, got %+v", s)
	}
}

func TestPrepareAnchorChainsFromCurrentState(t *testing.T) {
	c := newController()

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

	digest, err := primitive.Sum(primitive.Blake3_256, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	ixn, ixnRaw, err := c.PrepareAnchor([]primitive.Digest{digest})
	if err != nil {
		t.Fatal(err)
	}
	if ixn.Sn != 1 {
		t.Fatalf("expected ixn at sn 1, got %d", ixn.Sn)
	}
	if !ixn.PriorDigest.Equal(icp.Digest) {
		t.Fatalf("expected ixn to chain from icp's digest")
	}

	sig1, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, ixnRaw)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.FinalizeAnchor(ixn, ixnRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig1, 0)}); err != nil {
		t.Fatal(err)
	}

	s, err := c.currentState()
	if err != nil {
		t.Fatal(err)
	}
	if s.Sn != 1 {
		t.Fatalf("expected sn 1 after the anchoring ixn, got %d", s.Sn)
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	c := newController()

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

	payload := []byte("attestation payload")
	sig, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, payload)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := c.Sign(sig, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Verify(payload, c.Prefix(), ts); err != nil {
		t.Fatalf("expected verification to succeed, got %v", err)
	}

	if err := c.Verify([]byte("tampered"), c.Prefix(), ts); err == nil {
		t.Fatalf("expected verification of a tampered payload to fail")
	}
}

func TestQueryMailboxRequiresTransport(t *testing.T) {
	c := newController()
	_, err := c.QueryMailbox(nil, c.Prefix(), nil)
	if err == nil {
		t.Fatalf("expected an error with no transport configured")
	}
}
