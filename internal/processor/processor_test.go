package processor

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/keri-id/controller/internal/escrow"
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/eventdb/inmem"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/primitive"
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

func newProcessor() (*Processor, *inmem.Store, *escrow.Escrows, *notify.Bus) {
	store := inmem.New()
	escrows := escrow.NewEscrows(time.Hour)
	bus := notify.NewBus(nil)
	val := validator.New(nil, store)
	p := New(nil, val, store, escrows, bus, primitive.Blake3_256, event.JSON)
	return p, store, escrows, bus
}

func TestProcessNoticeAcceptsInception(t *testing.T) {
	p, store, _, bus := newProcessor()

	key0, priv0 := keyPair(t)
	key1, _ := keyPair(t)
	nextDigest := nextCommitment(t, key1)

	ev, raw, err := event.NewInception(primitive.Blake3_256, event.JSON, event.Inception{
		KeyThreshold:   primitive.NewSimpleThreshold(1),
		Keys:           []primitive.Identifier{key0},
		NextThreshold:  primitive.NewSimpleThreshold(1),
		NextKeyDigests: []primitive.Digest{nextDigest},
	})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, raw)
	if err != nil {
		t.Fatal(err)
	}

	var added int
	bus.Subscribe(notify.KelEventAdded, func(notify.Notification) { added++ })

	if err := p.ProcessNotice(ev.Prefix, raw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig, 0)}); err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Fatalf("expected one KelEventAdded notification, got %d", added)
	}

	log, err := store.GetLog(ev.Prefix, eventdb.QueryParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0].Sn != 0 {
		t.Fatalf("expected a single logged event at sn 0, got %+v", log)
	}
}

func TestProcessNoticeEscrowsOutOfOrderRotation(t *testing.T) {
	p, _, escrows, bus := newProcessor()

	key0, priv0 := keyPair(t)
	key1, priv1 := keyPair(t)
	key2, _ := keyPair(t)
	nextDigest1 := nextCommitment(t, key1)
	nextDigest2 := nextCommitment(t, key2)

	icp, icpRaw, err := event.NewInception(primitive.Blake3_256, event.JSON, event.Inception{
		KeyThreshold:   primitive.NewSimpleThreshold(1),
		Keys:           []primitive.Identifier{key0},
		NextThreshold:  primitive.NewSimpleThreshold(1),
		NextKeyDigests: []primitive.Digest{nextDigest1},
	})
	if err != nil {
		t.Fatal(err)
	}
	sig0, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessNotice(icp.Prefix, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)}); err != nil {
		t.Fatal(err)
	}

	rot1, rot1Raw, err := event.NewRotation(primitive.Blake3_256, event.JSON, event.Rotation{
		Prefix:         icp.Prefix,
		Sn:             1,
		PriorDigest:    icp.Digest,
		KeyThreshold:   primitive.NewSimpleThreshold(1),
		Keys:           []primitive.Identifier{key1},
		NextThreshold:  primitive.NewSimpleThreshold(1),
		NextKeyDigests: []primitive.Digest{nextDigest2},
	})
	if err != nil {
		t.Fatal(err)
	}
	sig1, err := primitive.Sign(primitive.SigEd25519Sha512, priv1, rot1Raw)
	if err != nil {
		t.Fatal(err)
	}

	// Build rot2 (sn 2) and deliver it before rot1 -- it must be escrowed
	// as out-of-order rather than rejected outright.
	rot2, rot2Raw, err := event.NewRotation(primitive.Blake3_256, event.JSON, event.Rotation{
		Prefix:         icp.Prefix,
		Sn:             2,
		PriorDigest:    rot1.Digest,
		KeyThreshold:   primitive.NewSimpleThreshold(1),
		Keys:           []primitive.Identifier{key2},
		NextThreshold:  primitive.NewSimpleThreshold(0),
		NextKeyDigests: nil,
	})
	if err != nil {
		t.Fatal(err)
	}

	var outOfOrder int
	bus.Subscribe(notify.OutOfOrder, func(notify.Notification) { outOfOrder++ })

	if err := p.ProcessNotice(icp.Prefix, rot2Raw, nil); err != nil {
		t.Fatal(err)
	}
	if outOfOrder != 1 {
		t.Fatalf("expected rot2 to be escrowed as out of order, got %d notifications", outOfOrder)
	}
	if escrows.OutOfOrder.Len() != 1 {
		t.Fatalf("expected 1 escrowed key, got %d", escrows.OutOfOrder.Len())
	}

	if err := p.ProcessNotice(icp.Prefix, rot1Raw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig1, 0)}); err != nil {
		t.Fatal(err)
	}

	n, err := p.RetryEscrowed(icp.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected RetryEscrowed to accept 1 entry, got %d", n)
	}

	s, err := p.stateFor(icp.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if s.Sn != 2 || !s.Keys[0].Equal(rot2.Keys[0]) {
		t.Fatalf("unexpected final state: %+v", s)
	}
}

func TestProcessReceiptEscrowsUntilThresholdMet(t *testing.T) {
	p, _, escrows, bus := newProcessor()

	key0, priv0 := keyPair(t)
	key1, _ := keyPair(t)
	nextDigest := nextCommitment(t, key1)

	witness0, _ := keyPair(t)
	witness1, _ := keyPair(t)

	icp, icpRaw, err := event.NewInception(primitive.Blake3_256, event.JSON, event.Inception{
		KeyThreshold:     primitive.NewSimpleThreshold(1),
		Keys:             []primitive.Identifier{key0},
		NextThreshold:    primitive.NewSimpleThreshold(1),
		NextKeyDigests:   []primitive.Digest{nextDigest},
		WitnessThreshold: 2,
		Witnesses:        []primitive.Identifier{witness0, witness1},
	})
	if err != nil {
		t.Fatal(err)
	}
	sig0, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessNotice(icp.Prefix, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig0, 0)}); err != nil {
		t.Fatal(err)
	}

	var partial, full int
	bus.Subscribe(notify.PartiallyWitnessed, func(notify.Notification) { partial++ })
	bus.Subscribe(notify.ReceiptAdded, func(notify.Notification) { full++ })

	couple := primitive.NonTransferableReceiptCouple{Witness: witness0}
	if err := p.ProcessReceipt(icp.Prefix, 0, []primitive.NonTransferableReceiptCouple{couple}, nil); err != nil {
		t.Fatal(err)
	}
	if partial != 1 {
		t.Fatalf("expected 1 partially-witnessed notification, got %d", partial)
	}
	if escrows.PartiallyWitnessed.Len() != 1 {
		t.Fatalf("expected the prefix to be escrowed pending a second receipt, got %d keys", escrows.PartiallyWitnessed.Len())
	}

	couple2 := primitive.NonTransferableReceiptCouple{Witness: witness1}
	if err := p.ProcessReceipt(icp.Prefix, 0, []primitive.NonTransferableReceiptCouple{couple2}, nil); err != nil {
		t.Fatal(err)
	}
	if full != 1 {
		t.Fatalf("expected 1 receipt-added notification once threshold is met, got %d", full)
	}
}
