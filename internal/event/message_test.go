package event

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

func TestNewReceiptFixedPoint(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	prefix := primitive.NewBasicIdentifier(primitive.Ed25519, pub)
	d, _ := primitive.Sum(primitive.Blake3_256, []byte("receipted event"))

	ev, final, err := NewReceipt(JSON, prefix, 3, d)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version.Size != len(final) {
		t.Fatalf("version size %d != serialized length %d", ev.Version.Size, len(final))
	}
	if ev.Sn != 3 {
		t.Fatalf("expected sn 3, got %d", ev.Sn)
	}
}

func TestNewReplyFixedPoint(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev, final, err := NewReply(JSON, LocationSchemeRoute, now, map[string]any{"scheme": "http", "url": "http://localhost:5631"})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version.Size != len(final) {
		t.Fatalf("version size %d != serialized length %d", ev.Version.Size, len(final))
	}
	if ev.Route != LocationSchemeRoute {
		t.Fatalf("expected route %q, got %q", LocationSchemeRoute, ev.Route)
	}
}

func TestNewQueryFixedPoint(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev, final, err := NewQuery(JSON, KeyStateQueryRoute, "/end/role/add", now, map[string]any{"i": "EA..."})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version.Size != len(final) {
		t.Fatalf("version size %d != serialized length %d", ev.Version.Size, len(final))
	}
}

func TestNewExchangeFixedPoint(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	sender := primitive.NewBasicIdentifier(primitive.Ed25519, pub)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ev, final, err := NewExchange(primitive.Blake3_256, JSON, sender, MultisigProposeRoute, now, map[string]any{"gid": "EB..."}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version.Size != len(final) {
		t.Fatalf("version size %d != serialized length %d", ev.Version.Size, len(final))
	}
	if ev.Type != Exn {
		t.Fatalf("expected type exn, got %s", ev.Type)
	}
}
