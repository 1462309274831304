package event

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

func TestNewRegistryInceptionFixedPoint(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	issuer := primitive.NewBasicIdentifier(primitive.Ed25519, pub)

	ev, final, err := NewRegistryInception(primitive.Blake3_256, JSON, RegistryInception{
		IssuerPrefix: issuer,
		Config:       []string{"NB"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version.Size != len(final) {
		t.Fatalf("version size %d != serialized length %d", ev.Version.Size, len(final))
	}
	if !ev.Prefix.Equal(primitive.NewSelfAddressingIdentifier(ev.Digest)) {
		t.Fatal("expected registry prefix to be self-addressing")
	}
}

func TestIssuanceAndRevocationFixedPoint(t *testing.T) {
	credSAID, _ := primitive.Sum(primitive.Blake3_256, []byte("credential body"))
	credID := primitive.NewSelfAddressingIdentifier(credSAID)
	regID, _ := primitive.Sum(primitive.Blake3_256, []byte("registry vcp bytes"))
	registryID := primitive.NewSelfAddressingIdentifier(regID)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	iss, issFinal, err := NewIssuance(primitive.Blake3_256, JSON, credID, registryID, now, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if iss.Type != Iss {
		t.Fatalf("expected type iss, got %s", iss.Type)
	}
	if iss.Version.Size != len(issFinal) {
		t.Fatalf("version size %d != serialized length %d", iss.Version.Size, len(issFinal))
	}

	rev, revFinal, err := NewRevocation(primitive.Blake3_256, JSON, credID, registryID, iss.Digest, now, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Type != Rev {
		t.Fatalf("expected type rev, got %s", rev.Type)
	}
	if rev.Version.Size != len(revFinal) {
		t.Fatalf("version size %d != serialized length %d", rev.Version.Size, len(revFinal))
	}
	if !rev.PriorDigest.Equal(iss.Digest) {
		t.Fatal("expected revocation to chain to the issuance digest")
	}
}
