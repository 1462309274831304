package processor

import (
	"testing"
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/primitive"
)

func selfAddressing(t *testing.T, seed string) primitive.Identifier {
	t.Helper()
	d, err := primitive.Sum(primitive.Blake3_256, []byte(seed))
	if err != nil {
		t.Fatal(err)
	}
	return primitive.NewSelfAddressingIdentifier(d)
}

func TestProcessTelNoticeAcceptsRegistryInceptionAndIssuance(t *testing.T) {
	p, _, _, bus := newProcessor()
	issuer := selfAddressing(t, "issuer")

	var added int
	bus.Subscribe(notify.TelEventAdded, func(notify.Notification) { added++ })

	vcp, vcpRaw, err := event.NewRegistryInception(primitive.Blake3_256, event.JSON, event.RegistryInception{
		IssuerPrefix: issuer,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(vcpRaw); err != nil {
		t.Fatal(err)
	}

	credential := selfAddressing(t, "credential")
	_, issRaw, err := event.NewIssuance(primitive.Blake3_256, event.JSON, credential, vcp.Prefix, time.Now(), false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(issRaw); err != nil {
		t.Fatal(err)
	}

	if added != 2 {
		t.Fatalf("expected 2 TelEventAdded notifications, got %d", added)
	}

	c, err := p.CredentialState(credential, vcp.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Issued || c.Revoked {
		t.Fatalf("expected an issued, unrevoked credential, got %+v", c)
	}
}

func TestProcessTelNoticeEscrowsIssuanceForUnknownRegistry(t *testing.T) {
	p, _, escrows, bus := newProcessor()

	var missing int
	bus.Subscribe(notify.MissingRegistry, func(notify.Notification) { missing++ })

	registry := selfAddressing(t, "never-incepted")
	credential := selfAddressing(t, "credential")
	_, issRaw, err := event.NewIssuance(primitive.Blake3_256, event.JSON, credential, registry, time.Now(), false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(issRaw); err != nil {
		t.Fatal(err)
	}
	if missing != 1 {
		t.Fatalf("expected 1 missing-registry notification, got %d", missing)
	}
	if escrows.MissingRegistry.Len() != 1 {
		t.Fatalf("expected 1 escrowed entry, got %d", escrows.MissingRegistry.Len())
	}
}

func TestProcessTelNoticeRevokesIssuedCredential(t *testing.T) {
	p, _, _, _ := newProcessor()
	issuer := selfAddressing(t, "issuer2")

	vcp, vcpRaw, err := event.NewRegistryInception(primitive.Blake3_256, event.JSON, event.RegistryInception{
		IssuerPrefix: issuer,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(vcpRaw); err != nil {
		t.Fatal(err)
	}

	credential := selfAddressing(t, "credential2")
	iss, issRaw, err := event.NewIssuance(primitive.Blake3_256, event.JSON, credential, vcp.Prefix, time.Now(), false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(issRaw); err != nil {
		t.Fatal(err)
	}

	_, revRaw, err := event.NewRevocation(primitive.Blake3_256, event.JSON, credential, vcp.Prefix, iss.Digest, time.Now(), false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessTelNotice(revRaw); err != nil {
		t.Fatal(err)
	}

	c, err := p.CredentialState(credential, vcp.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Revoked {
		t.Fatalf("expected a revoked credential, got %+v", c)
	}
}
