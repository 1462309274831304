package inmem

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/oobi"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

func subjectID(t *testing.T) primitive.Identifier {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return primitive.NewBasicIdentifier(primitive.Ed25519, pub)
}

func locSchemeReply(t *testing.T, id primitive.Identifier, at time.Time, url string) event.Reply {
	t.Helper()
	idText, err := id.Text()
	if err != nil {
		t.Fatal(err)
	}
	reply, _, err := event.NewReply(event.JSON, event.LocationSchemeRoute, at, map[string]any{
		"i":       idText,
		"schemes": []any{map[string]any{"scheme": "http", "url": url}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestSaveAndGetLocScheme(t *testing.T) {
	s := New()
	id := subjectID(t)
	reply := locSchemeReply(t, id, time.Unix(100, 0), "http://witness.example/")

	if err := s.SaveOOBI(oobi.SignedReply{Reply: reply}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLocScheme(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "http://witness.example/" {
		t.Fatalf("unexpected loc schemes: %+v", got)
	}
}

func TestSaveOOBIIgnoresStaleReply(t *testing.T) {
	s := New()
	id := subjectID(t)

	newer := locSchemeReply(t, id, time.Unix(200, 0), "http://new.example/")
	older := locSchemeReply(t, id, time.Unix(100, 0), "http://old.example/")

	if err := s.SaveOOBI(oobi.SignedReply{Reply: newer}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveOOBI(oobi.SignedReply{Reply: older}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLocScheme(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "http://new.example/" {
		t.Fatalf("expected the newer reply to win, got %+v", got)
	}
}

func TestGetEndRoleReturnsEmptyWhenUnsaved(t *testing.T) {
	s := New()
	got, err := s.GetEndRole(subjectID(t), transport.RoleWitness)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no end roles, got %+v", got)
	}
}

func TestSaveOOBIRejectsReplyWithNoSubject(t *testing.T) {
	s := New()
	reply, _, err := event.NewReply(event.JSON, event.LocationSchemeRoute, time.Unix(1, 0), map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveOOBI(oobi.SignedReply{Reply: reply}); err == nil {
		t.Fatal("expected an error for a reply with no subject identifier")
	}
}
