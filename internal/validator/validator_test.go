package validator

import (
	"errors"
	"testing"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/state"

	"crypto/ed25519"
	"crypto/rand"
)

type fakeDup struct {
	digest primitive.Digest
	found  bool
}

func (f fakeDup) ExistingDigestAtSn(primitive.Identifier, uint64) (primitive.Digest, bool, error) {
	return f.digest, f.found, nil
}

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

func TestValidatorInceptionAccepts(t *testing.T) {
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

	v := New(nil, nil)
	s, err := v.Inception(primitive.Blake3_256, event.JSON, ev, raw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if s.Sn != 0 || !s.Keys[0].Equal(key0) {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestValidatorInceptionRejectsPartiallySigned(t *testing.T) {
	key0, _ := keyPair(t)
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

	v := New(nil, nil)
	_, err = v.Inception(primitive.Blake3_256, event.JSON, ev, raw, nil)
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != PartiallySigned {
		t.Fatalf("expected PartiallySigned, got %v", err)
	}
}

func TestValidatorInceptionRejectsInvalidSignature(t *testing.T) {
	key0, _ := keyPair(t)
	_, otherPriv := keyPair(t)
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
	// Sign with the wrong private key -- should fail verification against key0.
	sig, err := primitive.Sign(primitive.SigEd25519Sha512, otherPriv, raw)
	if err != nil {
		t.Fatal(err)
	}

	v := New(nil, nil)
	_, err = v.Inception(primitive.Blake3_256, event.JSON, ev, raw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig, 0)})
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != InvalidSignature {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}
}

func TestValidatorInceptionRejectsDuplicate(t *testing.T) {
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
	otherDigest, _ := primitive.Sum(primitive.Blake3_256, []byte("a different event"))

	v := New(nil, fakeDup{digest: otherDigest, found: true})
	_, err = v.Inception(primitive.Blake3_256, event.JSON, ev, raw, []primitive.IndexedSignature{primitive.NewIndexedSignature(sig, 0)})
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != DuplicateAtSn {
		t.Fatalf("expected DuplicateAtSn, got %v", err)
	}
}

func TestValidatorRotationRejectsBrokenChain(t *testing.T) {
	key0, priv0 := keyPair(t)
	key1, _ := keyPair(t)
	nextDigest := nextCommitment(t, key1)

	icp, icpRaw, err := event.NewInception(primitive.Blake3_256, event.JSON, event.Inception{
		KeyThreshold:   primitive.NewSimpleThreshold(1),
		Keys:           []primitive.Identifier{key0},
		NextThreshold:  primitive.NewSimpleThreshold(1),
		NextKeyDigests: []primitive.Digest{nextDigest},
	})
	if err != nil {
		t.Fatal(err)
	}
	icpSig, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, icpRaw)
	if err != nil {
		t.Fatal(err)
	}

	v := New(nil, nil)
	s, err := v.Inception(primitive.Blake3_256, event.JSON, icp, icpRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(icpSig, 0)})
	if err != nil {
		t.Fatal(err)
	}

	wrongPrior, _ := primitive.Sum(primitive.Blake3_256, []byte("not the icp digest"))
	rot, rotRaw, err := event.NewRotation(primitive.Blake3_256, event.JSON, event.Rotation{
		Sn:            1,
		PriorDigest:   wrongPrior,
		KeyThreshold:  primitive.NewSimpleThreshold(1),
		Keys:          []primitive.Identifier{key1},
		NextThreshold: primitive.NewSimpleThreshold(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	rotSig, err := primitive.Sign(primitive.SigEd25519Sha512, priv0, rotRaw)
	if err != nil {
		t.Fatal(err)
	}

	_, err = v.Rotation(primitive.Blake3_256, event.JSON, s, rot, rotRaw, []primitive.IndexedSignature{primitive.NewIndexedSignature(rotSig, 0)})
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != BrokenChain {
		t.Fatalf("expected BrokenChain, got %v", err)
	}
	if !errors.Is(err, state.ErrBrokenChain) {
		t.Fatal("expected errors.Is to still reach the underlying state sentinel")
	}
}
