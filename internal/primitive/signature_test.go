package primitive

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestEd25519SignVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("icp event bytes")
	sig, err := Sign(SigEd25519Sha512, priv, data)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify(SigEd25519Sha512, pub, data, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
	if ok, _ := Verify(SigEd25519Sha512, pub, []byte("different bytes"), sig); ok {
		t.Fatal("expected signature over different data to fail")
	}
}

func TestSecp256k1SignVerify(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("rot event bytes")
	sig, err := Sign(SigECDSAsecp256k1Sha256, priv.Serialize(), data)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify(SigECDSAsecp256k1Sha256, priv.PubKey().SerializeCompressed(), data, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestEd448Unsupported(t *testing.T) {
	if _, err := Sign(SigEd448, make([]byte, 57), []byte("x")); err != ErrUnsupportedAlgorithm {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
	if _, err := Verify(SigEd448, make([]byte, 57), []byte("x"), Signature{Algorithm: SigEd448}); err != ErrUnsupportedAlgorithm {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestSignatureTextRoundTrip(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	sig, err := Sign(SigEd25519Sha512, priv, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	text, err := sig.Text()
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := ParseSignature(text)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(text) {
		t.Fatalf("consumed %d of %d bytes", n, len(text))
	}
	if string(got.Bytes) != string(sig.Bytes) || got.Algorithm != sig.Algorithm {
		t.Fatalf("round trip mismatch: %+v != %+v", got, sig)
	}
	ok, err := Verify(SigEd25519Sha512, pub, []byte("x"), got)
	if err != nil || !ok {
		t.Fatalf("parsed signature failed to verify: ok=%v err=%v", ok, err)
	}
}
