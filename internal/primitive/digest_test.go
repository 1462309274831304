package primitive

import "testing"

func TestDigestRoundTrip(t *testing.T) {
	algos := []DigestAlgorithm{Blake3_256, Blake3_512, Blake2b256, Blake2b512, Blake2s256, SHA2_256, SHA2_512, SHA3_256, SHA3_512}
	for _, algo := range algos {
		d, err := Sum(algo, []byte("the quick brown fox"))
		if err != nil {
			t.Fatalf("%s: Sum: %v", algo, err)
		}
		text, err := d.Text()
		if err != nil {
			t.Fatalf("%s: Text: %v", algo, err)
		}
		got, n, err := ParseDigest(text)
		if err != nil {
			t.Fatalf("%s: ParseDigest(%q): %v", algo, text, err)
		}
		if n != len(text) {
			t.Fatalf("%s: consumed %d of %d bytes", algo, n, len(text))
		}
		if !got.Equal(d) {
			t.Fatalf("%s: round trip mismatch: %+v != %+v", algo, got, d)
		}
	}
}

func TestDigestVerifyBinding(t *testing.T) {
	d, err := Sum(Blake3_256, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if !d.VerifyBinding([]byte("payload")) {
		t.Fatal("expected binding to verify")
	}
	if d.VerifyBinding([]byte("tampered")) {
		t.Fatal("expected binding to fail on tampered data")
	}
}

func TestDigestSizeMatchesText(t *testing.T) {
	for algo := range digestCode {
		d, err := Sum(algo, []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		text, err := d.Text()
		if err != nil {
			t.Fatal(err)
		}
		if got := Size(algo); got != len(text) {
			t.Errorf("%s: Size()=%d, Text() length=%d", algo, got, len(text))
		}
	}
}

func TestParseDigestRejectsUnknownCode(t *testing.T) {
	if _, _, err := ParseDigest("zzzznotacode"); err == nil {
		t.Fatal("expected error for unrecognized digest code")
	}
}
