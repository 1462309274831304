package primitive

import "testing"

func TestGroupHeaderRoundTrip(t *testing.T) {
	for _, count := range []int{0, 1, 63, 64, 4095} {
		header, err := EncodeGroupHeader(GroupIndexedControllerSignatures, count)
		if err != nil {
			t.Fatalf("count=%d: %v", count, err)
		}
		code, n, consumed, err := DecodeGroupHeader(header)
		if err != nil {
			t.Fatalf("count=%d: decode: %v", count, err)
		}
		if code != GroupIndexedControllerSignatures || n != count || consumed != 4 {
			t.Fatalf("count=%d: got code=%s n=%d consumed=%d", count, code, n, consumed)
		}
	}
}

func TestEncodeGroupHeaderRejectsOutOfRange(t *testing.T) {
	if _, err := EncodeGroupHeader(GroupFrame, 4096); err == nil {
		t.Fatal("expected error for count above 4095")
	}
	if _, err := EncodeGroupHeader(GroupFrame, -1); err == nil {
		t.Fatal("expected error for negative count")
	}
}

func TestMaterialPathRoundTrip(t *testing.T) {
	p := NewMaterialPath("-a", "0", "d")
	text, err := p.Text()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseMaterialPath(text)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != p.String() {
		t.Fatalf("round trip mismatch: %q != %q", got.String(), p.String())
	}
}

func TestSerialNumberRoundTrip(t *testing.T) {
	for _, sn := range []uint64{0, 1, 255, 1 << 40} {
		text := EncodeSerialNumber(sn)
		got, n, err := DecodeSerialNumber(text)
		if err != nil {
			t.Fatalf("sn=%d: %v", sn, err)
		}
		if got != sn || n != len(text) {
			t.Fatalf("sn=%d: got=%d consumed=%d/%d", sn, got, n, len(text))
		}
	}
}
