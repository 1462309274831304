package primitive

import (
	"encoding/json"
	"testing"
)

func TestSimpleThresholdSatisfied(t *testing.T) {
	th := NewSimpleThreshold(2)
	if th.Satisfied(map[uint32]bool{0: true}) {
		t.Fatal("one signer should not satisfy threshold 2")
	}
	if !th.Satisfied(map[uint32]bool{0: true, 1: true}) {
		t.Fatal("two signers should satisfy threshold 2")
	}
}

func TestWeightedThresholdSatisfied(t *testing.T) {
	th := NewWeightedThreshold(Fraction{1, 2}, Fraction{1, 2}, Fraction{1, 2})
	if th.Satisfied(map[uint32]bool{0: true}) {
		t.Fatal("weight 1/2 alone should not satisfy")
	}
	if !th.Satisfied(map[uint32]bool{0: true, 1: true}) {
		t.Fatal("weights 1/2 + 1/2 should satisfy")
	}
	if err := th.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestWeightedThresholdValidateRejectsShortfall(t *testing.T) {
	th := NewWeightedThreshold(Fraction{1, 3}, Fraction{1, 3})
	if err := th.Validate(); err == nil {
		t.Fatal("expected validation error for weights summing below 1")
	}
}

func TestThresholdJSONRoundTripSimple(t *testing.T) {
	th := NewSimpleThreshold(3)
	buf, err := json.Marshal(th)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != `"3"` {
		t.Fatalf("expected hex-string \"3\", got %s", buf)
	}
	var got Threshold
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if got.Simple != 3 || got.IsWeighted() {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestThresholdJSONRoundTripWeighted(t *testing.T) {
	th := NewWeightedThreshold(Fraction{1, 2}, Fraction{1, 2})
	buf, err := json.Marshal(th)
	if err != nil {
		t.Fatal(err)
	}
	var got Threshold
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if !got.IsWeighted() || len(got.Weights) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Satisfied(map[uint32]bool{0: true, 1: true}) {
		t.Fatal("round-tripped weighted threshold lost its weights")
	}
}
