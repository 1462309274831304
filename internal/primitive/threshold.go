package primitive

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Threshold is either a simple numeric signing threshold or a weighted
// threshold expressed as a fraction per key index (weights summing to at
// least 1 satisfy the threshold).
type Threshold struct {
	Simple  uint32
	Weights []Fraction // non-nil iff this is a weighted threshold
}

// Fraction is a reduced numerator/denominator pair, e.g. 1/2.
type Fraction struct {
	Num, Den uint32
}

func (f Fraction) float() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// NewSimpleThreshold builds a plain numeric threshold (kt/nt expressed as
// "at least n signatures").
func NewSimpleThreshold(n uint32) Threshold { return Threshold{Simple: n} }

// NewWeightedThreshold builds a weighted threshold over per-index fractions.
func NewWeightedThreshold(weights ...Fraction) Threshold {
	return Threshold{Weights: weights}
}

// IsWeighted reports whether t is a weighted (fractional) threshold.
func (t Threshold) IsWeighted() bool { return len(t.Weights) > 0 }

// Satisfied reports whether the signing indices in present (keys by key
// index) meet the threshold: for a simple threshold, at least Simple
// distinct indices; for a weighted threshold, the sum of weights at the
// present indices is >= 1.
func (t Threshold) Satisfied(present map[uint32]bool) bool {
	if t.IsWeighted() {
		var sum float64
		for idx := range present {
			if int(idx) < len(t.Weights) {
				sum += t.Weights[idx].float()
			}
		}
		return sum >= 1.0
	}
	return uint32(len(present)) >= t.Simple
}

// Validate reports whether a weighted threshold's fractions can ever sum to
// at least 1 across all of its keys (a weighted threshold whose weights sum
// to less than 1 can never be satisfied and is malformed).
func (t Threshold) Validate() error {
	if !t.IsWeighted() {
		return nil
	}
	var sum float64
	for _, w := range t.Weights {
		sum += w.float()
	}
	if sum < 1.0 {
		return fmt.Errorf("primitive: weighted threshold fractions sum to %.4f, need >= 1", sum)
	}
	return nil
}

func (f Fraction) String() string {
	if f.Den == 0 || f.Den == 1 {
		return strconv.Itoa(int(f.Num))
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

func parseFraction(s string) (Fraction, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return Fraction{Num: uint32(i), Den: 1}, nil
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Fraction{}, fmt.Errorf("primitive: bad weight fraction %q", s)
	}
	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || den == 0 {
		return Fraction{}, fmt.Errorf("primitive: bad weight fraction %q", s)
	}
	return Fraction{Num: uint32(num), Den: uint32(den)}, nil
}

// MarshalJSON renders a simple threshold as a hex-string signing count
// ("2") and a weighted threshold as a single-clause array of fraction
// strings (["1/2","1/2","1/2"]), matching KERI's kt/nt field conventions.
func (t Threshold) MarshalJSON() ([]byte, error) {
	if t.IsWeighted() {
		strs := make([]string, len(t.Weights))
		for i, w := range t.Weights {
			strs[i] = w.String()
		}
		return json.Marshal(strs)
	}
	return json.Marshal(strconv.FormatUint(uint64(t.Simple), 16))
}

// UnmarshalJSON accepts either a numeric-string simple threshold or a
// weighted fraction-string array.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		n, err := strconv.ParseUint(asString, 16, 32)
		if err != nil {
			return fmt.Errorf("primitive: bad simple threshold %q: %w", asString, err)
		}
		*t = Threshold{Simple: uint32(n)}
		return nil
	}
	var asStrings []string
	if err := json.Unmarshal(data, &asStrings); err != nil {
		return fmt.Errorf("primitive: bad threshold value %s: %w", data, err)
	}
	weights := make([]Fraction, len(asStrings))
	for i, s := range asStrings {
		f, err := parseFraction(s)
		if err != nil {
			return err
		}
		weights[i] = f
	}
	*t = Threshold{Weights: weights}
	return nil
}
