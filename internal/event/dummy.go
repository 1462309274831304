package event

import "github.com/keri-id/controller/internal/primitive"

// BuildDigest runs the fixed-point construction every event goes through
// before it is final: the digest field starts as a same-length all-zero
// sentinel so the serialized size is stable, the `v` size field is filled
// in from a first measurement pass, and only then is the real self-
// addressing digest computed over the now size-correct bytes and written
// back in for a last, final serialization.
//
// setSize and setDigest mutate the event in place; marshal re-serializes
// it under the event's current field values.
func BuildDigest(
	algo primitive.DigestAlgorithm,
	setSize func(int),
	setDigest func(primitive.Digest),
	marshal func() ([]byte, error),
) ([]byte, primitive.Digest, error) {
	setDigest(primitive.Digest{Algorithm: algo, Bytes: make([]byte, primitive.RawSize(algo))})
	setSize(0)

	sized, err := marshal()
	if err != nil {
		return nil, primitive.Digest{}, err
	}
	setSize(len(sized))

	measured, err := marshal()
	if err != nil {
		return nil, primitive.Digest{}, err
	}

	real, err := primitive.Sum(algo, measured)
	if err != nil {
		return nil, primitive.Digest{}, err
	}
	setDigest(real)

	final, err := marshal()
	if err != nil {
		return nil, primitive.Digest{}, err
	}
	return final, real, nil
}

// FinalizeSize runs the size-measuring half of the fixed-point protocol for
// messages that carry no self-addressing digest of their own (rct/rpy/qry/
// exn reference another event's digest, they don't derive one).
func FinalizeSize(setSize func(int), marshal func() ([]byte, error)) ([]byte, error) {
	setSize(0)
	sized, err := marshal()
	if err != nil {
		return nil, err
	}
	setSize(len(sized))
	return marshal()
}
