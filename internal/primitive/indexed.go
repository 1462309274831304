package primitive

import "fmt"

// IndexedSignature is a Signature tagged with the signing key's index within
// the current key set. When the event is an establishment event whose next
// threshold digest differs from the current one (a rotation binding), the
// signature additionally carries the index that key holds in the *next*
// (not-yet-revealed) key set.
type IndexedSignature struct {
	Signature   Signature
	CurrentIdx  uint32
	NextIdx     uint32 // only meaningful when HasNextIdx is true
	HasNextIdx  bool
}

// NewIndexedSignature tags sig with its position in the current key set.
func NewIndexedSignature(sig Signature, currentIdx uint32) IndexedSignature {
	return IndexedSignature{Signature: sig, CurrentIdx: currentIdx}
}

// WithNextIndex additionally records the signer's index in the next key
// set, used when the current and next indices diverge under a rotation.
func (s IndexedSignature) WithNextIndex(nextIdx uint32) IndexedSignature {
	s.NextIdx = nextIdx
	s.HasNextIdx = true
	return s
}

// Verify checks the indexed signature's underlying signature against pub.
func (s IndexedSignature) Verify(algo SignatureAlgorithm, pub []byte, data []byte) (bool, error) {
	return Verify(algo, pub, data, s.Signature)
}

func (s IndexedSignature) String() string {
	if s.HasNextIdx {
		return fmt.Sprintf("sig[%d->%d]", s.CurrentIdx, s.NextIdx)
	}
	return fmt.Sprintf("sig[%d]", s.CurrentIdx)
}

// NonTransferableReceiptCouple pairs a witness's non-transferable identifier
// with its signature over a receipted event's digest.
type NonTransferableReceiptCouple struct {
	Witness   Identifier
	Signature Signature
}

// TransferableReceiptQuadruple pairs a transferable signer's last
// establishment event seal with its indexed signature over a receipted
// event's digest.
type TransferableReceiptQuadruple struct {
	SignerSeal EventSeal
	Signature  IndexedSignature
}
