package primitive

import (
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
)

// MaterialPath is a self-describing pointer into a signed structure (e.g.
// "which field of a multisig `exn` payload this attachment modifies"),
// carried in the PathedMaterialQuadruplet attachment group. It reuses the
// multibase self-describing-prefix convention (a leading base identifier
// byte followed by the encoded payload) that CESR derivation codes are
// themselves modelled on, rather than inventing a second one.
type MaterialPath struct {
	Segments []string
}

// NewMaterialPath builds a path from "/"-separated segments, e.g. "-a/0".
func NewMaterialPath(segments ...string) MaterialPath {
	return MaterialPath{Segments: segments}
}

// Text encodes the path as a multibase base64url string.
func (p MaterialPath) Text() (string, error) {
	raw := []byte(strings.Join(p.Segments, "/"))
	return multibase.Encode(multibase.Base64url, raw)
}

// ParseMaterialPath decodes a multibase-encoded material path.
func ParseMaterialPath(s string) (MaterialPath, error) {
	_, raw, err := multibase.Decode(s)
	if err != nil {
		return MaterialPath{}, fmt.Errorf("primitive: bad material path: %w", err)
	}
	if len(raw) == 0 {
		return MaterialPath{}, nil
	}
	return MaterialPath{Segments: strings.Split(string(raw), "/")}, nil
}

func (p MaterialPath) String() string {
	return strings.Join(p.Segments, "/")
}
