package event

// header is the minimal shape every event/message shares, enough to learn
// its type tag (and therefore which concrete struct to decode into) before
// committing to a full Unmarshal.
type header struct {
	Version VersionString `json:"v"`
	Type    Type          `json:"t"`
}

// PeekType reports the `t` field of a serialized event or message without
// requiring the caller to already know its concrete shape.
func PeekType(kind SerializationKind, raw []byte) (Type, error) {
	var h header
	if err := Unmarshal(kind, raw, &h); err != nil {
		return "", err
	}
	return h.Type, nil
}
