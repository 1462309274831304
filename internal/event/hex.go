package event

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SerialNumber is a sequence number or count rendered as a lowercase hex
// string in the `s`/`bt` fields of an event, distinct from the CESR
// code∥b64url serial-number primitive attached out-of-band in signature
// groups (primitive.EncodeSerialNumber).
type SerialNumber uint64

func (n SerialNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(n), 16))
}

func (n *SerialNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("event: bad serial number: %w", err)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fmt.Errorf("event: bad serial number %q: %w", s, err)
	}
	*n = SerialNumber(v)
	return nil
}
