package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err) // fixed option set, cannot fail
	}
	return mode
}()

// Marshal renders v in the given serialization kind. JSON output is
// compact (no HTML escaping, no indentation) so its byte length matches
// what the dummy-digest pass measured.
func Marshal(kind SerializationKind, v any) ([]byte, error) {
	switch kind {
	case JSON:
		return marshalJSONCompact(v)
	case CBOR:
		return cborEncMode.Marshal(v)
	case MGPK:
		return msgpack.Marshal(v)
	default:
		return nil, fmt.Errorf("event: unsupported serialization kind %q", kind)
	}
}

// Unmarshal decodes data in the given serialization kind into v.
func Unmarshal(kind SerializationKind, data []byte, v any) error {
	switch kind {
	case JSON:
		return json.Unmarshal(data, v)
	case CBOR:
		return cbor.Unmarshal(data, v)
	case MGPK:
		return msgpack.Unmarshal(data, v)
	default:
		return fmt.Errorf("event: unsupported serialization kind %q", kind)
	}
}

func marshalJSONCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
