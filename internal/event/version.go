// Package event implements the typed key- and transaction-event envelopes,
// their dummy-digest fixed-point construction, and JSON/CBOR/MessagePack
// serialization.
package event

import (
	"fmt"
	"strconv"
	"strings"
)

// SerializationKind names a supported wire encoding for an event body.
type SerializationKind string

const (
	JSON SerializationKind = "JSON"
	CBOR SerializationKind = "CBOR"
	MGPK SerializationKind = "MGPK"
)

// VersionString is the `v` field every event and message carries: protocol
// name, major.minor version, serialization kind, and the exact byte size of
// the serialized body (filled by the dummy-digest pass, see dummy.go).
type VersionString struct {
	Protocol string
	Major    int
	Minor    int
	Kind     SerializationKind
	Size     int
}

// DefaultVersion is the protocol/version pair this module emits.
func DefaultVersion(kind SerializationKind, size int) VersionString {
	return VersionString{Protocol: "KERI", Major: 1, Minor: 0, Kind: kind, Size: size}
}

// Text renders the version string, e.g. "KERI10JSON0000a6_".
func (v VersionString) Text() string {
	return fmt.Sprintf("%s%d%d%s%06x_", v.Protocol, v.Major, v.Minor, v.Kind, v.Size)
}

// MarshalText implements encoding.TextMarshaler.
func (v VersionString) MarshalText() ([]byte, error) { return []byte(v.Text()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VersionString) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionString(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersionString parses a version string of the fixed "PPPPvvKKKKssssss_"
// shape (4-char protocol, 2-digit major.minor, 4-char kind, 6 hex size digits).
func ParseVersionString(s string) (VersionString, error) {
	if len(s) != 17 || !strings.HasSuffix(s, "_") {
		return VersionString{}, fmt.Errorf("event: bad version string length %q", s)
	}
	proto := s[0:4]
	major, err := strconv.Atoi(s[4:5])
	if err != nil {
		return VersionString{}, fmt.Errorf("event: bad major version in %q: %w", s, err)
	}
	minor, err := strconv.Atoi(s[5:6])
	if err != nil {
		return VersionString{}, fmt.Errorf("event: bad minor version in %q: %w", s, err)
	}
	kind := SerializationKind(s[6:10])
	size, err := strconv.ParseInt(s[10:16], 16, 64)
	if err != nil {
		return VersionString{}, fmt.Errorf("event: bad size field in %q: %w", s, err)
	}
	return VersionString{Protocol: proto, Major: major, Minor: minor, Kind: kind, Size: int(size)}, nil
}
