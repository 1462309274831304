package event

import (
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

// Reply is the rpy message: a timestamped, routed statement of fact (key
// state notice, location scheme, end role authorization) that a recipient
// applies if it is newer than anything already known for the same route.
type Reply struct {
	Version   VersionString  `json:"v"`
	Type      Type           `json:"t"`
	Digest    primitive.Digest `json:"d"`
	Timestamp string         `json:"dt"`
	Route     string         `json:"r"`
	Data      map[string]any `json:"a"`
}

// NewReply builds a rpy message for route carrying data, stamped at t.
func NewReply(kind SerializationKind, route string, t time.Time, data map[string]any) (Reply, []byte, error) {
	ev := Reply{Type: Rpy, Timestamp: t.UTC().Format("2006-01-02T15:04:05.000000-00:00"), Route: route, Data: data}
	final, err := FinalizeSize(
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Reply{}, nil, err
	}
	return ev, final, nil
}

// LocationSchemeRoute is the route rpy carries for an OOBI location-scheme
// notice: "/loc/scheme".
const LocationSchemeRoute = "/loc/scheme"

// EndRoleRoute is the route rpy carries for an end-role authorization.
const EndRoleRoute = "/end/role/add"

// KeyStateRoute is the route rpy carries for a key state notice (ksn).
const KeyStateRoute = "/ksn"
