package event

import (
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

// Query is the qry message: a request for another controller's key state,
// mailbox contents, or TEL state, answered by a rpy on ReplyRoute.
type Query struct {
	Version    VersionString    `json:"v"`
	Type       Type             `json:"t"`
	Digest     primitive.Digest `json:"d"`
	Timestamp  string           `json:"dt"`
	Route      string           `json:"r"`
	ReplyRoute string           `json:"rr"`
	Params     map[string]any   `json:"q"`
}

// NewQuery builds a qry message against route with the given query params.
func NewQuery(kind SerializationKind, route, replyRoute string, t time.Time, params map[string]any) (Query, []byte, error) {
	ev := Query{Type: Qry, Timestamp: t.UTC().Format("2006-01-02T15:04:05.000000-00:00"), Route: route, ReplyRoute: replyRoute, Params: params}
	final, err := FinalizeSize(
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Query{}, nil, err
	}
	return ev, final, nil
}

// KeyStateQueryRoute requests a controller's current key state notice.
const KeyStateQueryRoute = "ksn"

// MailboxQueryRoute requests a mailbox's queued messages since a marker.
const MailboxQueryRoute = "mbx"

// LogQueryRoute requests a controller's key event log.
const LogQueryRoute = "log"

// TelQueryRoute requests a registry's transaction event log.
const TelQueryRoute = "tels"
