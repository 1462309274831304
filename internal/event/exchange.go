package event

import (
	"time"

	"github.com/keri-id/controller/internal/primitive"
)

// Exchange is the exn message: a peer-to-peer forward-addressed envelope
// (delegation request, multisig proposal, credential presentation) routed
// to a recipient's mailbox rather than broadcast to witnesses.
type Exchange struct {
	Version   VersionString        `json:"v"`
	Type      Type                 `json:"t"`
	Digest    primitive.Digest     `json:"d"`
	Sender    primitive.Identifier `json:"i"`
	Timestamp string               `json:"dt"`
	Route     string               `json:"r"`
	Payload   map[string]any       `json:"q"`
	Embeds    map[string]any       `json:"e,omitempty"`
}

// NewExchange builds an exn message from sender on route carrying payload.
func NewExchange(algo primitive.DigestAlgorithm, kind SerializationKind, sender primitive.Identifier, route string, t time.Time, payload, embeds map[string]any) (Exchange, []byte, error) {
	ev := Exchange{
		Type:      Exn,
		Sender:    sender,
		Timestamp: t.UTC().Format("2006-01-02T15:04:05.000000-00:00"),
		Route:     route,
		Payload:   payload,
		Embeds:    embeds,
	}
	final, _, err := BuildDigest(algo,
		func(n int) { ev.Version = DefaultVersion(kind, n) },
		func(d primitive.Digest) { ev.Digest = d },
		func() ([]byte, error) { return Marshal(kind, ev) },
	)
	if err != nil {
		return Exchange{}, nil, err
	}
	return ev, final, nil
}

// DelegateRequestRoute asks a delegator to anchor a delegated event.
const DelegateRequestRoute = "/delegate/request"

// MultisigProposeRoute proposes a group multisig event for co-signing.
const MultisigProposeRoute = "/multisig/icp"
