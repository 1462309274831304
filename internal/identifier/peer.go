package identifier

import (
	"context"
	"fmt"
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
	"github.com/keri-id/controller/internal/transport/inmem"
)

var _ inmem.Peer = (*Controller)(nil)

// prefixed is the minimal shape every KEL/TEL notice shares, enough to
// learn which log raw belongs to without decoding its full concrete type.
type prefixed struct {
	Prefix primitive.Identifier `json:"i"`
}

// HandleMessage makes Controller a transport/inmem.Peer: it is the entry
// point a Router (or a real network listener, eventually) calls when
// another party addresses a message to this Controller's identifier.
// Establishment and interaction notices are routed to ProcessNotice, TEL
// notices to ProcessTelNotice, and exn messages are filed into the
// mailbox for later draining -- the same three paths a caller driving
// this Controller directly would use.
func (c *Controller) HandleMessage(ctx context.Context, raw []byte, sigs []primitive.IndexedSignature) error {
	t, err := event.PeekType(c.kind, raw)
	if err != nil {
		return fmt.Errorf("identifier: handle message: %w", err)
	}
	switch t {
	case event.Icp, event.Rot, event.Ixn, event.Dip, event.Drt:
		var h prefixed
		if err := event.Unmarshal(c.kind, raw, &h); err != nil {
			return err
		}
		return c.proc.ProcessNotice(h.Prefix, raw, sigs)
	case event.Vcp, event.Vrt, event.Iss, event.Rev, event.Bis, event.Brv:
		return c.proc.ProcessTelNotice(raw)
	case event.Exn:
		var exn event.Exchange
		if err := event.Unmarshal(c.kind, raw, &exn); err != nil {
			return err
		}
		c.mailbox.File(exn)
		return nil
	default:
		return fmt.Errorf("identifier: handle message: unsupported message type %s", t)
	}
}

// HandleQuery answers a key-state or mailbox query addressed to this
// Controller. A key-state query is answered with the current prefix and
// sn; a mailbox query is answered with whatever exn messages are already
// queued under the receipt topic, left in place rather than drained.
func (c *Controller) HandleQuery(ctx context.Context, qry event.Query) (event.Reply, error) {
	switch qry.Route {
	case event.KeyStateQueryRoute:
		s, err := c.currentState()
		if err != nil {
			return event.Reply{}, err
		}
		text, err := s.Prefix.Text()
		if err != nil {
			return event.Reply{}, err
		}
		reply, _, err := event.NewReply(c.kind, event.KeyStateRoute, time.Now(), map[string]any{
			"i": text,
			"s": s.Sn,
		})
		return reply, err
	case event.MailboxQueryRoute:
		queued := c.mailbox.Peek(TopicReceipt)
		msgs := make([]string, len(queued))
		for i, exn := range queued {
			raw, err := event.Marshal(c.kind, exn)
			if err != nil {
				return event.Reply{}, err
			}
			msgs[i] = string(raw)
		}
		reply, _, err := event.NewReply(c.kind, event.KeyStateRoute, time.Now(), map[string]any{"msgs": msgs})
		return reply, err
	default:
		return event.Reply{}, fmt.Errorf("identifier: handle query: unsupported route %s", qry.Route)
	}
}

// HandleLocSchemeRequest answers a /loc/scheme OOBI request for id with
// whatever this Controller has on record in its own OOBI store.
func (c *Controller) HandleLocSchemeRequest(ctx context.Context, id primitive.Identifier) ([]transport.LocScheme, error) {
	if c.oobiStore == nil {
		return nil, nil
	}
	return c.oobiStore.GetLocScheme(id)
}

// HandleEndRoleRequest answers an /end/role request for id/role with
// whatever this Controller has on record in its own OOBI store.
func (c *Controller) HandleEndRoleRequest(ctx context.Context, id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error) {
	if c.oobiStore == nil {
		return nil, nil
	}
	return c.oobiStore.GetEndRole(id, role)
}
