// Package transport defines the capability a controller uses to reach the
// outside world: witnesses, watchers, other controllers' mailboxes, and the
// OOBI resolution that bootstraps all of them. These are the only places an
// identifier operation may suspend; validation, state reduction, database
// append, and bus fan-out all happen synchronously against local state.
package transport

import (
	"context"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// Role is the OOBI endpoint role a location or end-role reply can name.
type Role string

const (
	RoleWitness    Role = "witness"
	RoleWatcher    Role = "watcher"
	RoleMessageBox Role = "messagebox"
)

// LocScheme is one resolved (scheme, url) endpoint for an identifier,
// carried inside a /loc/scheme reply.
type LocScheme struct {
	Scheme string
	URL    string
}

// Transport is the capability an identifier operation calls out through to
// deliver or request something it cannot resolve from local state. Every
// method takes a context as its suspension point -- no method has an
// implicit timeout; callers supply one via ctx.
type Transport interface {
	// SendMessage delivers a signed key event (icp/rot/ixn/dip/drt) to one
	// recipient, identified by its identifier. The recipient's
	// reaction (acceptance, escrow, rejection) is not observable here; the
	// caller learns the outcome only via a later receipt or query.
	SendMessage(ctx context.Context, to primitive.Identifier, raw []byte, sigs []primitive.IndexedSignature) error

	// SendQuery delivers a qry message to one recipient and returns its rpy,
	// if any -- used for key-state, mailbox, and log queries.
	SendQuery(ctx context.Context, to primitive.Identifier, qry event.Query) (event.Reply, error)

	// RequestLocScheme asks a recipient to resolve the (scheme, url) it
	// knows for id, typically the first step of OOBI resolution.
	RequestLocScheme(ctx context.Context, to, id primitive.Identifier) ([]LocScheme, error)

	// RequestEndRole asks a recipient which identifiers currently hold role
	// for id -- e.g. id's current witness set.
	RequestEndRole(ctx context.Context, to, id primitive.Identifier, role Role) ([]primitive.Identifier, error)

	// ResolveOOBI dereferences a bare (scheme, url) OOBI -- fetching the
	// signed reply it serves and validating the reply's own signature is
	// the caller's responsibility; ResolveOOBI only performs the fetch.
	ResolveOOBI(ctx context.Context, scheme, url string) (event.Reply, error)

	// SendTelMessage delivers a signed TEL event (vcp/vrt/iss/rev/bis/brv)
	// to one backer, mirroring SendMessage for a registry's backer pool.
	SendTelMessage(ctx context.Context, to primitive.Identifier, raw []byte, sigs []primitive.IndexedSignature) error

	// SendTelQuery delivers a tels-route qry to one recipient and returns
	// its rpy, mirroring SendQuery for registry/credential state.
	SendTelQuery(ctx context.Context, to primitive.Identifier, qry event.Query) (event.Reply, error)
}
