// Package inmem implements transport.Transport by dispatching directly to
// in-process Peer handlers, keyed by recipient identifier -- the double
// unit tests and local multi-identifier scenarios wire up instead of a
// real network stack.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

// Peer answers the requests a Router delivers to one registered recipient.
// An identifier API instance or a test stub implements this to stand in
// for a remote witness, watcher, or controller.
type Peer interface {
	HandleMessage(ctx context.Context, raw []byte, sigs []primitive.IndexedSignature) error
	HandleQuery(ctx context.Context, qry event.Query) (event.Reply, error)
	HandleLocSchemeRequest(ctx context.Context, id primitive.Identifier) ([]transport.LocScheme, error)
	HandleEndRoleRequest(ctx context.Context, id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error)
}

// Router is an in-memory transport.Transport. Messages addressed to an
// unregistered recipient fail with an error rather than silently dropping,
// so a misconfigured test fails loudly instead of hanging.
type Router struct {
	mu       sync.RWMutex
	peers    map[string]Peer
	oobi     map[string]event.Reply // scheme+"|"+url -> reply served by ResolveOOBI
	telPeers map[string]Peer
}

// New builds an empty Router.
func New() *Router {
	return &Router{
		peers:    make(map[string]Peer),
		oobi:     make(map[string]event.Reply),
		telPeers: make(map[string]Peer),
	}
}

// Register makes peer reachable at id for SendMessage, SendQuery,
// RequestLocScheme, and RequestEndRole.
func (r *Router) Register(id primitive.Identifier, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[id.String()] = peer
}

// RegisterTelPeer makes peer reachable at id for SendTelMessage and
// SendTelQuery -- a registry's backer pool, kept distinct from Register so
// a single test process can stand in for both a controller and a backer
// under different identifiers.
func (r *Router) RegisterTelPeer(id primitive.Identifier, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telPeers[id.String()] = peer
}

// Serve registers the reply a future ResolveOOBI(scheme, url) call returns.
func (r *Router) Serve(scheme, url string, reply event.Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oobi[oobiKey(scheme, url)] = reply
}

func oobiKey(scheme, url string) string { return scheme + "|" + url }

func (r *Router) peerFor(id primitive.Identifier) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id.String()]
	if !ok {
		return nil, fmt.Errorf("inmem transport: no peer registered for %s", id)
	}
	return p, nil
}

func (r *Router) telPeerFor(id primitive.Identifier) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.telPeers[id.String()]
	if !ok {
		return nil, fmt.Errorf("inmem transport: no TEL peer registered for %s", id)
	}
	return p, nil
}

func (r *Router) SendMessage(ctx context.Context, to primitive.Identifier, raw []byte, sigs []primitive.IndexedSignature) error {
	p, err := r.peerFor(to)
	if err != nil {
		return err
	}
	return p.HandleMessage(ctx, raw, sigs)
}

func (r *Router) SendQuery(ctx context.Context, to primitive.Identifier, qry event.Query) (event.Reply, error) {
	p, err := r.peerFor(to)
	if err != nil {
		return event.Reply{}, err
	}
	return p.HandleQuery(ctx, qry)
}

func (r *Router) RequestLocScheme(ctx context.Context, to, id primitive.Identifier) ([]transport.LocScheme, error) {
	p, err := r.peerFor(to)
	if err != nil {
		return nil, err
	}
	return p.HandleLocSchemeRequest(ctx, id)
}

func (r *Router) RequestEndRole(ctx context.Context, to, id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error) {
	p, err := r.peerFor(to)
	if err != nil {
		return nil, err
	}
	return p.HandleEndRoleRequest(ctx, id, role)
}

func (r *Router) ResolveOOBI(ctx context.Context, scheme, url string) (event.Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reply, ok := r.oobi[oobiKey(scheme, url)]
	if !ok {
		return event.Reply{}, fmt.Errorf("inmem transport: no OOBI served for %s %s", scheme, url)
	}
	return reply, nil
}

func (r *Router) SendTelMessage(ctx context.Context, to primitive.Identifier, raw []byte, sigs []primitive.IndexedSignature) error {
	p, err := r.telPeerFor(to)
	if err != nil {
		return err
	}
	return p.HandleMessage(ctx, raw, sigs)
}

func (r *Router) SendTelQuery(ctx context.Context, to primitive.Identifier, qry event.Query) (event.Reply, error) {
	p, err := r.telPeerFor(to)
	if err != nil {
		return event.Reply{}, err
	}
	return p.HandleQuery(ctx, qry)
}

var _ transport.Transport = (*Router)(nil)
