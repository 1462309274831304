// Package oobi defines the out-of-band-introduction sub-store: the signed
// replies that map an identifier and role to a reachable location, which
// is how a controller bootstraps contact with a witness, watcher, or
// messagebox it has no prior KEL for. Concrete backends live in
// subpackages (inmem for tests, firestore for production).
package oobi

import (
	"errors"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

// ErrNoSubject is returned by a backend's SaveOOBI when the reply's data
// carries no "i" field identifying which identifier it concerns.
var ErrNoSubject = errors.New("oobi: reply carries no subject identifier")

// SignedReply is an rpy message together with the signature attesting to
// it -- the unit save_oobi persists and get_loc_scheme/get_end_role later
// retrieve.
type SignedReply struct {
	Reply  event.Reply
	Signer primitive.Identifier
	Sigs   []primitive.IndexedSignature
}

// Store is the OOBI sub-store's persistence contract: saving a signed
// reply and resolving the two query shapes an identifier needs to reach a
// role endpoint (save_oobi, get_end_role, get_loc_scheme).
type Store interface {
	// SaveOOBI persists signed, keyed by the identifier its reply concerns
	// and by route. A later reply for the same (identifier, route) with a
	// newer timestamp replaces it; an older or equal one is ignored.
	SaveOOBI(signed SignedReply) error

	// GetEndRole returns the identifiers currently authorized to act as
	// role for id, per the newest saved end-role reply.
	GetEndRole(id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error)

	// GetLocScheme returns the resolved (scheme, url) endpoints for id,
	// per the newest saved location-scheme reply.
	GetLocScheme(id primitive.Identifier) ([]transport.LocScheme, error)
}

// SubjectOf reads the identifier a reply's Data carries under the "i" key
// -- the subject the reply concerns, set by the identifier API when it
// builds an end-role reply.
func SubjectOf(data map[string]any) (primitive.Identifier, bool) {
	text, ok := data["i"].(string)
	if !ok {
		return primitive.Identifier{}, false
	}
	id, err := primitive.ParseIdentifier(text)
	if err != nil {
		return primitive.Identifier{}, false
	}
	return id, true
}

// DecodeLocSchemes reads the []transport.LocScheme a /loc/scheme reply's
// Data carries under the "schemes" key: a list of objects with "scheme"
// and "url" fields.
func DecodeLocSchemes(data map[string]any) []transport.LocScheme {
	raw, ok := data["schemes"].([]any)
	if !ok {
		return nil
	}
	out := make([]transport.LocScheme, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		scheme, _ := m["scheme"].(string)
		url, _ := m["url"].(string)
		out = append(out, transport.LocScheme{Scheme: scheme, URL: url})
	}
	return out
}

// DecodeEndRoles reads the []primitive.Identifier an /end/role reply's
// Data carries under the "eids" key.
func DecodeEndRoles(data map[string]any) []primitive.Identifier {
	raw, ok := data["eids"].([]any)
	if !ok {
		return nil
	}
	out := make([]primitive.Identifier, 0, len(raw))
	for _, entry := range raw {
		text, ok := entry.(string)
		if !ok {
			continue
		}
		id, err := primitive.ParseIdentifier(text)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
